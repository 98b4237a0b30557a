package calendar

import (
	"strings"
	"testing"
	"time"

	"github.com/Nuthana-am/careslot/services/booking-service/internal/model"
)

func TestAppointmentICS(t *testing.T) {
	start := time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)
	b := model.Booking{
		ID:          "11111111-2222-3333-4444-555555555555",
		ProviderID:  "prov-1",
		RequesterID: "req-1",
		StartAt:     start,
		EndAt:       start.Add(30 * time.Minute),
		Status:      model.StatusScheduled,
		Note:        "bring previous results",
		CreatedAt:   start.Add(-48 * time.Hour),
	}
	provider := model.User{ID: "prov-1", Name: "Dr. Ada", Email: "ada@clinic.test", Role: model.RoleProvider}
	requester := model.User{ID: "req-1", Name: "Sam", Email: "sam@example.test", Role: model.RoleRequester}

	out := AppointmentICS(b, provider, requester)

	for _, want := range []string{
		"BEGIN:VCALENDAR",
		"UID:" + b.ID,
		"DTSTART:20260302T090000Z",
		"DTEND:20260302T093000Z",
		"SUMMARY:Appointment with Dr. Ada",
		"STATUS:CONFIRMED",
		"END:VCALENDAR",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("serialized calendar missing %q:\n%s", want, out)
		}
	}
}

func TestAppointmentICS_CancelledStatus(t *testing.T) {
	start := time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)
	at := start.Add(-time.Hour)
	b := model.Booking{
		ID:          "66666666-7777-8888-9999-000000000000",
		StartAt:     start,
		EndAt:       start.Add(30 * time.Minute),
		Status:      model.StatusCancelled,
		CancelledAt: &at,
		CreatedAt:   start.Add(-48 * time.Hour),
	}
	out := AppointmentICS(b, model.User{Name: "Dr. Ada", Email: "ada@clinic.test"}, model.User{Name: "Sam", Email: "sam@example.test"})
	if !strings.Contains(out, "STATUS:CANCELLED") {
		t.Errorf("expected cancelled status in:\n%s", out)
	}
}
