package dispatch

import (
	"strings"
	"testing"
)

const bookedPayload = `{
	"appointment_id": "appt-1",
	"provider_id": "prov-1",
	"requester_id": "req-1",
	"provider_name": "Dr. Ada",
	"provider_email": "ada@clinic.test",
	"requester_name": "Sam",
	"requester_email": "sam@example.test",
	"start_at": "2026-03-02T09:00:00Z",
	"end_at": "2026-03-02T09:30:00Z",
	"note": "first visit"
}`

func TestMailsFor_Booked(t *testing.T) {
	apptID, mails, err := MailsFor(EventAppointmentBooked, []byte(bookedPayload))
	if err != nil {
		t.Fatalf("MailsFor failed: %v", err)
	}
	if apptID != "appt-1" {
		t.Fatalf("appointment id = %q, want appt-1", apptID)
	}
	if len(mails) != 2 {
		t.Fatalf("expected 2 mails, got %d", len(mails))
	}
	if mails[0].To != "ada@clinic.test" || mails[1].To != "sam@example.test" {
		t.Fatalf("unexpected recipients: %q, %q", mails[0].To, mails[1].To)
	}
	for _, m := range mails {
		if m.Subject != "Appointment confirmed" {
			t.Errorf("subject = %q", m.Subject)
		}
		if !strings.Contains(m.Body, "first visit") {
			t.Errorf("body missing note: %q", m.Body)
		}
	}
	if !strings.Contains(mails[1].Body, "Dr. Ada") {
		t.Errorf("requester mail should name the provider: %q", mails[1].Body)
	}
}

func TestMailsFor_Cancelled(t *testing.T) {
	_, mails, err := MailsFor(EventAppointmentCancelled, []byte(bookedPayload))
	if err != nil {
		t.Fatalf("MailsFor failed: %v", err)
	}
	if len(mails) != 2 {
		t.Fatalf("expected 2 mails, got %d", len(mails))
	}
	for _, m := range mails {
		if m.Subject != "Appointment cancelled" {
			t.Errorf("subject = %q", m.Subject)
		}
		if !strings.Contains(m.Body, "cancelled") {
			t.Errorf("body should mention cancellation: %q", m.Body)
		}
	}
}

func TestMailsFor_ReminderDue(t *testing.T) {
	payload := `{
		"appointment_id": "appt-1",
		"recipient_name": "Sam",
		"recipient_email": "sam@example.test",
		"provider_name": "Dr. Ada",
		"requester_name": "Sam",
		"start_at": "2026-03-02T09:00:00Z",
		"end_at": "2026-03-02T09:30:00Z"
	}`
	_, mails, err := MailsFor(EventReminderDue, []byte(payload))
	if err != nil {
		t.Fatalf("MailsFor failed: %v", err)
	}
	if len(mails) != 1 {
		t.Fatalf("expected 1 mail, got %d", len(mails))
	}
	if mails[0].To != "sam@example.test" || mails[0].Subject != "Appointment reminder" {
		t.Fatalf("unexpected mail: %+v", mails[0])
	}
}

func TestMailsFor_Invalid(t *testing.T) {
	cases := []struct {
		name      string
		eventType string
		payload   string
	}{
		{"bad json", EventAppointmentBooked, `{`},
		{"missing appointment id", EventAppointmentBooked, `{}`},
		{"missing emails", EventAppointmentBooked, `{"appointment_id":"a"}`},
		{"missing recipient", EventReminderDue, `{"appointment_id":"a"}`},
		{"unknown type", "billing.invoice.paid.v1", bookedPayload},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, _, err := MailsFor(tc.eventType, []byte(tc.payload)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
