package delivery

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/Nuthana-am/careslot/services/notification-service/internal/dispatch"
	"github.com/Nuthana-am/careslot/services/notification-service/internal/storage"
)

const bookedPayload = `{
	"appointment_id": "appt-1",
	"provider_name": "Dr. Ada",
	"provider_email": "ada@clinic.test",
	"requester_name": "Sam",
	"requester_email": "sam@example.test",
	"start_at": "2026-03-02T09:00:00Z",
	"end_at": "2026-03-02T09:30:00Z"
}`

type fakeSender struct {
	sent   []string
	failTo string
}

func (s *fakeSender) Send(to, subject, body string) error {
	if to == s.failTo {
		return errors.New("smtp unreachable")
	}
	s.sent = append(s.sent, to)
	return nil
}

type fakeLog struct {
	rows     []storage.Notification
	failures int
}

func (l *fakeLog) Insert(_ context.Context, n storage.Notification) error {
	if l.failures > 0 {
		l.failures--
		return errors.New("db unavailable")
	}
	l.rows = append(l.rows, n)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHandle_DeliversAndLogsBothParties(t *testing.T) {
	sender := &fakeSender{}
	log := &fakeLog{}
	d := New(sender, log, testLogger())

	if err := d.Handle(context.Background(), dispatch.EventAppointmentBooked, []byte(bookedPayload)); err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if len(sender.sent) != 2 {
		t.Fatalf("expected 2 sends, got %d", len(sender.sent))
	}
	if len(log.rows) != 2 {
		t.Fatalf("expected 2 log rows, got %d", len(log.rows))
	}
	for _, row := range log.rows {
		if row.Status != "sent" || row.AppointmentID != "appt-1" {
			t.Fatalf("unexpected log row: %+v", row)
		}
	}
}

func TestHandle_SendFailureIsRecordedAsFailed(t *testing.T) {
	sender := &fakeSender{failTo: "ada@clinic.test"}
	log := &fakeLog{}
	d := New(sender, log, testLogger())

	if err := d.Handle(context.Background(), dispatch.EventAppointmentBooked, []byte(bookedPayload)); err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if len(log.rows) != 2 {
		t.Fatalf("expected 2 log rows, got %d", len(log.rows))
	}
	if log.rows[0].Status != "failed" || log.rows[1].Status != "sent" {
		t.Fatalf("unexpected statuses: %q, %q", log.rows[0].Status, log.rows[1].Status)
	}
}

func TestHandle_LogFailureDoesNotStopDelivery(t *testing.T) {
	sender := &fakeSender{}
	log := &fakeLog{failures: 1}
	d := New(sender, log, testLogger())

	// The event is already in the inbox when Handle runs, so surfacing the
	// insert error would not trigger a retry; the remaining party's email
	// must still go out.
	if err := d.Handle(context.Background(), dispatch.EventAppointmentBooked, []byte(bookedPayload)); err != nil {
		t.Fatalf("Handle must absorb log failures, got %v", err)
	}
	if len(sender.sent) != 2 {
		t.Fatalf("expected both emails sent despite log failure, got %d", len(sender.sent))
	}
	if len(log.rows) != 1 {
		t.Fatalf("expected 1 surviving log row, got %d", len(log.rows))
	}
}

func TestHandle_MalformedEventDropped(t *testing.T) {
	sender := &fakeSender{}
	log := &fakeLog{}
	d := New(sender, log, testLogger())

	if err := d.Handle(context.Background(), dispatch.EventAppointmentBooked, []byte(`{`)); err != nil {
		t.Fatalf("malformed events must be dropped, not retried: %v", err)
	}
	if len(sender.sent) != 0 || len(log.rows) != 0 {
		t.Fatal("nothing should be sent or logged for a malformed event")
	}
}
