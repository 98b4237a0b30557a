// Package delivery processes one consumed booking event end to end: build
// the emails, send them, and record each attempt in the delivery log.
package delivery

import (
	"context"
	"log/slog"

	"github.com/Nuthana-am/careslot/services/notification-service/internal/dispatch"
	"github.com/Nuthana-am/careslot/services/notification-service/internal/email"
	"github.com/Nuthana-am/careslot/services/notification-service/internal/storage"
)

// Log records delivery attempts.
type Log interface {
	Insert(ctx context.Context, n storage.Notification) error
}

type Deliverer struct {
	sender email.Sender
	log    Log
	logger *slog.Logger
}

func New(sender email.Sender, log Log, logger *slog.Logger) *Deliverer {
	return &Deliverer{sender: sender, log: log, logger: logger}
}

// Handle processes a single event. The inbox row for the event is recorded
// before Handle runs, so a redelivery of the same event would be dropped as
// a duplicate; every failure here is therefore logged and absorbed rather
// than returned for a retry that will never reach us.
func (d *Deliverer) Handle(ctx context.Context, topic string, payload []byte) error {
	apptID, mails, err := dispatch.MailsFor(topic, payload)
	if err != nil {
		d.logger.Error("undeliverable event", "err", err, "topic", topic)
		return nil
	}

	for _, m := range mails {
		status := "sent"
		if err := d.sender.Send(m.To, m.Subject, m.Body); err != nil {
			status = "failed"
			d.logger.Error("email send failed", "err", err, "recipient", m.To, "appointment_id", apptID)
		}
		if err := d.log.Insert(ctx, storage.Notification{
			AppointmentID: apptID,
			EventType:     topic,
			Recipient:     m.To,
			Subject:       m.Subject,
			Payload:       payload,
			Status:        status,
		}); err != nil {
			d.logger.Error("failed to persist notification", "err", err, "recipient", m.To, "appointment_id", apptID)
			continue
		}
		d.logger.Info("notification processed", "appointment_id", apptID, "recipient", m.To, "status", status)
	}
	return nil
}
