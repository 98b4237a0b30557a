package reminder

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/Nuthana-am/careslot/services/booking-service/internal/identity"
	"github.com/Nuthana-am/careslot/services/booking-service/internal/model"
	"github.com/Nuthana-am/careslot/services/booking-service/internal/outbox"
)

// Store selects bookings entering the reminder window and marks them
// reminded. SelectDue must return scheduled bookings with reminder_sent=false
// whose start falls in [now, now+window]; it is idempotent until MarkReminded
// flips the flag. MarkReminded is a keyed update and safe to call for a
// booking cancelled in between.
type Store interface {
	SelectDue(ctx context.Context, now time.Time, window time.Duration) ([]model.Booking, error)
	MarkReminded(ctx context.Context, bookingID string) error
}

// EventSink receives the reminder events destined for delivery.
type EventSink interface {
	Enqueue(ctx context.Context, events ...outbox.Event) error
}

// IsDue is the selection predicate Store implementations must match: the
// booking is scheduled, not yet reminded, and starts within
// [now, now+window], bounds inclusive.
func IsDue(b model.Booking, now time.Time, window time.Duration) bool {
	if b.Status != model.StatusScheduled || b.ReminderSent {
		return false
	}
	return !b.StartAt.Before(now) && !b.StartAt.After(now.Add(window))
}

// Worker periodically sweeps for due bookings, enqueues one reminder event
// per party, and marks each booking reminded. Enqueue-then-mark makes
// delivery at-least-once: a failure after enqueue leaves the booking due and
// it is picked up again on the next tick.
type Worker struct {
	store  Store
	users  identity.UserStore
	sink   EventSink
	logger *slog.Logger
	every  time.Duration
	window time.Duration
	now    func() time.Time
}

type WorkerConfig struct {
	Every  time.Duration
	Window time.Duration
}

func NewWorker(store Store, users identity.UserStore, sink EventSink, logger *slog.Logger, cfg WorkerConfig) *Worker {
	if cfg.Every <= 0 {
		cfg.Every = time.Minute
	}
	if cfg.Window <= 0 {
		cfg.Window = 24 * time.Hour
	}
	return &Worker{
		store:  store,
		users:  users,
		sink:   sink,
		logger: logger,
		every:  cfg.Every,
		window: cfg.Window,
		now:    time.Now,
	}
}

// WithClock replaces the wall clock, for tests.
func (w *Worker) WithClock(now func() time.Time) *Worker {
	w.now = now
	return w
}

func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.ProcessBatch(ctx); err != nil {
				w.logger.Error("reminder sweep failed", "err", err)
			}
		}
	}
}

func (w *Worker) ProcessBatch(ctx context.Context) error {
	due, err := w.store.SelectDue(ctx, w.now().UTC(), w.window)
	if err != nil {
		return err
	}

	for _, b := range due {
		events, err := w.reminderEvents(ctx, b)
		if err != nil {
			w.logger.Error("reminder event build failed", "appointment_id", b.ID, "err", err)
			continue
		}
		if err := w.sink.Enqueue(ctx, events...); err != nil {
			// Not marked: retried on the next sweep.
			w.logger.Error("reminder enqueue failed", "appointment_id", b.ID, "err", err)
			continue
		}
		if err := w.store.MarkReminded(ctx, b.ID); err != nil {
			w.logger.Error("mark reminded failed", "appointment_id", b.ID, "err", err)
			continue
		}
		w.logger.Info("reminder queued", "appointment_id", b.ID, "start_at", b.StartAt.Format(time.RFC3339))
	}
	return nil
}

func (w *Worker) reminderEvents(ctx context.Context, b model.Booking) ([]outbox.Event, error) {
	provider, err := w.users.GetByID(ctx, b.ProviderID)
	if err != nil {
		return nil, err
	}
	requester, err := w.users.GetByID(ctx, b.RequesterID)
	if err != nil {
		return nil, err
	}

	events := make([]outbox.Event, 0, 2)
	for _, recipient := range []model.User{provider, requester} {
		payload, err := json.Marshal(map[string]any{
			"appointment_id":  b.ID,
			"recipient_name":  recipient.Name,
			"recipient_email": recipient.Email,
			"provider_name":   provider.Name,
			"requester_name":  requester.Name,
			"start_at":        b.StartAt.Format(time.RFC3339),
			"end_at":          b.EndAt.Format(time.RFC3339),
			"note":            b.Note,
		})
		if err != nil {
			return nil, err
		}
		events = append(events, outbox.Event{
			AggregateType: "appointment",
			AggregateID:   b.ID,
			EventType:     outbox.EventReminderDue,
			Payload:       payload,
		})
	}
	return events, nil
}
