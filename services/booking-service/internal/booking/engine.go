package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Nuthana-am/careslot/services/booking-service/internal/availability"
	"github.com/Nuthana-am/careslot/services/booking-service/internal/identity"
	"github.com/Nuthana-am/careslot/services/booking-service/internal/interval"
	"github.com/Nuthana-am/careslot/services/booking-service/internal/model"
	"github.com/Nuthana-am/careslot/services/booking-service/internal/outbox"
)

// insertRetries bounds re-attempts of the booking commit on storage failures
// before the error is surfaced.
const insertRetries = 2

// Store is the booking persistence contract. InsertScheduled must reject a
// booking overlapping an existing scheduled one for the same provider with
// model.ErrSlotUnavailable, atomically with respect to concurrent inserts
// (the Postgres implementation relies on an exclusion constraint).
// CancelScheduled must transition scheduled->cancelled conditionally and
// report model.ErrInvalidState when the booking is no longer scheduled.
// Events are persisted in the same transaction as the domain change.
type Store interface {
	ListScheduled(ctx context.Context, providerID string, from, to time.Time) ([]model.Booking, error)
	InsertScheduled(ctx context.Context, b *model.Booking, events []outbox.Event) error
	GetBooking(ctx context.Context, id string) (model.Booking, error)
	CancelScheduled(ctx context.Context, id string, at time.Time, events []outbox.Event) error
}

// Engine validates and commits bookings, enforcing the non-overlap guarantee
// for scheduled bookings per provider.
type Engine struct {
	store  Store
	users  identity.UserStore
	authz  *identity.Authorizer
	logger *slog.Logger
	now    func() time.Time
}

func NewEngine(store Store, users identity.UserStore, logger *slog.Logger) *Engine {
	return &Engine{
		store:  store,
		users:  users,
		authz:  identity.NewAuthorizer(users),
		logger: logger,
		now:    time.Now,
	}
}

// WithClock replaces the wall clock, for tests.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// Book reserves iv for requesterID with providerID. The interval is
// normalized to UTC at minute precision. A slot lost to a concurrent booking
// surfaces as model.ErrSlotUnavailable; the caller should re-query free
// slots.
func (e *Engine) Book(ctx context.Context, providerID, requesterID string, iv interval.Interval, note string) (*model.Booking, error) {
	if providerID == "" || requesterID == "" {
		return nil, fmt.Errorf("%w: provider and requester are required", model.ErrInvalidArgument)
	}
	iv = interval.Interval{
		Start: iv.Start.UTC().Truncate(time.Minute),
		End:   iv.End.UTC().Truncate(time.Minute),
	}
	if !iv.End.After(iv.Start) {
		return nil, fmt.Errorf("%w: interval end must be after start", model.ErrInvalidArgument)
	}

	provider, requester, err := e.authz.CanBook(ctx, providerID, requesterID)
	if err != nil {
		return nil, err
	}

	// Fast pre-check against the live scheduled set. The storage exclusion
	// constraint closes the remaining race window at insert time.
	existing, err := e.store.ListScheduled(ctx, providerID, iv.Start, iv.End)
	if err != nil {
		return nil, err
	}
	if availability.HasConflict(iv, existing) {
		return nil, fmt.Errorf("%w: interval %s-%s is taken", model.ErrSlotUnavailable,
			iv.Start.Format(time.RFC3339), iv.End.Format(time.RFC3339))
	}

	b := &model.Booking{
		ID:          uuid.NewString(),
		ProviderID:  providerID,
		RequesterID: requesterID,
		StartAt:     iv.Start,
		EndAt:       iv.End,
		Status:      model.StatusScheduled,
		Note:        note,
		CreatedAt:   e.now().UTC(),
	}

	evt, err := bookedEvent(b, provider, requester)
	if err != nil {
		return nil, err
	}

	for attempt := 0; ; attempt++ {
		err = e.store.InsertScheduled(ctx, b, []outbox.Event{evt})
		if err == nil {
			e.logger.Info("appointment booked",
				"appointment_id", b.ID,
				"provider_id", providerID,
				"start_at", b.StartAt.Format(time.RFC3339),
			)
			return b, nil
		}
		if errors.Is(err, model.ErrStorageFailure) && attempt < insertRetries {
			e.logger.Warn("booking commit retry", "attempt", attempt+1, "err", err)
			continue
		}
		return nil, err
	}
}

// Cancel transitions a scheduled booking to cancelled. Only the provider or
// the requester on the booking may cancel; cancelling a booking that is not
// scheduled (including one already cancelled) fails with
// model.ErrInvalidState.
func (e *Engine) Cancel(ctx context.Context, bookingID, actorID string) error {
	if bookingID == "" || actorID == "" {
		return fmt.Errorf("%w: booking id and actor id are required", model.ErrInvalidArgument)
	}

	b, err := e.store.GetBooking(ctx, bookingID)
	if err != nil {
		return err
	}
	if _, err := e.authz.CanCancel(ctx, actorID, b); err != nil {
		return err
	}
	if b.Status != model.StatusScheduled {
		return fmt.Errorf("%w: booking is %s", model.ErrInvalidState, b.Status)
	}

	cancelledAt := e.now().UTC()
	evt, err := e.cancelledEvent(ctx, b, actorID, cancelledAt)
	if err != nil {
		return err
	}

	// The conditional update in storage decides the winner when two parties
	// race; the loser gets ErrInvalidState.
	if err := e.store.CancelScheduled(ctx, bookingID, cancelledAt, []outbox.Event{evt}); err != nil {
		return err
	}
	e.logger.Info("appointment cancelled", "appointment_id", bookingID, "actor_id", actorID)
	return nil
}

func bookedEvent(b *model.Booking, provider, requester model.User) (outbox.Event, error) {
	payload, err := json.Marshal(map[string]any{
		"appointment_id":  b.ID,
		"provider_id":     b.ProviderID,
		"requester_id":    b.RequesterID,
		"provider_name":   provider.Name,
		"provider_email":  provider.Email,
		"requester_name":  requester.Name,
		"requester_email": requester.Email,
		"start_at":        b.StartAt.Format(time.RFC3339),
		"end_at":          b.EndAt.Format(time.RFC3339),
		"note":            b.Note,
	})
	if err != nil {
		return outbox.Event{}, err
	}
	return outbox.Event{
		AggregateType: "appointment",
		AggregateID:   b.ID,
		EventType:     outbox.EventAppointmentBooked,
		Payload:       payload,
	}, nil
}

func (e *Engine) cancelledEvent(ctx context.Context, b model.Booking, actorID string, cancelledAt time.Time) (outbox.Event, error) {
	provider, err := e.users.GetByID(ctx, b.ProviderID)
	if err != nil {
		return outbox.Event{}, err
	}
	requester, err := e.users.GetByID(ctx, b.RequesterID)
	if err != nil {
		return outbox.Event{}, err
	}

	payload, err := json.Marshal(map[string]any{
		"appointment_id":  b.ID,
		"provider_id":     b.ProviderID,
		"requester_id":    b.RequesterID,
		"provider_name":   provider.Name,
		"provider_email":  provider.Email,
		"requester_name":  requester.Name,
		"requester_email": requester.Email,
		"start_at":        b.StartAt.Format(time.RFC3339),
		"end_at":          b.EndAt.Format(time.RFC3339),
		"cancelled_by":    actorID,
		"cancelled_at":    cancelledAt.Format(time.RFC3339),
	})
	if err != nil {
		return outbox.Event{}, err
	}
	return outbox.Event{
		AggregateType: "appointment",
		AggregateID:   b.ID,
		EventType:     outbox.EventAppointmentCancelled,
		Payload:       payload,
	}, nil
}
