package reminder

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/Nuthana-am/careslot/services/booking-service/internal/model"
	"github.com/Nuthana-am/careslot/services/booking-service/internal/outbox"
)

var base = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

func TestIsDue(t *testing.T) {
	window := 24 * time.Hour
	mk := func(start time.Time, status string, reminded bool) model.Booking {
		return model.Booking{StartAt: start, Status: status, ReminderSent: reminded}
	}

	cases := []struct {
		name string
		b    model.Booking
		want bool
	}{
		{"inside window", mk(base.Add(2*time.Hour), model.StatusScheduled, false), true},
		{"starts exactly now", mk(base, model.StatusScheduled, false), true},
		{"starts exactly at window edge", mk(base.Add(window), model.StatusScheduled, false), true},
		{"starts beyond window", mk(base.Add(window+time.Minute), model.StatusScheduled, false), false},
		{"already started", mk(base.Add(-time.Minute), model.StatusScheduled, false), false},
		{"already reminded", mk(base.Add(2*time.Hour), model.StatusScheduled, true), false},
		{"cancelled", mk(base.Add(2*time.Hour), model.StatusCancelled, false), false},
		{"completed", mk(base.Add(2*time.Hour), model.StatusCompleted, false), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsDue(tc.b, base, window); got != tc.want {
				t.Fatalf("IsDue = %v, want %v", got, tc.want)
			}
		})
	}
}

type memReminderStore struct {
	mu       sync.Mutex
	bookings map[string]model.Booking
}

func (s *memReminderStore) SelectDue(_ context.Context, now time.Time, window time.Duration) ([]model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var due []model.Booking
	for _, b := range s.bookings {
		if IsDue(b, now, window) {
			due = append(due, b)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].StartAt.Before(due[j].StartAt) })
	return due, nil
}

func (s *memReminderStore) MarkReminded(_ context.Context, bookingID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[bookingID]
	if !ok {
		return nil // keyed no-op update
	}
	b.ReminderSent = true
	s.bookings[bookingID] = b
	return nil
}

type memSink struct {
	mu     sync.Mutex
	events []outbox.Event
	fail   bool
}

func (s *memSink) Enqueue(_ context.Context, events ...outbox.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("kafka outage")
	}
	s.events = append(s.events, events...)
	return nil
}

type staticUsers struct{}

func (staticUsers) GetByID(_ context.Context, id string) (model.User, error) {
	return model.User{ID: id, Name: "user " + id, Email: id + "@example.com"}, nil
}

func newTestWorker(store *memReminderStore, sink *memSink) *Worker {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	w := NewWorker(store, staticUsers{}, sink, logger, WorkerConfig{
		Every:  time.Minute,
		Window: 24 * time.Hour,
	})
	return w.WithClock(func() time.Time { return base })
}

func seededStore() *memReminderStore {
	return &memReminderStore{bookings: map[string]model.Booking{
		"due-1": {
			ID: "due-1", ProviderID: "prov-1", RequesterID: "req-1",
			StartAt: base.Add(2 * time.Hour), EndAt: base.Add(2*time.Hour + 30*time.Minute),
			Status: model.StatusScheduled,
		},
		"far-future": {
			ID: "far-future", ProviderID: "prov-1", RequesterID: "req-1",
			StartAt: base.Add(72 * time.Hour), EndAt: base.Add(72*time.Hour + 30*time.Minute),
			Status: model.StatusScheduled,
		},
		"cancelled": {
			ID: "cancelled", ProviderID: "prov-1", RequesterID: "req-1",
			StartAt: base.Add(3 * time.Hour), EndAt: base.Add(3*time.Hour + 30*time.Minute),
			Status: model.StatusCancelled,
		},
	}}
}

func TestSelectDue_IdempotentBeforeMarking(t *testing.T) {
	store := seededStore()
	ctx := context.Background()

	first, err := store.SelectDue(ctx, base, 24*time.Hour)
	if err != nil {
		t.Fatalf("SelectDue failed: %v", err)
	}
	second, err := store.SelectDue(ctx, base, 24*time.Hour)
	if err != nil {
		t.Fatalf("SelectDue failed: %v", err)
	}
	if len(first) != 1 || len(second) != 1 || first[0].ID != second[0].ID {
		t.Fatalf("repeated selection differs: %v vs %v", first, second)
	}
	if first[0].ID != "due-1" {
		t.Fatalf("selected %s, want due-1", first[0].ID)
	}

	if err := store.MarkReminded(ctx, "due-1"); err != nil {
		t.Fatalf("MarkReminded failed: %v", err)
	}
	after, err := store.SelectDue(ctx, base, 24*time.Hour)
	if err != nil {
		t.Fatalf("SelectDue failed: %v", err)
	}
	if len(after) != 0 {
		t.Fatalf("marked booking still selected: %v", after)
	}
}

func TestWorker_ProcessBatch(t *testing.T) {
	store := seededStore()
	sink := &memSink{}
	w := newTestWorker(store, sink)
	ctx := context.Background()

	if err := w.ProcessBatch(ctx); err != nil {
		t.Fatalf("ProcessBatch failed: %v", err)
	}
	// One due booking, one event per party.
	if len(sink.events) != 2 {
		t.Fatalf("expected 2 reminder events, got %d", len(sink.events))
	}
	for _, evt := range sink.events {
		if evt.EventType != outbox.EventReminderDue {
			t.Fatalf("unexpected event type %s", evt.EventType)
		}
		if evt.AggregateID != "due-1" {
			t.Fatalf("unexpected aggregate %s", evt.AggregateID)
		}
	}

	// The booking is marked; a second sweep is a no-op.
	if err := w.ProcessBatch(ctx); err != nil {
		t.Fatalf("second ProcessBatch failed: %v", err)
	}
	if len(sink.events) != 2 {
		t.Fatalf("reminder fired twice: %d events", len(sink.events))
	}
}

func TestWorker_EnqueueFailureLeavesBookingDue(t *testing.T) {
	store := seededStore()
	sink := &memSink{fail: true}
	w := newTestWorker(store, sink)
	ctx := context.Background()

	if err := w.ProcessBatch(ctx); err != nil {
		t.Fatalf("ProcessBatch failed: %v", err)
	}
	due, err := store.SelectDue(ctx, base, 24*time.Hour)
	if err != nil {
		t.Fatalf("SelectDue failed: %v", err)
	}
	if len(due) != 1 {
		t.Fatal("booking must stay due when enqueue fails")
	}

	// Recovery: next sweep delivers and marks.
	sink.fail = false
	if err := w.ProcessBatch(ctx); err != nil {
		t.Fatalf("ProcessBatch failed: %v", err)
	}
	if len(sink.events) != 2 {
		t.Fatalf("expected 2 events after recovery, got %d", len(sink.events))
	}
	due, err = store.SelectDue(ctx, base, 24*time.Hour)
	if err != nil {
		t.Fatalf("SelectDue failed: %v", err)
	}
	if len(due) != 0 {
		t.Fatal("booking should be marked after successful delivery")
	}
}

func TestMarkReminded_UnknownIDIsNoop(t *testing.T) {
	store := seededStore()
	if err := store.MarkReminded(context.Background(), "vanished"); err != nil {
		t.Fatalf("marking an unknown booking must be a no-op, got %v", err)
	}
}
