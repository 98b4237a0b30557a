package availability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Nuthana-am/careslot/services/booking-service/internal/interval"
	"github.com/Nuthana-am/careslot/services/booking-service/internal/model"
)

type fakeRuleStore struct {
	rules map[string][]model.AvailabilityRule
}

func (s *fakeRuleStore) ListRules(_ context.Context, providerID string, weekday time.Weekday) ([]model.AvailabilityRule, error) {
	var out []model.AvailabilityRule
	for _, r := range s.rules[providerID] {
		if r.Weekday == weekday {
			out = append(out, r)
		}
	}
	return out, nil
}

// monday is a Monday well in the future relative to the fixed test clock.
var monday = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func newTestResolver(rules ...model.AvailabilityRule) *Resolver {
	store := &fakeRuleStore{rules: map[string][]model.AvailabilityRule{}}
	for _, r := range rules {
		store.rules[r.ProviderID] = append(store.rules[r.ProviderID], r)
	}
	return NewResolver(store).WithClock(fixedClock(monday.Add(-24 * time.Hour)))
}

func TestResolve_MorningWindow(t *testing.T) {
	// Monday 09:00-12:00, 30-minute slots: 09:00 ... 11:30, last ending 12:00.
	r := newTestResolver(model.AvailabilityRule{
		ProviderID: "prov-1", Weekday: time.Monday, StartMinute: 9 * 60, EndMinute: 12 * 60,
	})

	slots, err := r.Resolve(context.Background(), "prov-1", monday, 30*time.Minute)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if len(slots) != 6 {
		t.Fatalf("expected 6 slots, got %d", len(slots))
	}
	for i, s := range slots {
		wantStart := monday.Add(9*time.Hour + time.Duration(i)*30*time.Minute)
		if !s.Start.Equal(wantStart) {
			t.Fatalf("slot %d starts at %s, want %s", i, s.Start, wantStart)
		}
		if s.Duration() != 30*time.Minute {
			t.Fatalf("slot %d has duration %s", i, s.Duration())
		}
	}
	if !slots[5].End.Equal(monday.Add(12 * time.Hour)) {
		t.Fatalf("last slot ends at %s, want 12:00", slots[5].End)
	}
}

func TestResolve_SlotsContainedInRuleWindows(t *testing.T) {
	rules := []model.AvailabilityRule{
		{ProviderID: "prov-1", Weekday: time.Monday, StartMinute: 9 * 60, EndMinute: 12 * 60},
		{ProviderID: "prov-1", Weekday: time.Monday, StartMinute: 14 * 60, EndMinute: 18 * 60},
	}
	r := newTestResolver(rules...)

	slots, err := r.Resolve(context.Background(), "prov-1", monday, 45*time.Minute)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if len(slots) == 0 {
		t.Fatal("expected candidates")
	}
	for _, s := range slots {
		contained := false
		for _, rule := range rules {
			window := interval.Interval{
				Start: monday.Add(time.Duration(rule.StartMinute) * time.Minute),
				End:   monday.Add(time.Duration(rule.EndMinute) * time.Minute),
			}
			if interval.Contains(window, s) {
				contained = true
				break
			}
		}
		if !contained {
			t.Fatalf("slot %v is not contained in any rule window", s)
		}
		if s.Duration() != 45*time.Minute {
			t.Fatalf("slot %v has wrong duration", s)
		}
	}
}

func TestResolve_RuleShorterThanSlot(t *testing.T) {
	// 09:00-09:20 cannot fit a 30-minute slot.
	r := newTestResolver(model.AvailabilityRule{
		ProviderID: "prov-1", Weekday: time.Monday, StartMinute: 9 * 60, EndMinute: 9*60 + 20,
	})
	slots, err := r.Resolve(context.Background(), "prov-1", monday, 30*time.Minute)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if len(slots) != 0 {
		t.Fatalf("expected no slots, got %d", len(slots))
	}
}

func TestResolve_DeduplicatesOverlappingRules(t *testing.T) {
	r := newTestResolver(
		model.AvailabilityRule{ProviderID: "prov-1", Weekday: time.Monday, StartMinute: 9 * 60, EndMinute: 11 * 60},
		model.AvailabilityRule{ProviderID: "prov-1", Weekday: time.Monday, StartMinute: 9 * 60, EndMinute: 12 * 60},
	)

	slots, err := r.Resolve(context.Background(), "prov-1", monday, 60*time.Minute)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	// 09:00, 10:00 from both rules plus 11:00 from the second; no duplicates.
	if len(slots) != 3 {
		t.Fatalf("expected 3 deduplicated slots, got %d", len(slots))
	}
	for i := 1; i < len(slots); i++ {
		if !slots[i].Start.After(slots[i-1].Start) {
			t.Fatalf("slots out of order or duplicated: %v", slots)
		}
	}
}

func TestResolve_DiscardsPastSlots(t *testing.T) {
	store := &fakeRuleStore{rules: map[string][]model.AvailabilityRule{
		"prov-1": {{ProviderID: "prov-1", Weekday: time.Monday, StartMinute: 9 * 60, EndMinute: 12 * 60}},
	}}
	// Resolving mid-morning: slots ending at or before 10:30 are gone. The
	// 10:00-10:30 slot ends exactly at now and is excluded; 10:30 onward stay.
	r := NewResolver(store).WithClock(fixedClock(monday.Add(10*time.Hour + 30*time.Minute)))

	slots, err := r.Resolve(context.Background(), "prov-1", monday, 30*time.Minute)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if len(slots) != 3 {
		t.Fatalf("expected 3 future slots, got %d", len(slots))
	}
	if !slots[0].Start.Equal(monday.Add(10*time.Hour + 30*time.Minute)) {
		t.Fatalf("first slot starts at %s, want 10:30", slots[0].Start)
	}
}

func TestResolve_UnknownProvider(t *testing.T) {
	r := newTestResolver()
	slots, err := r.Resolve(context.Background(), "nobody", monday, 30*time.Minute)
	if err != nil {
		t.Fatalf("unknown provider should not error, got %v", err)
	}
	if len(slots) != 0 {
		t.Fatalf("expected empty result, got %d slots", len(slots))
	}
}

func TestResolve_InvalidDuration(t *testing.T) {
	r := newTestResolver()
	for _, d := range []time.Duration{0, -30 * time.Minute} {
		_, err := r.Resolve(context.Background(), "prov-1", monday, d)
		if !errors.Is(err, model.ErrInvalidArgument) {
			t.Fatalf("duration %s: expected ErrInvalidArgument, got %v", d, err)
		}
	}
}

func TestFilterFree(t *testing.T) {
	r := newTestResolver(model.AvailabilityRule{
		ProviderID: "prov-1", Weekday: time.Monday, StartMinute: 9 * 60, EndMinute: 12 * 60,
	})
	candidates, err := r.Resolve(context.Background(), "prov-1", monday, 30*time.Minute)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	booked := []model.Booking{{
		ProviderID: "prov-1",
		StartAt:    monday.Add(10 * time.Hour),
		EndAt:      monday.Add(10*time.Hour + 30*time.Minute),
		Status:     model.StatusScheduled,
	}}

	free := FilterFree(candidates, booked)
	if len(free) != 5 {
		t.Fatalf("expected 5 free slots, got %d", len(free))
	}
	for _, s := range free {
		if s.Start.Equal(monday.Add(10 * time.Hour)) {
			t.Fatal("booked slot still present")
		}
		if HasConflict(s, booked) {
			t.Fatalf("FilterFree returned conflicting slot %v", s)
		}
	}

	// Empty booking list returns every candidate.
	if got := FilterFree(candidates, nil); len(got) != len(candidates) {
		t.Fatalf("expected all %d candidates, got %d", len(candidates), len(got))
	}
}

func TestFilterFree_IgnoresCancelled(t *testing.T) {
	candidate := interval.Interval{
		Start: monday.Add(10 * time.Hour),
		End:   monday.Add(10*time.Hour + 30*time.Minute),
	}
	bookings := []model.Booking{
		{StartAt: candidate.Start, EndAt: candidate.End, Status: model.StatusCancelled},
		{StartAt: candidate.Start, EndAt: candidate.End, Status: model.StatusCompleted},
	}
	if HasConflict(candidate, bookings) {
		t.Fatal("cancelled and completed bookings must not block")
	}
}
