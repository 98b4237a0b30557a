package availability

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/Nuthana-am/careslot/services/booking-service/internal/interval"
	"github.com/Nuthana-am/careslot/services/booking-service/internal/model"
)

type RuleStore interface {
	ListRules(ctx context.Context, providerID string, weekday time.Weekday) ([]model.AvailabilityRule, error)
}

// Resolver expands a provider's weekly availability rules into concrete slot
// candidates for one calendar day. All times are UTC.
type Resolver struct {
	rules RuleStore
	now   func() time.Time
}

func NewResolver(rules RuleStore) *Resolver {
	return &Resolver{rules: rules, now: time.Now}
}

// WithClock replaces the wall clock, for tests.
func (r *Resolver) WithClock(now func() time.Time) *Resolver {
	r.now = now
	return r
}

// Resolve returns the candidate slots for providerID on date's calendar day,
// each exactly slotDuration long, in chronological order. Candidates that end
// at or before "now" are discarded. Overlapping rules can generate the same
// candidate twice; duplicates are collapsed by interval equality. An unknown
// provider yields an empty result, not an error.
func (r *Resolver) Resolve(ctx context.Context, providerID string, date time.Time, slotDuration time.Duration) ([]interval.Interval, error) {
	if slotDuration <= 0 {
		return nil, fmt.Errorf("%w: slot duration must be positive", model.ErrInvalidArgument)
	}

	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	rules, err := r.rules.ListRules(ctx, providerID, day.Weekday())
	if err != nil {
		return nil, err
	}

	now := r.now().UTC()
	seen := make(map[int64]struct{})
	var candidates []interval.Interval
	for _, rule := range rules {
		windowEnd := day.Add(time.Duration(rule.EndMinute) * time.Minute)
		cursor := day.Add(time.Duration(rule.StartMinute) * time.Minute)
		for !cursor.Add(slotDuration).After(windowEnd) {
			end := cursor.Add(slotDuration)
			if end.After(now) {
				if _, dup := seen[cursor.UnixNano()]; !dup {
					seen[cursor.UnixNano()] = struct{}{}
					candidates = append(candidates, interval.Interval{Start: cursor, End: end})
				}
			}
			cursor = end
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Start.Before(candidates[j].Start)
	})
	return candidates, nil
}

// FilterFree returns the candidates that do not overlap any scheduled
// booking. With no bookings it returns all candidates.
func FilterFree(candidates []interval.Interval, bookings []model.Booking) []interval.Interval {
	free := make([]interval.Interval, 0, len(candidates))
	for _, c := range candidates {
		if !HasConflict(c, bookings) {
			free = append(free, c)
		}
	}
	return free
}

// HasConflict reports whether candidate overlaps any scheduled booking.
// Cancelled and completed bookings never block.
func HasConflict(candidate interval.Interval, bookings []model.Booking) bool {
	for _, b := range bookings {
		if b.Status != model.StatusScheduled {
			continue
		}
		if interval.Overlaps(candidate, b.Interval()) {
			return true
		}
	}
	return false
}
