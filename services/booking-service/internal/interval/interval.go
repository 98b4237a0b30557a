package interval

import "time"

// Interval is a half-open time range [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

func (iv Interval) Duration() time.Duration {
	return iv.End.Sub(iv.Start)
}

// Overlaps reports whether a and b share any instant. Touching intervals
// (end of one equals start of the other) and zero-length intervals do not
// overlap.
func Overlaps(a, b Interval) bool {
	if !a.End.After(a.Start) || !b.End.After(b.Start) {
		return false
	}
	return a.Start.Before(b.End) && b.Start.Before(a.End)
}

// Contains reports whether inner lies entirely within outer.
func Contains(outer, inner Interval) bool {
	return !inner.Start.Before(outer.Start) && !inner.End.After(outer.End)
}
