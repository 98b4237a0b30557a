package model

import (
	"time"

	"github.com/Nuthana-am/careslot/services/booking-service/internal/interval"
)

const (
	RoleProvider  = "provider"
	RoleRequester = "requester"
)

const (
	StatusScheduled = "scheduled"
	StatusCancelled = "cancelled"
	StatusCompleted = "completed"
)

type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         string
	Specialty    string
	Bio          string
	Phone        string
	CreatedAt    time.Time
}

// AvailabilityRule is a recurring weekly window during which a provider
// accepts bookings. Start and end are minutes from midnight UTC.
type AvailabilityRule struct {
	ID          int64
	ProviderID  string
	Weekday     time.Weekday
	StartMinute int
	EndMinute   int
}

type Booking struct {
	ID           string
	ProviderID   string
	RequesterID  string
	StartAt      time.Time
	EndAt        time.Time
	Status       string
	Note         string
	ReminderSent bool
	CancelledAt  *time.Time
	CreatedAt    time.Time
}

func (b Booking) Interval() interval.Interval {
	return interval.Interval{Start: b.StartAt, End: b.EndAt}
}
