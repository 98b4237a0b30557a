package outbox

// Event is the domain event envelope written to the outbox table.
// The Kafka topic name equals EventType (one event kind per topic).
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// Topics emitted by booking-service.
const (
	EventAppointmentBooked    = "booking.appointment.booked.v1"
	EventAppointmentCancelled = "booking.appointment.cancelled.v1"
	EventReminderDue          = "booking.reminder.due.v1"
)
