// Package calendar renders appointments as iCalendar documents so parties
// can import them into their own calendar clients.
package calendar

import (
	"fmt"

	ical "github.com/arran4/golang-ical"

	"github.com/Nuthana-am/careslot/services/booking-service/internal/model"
)

const productID = "-//careslot//booking-service//EN"

// AppointmentICS serializes a single booking as a VCALENDAR with one VEVENT.
// The booking id doubles as the event UID so re-exports update in place.
func AppointmentICS(b model.Booking, provider, requester model.User) string {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)

	evt := cal.AddEvent(b.ID)
	evt.SetStartAt(b.StartAt.UTC())
	evt.SetEndAt(b.EndAt.UTC())
	evt.SetDtStampTime(b.CreatedAt.UTC())
	evt.SetSummary(fmt.Sprintf("Appointment with %s", provider.Name))
	description := fmt.Sprintf("Appointment between %s and %s", provider.Name, requester.Name)
	if b.Note != "" {
		description += "\n" + b.Note
	}
	evt.SetDescription(description)

	switch b.Status {
	case model.StatusCancelled:
		evt.SetStatus(ical.ObjectStatusCancelled)
	default:
		evt.SetStatus(ical.ObjectStatusConfirmed)
	}

	evt.SetOrganizer("mailto:"+provider.Email, ical.WithCN(provider.Name))
	evt.AddAttendee(requester.Email, ical.WithCN(requester.Name), ical.ParticipationStatusAccepted)

	return cal.Serialize()
}
