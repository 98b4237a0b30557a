// Package dispatch turns booking events into the emails each party should
// receive.
package dispatch

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Topics consumed from booking-service.
const (
	EventAppointmentBooked    = "booking.appointment.booked.v1"
	EventAppointmentCancelled = "booking.appointment.cancelled.v1"
	EventReminderDue          = "booking.reminder.due.v1"
)

type Mail struct {
	To      string
	Subject string
	Body    string
}

type appointmentPayload struct {
	AppointmentID  string `json:"appointment_id"`
	ProviderName   string `json:"provider_name"`
	ProviderEmail  string `json:"provider_email"`
	RequesterName  string `json:"requester_name"`
	RequesterEmail string `json:"requester_email"`
	RecipientName  string `json:"recipient_name"`
	RecipientEmail string `json:"recipient_email"`
	StartAt        string `json:"start_at"`
	EndAt          string `json:"end_at"`
	Note           string `json:"note"`
	CancelledAt    string `json:"cancelled_at"`
}

// MailsFor builds the emails for one event. Booked and cancelled events fan
// out to both parties; a reminder event targets a single recipient, the
// booking side having already emitted one event per party.
func MailsFor(eventType string, payload []byte) (string, []Mail, error) {
	var p appointmentPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return "", nil, fmt.Errorf("invalid event payload: %w", err)
	}
	if p.AppointmentID == "" {
		return "", nil, fmt.Errorf("missing appointment_id")
	}
	when := formatWindow(p.StartAt, p.EndAt)

	switch eventType {
	case EventAppointmentBooked:
		if p.ProviderEmail == "" || p.RequesterEmail == "" {
			return "", nil, fmt.Errorf("missing party emails")
		}
		subject := "Appointment confirmed"
		body := func(name, counterpart string) string {
			b := fmt.Sprintf("Hi %s,\r\n\r\nYour appointment with %s is confirmed for %s.", name, counterpart, when)
			if strings.TrimSpace(p.Note) != "" {
				b += "\r\n\r\nNote: " + p.Note
			}
			return b
		}
		return p.AppointmentID, []Mail{
			{To: p.ProviderEmail, Subject: subject, Body: body(p.ProviderName, p.RequesterName)},
			{To: p.RequesterEmail, Subject: subject, Body: body(p.RequesterName, p.ProviderName)},
		}, nil

	case EventAppointmentCancelled:
		if p.ProviderEmail == "" || p.RequesterEmail == "" {
			return "", nil, fmt.Errorf("missing party emails")
		}
		subject := "Appointment cancelled"
		body := func(name, counterpart string) string {
			return fmt.Sprintf("Hi %s,\r\n\r\nYour appointment with %s for %s has been cancelled.", name, counterpart, when)
		}
		return p.AppointmentID, []Mail{
			{To: p.ProviderEmail, Subject: subject, Body: body(p.ProviderName, p.RequesterName)},
			{To: p.RequesterEmail, Subject: subject, Body: body(p.RequesterName, p.ProviderName)},
		}, nil

	case EventReminderDue:
		if p.RecipientEmail == "" {
			return "", nil, fmt.Errorf("missing recipient_email")
		}
		subject := "Appointment reminder"
		body := fmt.Sprintf("Hi %s,\r\n\r\nReminder: appointment between %s and %s at %s.", p.RecipientName, p.ProviderName, p.RequesterName, when)
		if strings.TrimSpace(p.Note) != "" {
			body += "\r\n\r\nNote: " + p.Note
		}
		return p.AppointmentID, []Mail{
			{To: p.RecipientEmail, Subject: subject, Body: body},
		}, nil

	default:
		return "", nil, fmt.Errorf("unsupported event type: %s", eventType)
	}
}

func formatWindow(startAt, endAt string) string {
	start, err := time.Parse(time.RFC3339, startAt)
	if err != nil {
		return startAt
	}
	end, err := time.Parse(time.RFC3339, endAt)
	if err != nil {
		return start.Format("Mon, 2 Jan 2006 15:04 MST")
	}
	return fmt.Sprintf("%s until %s",
		start.Format("Mon, 2 Jan 2006 15:04"),
		end.Format("15:04 MST"),
	)
}
