package storage

import (
	"context"

	"github.com/Nuthana-am/careslot/libs/db"
)

type Notification struct {
	AppointmentID string
	EventType     string
	Recipient     string
	Subject       string
	Payload       []byte
	Status        string
}

type Repository struct {
	pool *db.Pool
}

func NewRepository(pool *db.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Insert(ctx context.Context, n Notification) error {
	payload := n.Payload
	if len(payload) == 0 {
		payload = []byte("{}")
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO notifications (appointment_id, event_type, recipient, subject, payload, status)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, n.AppointmentID, n.EventType, n.Recipient, n.Subject, payload, n.Status)
	return err
}
