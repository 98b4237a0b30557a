package storage

import (
	"context"
	"time"

	"github.com/Nuthana-am/careslot/libs/db"
	"github.com/Nuthana-am/careslot/services/booking-service/internal/model"
	"github.com/Nuthana-am/careslot/services/booking-service/internal/outbox"
)

// BookingRepository persists appointments. Overlap rejection is enforced by
// the appointments_no_overlap exclusion constraint, so two concurrent inserts
// for the same slot cannot both commit.
type BookingRepository struct {
	pool   *db.Pool
	outbox *outbox.Repository
}

func NewBookingRepository(pool *db.Pool, out *outbox.Repository) *BookingRepository {
	return &BookingRepository{pool: pool, outbox: out}
}

const bookingColumns = `id::text, provider_id::text, requester_id::text, start_at, end_at, status, note, reminder_sent, cancelled_at, created_at`

func (r *BookingRepository) InsertScheduled(ctx context.Context, b *model.Booking, events []outbox.Event) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return mapError(err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	err = tx.QueryRow(ctx, `
		INSERT INTO appointments (id, provider_id, requester_id, start_at, end_at, status, note)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`, b.ID, b.ProviderID, b.RequesterID, b.StartAt, b.EndAt, b.Status, b.Note).Scan(&b.CreatedAt)
	if err != nil {
		return mapError(err)
	}
	for _, evt := range events {
		if err := r.outbox.Insert(ctx, tx, evt); err != nil {
			return mapError(err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return mapError(err)
	}
	return nil
}

func (r *BookingRepository) GetBooking(ctx context.Context, id string) (model.Booking, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+bookingColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanBooking(row)
}

func (r *BookingRepository) ListScheduled(ctx context.Context, providerID string, from, to time.Time) ([]model.Booking, error) {
	return r.list(ctx, `
		SELECT `+bookingColumns+`
		FROM appointments
		WHERE provider_id = $1 AND status = 'scheduled' AND start_at < $3 AND end_at > $2
		ORDER BY start_at
	`, providerID, from, to)
}

// ListByUser returns a party's bookings, newest first. Providers see bookings
// they host, requesters the ones they made.
func (r *BookingRepository) ListByUser(ctx context.Context, userID, role string) ([]model.Booking, error) {
	column := "requester_id"
	if role == model.RoleProvider {
		column = "provider_id"
	}
	return r.list(ctx, `
		SELECT `+bookingColumns+`
		FROM appointments
		WHERE `+column+` = $1
		ORDER BY start_at DESC
	`, userID)
}

func (r *BookingRepository) CancelScheduled(ctx context.Context, id string, at time.Time, events []outbox.Event) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return mapError(err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `
		UPDATE appointments
		SET status = 'cancelled', cancelled_at = $2
		WHERE id = $1 AND status = 'scheduled'
	`, id, at)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		// Distinguish a missing booking from one already past scheduled.
		var status string
		err := tx.QueryRow(ctx, `SELECT status FROM appointments WHERE id = $1`, id).Scan(&status)
		if err != nil {
			return mapError(err)
		}
		return model.ErrInvalidState
	}
	for _, evt := range events {
		if err := r.outbox.Insert(ctx, tx, evt); err != nil {
			return mapError(err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return mapError(err)
	}
	return nil
}

func (r *BookingRepository) SelectDue(ctx context.Context, now time.Time, window time.Duration) ([]model.Booking, error) {
	return r.list(ctx, `
		SELECT `+bookingColumns+`
		FROM appointments
		WHERE status = 'scheduled' AND reminder_sent = false AND start_at >= $1 AND start_at <= $2
		ORDER BY start_at
	`, now, now.Add(window))
}

func (r *BookingRepository) MarkReminded(ctx context.Context, bookingID string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE appointments
		SET reminder_sent = true
		WHERE id = $1
	`, bookingID)
	if err != nil {
		return mapError(err)
	}
	return nil
}

func (r *BookingRepository) list(ctx context.Context, query string, args ...any) ([]model.Booking, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var out []model.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	if rows.Err() != nil {
		return nil, mapError(rows.Err())
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner) (model.Booking, error) {
	var b model.Booking
	err := row.Scan(&b.ID, &b.ProviderID, &b.RequesterID, &b.StartAt, &b.EndAt, &b.Status, &b.Note, &b.ReminderSent, &b.CancelledAt, &b.CreatedAt)
	if err != nil {
		return model.Booking{}, mapError(err)
	}
	return b, nil
}
