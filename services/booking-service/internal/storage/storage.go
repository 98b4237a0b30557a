package storage

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Nuthana-am/careslot/services/booking-service/internal/model"
)

// Postgres error codes the repositories care about.
const (
	codeExclusionViolation = "23P01"
	codeUniqueViolation    = "23505"
)

func isPgCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}

// mapError translates driver errors into the engine's error kinds. Anything
// unrecognized becomes an opaque storage failure.
func mapError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, pgx.ErrNoRows):
		return fmt.Errorf("%w: no rows", model.ErrNotFound)
	case isPgCode(err, codeExclusionViolation):
		return fmt.Errorf("%w: overlapping booking", model.ErrSlotUnavailable)
	default:
		return fmt.Errorf("%w: %v", model.ErrStorageFailure, err)
	}
}
