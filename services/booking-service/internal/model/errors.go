package model

import "errors"

// Engine error kinds. Callers classify with errors.Is; handlers map them to
// HTTP status codes.
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNotFound        = errors.New("not found")
	ErrForbidden       = errors.New("forbidden")
	ErrSlotUnavailable = errors.New("slot unavailable")
	ErrInvalidState    = errors.New("invalid state")
	ErrStorageFailure  = errors.New("storage failure")
)
