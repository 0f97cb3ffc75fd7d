package errors

import "errors"

var (
	ErrNotFound = errors.New("reservation not found")

	ErrInvalidID = errors.New("invalid reservation ID format")

	// ErrOverlap is returned by a repository whose storage rejected the write
	// because the interval overlaps an existing reservation.
	ErrOverlap = errors.New("reservation interval overlaps an existing reservation")
)
