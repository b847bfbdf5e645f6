package repository

import "errors"

var (
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a unique constraint is violated.
	ErrConflict = errors.New("conflict")
	// ErrStale indicates optimistic lock failure on update.
	ErrStale = errors.New("stale value")
)
