package store

import "errors"

var (
	// ErrNotFound is returned when a referenced record does not exist.
	ErrNotFound = errors.New("store: record not found")
	// ErrConflict is returned when a unique key (email, role name,
	// assignment pair) is already taken.
	ErrConflict = errors.New("store: unique constraint conflict")
	// ErrUnavailable is returned when the backing store cannot be reached.
	ErrUnavailable = errors.New("store: backend unavailable")
)
