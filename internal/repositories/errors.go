package repositories

import "errors"

var (
	// ErrNotFound is wrapped by every repository lookup that matches no row.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is wrapped when a write collides with a row owned by something else.
	ErrConflict = errors.New("record conflict")
)
