package repository

import "errors"

var (
	// ErrNotFound is returned when a lookup matches no row, including an
	// invite whose token has expired or was already consumed.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when an insert collides with an existing row.
	ErrDuplicate = errors.New("record already exists")
)
