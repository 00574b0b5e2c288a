package repository

import "errors"

// Common repository errors
var (
	// ErrNotFound is returned when a record does not exist or is outside the caller's scope
	ErrNotFound = errors.New("record not found")
)
