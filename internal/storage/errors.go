package storage

import "errors"

// Storage errors shared by all backends.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when inserting metadata for a mint that
	// is already known. Metadata is immutable once resolved.
	ErrDuplicateKey = errors.New("duplicate key: metadata is immutable once resolved")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")
)
