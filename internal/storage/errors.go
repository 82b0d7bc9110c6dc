package storage

import "errors"

// Storage errors shared by every document backend.
var (
	// ErrNotFound is returned when no document exists for a symbol.
	ErrNotFound = errors.New("not found")

	// ErrCorruptDocument is returned when a stored document cannot be decoded
	// or fails validation. Readers treat it as ErrNotFound.
	ErrCorruptDocument = errors.New("corrupt document")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")
)

// IsAbsent reports whether err means the document is unusable for reading:
// either missing or corrupt.
func IsAbsent(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrCorruptDocument)
}
