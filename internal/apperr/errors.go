// Package apperr defines the error taxonomy shared across the engine.
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound indicates the referenced note or backup does not exist.
	ErrNotFound = errors.New("not found")
	// ErrCapacityExceeded indicates the note collection is at its maximum size.
	ErrCapacityExceeded = errors.New("capacity exceeded")
	// ErrInvalidFormat indicates an imported backup failed structural validation.
	ErrInvalidFormat = errors.New("invalid format")
)

// ValidationError carries one or more human-readable field constraint
// violations. No write is attempted when validation fails.
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Messages, "; ")
}

// NewValidation builds a ValidationError from the given messages.
func NewValidation(messages ...string) *ValidationError {
	return &ValidationError{Messages: messages}
}

// StorageRead wraps a failed read from the persistent store.
func StorageRead(key string, err error) error {
	return fmt.Errorf("storage read %s: %w", key, err)
}

// StorageWrite wraps a failed write to the persistent store.
func StorageWrite(key string, err error) error {
	return fmt.Errorf("storage write %s: %w", key, err)
}
