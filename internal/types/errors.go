package types

import (
	"errors"
	"fmt"
)

// ErrInvalidInput is returned when a caller supplies a request, round budget
// or turn field outside its documented bounds. No Session is produced.
var ErrInvalidInput = errors.New("invalid input")

// ErrInvariantViolation marks a programming fault: an operation would have
// broken turn sequencing, the round budget cap or the completed/in-progress
// field pairing. Callers must not treat it as recoverable.
var ErrInvariantViolation = errors.New("invariant violation")

func invalidInput(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

func invariantViolation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvariantViolation, fmt.Sprintf(format, args...))
}

// ErrNotFound is returned by session stores when no session has the given id.
var ErrNotFound = errors.New("session not found")
