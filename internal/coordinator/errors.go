package coordinator

import (
	"errors"
	"fmt"
)

// ErrNoActiveSession rejects ingestion when no work session is active.
// Readings outside a session have no home and are dropped, not queued.
var ErrNoActiveSession = errors.New("no active session")

// ValidationError rejects malformed ingestion input. The HTTP layer maps
// it to a 400.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func newValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// StoreUnavailableError reports that a persistent-store operation failed
// or timed out. The HTTP layer maps it to a 503 so devices retry later.
type StoreUnavailableError struct {
	Op  string
	Err error
}

func (e *StoreUnavailableError) Error() string {
	return fmt.Sprintf("store unavailable during %s: %v", e.Op, e.Err)
}

func (e *StoreUnavailableError) Unwrap() error {
	return e.Err
}
