package backend

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for use with errors.Is.
var (
	// ErrChannelClosed indicates the realtime channel has been closed.
	ErrChannelClosed = errors.New("channel closed")
)

// ValidationError rejects bad or missing caller input before any network
// attempt is made.
type ValidationError struct {
	// Field is the missing or malformed field name.
	Field string
}

// Error returns the error message.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("missing required field: %s", e.Field)
}

// Error is a failure reported by the backend itself. Status and Detail
// carry the backend response verbatim for diagnostics.
type Error struct {
	// Op is the operation that failed, e.g. "create message".
	Op string

	// Status is the HTTP status returned by the backend.
	Status int

	// Detail is the backend-provided failure description, verbatim.
	Detail string
}

// Error returns the error message.
func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("backend: %s: status %d: %s", e.Op, e.Status, e.Detail)
	}
	return fmt.Sprintf("backend: %s: status %d", e.Op, e.Status)
}

// IsAuth returns true if the backend rejected the caller's credentials.
func (e *Error) IsAuth() bool {
	return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
}

// NetworkError is a transport-level failure: the backend was never
// reached, or the connection broke before a response arrived.
type NetworkError struct {
	Op  string
	Err error
}

// Error returns the error message.
func (e *NetworkError) Error() string {
	return fmt.Sprintf("backend: %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying transport error.
func (e *NetworkError) Unwrap() error {
	return e.Err
}
