package device

import (
	"errors"
	"fmt"
)

// Sentinel errors for use with errors.Is.
var (
	// ErrIllegalState indicates Initialize was called twice without an
	// intervening Destroy. This is a programming error, never retried.
	ErrIllegalState = errors.New("device already initialized")

	// ErrDestroyed indicates the device has been destroyed.
	ErrDestroyed = errors.New("device destroyed")

	// ErrNotReady indicates an operation requiring the Ready state.
	ErrNotReady = errors.New("device not ready")

	// ErrInitializationTimeout indicates no readiness signal arrived
	// within the bounded wait.
	ErrInitializationTimeout = errors.New("device initialization timeout")

	// ErrNoActiveCall indicates a call operation with no call in flight.
	ErrNoActiveCall = errors.New("no active call")
)

// DeviceError is a failure reported by the backend for a device operation.
type DeviceError struct {
	// Op is the operation that failed, e.g. "initialize".
	Op string

	// Code is the backend error code, if reported.
	Code int

	// Detail is the backend-provided description, verbatim.
	Detail string

	// Cause is the underlying error, if any.
	Cause error
}

// Error returns the error message.
func (e *DeviceError) Error() string {
	switch {
	case e.Detail != "" && e.Code != 0:
		return fmt.Sprintf("device %s: code %d: %s", e.Op, e.Code, e.Detail)
	case e.Detail != "":
		return fmt.Sprintf("device %s: %s", e.Op, e.Detail)
	case e.Cause != nil:
		return fmt.Sprintf("device %s: %v", e.Op, e.Cause)
	}
	return fmt.Sprintf("device %s failed", e.Op)
}

// Unwrap returns the underlying error.
func (e *DeviceError) Unwrap() error {
	return e.Cause
}
