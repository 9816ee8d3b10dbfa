package call

import (
	"errors"
	"fmt"
)

// ErrInvalidTransition is the sentinel wrapped by InvalidTransitionError.
var ErrInvalidTransition = errors.New("invalid transition")

// InvalidTransitionError indicates a user action attempted from a state
// where it is not valid. The state is left unchanged.
type InvalidTransitionError struct {
	// From is the state the controller was in.
	From State

	// Action is the attempted user action, e.g. "answer".
	Action string

	// Message carries additional context, e.g. a direction restriction.
	Message string
}

// Error returns the error message.
func (e *InvalidTransitionError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("cannot %s while %s: %s", e.Action, e.From, e.Message)
	}
	return fmt.Sprintf("cannot %s while %s", e.Action, e.From)
}

// Unwrap returns ErrInvalidTransition.
func (e *InvalidTransitionError) Unwrap() error {
	return ErrInvalidTransition
}
