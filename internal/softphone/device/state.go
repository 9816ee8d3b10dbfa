package device

import "fmt"

// State represents the lifecycle state of a session device.
type State int

const (
	// StateUninitialized is the initial state before Initialize.
	StateUninitialized State = iota
	// StateReady means the backend confirmed registration.
	StateReady
	// StateFailed means initialization failed or the channel errored.
	StateFailed
	// StateDestroyed is the final state; all operations are rejected.
	StateDestroyed
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "Uninitialized"
	case StateReady:
		return "Ready"
	case StateFailed:
		return "Failed"
	case StateDestroyed:
		return "Destroyed"
	default:
		return fmt.Sprintf("Unknown(%d)", s)
	}
}

// IsTerminal returns true if no further operations are valid.
func (s State) IsTerminal() bool {
	return s == StateDestroyed
}
