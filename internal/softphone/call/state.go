package call

import (
	"fmt"
	"time"
)

// State represents the lifecycle state of the session's call slot.
// Exactly one State is authoritative at any instant; there is no
// call-waiting or multi-call support.
type State int

const (
	// StateIdle means no call exists.
	StateIdle State = iota
	// StateConnecting means an outbound call has been requested.
	StateConnecting
	// StateRinging means the remote party is being alerted, or an inbound
	// call is awaiting answer or reject.
	StateRinging
	// StateInProgress means the call is established end to end.
	StateInProgress
	// StateEnded is the terminal state after a normal hangup.
	StateEnded
	// StateFailed is the terminal state after a backend error.
	StateFailed
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateConnecting:
		return "Connecting"
	case StateRinging:
		return "Ringing"
	case StateInProgress:
		return "InProgress"
	case StateEnded:
		return "Ended"
	case StateFailed:
		return "Failed"
	default:
		return fmt.Sprintf("Unknown(%d)", s)
	}
}

// IsTerminal returns true for Ended and Failed. Terminal states require an
// explicit Reset back to Idle; the controller never resets on its own.
func (s State) IsTerminal() bool {
	return s == StateEnded || s == StateFailed
}

// IsActive returns true while a call exists. An ActiveCall is present iff
// the state is active.
func (s State) IsActive() bool {
	return s == StateConnecting || s == StateRinging || s == StateInProgress
}

// Direction indicates who initiated the call.
type Direction int

const (
	// DirectionInbound is a call offered to this session.
	DirectionInbound Direction = iota
	// DirectionOutbound is a call placed by this session.
	DirectionOutbound
)

// String returns the string representation of the direction.
func (d Direction) String() string {
	switch d {
	case DirectionInbound:
		return "inbound"
	case DirectionOutbound:
		return "outbound"
	default:
		return "unknown"
	}
}

// ActiveCall describes the in-flight call. It exists only while the state
// is active and is destroyed on transition to Ended or Failed.
type ActiveCall struct {
	Direction Direction
	Number    string
	StartedAt time.Time
}

// clone returns a copy so observers and accessors never share the
// controller's internal value.
func (a *ActiveCall) clone() *ActiveCall {
	if a == nil {
		return nil
	}
	cp := *a
	return &cp
}
