// Package call implements the call lifecycle state machine. The Controller
// merges session device events and user actions into one authoritative
// state and notifies observers on every transition.
package call

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/sebas/dialdesk/internal/backend"
	"github.com/sebas/dialdesk/internal/softphone/device"
)

// Transport is the slice of the session device the controller drives.
// All calls are single round trips to the backend; confirmation arrives
// later as events, never as return values.
type Transport interface {
	Connect(ctx context.Context, target, origination string) (*device.CallHandle, error)
	Answer(ctx context.Context) error
	Reject(ctx context.Context) error
	Hangup(ctx context.Context) error
}

// Observer is notified synchronously on every accepted transition with the
// old state, the new state, and the active call (nil when absent).
// Observers run on the transition path and must not block; any backend I/O
// they trigger happens on their own schedule.
type Observer func(old, new State, active *ActiveCall)

// Controller is the call state machine for one session.
//
// All state mutations are serialized behind one mutex, so a transition and
// its observer notifications always run to completion before the next
// event is applied. No two transitions ever execute concurrently.
type Controller struct {
	mu        sync.Mutex
	state     State
	active    *ActiveCall
	transport Transport
	from      string

	observers map[int]Observer
	nextObs   int
	now       func() time.Time
}

// NewController creates an idle controller. Outbound calls present
// origination as the caller number.
func NewController(transport Transport, origination string) *Controller {
	return &Controller{
		state:     StateIdle,
		transport: transport,
		from:      origination,
		observers: make(map[int]Observer),
		now:       time.Now,
	}
}

// State returns the current call state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Active returns a copy of the in-flight call, or nil when absent.
func (c *Controller) Active() *ActiveCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active.clone()
}

// OnStateChange registers an observer for state transitions.
// Returns a function to unregister the observer.
func (c *Controller) OnStateChange(fn Observer) func() {
	c.mu.Lock()
	id := c.nextObs
	c.nextObs++
	c.observers[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.observers, id)
		c.mu.Unlock()
	}
}

// applyLocked commits one transition and notifies observers before
// returning. Callers hold c.mu; the lock is what enforces that a
// transition runs to completion before the next event is processed.
func (c *Controller) applyLocked(next State, active *ActiveCall) {
	old := c.state
	if next.IsTerminal() || next == StateIdle {
		active = nil
	}
	c.state = next
	c.active = active

	slog.Debug("Call state changed", "old", old.String(), "new", next.String())
	for _, fn := range c.observers {
		fn(old, next, active.clone())
	}
}

// --- User actions ---

// Call places an outbound call to number. Valid only from Idle.
// The transition to Connecting is committed and observed before the dial
// request is issued; a dial failure surfaces later and resolves this
// attempt to Failed if it is still the active call.
func (c *Controller) Call(ctx context.Context, number string) error {
	c.mu.Lock()
	if c.state != StateIdle {
		from := c.state
		c.mu.Unlock()
		return &InvalidTransitionError{From: from, Action: "call"}
	}
	attempt := &ActiveCall{
		Direction: DirectionOutbound,
		Number:    number,
		StartedAt: c.now(),
	}
	c.applyLocked(StateConnecting, attempt)
	c.mu.Unlock()

	go func() {
		if _, err := c.transport.Connect(ctx, number, c.from); err != nil {
			c.failAttempt(attempt, err)
		}
	}()
	return nil
}

// failAttempt resolves a transport failure to Failed, unless the call it
// belongs to is no longer the active one. A stale failure surfacing after
// the user reset and started another call never touches the new call.
func (c *Controller) failAttempt(attempt *ActiveCall, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active != attempt {
		slog.Debug("Dropping transport failure for a finished call", "error", err)
		return
	}
	slog.Warn("Call failed", "detail", err.Error())
	c.applyLocked(StateFailed, nil)
}

// Answer accepts the ringing inbound call. Valid only while Ringing, and
// only for inbound calls.
func (c *Controller) Answer(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateRinging {
		from := c.state
		c.mu.Unlock()
		return &InvalidTransitionError{From: from, Action: "answer"}
	}
	if c.active.Direction != DirectionInbound {
		from := c.state
		c.mu.Unlock()
		return &InvalidTransitionError{From: from, Action: "answer", Message: "only inbound calls can be answered"}
	}
	attempt := c.active
	c.applyLocked(StateInProgress, attempt)
	c.mu.Unlock()

	go func() {
		if err := c.transport.Answer(ctx); err != nil {
			c.failAttempt(attempt, err)
		}
	}()
	return nil
}

// Reject declines the ringing inbound call and returns to Idle.
func (c *Controller) Reject(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateRinging {
		from := c.state
		c.mu.Unlock()
		return &InvalidTransitionError{From: from, Action: "reject"}
	}
	if c.active.Direction != DirectionInbound {
		from := c.state
		c.mu.Unlock()
		return &InvalidTransitionError{From: from, Action: "reject", Message: "only inbound calls can be rejected"}
	}
	c.applyLocked(StateIdle, nil)
	c.mu.Unlock()

	go func() {
		if err := c.transport.Reject(ctx); err != nil {
			// Local state already reflects the rejection; the backend
			// outcome is advisory at this point.
			slog.Warn("Reject request failed", "error", err)
		}
	}()
	return nil
}

// Hangup terminates the in-progress call. The transition to Ended takes
// effect immediately; a later backend disconnect for the same call is
// absorbed as a no-op.
func (c *Controller) Hangup(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateInProgress {
		from := c.state
		c.mu.Unlock()
		return &InvalidTransitionError{From: from, Action: "hangup"}
	}
	c.applyLocked(StateEnded, nil)
	c.mu.Unlock()

	go func() {
		if err := c.transport.Hangup(ctx); err != nil {
			slog.Warn("Hangup request failed", "error", err)
		}
	}()
	return nil
}

// Reset returns the controller to Idle after a terminal state has been
// observed. The controller never resets on its own.
func (c *Controller) Reset() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.state.IsTerminal() {
		return &InvalidTransitionError{From: c.state, Action: "reset"}
	}
	c.applyLocked(StateIdle, nil)
	return nil
}

// --- Backend events ---

// HandleEvent applies one session device event. Events are applied in the
// order delivered; events that do not fit the current state are absorbed
// without changing it. When an error event and a user action race, whichever
// acquires the lock first wins; neither is merged or dropped.
func (c *Controller) HandleEvent(ev backend.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch ev.Type {
	case backend.EventIncoming:
		if c.state != StateIdle {
			// Single active call only: a second inbound call is rejected,
			// not queued.
			slog.Warn("Rejecting inbound call, another call is active",
				"from", ev.From, "state", c.state.String())
			return
		}
		c.applyLocked(StateRinging, &ActiveCall{
			Direction: DirectionInbound,
			Number:    ev.From,
			StartedAt: c.now(),
		})

	case backend.EventRinging:
		if c.state == StateConnecting {
			c.applyLocked(StateRinging, c.active)
		}

	case backend.EventAccept:
		if c.state == StateConnecting || c.state == StateRinging {
			c.applyLocked(StateInProgress, c.active)
		}

	case backend.EventCancel:
		// Caller hung up before answer.
		if c.state == StateRinging {
			c.applyLocked(StateEnded, nil)
		}

	case backend.EventDisconnect:
		if c.state == StateInProgress {
			c.applyLocked(StateEnded, nil)
		} else {
			// Already terminated locally; idempotent absorption.
			slog.Debug("Absorbing disconnect in non-active state", "state", c.state.String())
		}

	case backend.EventError:
		if c.state.IsActive() {
			slog.Warn("Call failed", "code", ev.Code, "detail", ev.Detail)
			c.applyLocked(StateFailed, nil)
		}

	case backend.EventReady:
		// Session-level event, no call state impact.
	}
}
