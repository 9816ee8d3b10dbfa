// Package device manages the single logical connection to the telephony
// backend. A Device consumes one access token at Initialize, emits backend
// events in arrival order, and carries at most one call at a time.
package device

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sebas/dialdesk/internal/backend"
	"github.com/sebas/dialdesk/internal/softphone/token"
)

// DefaultInitTimeout bounds the wait for the backend readiness signal.
const DefaultInitTimeout = 10 * time.Second

// CallHandle identifies one requested outbound call.
type CallHandle struct {
	ID   string
	To   string
	From string
}

// Device owns exactly one backend connection. It is created Uninitialized,
// becomes Ready after the backend confirms registration, and is explicitly
// Destroyed. There is no implicit shared instance; each Device is owned by
// one coordinator.
type Device struct {
	mu          sync.Mutex
	state       State
	initStarted bool
	dialer      backend.Dialer
	ch          backend.Channel
	callID      string

	events      chan backend.Event
	initTimeout time.Duration
	destroyOnce sync.Once
	pumping     bool
}

// Option configures device creation.
type Option func(*Device)

// WithInitTimeout overrides the readiness wait bound.
func WithInitTimeout(d time.Duration) Option {
	return func(dev *Device) {
		dev.initTimeout = d
	}
}

// New creates an uninitialized device over the given dialer.
func New(dialer backend.Dialer, opts ...Option) *Device {
	d := &Device{
		state:       StateUninitialized,
		dialer:      dialer,
		events:      make(chan backend.Event, 16),
		initTimeout: DefaultInitTimeout,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// State returns the current device state.
func (d *Device) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Events returns the ordered backend event stream. Closed when the device
// is destroyed or the underlying channel drops.
func (d *Device) Events() <-chan backend.Event {
	return d.events
}

// Initialize opens the backend connection and blocks until the backend
// signals readiness, the timeout bound elapses (ErrInitializationTimeout),
// or the backend reports an explicit error (*DeviceError).
//
// Calling Initialize twice without an intervening Destroy is a programming
// error and fails with ErrIllegalState.
func (d *Device) Initialize(ctx context.Context, tok *token.AccessToken) error {
	d.mu.Lock()
	switch {
	case d.state == StateDestroyed:
		d.mu.Unlock()
		return ErrDestroyed
	case d.initStarted:
		d.mu.Unlock()
		return ErrIllegalState
	}
	d.initStarted = true
	d.mu.Unlock()

	initCtx, cancel := context.WithTimeout(ctx, d.initTimeout)
	defer cancel()

	ch, err := d.dialer.OpenChannel(initCtx, tok.Value)
	if err != nil {
		d.fail()
		if initCtx.Err() != nil && errors.Is(initCtx.Err(), context.DeadlineExceeded) {
			return ErrInitializationTimeout
		}
		return &DeviceError{Op: "initialize", Cause: err}
	}

	// The first event decides readiness. A timeout here is a failure,
	// not a fallback.
	select {
	case ev, ok := <-ch.Events():
		if !ok {
			d.fail()
			_ = ch.Close()
			return &DeviceError{Op: "initialize", Detail: "channel closed before ready"}
		}
		switch ev.Type {
		case backend.EventReady:
			// fall through to Ready below
		case backend.EventError:
			d.fail()
			_ = ch.Close()
			return &DeviceError{Op: "initialize", Code: ev.Code, Detail: ev.Detail}
		default:
			// Anything before ready is a protocol violation from the
			// backend; treat it as an initialization failure.
			d.fail()
			_ = ch.Close()
			return &DeviceError{Op: "initialize", Detail: "unexpected event before ready: " + string(ev.Type)}
		}
	case <-initCtx.Done():
		d.fail()
		_ = ch.Close()
		if errors.Is(initCtx.Err(), context.DeadlineExceeded) {
			return ErrInitializationTimeout
		}
		return initCtx.Err()
	}

	d.mu.Lock()
	if d.state == StateDestroyed {
		// Destroy raced the handshake; honor it.
		d.mu.Unlock()
		_ = ch.Close()
		return ErrDestroyed
	}
	d.state = StateReady
	d.ch = ch
	d.pumping = true
	d.mu.Unlock()

	slog.Info("Device ready", "identity", tok.Identity, "token_source", string(tok.Source))
	go d.pump(ch)
	return nil
}

// pump forwards backend events to subscribers in arrival order, tracking
// the active call handle as it goes. It owns closing the events channel.
func (d *Device) pump(ch backend.Channel) {
	defer close(d.events)
	for ev := range ch.Events() {
		d.mu.Lock()
		switch ev.Type {
		case backend.EventIncoming:
			// A second offer while a call is in flight does not steal the
			// call slot; the controller decides what to do with the event.
			if d.callID == "" {
				d.callID = ev.CallID
			}
		case backend.EventDisconnect, backend.EventCancel:
			if ev.CallID == d.callID {
				d.callID = ""
			}
		case backend.EventError:
			if d.state == StateReady && ev.CallID == "" {
				// Channel-level error, not call-scoped.
				d.state = StateFailed
			}
		}
		d.mu.Unlock()
		d.events <- ev
	}
}

// Connect requests an outbound call to target, presenting origination as
// the caller number. Fails with ErrNotReady unless the device is Ready.
func (d *Device) Connect(ctx context.Context, target, origination string) (*CallHandle, error) {
	d.mu.Lock()
	if d.state != StateReady {
		st := d.state
		d.mu.Unlock()
		if st == StateDestroyed {
			return nil, ErrDestroyed
		}
		return nil, &DeviceError{Op: "connect", Cause: ErrNotReady}
	}
	callID := "call-" + uuid.NewString()
	d.callID = callID
	ch := d.ch
	d.mu.Unlock()

	err := ch.Send(ctx, backend.Frame{
		Type:   backend.FrameDial,
		CallID: callID,
		To:     target,
		From:   origination,
	})
	if err != nil {
		d.mu.Lock()
		if d.callID == callID {
			d.callID = ""
		}
		d.mu.Unlock()
		return nil, &DeviceError{Op: "connect", Cause: err}
	}

	return &CallHandle{ID: callID, To: target, From: origination}, nil
}

// Answer accepts the current inbound call.
func (d *Device) Answer(ctx context.Context) error {
	return d.sendCallFrame(ctx, backend.FrameAnswer)
}

// Reject declines the current inbound call before answer.
func (d *Device) Reject(ctx context.Context) error {
	return d.sendCallFrame(ctx, backend.FrameReject)
}

// Hangup terminates the current call.
func (d *Device) Hangup(ctx context.Context) error {
	return d.sendCallFrame(ctx, backend.FrameHangup)
}

func (d *Device) sendCallFrame(ctx context.Context, ft backend.FrameType) error {
	d.mu.Lock()
	if d.state != StateReady {
		d.mu.Unlock()
		return ErrNotReady
	}
	callID := d.callID
	ch := d.ch
	if callID != "" && (ft == backend.FrameReject || ft == backend.FrameHangup) {
		// Local termination frees the call slot immediately. The backend's
		// cancel or disconnect for this call arrives later and must not be
		// matched against a newer call.
		d.callID = ""
	}
	d.mu.Unlock()

	if callID == "" {
		return ErrNoActiveCall
	}
	return ch.Send(ctx, backend.Frame{Type: ft, CallID: callID})
}

// Destroy disconnects any active call, releases the connection, and
// transitions the device to Destroyed. Idempotent; safe to call multiple
// times, including before Initialize.
func (d *Device) Destroy() {
	d.destroyOnce.Do(func() {
		d.mu.Lock()
		ch := d.ch
		callID := d.callID
		hadPump := d.pumping
		d.state = StateDestroyed
		d.ch = nil
		d.callID = ""
		d.mu.Unlock()

		if ch != nil {
			if callID != "" {
				ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				_ = ch.Send(ctx, backend.Frame{Type: backend.FrameHangup, CallID: callID})
				cancel()
			}
			_ = ch.Close()
		}
		if !hadPump {
			// No pump was started, so the events channel is ours to close.
			close(d.events)
		}
		slog.Debug("Device destroyed")
	})
}

// fail marks the device Failed unless it was already destroyed.
func (d *Device) fail() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state != StateDestroyed {
		d.state = StateFailed
	}
}
