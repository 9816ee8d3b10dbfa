// Package softphone coordinates one softphone session: token acquisition,
// the session device, the call state machine, and the messaging operations,
// for a single credential set.
package softphone

import (
	"context"
	"errors"
	"sync"

	v1 "github.com/sebas/dialdesk/api/types/v1"
	"github.com/sebas/dialdesk/internal/backend"
	"github.com/sebas/dialdesk/internal/softphone/call"
	"github.com/sebas/dialdesk/internal/softphone/device"
	"github.com/sebas/dialdesk/internal/softphone/history"
	"github.com/sebas/dialdesk/internal/softphone/messaging"
	"github.com/sebas/dialdesk/internal/softphone/token"
)

// ErrNotInitialized indicates a call operation before Initialize.
var ErrNotInitialized = errors.New("softphone not initialized")

// ErrAlreadyInitialized indicates a second Initialize on a client that
// already owns a device. A client is single-use; after Destroy, create a
// new one.
var ErrAlreadyInitialized = errors.New("softphone already initialized")

// ErrUntrustedToken indicates session open was refused because only a
// local fallback token was available and fallback is not allowed.
var ErrUntrustedToken = errors.New("refusing local fallback token")

// Client is one softphone session. It owns its device and controller
// exclusively; nothing else mutates the call state.
type Client struct {
	creds    backend.Credentials
	provider *token.Provider
	dialer   backend.Dialer
	gw       *messaging.Gateway
	hist     *history.Aggregator

	allowFallback bool
	deviceOpts    []device.Option

	mu           sync.Mutex
	initializing bool
	dev          *device.Device
	ctrl         *call.Controller
	tok          *token.AccessToken
}

// Option configures client creation.
type Option func(*Client)

// WithAllowFallbackToken permits sessions opened with locally synthesized
// tokens. Intended for demo and test use only.
func WithAllowFallbackToken(allow bool) Option {
	return func(c *Client) {
		c.allowFallback = allow
	}
}

// WithDeviceOptions passes options through to the session device.
func WithDeviceOptions(opts ...device.Option) Option {
	return func(c *Client) {
		c.deviceOpts = opts
	}
}

// New creates a client for creds over the given backend collaborators.
func New(creds backend.Credentials, api backend.API, issuer backend.TokenIssuer, dialer backend.Dialer, opts ...Option) *Client {
	gw := messaging.NewGateway(api)
	c := &Client{
		creds:    creds,
		provider: token.NewProvider(issuer),
		dialer:   dialer,
		gw:       gw,
		hist:     history.NewAggregator(gw, creds, backend.DefaultListLimit),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Initialize obtains an access token, opens the session device, and starts
// merging device events into the call state machine. Blocks until the
// backend confirms readiness or the device's timeout bound elapses.
//
// A client owns at most one device for its lifetime; a second Initialize
// fails with ErrAlreadyInitialized. A failed Initialize may be retried.
func (c *Client) Initialize(ctx context.Context) error {
	c.mu.Lock()
	if c.dev != nil || c.initializing {
		c.mu.Unlock()
		return ErrAlreadyInitialized
	}
	c.initializing = true
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.initializing = false
		c.mu.Unlock()
	}()

	tok, err := c.provider.Token(ctx, c.creds)
	if err != nil {
		return err
	}
	if !tok.Trusted() && !c.allowFallback {
		return ErrUntrustedToken
	}

	dev := device.New(c.dialer, c.deviceOpts...)
	if err := dev.Initialize(ctx, tok); err != nil {
		return err
	}

	ctrl := call.NewController(dev, c.creds.PhoneNumber)

	c.mu.Lock()
	c.dev = dev
	c.ctrl = ctrl
	c.tok = tok
	c.mu.Unlock()

	go func() {
		for ev := range dev.Events() {
			ctrl.HandleEvent(ev)
		}
	}()
	return nil
}

// Ready reports whether the session device is usable.
func (c *Client) Ready() bool {
	c.mu.Lock()
	dev := c.dev
	c.mu.Unlock()
	return dev != nil && dev.State() == device.StateReady
}

// TokenSource reports where the session's access token came from, or ""
// before Initialize.
func (c *Client) TokenSource() token.Source {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tok == nil {
		return ""
	}
	return c.tok.Source
}

func (c *Client) controller() (*call.Controller, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ctrl == nil {
		return nil, ErrNotInitialized
	}
	return c.ctrl, nil
}

// Call places an outbound call to number.
func (c *Client) Call(ctx context.Context, number string) error {
	ctrl, err := c.controller()
	if err != nil {
		return err
	}
	return ctrl.Call(ctx, number)
}

// Answer accepts the ringing inbound call.
func (c *Client) Answer(ctx context.Context) error {
	ctrl, err := c.controller()
	if err != nil {
		return err
	}
	return ctrl.Answer(ctx)
}

// Reject declines the ringing inbound call.
func (c *Client) Reject(ctx context.Context) error {
	ctrl, err := c.controller()
	if err != nil {
		return err
	}
	return ctrl.Reject(ctx)
}

// Hangup terminates the in-progress call.
func (c *Client) Hangup(ctx context.Context) error {
	ctrl, err := c.controller()
	if err != nil {
		return err
	}
	return ctrl.Hangup(ctx)
}

// Reset acknowledges a terminal call state and returns to Idle.
func (c *Client) Reset() error {
	ctrl, err := c.controller()
	if err != nil {
		return err
	}
	return ctrl.Reset()
}

// CallState returns the current call state, StateIdle before Initialize.
func (c *Client) CallState() call.State {
	ctrl, err := c.controller()
	if err != nil {
		return call.StateIdle
	}
	return ctrl.State()
}

// OnStateChange registers an observer on the call state machine.
// Returns a function to unregister. Must be called after Initialize.
func (c *Client) OnStateChange(fn call.Observer) (func(), error) {
	ctrl, err := c.controller()
	if err != nil {
		return nil, err
	}
	return ctrl.OnStateChange(fn), nil
}

// OnIncoming registers a convenience observer fired when an inbound call
// starts ringing, with the caller's number.
func (c *Client) OnIncoming(fn func(number string)) (func(), error) {
	return c.OnStateChange(func(old, new call.State, active *call.ActiveCall) {
		if new == call.StateRinging && active != nil && active.Direction == call.DirectionInbound {
			fn(active.Number)
		}
	})
}

// SendMessage sends one message from this session's number.
func (c *Client) SendMessage(ctx context.Context, to, body string) (*v1.MessageRecord, error) {
	return c.gw.SendMessage(ctx, to, body, c.creds)
}

// History loads the consolidated call and message history. Sub-fetch
// failures are reported per source in the result.
func (c *Client) History(ctx context.Context) history.Result {
	return c.hist.Load(ctx)
}

// Destroy tears down the session device. Idempotent; safe before
// Initialize and safe to call multiple times.
func (c *Client) Destroy() {
	c.mu.Lock()
	dev := c.dev
	c.mu.Unlock()
	if dev != nil {
		dev.Destroy()
	}
}
