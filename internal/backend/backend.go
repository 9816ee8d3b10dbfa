// Package backend defines the boundary to the external telephony platform.
//
// The platform is an opaque collaborator: this package owns the request and
// event shapes the rest of the repository consumes, and provides HTTP and
// WebSocket implementations against the vendor surface. Everything above it
// (token, device, call, messaging) depends only on the interfaces declared
// here so tests can substitute stubs.
package backend

import (
	"context"

	v1 "github.com/sebas/dialdesk/api/types/v1"
)

// Credentials identifies an account against the telephony backend.
// Held only in process memory and never logged.
type Credentials struct {
	AccountSID  string
	AuthToken   string
	PhoneNumber string
}

// MissingField returns the name of the first absent credential field,
// or "" if the credentials are complete.
func (c Credentials) MissingField() string {
	switch {
	case c.AccountSID == "":
		return "account_sid"
	case c.AuthToken == "":
		return "auth_token"
	case c.PhoneNumber == "":
		return "phone_number"
	}
	return ""
}

// OutboundMessage is a message submission to the backend.
type OutboundMessage struct {
	To   string
	From string
	Body string
}

// API is the request/response surface of the telephony backend.
// Each call is a single round trip; no state is retained between calls.
type API interface {
	// CreateMessage submits one outbound message.
	CreateMessage(ctx context.Context, creds Credentials, msg OutboundMessage) (*v1.MessageRecord, error)

	// ListMessages returns up to limit recent messages, most recent first
	// as ordered by the backend.
	ListMessages(ctx context.Context, creds Credentials, limit int) ([]v1.MessageRecord, error)

	// ListCalls returns up to limit recent calls.
	ListCalls(ctx context.Context, creds Credentials, limit int) ([]v1.CallRecord, error)
}

// TokenGrant is an access credential issued by the token service.
type TokenGrant struct {
	Token    string
	Identity string
}

// TokenIssuer obtains a short-lived access credential for opening a
// realtime session.
type TokenIssuer interface {
	IssueToken(ctx context.Context, creds Credentials) (*TokenGrant, error)
}

// EventType identifies a realtime event raised by the backend.
type EventType string

const (
	// EventReady signals the realtime channel is registered and usable.
	EventReady EventType = "ready"
	// EventError signals a backend-reported failure on the channel or call.
	EventError EventType = "error"
	// EventIncoming announces an inbound call offered to this session.
	EventIncoming EventType = "incoming"
	// EventRinging signals the remote party is being alerted.
	EventRinging EventType = "ringing"
	// EventAccept signals the call was answered end to end.
	EventAccept EventType = "accept"
	// EventCancel signals the caller abandoned an inbound call before answer.
	EventCancel EventType = "cancel"
	// EventDisconnect signals the active call ended.
	EventDisconnect EventType = "disconnect"
)

// Event is one realtime notification from the backend. Events are
// delivered in the order the backend raised them, without deduplication.
type Event struct {
	Type   EventType `json:"type"`
	CallID string    `json:"call_id,omitempty"`
	From   string    `json:"from,omitempty"`
	To     string    `json:"to,omitempty"`
	Code   int       `json:"code,omitempty"`
	Detail string    `json:"detail,omitempty"`
}

// FrameType identifies a client request on the realtime channel.
type FrameType string

const (
	FrameDial   FrameType = "dial"
	FrameAnswer FrameType = "answer"
	FrameReject FrameType = "reject"
	FrameHangup FrameType = "hangup"
)

// Frame is one client request sent over the realtime channel.
type Frame struct {
	Type   FrameType `json:"type"`
	CallID string    `json:"call_id,omitempty"`
	To     string    `json:"to,omitempty"`
	From   string    `json:"from,omitempty"`
}

// Channel is one open realtime session with the backend. Events arrive in
// order on Events; the channel closes it when the connection drops.
type Channel interface {
	// Events returns the ordered event stream. The channel is closed when
	// the underlying connection terminates.
	Events() <-chan Event

	// Send submits one frame to the backend.
	Send(ctx context.Context, f Frame) error

	// Close tears down the connection. Safe to call multiple times.
	Close() error
}

// Dialer opens realtime channels. The access token is consumed here,
// exactly once per channel.
type Dialer interface {
	OpenChannel(ctx context.Context, token string) (Channel, error)
}
