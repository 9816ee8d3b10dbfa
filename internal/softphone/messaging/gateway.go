// Package messaging provides stateless request/response operations against
// the telephony backend: send one message, list recent calls, list recent
// messages. Each operation is a single round trip; nothing is cached.
package messaging

import (
	"context"

	v1 "github.com/sebas/dialdesk/api/types/v1"
	"github.com/sebas/dialdesk/internal/backend"
)

// Gateway performs messaging and history operations. Credentials are
// supplied per call and validated before any network attempt; a missing
// field is rejected with *backend.ValidationError, never defaulted.
type Gateway struct {
	api backend.API
}

// NewGateway creates a gateway over the given backend API.
func NewGateway(api backend.API) *Gateway {
	return &Gateway{api: api}
}

// SendMessage submits one outbound message from the credential's number.
func (g *Gateway) SendMessage(ctx context.Context, to, body string, creds backend.Credentials) (*v1.MessageRecord, error) {
	if to == "" {
		return nil, &backend.ValidationError{Field: "to"}
	}
	if body == "" {
		return nil, &backend.ValidationError{Field: "body"}
	}
	if f := creds.MissingField(); f != "" {
		return nil, &backend.ValidationError{Field: f}
	}

	rec, err := g.api.CreateMessage(ctx, creds, backend.OutboundMessage{
		To:   to,
		From: creds.PhoneNumber,
		Body: body,
	})
	if err != nil {
		return nil, err
	}
	if rec.Direction == "" {
		rec.Direction = "outbound"
	}
	return rec, nil
}

// ListCalls returns a snapshot of recent calls, most recent first as
// ordered by the backend. No further sorting is applied.
func (g *Gateway) ListCalls(ctx context.Context, creds backend.Credentials, limit int) ([]v1.CallRecord, error) {
	if f := creds.MissingField(); f != "" {
		return nil, &backend.ValidationError{Field: f}
	}
	if limit <= 0 {
		limit = backend.DefaultListLimit
	}
	return g.api.ListCalls(ctx, creds, limit)
}

// ListMessages returns a snapshot of recent messages.
func (g *Gateway) ListMessages(ctx context.Context, creds backend.Credentials, limit int) ([]v1.MessageRecord, error) {
	if f := creds.MissingField(); f != "" {
		return nil, &backend.ValidationError{Field: f}
	}
	if limit <= 0 {
		limit = backend.DefaultListLimit
	}
	return g.api.ListMessages(ctx, creds, limit)
}
