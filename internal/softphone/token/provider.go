// Package token obtains access credentials for opening realtime sessions.
package token

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/sebas/dialdesk/internal/backend"
)

// DefaultTTL is the validity window assumed for issued tokens.
const DefaultTTL = time.Hour

// Source identifies where an access token came from.
type Source string

const (
	// SourceRemote means the token was issued by the token service.
	SourceRemote Source = "remote"
	// SourceLocalFallback means the token was synthesized locally after a
	// transport failure. Not trustworthy outside demo and test use.
	SourceLocalFallback Source = "local-fallback"
)

// AccessToken is a short-lived credential for opening one session.
// It is consumed exactly once at session open and never renewed
// automatically; on expiry the caller re-initializes.
type AccessToken struct {
	Value    string
	Identity string
	IssuedAt time.Time
	TTL      time.Duration
	Source   Source
}

// Trusted reports whether the token came from the token service.
// Locally synthesized fallback tokens must be refused for production use.
func (t *AccessToken) Trusted() bool {
	return t.Source == SourceRemote
}

// AuthError means the backend rejected the supplied credentials.
type AuthError struct {
	Detail string
}

// Error returns the error message.
func (e *AuthError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("credentials rejected: %s", e.Detail)
	}
	return "credentials rejected"
}

// Provider fetches access tokens from a remote issuer, falling back to a
// locally synthesized grant when the issuer is unreachable. One attempt per
// call; callers wanting retries implement them above this layer.
type Provider struct {
	issuer backend.TokenIssuer
	now    func() time.Time
}

// NewProvider creates a token provider backed by the given issuer.
func NewProvider(issuer backend.TokenIssuer) *Provider {
	return &Provider{
		issuer: issuer,
		now:    time.Now,
	}
}

// Token obtains one access token for creds.
//
// A backend credential rejection surfaces as *AuthError. A transport
// failure triggers the local fallback grant, flagged SourceLocalFallback
// so downstream components can refuse it. Any other backend failure is
// surfaced as-is.
func (p *Provider) Token(ctx context.Context, creds backend.Credentials) (*AccessToken, error) {
	switch {
	case creds.AccountSID == "":
		return nil, &backend.ValidationError{Field: "account_sid"}
	case creds.AuthToken == "":
		return nil, &backend.ValidationError{Field: "auth_token"}
	}

	grant, err := p.issuer.IssueToken(ctx, creds)
	if err != nil {
		var be *backend.Error
		if errors.As(err, &be) && be.IsAuth() {
			return nil, &AuthError{Detail: be.Detail}
		}
		var ne *backend.NetworkError
		if errors.As(err, &ne) {
			slog.Warn("Token service unreachable, using local fallback grant",
				"error", err)
			return p.localToken(creds), nil
		}
		return nil, err
	}

	return &AccessToken{
		Value:    grant.Token,
		Identity: grant.Identity,
		IssuedAt: p.now(),
		TTL:      DefaultTTL,
		Source:   SourceRemote,
	}, nil
}

// localToken synthesizes an unsigned grant payload. The shape mirrors what
// the token service issues, minus the signature, so demo sessions can still
// register against permissive backends.
func (p *Provider) localToken(creds backend.Credentials) *AccessToken {
	now := p.now()
	identity := "user_" + uuid.NewString()[:8]

	payload := map[string]any{
		"iss": creds.AccountSID,
		"sub": creds.AccountSID,
		"exp": now.Add(DefaultTTL).Unix(),
		"grants": map[string]any{
			"identity": identity,
			"voice": map[string]any{
				"incoming": map[string]any{"allow": true},
			},
		},
	}

	raw, _ := json.Marshal(payload)
	return &AccessToken{
		Value:    base64.RawURLEncoding.EncodeToString(raw),
		Identity: identity,
		IssuedAt: now,
		TTL:      DefaultTTL,
		Source:   SourceLocalFallback,
	}
}
