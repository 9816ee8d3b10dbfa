package api

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v1 "github.com/sebas/dialdesk/api/types/v1"
	"github.com/sebas/dialdesk/internal/backend"
	"github.com/sebas/dialdesk/internal/gateway/config"
	"github.com/sebas/dialdesk/internal/softphone/messaging"
)

type fakeAPI struct {
	createErr  error
	messageErr error
	callErr    error
	calls      []v1.CallRecord
	messages   []v1.MessageRecord
}

func (f *fakeAPI) CreateMessage(ctx context.Context, creds backend.Credentials, msg backend.OutboundMessage) (*v1.MessageRecord, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &v1.MessageRecord{
		ID:        "SM900",
		To:        msg.To,
		From:      msg.From,
		Body:      msg.Body,
		Status:    "queued",
		Direction: "outbound",
		CreatedAt: time.Now(),
	}, nil
}

func (f *fakeAPI) ListMessages(ctx context.Context, creds backend.Credentials, limit int) ([]v1.MessageRecord, error) {
	return f.messages, f.messageErr
}

func (f *fakeAPI) ListCalls(ctx context.Context, creds backend.Credentials, limit int) ([]v1.CallRecord, error) {
	return f.calls, f.callErr
}

func newTestServer(t *testing.T, api backend.API, mutate func(*config.Config)) http.Handler {
	t.Helper()
	cfg := &config.Config{
		BindAddr:       "127.0.0.1",
		Port:           0,
		AllowedOrigins: []string{"*"},
		TokenTTL:       time.Hour,
	}
	if mutate != nil {
		mutate(cfg)
	}
	return NewServer(cfg, messaging.NewGateway(api)).Handler()
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func validCreds() v1.CredentialsPayload {
	return v1.CredentialsPayload{
		AccountSID: "AC0000000000000000000000000000test",
		AuthToken:  "secret",
	}
}

func TestHealth(t *testing.T) {
	h := newTestServer(t, &fakeAPI{}, nil)
	rec := doJSON(t, h, http.MethodGet, "/api/v1/health", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp v1.HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
}

func TestCORSPreflight(t *testing.T) {
	h := newTestServer(t, &fakeAPI{}, nil)
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/send-message", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "POST")
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "Content-Type")
}

func TestCORSHeadersOnActualResponse(t *testing.T) {
	h := newTestServer(t, &fakeAPI{}, nil)
	rec := doJSON(t, h, http.MethodGet, "/api/v1/health", nil)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestSendMessageOK(t *testing.T) {
	h := newTestServer(t, &fakeAPI{}, nil)
	rec := doJSON(t, h, http.MethodPost, "/api/v1/send-message", v1.SendMessageRequest{
		To:          "+15551234567",
		From:        "+15550000000",
		Body:        "hello",
		Credentials: validCreds(),
	})

	require.Equal(t, http.StatusOK, rec.Code)
	var resp v1.SendMessageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "SM900", resp.ID)
	assert.Equal(t, "queued", resp.Status)
	assert.Equal(t, "+15551234567", resp.To)
	assert.Equal(t, "+15550000000", resp.From)
}

func TestSendMessageMissingFields(t *testing.T) {
	h := newTestServer(t, &fakeAPI{}, nil)
	tests := []struct {
		name string
		req  v1.SendMessageRequest
	}{
		{"no to", v1.SendMessageRequest{From: "+1555", Body: "hi", Credentials: validCreds()}},
		{"no from", v1.SendMessageRequest{To: "+1555", Body: "hi", Credentials: validCreds()}},
		{"no body", v1.SendMessageRequest{To: "+1555", From: "+1556", Credentials: validCreds()}},
		{"no credentials", v1.SendMessageRequest{To: "+1555", From: "+1556", Body: "hi"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, h, http.MethodPost, "/api/v1/send-message", tt.req)
			require.Equal(t, http.StatusBadRequest, rec.Code)
			var resp v1.ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, "Missing required fields: to, from, body, credentials", resp.Error)
		})
	}
}

func TestSendMessageBackendFailure(t *testing.T) {
	api := &fakeAPI{createErr: &backend.Error{
		Op:     "create message",
		Status: 400,
		Detail: "The 'To' number is not a valid phone number.",
	}}
	h := newTestServer(t, api, nil)
	rec := doJSON(t, h, http.MethodPost, "/api/v1/send-message", v1.SendMessageRequest{
		To:          "+15551234567",
		From:        "+15550000000",
		Body:        "hello",
		Credentials: validCreds(),
	})

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var resp v1.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "The 'To' number is not a valid phone number.", resp.Detail)
}

func TestCallHistory(t *testing.T) {
	api := &fakeAPI{calls: []v1.CallRecord{{ID: "CA1", Direction: "outbound", Status: "completed"}}}
	h := newTestServer(t, api, nil)
	rec := doJSON(t, h, http.MethodPost, "/api/v1/call-history", v1.HistoryRequest{
		AccountSID:  "AC1",
		AuthToken:   "secret",
		PhoneNumber: "+15550000000",
	})

	require.Equal(t, http.StatusOK, rec.Code)
	var resp v1.CallHistoryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Calls, 1)
	assert.Equal(t, "CA1", resp.Calls[0].ID)
}

func TestCallHistoryEmptyIsArray(t *testing.T) {
	h := newTestServer(t, &fakeAPI{}, nil)
	rec := doJSON(t, h, http.MethodPost, "/api/v1/call-history", v1.HistoryRequest{
		AccountSID:  "AC1",
		AuthToken:   "secret",
		PhoneNumber: "+15550000000",
	})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"calls":[]`)
}

func TestHistoryMissingCredentials(t *testing.T) {
	h := newTestServer(t, &fakeAPI{}, nil)
	for _, path := range []string{"/api/v1/call-history", "/api/v1/message-history"} {
		rec := doJSON(t, h, http.MethodPost, path, v1.HistoryRequest{AccountSID: "AC1"})
		require.Equal(t, http.StatusBadRequest, rec.Code, path)
		var resp v1.ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "Missing required credentials", resp.Error)
	}
}

func TestMessageHistory(t *testing.T) {
	api := &fakeAPI{messages: []v1.MessageRecord{{ID: "SM1", Body: "hi"}}}
	h := newTestServer(t, api, nil)
	rec := doJSON(t, h, http.MethodPost, "/api/v1/message-history", v1.HistoryRequest{
		AccountSID:  "AC1",
		AuthToken:   "secret",
		PhoneNumber: "+15550000000",
	})

	require.Equal(t, http.StatusOK, rec.Code)
	var resp v1.MessageHistoryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Messages, 1)
	assert.Equal(t, "SM1", resp.Messages[0].ID)
}

func TestHistoryBackendFailure(t *testing.T) {
	api := &fakeAPI{callErr: &backend.NetworkError{Op: "list calls", Err: errors.New("dial tcp: timeout")}}
	h := newTestServer(t, api, nil)
	rec := doJSON(t, h, http.MethodPost, "/api/v1/call-history", v1.HistoryRequest{
		AccountSID:  "AC1",
		AuthToken:   "secret",
		PhoneNumber: "+15550000000",
	})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestAccessTokenMissingConfig(t *testing.T) {
	h := newTestServer(t, &fakeAPI{}, nil)
	rec := doJSON(t, h, http.MethodGet, "/api/v1/access-token", nil)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var resp v1.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Missing configuration. Set ACCOUNT_SID, AUTH_TOKEN and APP_SID.", resp.Error)
}

func TestAccessTokenFromEnvConfig(t *testing.T) {
	h := newTestServer(t, &fakeAPI{}, func(cfg *config.Config) {
		cfg.AccountSID = "AC0000000000000000000000000000test"
		cfg.AuthToken = "signing-secret"
		cfg.AppSID = "AP0000000000000000000000000000test"
	})
	rec := doJSON(t, h, http.MethodGet, "/api/v1/access-token", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp v1.TokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, strings.HasPrefix(resp.Identity, "user_"))

	parts := strings.Split(resp.Token, ".")
	require.Len(t, parts, 3, "token must be header.payload.signature")

	payloadRaw, err := base64.RawURLEncoding.DecodeString(parts[1])
	require.NoError(t, err)
	var payload struct {
		Iss    string `json:"iss"`
		Exp    int64  `json:"exp"`
		Grants struct {
			Identity string `json:"identity"`
			Voice    struct {
				Outgoing struct {
					ApplicationSID string `json:"application_sid"`
				} `json:"outgoing"`
				Incoming struct {
					Allow bool `json:"allow"`
				} `json:"incoming"`
			} `json:"voice"`
		} `json:"grants"`
	}
	require.NoError(t, json.Unmarshal(payloadRaw, &payload))
	assert.Equal(t, "AC0000000000000000000000000000test", payload.Iss)
	assert.Equal(t, resp.Identity, payload.Grants.Identity)
	assert.Equal(t, "AP0000000000000000000000000000test", payload.Grants.Voice.Outgoing.ApplicationSID)
	assert.True(t, payload.Grants.Voice.Incoming.Allow)
	assert.Greater(t, payload.Exp, time.Now().Unix())

	// The signature must verify against the configured auth secret.
	mac := hmac.New(sha256.New, []byte("signing-secret"))
	mac.Write([]byte(parts[0] + "." + parts[1]))
	want := base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
	assert.Equal(t, want, parts[2])
}

func TestAccessTokenBodyOverridesEnv(t *testing.T) {
	h := newTestServer(t, &fakeAPI{}, func(cfg *config.Config) {
		cfg.AccountSID = "ACenv"
		cfg.AuthToken = "env-secret"
		cfg.AppSID = "AP1"
	})
	rec := doJSON(t, h, http.MethodPost, "/api/v1/access-token", v1.CredentialsPayload{
		AccountSID: "ACbody",
		AuthToken:  "body-secret",
	})

	require.Equal(t, http.StatusOK, rec.Code)
	var resp v1.TokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	parts := strings.Split(resp.Token, ".")
	require.Len(t, parts, 3)
	payloadRaw, err := base64.RawURLEncoding.DecodeString(parts[1])
	require.NoError(t, err)
	var payload struct {
		Iss string `json:"iss"`
	}
	require.NoError(t, json.Unmarshal(payloadRaw, &payload))
	assert.Equal(t, "ACbody", payload.Iss)
}
