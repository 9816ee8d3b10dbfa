package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	v1 "github.com/sebas/dialdesk/api/types/v1"
	"github.com/sebas/dialdesk/internal/backend"
)

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message, detail string) {
	writeJSON(w, status, v1.ErrorResponse{Error: message, Detail: detail})
}

// writeBackendError maps a gateway operation failure to an HTTP response.
// Validation failures never reached the network and map to 400; backend
// and transport failures map to 500 with the backend detail passed through
// verbatim.
func writeBackendError(w http.ResponseWriter, op string, err error) {
	var ve *backend.ValidationError
	if errors.As(err, &ve) {
		writeError(w, http.StatusBadRequest, ve.Error(), "")
		return
	}
	var be *backend.Error
	if errors.As(err, &be) {
		writeError(w, http.StatusInternalServerError, "Failed to "+op, be.Detail)
		return
	}
	writeError(w, http.StatusInternalServerError, "Failed to "+op, err.Error())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, v1.HealthResponse{
		Status: "ok",
		Uptime: int64(time.Since(s.startTime).Seconds()),
	})
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var req v1.SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body", "")
		return
	}

	if req.To == "" || req.From == "" || req.Body == "" ||
		req.Credentials.AccountSID == "" || req.Credentials.AuthToken == "" {
		writeError(w, http.StatusBadRequest,
			"Missing required fields: to, from, body, credentials", "")
		return
	}

	creds := backend.Credentials{
		AccountSID:  req.Credentials.AccountSID,
		AuthToken:   req.Credentials.AuthToken,
		PhoneNumber: req.From,
	}

	rec, err := s.gw.SendMessage(r.Context(), req.To, req.Body, creds)
	if err != nil {
		writeBackendError(w, "send message", err)
		return
	}

	writeJSON(w, http.StatusOK, v1.SendMessageResponse{
		ID:        rec.ID,
		Status:    rec.Status,
		To:        rec.To,
		From:      rec.From,
		Body:      rec.Body,
		CreatedAt: rec.CreatedAt,
	})
}

// decodeHistoryRequest parses and validates the shared history credential
// body used by the call-history and message-history endpoints.
func decodeHistoryRequest(w http.ResponseWriter, r *http.Request) (backend.Credentials, bool) {
	var req v1.HistoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body", "")
		return backend.Credentials{}, false
	}
	creds := backend.Credentials{
		AccountSID:  req.AccountSID,
		AuthToken:   req.AuthToken,
		PhoneNumber: req.PhoneNumber,
	}
	if creds.MissingField() != "" {
		writeError(w, http.StatusBadRequest, "Missing required credentials", "")
		return backend.Credentials{}, false
	}
	return creds, true
}

func (s *Server) handleCallHistory(w http.ResponseWriter, r *http.Request) {
	creds, ok := decodeHistoryRequest(w, r)
	if !ok {
		return
	}

	calls, err := s.gw.ListCalls(r.Context(), creds, backend.DefaultListLimit)
	if err != nil {
		writeBackendError(w, "fetch call history", err)
		return
	}
	if calls == nil {
		calls = []v1.CallRecord{}
	}
	writeJSON(w, http.StatusOK, v1.CallHistoryResponse{Calls: calls})
}

func (s *Server) handleMessageHistory(w http.ResponseWriter, r *http.Request) {
	creds, ok := decodeHistoryRequest(w, r)
	if !ok {
		return
	}

	messages, err := s.gw.ListMessages(r.Context(), creds, backend.DefaultListLimit)
	if err != nil {
		writeBackendError(w, "fetch message history", err)
		return
	}
	if messages == nil {
		messages = []v1.MessageRecord{}
	}
	writeJSON(w, http.StatusOK, v1.MessageHistoryResponse{Messages: messages})
}

func (s *Server) handleAccessToken(w http.ResponseWriter, r *http.Request) {
	creds := s.cfg.Credentials()

	// Per-request credentials override the environment ones when present.
	if r.Method == http.MethodPost && r.Body != nil {
		var req v1.CredentialsPayload
		if err := json.NewDecoder(r.Body).Decode(&req); err == nil {
			if req.AccountSID != "" {
				creds.AccountSID = req.AccountSID
			}
			if req.AuthToken != "" {
				creds.AuthToken = req.AuthToken
			}
		}
	}

	if creds.AccountSID == "" || creds.AuthToken == "" || s.cfg.AppSID == "" {
		writeError(w, http.StatusInternalServerError,
			"Missing configuration. Set ACCOUNT_SID, AUTH_TOKEN and APP_SID.", "")
		return
	}

	tok, identity, err := mintToken(creds, s.cfg.AppSID, s.cfg.TokenTTL, time.Now())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to generate access token", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, v1.TokenResponse{Token: tok, Identity: identity})
}
