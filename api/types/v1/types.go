// Package types defines shared API types for the gateway and its clients.
package types

import "time"

// HealthResponse is the response from /api/v1/health
type HealthResponse struct {
	Status string `json:"status"`
	Uptime int64  `json:"uptime"`
}

// MessageRecord is a message as reported by the telephony backend.
type MessageRecord struct {
	ID        string    `json:"id"`
	To        string    `json:"to"`
	From      string    `json:"from"`
	Body      string    `json:"body"`
	Direction string    `json:"direction"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// CallRecord is a call as reported by the telephony backend.
type CallRecord struct {
	ID        string    `json:"id"`
	To        string    `json:"to"`
	From      string    `json:"from"`
	Direction string    `json:"direction"`
	Status    string    `json:"status"`
	Duration  int       `json:"duration"`
	CreatedAt time.Time `json:"created_at"`
}

// CredentialsPayload carries account credentials in request bodies.
type CredentialsPayload struct {
	AccountSID  string `json:"account_sid"`
	AuthToken   string `json:"auth_token"`
	PhoneNumber string `json:"phone_number,omitempty"`
}

// SendMessageRequest is the body of POST /api/v1/send-message
type SendMessageRequest struct {
	To          string             `json:"to"`
	From        string             `json:"from"`
	Body        string             `json:"body"`
	Credentials CredentialsPayload `json:"credentials"`
}

// SendMessageResponse is the success response of POST /api/v1/send-message
type SendMessageResponse struct {
	ID        string    `json:"id"`
	Status    string    `json:"status"`
	To        string    `json:"to"`
	From      string    `json:"from"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// HistoryRequest is the body of the call-history and message-history endpoints.
type HistoryRequest struct {
	AccountSID  string `json:"account_sid"`
	AuthToken   string `json:"auth_token"`
	PhoneNumber string `json:"phone_number"`
}

// CallHistoryResponse is the response from POST /api/v1/call-history
type CallHistoryResponse struct {
	Calls []CallRecord `json:"calls"`
}

// MessageHistoryResponse is the response from POST /api/v1/message-history
type MessageHistoryResponse struct {
	Messages []MessageRecord `json:"messages"`
}

// TokenResponse is the response from /api/v1/access-token
type TokenResponse struct {
	Token    string `json:"token"`
	Identity string `json:"identity"`
}

// ErrorResponse is the error body returned by all endpoints.
type ErrorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}
