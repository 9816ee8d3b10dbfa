package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	v1 "github.com/sebas/dialdesk/api/types/v1"
)

// DefaultListLimit is used when a caller passes limit <= 0.
const DefaultListLimit = 20

// RESTClient is an HTTP client for the vendor's REST API.
type RESTClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewRESTClient creates a client for the vendor REST API at baseURL.
func NewRESTClient(baseURL string) *RESTClient {
	return &RESTClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// wireMessage is a message resource as the vendor returns it.
type wireMessage struct {
	SID       string    `json:"sid"`
	To        string    `json:"to"`
	From      string    `json:"from"`
	Body      string    `json:"body"`
	Direction string    `json:"direction"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"date_created"`
}

// wireCall is a call resource as the vendor returns it.
type wireCall struct {
	SID       string    `json:"sid"`
	To        string    `json:"to"`
	From      string    `json:"from"`
	Direction string    `json:"direction"`
	Status    string    `json:"status"`
	Duration  int       `json:"duration,string"`
	CreatedAt time.Time `json:"date_created"`
}

// wireError is the vendor's error body.
type wireError struct {
	Message string `json:"message"`
	Code    int    `json:"code"`
}

func (m wireMessage) record() v1.MessageRecord {
	return v1.MessageRecord{
		ID:        m.SID,
		To:        m.To,
		From:      m.From,
		Body:      m.Body,
		Direction: m.Direction,
		Status:    m.Status,
		CreatedAt: m.CreatedAt,
	}
}

func (c wireCall) record() v1.CallRecord {
	return v1.CallRecord{
		ID:        c.SID,
		To:        c.To,
		From:      c.From,
		Direction: c.Direction,
		Status:    c.Status,
		Duration:  c.Duration,
		CreatedAt: c.CreatedAt,
	}
}

// CreateMessage submits one outbound message to the vendor.
func (c *RESTClient) CreateMessage(ctx context.Context, creds Credentials, msg OutboundMessage) (*v1.MessageRecord, error) {
	form := url.Values{}
	form.Set("To", msg.To)
	form.Set("From", msg.From)
	form.Set("Body", msg.Body)

	path := fmt.Sprintf("/accounts/%s/messages", url.PathEscape(creds.AccountSID))
	resp, err := c.do(ctx, http.MethodPost, path, creds, strings.NewReader(form.Encode()), "create message")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var wm wireMessage
	if err := json.NewDecoder(resp.Body).Decode(&wm); err != nil {
		return nil, fmt.Errorf("decode message: %w", err)
	}
	rec := wm.record()
	return &rec, nil
}

// ListMessages fetches the most recent messages for the account.
func (c *RESTClient) ListMessages(ctx context.Context, creds Credentials, limit int) ([]v1.MessageRecord, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	path := fmt.Sprintf("/accounts/%s/messages?page_size=%s",
		url.PathEscape(creds.AccountSID), strconv.Itoa(limit))
	resp, err := c.do(ctx, http.MethodGet, path, creds, nil, "list messages")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var body struct {
		Messages []wireMessage `json:"messages"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode messages: %w", err)
	}
	records := make([]v1.MessageRecord, 0, len(body.Messages))
	for _, wm := range body.Messages {
		records = append(records, wm.record())
	}
	return records, nil
}

// ListCalls fetches the most recent calls for the account.
func (c *RESTClient) ListCalls(ctx context.Context, creds Credentials, limit int) ([]v1.CallRecord, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	path := fmt.Sprintf("/accounts/%s/calls?page_size=%s",
		url.PathEscape(creds.AccountSID), strconv.Itoa(limit))
	resp, err := c.do(ctx, http.MethodGet, path, creds, nil, "list calls")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var body struct {
		Calls []wireCall `json:"calls"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode calls: %w", err)
	}
	records := make([]v1.CallRecord, 0, len(body.Calls))
	for _, wc := range body.Calls {
		records = append(records, wc.record())
	}
	return records, nil
}

// do performs one authenticated request and maps non-2xx responses to
// *Error and transport failures to *NetworkError.
func (c *RESTClient) do(ctx context.Context, method, path string, creds Credentials, body io.Reader, op string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.SetBasicAuth(creds.AccountSID, creds.AuthToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &NetworkError{Op: op, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		detail := ""
		var we wireError
		if err := json.NewDecoder(resp.Body).Decode(&we); err == nil {
			detail = we.Message
		}
		return nil, &Error{Op: op, Status: resp.StatusCode, Detail: detail}
	}

	return resp, nil
}

// TokenClient fetches access tokens from the token endpoint.
type TokenClient struct {
	url        string
	httpClient *http.Client
}

// NewTokenClient creates a client for the token endpoint at rawURL.
func NewTokenClient(rawURL string) *TokenClient {
	return &TokenClient{
		url: rawURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// IssueToken requests one access token for the given credentials.
func (c *TokenClient) IssueToken(ctx context.Context, creds Credentials) (*TokenGrant, error) {
	payload, err := json.Marshal(v1.CredentialsPayload{
		AccountSID:  creds.AccountSID,
		AuthToken:   creds.AuthToken,
		PhoneNumber: creds.PhoneNumber,
	})
	if err != nil {
		return nil, fmt.Errorf("encode credentials: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, strings.NewReader(string(payload)))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &NetworkError{Op: "issue token", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail := ""
		var we v1.ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&we); err == nil {
			detail = we.Error
		}
		return nil, &Error{Op: "issue token", Status: resp.StatusCode, Detail: detail}
	}

	var tr v1.TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, fmt.Errorf("decode token: %w", err)
	}
	return &TokenGrant{Token: tr.Token, Identity: tr.Identity}, nil
}

var (
	_ API         = (*RESTClient)(nil)
	_ TokenIssuer = (*TokenClient)(nil)
)
