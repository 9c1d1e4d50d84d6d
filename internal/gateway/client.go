package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gatescan/terminal/internal/model"
	"github.com/gatescan/terminal/internal/session"
)

// BasePath is the gateway's fixed route prefix.
const BasePath = "/api/gate"

const defaultTimeout = 10 * time.Second

// Client talks to the remote verification gateway. Authenticated calls read
// the bearer token from the session store per call. On transport failure the
// client substitutes deterministic mock payloads for scan/verify/reject so
// the terminal keeps functioning offline.
type Client struct {
	baseURL string
	http    *http.Client
	session session.Store
	now     func() time.Time
}

// NewClient creates a gateway client for baseURL (scheme://host, without the
// /api/gate prefix).
func NewClient(baseURL string, store session.Store) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
		session: store,
		now:     time.Now,
	}
}

// LoginRequest carries operator credentials for POST /login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is the payload of a successful login.
type LoginResponse struct {
	Token string `json:"token"`
}

// ScanRequest resolves a raw decoded or typed string to a submission.
type ScanRequest struct {
	QRCode string `json:"qrCode"`
}

// ScanResponse is the scan outcome. Valid=false with an Error message is a
// normal result, not a failure.
type ScanResponse struct {
	Valid      bool              `json:"valid"`
	Submission *model.Submission `json:"submission,omitempty"`
	Error      string            `json:"error,omitempty"`
}

// VerifyRequest triggers token generation and SMS dispatch for a submission.
type VerifyRequest struct {
	SubmissionID string `json:"submissionId"`
}

// VerifyResponse carries the issued token and its delivery status.
type VerifyResponse struct {
	TokenNumber string          `json:"tokenNumber"`
	SMSStatus   model.SMSStatus `json:"smsStatus"`
}

// RejectRequest records a rejection with a mandatory reason.
type RejectRequest struct {
	SubmissionID string `json:"submissionId"`
	Reason       string `json:"reason"`
}

// RejectResponse acknowledges a rejection.
type RejectResponse struct {
	Success bool `json:"success"`
}

// Login authenticates the operator and persists the returned token as the
// current session. There is no offline fallback for login.
func (c *Client) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	var resp LoginResponse
	if err := c.post(ctx, "/login", false, req, &resp); err != nil {
		return nil, err
	}
	if resp.Token == "" {
		return nil, &APIError{Op: "login", Message: "Invalid credentials"}
	}
	if err := c.session.SetToken(resp.Token); err != nil {
		return nil, fmt.Errorf("persist session: %w", err)
	}
	return &resp, nil
}

// Scan resolves a QR payload to a pending submission.
func (c *Client) Scan(ctx context.Context, req ScanRequest) (*ScanResponse, error) {
	var resp ScanResponse
	if err := c.post(ctx, "/scan", true, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Verify asks the gateway to issue and dispatch an entry token.
func (c *Client) Verify(ctx context.Context, req VerifyRequest) (*VerifyResponse, error) {
	var resp VerifyResponse
	if err := c.post(ctx, "/verify", true, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Reject records a rejection for a submission.
func (c *Client) Reject(ctx context.Context, req RejectRequest) (*RejectResponse, error) {
	var resp RejectResponse
	if err := c.post(ctx, "/reject", true, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Logout clears the stored session. No network call; cannot fail upstream.
func (c *Client) Logout() error {
	return c.session.Clear()
}

// post sends a JSON request to BasePath+path. A non-2xx response surfaces the
// body text as an *APIError. A transport failure is replaced by the mock
// payload for the path when one exists.
func (c *Client) post(ctx context.Context, path string, auth bool, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode %s request: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+BasePath+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build %s request: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if auth {
		req.Header.Set("Authorization", "Bearer "+c.session.Token())
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if c.fillMock(path, out) {
			return nil
		}
		return &TransportError{Op: strings.TrimPrefix(path, "/"), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		msg := strings.TrimSpace(string(text))
		// The gateway wraps error messages as {"error": "..."}; unwrap when
		// possible, otherwise surface the body verbatim.
		var envelope struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(text, &envelope) == nil && envelope.Error != "" {
			msg = envelope.Error
		}
		return &APIError{
			Op:         strings.TrimPrefix(path, "/"),
			StatusCode: resp.StatusCode,
			Message:    msg,
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
