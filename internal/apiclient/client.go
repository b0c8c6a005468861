package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/avicola/eggcoop-core/internal/auth"
	"github.com/avicola/eggcoop-core/internal/infrastructure/logging"
)

// maxResponseBody caps how much of an error or payload body is read.
const maxResponseBody = 1 << 20 // 1 MiB

// Config holds the client's connection settings.
type Config struct {
	// BaseURL is the backend root, e.g. "https://api.coop.example".
	BaseURL string

	// Timeout bounds each request end to end.
	Timeout time.Duration
}

// Client talks to the cooperative backend. Every request flows through one
// pipeline: bearer injection from the credential store, request tagging,
// and a single response-translation point that maps HTTP status to the
// package error taxonomy. A rejected bearer clears the stored session and
// fires the expiry callback before the error reaches the caller.
type Client struct {
	baseURL          string
	http             *http.Client
	store            auth.CredentialStore
	onSessionExpired func()
	logger           *logging.Logger
}

// New creates a backend client. onSessionExpired is invoked after a rejected
// bearer has cleared the session, typically to navigate to sign-in; it may
// be nil. A nil logger discards log output.
func New(cfg Config, store auth.CredentialStore, onSessionExpired func(), logger *logging.Logger) *Client {
	if logger == nil {
		logger = logging.Discard()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:          strings.TrimRight(cfg.BaseURL, "/"),
		http:             &http.Client{Timeout: timeout},
		store:            store,
		onSessionExpired: onSessionExpired,
		logger:           logger,
	}
}

// doJSON sends a JSON request and decodes a JSON response into out.
// body and out may each be nil. withBearer is false only for endpoints that
// precede authentication; everything else sends the stored token.
func (c *Client) doJSON(ctx context.Context, method, path string, body, out any, withBearer bool) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(ctx, req, out, withBearer)
}

// doMultipart sends a multipart upload with a single file part and decodes
// a JSON response into out.
func (c *Client) doMultipart(ctx context.Context, path, contentType string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	return c.send(ctx, req, out, true)
}

// send finishes request preparation, executes it, and translates the
// response. This is the single point where bearer injection, session
// expiry, and the error taxonomy are applied.
func (c *Client) send(ctx context.Context, req *http.Request, out any, withBearer bool) error {
	req.Header.Set("Accept", "application/json")
	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)

	authed := false
	if withBearer {
		authed = c.attachBearer(ctx, req)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w: %v", req.Method, req.URL.Path, ErrConnectivity, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return fmt.Errorf("%s %s: reading response: %w: %v", req.Method, req.URL.Path, ErrConnectivity, err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil {
			return nil
		}
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("%s %s: decoding response: %w", req.Method, req.URL.Path, err)
		}
		return nil
	}

	c.logger.Debug("request rejected",
		"method", req.Method,
		"path", req.URL.Path,
		"status", resp.StatusCode,
		"request_id", requestID,
	)

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		if !authed {
			return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, ErrInvalidCredentials)
		}
		c.expireSession(ctx)
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, ErrSessionExpired)

	case resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, ErrPermissionDenied)

	case resp.StatusCode == http.StatusUnprocessableEntity:
		return newValidationError(resp.StatusCode, data)

	case resp.StatusCode >= 500:
		return fmt.Errorf("%s %s: %w: status %d", req.Method, req.URL.Path, ErrServer, resp.StatusCode)

	default:
		return fmt.Errorf("%s %s: unexpected status %d", req.Method, req.URL.Path, resp.StatusCode)
	}
}

// attachBearer adds the stored bearer token to the request, reporting
// whether one was attached. Store failures degrade to an unauthenticated
// request.
func (c *Client) attachBearer(ctx context.Context, req *http.Request) bool {
	sess, err := c.store.LoadSession(ctx)
	if err != nil {
		c.logger.Warn("session read failed, sending unauthenticated", "error", err)
		return false
	}
	if !sess.Authenticated() {
		return false
	}
	req.Header.Set("Authorization", "Bearer "+sess.Token)
	return true
}

// expireSession clears the stored session and fires the expiry callback.
// The clear always completes before the caller sees ErrSessionExpired.
func (c *Client) expireSession(ctx context.Context) {
	if err := c.store.ClearSession(ctx); err != nil {
		c.logger.Error("clearing expired session failed", "error", err)
	}
	if c.onSessionExpired != nil {
		c.onSessionExpired()
	}
}
