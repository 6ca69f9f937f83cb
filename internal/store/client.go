package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/thruflo/rain/internal/logging"
)

// maxErrorBody bounds how much of an error response is kept.
const maxErrorBody = 4096

// HTTPClient is a Store backed by the session JSON API.
type HTTPClient struct {
	// base is the API root; operation paths resolve relative to it.
	base *url.URL

	httpClient *http.Client
	timeout    time.Duration
	userAgent  string
}

// ClientOption configures an HTTPClient.
type ClientOption func(*HTTPClient)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *HTTPClient) {
		c.httpClient = client
	}
}

// WithTimeout bounds every request, including reading the body. The
// client passed to WithHTTPClient is copied, not modified.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.timeout = d
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) ClientOption {
	return func(c *HTTPClient) {
		c.userAgent = ua
	}
}

// NewHTTPClient creates a client for the API rooted at baseURL. A trailing
// slash is added so relative paths resolve below it.
func NewHTTPClient(baseURL string, opts ...ClientOption) (*HTTPClient, error) {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid server url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid server url %q: must be absolute", baseURL)
	}

	c := &HTTPClient{
		base:       base,
		httpClient: &http.Client{},
		userAgent:  "rain",
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.timeout > 0 {
		hc := *c.httpClient
		hc.Timeout = c.timeout
		c.httpClient = &hc
	}
	return c, nil
}

// BaseURL returns the API root.
func (c *HTTPClient) BaseURL() string {
	return c.base.String()
}

// Create implements Store.
func (c *HTTPClient) Create(ctx context.Context, token string) (Snapshot, error) {
	var snap Snapshot
	err := c.do(ctx, "create session", http.MethodPost, "session", token, nil, &snap)
	return snap, err
}

// Fetch implements Store.
func (c *HTTPClient) Fetch(ctx context.Context, token, id string) (Snapshot, error) {
	var snap Snapshot
	err := c.do(ctx, "fetch session", http.MethodGet, "session/"+url.PathEscape(id), token, nil, &snap)
	return snap, err
}

// List implements Store.
func (c *HTTPClient) List(ctx context.Context, token string, page, size int) (Page, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("size", strconv.Itoa(size))

	var p Page
	err := c.do(ctx, "list sessions", http.MethodGet, "sessions?"+q.Encode(), token, nil, &p)
	return p, err
}

// Delete implements Store.
func (c *HTTPClient) Delete(ctx context.Context, token, id string) error {
	return c.do(ctx, "delete session", http.MethodDelete, "session/"+url.PathEscape(id), token, nil, nil)
}

// Upsert implements Store.
func (c *HTTPClient) Upsert(ctx context.Context, token string, snap Snapshot) error {
	return c.do(ctx, "upsert session", http.MethodPut, "session/"+url.PathEscape(snap.ID), token, snap, nil)
}

// do sends one request. A nil out means any 2xx body is ignored.
func (c *HTTPClient) do(ctx context.Context, op, method, path, token string, in, out interface{}) error {
	ref, err := url.Parse(path)
	if err != nil {
		return fmt.Errorf("%s: failed to build url: %w", op, err)
	}
	target := c.base.ResolveReference(ref)

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: failed to encode request: %w", op, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), body)
	if err != nil {
		return fmt.Errorf("%s: failed to create request: %w", op, err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	logging.Debug("store request", "method", method, "url", target.String(),
		"status", resp.StatusCode, "elapsed", time.Since(start))

	switch {
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &DomainError{Op: op, Status: resp.StatusCode, Message: errorMessage(resp.StatusCode, raw)}
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &ProtocolError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("unexpected status: %s", strings.TrimSpace(string(raw)))}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Op: op, Err: fmt.Errorf("failed to read body: %w", err)}
	}
	if out == nil {
		return nil
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return &ProtocolError{Op: op, Status: resp.StatusCode, Err: ErrEmptyResponse}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &ProtocolError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	return nil
}

// errorMessage extracts the "errors" field of a 4xx body. It falls back to
// the raw body, then to the status text.
func errorMessage(status int, raw []byte) string {
	var body struct {
		Errors json.RawMessage `json:"errors"`
	}
	if err := json.Unmarshal(raw, &body); err == nil && len(body.Errors) > 0 && string(body.Errors) != "null" {
		var s string
		if json.Unmarshal(body.Errors, &s) == nil {
			return s
		}
		var list []string
		if json.Unmarshal(body.Errors, &list) == nil {
			return strings.Join(list, "; ")
		}
		return string(body.Errors)
	}

	if text := strings.TrimSpace(string(raw)); text != "" {
		return text
	}
	return http.StatusText(status)
}
