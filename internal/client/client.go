package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const maxResponseBytes = 8 << 20

// Client calls the settlement API on behalf of one session.
type Client struct {
	baseURL    string
	httpClient *http.Client
	session    *SessionContext
	logger     *slog.Logger

	shareAttempts uint64
	shareBackoff  time.Duration
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithShareRetry overrides the bounded retry used for share pages.
func WithShareRetry(attempts uint64, backoff time.Duration) Option {
	return func(c *Client) {
		if attempts > 0 {
			c.shareAttempts = attempts
		}
		if backoff > 0 {
			c.shareBackoff = backoff
		}
	}
}

// New creates a client for the API at baseURL. Share pages are retried at
// most 3 times, 1 second apart.
func New(baseURL string, session *SessionContext, opts ...Option) *Client {
	c := &Client{
		baseURL:       strings.TrimRight(baseURL, "/"),
		httpClient:    &http.Client{Timeout: 90 * time.Second},
		session:       session,
		logger:        slog.Default(),
		shareAttempts: 3,
		shareBackoff:  time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "client")
	return c
}

// Session returns the session the client authenticates with.
func (c *Client) Session() *SessionContext {
	return c.session
}

func (c *Client) send(ctx context.Context, method, path string, body io.Reader, contentType string) ([]byte, error) {
	op := method + " " + path

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, &NetworkError{Op: op, Err: err}
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token := c.session.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &NetworkError{Op: op, Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode >= 400 {
		if resp.StatusCode == http.StatusUnauthorized {
			c.session.Clear()
		}
		err := classify(resp.StatusCode, data)
		c.logger.Warn("request failed", "op", op, "status", resp.StatusCode, "error", err)
		return nil, err
	}
	return data, nil
}

// doJSON sends in as JSON (when non-nil) and decodes the response into out
// (when non-nil).
func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	contentType := ""
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body, contentType = bytes.NewReader(b), "application/json"
	}

	data, err := c.send(ctx, method, path, body, contentType)
	if err != nil {
		return err
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &NetworkError{Op: method + " " + path, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}
