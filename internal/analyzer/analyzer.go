// Package analyzer talks to the upstream receipt analysis service. It returns
// the service's raw JSON; normalization is left to the draft package.
package analyzer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/mmynk/nbbang/internal/models"
)

// ErrDisabled is returned when no analyzer URL is configured.
var ErrDisabled = errors.New("AI analyzer is not configured")

// UpstreamError is a non-2xx answer from the analyzer.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("analyzer returned %d: %s", e.Status, e.Body)
}

// Config holds analyzer connection settings.
type Config struct {
	URL     string
	Timeout time.Duration
}

// Image is one uploaded receipt photo.
type Image struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Client posts analysis requests to the upstream service.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// NewClient creates an analyzer client.
func NewClient(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	cfg.URL = strings.TrimRight(cfg.URL, "/")
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// Enabled reports whether an analyzer URL is configured.
func (c *Client) Enabled() bool {
	return c.cfg.URL != ""
}

// Analyze sends receipt images and a free-text prompt as multipart form data
// (images[] and prompt) and returns the analyzer's response body.
func (c *Client) Analyze(ctx context.Context, images []Image, prompt string) ([]byte, error) {
	if !c.Enabled() {
		return nil, ErrDisabled
	}

	body, contentType, err := EncodeForm(images, prompt)
	if err != nil {
		return nil, err
	}
	return c.post(ctx, "/analyze", contentType, body)
}

// EncodeForm builds the multipart body shared by the analyzer and the public
// /ai/settlement route: one images[] part per image, then a prompt field.
func EncodeForm(images []Image, prompt string) (body *bytes.Buffer, contentType string, err error) {
	body = &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	for _, img := range images {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="images[]"; filename=%q`, img.Filename))
		ct := img.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		h.Set("Content-Type", ct)
		part, err := mw.CreatePart(h)
		if err != nil {
			return nil, "", fmt.Errorf("create image part: %w", err)
		}
		if _, err := part.Write(img.Data); err != nil {
			return nil, "", fmt.Errorf("write image part: %w", err)
		}
	}
	if err := mw.WriteField("prompt", prompt); err != nil {
		return nil, "", fmt.Errorf("write prompt: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart: %w", err)
	}
	return body, mw.FormDataContentType(), nil
}

type modifyRequest struct {
	Draft  models.Draft `json:"draft"`
	Prompt string       `json:"prompt"`
}

// Modify asks the analyzer to apply a follow-up instruction to current.
func (c *Client) Modify(ctx context.Context, current models.Draft, prompt string) ([]byte, error) {
	if !c.Enabled() {
		return nil, ErrDisabled
	}

	body, err := json.Marshal(modifyRequest{Draft: current, Prompt: prompt})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	return c.post(ctx, "/modify", "application/json", bytes.NewReader(body))
}

func (c *Client) post(ctx context.Context, path, contentType string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL+path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("analyzer request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode/100 != 2 {
		return nil, &UpstreamError{Status: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}
	return data, nil
}
