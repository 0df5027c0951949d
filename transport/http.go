package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// PrintPath is the endpoint that accepts raw ESC/POS frames.
	PrintPath = "/print"
	// ContentType of the frame.
	ContentType = "application/octet-stream"

	defaultHTTPTimeout = 30 * time.Second
	maxReplySize       = 64 << 10
)

// HTTP posts the frame to a network printer bridge, i.e. an ESP32 or the
// printsrv server.
type HTTP struct {
	url    string
	client *http.Client
}

// HTTPOption configures the HTTP sender.
type HTTPOption func(*HTTP)

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(h *HTTP) {
		if c != nil {
			h.client = c
		}
	}
}

// NewHTTP returns the HTTP sender for the base URL.  If the URL path does
// not end with [PrintPath], it is appended.
func NewHTTP(base string, opt ...HTTPOption) (*HTTP, error) {
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("invalid printer URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid printer URL %q: scheme must be http or https", base)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("invalid printer URL %q: missing host", base)
	}
	if !strings.HasSuffix(u.Path, PrintPath) {
		u.Path = strings.TrimSuffix(u.Path, "/") + PrintPath
	}
	h := &HTTP{
		url:    u.String(),
		client: &http.Client{Timeout: defaultHTTPTimeout},
	}
	for _, o := range opt {
		o(h)
	}
	return h, nil
}

// URL returns the endpoint URL.
func (h *HTTP) URL() string {
	return h.url
}

func (h *HTTP) Send(ctx context.Context, data []byte) error {
	_, err := h.Post(ctx, data)
	return err
}

// Post sends the frame and returns the plain text reply of the printer.
func (h *HTTP) Post(ctx context.Context, data []byte) (string, error) {
	if len(data) == 0 {
		return "", ErrEmptyFrame
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", ContentType)

	resp, err := h.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("post failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxReplySize))
	if err != nil {
		return "", fmt.Errorf("failed to read reply: %w", err)
	}
	reply := strings.TrimSpace(string(body))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &StatusError{Code: resp.StatusCode, Body: reply}
	}
	slog.InfoContext(ctx, "printer replied", "url", h.url, "status", resp.StatusCode, "reply", reply)
	return reply, nil
}
