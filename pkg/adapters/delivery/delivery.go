// Package delivery provides Deliverers that hand resolved content to the
// outside world: a structured log sink and an HTTP relay.
package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/malcolmmathew-zz/bot-engine/pkg/content"
)

// Log writes every delivery to a logger. Useful when no channel is wired.
type Log struct {
	resolver *content.Resolver
	logger   *slog.Logger
}

// NewLog creates a logging deliverer.
func NewLog(resolver *content.Resolver, logger *slog.Logger) *Log {
	return &Log{resolver: resolver, logger: logger}
}

// Deliver logs each resolved key.
func (l *Log) Deliver(ctx context.Context, userID string, keys []string) error {
	for _, c := range l.resolver.ResolveAll(keys) {
		l.logger.InfoContext(ctx, "deliver",
			"user_id", userID,
			"key", c.Key,
			"kind", c.Kind,
			"text", c.Text,
			"choices", len(c.Choices),
		)
	}
	return nil
}

// Message is the body the HTTP relay posts.
type Message struct {
	RecipientID string            `json:"recipient_id"`
	Content     []content.Content `json:"content"`
}

// ErrRelay wraps non-2xx answers from the relay endpoint.
var ErrRelay = errors.New("delivery relay rejected message")

// HTTP posts resolved content as JSON to a relay that speaks the provider's
// send API.
type HTTP struct {
	url      string
	token    string
	client   *http.Client
	resolver *content.Resolver
}

// HTTPOption configures the HTTP deliverer.
type HTTPOption func(*HTTP)

// WithClient overrides the http.Client.
func WithClient(c *http.Client) HTTPOption {
	return func(h *HTTP) {
		if c != nil {
			h.client = c
		}
	}
}

// WithToken sends a bearer token with every request.
func WithToken(token string) HTTPOption {
	return func(h *HTTP) {
		h.token = token
	}
}

// NewHTTP creates a relay deliverer posting to url.
func NewHTTP(url string, resolver *content.Resolver, opts ...HTTPOption) *HTTP {
	h := &HTTP{
		url:      url,
		client:   &http.Client{Timeout: 10 * time.Second},
		resolver: resolver,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Deliver posts one message carrying every key.
func (h *HTTP) Deliver(ctx context.Context, userID string, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	body, err := json.Marshal(Message{RecipientID: userID, Content: h.resolver.ResolveAll(keys)})
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if h.token != "" {
		req.Header.Set("Authorization", "Bearer "+h.token)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to post message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: status %d: %s", ErrRelay, resp.StatusCode, bytes.TrimSpace(snippet))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
