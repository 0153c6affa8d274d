package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/prudhvinik1/dbsync/internal/models"
)

const (
	userAgent = "dbsync/1.0"

	// maxResponseBody caps how much of a peer reply is read into memory.
	maxResponseBody = 1 << 20
)

// Sender delivers a batch of rows to a remote endpoint.
type Sender interface {
	Send(ctx context.Context, rows []*models.Row) (string, error)
}

// TokenGenerator produces the bearer token attached to outbound batches.
type TokenGenerator interface {
	Generate() (string, error)
}

// HTTPSender POSTs batches as a JSON array and returns the raw reply body.
type HTTPSender struct {
	url    string
	client *http.Client
	tokens TokenGenerator
}

type SenderOption func(*HTTPSender)

// WithTokenGenerator signs every request with a bearer token.
func WithTokenGenerator(tokens TokenGenerator) SenderOption {
	return func(s *HTTPSender) {
		s.tokens = tokens
	}
}

// WithHTTPClient replaces the default client; its timeout is left untouched.
func WithHTTPClient(client *http.Client) SenderOption {
	return func(s *HTTPSender) {
		s.client = client
	}
}

func NewHTTPSender(url string, timeout time.Duration, opts ...SenderOption) *HTTPSender {
	s := &HTTPSender{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *HTTPSender) Send(ctx context.Context, rows []*models.Row) (string, error) {
	if rows == nil {
		rows = []*models.Row{}
	}
	payload, err := json.Marshal(rows)
	if err != nil {
		return "", &SendError{URL: s.url, Err: fmt.Errorf("failed to encode batch: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(payload))
	if err != nil {
		return "", &SendError{URL: s.url, Err: fmt.Errorf("failed to build request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/plain, */*")
	req.Header.Set("User-Agent", userAgent)

	if s.tokens != nil {
		token, err := s.tokens.Generate()
		if err != nil {
			return "", &SendError{URL: s.url, Err: err}
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", &SendError{URL: s.url, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return "", &SendError{URL: s.url, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return "", &SendError{
			URL:        s.url,
			StatusCode: resp.StatusCode,
			Body:       string(body),
			Err:        fmt.Errorf("unexpected status %s", resp.Status),
		}
	}

	return string(body), nil
}
