package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultTimeout bounds a single upstream call.
const DefaultTimeout = 30 * time.Second

// maxResponseBytes caps how much of an upstream response is read.
const maxResponseBytes = 10 << 20

// maxErrorBody caps how much of a failed response ends up in an UpstreamError.
const maxErrorBody = 512

// ErrInvalidResponse is returned when the endpoint answers 2xx with a body
// that is not JSON.
var ErrInvalidResponse = errors.New("llm: upstream response is not valid JSON")

// ServingClient posts prediction requests to a model-serving endpoint
// authenticated with a static bearer token.
type ServingClient struct {
	url    string
	token  string
	client *http.Client
}

// ClientOption configures a ServingClient.
type ClientOption func(*ServingClient)

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *ServingClient) {
		if d > 0 {
			c.client.Timeout = d
		}
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *ServingClient) {
		if hc != nil {
			c.client = hc
		}
	}
}

// NewServingClient creates a client for url. An empty token sends no
// Authorization header.
func NewServingClient(url, token string, opts ...ClientOption) *ServingClient {
	c := &ServingClient{
		url:    url,
		token:  token,
		client: &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// URL returns the endpoint the client posts to.
func (c *ServingClient) URL() string { return c.url }

// Forward posts body and returns the response body if the endpoint answers
// 2xx with valid JSON.
func (c *ServingClient) Forward(ctx context.Context, body []byte) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("llm: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("llm: post %s: %w", c.url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("llm: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		excerpt := data
		if len(excerpt) > maxErrorBody {
			excerpt = excerpt[:maxErrorBody]
		}
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Body: string(bytes.TrimSpace(excerpt))}
	}
	if !json.Valid(data) {
		return nil, ErrInvalidResponse
	}
	return json.RawMessage(data), nil
}

// Predict wraps prompt in a PredictRequest and forwards it.
func (c *ServingClient) Predict(ctx context.Context, prompt string) (json.RawMessage, error) {
	raw, err := json.Marshal(prompt)
	if err != nil {
		return nil, fmt.Errorf("llm: marshal prompt: %w", err)
	}
	body, err := json.Marshal(PredictRequest{Prompt: raw})
	if err != nil {
		return nil, fmt.Errorf("llm: marshal request: %w", err)
	}
	return c.Forward(ctx, body)
}
