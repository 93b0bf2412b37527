// Package llm talks to a remote model-serving endpoint.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
)

// Forwarder sends a JSON request body to a model endpoint and returns the
// endpoint's JSON response unchanged.
type Forwarder interface {
	Forward(ctx context.Context, body []byte) (json.RawMessage, error)
}

// PredictRequest is the body the serving endpoint expects. Prompt is kept
// raw so whatever the caller sent is passed through untouched.
type PredictRequest struct {
	Prompt json.RawMessage `json:"prompt,omitempty"`
}

// UpstreamError is returned when the endpoint answers with a non-2xx status.
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("upstream returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("upstream returned status %d: %s", e.StatusCode, e.Body)
}
