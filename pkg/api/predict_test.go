package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mindburn-Labs/insights/pkg/llm"
)

const failureBody = `{"error": "Failed to fetch prediction"}`

type forwarderFunc func(ctx context.Context, body []byte) (json.RawMessage, error)

func (f forwarderFunc) Forward(ctx context.Context, body []byte) (json.RawMessage, error) {
	return f(ctx, body)
}

func post(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, PredictPath, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestPredict_RelaysUpstreamVerbatim(t *testing.T) {
	var forwarded []byte
	h := NewPredictHandler(forwarderFunc(func(_ context.Context, body []byte) (json.RawMessage, error) {
		forwarded = body
		return json.RawMessage(`{"predictions": [0.1, 0.9], "model":"m"}`), nil
	}))

	w := post(t, h, `{"prompt": "hello", "ignored": true}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Equal(t, `{"predictions": [0.1, 0.9], "model":"m"}`, w.Body.String())
	assert.JSONEq(t, `{"prompt": "hello"}`, string(forwarded))
}

func TestPredict_PromptPassedThroughAsReceived(t *testing.T) {
	tests := map[string]string{
		"object":  `{"prompt": {"text": "x", "n": 2}}`,
		"number":  `{"prompt": 42}`,
		"null":    `{"prompt": null}`,
		"missing": `{}`,
		"empty":   ``,
	}
	want := map[string]string{
		"object":  `{"prompt": {"text": "x", "n": 2}}`,
		"number":  `{"prompt": 42}`,
		"null":    `{"prompt": null}`,
		"missing": `{}`,
		"empty":   `{}`,
	}

	for name, in := range tests {
		t.Run(name, func(t *testing.T) {
			var forwarded []byte
			h := NewPredictHandler(forwarderFunc(func(_ context.Context, body []byte) (json.RawMessage, error) {
				forwarded = body
				return json.RawMessage(`{}`), nil
			}))
			w := post(t, h, in)
			require.Equal(t, http.StatusOK, w.Code)
			assert.JSONEq(t, want[name], string(forwarded))
		})
	}
}

func TestPredict_AnyUpstreamFailureIsUniform(t *testing.T) {
	failures := map[string]error{
		"network":   errors.New("dial tcp: connection refused"),
		"status":    &llm.UpstreamError{StatusCode: http.StatusBadGateway, Body: "bad gateway"},
		"non-json":  llm.ErrInvalidResponse,
		"cancelled": context.DeadlineExceeded,
	}

	for name, fail := range failures {
		t.Run(name, func(t *testing.T) {
			h := NewPredictHandler(forwarderFunc(func(context.Context, []byte) (json.RawMessage, error) {
				return nil, fail
			}))
			w := post(t, h, `{"prompt": "hi"}`)

			assert.Equal(t, http.StatusInternalServerError, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
			assert.JSONEq(t, failureBody, w.Body.String())
			assert.NotContains(t, w.Body.String(), fail.Error())
		})
	}
}

func TestPredict_UpstreamTimeout(t *testing.T) {
	release := make(chan struct{})
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer upstream.Close()
	defer close(release)

	client := llm.NewServingClient(upstream.URL, "token", llm.WithTimeout(50*time.Millisecond))
	srv := httptest.NewServer(NewPredictHandler(client))
	defer srv.Close()

	resp, err := http.Post(srv.URL+PredictPath, "application/json", strings.NewReader(`{"prompt":"slow"}`))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.JSONEq(t, failureBody, string(body))
}

func TestPredict_EndToEnd(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		var got map[string]any
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"echo": got["prompt"]})
	}))
	defer upstream.Close()

	h := NewPredictHandler(llm.NewServingClient(upstream.URL, "token"))
	w := post(t, h, `{"prompt":"ping"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"echo":"ping"}`, w.Body.String())

	wrong := NewPredictHandler(llm.NewServingClient(upstream.URL, "nope"))
	w = post(t, wrong, `{"prompt":"ping"}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, failureBody, w.Body.String())
}

func TestPredict_RequestErrors(t *testing.T) {
	called := false
	h := NewPredictHandler(forwarderFunc(func(context.Context, []byte) (json.RawMessage, error) {
		called = true
		return json.RawMessage(`{}`), nil
	}))

	t.Run("method", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, PredictPath, nil))
		assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
		assert.Equal(t, "application/problem+json", w.Header().Get("Content-Type"))
	})

	t.Run("malformed json", func(t *testing.T) {
		w := post(t, h, `{"prompt":`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		var p ProblemDetail
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &p))
		assert.Equal(t, PredictPath, p.Instance)
	})

	t.Run("too large", func(t *testing.T) {
		w := post(t, h, `{"prompt":"`+strings.Repeat("x", maxPredictBody)+`"}`)
		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	})

	assert.False(t, called)
}

func TestPredict_NonJSONBodyForwardsEmptyObject(t *testing.T) {
	var got []byte
	h := NewPredictHandler(forwarderFunc(func(_ context.Context, body []byte) (json.RawMessage, error) {
		got = body
		return json.RawMessage(`{"ok":true}`), nil
	}))

	for _, ct := range []string{"text/plain", ""} {
		req := httptest.NewRequest(http.MethodPost, PredictPath, strings.NewReader(`{"prompt":`))
		if ct != "" {
			req.Header.Set("Content-Type", ct)
		}
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code, ct)
		assert.JSONEq(t, `{}`, string(got), ct)
	}

	req := httptest.NewRequest(http.MethodPost, PredictPath, strings.NewReader(`{"prompt":"hi"}`))
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"prompt":"hi"}`, string(got))
}
