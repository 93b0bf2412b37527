package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"

	"github.com/Mindburn-Labs/insights/pkg/llm"
)

// PredictPath is where PredictHandler is mounted.
const PredictPath = "/api/predict"

// maxPredictBody caps the size of an incoming prediction request.
const maxPredictBody = 1 << 20

// predictFailure is the only error body the proxy ever returns for an
// upstream problem.
var predictFailure = map[string]string{"error": "Failed to fetch prediction"}

// PredictHandler relays prediction requests to a model-serving endpoint.
type PredictHandler struct {
	upstream llm.Forwarder
	logger   *slog.Logger
}

// NewPredictHandler creates a handler that forwards through upstream.
func NewPredictHandler(upstream llm.Forwarder) *PredictHandler {
	return &PredictHandler{
		upstream: upstream,
		logger:   slog.Default().With("component", "predict"),
	}
}

// ServeHTTP accepts POST {"prompt": ...}, sends {"prompt": ...} upstream and
// writes the upstream JSON back unchanged. Every upstream failure, whatever
// its cause, becomes a 500 with the same body.
func (h *PredictHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		WriteMethodNotAllowed(w, http.MethodPost)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxPredictBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			WriteErrorR(w, r, http.StatusRequestEntityTooLarge, "Payload Too Large", "Request body exceeds 1 MiB")
			return
		}
		WriteErrorR(w, r, http.StatusBadRequest, "Bad Request", "Unable to read request body")
		return
	}

	var req llm.PredictRequest
	if isJSON(r) && len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			WriteErrorR(w, r, http.StatusBadRequest, "Bad Request", "Invalid request body")
			return
		}
	}

	payload, err := json.Marshal(req)
	if err != nil {
		WriteInternal(w, err)
		return
	}

	ctx := r.Context()
	out, err := h.upstream.Forward(ctx, payload)
	if err != nil {
		h.logger.ErrorContext(ctx, "prediction failed",
			"request_id", RequestIDFrom(ctx),
			"error", err,
		)
		WriteJSON(w, http.StatusInternalServerError, predictFailure)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out)
}

// isJSON reports whether the request declares a JSON body. Other bodies are
// ignored and the prompt is forwarded empty.
func isJSON(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "application/json"
}
