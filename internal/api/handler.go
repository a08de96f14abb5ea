package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/reframe/internal/miniapp"
	"github.com/kalambet/reframe/internal/refine"
)

const maxRequestBodySize = 1 << 20 // 1MB

// Refiner runs one sentiment analysis and rewrite.
type Refiner interface {
	Refine(ctx context.Context, text, apiKey string) (refine.Result, error)
}

// Deps holds dependencies for the HTTP API.
type Deps struct {
	Refiner  Refiner
	Manifest miniapp.Manifest
}

// NewHandler returns the HTTP API: the refine proxy endpoint, the mini-app
// manifest and a health check.
func NewHandler(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(requestLogger)
	r.Use(recoverer)

	r.Get("/health", handleHealth)
	r.Get("/.well-known/farcaster.json", handleManifest(deps.Manifest))
	r.Post("/api/refine", handleRefine(deps.Refiner))

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func handleManifest(m miniapp.Manifest) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, m)
	}
}

// RefineRequest is the body accepted by POST /api/refine.
type RefineRequest struct {
	Text   string `json:"text"`
	APIKey string `json:"apiKey"`
}

func handleRefine(rf Refiner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req RefineRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		res, err := rf.Refine(r.Context(), req.Text, req.APIKey)
		if err != nil {
			status, msg := refineErrorResponse(err)
			if refine.IsInputError(err) {
				slog.Debug("refine rejected", "request_id", requestIDFrom(r.Context()), "error", err)
			} else {
				slog.Error("refine failed", "request_id", requestIDFrom(r.Context()), "error", err)
			}
			httpError(w, status, "%s", msg)
			return
		}

		writeJSON(w, http.StatusOK, res)
	}
}

// refineErrorResponse maps a refine error onto the status and the message
// shown to the user. Upstream detail stays in the server log.
func refineErrorResponse(err error) (int, string) {
	var ve *refine.ValidationError
	switch {
	case errors.Is(err, refine.ErrMissingText):
		return http.StatusBadRequest, "Text is required"
	case errors.Is(err, refine.ErrMissingAPIKey):
		return http.StatusUnauthorized, "API Key is required"
	case errors.Is(err, refine.ErrNoResponse):
		return http.StatusInternalServerError, "No response from AI"
	case errors.As(err, &ve):
		return http.StatusInternalServerError, "Invalid response from AI"
	default:
		return http.StatusInternalServerError, "AI Generation Error"
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to encode response", "error", err)
	}
}

func httpError(w http.ResponseWriter, code int, format string, args ...any) {
	writeJSON(w, code, map[string]string{
		"error": fmt.Sprintf(format, args...),
	})
}
