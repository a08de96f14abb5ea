// Package refine analyzes short texts for sentiment and asks a generative
// model for a constructive rewrite in the same language.
package refine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/genai"
)

// DefaultModel is the Gemini model used when none is configured.
const DefaultModel = "gemini-2.5-flash"

var (
	ErrMissingText   = errors.New("text is required")
	ErrMissingAPIKey = errors.New("api key is required")
	ErrNoResponse    = errors.New("no response from model")
)

// Generator produces a JSON completion for prompt, constrained by schema,
// billed to apiKey.
type Generator interface {
	Generate(ctx context.Context, apiKey, prompt string, schema *genai.Schema) (string, error)
}

// UpstreamError wraps a failure of the generative-AI call itself.
type UpstreamError struct {
	Err error
}

func (e *UpstreamError) Error() string { return "AI generation error: " + e.Err.Error() }
func (e *UpstreamError) Unwrap() error { return e.Err }

// Refiner runs one analysis per call. It holds no per-request state.
type Refiner struct {
	gen Generator
}

// NewRefiner creates a Refiner backed by gen.
func NewRefiner(gen Generator) *Refiner {
	return &Refiner{gen: gen}
}

// Refine validates the inputs, prompts the model and returns the validated result.
// Input problems return ErrMissingText or ErrMissingAPIKey; everything else is
// an *UpstreamError, ErrNoResponse, or a *ValidationError.
func (r *Refiner) Refine(ctx context.Context, text, apiKey string) (Result, error) {
	if strings.TrimSpace(text) == "" {
		return Result{}, ErrMissingText
	}
	if strings.TrimSpace(apiKey) == "" {
		return Result{}, ErrMissingAPIKey
	}

	start := time.Now()
	raw, err := r.gen.Generate(ctx, apiKey, BuildPrompt(text), ResponseSchema())
	if err != nil {
		return Result{}, &UpstreamError{Err: err}
	}
	if strings.TrimSpace(raw) == "" {
		return Result{}, ErrNoResponse
	}

	res, err := ParseResult(raw)
	if err != nil {
		return Result{}, fmt.Errorf("parsing model output: %w", err)
	}

	slog.Debug("text refined",
		"is_negative", res.IsNegative,
		"input_len", len([]rune(text)),
		"suggestion_len", len([]rune(res.Suggestion)),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}

// IsInputError reports whether err stems from the caller's request rather
// than the model.
func IsInputError(err error) bool {
	return errors.Is(err, ErrMissingText) || errors.Is(err, ErrMissingAPIKey)
}
