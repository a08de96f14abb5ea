package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/kalambet/reframe/internal/miniapp"
	"github.com/kalambet/reframe/internal/refine"
)

// mockRefiner mirrors refine.Refiner's input checks and returns a canned result.
type mockRefiner struct {
	result refine.Result
	err    error
	calls  int
	panics bool
}

func (m *mockRefiner) Refine(_ context.Context, text, apiKey string) (refine.Result, error) {
	m.calls++
	if m.panics {
		panic("boom")
	}
	if strings.TrimSpace(text) == "" {
		return refine.Result{}, refine.ErrMissingText
	}
	if strings.TrimSpace(apiKey) == "" {
		return refine.Result{}, refine.ErrMissingAPIKey
	}
	return m.result, m.err
}

var negativeResult = refine.Result{
	Sentiment:  "Frustrated and accusatory",
	Reasoning:  "The writer feels unheard and generalizes with 'never'.",
	Suggestion: "I feel unheard sometimes, can we talk?",
	IsNegative: true,
}

func newTestHandler(rf Refiner) http.Handler {
	return NewHandler(Deps{
		Refiner:  rf,
		Manifest: miniapp.BuildManifest(miniapp.ManifestConfig{RootURL: "https://reframe.example"}),
	})
}

func postRefine(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/refine", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decoding error body: %v", err)
	}
	msg, ok := body["error"]
	if !ok {
		t.Fatalf("response has no error field: %v", body)
	}
	return msg
}

func TestRefine_Success(t *testing.T) {
	rf := &mockRefiner{result: negativeResult}
	h := newTestHandler(rf)

	rec := postRefine(t, h, `{"text":"You never listen to me!","apiKey":"AIza-test"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}

	var got map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	for _, field := range []string{"sentiment", "reasoning", "suggestion", "isNegative"} {
		if _, ok := got[field]; !ok {
			t.Errorf("response missing %q", field)
		}
	}
	if got["isNegative"] != true {
		t.Errorf("isNegative = %v, want true", got["isNegative"])
	}
}

func TestRefine_MissingAPIKey(t *testing.T) {
	rf := &mockRefiner{result: negativeResult}
	h := newTestHandler(rf)

	rec := postRefine(t, h, `{"text":"You never listen to me!"}`)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if msg := decodeError(t, rec); msg != "API Key is required" {
		t.Errorf("error = %q", msg)
	}
}

func TestRefine_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{"missing text", `{"apiKey":"k"}`, nil, http.StatusBadRequest, "Text is required"},
		{"blank text", `{"text":"   ","apiKey":"k"}`, nil, http.StatusBadRequest, "Text is required"},
		{"text checked before key", `{}`, nil, http.StatusBadRequest, "Text is required"},
		{"blank key", `{"text":"hi","apiKey":" "}`, nil, http.StatusUnauthorized, "API Key is required"},
		{"malformed body", `{"text":`, nil, http.StatusBadRequest, "Invalid request body"},
		{"no response", `{"text":"hi","apiKey":"k"}`, refine.ErrNoResponse, http.StatusInternalServerError, "No response from AI"},
		{
			"validation failure", `{"text":"hi","apiKey":"k"}`,
			fmt.Errorf("parsing model output: %w", &refine.ValidationError{Problems: []string{"isNegative is required"}}),
			http.StatusInternalServerError, "Invalid response from AI",
		},
		{
			"upstream failure", `{"text":"hi","apiKey":"k"}`,
			&refine.UpstreamError{Err: errors.New("403 API key not valid")},
			http.StatusInternalServerError, "AI Generation Error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(&mockRefiner{result: negativeResult, err: tt.err})
			rec := postRefine(t, h, tt.body)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			msg := decodeError(t, rec)
			if msg != tt.wantMsg {
				t.Errorf("error = %q, want %q", msg, tt.wantMsg)
			}
			// Upstream detail never reaches the client.
			if strings.Contains(msg, "403") {
				t.Errorf("error leaks upstream detail: %q", msg)
			}
		})
	}
}

func TestRefine_BodyTooLarge(t *testing.T) {
	rf := &mockRefiner{result: negativeResult}
	h := newTestHandler(rf)

	big := `{"text":"` + strings.Repeat("a", maxRequestBodySize+1) + `","apiKey":"k"}`
	rec := postRefine(t, h, big)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if rf.calls != 0 {
		t.Errorf("refiner called %d times for oversized body", rf.calls)
	}
}

func TestRefine_MethodNotAllowed(t *testing.T) {
	h := newTestHandler(&mockRefiner{})

	req := httptest.NewRequest(http.MethodGet, "/api/refine", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}

func TestRefine_PanicRecovered(t *testing.T) {
	h := newTestHandler(&mockRefiner{panics: true})

	rec := postRefine(t, h, `{"text":"hi","apiKey":"k"}`)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if msg := decodeError(t, rec); msg == "" {
		t.Error("empty error message")
	}
}

func TestHealth(t *testing.T) {
	h := newTestHandler(&mockRefiner{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != `{"status":"ok"}` {
		t.Errorf("body = %s", got)
	}
}

func TestManifest(t *testing.T) {
	h := newTestHandler(&mockRefiner{})

	req := httptest.NewRequest(http.MethodGet, "/.well-known/farcaster.json", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var m miniapp.Manifest
	if err := json.NewDecoder(rec.Body).Decode(&m); err != nil {
		t.Fatalf("decoding manifest: %v", err)
	}
	if m.MiniApp.HomeURL != "https://reframe.example" {
		t.Errorf("HomeURL = %q", m.MiniApp.HomeURL)
	}
}

func TestRequestID(t *testing.T) {
	h := newTestHandler(&mockRefiner{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	id := rec.Header().Get("X-Request-Id")
	if _, err := uuid.Parse(id); err != nil {
		t.Errorf("X-Request-Id = %q is not a UUID", id)
	}

	// A well-formed incoming id is echoed back.
	want := uuid.NewString()
	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-Id", want)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Request-Id"); got != want {
		t.Errorf("X-Request-Id = %q, want %q", got, want)
	}

	// Garbage is replaced.
	req = httptest.NewRequest(http.MethodGet, "/health", bytes.NewReader(nil))
	req.Header.Set("X-Request-Id", "not an id\n")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Request-Id"); got == "not an id\n" {
		t.Error("malformed request id echoed back")
	}
}
