package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/kalambet/reframe/internal/refine"
	"github.com/kalambet/reframe/internal/stats"
	"github.com/kalambet/reframe/internal/storage"
)

// --- mocks ---

type mockKeys struct {
	key string
}

func (m *mockKeys) Load() (string, bool) {
	return m.key, m.key != ""
}

// --- helpers ---

func newTestMCPDeps(t *testing.T) (MCPDeps, *stats.Tracker) {
	t.Helper()
	store, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	tracker := stats.NewTracker(store)
	return MCPDeps{
		Refiner: &mockRefiner{result: negativeResult},
		Keys:    &mockKeys{key: "AIza-test"},
		Stats:   tracker,
	}, tracker
}

func toolText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("no content in result")
	}
	tc, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected TextContent, got %T", result.Content[0])
	}
	return tc.Text
}

func makeCallToolRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func makeReadResourceRequest(uri string) mcp.ReadResourceRequest {
	return mcp.ReadResourceRequest{
		Params: mcp.ReadResourceParams{
			URI: uri,
		},
	}
}

const testContext = `{"user":{"fid":6841,"username":"deodad"},"client":{"clientFid":9152,"added":true}}`

// --- tests ---

func TestMCPTool_RefineText(t *testing.T) {
	deps, tracker := newTestMCPDeps(t)
	handler := mcpRefineText(deps)

	req := makeCallToolRequest("refine_text", map[string]interface{}{
		"text": "You never listen to me!",
	})

	result, err := handler(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected error: %s", toolText(t, result))
	}

	var got refine.Result
	if err := json.Unmarshal([]byte(toolText(t, result)), &got); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if got != negativeResult {
		t.Errorf("result = %+v, want %+v", got, negativeResult)
	}

	s := tracker.Load()
	if s.TotalAnalyses != 1 || s.NegativeCount != 1 || s.PositiveCount != 0 {
		t.Errorf("stats = %+v, want one negative analysis", s)
	}
}

func TestMCPTool_RefineText_NoStoredKey(t *testing.T) {
	deps, tracker := newTestMCPDeps(t)
	deps.Keys = &mockKeys{}
	handler := mcpRefineText(deps)

	req := makeCallToolRequest("refine_text", map[string]interface{}{"text": "hello"})
	result, err := handler(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected error result without a stored key")
	}
	if !strings.Contains(toolText(t, result), "key set") {
		t.Errorf("message = %q, want a hint to store a key", toolText(t, result))
	}
	if tracker.Load().TotalAnalyses != 0 {
		t.Error("statistics recorded for a failed analysis")
	}
}

func TestMCPTool_RefineText_MissingText(t *testing.T) {
	deps, _ := newTestMCPDeps(t)
	handler := mcpRefineText(deps)

	for _, args := range []map[string]interface{}{{}, {"text": "  "}} {
		result, err := handler(context.Background(), makeCallToolRequest("refine_text", args))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !result.IsError {
			t.Errorf("args %v: expected error result", args)
		}
	}
}

func TestMCPTool_RefineText_UpstreamFailure(t *testing.T) {
	deps, tracker := newTestMCPDeps(t)
	deps.Refiner = &mockRefiner{err: &refine.UpstreamError{Err: errors.New("quota exceeded")}}
	handler := mcpRefineText(deps)

	result, err := handler(context.Background(), makeCallToolRequest("refine_text", map[string]interface{}{"text": "hi"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected error result")
	}
	if text := toolText(t, result); text != "AI Generation Error" {
		t.Errorf("message = %q", text)
	}
	if tracker.Load().TotalAnalyses != 0 {
		t.Error("statistics recorded for a failed analysis")
	}
}

func TestMCPTool_ComposeCast(t *testing.T) {
	handler := mcpComposeCast()

	req := makeCallToolRequest("compose_cast", map[string]interface{}{
		"text":    "  I feel unheard sometimes, can we talk?  ",
		"context": testContext,
	})
	result, err := handler(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected error: %s", toolText(t, result))
	}

	u, err := url.Parse(toolText(t, result))
	if err != nil {
		t.Fatalf("parsing compose URL: %v", err)
	}
	if got := u.Query().Get("text"); got != "I feel unheard sometimes, can we talk?" {
		t.Errorf("text = %q, want trimmed text", got)
	}
}

func TestMCPTool_ComposeCast_Errors(t *testing.T) {
	handler := mcpComposeCast()

	tests := []struct {
		name string
		args map[string]interface{}
		want string
	}{
		{"blank text", map[string]interface{}{"text": " ", "context": testContext}, "Please enter text to publish"},
		{"no context", map[string]interface{}{"text": "hello"}, "Not running in Farcaster"},
		{"bad context", map[string]interface{}{"text": "hello", "context": "{"}, "invalid context"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := handler(context.Background(), makeCallToolRequest("compose_cast", tt.args))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !result.IsError {
				t.Fatal("expected error result")
			}
			if text := toolText(t, result); !strings.Contains(text, tt.want) {
				t.Errorf("message = %q, want it to contain %q", text, tt.want)
			}
		})
	}
}

func TestMCPResource_Stats(t *testing.T) {
	deps, tracker := newTestMCPDeps(t)
	if _, err := tracker.Record(true); err != nil {
		t.Fatal(err)
	}
	if _, err := tracker.Record(false); err != nil {
		t.Fatal(err)
	}

	handler := mcpResourceStats(deps)
	contents, err := handler(context.Background(), makeReadResourceRequest("stats://current"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(contents) != 1 {
		t.Fatalf("expected 1 content, got %d", len(contents))
	}

	trc, ok := contents[0].(mcp.TextResourceContents)
	if !ok {
		t.Fatalf("expected TextResourceContents, got %T", contents[0])
	}
	if trc.URI != "stats://current" || trc.MIMEType != "application/json" {
		t.Errorf("URI/MIME = %q %q", trc.URI, trc.MIMEType)
	}
	if trc.Text != `{"totalAnalyses":2,"negativeCount":1,"positiveCount":1}` {
		t.Errorf("text = %s", trc.Text)
	}
}

func TestMCPResource_Schema(t *testing.T) {
	handler := mcpResourceSchema()
	contents, err := handler(context.Background(), makeReadResourceRequest("schema://refine-result"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	trc, ok := contents[0].(mcp.TextResourceContents)
	if !ok {
		t.Fatalf("expected TextResourceContents, got %T", contents[0])
	}

	var doc struct {
		Required []string `json:"required"`
	}
	if err := json.Unmarshal([]byte(trc.Text), &doc); err != nil {
		t.Fatalf("schema is not JSON: %v", err)
	}
	if len(doc.Required) != 4 {
		t.Errorf("required = %v, want the four result fields", doc.Required)
	}
}

func TestNewMCPServer_Registers(t *testing.T) {
	deps, _ := newTestMCPDeps(t)
	s := NewMCPServer(deps)
	if s == nil {
		t.Fatal("NewMCPServer returned nil")
	}
}
