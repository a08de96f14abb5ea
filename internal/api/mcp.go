package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kalambet/reframe/internal/miniapp"
	"github.com/kalambet/reframe/internal/refine"
	"github.com/kalambet/reframe/internal/stats"
)

// MCPKeys gives the MCP layer the locally stored Gemini API key.
type MCPKeys interface {
	Load() (string, bool)
}

// MCPStats records and reports analysis statistics.
type MCPStats interface {
	Load() stats.Statistics
	Record(isNegative bool) (stats.Statistics, error)
}

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Refiner Refiner
	Keys    MCPKeys
	Stats   MCPStats
}

// NewMCPServer creates an MCP server with the reframe tools and resources registered.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"reframe",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("reframe: turn negative posts into constructive ones before they are cast to Farcaster."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("refine_text",
			mcp.WithDescription("Classify the sentiment of a short text and suggest a constructive rewrite in the same language (English or Bahasa Indonesia)."),
			mcp.WithString("text", mcp.Description("The text to analyze"), mcp.Required()),
		),
		mcpRefineText(deps),
	)

	s.AddTool(
		mcp.NewTool("compose_cast",
			mcp.WithDescription("Build a Farcaster compose-cast link for the given text."),
			mcp.WithString("text", mcp.Description("Text of the cast"), mcp.Required()),
			mcp.WithString("context", mcp.Description("Mini-app context JSON as handed over by the Farcaster client")),
		),
		mcpComposeCast(),
	)

	s.AddResource(
		mcp.NewResource(
			"stats://current",
			"Analysis Statistics",
			mcp.WithResourceDescription("Total, negative and positive analysis counts as JSON"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceStats(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"schema://refine-result",
			"Refine Result Schema",
			mcp.WithResourceDescription("JSON Schema every refine_text result satisfies"),
			mcp.WithMIMEType("application/schema+json"),
		),
		mcpResourceSchema(),
	)

	return s
}

func mcpRefineText(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		text, err := req.RequireString("text")
		if err != nil || strings.TrimSpace(text) == "" {
			return mcpError("text is required"), nil
		}

		apiKey, ok := deps.Keys.Load()
		if !ok {
			return mcpError("no Gemini API key stored: run `reframe key set` first"), nil
		}

		res, err := deps.Refiner.Refine(ctx, text, apiKey)
		if err != nil {
			_, msg := refineErrorResponse(err)
			slog.Error("mcp refine failed", "error", err)
			return mcpError(msg), nil
		}

		if _, err := deps.Stats.Record(res.IsNegative); err != nil {
			slog.Warn("failed to record statistics", "error", err)
		}

		b, err := json.Marshal(res)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal result: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpComposeCast() server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		text := req.GetString("text", "")
		raw := req.GetString("context", "")

		var mc *miniapp.Context
		if strings.TrimSpace(raw) != "" {
			parsed, err := miniapp.ParseContext(strings.NewReader(raw))
			if err != nil {
				return mcpError(fmt.Sprintf("invalid context: %v", err)), nil
			}
			mc = parsed
		}

		cast, err := miniapp.Compose(mc, text)
		if err != nil {
			if msg, ok := miniapp.UserMessage(err); ok {
				return mcpError(msg), nil
			}
			return mcpError(err.Error()), nil
		}

		return mcpText(cast.URL()), nil
	}
}

func mcpResourceStats(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		b, err := json.Marshal(deps.Stats.Load())
		if err != nil {
			return nil, fmt.Errorf("failed to marshal statistics: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpResourceSchema() server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		b, err := refine.OutputJSONSchema()
		if err != nil {
			return nil, fmt.Errorf("failed to build schema: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/schema+json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
