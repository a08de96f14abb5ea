package gemini

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"
)

const defaultTimeout = 60 * time.Second

// Client calls the Gemini API with the caller's API key. A genai client is
// built per call because every request may carry a different key.
type Client struct {
	model      string
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for model against the public Gemini endpoint.
func NewClient(model string) *Client {
	return &Client{
		model:      model,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
}

// NewClientWithBaseURL creates a client pointing at a custom base URL (for testing).
func NewClientWithBaseURL(model, baseURL string) *Client {
	c := NewClient(model)
	c.baseURL = strings.TrimRight(baseURL, "/")
	return c
}

// Model returns the model name requests are sent to.
func (c *Client) Model() string {
	return c.model
}

// Generate sends a single generateContent request asking for JSON output that
// matches schema and returns the text of the first candidate. An empty string
// with a nil error means the model answered with no text.
func (c *Client) Generate(ctx context.Context, apiKey, prompt string, schema *genai.Schema) (string, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  c.httpClient,
		HTTPOptions: genai.HTTPOptions{BaseURL: c.baseURL},
	})
	if err != nil {
		return "", fmt.Errorf("creating genai client: %w", err)
	}

	resp, err := client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   schema,
	})
	if err != nil {
		return "", fmt.Errorf("generating content: %w", err)
	}
	if resp == nil {
		return "", nil
	}
	return resp.Text(), nil
}
