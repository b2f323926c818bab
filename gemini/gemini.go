// Package gemini wraps the Google Gemini API behind the small Generator
// surface the tracing demos need: prompt in, text out, typed failure.
package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// DefaultModel is used when a request names no model.
const DefaultModel = "gemini-2.0-flash"

// Request describes one generation call.
type Request struct {
	Prompt          string
	Model           string
	Temperature     *float32
	MaxOutputTokens int32
}

// Usage holds token counts reported by the provider.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

// Response is the outcome of a successful generation call.
type Response struct {
	Text  string
	Model string
	Usage Usage
}

// Generator is the model-call collaborator consumed by the demo
// workflows. Implementations may block for the full provider round trip
// and must honor ctx cancellation.
type Generator interface {
	Generate(ctx context.Context, req Request) (*Response, error)
}

// GenerationError wraps any transport, quota, or content failure from the
// provider. It propagates to the caller unchanged; the tracing harness
// records it but never retries or masks it.
type GenerationError struct {
	Model string
	Err   error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("gemini: generation with %s failed: %v", e.Model, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// DecodeJSON parses a JSON document out of a model response, tolerating
// the markdown code fences models often wrap structured output in. A
// response that does not decode into v is returned as an error: the
// caller sees the parse failure instead of a silently substituted value.
func DecodeJSON(text string, v any) error {
	cleaned := strings.TrimSpace(text)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	if err := json.Unmarshal([]byte(cleaned), v); err != nil {
		return fmt.Errorf("gemini: decode model JSON: %w", err)
	}
	return nil
}

// Config holds client construction options.
type Config struct {
	// APIKey authenticates against the Gemini API.
	APIKey string

	// Model overrides DefaultModel for requests that name none.
	Model string
}

// Client calls the Gemini API through the official genai SDK.
type Client struct {
	client       *genai.Client
	defaultModel string
}

// NewClient creates a Gemini-backed Generator.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini: API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}

	return &Client{
		client:       client,
		defaultModel: cfg.Model,
	}, nil
}

// Generate sends the prompt to the model and returns its text response.
func (c *Client) Generate(ctx context.Context, req Request) (*Response, error) {
	model := req.Model
	if model == "" {
		model = c.defaultModel
	}

	contents := []*genai.Content{
		genai.NewContentFromText(req.Prompt, genai.RoleUser),
	}

	var config *genai.GenerateContentConfig
	if req.Temperature != nil || req.MaxOutputTokens > 0 {
		config = &genai.GenerateContentConfig{
			Temperature:     req.Temperature,
			MaxOutputTokens: req.MaxOutputTokens,
		}
	}

	resp, err := c.client.Models.GenerateContent(ctx, model, contents, config)
	if err != nil {
		return nil, &GenerationError{Model: model, Err: err}
	}

	text := resp.Text()
	if text == "" {
		return nil, &GenerationError{Model: model, Err: errors.New("empty response")}
	}

	out := &Response{
		Text:  text,
		Model: model,
	}
	if resp.UsageMetadata != nil {
		out.Usage = Usage{
			InputTokens:  int(resp.UsageMetadata.PromptTokenCount),
			OutputTokens: int(resp.UsageMetadata.CandidatesTokenCount),
			TotalTokens:  int(resp.UsageMetadata.TotalTokenCount),
		}
	}

	return out, nil
}
