package gemini

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// DefaultModel is used when no model name is configured.
const DefaultModel = "gemini-2.0-flash"

// #region backend

// contentGenerator is the slice of *genai.Models the backend needs.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Backend is a generation backend on the Gemini API.
type Backend struct {
	models contentGenerator
	model  string
}

// New creates a Gemini backend. The API key is required.
func New(ctx context.Context, apiKey, model string) (*Backend, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini: API key is required")
	}
	if model == "" {
		model = DefaultModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &Backend{models: client.Models, model: model}, nil
}

// Name identifies the backend in response metadata.
func (b *Backend) Name() string {
	return "gemini:" + b.model
}

// Complete runs one sampled completion. An empty string means no usable output.
func (b *Backend) Complete(ctx context.Context, prompt string, maxNewTokens int, temperature float64) (string, error) {
	cfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(temperature)),
		MaxOutputTokens: int32(maxNewTokens),
	}
	resp, err := b.models.GenerateContent(ctx, b.model, genai.Text(prompt), cfg)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	return strings.TrimSpace(resp.Text()), nil
}

// #endregion
