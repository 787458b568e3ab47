package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
)

// OllamaGenerator generates completions through a local Ollama server.
type OllamaGenerator struct {
	client      *api.Client
	model       string
	temperature float64
}

// NewOllamaGenerator connects to the Ollama server at baseURL
// (http://localhost:11434 when empty).
func NewOllamaGenerator(model, baseURL string, temperature float64) (*OllamaGenerator, error) {
	if model == "" {
		model = "llama3"
	}
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama base URL %q: %w", baseURL, err)
	}
	return &OllamaGenerator{
		client:      api.NewClient(u, &http.Client{Timeout: 5 * time.Minute}),
		model:       model,
		temperature: temperature,
	}, nil
}

// Generate collects the streamed chat response into a single string.
func (g *OllamaGenerator) Generate(ctx context.Context, systemInstruction, userPrompt string) (string, error) {
	stream := true
	req := &api.ChatRequest{
		Model: g.model,
		Messages: []api.Message{
			{Role: "system", Content: systemInstruction},
			{Role: "user", Content: userPrompt},
		},
		Stream: &stream,
		Options: map[string]any{
			"temperature": g.temperature,
		},
	}
	var content strings.Builder
	err := g.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		content.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("ollama chat: %w", err)
	}
	return content.String(), nil
}

// Close is a no-op.
func (g *OllamaGenerator) Close() error {
	return nil
}
