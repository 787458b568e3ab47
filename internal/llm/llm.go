// Package llm provides text generation via external chat-completion providers.
package llm

import (
	"context"
	"fmt"

	"github.com/hyperjump/kotae/internal/config"
)

// Generator produces a completion from a system instruction and a user prompt,
// supplied as separate turns.
type Generator interface {
	Generate(ctx context.Context, systemInstruction, userPrompt string) (string, error)
	Close() error
}

// NewGenerator creates a generator for the configured provider.
// Supported providers: "openai" (and OpenAI-compatible endpoints), "ollama".
func NewGenerator(cfg config.LLMConfig) (Generator, error) {
	switch cfg.Provider {
	case "openai", "":
		return NewOpenAIGenerator(cfg.APIKeyEnv, cfg.Model, cfg.BaseURL, cfg.Temperature)
	case "ollama":
		return NewOllamaGenerator(cfg.Model, cfg.BaseURL, cfg.Temperature)
	default:
		return nil, fmt.Errorf("unknown llm provider: %s (supported: openai, ollama)", cfg.Provider)
	}
}
