// Package query answers prompts with retrieval-grounded generation.
package query

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/llm"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/vectorstore"
)

const systemInstructionPrefix = "You are a helpful assistant. Use the following context to answer the user's question. If the context doesn't contain relevant information, say so.\n\nContext:\n"

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets a logger for debug output (match counts, context sizes, etc.).
func WithLogger(l *zap.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = l
	}
}

// Engine runs the retrieval round trip: embed the prompt, search the vector
// store, and generate an answer grounded in the retrieved chunks.
type Engine struct {
	embedder  embedding.Embedder
	store     vectorstore.VectorStore
	generator llm.Generator
	topK      int
	logger    *zap.Logger
}

// NewEngine wires the retrieval stages together. topK is the number of
// chunks retrieved per prompt.
func NewEngine(embedder embedding.Embedder, store vectorstore.VectorStore, generator llm.Generator, topK int, opts ...EngineOption) *Engine {
	e := &Engine{
		embedder:  embedder,
		store:     store,
		generator: generator,
		topK:      topK,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Answer embeds the prompt, retrieves the closest chunks, and asks the
// generation provider for an answer constrained to that context. When no
// usable context is found the fixed insufficiency answer is returned and
// the provider is never called.
func (e *Engine) Answer(ctx context.Context, prompt string) (*models.Answer, error) {
	vector, err := e.embedder.Embed(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("embed prompt: %w", err)
	}

	matches, err := e.store.Query(ctx, vector, e.topK)
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}

	chunks := make([]string, 0, len(matches))
	for _, m := range matches {
		if m.Metadata.Chunk == "" {
			continue
		}
		chunks = append(chunks, m.Metadata.Chunk)
	}
	e.logger.Debug("context retrieved",
		zap.Int("matches", len(matches)),
		zap.Int("usable_chunks", len(chunks)))

	if len(chunks) == 0 {
		return models.InsufficientContextAnswer(), nil
	}

	instruction := systemInstructionPrefix + strings.Join(chunks, "\n\n")
	response, err := e.generator.Generate(ctx, instruction, prompt)
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}
	return &models.Answer{
		Response:    response,
		ContextUsed: chunks,
		Grounded:    true,
	}, nil
}
