// Package vectorstore provides vector persistence and similarity search
// against an external vector database, plus an in-memory implementation.
package vectorstore

import (
	"context"
	"fmt"

	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/models"
)

// VectorStore persists embedded chunks and supports top-K similarity search.
// Upsert fully replaces an existing record with the same ID (vector and
// metadata), never merges. Query returns matches in descending score order;
// fewer than topK matches (including zero) is valid, not an error.
type VectorStore interface {
	Upsert(ctx context.Context, records []models.VectorRecord) (int, error)
	Query(ctx context.Context, vector []float32, topK int) ([]models.Match, error)
	Delete(ctx context.Context, ids []string) error
	Close() error
}

// StoreType represents the configured vector store backend.
type StoreType string

const (
	// StoreTypeMemory uses in-process brute-force cosine search. For tests and small corpora.
	StoreTypeMemory StoreType = "memory"
	// StoreTypeQdrant talks to a Qdrant server over gRPC.
	StoreTypeQdrant StoreType = "qdrant"
	// StoreTypePinecone talks to a Pinecone index over its REST API.
	StoreTypePinecone StoreType = "pinecone"
)

// New creates the configured vector store, bound to one named index for the
// process lifetime. Supported types: "memory" (default), "qdrant", "pinecone".
func New(cfg config.VectorConfig, dimensions int) (VectorStore, error) {
	switch StoreType(cfg.Store) {
	case StoreTypeMemory, "":
		return NewMemoryStore(dimensions)
	case StoreTypeQdrant:
		return NewQdrantStore(cfg.Qdrant, cfg.Index, dimensions)
	case StoreTypePinecone:
		return NewPineconeStore(cfg.Pinecone)
	default:
		return nil, fmt.Errorf("unknown vector store: %s (supported: memory, qdrant, pinecone)", cfg.Store)
	}
}
