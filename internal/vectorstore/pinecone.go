package vectorstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/models"
)

// PineconeStore is a minimal REST client to a Pinecone serverless index.
// The index host is the per-index endpoint shown in the Pinecone console.
type PineconeStore struct {
	indexHost string
	apiKey    string
	client    *http.Client
}

type pineconeVector struct {
	ID       string               `json:"id"`
	Values   []float32            `json:"values"`
	Metadata models.ChunkMetadata `json:"metadata"`
}

type pineconeUpsertRequest struct {
	Vectors []pineconeVector `json:"vectors"`
}

type pineconeUpsertResponse struct {
	UpsertedCount int `json:"upsertedCount"`
}

type pineconeQueryRequest struct {
	Vector          []float32 `json:"vector"`
	TopK            int       `json:"topK"`
	IncludeMetadata bool      `json:"includeMetadata"`
}

type pineconeQueryResponse struct {
	Matches []struct {
		ID       string               `json:"id"`
		Score    float64              `json:"score"`
		Metadata models.ChunkMetadata `json:"metadata"`
	} `json:"matches"`
}

// NewPineconeStore reads the API key from the configured env var and returns
// a client bound to the index host.
func NewPineconeStore(cfg config.PineconeConfig) (*PineconeStore, error) {
	apiKey := os.Getenv(cfg.APIKeyEnv)
	if apiKey == "" {
		return nil, fmt.Errorf("API key not found in environment variable: %s", cfg.APIKeyEnv)
	}
	if cfg.IndexHost == "" {
		return nil, fmt.Errorf("pinecone index host is required")
	}
	return &PineconeStore{
		indexHost: cfg.IndexHost,
		apiKey:    apiKey,
		client:    &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// Upsert writes the whole batch in one call. Records with an existing ID are
// fully replaced. Partial failure surfaces as a single error for the batch.
func (s *PineconeStore) Upsert(ctx context.Context, records []models.VectorRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	vectors := make([]pineconeVector, len(records))
	for i, rec := range records {
		vectors[i] = pineconeVector{ID: rec.ID, Values: rec.Vector, Metadata: rec.Metadata}
	}
	var out pineconeUpsertResponse
	if err := s.postJSON(ctx, "/vectors/upsert", pineconeUpsertRequest{Vectors: vectors}, &out); err != nil {
		return 0, fmt.Errorf("pinecone upsert: %w", err)
	}
	return out.UpsertedCount, nil
}

// Query searches the index, returning matches in descending score order.
func (s *PineconeStore) Query(ctx context.Context, vector []float32, topK int) ([]models.Match, error) {
	if topK <= 0 {
		return nil, nil
	}
	var out pineconeQueryResponse
	req := pineconeQueryRequest{Vector: vector, TopK: topK, IncludeMetadata: true}
	if err := s.postJSON(ctx, "/query", req, &out); err != nil {
		return nil, fmt.Errorf("pinecone query: %w", err)
	}
	matches := make([]models.Match, 0, len(out.Matches))
	for _, m := range out.Matches {
		matches = append(matches, models.Match{ID: m.ID, Score: m.Score, Metadata: m.Metadata})
	}
	return matches, nil
}

// Delete removes the vectors with the given IDs from the index.
func (s *PineconeStore) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	body := struct {
		IDs []string `json:"ids"`
	}{IDs: ids}
	if err := s.postJSON(ctx, "/vectors/delete", body, nil); err != nil {
		return fmt.Errorf("pinecone delete: %w", err)
	}
	return nil
}

func (s *PineconeStore) postJSON(ctx context.Context, path string, body any, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.indexHost+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Api-Key", s.apiKey)
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("POST %s returned %s: %s", path, resp.Status, string(b))
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

// Close is a no-op; the HTTP client holds no resources needing release.
func (s *PineconeStore) Close() error {
	return nil
}
