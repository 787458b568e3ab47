package vectorstore

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/hyperjump/kotae/internal/models"
)

// MemoryStore is an in-memory vector store using brute-force cosine search.
// Records are keyed by ID so repeated upserts overwrite rather than append.
type MemoryStore struct {
	dimensions int
	records    map[string]models.VectorRecord
	mu         sync.RWMutex
}

// NewMemoryStore creates an in-memory store expecting vectors of the given dimension.
func NewMemoryStore(dimensions int) (*MemoryStore, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	return &MemoryStore{
		dimensions: dimensions,
		records:    make(map[string]models.VectorRecord),
	}, nil
}

// Upsert inserts or fully replaces each record by ID. Returns the batch size.
func (m *MemoryStore) Upsert(ctx context.Context, records []models.VectorRecord) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rec := range records {
		if len(rec.Vector) != m.dimensions {
			return 0, fmt.Errorf("vector dimension mismatch for %q: got %d, expected %d",
				rec.ID, len(rec.Vector), m.dimensions)
		}
		vec := make([]float32, m.dimensions)
		copy(vec, rec.Vector)
		rec.Vector = vec
		m.records[rec.ID] = rec
	}
	return len(records), nil
}

// Query returns up to topK records by descending cosine similarity.
func (m *MemoryStore) Query(ctx context.Context, query []float32, topK int) ([]models.Match, error) {
	if len(query) != m.dimensions {
		return nil, fmt.Errorf("query dimension mismatch: got %d, expected %d", len(query), m.dimensions)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if topK <= 0 || len(m.records) == 0 {
		return nil, nil
	}
	matches := make([]models.Match, 0, len(m.records))
	for id, rec := range m.records {
		matches = append(matches, models.Match{
			ID:       id,
			Score:    cosineSimilarity(query, rec.Vector),
			Metadata: rec.Metadata,
		})
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].ID < matches[j].ID
	})
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

// Delete removes the records with the given IDs. Unknown IDs are ignored.
func (m *MemoryStore) Delete(ctx context.Context, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		delete(m.records, id)
	}
	return nil
}

// Size returns the number of stored records.
func (m *MemoryStore) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

// Close is a no-op for MemoryStore.
func (m *MemoryStore) Close() error {
	return nil
}

func cosineSimilarity(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i] * b[i])
		normA += float64(a[i] * a[i])
		normB += float64(b[i] * b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
