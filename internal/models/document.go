// Package models defines core data structures for documents, chunks, and vector records.
package models

import "time"

// Document is an ingested source document as recorded in the registry.
// The chunk text itself lives in the vector store payloads, not here.
type Document struct {
	ID         string    `json:"id" db:"id"`
	Source     string    `json:"source" db:"source"`
	ChunkCount int       `json:"chunk_count" db:"chunk_count"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

// Chunk is a contiguous span of a document's text with its sequence index.
// Chunks are ephemeral; they exist only for the duration of one ingestion.
type Chunk struct {
	Index int
	Text  string
}

// VectorRecord is one embedded chunk ready for upsert, keyed by a stable ID
// so re-ingesting the same document overwrites rather than duplicates.
type VectorRecord struct {
	ID       string
	Vector   []float32
	Metadata ChunkMetadata
}

// ChunkMetadata is the provenance payload stored alongside each vector.
type ChunkMetadata struct {
	Chunk      string `json:"chunk"`
	Source     string `json:"source"`
	ChunkIndex int    `json:"chunkIndex"`
	CreatedAt  string `json:"createdAt"`
}

// Match is a single similarity-search hit, ordered by descending score.
type Match struct {
	ID       string
	Score    float64
	Metadata ChunkMetadata
}

// IngestResult reports the outcome of ingesting one document.
type IngestResult struct {
	DocumentID string `json:"documentId"`
	Filename   string `json:"filename"`
	Chunks     int    `json:"chunks"`
}
