// Package ingest turns documents into embedded, indexed chunks.
package ingest

import (
	"fmt"

	"github.com/hyperjump/kotae/internal/models"
)

// Chunker splits text into fixed-size overlapping windows. Sizes are
// measured in runes so multi-byte text never splits mid-character.
type Chunker struct {
	maxSize int
	overlap int
}

// NewChunker validates the window parameters. overlap must be strictly
// smaller than maxSize or the window could never advance.
func NewChunker(maxSize, overlap int) (*Chunker, error) {
	if maxSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", maxSize)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("chunk overlap must not be negative, got %d", overlap)
	}
	if overlap >= maxSize {
		return nil, fmt.Errorf("chunk overlap (%d) must be smaller than chunk size (%d)", overlap, maxSize)
	}
	return &Chunker{maxSize: maxSize, overlap: overlap}, nil
}

// Split returns the chunks of text in order, each carrying its index.
// Consecutive chunks share the last overlap runes of the previous window.
// Empty text yields no chunks.
func (c *Chunker) Split(text string) []models.Chunk {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	step := c.maxSize - c.overlap
	var chunks []models.Chunk
	for off := 0; ; off += step {
		end := off + c.maxSize
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, models.Chunk{
			Index: len(chunks),
			Text:  string(runes[off:end]),
		})
		if end == len(runes) {
			break
		}
	}
	return chunks
}
