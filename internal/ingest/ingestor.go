package ingest

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/extract"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/vectorstore"
)

// Registry records which documents exist and how many chunks each produced.
type Registry interface {
	RecordDocument(ctx context.Context, doc *models.Document) error
	GetDocument(ctx context.Context, id string) (*models.Document, error)
	DeleteDocument(ctx context.Context, id string) error
}

// IngestorOption configures an Ingestor.
type IngestorOption func(*Ingestor)

// WithLogger sets a logger for debug output (chunks produced, vectors upserted, etc.).
func WithLogger(l *zap.Logger) IngestorOption {
	return func(ing *Ingestor) {
		ing.logger = l
	}
}

// Ingestor runs the extract, chunk, embed, upsert pipeline for one document
// at a time. Safe for concurrent use as long as its collaborators are.
type Ingestor struct {
	extractor *extract.Extractor
	chunker   *Chunker
	embedder  embedding.Embedder
	store     vectorstore.VectorStore
	registry  Registry
	logger    *zap.Logger
}

// NewIngestor wires the pipeline stages together. registry may be nil when no
// document bookkeeping is wanted (e.g. one-shot CLI ingestion).
func NewIngestor(extractor *extract.Extractor, chunker *Chunker, embedder embedding.Embedder, store vectorstore.VectorStore, registry Registry, opts ...IngestorOption) *Ingestor {
	ing := &Ingestor{
		extractor: extractor,
		chunker:   chunker,
		embedder:  embedder,
		store:     store,
		registry:  registry,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(ing)
	}
	return ing
}

// IngestFile runs the full pipeline for the file at path under the document
// identity docID. Chunk IDs are derived from docID, so re-ingesting under the
// same identity overwrites the previous vectors instead of duplicating them.
// A document whose extracted text is empty succeeds with zero chunks and
// nothing is sent to the vector store.
func (ing *Ingestor) IngestFile(ctx context.Context, path, docID string) (*models.IngestResult, error) {
	text, err := ing.extractor.Extract(path)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", filepath.Base(path), err)
	}

	chunks := ing.chunker.Split(text)
	result := &models.IngestResult{
		DocumentID: docID,
		Filename:   filepath.Base(path),
		Chunks:     len(chunks),
	}
	if len(chunks) == 0 {
		ing.logger.Debug("document produced no chunks", zap.String("doc", docID))
		return result, ing.record(ctx, docID, result.Filename, 0)
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := ing.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed %s: %w", docID, err)
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("embed %s: got %d vectors for %d chunks", docID, len(vectors), len(chunks))
	}

	createdAt := time.Now().UTC().Format(time.RFC3339)
	records := make([]models.VectorRecord, len(chunks))
	for i, c := range chunks {
		records[i] = models.VectorRecord{
			ID:     ChunkID(docID, c.Index),
			Vector: vectors[i],
			Metadata: models.ChunkMetadata{
				Chunk:      c.Text,
				Source:     docID,
				ChunkIndex: c.Index,
				CreatedAt:  createdAt,
			},
		}
	}
	if _, err := ing.store.Upsert(ctx, records); err != nil {
		return nil, fmt.Errorf("upsert %s: %w", docID, err)
	}

	ing.logger.Debug("document indexed",
		zap.String("doc", docID),
		zap.Int("chunks", len(chunks)))
	return result, ing.record(ctx, docID, result.Filename, len(chunks))
}

// IngestFiles ingests each file independently under its own document
// identity. One document's failure never blocks the others; results and
// errors are positionally aligned with paths.
func (ing *Ingestor) IngestFiles(ctx context.Context, paths, docIDs []string) ([]*models.IngestResult, []error) {
	results := make([]*models.IngestResult, len(paths))
	errs := make([]error, len(paths))
	for i, path := range paths {
		results[i], errs[i] = ing.IngestFile(ctx, path, docIDs[i])
	}
	return results, errs
}

// RemoveDocument deletes a document's vectors and its registry entry. The
// chunk IDs are reconstructed from the recorded chunk count. Unknown
// documents are a no-op.
func (ing *Ingestor) RemoveDocument(ctx context.Context, docID string) error {
	if ing.registry == nil {
		return nil
	}
	doc, err := ing.registry.GetDocument(ctx, docID)
	if err != nil {
		return nil
	}
	ids := make([]string, doc.ChunkCount)
	for i := range ids {
		ids[i] = ChunkID(docID, i)
	}
	if err := ing.store.Delete(ctx, ids); err != nil {
		return fmt.Errorf("delete vectors for %s: %w", docID, err)
	}
	if err := ing.registry.DeleteDocument(ctx, docID); err != nil {
		return fmt.Errorf("delete registry entry for %s: %w", docID, err)
	}
	ing.logger.Debug("document removed", zap.String("doc", docID), zap.Int("chunks", doc.ChunkCount))
	return nil
}

func (ing *Ingestor) record(ctx context.Context, docID, source string, chunks int) error {
	if ing.registry == nil {
		return nil
	}
	doc := &models.Document{ID: docID, Source: source, ChunkCount: chunks}
	if prev, err := ing.registry.GetDocument(ctx, docID); err == nil {
		doc.CreatedAt = prev.CreatedAt
	}
	if err := ing.registry.RecordDocument(ctx, doc); err != nil {
		return fmt.Errorf("record document %s: %w", docID, err)
	}
	return nil
}
