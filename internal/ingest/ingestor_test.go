package ingest

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/extract"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/vectorstore"
)

type fakeRegistry struct {
	docs map[string]*models.Document
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{docs: make(map[string]*models.Document)}
}

func (f *fakeRegistry) RecordDocument(_ context.Context, doc *models.Document) error {
	cp := *doc
	f.docs[doc.ID] = &cp
	return nil
}

func (f *fakeRegistry) GetDocument(_ context.Context, id string) (*models.Document, error) {
	doc, ok := f.docs[id]
	if !ok {
		return nil, os.ErrNotExist
	}
	return doc, nil
}

func (f *fakeRegistry) DeleteDocument(_ context.Context, id string) error {
	delete(f.docs, id)
	return nil
}

func writeDoc(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func newTestIngestor(t *testing.T, reg Registry) (*Ingestor, *vectorstore.MemoryStore) {
	t.Helper()
	chunker, err := NewChunker(100, 20)
	if err != nil {
		t.Fatal(err)
	}
	store, err := vectorstore.NewMemoryStore(384)
	if err != nil {
		t.Fatal(err)
	}
	emb := embedding.NewMockEmbedder(384)
	return NewIngestor(extract.NewExtractor(), chunker, emb, store, reg), store
}

func TestIngestor_IngestFile(t *testing.T) {
	dir := t.TempDir()
	path := writeDoc(t, dir, "a.txt", strings.Repeat("content ", 40))
	reg := newFakeRegistry()
	ing, store := newTestIngestor(t, reg)

	result, err := ing.IngestFile(context.Background(), path, "a.txt")
	if err != nil {
		t.Fatal(err)
	}
	if result.DocumentID != "a.txt" || result.Filename != "a.txt" {
		t.Errorf("result = %+v", result)
	}
	if result.Chunks < 2 {
		t.Errorf("expected multiple chunks, got %d", result.Chunks)
	}
	if store.Size() != result.Chunks {
		t.Errorf("store has %d records, result reports %d", store.Size(), result.Chunks)
	}
	doc, err := reg.GetDocument(context.Background(), "a.txt")
	if err != nil {
		t.Fatal(err)
	}
	if doc.ChunkCount != result.Chunks {
		t.Errorf("registry chunk_count = %d, want %d", doc.ChunkCount, result.Chunks)
	}
}

func TestIngestor_ReingestOverwrites(t *testing.T) {
	dir := t.TempDir()
	path := writeDoc(t, dir, "a.txt", strings.Repeat("stable text ", 30))
	ing, store := newTestIngestor(t, newFakeRegistry())
	ctx := context.Background()

	first, err := ing.IngestFile(ctx, path, "a.txt")
	if err != nil {
		t.Fatal(err)
	}
	second, err := ing.IngestFile(ctx, path, "a.txt")
	if err != nil {
		t.Fatal(err)
	}
	if first.Chunks != second.Chunks {
		t.Errorf("chunk counts differ: %d vs %d", first.Chunks, second.Chunks)
	}
	if store.Size() != first.Chunks {
		t.Errorf("re-ingest should overwrite, store has %d records, want %d", store.Size(), first.Chunks)
	}
}

func TestIngestor_EmptyDocument(t *testing.T) {
	dir := t.TempDir()
	path := writeDoc(t, dir, "empty.txt", "")
	reg := newFakeRegistry()
	ing, store := newTestIngestor(t, reg)

	result, err := ing.IngestFile(context.Background(), path, "empty.txt")
	if err != nil {
		t.Fatal(err)
	}
	if result.Chunks != 0 {
		t.Errorf("chunks = %d, want 0", result.Chunks)
	}
	if store.Size() != 0 {
		t.Errorf("nothing should be upserted, store has %d records", store.Size())
	}
	if _, err := reg.GetDocument(context.Background(), "empty.txt"); err != nil {
		t.Error("empty document should still be registered")
	}
}

func TestIngestor_IngestFilesIsolatesFailures(t *testing.T) {
	dir := t.TempDir()
	good := writeDoc(t, dir, "good.txt", "some good text")
	bad := writeDoc(t, dir, "bad.xyz", "unsupported")
	ing, _ := newTestIngestor(t, newFakeRegistry())

	results, errs := ing.IngestFiles(context.Background(),
		[]string{bad, good}, []string{"bad.xyz", "good.txt"})
	if errs[0] == nil {
		t.Error("unsupported format should fail")
	}
	if errs[1] != nil {
		t.Errorf("good document should succeed despite earlier failure: %v", errs[1])
	}
	if results[1] == nil || results[1].Chunks != 1 {
		t.Errorf("results[1] = %+v", results[1])
	}
}

func TestIngestor_RemoveDocument(t *testing.T) {
	dir := t.TempDir()
	path := writeDoc(t, dir, "a.txt", strings.Repeat("text to remove ", 30))
	reg := newFakeRegistry()
	ing, store := newTestIngestor(t, reg)
	ctx := context.Background()

	result, err := ing.IngestFile(ctx, path, "a.txt")
	if err != nil {
		t.Fatal(err)
	}
	if err := ing.RemoveDocument(ctx, "a.txt"); err != nil {
		t.Fatal(err)
	}
	if store.Size() != 0 {
		t.Errorf("expected empty store after removal, has %d of %d records", store.Size(), result.Chunks)
	}
	if _, err := reg.GetDocument(ctx, "a.txt"); err == nil {
		t.Error("registry entry should be gone")
	}

	// Removing an unknown document is a no-op.
	if err := ing.RemoveDocument(ctx, "never-ingested"); err != nil {
		t.Fatal(err)
	}
}

func TestIngestor_MetadataPayload(t *testing.T) {
	dir := t.TempDir()
	path := writeDoc(t, dir, "meta.txt", "short body")
	ing, store := newTestIngestor(t, newFakeRegistry())
	ctx := context.Background()

	if _, err := ing.IngestFile(ctx, path, "meta.txt"); err != nil {
		t.Fatal(err)
	}
	emb := embedding.NewMockEmbedder(384)
	vec, err := emb.Embed(ctx, "short body")
	if err != nil {
		t.Fatal(err)
	}
	matches, err := store.Query(ctx, vec, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(matches))
	}
	m := matches[0]
	if m.ID != "meta.txt-0" {
		t.Errorf("id = %q", m.ID)
	}
	if m.Metadata.Chunk != "short body" || m.Metadata.Source != "meta.txt" || m.Metadata.ChunkIndex != 0 {
		t.Errorf("metadata = %+v", m.Metadata)
	}
	if m.Metadata.CreatedAt == "" {
		t.Error("createdAt should be set")
	}
}
