// Package integration exercises the full pipeline (requires real registry storage).
package integration

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/extract"
	"github.com/hyperjump/kotae/internal/ingest"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/query"
	"github.com/hyperjump/kotae/internal/storage"
	"github.com/hyperjump/kotae/internal/vectorstore"
)

type echoGenerator struct {
	calls int
}

func (g *echoGenerator) Generate(_ context.Context, system, _ string) (string, error) {
	g.calls++
	return "answered with " + system[:20], nil
}

func (g *echoGenerator) Close() error { return nil }

func TestIntegration_IngestThenAsk(t *testing.T) {
	dir := t.TempDir()
	docPath := filepath.Join(dir, "notes.txt")
	body := strings.Repeat("the fox jumps over the lazy dog. ", 60)
	if err := os.WriteFile(docPath, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}

	registry, err := storage.NewSQLiteRegistry(filepath.Join(dir, "db", "documents.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer registry.Close()

	embedder := embedding.NewMockEmbedder(64)
	defer embedder.Close()

	store, err := vectorstore.NewMemoryStore(64)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	chunker, err := ingest.NewChunker(500, 100)
	if err != nil {
		t.Fatal(err)
	}
	ingestor := ingest.NewIngestor(extract.NewExtractor(), chunker, embedder, store, registry)
	gen := &echoGenerator{}
	engine := query.NewEngine(embedder, store, gen, 3)
	ctx := context.Background()

	result, err := ingestor.IngestFile(ctx, docPath, "notes.txt")
	if err != nil {
		t.Fatal(err)
	}
	if result.Chunks < 2 {
		t.Fatalf("expected multiple chunks, got %d", result.Chunks)
	}
	if store.Size() != result.Chunks {
		t.Errorf("store holds %d vectors, ingest reported %d", store.Size(), result.Chunks)
	}

	answer, err := engine.Answer(ctx, "what does the fox do?")
	if err != nil {
		t.Fatal(err)
	}
	if !answer.Grounded {
		t.Error("answer should be grounded after ingestion")
	}
	if len(answer.ContextUsed) != 3 {
		t.Errorf("context has %d chunks, want 3", len(answer.ContextUsed))
	}
	if gen.calls != 1 {
		t.Errorf("generator called %d times, want 1", gen.calls)
	}

	if err := ingestor.RemoveDocument(ctx, "notes.txt"); err != nil {
		t.Fatal(err)
	}
	answer, err = engine.Answer(ctx, "what does the fox do?")
	if err != nil {
		t.Fatal(err)
	}
	if answer.Response != models.InsufficientContextMessage {
		t.Errorf("after removal, response = %q", answer.Response)
	}
	if gen.calls != 1 {
		t.Errorf("generator should not run without context, got %d calls", gen.calls)
	}
}
