package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hyperjump/kotae/internal/models"
)

func TestSQLiteRegistry_RecordAndGet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	reg, err := NewSQLiteRegistry(path)
	if err != nil {
		t.Fatal(err)
	}
	defer reg.Close()
	ctx := context.Background()

	doc := &models.Document{ID: "1700000000000-report.pdf", Source: "report.pdf", ChunkCount: 3}
	if err := reg.RecordDocument(ctx, doc); err != nil {
		t.Fatal(err)
	}
	if doc.CreatedAt.IsZero() {
		t.Error("CreatedAt should be set")
	}

	got, err := reg.GetDocument(ctx, doc.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Source != "report.pdf" || got.ChunkCount != 3 {
		t.Errorf("got %+v", got)
	}
}

func TestSQLiteRegistry_RecordTwiceKeepsCreatedAt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	reg, err := NewSQLiteRegistry(path)
	if err != nil {
		t.Fatal(err)
	}
	defer reg.Close()
	ctx := context.Background()

	first := &models.Document{ID: "a.pdf", Source: "a.pdf", ChunkCount: 2}
	if err := reg.RecordDocument(ctx, first); err != nil {
		t.Fatal(err)
	}
	created := first.CreatedAt

	time.Sleep(10 * time.Millisecond)
	second := &models.Document{ID: "a.pdf", Source: "a.pdf", ChunkCount: 5, CreatedAt: created}
	if err := reg.RecordDocument(ctx, second); err != nil {
		t.Fatal(err)
	}

	got, err := reg.GetDocument(ctx, "a.pdf")
	if err != nil {
		t.Fatal(err)
	}
	if got.ChunkCount != 5 {
		t.Errorf("chunk_count = %d, want 5", got.ChunkCount)
	}
	if !got.UpdatedAt.After(got.CreatedAt) {
		t.Errorf("updated_at %v should be after created_at %v", got.UpdatedAt, got.CreatedAt)
	}

	count, err := reg.CountDocuments(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("expected 1 document after re-record, got %d", count)
	}
}

func TestSQLiteRegistry_ListAndDelete(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	reg, err := NewSQLiteRegistry(path)
	if err != nil {
		t.Fatal(err)
	}
	defer reg.Close()
	ctx := context.Background()

	for _, d := range []*models.Document{
		{ID: "a.pdf", Source: "a.pdf", ChunkCount: 1},
		{ID: "b.pdf", Source: "b.pdf", ChunkCount: 4},
	} {
		if err := reg.RecordDocument(ctx, d); err != nil {
			t.Fatal(err)
		}
	}

	list, err := reg.ListDocuments(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(list))
	}

	chunks, err := reg.CountChunks(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if chunks != 5 {
		t.Errorf("chunk total = %d, want 5", chunks)
	}

	if err := reg.DeleteDocument(ctx, "a.pdf"); err != nil {
		t.Fatal(err)
	}
	if _, err := reg.GetDocument(ctx, "a.pdf"); err == nil {
		t.Error("expected error after delete")
	}
	count, _ := reg.CountDocuments(ctx)
	if count != 1 {
		t.Errorf("expected 1 document after delete, got %d", count)
	}
}

func TestSQLiteRegistry_CountChunksEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.db")
	reg, err := NewSQLiteRegistry(path)
	if err != nil {
		t.Fatal(err)
	}
	defer reg.Close()

	chunks, err := reg.CountChunks(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if chunks != 0 {
		t.Errorf("chunk total = %d, want 0", chunks)
	}
}

func TestDiskUsageBytes(t *testing.T) {
	dir := t.TempDir()
	f := filepath.Join(dir, "f.txt")
	if err := os.WriteFile(f, []byte("hello"), 0644); err != nil {
		t.Fatal(err)
	}
	sub := filepath.Join(dir, "sub")
	if err := os.Mkdir(sub, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(sub, "a"), []byte("abc"), 0644); err != nil {
		t.Fatal(err)
	}

	got, err := DiskUsageBytes(f, sub, "", filepath.Join(dir, "missing"))
	if err != nil {
		t.Fatal(err)
	}
	if got != 8 {
		t.Errorf("got %d bytes, want 8", got)
	}
}
