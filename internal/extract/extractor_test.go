package extract

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestExtractBytes_PlainText(t *testing.T) {
	e := NewExtractor()
	text, err := e.ExtractBytes([]byte("hello world"), ".txt")
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	if text != "hello world" {
		t.Errorf("got %q", text)
	}
}

func TestExtractBytes_InvalidUTF8Repaired(t *testing.T) {
	e := NewExtractor()
	text, err := e.ExtractBytes([]byte{'a', 0xff, 'b'}, ".md")
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	if !strings.Contains(text, "a") || !strings.Contains(text, "b") {
		t.Errorf("repaired text lost content: %q", text)
	}
}

func TestExtractBytes_UnsupportedFormat(t *testing.T) {
	e := NewExtractor()
	_, err := e.ExtractBytes([]byte("x"), ".exe")
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("want ErrUnsupportedFormat, got %v", err)
	}
}

func TestSupported(t *testing.T) {
	e := NewExtractor()
	cases := map[string]bool{
		".pdf": true, ".docx": true, ".txt": true, ".md": true,
		".xlsx": true, ".odt": true, ".rtf": true,
		".exe": false, ".png": false, "": false,
	}
	for ext, want := range cases {
		if got := e.Supported(ext); got != want {
			t.Errorf("Supported(%q) = %v, want %v", ext, got, want)
		}
	}
}

func TestExtract_TxtFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "note.txt")
	if err := os.WriteFile(path, []byte("some content"), 0600); err != nil {
		t.Fatal(err)
	}
	e := NewExtractor()
	text, err := e.Extract(path)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if text != "some content" {
		t.Errorf("got %q", text)
	}
}

func TestExtract_MissingFile(t *testing.T) {
	e := NewExtractor()
	if _, err := e.Extract(filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestExtractBytes_PDFGarbage(t *testing.T) {
	e := NewExtractor()
	if _, err := e.ExtractBytes([]byte("not a pdf"), ".pdf"); err == nil {
		t.Error("expected error for malformed PDF")
	}
}
