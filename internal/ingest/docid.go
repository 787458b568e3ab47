package ingest

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"
)

var unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9._]`)
var whitespaceRuns = regexp.MustCompile(`\s+`)

// ChunkID returns the stable identifier for a chunk of a document.
// Re-ingesting the same document under the same identity produces the
// same IDs, so the vector store overwrites instead of duplicating.
func ChunkID(docID string, index int) string {
	return fmt.Sprintf("%s-%d", docID, index)
}

// SanitizeFilename collapses whitespace runs to single underscores and
// strips every character outside letters, digits, periods and underscores.
func SanitizeFilename(name string) string {
	name = whitespaceRuns.ReplaceAllString(name, "_")
	return unsafeNameChars.ReplaceAllString(name, "")
}

// GeneratedDocID builds a fresh document identity for an uploaded file from
// the upload time and the sanitized original filename. Two uploads of the
// same file at different times index as distinct documents.
func GeneratedDocID(filename string, now time.Time) string {
	return fmt.Sprintf("%d-%s", now.UnixMilli(), SanitizeFilename(filename))
}

// ResolveManagedFile validates that filename names an existing file directly
// inside documentsDir and returns its full path. Path separators and
// traversal sequences are rejected before touching the filesystem.
func ResolveManagedFile(documentsDir, filename string) (string, error) {
	if filename == "" {
		return "", fmt.Errorf("filename is required")
	}
	if filename == "." || filename == ".." || filepath.Base(filename) != filename {
		return "", fmt.Errorf("invalid filename: %s", filename)
	}
	path := filepath.Join(documentsDir, filename)
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("file not found: %s", filename)
		}
		return "", fmt.Errorf("failed to access %s: %w", filename, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("not a file: %s", filename)
	}
	return path, nil
}
