package server

import (
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/ingest"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/storage"
	"github.com/hyperjump/kotae/pkg/utils"
)

type embedRequest struct {
	Filename string `json:"filename"`
}

type embedResponse struct {
	Message  string `json:"message"`
	Chunks   int    `json:"chunks"`
	Filename string `json:"filename"`
}

type uploadResult struct {
	Filename   string `json:"filename"`
	DocumentID string `json:"documentId,omitempty"`
	Chunks     int    `json:"chunks"`
	Error      string `json:"error,omitempty"`
}

// handleEmbed ingests documents. A JSON body names a file already present in
// the documents directory; a multipart body carries uploaded files, which are
// staged under a temporary name and deleted again whether or not ingestion
// succeeds.
func (s *Server) handleEmbed(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		s.handleEmbedUpload(w, r)
		return
	}

	var req embedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Filename == "" {
		s.respondError(w, http.StatusBadRequest, "filename is required")
		return
	}

	path, err := ingest.ResolveManagedFile(s.config.Ingest.DocumentsDir, req.Filename)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.logger.Debug("embed request", zap.String("filename", req.Filename))
	result, err := s.ingestor.IngestFile(r.Context(), path, req.Filename)
	if err != nil {
		s.logger.Error("embed failed", zap.String("filename", req.Filename), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, embedResponse{
		Message:  "Document embedded successfully",
		Chunks:   result.Chunks,
		Filename: result.Filename,
	})
}

func (s *Server) handleEmbedUpload(w http.ResponseWriter, r *http.Request) {
	maxBytes := s.config.Server.MaxUploadBytes
	maxFiles := s.config.Server.MaxUploadFiles
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes*int64(maxFiles))

	if err := r.ParseMultipartForm(maxBytes); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid multipart body")
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	files := r.MultipartForm.File["documents"]
	if len(files) == 0 {
		s.respondError(w, http.StatusBadRequest, "no documents uploaded")
		return
	}
	if len(files) > maxFiles {
		s.respondError(w, http.StatusBadRequest,
			fmt.Sprintf("too many files: %d (limit %d)", len(files), maxFiles))
		return
	}

	results := make([]uploadResult, 0, len(files))
	succeeded := 0
	for _, fh := range files {
		res := s.ingestUpload(r, fh, maxBytes)
		if res.Error == "" {
			succeeded++
		}
		results = append(results, res)
	}

	status := http.StatusOK
	if succeeded == 0 {
		status = http.StatusInternalServerError
	}
	s.respondJSON(w, status, map[string]interface{}{
		"message":   fmt.Sprintf("%d of %d documents embedded", succeeded, len(files)),
		"documents": results,
	})
}

// ingestUpload stages one uploaded file under a throwaway name, ingests it
// under a fresh generated identity, and removes the staged file on every
// exit path.
func (s *Server) ingestUpload(r *http.Request, fh *multipart.FileHeader, maxBytes int64) uploadResult {
	res := uploadResult{Filename: fh.Filename}
	if fh.Size > maxBytes {
		res.Error = fmt.Sprintf("file exceeds %d byte limit", maxBytes)
		return res
	}

	src, err := fh.Open()
	if err != nil {
		res.Error = err.Error()
		return res
	}
	defer src.Close()

	if err := os.MkdirAll(s.config.Ingest.UploadsDir, 0755); err != nil {
		res.Error = err.Error()
		return res
	}
	tmpPath := filepath.Join(s.config.Ingest.UploadsDir,
		uuid.New().String()+filepath.Ext(fh.Filename))
	dst, err := os.Create(tmpPath)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	defer func() {
		_ = os.Remove(tmpPath)
	}()
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		res.Error = err.Error()
		return res
	}
	if err := dst.Close(); err != nil {
		res.Error = err.Error()
		return res
	}

	docID := ingest.GeneratedDocID(fh.Filename, time.Now())
	s.logger.Debug("upload embed request",
		zap.String("filename", fh.Filename),
		zap.String("doc", docID))
	result, err := s.ingestor.IngestFile(r.Context(), tmpPath, docID)
	if err != nil {
		s.logger.Error("upload embed failed", zap.String("filename", fh.Filename), zap.Error(err))
		res.Error = err.Error()
		return res
	}
	res.DocumentID = result.DocumentID
	res.Chunks = result.Chunks
	return res
}

type generateRequest struct {
	Prompt string `json:"prompt"`
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		s.respondError(w, http.StatusBadRequest, "prompt is required")
		return
	}
	if limit := s.config.LLM.MaxPromptLength; utf8.RuneCountInString(req.Prompt) > limit {
		s.respondError(w, http.StatusBadRequest,
			fmt.Sprintf("prompt exceeds maximum length of %d characters", limit))
		return
	}

	s.logger.Debug("generate request", zap.String("prompt", utils.Truncate(req.Prompt, 120)))
	answer, err := s.engine.Answer(r.Context(), req.Prompt)
	if err != nil {
		s.logger.Error("generate failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !answer.Grounded {
		s.respondJSON(w, http.StatusNotFound, map[string]string{
			"error":    "No relevant context found",
			"response": answer.Response,
		})
		return
	}
	s.respondJSON(w, http.StatusOK, answer)
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := s.registry.ListDocuments(r.Context())
	if err != nil {
		s.logger.Error("list documents failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if docs == nil {
		docs = []*models.Document{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"documents": docs,
		"count":     len(docs),
	})
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.logger.Debug("delete document request", zap.String("id", id))
	if err := s.ingestor.RemoveDocument(r.Context(), id); err != nil {
		s.logger.Error("deletion failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"id": id, "status": "deleted"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	docCount, err := s.registry.CountDocuments(ctx)
	if err != nil {
		s.logger.Error("status: count documents failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	chunkCount, err := s.registry.CountChunks(ctx)
	if err != nil {
		s.logger.Error("status: count chunks failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := map[string]interface{}{
		"documents": docCount,
		"chunks":    chunkCount,
		"config": map[string]interface{}{
			"chunk_size":         s.config.Ingest.ChunkSize,
			"chunk_overlap":      s.config.Ingest.ChunkOverlap,
			"top_k":              s.config.LLM.TopK,
			"embedding_provider": s.config.Embedding.Provider,
			"embedding_model":    s.config.Embedding.Model,
			"vector_store":       s.config.Vector.Store,
			"llm_provider":       s.config.LLM.Provider,
			"llm_model":          s.config.LLM.Model,
		},
	}
	diskBytes, err := storage.DiskUsageBytes(
		s.config.Storage.DatabasePath,
		s.config.Ingest.DocumentsDir,
	)
	if err == nil {
		resp["disk_usage_bytes"] = diskBytes
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"status": "error", "message": message})
}
