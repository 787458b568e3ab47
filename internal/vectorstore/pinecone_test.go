package vectorstore

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/models"
)

func newTestPinecone(t *testing.T, handler http.Handler) *PineconeStore {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	t.Setenv("KOTAE_TEST_PINECONE_KEY", "pc-test")
	s, err := NewPineconeStore(config.PineconeConfig{
		IndexHost: srv.URL,
		APIKeyEnv: "KOTAE_TEST_PINECONE_KEY",
	})
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestPineconeStore_Upsert(t *testing.T) {
	var got pineconeUpsertRequest
	s := newTestPinecone(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/vectors/upsert" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("Api-Key") != "pc-test" {
			t.Errorf("missing Api-Key header")
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatal(err)
		}
		_ = json.NewEncoder(w).Encode(pineconeUpsertResponse{UpsertedCount: len(got.Vectors)})
	}))

	n, err := s.Upsert(context.Background(), []models.VectorRecord{
		{ID: "a.pdf-0", Vector: []float32{0.1, 0.2}, Metadata: models.ChunkMetadata{Chunk: "text", Source: "a.pdf"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("upserted count = %d", n)
	}
	if len(got.Vectors) != 1 || got.Vectors[0].ID != "a.pdf-0" || got.Vectors[0].Metadata.Source != "a.pdf" {
		t.Errorf("request body: %+v", got)
	}
}

func TestPineconeStore_QueryParsesMatches(t *testing.T) {
	s := newTestPinecone(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/query" {
			t.Errorf("path = %s", r.URL.Path)
		}
		var req pineconeQueryRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if !req.IncludeMetadata {
			t.Error("includeMetadata not set")
		}
		if req.TopK != 3 {
			t.Errorf("topK = %d", req.TopK)
		}
		_, _ = w.Write([]byte(`{"matches":[
			{"id":"a.pdf-1","score":0.9,"metadata":{"chunk":"first","source":"a.pdf","chunkIndex":1}},
			{"id":"a.pdf-0","score":0.5,"metadata":{"chunk":"second","source":"a.pdf","chunkIndex":0}}
		]}`))
	}))

	matches, err := s.Query(context.Background(), []float32{0.1}, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 2 {
		t.Fatalf("got %d matches", len(matches))
	}
	if matches[0].ID != "a.pdf-1" || matches[0].Metadata.Chunk != "first" {
		t.Errorf("first match: %+v", matches[0])
	}
	if matches[1].Score != 0.5 {
		t.Errorf("second score: %f", matches[1].Score)
	}
}

func TestPineconeStore_Delete(t *testing.T) {
	var got struct {
		IDs []string `json:"ids"`
	}
	s := newTestPinecone(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/vectors/delete" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatal(err)
		}
		w.Write([]byte("{}"))
	}))

	if err := s.Delete(context.Background(), []string{"a.pdf-0", "a.pdf-1"}); err != nil {
		t.Fatal(err)
	}
	if len(got.IDs) != 2 || got.IDs[0] != "a.pdf-0" {
		t.Errorf("delete body: %+v", got)
	}
}

func TestPineconeStore_ErrorStatus(t *testing.T) {
	s := newTestPinecone(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"quota exceeded"}`, http.StatusTooManyRequests)
	}))
	if _, err := s.Upsert(context.Background(), []models.VectorRecord{{ID: "x", Vector: []float32{1}}}); err == nil {
		t.Error("expected error from 429 response")
	}
}

func TestNewPineconeStore_MissingKey(t *testing.T) {
	t.Setenv("KOTAE_TEST_PINECONE_EMPTY", "")
	_, err := NewPineconeStore(config.PineconeConfig{IndexHost: "http://x", APIKeyEnv: "KOTAE_TEST_PINECONE_EMPTY"})
	if err == nil {
		t.Error("expected error when API key env is empty")
	}
}
