package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hyperjump/kotae/internal/config"
)

func TestOpenAIGenerator_SeparateTurns(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatal(err)
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"grounded answer"}}]}`))
	}))
	defer srv.Close()

	t.Setenv("KOTAE_TEST_KEY", "sk-test")
	g, err := NewOpenAIGenerator("KOTAE_TEST_KEY", "gpt-4o-mini-2024-07-18", srv.URL, 0.7)
	if err != nil {
		t.Fatal(err)
	}
	out, err := g.Generate(context.Background(), "system text", "user text")
	if err != nil {
		t.Fatal(err)
	}
	if out != "grounded answer" {
		t.Errorf("response = %q", out)
	}
	if len(got.Messages) != 2 {
		t.Fatalf("got %d messages", len(got.Messages))
	}
	if got.Messages[0].Role != "system" || got.Messages[0].Content != "system text" {
		t.Errorf("system turn: %+v", got.Messages[0])
	}
	if got.Messages[1].Role != "user" || got.Messages[1].Content != "user text" {
		t.Errorf("user turn: %+v", got.Messages[1])
	}
	if got.Temperature != 0.7 {
		t.Errorf("temperature = %f", got.Temperature)
	}
}

func TestOpenAIGenerator_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":{"message":"overloaded"}}`))
	}))
	defer srv.Close()

	t.Setenv("KOTAE_TEST_KEY", "sk-test")
	g, err := NewOpenAIGenerator("KOTAE_TEST_KEY", "", srv.URL, 0)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := g.Generate(context.Background(), "s", "u"); err == nil {
		t.Error("expected error from 503 response")
	}
}

func TestNewGenerator_UnknownProvider(t *testing.T) {
	if _, err := NewGenerator(config.LLMConfig{Provider: "nope"}); err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestNewOpenAIGenerator_MissingKey(t *testing.T) {
	t.Setenv("KOTAE_TEST_EMPTY_KEY", "")
	if _, err := NewOpenAIGenerator("KOTAE_TEST_EMPTY_KEY", "", "", 0); err == nil {
		t.Error("expected error when API key env is empty")
	}
}
