// Package config provides configuration loading and validation for the Kotae server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Vector    VectorConfig    `yaml:"vector"`
	LLM       LLMConfig       `yaml:"llm"`
	Storage   StorageConfig   `yaml:"storage"`
	Watch     WatchConfig     `yaml:"watch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	MaxUploadBytes int64  `yaml:"max_upload_bytes"`
	MaxUploadFiles int    `yaml:"max_upload_files"`
}

// IngestConfig holds chunking and document location settings.
type IngestConfig struct {
	ChunkSize    int      `yaml:"chunk_size"`
	ChunkOverlap int      `yaml:"chunk_overlap"`
	DocumentsDir string   `yaml:"documents_dir"`
	UploadsDir   string   `yaml:"uploads_dir"`
	Extensions   []string `yaml:"extensions"`
}

// EmbeddingConfig selects and configures the embedding provider.
type EmbeddingConfig struct {
	Provider   string `yaml:"provider"` // openai, ollama, mock
	Model      string `yaml:"model"`
	BaseURL    string `yaml:"base_url"`
	APIKeyEnv  string `yaml:"api_key_env"`
	Dimensions int    `yaml:"dimensions"`
}

// VectorConfig selects and configures the vector store.
type VectorConfig struct {
	Store    string         `yaml:"store"` // qdrant, pinecone, memory
	Index    string         `yaml:"index"`
	Qdrant   QdrantConfig   `yaml:"qdrant"`
	Pinecone PineconeConfig `yaml:"pinecone"`
}

// QdrantConfig contains connection details for a Qdrant vector store (gRPC).
type QdrantConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// PineconeConfig contains connection details for a Pinecone index.
type PineconeConfig struct {
	IndexHost string `yaml:"index_host"`
	APIKeyEnv string `yaml:"api_key_env"`
}

// LLMConfig selects and configures the generation provider.
type LLMConfig struct {
	Provider        string  `yaml:"provider"` // openai, ollama
	Model           string  `yaml:"model"`
	BaseURL         string  `yaml:"base_url"`
	APIKeyEnv       string  `yaml:"api_key_env"`
	Temperature     float64 `yaml:"temperature"`
	TopK            int     `yaml:"top_k"`
	MaxPromptLength int     `yaml:"max_prompt_length"`
}

// StorageConfig holds the path for the ingestion registry database.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// WatchConfig holds directory watch settings for auto-ingestion.
type WatchConfig struct {
	Directories []string `yaml:"directories"`
	Recursive   *bool    `yaml:"recursive"`
}

// RecursiveOrDefault returns whether to watch recursively; defaults to true when unset.
func (w *WatchConfig) RecursiveOrDefault() bool {
	if w.Recursive != nil {
		return *w.Recursive
	}
	return true
}

// Load reads and parses the config file at path, expands paths, applies
// defaults, and validates. Returns an error if the file cannot be read,
// parsed, or describes an invalid configuration.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Ingest.DocumentsDir = expandPath(cfg.Ingest.DocumentsDir, configDir)
	cfg.Ingest.UploadsDir = expandPath(cfg.Ingest.UploadsDir, configDir)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	for i := range cfg.Watch.Directories {
		cfg.Watch.Directories[i] = expandPath(cfg.Watch.Directories[i], configDir)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks invariants that must hold before any pipeline runs.
// Violations are configuration errors, fatal at startup rather than per call.
func (c *Config) Validate() error {
	if c.Ingest.ChunkSize <= 0 {
		return fmt.Errorf("config: chunk_size must be positive, got %d", c.Ingest.ChunkSize)
	}
	if c.Ingest.ChunkOverlap < 0 {
		return fmt.Errorf("config: chunk_overlap must not be negative, got %d", c.Ingest.ChunkOverlap)
	}
	if c.Ingest.ChunkOverlap >= c.Ingest.ChunkSize {
		return fmt.Errorf("config: chunk_overlap (%d) must be smaller than chunk_size (%d)",
			c.Ingest.ChunkOverlap, c.Ingest.ChunkSize)
	}
	if c.LLM.TopK <= 0 {
		return fmt.Errorf("config: top_k must be positive, got %d", c.LLM.TopK)
	}
	if c.LLM.MaxPromptLength <= 0 {
		return fmt.Errorf("config: max_prompt_length must be positive, got %d", c.LLM.MaxPromptLength)
	}
	if c.Embedding.Provider == "openai" && os.Getenv(c.Embedding.APIKeyEnv) == "" {
		return fmt.Errorf("config: embedding provider %q requires %s to be set",
			c.Embedding.Provider, c.Embedding.APIKeyEnv)
	}
	if c.LLM.Provider == "openai" && os.Getenv(c.LLM.APIKeyEnv) == "" {
		return fmt.Errorf("config: llm provider %q requires %s to be set",
			c.LLM.Provider, c.LLM.APIKeyEnv)
	}
	if c.Vector.Store == "pinecone" {
		if c.Vector.Pinecone.IndexHost == "" {
			return fmt.Errorf("config: vector store %q requires pinecone.index_host", c.Vector.Store)
		}
		if os.Getenv(c.Vector.Pinecone.APIKeyEnv) == "" {
			return fmt.Errorf("config: vector store %q requires %s to be set",
				c.Vector.Store, c.Vector.Pinecone.APIKeyEnv)
		}
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
