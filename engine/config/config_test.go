package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/WessleyAI/docqa/engine/domain"
)

func env(vars map[string]string) func(string) string {
	return func(k string) string { return vars[k] }
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(env(nil))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.VectorDB != "local" || cfg.Collection != "docqa" || cfg.EmbedProvider != EmbedHash {
		t.Fatalf("index defaults %+v", cfg)
	}
	if cfg.ChunkSize != 1000 || cfg.ChunkOverlap != 200 || cfg.TopK != 5 {
		t.Fatalf("chunk defaults %d/%d/%d", cfg.ChunkSize, cfg.ChunkOverlap, cfg.TopK)
	}
	if cfg.EmbedDims != 384 || cfg.LLMTimeout != 120*time.Second || cfg.QueryTimeout != time.Minute {
		t.Fatalf("defaults %+v", cfg)
	}
	if cfg.IngestSubject != "docqa.ingest" || cfg.Port != "8080" {
		t.Fatalf("defaults %+v", cfg)
	}
	if err := cfg.ValidateIndex(); err != nil {
		t.Fatalf("defaults should validate for indexing: %v", err)
	}
}

func TestLoadOverrides(t *testing.T) {
	cfg, err := Load(env(map[string]string{
		"VECTOR_DB_TYPE": "qdrant",
		"QDRANT_URL":     "localhost:6334",
		"QDRANT_TLS":     "true",
		"CHUNK_SIZE":     "500",
		"CHUNK_OVERLAP":  "50",
		"LLM_RPS":        "2.5",
		"LLM_PROVIDER":   "Ollama",
		"LOG_LEVEL":      "DEBUG",
		"QUERY_TIMEOUT":  "5s",
	}))
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.QdrantTLS || cfg.ChunkSize != 500 || cfg.LLMRPS != 2.5 || cfg.QueryTimeout != 5*time.Second {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if ic := cfg.Index(); ic.Backend != "qdrant" || ic.Addr != "localhost:6334" || !ic.TLS {
		t.Fatalf("index config %+v", ic)
	}
}

func TestLoadParseError(t *testing.T) {
	_, err := Load(env(map[string]string{"CHUNK_SIZE": "big", "TOP_K": "many"}))
	var ce *domain.ConfigurationError
	if !errors.As(err, &ce) || ce.Field != "CHUNK_SIZE" {
		t.Fatalf("expected first parse error for CHUNK_SIZE, got %v", err)
	}
}

func TestValidateErrors(t *testing.T) {
	cases := map[string]map[string]string{
		"remote without url":   {"VECTOR_DB_TYPE": "remote"},
		"unknown backend":      {"VECTOR_DB_TYPE": "elastic"},
		"overlap too large":    {"CHUNK_SIZE": "100", "CHUNK_OVERLAP": "100"},
		"openai without key":   {},
		"unsupported provider": {"LLM_PROVIDER": "bard", "OPENAI_API_KEY": "k"},
		"bad log level":        {"LOG_LEVEL": "loud", "OPENAI_API_KEY": "k"},
		"unknown embedder":     {"EMBED_PROVIDER": "magic", "OPENAI_API_KEY": "k"},
	}
	for name, vars := range cases {
		cfg, err := Load(env(vars))
		if err != nil {
			t.Fatalf("%s: load: %v", name, err)
		}
		if err := cfg.Validate(); !errors.Is(err, domain.ErrConfiguration) {
			t.Errorf("%s: expected ConfigurationError, got %v", name, err)
		}
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	if err := os.WriteFile(path, []byte("DOCQA_TEST_DOTENV=from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("DOCQA_TEST_DOTENV", "")
	os.Unsetenv("DOCQA_TEST_DOTENV")

	if err := LoadDotEnv(path, filepath.Join(dir, "missing.env")); err != nil {
		t.Fatal(err)
	}
	if got := os.Getenv("DOCQA_TEST_DOTENV"); got != "from-file" {
		t.Fatalf("got %q", got)
	}
}
