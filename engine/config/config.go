// Package config loads docqa settings from the environment into one explicit
// struct that is passed to constructors.
package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/WessleyAI/docqa/engine/domain"
	"github.com/WessleyAI/docqa/engine/ingest"
	"github.com/WessleyAI/docqa/engine/semantic"
)

// Provider names.
const (
	EmbedHash      = "hash"
	EmbedOllama    = "ollama"
	LLMOpenAI      = "openai"
	LLMOllama      = "ollama"
	DefaultSubject = ingest.DefaultSubject
)

// Config holds all environment-based configuration.
type Config struct {
	VectorDB     string
	QdrantURL    string
	QdrantAPIKey string
	QdrantTLS    bool
	Collection   string

	EmbedProvider string
	OllamaURL     string
	EmbedModel    string
	EmbedDims     int
	EmbedWorkers  int

	LLMProvider   string
	OpenAIKey     string
	OpenAIBaseURL string
	// ChatModel empty means the provider's default model.
	ChatModel  string
	LLMTimeout time.Duration
	LLMRPS     float64
	LLMRetries int

	ChunkSize    int
	ChunkOverlap int
	TopK         int

	DocsDir       string
	DocsSubfolder string

	NATSURL       string
	IngestSubject string

	Port         string
	CORSOrigin   string
	QueryTimeout time.Duration

	LogLevel  string
	LogFormat string
}

// LoadDotEnv reads the given .env files (".env" when none are named) into
// the process environment. Variables already set win; missing files are
// ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return domain.NewConfigurationError("dotenv", p, err.Error())
		}
	}
	return nil
}

// Load reads configuration through getenv, usually os.Getenv. It reports
// values that do not parse; semantic checks are left to Validate.
func Load(getenv func(string) string) (Config, error) {
	p := parser{getenv: getenv}
	cfg := Config{
		VectorDB:     p.str("VECTOR_DB_TYPE", semantic.BackendLocal),
		QdrantURL:    p.str("QDRANT_URL", ""),
		QdrantAPIKey: p.str("QDRANT_API_KEY", ""),
		QdrantTLS:    p.boolean("QDRANT_TLS", false),
		Collection:   p.str("QDRANT_COLLECTION", "docqa"),

		EmbedProvider: strings.ToLower(p.str("EMBED_PROVIDER", EmbedHash)),
		OllamaURL:     p.str("OLLAMA_URL", "http://localhost:11434"),
		EmbedModel:    p.str("EMBED_MODEL", "all-minilm"),
		EmbedDims:     p.integer("EMBED_DIMS", 384),
		EmbedWorkers:  p.integer("EMBED_WORKERS", 4),

		LLMProvider:   strings.ToLower(p.str("LLM_PROVIDER", LLMOpenAI)),
		OpenAIKey:     p.str("OPENAI_API_KEY", ""),
		OpenAIBaseURL: p.str("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		ChatModel:     p.str("CHAT_MODEL", ""),
		LLMTimeout:    p.duration("LLM_TIMEOUT", 120*time.Second),
		LLMRPS:        p.float("LLM_RPS", 0),
		LLMRetries:    p.integer("LLM_RETRIES", 0),

		ChunkSize:    p.integer("CHUNK_SIZE", ingest.DefaultChunkSize),
		ChunkOverlap: p.integer("CHUNK_OVERLAP", ingest.DefaultChunkOverlap),
		TopK:         p.integer("TOP_K", semantic.DefaultTopK),

		DocsDir:       p.str("DOCS_DIR", ""),
		DocsSubfolder: p.str("DOCS_SUBFOLDER", ""),

		NATSURL:       p.str("NATS_URL", ""),
		IngestSubject: p.str("INGEST_SUBJECT", DefaultSubject),

		Port:         p.str("PORT", "8080"),
		CORSOrigin:   p.str("CORS_ORIGIN", "*"),
		QueryTimeout: p.duration("QUERY_TIMEOUT", 60*time.Second),

		LogLevel:  strings.ToLower(p.str("LOG_LEVEL", "info")),
		LogFormat: strings.ToLower(p.str("LOG_FORMAT", "json")),
	}
	return cfg, p.err
}

// Validate checks everything a query-serving process needs.
func (c Config) Validate() error {
	if err := c.ValidateIndex(); err != nil {
		return err
	}
	return c.ValidateGenerator()
}

// ValidateIndex checks the settings used to chunk, embed and index documents.
func (c Config) ValidateIndex() error {
	switch semantic.NormalizeBackend(c.VectorDB) {
	case semantic.BackendLocal:
	case semantic.BackendRemote:
		if c.QdrantURL == "" {
			return domain.NewConfigurationError("QDRANT_URL", "", "required when VECTOR_DB_TYPE is remote")
		}
		if c.Collection == "" {
			return domain.NewConfigurationError("QDRANT_COLLECTION", "", "must not be empty")
		}
	default:
		return domain.NewConfigurationError("VECTOR_DB_TYPE", c.VectorDB, "must be local or remote")
	}

	switch c.EmbedProvider {
	case EmbedHash, EmbedOllama:
	default:
		return domain.NewConfigurationError("EMBED_PROVIDER", c.EmbedProvider, "must be hash or ollama")
	}
	if c.EmbedDims <= 0 {
		return domain.NewConfigurationError("EMBED_DIMS", strconv.Itoa(c.EmbedDims), "must be positive")
	}
	if err := ingest.CheckChunkParams(c.ChunkSize, c.ChunkOverlap); err != nil {
		return err
	}
	if c.TopK <= 0 {
		return domain.NewConfigurationError("TOP_K", strconv.Itoa(c.TopK), "must be positive")
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	if c.LogFormat != "json" && c.LogFormat != "text" {
		return domain.NewConfigurationError("LOG_FORMAT", c.LogFormat, "must be json or text")
	}
	return nil
}

// ValidateGenerator checks the answer-generation settings.
func (c Config) ValidateGenerator() error {
	switch c.LLMProvider {
	case LLMOpenAI:
		if c.OpenAIKey == "" {
			return domain.NewConfigurationError("OPENAI_API_KEY", "", "required when LLM_PROVIDER is openai")
		}
	case LLMOllama:
	default:
		return domain.NewConfigurationError("LLM_PROVIDER", c.LLMProvider, "unsupported provider")
	}
	if c.LLMRetries < 0 {
		return domain.NewConfigurationError("LLM_RETRIES", strconv.Itoa(c.LLMRetries), "must not be negative")
	}
	return nil
}

// Index returns the vector index settings.
func (c Config) Index() semantic.Config {
	return semantic.Config{
		Backend:    c.VectorDB,
		Addr:       c.QdrantURL,
		APIKey:     c.QdrantAPIKey,
		TLS:        c.QdrantTLS,
		Collection: c.Collection,
	}
}

// SlogLevel parses LogLevel.
func (c Config) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, domain.NewConfigurationError("LOG_LEVEL", c.LogLevel, "must be debug, info, warn or error")
	}
	return lvl, nil
}

// parser reads typed values and keeps the first parse error.
type parser struct {
	getenv func(string) string
	err    error
}

func (p *parser) str(key, fallback string) string {
	if v := strings.TrimSpace(p.getenv(key)); v != "" {
		return v
	}
	return fallback
}

func (p *parser) fail(key, value, reason string) {
	if p.err == nil {
		p.err = domain.NewConfigurationError(key, value, reason)
	}
}

func (p *parser) integer(key string, fallback int) int {
	v := p.str(key, "")
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.fail(key, v, "not an integer")
		return fallback
	}
	return n
}

func (p *parser) float(key string, fallback float64) float64 {
	v := p.str(key, "")
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		p.fail(key, v, "not a number")
		return fallback
	}
	return f
}

func (p *parser) boolean(key string, fallback bool) bool {
	v := p.str(key, "")
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.fail(key, v, "not a boolean")
		return fallback
	}
	return b
}

func (p *parser) duration(key string, fallback time.Duration) time.Duration {
	v := p.str(key, "")
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.fail(key, v, "not a duration")
		return fallback
	}
	return d
}
