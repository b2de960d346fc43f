// Package semantic holds the vector indexes: an exact in-memory index and a
// Qdrant-backed remote index behind one interface.
package semantic

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/WessleyAI/docqa/engine/domain"
	"github.com/WessleyAI/docqa/engine/embed"
)

// DefaultTopK is used when a search asks for k <= 0.
const DefaultTopK = 5

// Index is the capability both backends provide. AddDocuments is additive:
// records already present are neither replaced nor merged by the index
// itself. Search returns at most k results, best first; an empty index
// returns an empty slice and no error.
type Index interface {
	AddDocuments(ctx context.Context, records []domain.IndexedRecord) error
	Search(ctx context.Context, query string, k int) ([]domain.SearchResult, error)
}

// Store is an Index holding resources that must be released.
type Store interface {
	Index
	Close() error
}

// Backend names.
const (
	BackendLocal  = "local"
	BackendRemote = "remote"
)

// Config selects and configures a backend.
type Config struct {
	Backend    string
	Addr       string
	APIKey     string
	TLS        bool
	Collection string
}

// NormalizeBackend maps accepted aliases onto BackendLocal or BackendRemote.
// It returns "" for unknown names.
func NormalizeBackend(name string) string {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", BackendLocal, "faiss", "memory":
		return BackendLocal
	case BackendRemote, "qdrant", "pinecone":
		return BackendRemote
	}
	return ""
}

// New builds the backend named by cfg. Configuration problems are reported as
// *domain.ConfigurationError before any connection is attempted.
func New(_ context.Context, cfg Config, provider embed.Provider, log *slog.Logger) (Store, error) {
	if provider == nil {
		return nil, domain.NewConfigurationError("embed_provider", "", "required")
	}
	switch NormalizeBackend(cfg.Backend) {
	case BackendLocal:
		return NewLocal(provider), nil
	case BackendRemote:
		if cfg.Addr == "" {
			return nil, domain.NewConfigurationError("qdrant_url", "", "required for the remote backend")
		}
		if cfg.Collection == "" {
			return nil, domain.NewConfigurationError("qdrant_collection", "", "required for the remote backend")
		}
		return NewRemote(cfg, provider, log)
	default:
		return nil, domain.NewConfigurationError("vector_db_type", cfg.Backend,
			fmt.Sprintf("must be %q or %q", BackendLocal, BackendRemote))
	}
}

func normalizeK(k int) int {
	if k <= 0 {
		return DefaultTopK
	}
	return k
}
