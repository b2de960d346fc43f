// Package embed defines the embedding provider boundary and a deterministic
// offline provider.
package embed

import (
	"context"
	"errors"
	"fmt"

	"github.com/WessleyAI/docqa/engine/domain"
)

// Provider maps text to fixed-width vectors. Every vector from one provider
// has Dimensions() components.
type Provider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
}

// Batch embeds texts and wraps any provider failure in *domain.EmbeddingError.
// It also rejects a provider that returns the wrong number of vectors.
func Batch(ctx context.Context, p Provider, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	vecs, err := p.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, wrap("embed batch", err)
	}
	if len(vecs) != len(texts) {
		return nil, wrap("embed batch", fmt.Errorf("provider returned %d vectors for %d texts", len(vecs), len(texts)))
	}
	return vecs, nil
}

// Query embeds a single search query, wrapping failures like Batch.
func Query(ctx context.Context, p Provider, text string) ([]float32, error) {
	vec, err := p.Embed(ctx, text)
	if err != nil {
		return nil, wrap("embed query", err)
	}
	return vec, nil
}

func wrap(op string, err error) error {
	var ee *domain.EmbeddingError
	if errors.As(err, &ee) {
		return err
	}
	return &domain.EmbeddingError{Op: op, Err: err}
}
