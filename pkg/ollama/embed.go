package ollama

import (
	"context"
	"fmt"

	"github.com/WessleyAI/docqa/pkg/fn"
)

// EmbedConfig extends Config with embedding settings.
type EmbedConfig struct {
	Config
	// Dimensions is the expected vector width; 0 skips the check.
	Dimensions int
	// Workers bounds concurrent requests in EmbedBatch. Default 4.
	Workers int
}

// EmbedClient embeds text through Ollama's /api/embeddings endpoint.
type EmbedClient struct {
	transport
	dims    int
	workers int
}

// NewEmbedClient creates an Ollama embedding client.
func NewEmbedClient(cfg EmbedConfig) *EmbedClient {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	return &EmbedClient{
		transport: newTransport(cfg.Config, DefaultEmbedModel),
		dims:      cfg.Dimensions,
		workers:   cfg.Workers,
	}
}

type embedReq struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embedResp struct {
	Embedding []float64 `json:"embedding"`
}

// Dimensions returns the configured vector width.
func (c *EmbedClient) Dimensions() int { return c.dims }

// Embed returns the embedding of text.
func (c *EmbedClient) Embed(ctx context.Context, text string) ([]float32, error) {
	var resp embedResp
	if err := c.post(ctx, "/api/embeddings", embedReq{Model: c.model, Prompt: text}, &resp); err != nil {
		return nil, fmt.Errorf("ollama embed: %w", err)
	}
	if len(resp.Embedding) == 0 {
		return nil, fmt.Errorf("ollama embed: empty embedding")
	}
	if c.dims > 0 && len(resp.Embedding) != c.dims {
		return nil, fmt.Errorf("ollama embed: model %s returned %d dimensions, want %d", c.model, len(resp.Embedding), c.dims)
	}

	out := make([]float32, len(resp.Embedding))
	for i, v := range resp.Embedding {
		out[i] = float32(v)
	}
	return out, nil
}

// EmbedBatch embeds texts with a bounded worker pool; output order matches
// input order. The first failure by input position is returned.
func (c *EmbedClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	results := fn.ParMapResult(texts, c.workers, func(_ int, text string) fn.Result[[]float32] {
		return fn.FromPair(c.Embed(ctx, text))
	})
	vecs, err := fn.Collect(results).Unwrap()
	if err != nil {
		return nil, fmt.Errorf("ollama embed batch: %w", err)
	}
	return vecs, nil
}
