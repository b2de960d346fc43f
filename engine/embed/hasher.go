package embed

import (
	"context"
	"math"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"

	"github.com/WessleyAI/docqa/pkg/fn"
)

// DefaultDimensions matches all-minilm so the two providers are
// interchangeable for index sizing.
const DefaultDimensions = 384

// Hasher is a feature-hashing embedder: lower-cased word unigrams and bigrams
// are hashed into signed buckets and the result is L2-normalised. It needs no
// model or network and is fully deterministic, so texts sharing vocabulary
// land close together.
type Hasher struct {
	dims    int
	workers int
}

// NewHasher returns a Hasher producing dims-wide vectors, parallelising
// EmbedBatch over workers goroutines. Non-positive values take defaults.
func NewHasher(dims, workers int) *Hasher {
	if dims <= 0 {
		dims = DefaultDimensions
	}
	if workers <= 0 {
		workers = 4
	}
	return &Hasher{dims: dims, workers: workers}
}

func (h *Hasher) Dimensions() int { return h.dims }

func (h *Hasher) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return h.vector(text), nil
}

func (h *Hasher) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	results := fn.ParMapResult(texts, h.workers, func(_ int, text string) fn.Result[[]float32] {
		return fn.FromPair(h.Embed(ctx, text))
	})
	return fn.Collect(results).Unwrap()
}

func (h *Hasher) vector(text string) []float32 {
	vec := make([]float64, h.dims)
	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for i, tok := range tokens {
		h.add(vec, tok, 1)
		if i > 0 {
			h.add(vec, tokens[i-1]+" "+tok, 0.5)
		}
	}

	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	norm = math.Sqrt(norm)

	out := make([]float32, h.dims)
	if norm == 0 {
		return out
	}
	for i, v := range vec {
		out[i] = float32(v / norm)
	}
	return out
}

// add puts weight into the bucket chosen by the low bits of the hash, with
// the sign taken from the top bit.
func (h *Hasher) add(vec []float64, feature string, weight float64) {
	sum := xxhash.Sum64String(feature)
	if sum>>63 == 1 {
		weight = -weight
	}
	vec[sum%uint64(h.dims)] += weight
}
