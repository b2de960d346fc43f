package semantic

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/WessleyAI/docqa/engine/domain"
	"github.com/WessleyAI/docqa/engine/embed"
	"github.com/WessleyAI/docqa/pkg/fn"
)

// LocalIndex keeps every vector in memory and answers searches exactly by
// squared Euclidean distance. Scores are 1/(1+d), so an exact match scores 1.
// Nothing survives a restart.
type LocalIndex struct {
	provider embed.Provider

	mu      sync.RWMutex
	dims    int
	records []domain.IndexedRecord
	vectors [][]float32
}

// NewLocal creates an empty LocalIndex embedding with provider.
func NewLocal(provider embed.Provider) *LocalIndex {
	return &LocalIndex{provider: provider}
}

// Len returns the number of stored records.
func (l *LocalIndex) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records)
}

// AddDocuments embeds records and appends them. Either all records are added
// or none.
func (l *LocalIndex) AddDocuments(ctx context.Context, records []domain.IndexedRecord) error {
	if len(records) == 0 {
		return nil
	}
	vecs, err := embed.Batch(ctx, l.provider, fn.Map(records, recordContent))
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	dims := l.dims
	if dims == 0 {
		dims = len(vecs[0])
	}
	for i, v := range vecs {
		if len(v) != dims {
			return &domain.IndexBackendError{Backend: BackendLocal, Op: "add",
				Err: fmt.Errorf("%w: record %s has %d dimensions, index has %d", domain.ErrDimensionMismatch, records[i].ID, len(v), dims)}
		}
	}
	l.dims = dims
	for i, r := range records {
		r.Metadata = domain.CopyMetadata(r.Metadata, 0)
		l.records = append(l.records, r)
		l.vectors = append(l.vectors, vecs[i])
	}
	return nil
}

// Search returns the k nearest records to query. Equal distances keep
// insertion order.
func (l *LocalIndex) Search(ctx context.Context, query string, k int) ([]domain.SearchResult, error) {
	k = normalizeK(k)
	if l.Len() == 0 {
		return []domain.SearchResult{}, nil
	}

	qv, err := embed.Query(ctx, l.provider, query)
	if err != nil {
		return nil, err
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	if len(qv) != l.dims {
		return nil, &domain.IndexBackendError{Backend: BackendLocal, Op: "search",
			Err: fmt.Errorf("%w: query has %d dimensions, index has %d", domain.ErrDimensionMismatch, len(qv), l.dims)}
	}

	type hit struct {
		pos  int
		dist float64
	}
	hits := make([]hit, len(l.vectors))
	for i, v := range l.vectors {
		hits[i] = hit{pos: i, dist: squaredL2(qv, v)}
	}
	sort.SliceStable(hits, func(a, b int) bool { return hits[a].dist < hits[b].dist })

	n := min(k, len(hits))
	out := make([]domain.SearchResult, n)
	for i, h := range hits[:n] {
		rec := l.records[h.pos]
		out[i] = domain.SearchResult{
			Content:  rec.Content,
			Metadata: domain.CopyMetadata(rec.Metadata, 0),
			Score:    1 / (1 + h.dist),
		}
	}
	return out, nil
}

// Close is a no-op.
func (l *LocalIndex) Close() error { return nil }

func recordContent(r domain.IndexedRecord) string { return r.Content }

func squaredL2(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}
