// Package rag answers questions over the vector index: it retrieves
// passages, asks the generator for an answer grounded in them, and attributes
// the answer to the passages it quotes.
package rag

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/WessleyAI/docqa/engine/domain"
	"github.com/WessleyAI/docqa/pkg/llm"
	"github.com/WessleyAI/docqa/pkg/metrics"
)

const tracerName = "github.com/WessleyAI/docqa/engine/rag"

// Searcher is the read side of a vector index.
type Searcher interface {
	Search(ctx context.Context, query string, k int) ([]domain.SearchResult, error)
}

// Options configures the Service.
type Options struct {
	// TopK is used when Query is called with k <= 0.
	TopK        int
	Temperature float64
	MaxTokens   int
	// Provider names the generator in errors and logs.
	Provider string
	// Metrics, if set, receives query counters and latencies.
	Metrics *metrics.Registry
}

// DefaultOptions returns deterministic decoding with room for a detailed answer.
func DefaultOptions() Options {
	return Options{
		TopK:        5,
		Temperature: 0,
		MaxTokens:   2000,
		Provider:    "openai",
	}
}

// Service is the query orchestrator. It is safe for concurrent use if the
// index and generator are.
type Service struct {
	index  Searcher
	gen    llm.Generator
	opts   Options
	logger *slog.Logger
}

// New creates a Service.
func New(index Searcher, gen llm.Generator, opts Options, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.TopK <= 0 {
		opts.TopK = DefaultOptions().TopK
	}
	return &Service{index: index, gen: gen, opts: opts, logger: logger}
}

// Query answers question from the k most relevant passages. When nothing is
// retrieved it returns InsufficientInformation without calling the
// generator. Search failures are returned as the index reported them;
// generator failures come back as *domain.GenerationError. Neither is retried.
func (s *Service) Query(ctx context.Context, question string, k int) (*domain.Answer, error) {
	if err := domain.ValidateQuestion(question); err != nil {
		return nil, err
	}
	if k <= 0 {
		k = s.opts.TopK
	}
	start := time.Now()
	ctx, span := otel.Tracer(tracerName).Start(ctx, "rag.query")
	defer span.End()

	results, err := s.search(ctx, question, k)
	if err != nil {
		s.finish("error", start)
		span.RecordError(err)
		span.SetStatus(codes.Error, "search failed")
		return nil, err
	}
	s.logger.Debug("rag: retrieved", "results", len(results), "k", k)

	if len(results) == 0 {
		s.finish("empty", start)
		return &domain.Answer{Content: InsufficientInformation, Citations: []domain.Citation{}}, nil
	}

	text, err := s.generate(ctx, buildRequest(question, results, s.opts))
	if err != nil {
		s.finish("error", start)
		span.RecordError(err)
		span.SetStatus(codes.Error, "generation failed")
		return nil, err
	}

	citations := ExtractCitations(text, results)
	span.SetAttributes(attribute.Int("rag.citations", len(citations)))
	s.finish("answered", start)
	s.logger.Info("rag: answered",
		"results", len(results),
		"citations", len(citations),
		"duration", time.Since(start),
	)
	return &domain.Answer{Content: text, Citations: citations}, nil
}

func (s *Service) search(ctx context.Context, question string, k int) ([]domain.SearchResult, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "rag.search")
	defer span.End()
	span.SetAttributes(attribute.Int("rag.k", k))

	results, err := s.index.Search(ctx, question, k)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("rag.results", len(results)))
	return results, nil
}

func (s *Service) generate(ctx context.Context, req llm.Request) (string, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "rag.generate")
	defer span.End()
	span.SetAttributes(attribute.String("rag.provider", s.opts.Provider))

	start := time.Now()
	text, err := s.gen.Generate(ctx, req)
	if s.opts.Metrics != nil {
		s.opts.Metrics.Histogram(metrics.WithLabels("rag_generate_duration_seconds", "provider", s.opts.Provider),
			"Generator call latency.", nil).Since(start)
	}
	if err != nil {
		span.RecordError(err)
		s.logger.Error("rag: generate failed", "provider", s.opts.Provider, "err", err)
		return "", &domain.GenerationError{Provider: s.opts.Provider, Err: err}
	}
	return text, nil
}

// finish records the outcome and latency of one query, whatever its outcome.
func (s *Service) finish(outcome string, start time.Time) {
	if s.opts.Metrics == nil {
		return
	}
	s.opts.Metrics.Counter(metrics.WithLabels("rag_queries_total", "outcome", outcome), "Questions handled, by outcome.").Inc()
	s.opts.Metrics.Histogram("rag_query_duration_seconds", "End-to-end question latency.", nil).Since(start)
}
