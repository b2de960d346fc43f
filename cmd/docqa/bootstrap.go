package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/WessleyAI/docqa/engine/config"
	"github.com/WessleyAI/docqa/engine/domain"
	"github.com/WessleyAI/docqa/engine/embed"
	"github.com/WessleyAI/docqa/engine/ingest"
	"github.com/WessleyAI/docqa/engine/rag"
	"github.com/WessleyAI/docqa/engine/semantic"
	"github.com/WessleyAI/docqa/engine/source"
	"github.com/WessleyAI/docqa/pkg/fn"
	"github.com/WessleyAI/docqa/pkg/llm"
	"github.com/WessleyAI/docqa/pkg/metrics"
	"github.com/WessleyAI/docqa/pkg/ollama"
	"github.com/WessleyAI/docqa/pkg/openai"
)

func newLogger(cfg config.Config, w io.Writer) (*slog.Logger, error) {
	lvl, err := cfg.SlogLevel()
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if cfg.LogFormat == "text" {
		return slog.New(slog.NewTextHandler(w, opts)), nil
	}
	return slog.New(slog.NewJSONHandler(w, opts)), nil
}

func newProvider(cfg config.Config) (embed.Provider, error) {
	switch cfg.EmbedProvider {
	case config.EmbedHash:
		return embed.NewHasher(cfg.EmbedDims, cfg.EmbedWorkers), nil
	case config.EmbedOllama:
		return ollama.NewEmbedClient(ollama.EmbedConfig{
			Config:     ollama.Config{BaseURL: cfg.OllamaURL, Model: cfg.EmbedModel},
			Dimensions: cfg.EmbedDims,
			Workers:    cfg.EmbedWorkers,
		}), nil
	}
	return nil, domain.NewConfigurationError("EMBED_PROVIDER", cfg.EmbedProvider, "must be hash or ollama")
}

func newGenerator(cfg config.Config) (llm.Generator, error) {
	switch cfg.LLMProvider {
	case config.LLMOpenAI:
		gen, err := openai.NewChatClient(openai.Config{
			APIKey:  cfg.OpenAIKey,
			BaseURL: cfg.OpenAIBaseURL,
			Model:   cfg.ChatModel,
			Timeout: cfg.LLMTimeout,
			RPS:     cfg.LLMRPS,
		})
		if err != nil {
			return nil, domain.NewConfigurationError("OPENAI_API_KEY", "", err.Error())
		}
		return gen, nil
	case config.LLMOllama:
		return ollama.NewChatClient(ollama.Config{
			BaseURL: cfg.OllamaURL,
			Model:   cfg.ChatModel,
			Timeout: cfg.LLMTimeout,
			RPS:     cfg.LLMRPS,
		}), nil
	}
	return nil, domain.NewConfigurationError("LLM_PROVIDER", cfg.LLMProvider, "unsupported provider")
}

// app is the wired pipeline shared by serve, ask and chat.
type app struct {
	cfg      config.Config
	log      *slog.Logger
	index    semantic.Store
	pipeline ingest.Pipeline
	rag      *rag.Service
	metrics  *metrics.Registry
}

// bootstrap validates cfg and builds every component. Nothing is indexed yet.
func bootstrap(ctx context.Context, cfg config.Config, log *slog.Logger) (*app, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	provider, err := newProvider(cfg)
	if err != nil {
		return nil, err
	}
	gen, err := newGenerator(cfg)
	if err != nil {
		return nil, err
	}
	index, err := semantic.New(ctx, cfg.Index(), provider, log)
	if err != nil {
		return nil, err
	}
	pipeline, err := ingest.NewPipeline(ingest.Deps{
		Index:        index,
		ChunkSize:    cfg.ChunkSize,
		ChunkOverlap: cfg.ChunkOverlap,
		Logger:       log,
	})
	if err != nil {
		index.Close()
		return nil, err
	}

	reg := metrics.New()
	opts := rag.DefaultOptions()
	opts.TopK = cfg.TopK
	opts.Provider = cfg.LLMProvider
	opts.Metrics = reg

	return &app{
		cfg:      cfg,
		log:      log,
		index:    index,
		pipeline: countIngest(pipeline, reg),
		rag:      rag.New(index, gen, opts, log),
		metrics:  reg,
	}, nil
}

// countIngest records batch outcomes and volumes of every pipeline run.
func countIngest(p ingest.Pipeline, reg *metrics.Registry) ingest.Pipeline {
	return func(ctx context.Context, docs []domain.Document) (ingest.Report, error) {
		inFlight := reg.Gauge("ingest_batches_in_flight", "Document batches being indexed.")
		inFlight.Add(1)
		report, err := p(ctx, docs)
		inFlight.Add(-1)
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		reg.Counter(metrics.WithLabels("ingest_batches_total", "outcome", outcome), "Document batches ingested, by outcome.").Inc()
		reg.Counter("ingest_documents_total", "Documents received for indexing.").Add(int64(report.Documents))
		reg.Counter("ingest_chunks_total", "Chunks written to the index.").Add(int64(report.Chunks))
		return report, err
	}
}

func (a *app) Close() error { return a.index.Close() }

// indexDocs loads DOCS_DIR, when set, and runs it through the pipeline.
func (a *app) indexDocs(ctx context.Context) (ingest.Report, error) {
	if a.cfg.DocsDir == "" {
		a.log.Warn("DOCS_DIR not set; starting with whatever the index already holds")
		return ingest.Report{}, nil
	}
	docs, err := loadDocs(ctx, a.cfg)
	if err != nil {
		return ingest.Report{}, err
	}
	return a.pipeline(ctx, docs)
}

func loadDocs(ctx context.Context, cfg config.Config) ([]domain.Document, error) {
	docs, err := source.Dir{Root: cfg.DocsDir, Subfolder: cfg.DocsSubfolder}.Load(ctx)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("no markdown files under %s", cfg.DocsDir)
	}
	return docs, nil
}

// ask runs one query, retrying generation failures up to cfg.LLMRetries
// extra times.
func (a *app) ask(ctx context.Context, question string, k int) (*domain.Answer, error) {
	opts := fn.DefaultRetry
	opts.MaxAttempts = a.cfg.LLMRetries + 1
	opts.Retryable = retryableGeneration
	return fn.Retry(ctx, opts, func(ctx context.Context) fn.Result[*domain.Answer] {
		return fn.FromPair(a.rag.Query(ctx, question, k))
	}).Unwrap()
}

// retryableGeneration accepts generation failures except API responses that
// another attempt cannot change, such as 400 or 401.
func retryableGeneration(err error) bool {
	if !errors.Is(err, domain.ErrGeneration) {
		return false
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Temporary()
	}
	return true
}
