// Package ingest turns documents into index records and feeds them to a
// vector index, either in-process or from a NATS subject.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/WessleyAI/docqa/engine/domain"
	"github.com/WessleyAI/docqa/pkg/fn"
	"github.com/WessleyAI/docqa/pkg/natsutil"
)

// DefaultSubject is the NATS subject document batches are published on.
const DefaultSubject = "docqa.ingest"

// Indexer is the write side of a vector index.
type Indexer interface {
	AddDocuments(ctx context.Context, records []domain.IndexedRecord) error
}

// Batch is a set of documents sent over NATS for indexing.
type Batch struct {
	Documents []domain.Document `json:"documents"`
}

// Report summarises one pipeline run. Error is set when the run failed; a
// failure after some records were written leaves them in the index.
type Report struct {
	Documents int    `json:"documents"`
	Chunks    int    `json:"chunks"`
	Error     string `json:"error,omitempty"`
}

// Deps holds what the pipeline needs.
type Deps struct {
	Index        Indexer
	ChunkSize    int
	ChunkOverlap int
	Logger       *slog.Logger
}

// --- Pipeline Stages ---

// Validate rejects the whole batch if any document is invalid.
var Validate fn.Stage[[]domain.Document, []domain.Document] = func(_ context.Context, docs []domain.Document) fn.Result[[]domain.Document] {
	for i, doc := range docs {
		if err := domain.ValidateDocument(doc); err != nil {
			return fn.Err[[]domain.Document](fmt.Errorf("document %d: %w", i, err))
		}
	}
	return fn.Ok(docs)
}

// NewChunk creates the word-window chunking stage.
func NewChunk(size, overlap int) fn.Stage[[]domain.Document, []domain.Chunk] {
	return func(_ context.Context, docs []domain.Document) fn.Result[[]domain.Chunk] {
		return fn.FromPair(Chunk(docs, size, overlap))
	}
}

// ToRecords derives index records from chunks.
var ToRecords = fn.MapStage(Records)

// NewAdd creates the stage writing records to idx. It yields the number of
// records written.
func NewAdd(idx Indexer) fn.Stage[[]domain.IndexedRecord, int] {
	return func(ctx context.Context, records []domain.IndexedRecord) fn.Result[int] {
		if err := idx.AddDocuments(ctx, records); err != nil {
			return fn.Err[int](err)
		}
		return fn.Ok(len(records))
	}
}

// LoggedTap returns a pass-through stage that logs entry and, once the stage
// itself returns, duration.
func LoggedTap[T any](name string, log *slog.Logger) fn.Stage[T, T] {
	return func(_ context.Context, t T) fn.Result[T] {
		start := time.Now()
		log.Debug("stage.enter", "stage", name)
		defer func() {
			log.Debug("stage.exit", "stage", name, "duration", time.Since(start))
		}()
		return fn.Ok(t)
	}
}

// Pipeline indexes a batch of documents.
type Pipeline func(ctx context.Context, docs []domain.Document) (Report, error)

// NewPipeline composes Validate → Chunk → Records → Add. Invalid chunk
// parameters are reported here, before any document is seen.
func NewPipeline(deps Deps) (Pipeline, error) {
	if deps.Index == nil {
		return nil, fmt.Errorf("ingest: nil index")
	}
	if err := CheckChunkParams(deps.ChunkSize, deps.ChunkOverlap); err != nil {
		return nil, err
	}
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}

	validated := fn.Then(LoggedTap[[]domain.Document]("validate", log), fn.TracedStage("ingest.validate", Validate))
	chunked := fn.Then(validated, fn.TracedStage("ingest.chunk", NewChunk(deps.ChunkSize, deps.ChunkOverlap)))
	recorded := fn.Then(chunked, ToRecords)
	stored := fn.Then(recorded, fn.TracedStage("ingest.add", NewAdd(deps.Index)))

	return func(ctx context.Context, docs []domain.Document) (Report, error) {
		start := time.Now()
		n, err := stored(ctx, docs).Unwrap()
		report := Report{Documents: len(docs), Chunks: n}
		if err != nil {
			report.Error = err.Error()
			log.Error("ingest: pipeline failed", "err", err, "documents", len(docs))
			return report, fmt.Errorf("ingest: %w", err)
		}
		log.Info("ingest: indexed", "documents", len(docs), "chunks", n, "duration", time.Since(start))
		return report, nil
	}, nil
}

// ReportSubject is where consumers of subject announce each batch's Report.
func ReportSubject(subject string) string {
	if subject == "" {
		subject = DefaultSubject
	}
	return subject + ".reports"
}

// StartConsumer runs every Batch received on subject through pipeline,
// replies with its Report when the publisher asked for one and announces it
// on ReportSubject.
func StartConsumer(nc *nats.Conn, subject string, pipeline Pipeline, log *slog.Logger) (*nats.Subscription, error) {
	if log == nil {
		log = slog.Default()
	}
	if subject == "" {
		subject = DefaultSubject
	}
	return natsutil.Handle(nc, subject, func(ctx context.Context, b Batch) Report {
		report, _ := pipeline(ctx, b.Documents)
		if err := natsutil.Publish(ctx, nc, ReportSubject(subject), report); err != nil {
			log.Warn("ingest: report not announced", "subject", subject, "err", err)
		}
		return report
	}, func(err error) {
		log.Warn("ingest: dropping message", "subject", subject, "err", err)
	})
}

// Publish sends docs to a running consumer and waits for its report.
func Publish(ctx context.Context, nc *nats.Conn, subject string, docs []domain.Document) (Report, error) {
	if subject == "" {
		subject = DefaultSubject
	}
	report, err := natsutil.Request[Batch, Report](ctx, nc, subject, Batch{Documents: docs})
	if err != nil {
		return Report{}, err
	}
	if report.Error != "" {
		return report, fmt.Errorf("ingest: remote: %s", report.Error)
	}
	return report, nil
}

// Send publishes docs without waiting for them to be indexed. ctx must carry
// a deadline.
func Send(ctx context.Context, nc *nats.Conn, subject string, docs []domain.Document) error {
	if subject == "" {
		subject = DefaultSubject
	}
	if err := natsutil.Publish(ctx, nc, subject, Batch{Documents: docs}); err != nil {
		return err
	}
	return nc.FlushWithContext(ctx)
}

// WatchReports calls handler with every Report announced by consumers of
// subject.
func WatchReports(nc *nats.Conn, subject string, handler func(context.Context, Report), log *slog.Logger) (*nats.Subscription, error) {
	if log == nil {
		log = slog.Default()
	}
	return natsutil.Subscribe(nc, ReportSubject(subject), handler, func(err error) {
		log.Warn("ingest: malformed report", "err", err)
	})
}
