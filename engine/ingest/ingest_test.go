package ingest

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/WessleyAI/docqa/engine/domain"
)

type mockIndexer struct {
	calls   int
	records []domain.IndexedRecord
	err     error
}

func (m *mockIndexer) AddDocuments(_ context.Context, recs []domain.IndexedRecord) error {
	m.calls++
	if m.err != nil {
		return m.err
	}
	m.records = append(m.records, recs...)
	return nil
}

func quietLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestPipelineIndexesDocuments(t *testing.T) {
	idx := &mockIndexer{}
	p, err := NewPipeline(Deps{Index: idx, ChunkSize: 20, ChunkOverlap: 5, Logger: quietLogger()})
	if err != nil {
		t.Fatal(err)
	}
	report, err := p(context.Background(), []domain.Document{doc("a.md", words(25)), doc("b.md", "short text")})
	if err != nil {
		t.Fatal(err)
	}
	if report.Documents != 2 || report.Chunks != 3 || report.Error != "" {
		t.Fatalf("report %+v", report)
	}
	if idx.calls != 1 || len(idx.records) != 3 || idx.records[2].ID != "b.md_0" {
		t.Fatalf("indexer got %d calls, %+v", idx.calls, idx.records)
	}
}

func TestPipelineRejectsInvalidDocument(t *testing.T) {
	idx := &mockIndexer{}
	p, _ := NewPipeline(Deps{Index: idx, ChunkSize: 20, ChunkOverlap: 5, Logger: quietLogger()})
	bad := doc("b.md", "text")
	delete(bad.Metadata, domain.MetaTitle)

	report, err := p(context.Background(), []domain.Document{doc("a.md", "text"), bad})
	if !errors.Is(err, domain.ErrInvalidDocument) {
		t.Fatalf("expected ErrInvalidDocument, got %v", err)
	}
	if idx.calls != 0 || report.Error == "" {
		t.Fatalf("nothing should be indexed: calls=%d report=%+v", idx.calls, report)
	}
}

func TestPipelineSurfacesIndexError(t *testing.T) {
	cause := &domain.IndexBackendError{Backend: "remote", Op: "upsert", Err: errors.New("down")}
	p, _ := NewPipeline(Deps{Index: &mockIndexer{err: cause}, ChunkSize: 20, ChunkOverlap: 5, Logger: quietLogger()})
	_, err := p(context.Background(), []domain.Document{doc("a.md", "text")})
	if !errors.Is(err, domain.ErrIndexBackend) {
		t.Fatalf("expected IndexBackendError, got %v", err)
	}
}

func TestNewPipelineChecksConfig(t *testing.T) {
	_, err := NewPipeline(Deps{Index: &mockIndexer{}, ChunkSize: 100, ChunkOverlap: 100})
	if !errors.Is(err, domain.ErrConfiguration) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
	if _, err := NewPipeline(Deps{ChunkSize: 10}); err == nil {
		t.Fatal("expected error for nil index")
	}
}

func TestReportSubject(t *testing.T) {
	if got := ReportSubject(""); got != DefaultSubject+".reports" {
		t.Fatalf("got %s", got)
	}
	if got := ReportSubject("docs.in"); got != "docs.in.reports" {
		t.Fatalf("got %s", got)
	}
}
