package rag

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/WessleyAI/docqa/engine/domain"
	"github.com/WessleyAI/docqa/pkg/llm"
	"github.com/WessleyAI/docqa/pkg/metrics"
)

// --- Mocks ---

type mockSearcher struct {
	results []domain.SearchResult
	err     error
	gotK    int
}

func (m *mockSearcher) Search(_ context.Context, _ string, k int) ([]domain.SearchResult, error) {
	m.gotK = k
	return m.results, m.err
}

type mockGenerator struct {
	reply string
	err   error
	calls int
	req   llm.Request
}

func (m *mockGenerator) Generate(_ context.Context, req llm.Request) (string, error) {
	m.calls++
	m.req = req
	return m.reply, m.err
}

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func result(source, title, content string, score float64) domain.SearchResult {
	return domain.SearchResult{
		Content:  content,
		Metadata: map[string]any{domain.MetaSource: source, domain.MetaTitle: title},
		Score:    score,
	}
}

// --- Tests ---

func TestQueryEmptyRetrievalSkipsGenerator(t *testing.T) {
	gen := &mockGenerator{reply: "should not be used"}
	svc := New(&mockSearcher{}, gen, DefaultOptions(), quiet())

	ans, err := svc.Query(context.Background(), "How do I reset it?", 5)
	if err != nil {
		t.Fatal(err)
	}
	if ans.Content != InsufficientInformation {
		t.Fatalf("got %q", ans.Content)
	}
	if ans.Citations == nil || len(ans.Citations) != 0 {
		t.Fatalf("want empty citations, got %#v", ans.Citations)
	}
	if gen.calls != 0 {
		t.Fatalf("generator called %d times", gen.calls)
	}
}

func TestQueryBuildsRequestAndCites(t *testing.T) {
	results := []domain.SearchResult{
		result("net/router.md", "router", "Hold the reset button for ten seconds.", 0.9),
		result("ops/backup.md", "backup", "Backups run nightly.", 0.4),
		result("net/wifi.md", "wifi", "The router restarts after the reset.", 0.3),
	}
	gen := &mockGenerator{reply: "To reset: Hold the reset button for ten seconds. The router restarts after the reset."}
	idx := &mockSearcher{results: results}
	svc := New(idx, gen, DefaultOptions(), quiet())

	ans, err := svc.Query(context.Background(), "How do I reset the router?", 3)
	if err != nil {
		t.Fatal(err)
	}
	if idx.gotK != 3 {
		t.Fatalf("search got k=%d", idx.gotK)
	}
	if ans.Content != gen.reply {
		t.Fatalf("answer %q", ans.Content)
	}
	if len(ans.Citations) != 2 {
		t.Fatalf("want 2 citations, got %+v", ans.Citations)
	}
	if ans.Citations[0] != (domain.Citation{Source: "net/router.md", Title: "router", Score: 0.9}) ||
		ans.Citations[1].Source != "net/wifi.md" {
		t.Fatalf("citations %+v", ans.Citations)
	}

	req := gen.req
	if req.Temperature != 0 || req.MaxTokens != 2000 || req.ResponseFormat != llm.FormatText {
		t.Fatalf("request parameters %+v", req)
	}
	if !strings.Contains(req.System, InsufficientInformation) {
		t.Fatal("system prompt must carry the insufficiency sentence")
	}
	user := req.Messages[0].Content
	if req.Messages[0].Role != llm.RoleUser || !strings.Contains(user, "Question: How do I reset the router?") {
		t.Fatalf("user message %q", user)
	}
	if !strings.Contains(user, BuildContext(results)) {
		t.Fatal("user message does not carry the context block")
	}
}

func TestQueryDefaultK(t *testing.T) {
	idx := &mockSearcher{}
	svc := New(idx, &mockGenerator{}, Options{TopK: 7}, quiet())
	_, _ = svc.Query(context.Background(), "q", 0)
	if idx.gotK != 7 {
		t.Fatalf("want k=7, got %d", idx.gotK)
	}
}

func TestQueryGenerationError(t *testing.T) {
	cause := errors.New("quota exceeded")
	gen := &mockGenerator{err: cause}
	svc := New(&mockSearcher{results: []domain.SearchResult{result("a", "a", "x", 1)}}, gen, DefaultOptions(), quiet())

	_, err := svc.Query(context.Background(), "q", 1)
	var ge *domain.GenerationError
	if !errors.As(err, &ge) || !errors.Is(err, cause) || ge.Provider != "openai" {
		t.Fatalf("expected GenerationError wrapping cause, got %v", err)
	}
	if gen.calls != 1 {
		t.Fatalf("generation must not be retried, got %d calls", gen.calls)
	}
}

func TestQuerySearchError(t *testing.T) {
	cause := &domain.IndexBackendError{Backend: "remote", Op: "search", Err: errors.New("down")}
	gen := &mockGenerator{}
	svc := New(&mockSearcher{err: cause}, gen, DefaultOptions(), quiet())
	_, err := svc.Query(context.Background(), "q", 1)
	if err != cause || gen.calls != 0 {
		t.Fatalf("expected the index error as reported, without generation, got %v (calls=%d)", err, gen.calls)
	}
}

func TestQueryRejectsBlankQuestion(t *testing.T) {
	idx := &mockSearcher{}
	svc := New(idx, &mockGenerator{}, DefaultOptions(), quiet())
	_, err := svc.Query(context.Background(), "   ", 5)
	if !errors.Is(err, domain.ErrEmptyQuestion) || idx.gotK != 0 {
		t.Fatalf("expected ErrEmptyQuestion before search, got %v", err)
	}
}

func TestQueryRecordsMetrics(t *testing.T) {
	reg := metrics.New()
	opts := DefaultOptions()
	opts.Metrics = reg
	svc := New(&mockSearcher{}, &mockGenerator{}, opts, quiet())
	_, _ = svc.Query(context.Background(), "q", 1)
	if !strings.Contains(reg.Render(), `rag_queries_total{outcome="empty"} 1`) {
		t.Fatalf("missing counter:\n%s", reg.Render())
	}
}

func TestQueryRecordsLatencyOnEveryOutcome(t *testing.T) {
	reg := metrics.New()
	opts := DefaultOptions()
	opts.Metrics = reg
	hit := []domain.SearchResult{result("a", "a", "x", 1)}

	_, _ = New(&mockSearcher{}, &mockGenerator{}, opts, quiet()).Query(context.Background(), "q", 1)
	_, _ = New(&mockSearcher{err: errors.New("down")}, &mockGenerator{}, opts, quiet()).Query(context.Background(), "q", 1)
	_, _ = New(&mockSearcher{results: hit}, &mockGenerator{err: errors.New("quota")}, opts, quiet()).Query(context.Background(), "q", 1)

	out := reg.Render()
	if !strings.Contains(out, `rag_queries_total{outcome="error"} 2`) {
		t.Fatalf("missing error counter:\n%s", out)
	}
	if !strings.Contains(out, "rag_query_duration_seconds_count 3") {
		t.Fatalf("latency not recorded for every query:\n%s", out)
	}
}

func TestBuildContext(t *testing.T) {
	got := BuildContext([]domain.SearchResult{
		result("a.md", "Alpha", "first", 1),
		{Content: "second", Metadata: map[string]any{domain.MetaSource: "b.md"}},
		{Content: "third"},
	})
	want := "Source 1 (Alpha):\nfirst\n\nSource 2 (b.md):\nsecond\n\nSource 3 (unknown):\nthird\n"
	if got != want {
		t.Fatalf("got %q\nwant %q", got, want)
	}
}

func TestExtractCitations(t *testing.T) {
	results := []domain.SearchResult{
		result("a.md", "a", "", 1),
		result("b.md", "b", "exact passage", 0.5),
		result("c.md", "c", "Exact Passage", 0.4),
	}
	got := ExtractCitations("quoting the exact passage here", results)
	if len(got) != 1 || got[0].Source != "b.md" {
		t.Fatalf("want only case-sensitive verbatim match, got %+v", got)
	}
	if none := ExtractCitations("unrelated", results); none == nil || len(none) != 0 {
		t.Fatalf("want empty non-nil slice, got %#v", none)
	}
}
