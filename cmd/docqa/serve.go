package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"

	"github.com/WessleyAI/docqa/engine/config"
	"github.com/WessleyAI/docqa/engine/domain"
	"github.com/WessleyAI/docqa/engine/ingest"
	"github.com/WessleyAI/docqa/pkg/mid"
)

func newServeCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Index DOCS_DIR and serve questions over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.load()
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg, os.Stdout)
			if err != nil {
				return err
			}
			slog.SetDefault(logger)
			return runServe(cmd.Context(), cfg, !g.noIndex, logger)
		},
	}
}

func runServe(ctx context.Context, cfg config.Config, indexAtStart bool, logger *slog.Logger) error {
	a, err := bootstrap(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	if indexAtStart {
		if _, err := a.indexDocs(ctx); err != nil {
			return fmt.Errorf("initial indexing: %w", err)
		}
	}

	// --- Optional NATS ingestion ---
	if cfg.NATSURL != "" {
		nc, err := nats.Connect(cfg.NATSURL, nats.Name("docqa-serve"))
		if err != nil {
			return fmt.Errorf("nats connect: %w", err)
		}
		defer nc.Drain()
		if _, err := ingest.StartConsumer(nc, cfg.IngestSubject, a.pipeline, logger); err != nil {
			return fmt.Errorf("nats subscribe: %w", err)
		}
		logger.Info("ingest consumer started", "subject", cfg.IngestSubject)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      newHandler(a, cfg, logger),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.QueryTimeout + 10*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// --- Graceful shutdown ---
	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server starting", "port", cfg.Port, "backend", cfg.VectorDB, "llm", cfg.LLMProvider)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutCtx)
}

func newHandler(a *app, cfg config.Config, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", handleHealth)
	mux.HandleFunc("POST /api/ask", handleAsk(a.rag, cfg.QueryTimeout, logger))
	mux.Handle("GET /metrics", a.metrics.Handler())

	return mid.Chain(mux,
		mid.Recover(logger),
		mid.Logger(logger),
		mid.CORS(cfg.CORSOrigin),
		mid.OTel("docqa"),
		mid.Metrics(a.metrics),
	)
}

// --- Handlers ---

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// querier is the part of rag.Service the HTTP API uses.
type querier interface {
	Query(ctx context.Context, question string, k int) (*domain.Answer, error)
}

// AskRequest is the JSON body for POST /api/ask. K <= 0 uses TOP_K.
type AskRequest struct {
	Question string `json:"question"`
	K        int    `json:"k,omitempty"`
}

// AskResponse is the JSON response for POST /api/ask.
type AskResponse struct {
	Answer    string            `json:"answer"`
	Citations []domain.Citation `json:"citations"`
}

func handleAsk(q querier, timeout time.Duration, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AskRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if err := domain.ValidateQuestion(req.Question); err != nil {
			writeError(w, http.StatusBadRequest, "question is required")
			return
		}

		ctx := r.Context()
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		answer, err := q.Query(ctx, req.Question, req.K)
		if err != nil {
			status := statusFor(err)
			logger.Error("ask failed", "err", err, "status", status)
			writeError(w, status, http.StatusText(status))
			return
		}
		writeJSON(w, http.StatusOK, AskResponse{Answer: answer.Content, Citations: answer.Citations})
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrEmptyQuestion):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, domain.ErrGeneration):
		return http.StatusBadGateway
	case errors.Is(err, domain.ErrEmbedding), errors.Is(err, domain.ErrIndexBackend):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
