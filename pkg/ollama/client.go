// Package ollama provides embedding and chat clients for a local Ollama server.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL    = "http://localhost:11434"
	DefaultEmbedModel = "all-minilm"
	DefaultChatModel  = "llama3.2"
	DefaultTimeout    = 120 * time.Second
)

// Config holds the settings shared by EmbedClient and ChatClient.
type Config struct {
	BaseURL string
	Model   string
	Timeout time.Duration
	// RPS limits outgoing requests per second; 0 disables limiting.
	RPS float64
}

// transport is the HTTP plumbing both clients share.
type transport struct {
	baseURL string
	model   string
	client  *http.Client
	limiter *rate.Limiter
}

func newTransport(cfg Config, defaultModel string) transport {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	t := transport{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		model:   cfg.Model,
		client: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
	if cfg.RPS > 0 {
		t.limiter = rate.NewLimiter(rate.Limit(cfg.RPS), 1)
	}
	return t
}

// post sends body as JSON to path and decodes the response into out.
func (t transport) post(ctx context.Context, path string, body, out any) error {
	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			return err
		}
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		if e.Error != "" {
			return fmt.Errorf("status %d: %s", resp.StatusCode, e.Error)
		}
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}
