package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/WessleyAI/docqa/pkg/llm"
)

func TestNewChatClientRequiresKey(t *testing.T) {
	if _, err := NewChatClient(Config{}); err == nil {
		t.Fatal("expected error for missing API key")
	}
}

func TestGenerateSendsRequest(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			t.Errorf("auth header %q", r.Header.Get("Authorization"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"content":"42"}}]}`))
	}))
	defer srv.Close()

	c, err := NewChatClient(Config{APIKey: "sk-test", BaseURL: srv.URL + "/"})
	if err != nil {
		t.Fatal(err)
	}
	out, err := c.Generate(context.Background(), llm.Request{
		System:         "sys",
		Messages:       []llm.Message{{Role: llm.RoleUser, Content: "q"}},
		Temperature:    0,
		MaxTokens:      2000,
		ResponseFormat: llm.FormatText,
	})
	if err != nil {
		t.Fatal(err)
	}
	if out != "42" {
		t.Fatalf("got %q", out)
	}

	if got["model"] != DefaultModel {
		t.Errorf("model %v", got["model"])
	}
	if temp, ok := got["temperature"]; !ok || temp.(float64) != 0 {
		t.Errorf("temperature must be sent explicitly, got %v (present=%v)", temp, ok)
	}
	if got["max_tokens"].(float64) != 2000 {
		t.Errorf("max_tokens %v", got["max_tokens"])
	}
	if rf, _ := got["response_format"].(map[string]any); rf["type"] != "text" {
		t.Errorf("response_format %v", got["response_format"])
	}
	msgs := got["messages"].([]any)
	if len(msgs) != 2 || msgs[0].(map[string]any)["role"] != "system" {
		t.Errorf("messages %v", msgs)
	}
}

func TestGenerateAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"slow down","type":"rate_limit"}}`))
	}))
	defer srv.Close()

	c, _ := NewChatClient(Config{APIKey: "k", BaseURL: srv.URL})
	_, err := c.Generate(context.Background(), llm.Request{})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != 429 || apiErr.Message != "slow down" || !apiErr.Temporary() {
		t.Fatalf("unexpected error %+v", apiErr)
	}
}

func TestGenerateNoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	c, _ := NewChatClient(Config{APIKey: "k", BaseURL: srv.URL})
	if _, err := c.Generate(context.Background(), llm.Request{}); err == nil {
		t.Fatal("expected error for empty choices")
	}
}
