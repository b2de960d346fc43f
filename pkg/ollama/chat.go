package ollama

import (
	"context"
	"fmt"

	"github.com/WessleyAI/docqa/pkg/llm"
)

var _ llm.Generator = (*ChatClient)(nil)

// ChatClient generates completions through Ollama's /api/chat endpoint.
type ChatClient struct {
	transport
}

// NewChatClient creates an Ollama chat client.
func NewChatClient(cfg Config) *ChatClient {
	return &ChatClient{transport: newTransport(cfg, DefaultChatModel)}
}

type chatOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type chatReq struct {
	Model    string        `json:"model"`
	Messages []llm.Message `json:"messages"`
	Stream   bool          `json:"stream"`
	Options  chatOptions   `json:"options"`
}

type chatResp struct {
	Message llm.Message `json:"message"`
}

// Generate sends req as a non-streaming chat call. ResponseFormat "text" is
// Ollama's default and needs no field.
func (c *ChatClient) Generate(ctx context.Context, req llm.Request) (string, error) {
	body := chatReq{
		Model:    c.model,
		Messages: req.Thread(),
		Options: chatOptions{
			Temperature: req.Temperature,
			NumPredict:  req.MaxTokens,
		},
	}
	var resp chatResp
	if err := c.post(ctx, "/api/chat", body, &resp); err != nil {
		return "", fmt.Errorf("ollama chat: %w", err)
	}
	if resp.Message.Role == "" && resp.Message.Content == "" {
		return "", fmt.Errorf("ollama chat: response has no message")
	}
	return resp.Message.Content, nil
}
