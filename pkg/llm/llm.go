// Package llm defines the text-generation boundary shared by the chat
// backends.
package llm

import "context"

// Role of a chat message author.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// FormatText asks the backend for plain text output.
const FormatText = "text"

// Message is one turn of a conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Request is a single generation call. Temperature is always forwarded, so
// the zero value means deterministic decoding rather than "backend default".
type Request struct {
	System         string
	Messages       []Message
	Temperature    float64
	MaxTokens      int
	ResponseFormat string
}

// Thread returns the conversation with the system instruction, if any, as the
// first message.
func (r Request) Thread() []Message {
	out := make([]Message, 0, len(r.Messages)+1)
	if r.System != "" {
		out = append(out, Message{Role: RoleSystem, Content: r.System})
	}
	return append(out, r.Messages...)
}

// Generator produces a completion for a request.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}
