package rag

import (
	"fmt"
	"strings"

	"github.com/WessleyAI/docqa/engine/domain"
	"github.com/WessleyAI/docqa/pkg/llm"
)

// InsufficientInformation is the answer given when retrieval finds nothing.
// The system prompt asks the model to use the same sentence.
const InsufficientInformation = "I don't have enough information to answer that question."

// SystemPrompt instructs the generator to stay within the retrieved context.
const SystemPrompt = `You are a helpful assistant that answers questions using the provided context from technical documentation.
Your responses must be:
1. Accurate and based only on the provided context
2. Well-structured and easy to understand
3. Supported by specific citations from the source material
4. Technical but accessible
5. If the context does not contain the answer, reply exactly: "` + InsufficientInformation + `"

Format your response with:
- A clear answer to the question
- Supporting details from the context
- Citations to the specific sources used`

const userTemplate = `Context: %s

Question: %s

Please provide a detailed answer based on the context above. Include specific citations from the sources.`

// BuildContext renders results as numbered sources, in retrieval order:
// "Source i (title):\ncontent\n" joined by newlines.
func BuildContext(results []domain.SearchResult) string {
	parts := make([]string, len(results))
	for i, r := range results {
		parts[i] = fmt.Sprintf("Source %d (%s):\n%s\n", i+1, displayTitle(r.Metadata), r.Content)
	}
	return strings.Join(parts, "\n")
}

func displayTitle(meta map[string]any) string {
	if t := domain.MetaString(meta, domain.MetaTitle); t != "" {
		return t
	}
	if s := domain.MetaString(meta, domain.MetaSource); s != "" {
		return s
	}
	return "unknown"
}

func buildRequest(question string, results []domain.SearchResult, opts Options) llm.Request {
	return llm.Request{
		System: SystemPrompt,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: fmt.Sprintf(userTemplate, BuildContext(results), question)},
		},
		Temperature:    opts.Temperature,
		MaxTokens:      opts.MaxTokens,
		ResponseFormat: llm.FormatText,
	}
}

// ExtractCitations returns one citation per result whose full content
// appears verbatim in answer, in retrieval order. Results with empty content
// never cite. The returned slice is never nil.
func ExtractCitations(answer string, results []domain.SearchResult) []domain.Citation {
	out := []domain.Citation{}
	for _, r := range results {
		if r.Content == "" || !strings.Contains(answer, r.Content) {
			continue
		}
		out = append(out, domain.Citation{
			Source: domain.MetaString(r.Metadata, domain.MetaSource),
			Title:  domain.MetaString(r.Metadata, domain.MetaTitle),
			Score:  r.Score,
		})
	}
	return out
}
