// Package domain defines the core types and error taxonomy shared by the
// docqa pipeline: documents and their chunks, indexed records, search results
// and cited answers.
package domain

import "fmt"

// Metadata keys the pipeline reads and writes.
const (
	MetaSource     = "source"
	MetaTitle      = "title"
	MetaCategory   = "category"
	MetaChunkIndex = "chunk_index"
)

// Document is one source file as supplied by a document source.
type Document struct {
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata"`
	Source   string         `json:"source"`
}

// Chunk is a word window of a parent Document. Metadata carries chunk_index.
type Chunk struct {
	Document
	Index int `json:"chunk_index"`
}

// IndexedRecord is the unit handed to a vector index. ID is "<source>_<chunk_index>".
type IndexedRecord struct {
	ID       string         `json:"id"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata"`
}

// SearchResult is a single hit from a vector index. Score is only comparable
// within the result set of one backend.
type SearchResult struct {
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata"`
	Score    float64        `json:"score"`
}

// Citation attributes part of an answer to a retrieved passage.
type Citation struct {
	Source string  `json:"source"`
	Title  string  `json:"title"`
	Score  float64 `json:"score"`
}

// Answer is the final output of a question.
type Answer struct {
	Content   string     `json:"content"`
	Citations []Citation `json:"citations"`
}

// MetaString returns the metadata value under key as a string, or "" when absent.
func MetaString(meta map[string]any, key string) string {
	v, ok := meta[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// CopyMetadata returns a shallow copy of meta with room for extra keys.
func CopyMetadata(meta map[string]any, extra int) map[string]any {
	out := make(map[string]any, len(meta)+extra)
	for k, v := range meta {
		out[k] = v
	}
	return out
}
