package ingest

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/WessleyAI/docqa/engine/domain"
)

const (
	// DefaultChunkSize is the window length in words.
	DefaultChunkSize = 1000
	// DefaultChunkOverlap is the number of words shared by consecutive windows.
	DefaultChunkOverlap = 200
)

// CheckChunkParams reports a *domain.ConfigurationError unless
// 0 <= overlap < size.
func CheckChunkParams(size, overlap int) error {
	switch {
	case size <= 0:
		return domain.NewConfigurationError("chunk_size", strconv.Itoa(size), "must be positive")
	case overlap < 0:
		return domain.NewConfigurationError("chunk_overlap", strconv.Itoa(overlap), "must not be negative")
	case overlap >= size:
		return domain.NewConfigurationError("chunk_overlap", strconv.Itoa(overlap),
			fmt.Sprintf("must be smaller than chunk_size %d", size))
	}
	return nil
}

// Chunk splits each document into overlapping word windows. Words are runs
// of non-whitespace; a window holds at most size of them rejoined with single
// spaces, and each window starts size-overlap words after the previous one.
// The last window is the first that reaches the end of the document, so a
// document of at most size words yields exactly one chunk and a document
// without words yields none.
//
// Chunks inherit a copy of the parent metadata plus chunk_index; parents are
// never modified. Output follows input order, then chunk index.
func Chunk(docs []domain.Document, size, overlap int) ([]domain.Chunk, error) {
	if err := CheckChunkParams(size, overlap); err != nil {
		return nil, err
	}
	stride := size - overlap

	var chunks []domain.Chunk
	for _, doc := range docs {
		words := strings.Fields(doc.Content)
		for start := 0; start < len(words); start += stride {
			end := min(start+size, len(words))
			idx := start / stride

			meta := domain.CopyMetadata(doc.Metadata, 1)
			meta[domain.MetaChunkIndex] = idx
			chunks = append(chunks, domain.Chunk{
				Document: domain.Document{
					Content:  strings.Join(words[start:end], " "),
					Metadata: meta,
					Source:   doc.Source,
				},
				Index: idx,
			})
			if end == len(words) {
				break
			}
		}
	}
	return chunks, nil
}

// RecordID is the index identifier of a chunk.
func RecordID(source string, chunkIndex int) string {
	return source + "_" + strconv.Itoa(chunkIndex)
}

// Records converts chunks into index records. The metadata map is shared
// with the chunk.
func Records(chunks []domain.Chunk) []domain.IndexedRecord {
	out := make([]domain.IndexedRecord, len(chunks))
	for i, c := range chunks {
		out[i] = domain.IndexedRecord{
			ID:       RecordID(c.Source, c.Index),
			Content:  c.Content,
			Metadata: c.Metadata,
		}
	}
	return out
}
