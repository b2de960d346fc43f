package domain

import "strings"

// ValidateDocument checks a Document before it enters the ingestion pipeline.
// Metadata must carry a source and a title; both are needed for citations.
func ValidateDocument(doc Document) error {
	if strings.TrimSpace(doc.Source) == "" {
		return NewValidationError("source", doc.Source, ErrInvalidDocument)
	}
	if MetaString(doc.Metadata, MetaSource) == "" {
		return NewValidationError("metadata.source", doc.Source, ErrInvalidDocument)
	}
	if MetaString(doc.Metadata, MetaTitle) == "" {
		return NewValidationError("metadata.title", doc.Source, ErrInvalidDocument)
	}
	return nil
}

// ValidateQuestion rejects blank questions.
func ValidateQuestion(q string) error {
	if strings.TrimSpace(q) == "" {
		return NewValidationError("question", q, ErrEmptyQuestion)
	}
	return nil
}
