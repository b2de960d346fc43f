package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors. The typed errors below match them with errors.Is.
var (
	ErrConfiguration     = errors.New("configuration error")
	ErrEmbedding         = errors.New("embedding error")
	ErrIndexBackend      = errors.New("index backend error")
	ErrGeneration        = errors.New("generation error")
	ErrInvalidDocument   = errors.New("invalid document")
	ErrEmptyQuestion     = errors.New("empty question")
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

// ConfigurationError reports an invalid setting. It is raised at construction
// time and never at query time.
type ConfigurationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("configuration: %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("configuration: %s: %s (value=%q)", e.Field, e.Reason, e.Value)
}

func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

// NewConfigurationError creates a ConfigurationError.
func NewConfigurationError(field, value, reason string) *ConfigurationError {
	return &ConfigurationError{Field: field, Value: value, Reason: reason}
}

// EmbeddingError wraps a failure of the embedding provider.
type EmbeddingError struct {
	Op  string
	Err error
}

func (e *EmbeddingError) Error() string {
	return fmt.Sprintf("embedding: %s: %v", e.Op, e.Err)
}

func (e *EmbeddingError) Unwrap() error { return e.Err }

func (e *EmbeddingError) Is(target error) bool { return target == ErrEmbedding }

// IndexBackendError wraps a vector index failure. Backend is "local" or "remote".
type IndexBackendError struct {
	Backend string
	Op      string
	Err     error
}

func (e *IndexBackendError) Error() string {
	return fmt.Sprintf("index %s: %s: %v", e.Backend, e.Op, e.Err)
}

func (e *IndexBackendError) Unwrap() error { return e.Err }

func (e *IndexBackendError) Is(target error) bool { return target == ErrIndexBackend }

// GenerationError wraps a failure of the answer-generation service.
type GenerationError struct {
	Provider string
	Err      error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation %s: %v", e.Provider, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

func (e *GenerationError) Is(target error) bool { return target == ErrGeneration }

// ValidationError wraps a sentinel with context.
type ValidationError struct {
	Field   string
	Value   string
	Wrapped error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s (value=%q)", e.Wrapped, e.Field, e.Value)
}

func (e *ValidationError) Unwrap() error { return e.Wrapped }

// NewValidationError creates a ValidationError.
func NewValidationError(field, value string, wrapped error) *ValidationError {
	return &ValidationError{Field: field, Value: value, Wrapped: wrapped}
}
