package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrConfig indicates invalid configuration. Matched by
	// errors.Is against any ConfigError.
	ErrConfig = errors.New("invalid configuration")

	// ErrEmbedding indicates an embedding service failure. Matched by
	// errors.Is against any EmbeddingError.
	ErrEmbedding = errors.New("embedding failed")

	// ErrStoreIO indicates a storage backend failure. Matched by
	// errors.Is against any StoreIOError.
	ErrStoreIO = errors.New("store I/O failed")
)

// ConfigError reports invalid chunking or store configuration.
// Configuration errors are fatal and rejected before any work starts.
type ConfigError struct {
	// Reason describes the offending parameter.
	Reason string
}

// NewConfigError creates a ConfigError with a formatted reason.
func NewConfigError(format string, args ...any) *ConfigError {
	return &ConfigError{Reason: fmt.Sprintf(format, args...)}
}

func (e *ConfigError) Error() string {
	return "invalid configuration: " + e.Reason
}

// Is matches ErrConfig so callers can test with errors.Is.
func (e *ConfigError) Is(target error) bool {
	return target == ErrConfig
}

// EmbeddingError reports an embedding service failure for a single
// input. During ingest these are recovered per item (skip + report);
// during search they are fatal since there is no vector to rank with.
type EmbeddingError struct {
	// ChunkID identifies the affected chunk, empty for query text.
	ChunkID string

	// Err is the underlying service failure.
	Err error
}

func (e *EmbeddingError) Error() string {
	if e.ChunkID == "" {
		return fmt.Sprintf("embedding failed for query: %v", e.Err)
	}
	return fmt.Sprintf("embedding failed for chunk %s: %v", e.ChunkID, e.Err)
}

func (e *EmbeddingError) Unwrap() error {
	return e.Err
}

// Is matches ErrEmbedding so callers can test with errors.Is.
func (e *EmbeddingError) Is(target error) bool {
	return target == ErrEmbedding
}

// StoreIOError reports a storage backend failure. Callers are
// expected to retry with backoff and surface the error when retries
// are exhausted.
type StoreIOError struct {
	// Op is the failed storage operation, e.g. "upsert" or "query".
	Op string

	// Err is the underlying backend failure.
	Err error
}

func (e *StoreIOError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreIOError) Unwrap() error {
	return e.Err
}

// Is matches ErrStoreIO so callers can test with errors.Is.
func (e *StoreIOError) Is(target error) bool {
	return target == ErrStoreIO
}
