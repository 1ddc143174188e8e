package driven

import (
	"context"

	"github.com/custodia-labs/ragbase-cli/internal/core/domain"
)

// RecordStore persists documents and embedding records.
// Backed by SQLite; an in-memory implementation exists for tests.
//
// The store is append/upsert-only with last-writer-wins semantics on
// a given record ID. Concurrent reads during a write observe either
// the pre-write or post-write state for any record, never a partially
// written vector. Implementations wrap backend failures in
// domain.StoreIOError.
type RecordStore interface {
	// SaveDocument stores or updates a document.
	SaveDocument(ctx context.Context, doc *domain.Document) error

	// GetDocument retrieves a document by ID.
	// Returns domain.ErrNotFound if it does not exist.
	GetDocument(ctx context.Context, id string) (*domain.Document, error)

	// UpsertRecords stores records keyed by ID, overwriting existing
	// ones. Records are committed atomically per call.
	UpsertRecords(ctx context.Context, records []domain.Record) error

	// GetRecord retrieves a record by ID.
	// Returns domain.ErrNotFound if it does not exist.
	GetRecord(ctx context.Context, id string) (*domain.Record, error)

	// ListRecords returns all records for a document in sequence order.
	// An empty documentID lists the whole store.
	ListRecords(ctx context.Context, documentID string) ([]domain.Record, error)

	// DeleteDocument removes a document and its records.
	DeleteDocument(ctx context.Context, id string) error

	// Stats returns a point-in-time snapshot of the store.
	Stats(ctx context.Context) (domain.Stats, error)

	// Dimensions returns the vector dimensionality of stored records,
	// or 0 for an empty store. The dimensionality is invariant once
	// the first record is committed.
	Dimensions(ctx context.Context) (int, error)

	// Close releases resources.
	Close() error
}
