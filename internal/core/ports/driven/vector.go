package driven

import (
	"context"

	"github.com/custodia-labs/ragbase-cli/internal/core/domain"
)

// VectorIndex provides nearest-neighbour lookup by vector distance.
// The index holds vectors only; record hydration goes through the
// RecordStore. Search is read-only and safe to run concurrently with
// other searches and with writes.
type VectorIndex interface {
	// Add inserts or replaces the vector for the given record ID.
	Add(ctx context.Context, recordID string, vector []float32) error

	// Delete removes a vector from the index.
	Delete(ctx context.Context, recordID string) error

	// Search finds the k nearest vectors to the query, ascending by
	// distance with ties broken by record ID. allow restricts the
	// candidate set; nil means every indexed vector is a candidate.
	Search(ctx context.Context, query []float32, k int, allow func(recordID string) bool) ([]VectorHit, error)

	// Len returns the number of indexed vectors.
	Len() int

	// Metric returns the distance metric the index ranks with.
	Metric() domain.Metric

	// Close releases resources.
	Close() error
}

// VectorHit represents a similarity search result.
type VectorHit struct {
	// RecordID is the matched record.
	RecordID string

	// Distance is the vector distance under the index metric.
	Distance float64
}
