// Package bruteforce provides an exact nearest-neighbour vector index.
//
// The index holds all vectors in memory and scans them on every
// query. Exact scanning keeps results fully deterministic (a property
// the search contract requires) and is comfortably fast for the
// corpus sizes a local knowledge base holds. Vectors are copied on
// insert, so a reader never observes a partially written vector.
package bruteforce

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/custodia-labs/ragbase-cli/internal/core/domain"
	"github.com/custodia-labs/ragbase-cli/internal/core/ports/driven"
)

// Ensure Index implements the port.
var _ driven.VectorIndex = (*Index)(nil)

// Index is an in-memory exact-NN vector index.
type Index struct {
	mu        sync.RWMutex
	metric    domain.Metric
	dimension int // fixed by the first vector added
	vectors   map[string][]float32
}

// New creates an index ranking with the given metric.
// An unknown metric is a configuration error.
func New(metric domain.Metric) (*Index, error) {
	if metric == "" {
		metric = domain.MetricCosine
	}
	if !metric.Valid() {
		return nil, domain.NewConfigError("unknown distance metric %q", metric)
	}
	return &Index{
		metric:  metric,
		vectors: make(map[string][]float32),
	}, nil
}

// Add inserts or replaces the vector for the given record ID.
// The first vector fixes the index dimensionality; later vectors must
// match it.
func (idx *Index) Add(_ context.Context, recordID string, vector []float32) error {
	if recordID == "" || len(vector) == 0 {
		return domain.ErrInvalidInput
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.dimension == 0 {
		idx.dimension = len(vector)
	} else if len(vector) != idx.dimension {
		return domain.NewConfigError(
			"vector for %s has %d dimensions, index holds %d", recordID, len(vector), idx.dimension)
	}

	cp := make([]float32, len(vector))
	copy(cp, vector)
	idx.vectors[recordID] = cp
	return nil
}

// Delete removes a vector from the index. Deleting an absent ID is a
// no-op.
func (idx *Index) Delete(_ context.Context, recordID string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	delete(idx.vectors, recordID)
	return nil
}

// Search finds the k nearest vectors to the query, ascending by
// distance with ties broken by record ID. A nil allow admits every
// indexed vector; an empty index yields no hits.
func (idx *Index) Search(
	_ context.Context, query []float32, k int, allow func(recordID string) bool,
) ([]driven.VectorHit, error) {
	if k <= 0 {
		return nil, nil
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if len(idx.vectors) == 0 {
		return nil, nil
	}
	if len(query) != idx.dimension {
		return nil, domain.NewConfigError(
			"query has %d dimensions, index holds %d", len(query), idx.dimension)
	}

	hits := make([]driven.VectorHit, 0, len(idx.vectors))
	for id, vec := range idx.vectors {
		if allow != nil && !allow(id) {
			continue
		}
		hits = append(hits, driven.VectorHit{
			RecordID: id,
			Distance: distance(idx.metric, query, vec),
		})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Distance != hits[j].Distance {
			return hits[i].Distance < hits[j].Distance
		}
		return hits[i].RecordID < hits[j].RecordID
	})

	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Len returns the number of indexed vectors.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.vectors)
}

// Metric returns the distance metric the index ranks with.
func (idx *Index) Metric() domain.Metric {
	return idx.metric
}

// Close releases resources.
func (idx *Index) Close() error {
	return nil
}

// distance computes the vector distance under the given metric.
func distance(metric domain.Metric, a, b []float32) float64 {
	switch metric {
	case domain.MetricEuclidean:
		var sum float64
		for i := range a {
			d := float64(a[i]) - float64(b[i])
			sum += d * d
		}
		return math.Sqrt(sum)
	default: // cosine distance, 1 - similarity
		var dot, na, nb float64
		for i := range a {
			dot += float64(a[i]) * float64(b[i])
			na += float64(a[i]) * float64(a[i])
			nb += float64(b[i]) * float64(b[i])
		}
		if na == 0 || nb == 0 {
			return 1
		}
		return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb))
	}
}
