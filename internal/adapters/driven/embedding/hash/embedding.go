// Package hash provides a deterministic, offline embedding service.
// Vectors are derived from FNV hashes of the text, so equal texts map
// to equal vectors across runs and machines. Retrieval quality is
// limited to near-exact matches; the adapter exists for tests, demos
// and air-gapped environments.
package hash

import (
	"context"
	"hash/fnv"
	"math"

	"github.com/custodia-labs/ragbase-cli/internal/core/ports/driven"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// DefaultDimensions is the default vector size.
const DefaultDimensions = 64

// EmbeddingService generates pseudo-embeddings from text hashes.
type EmbeddingService struct {
	dimensions int
}

// NewEmbeddingService creates a hash embedder with the given vector
// size. dimensions <= 0 falls back to DefaultDimensions.
func NewEmbeddingService(dimensions int) *EmbeddingService {
	if dimensions <= 0 {
		dimensions = DefaultDimensions
	}
	return &EmbeddingService{dimensions: dimensions}
}

// Embed derives a unit-length vector from the text. Each component
// comes from an independent FNV hash of the text plus the component
// index, mapped into [-1, 1].
func (s *EmbeddingService) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, s.dimensions)
	var norm float64
	for i := range vec {
		h := fnv.New64a()
		h.Write([]byte(text))                  //nolint:errcheck // hash writes never fail
		h.Write([]byte{byte(i), byte(i >> 8)}) //nolint:errcheck
		v := float64(h.Sum64()%2000001)/1000000 - 1
		vec[i] = float32(v)
		norm += v * v
	}

	if norm > 0 {
		scale := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= scale
		}
	}
	return vec, nil
}

// EmbedBatch embeds each text in order.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := s.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		embeddings[i] = vec
	}
	return embeddings, nil
}

// Dimensions returns the vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.dimensions
}

// ModelName identifies the hash scheme.
func (s *EmbeddingService) ModelName() string {
	return "fnv64a-hash"
}

// Close is a no-op.
func (s *EmbeddingService) Close() error {
	return nil
}
