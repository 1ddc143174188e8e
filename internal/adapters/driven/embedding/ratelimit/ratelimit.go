// Package ratelimit wraps an embedding service with a token bucket so
// remote providers are not flooded during bulk ingestion.
package ratelimit

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/ragbase-cli/internal/core/ports/driven"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// DefaultRate is the default request rate per second.
const DefaultRate = 5.0

// EmbeddingService throttles calls to an underlying embedding service.
// Each Embed call consumes one token; EmbedBatch consumes one token
// per text so large batches pay their share.
type EmbeddingService struct {
	inner  driven.EmbeddingService
	bucket *rate.Limiter
}

// Wrap decorates an embedding service with proactive throttling.
// ratePerSec <= 0 falls back to DefaultRate. The burst matches one
// ingestion batch so a single batch never stalls mid-request.
func Wrap(inner driven.EmbeddingService, ratePerSec float64, burst int) *EmbeddingService {
	if ratePerSec <= 0 {
		ratePerSec = DefaultRate
	}
	if burst < 1 {
		burst = 1
	}
	return &EmbeddingService{
		inner:  inner,
		bucket: rate.NewLimiter(rate.Limit(ratePerSec), burst),
	}
}

// Embed waits for a token, then delegates.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := s.bucket.Wait(ctx); err != nil {
		return nil, err
	}
	return s.inner.Embed(ctx, text)
}

// EmbedBatch waits for one token per text, then delegates.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	n := len(texts)
	if n > s.bucket.Burst() {
		n = s.bucket.Burst()
	}
	if err := s.bucket.WaitN(ctx, n); err != nil {
		return nil, err
	}
	return s.inner.EmbedBatch(ctx, texts)
}

// Dimensions returns the wrapped service's vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.inner.Dimensions()
}

// ModelName returns the wrapped service's model name.
func (s *EmbeddingService) ModelName() string {
	return s.inner.ModelName()
}

// Close closes the wrapped service.
func (s *EmbeddingService) Close() error {
	return s.inner.Close()
}
