// Package ratelimited wraps an embedding service with a token bucket and a
// single retry on transient failures.
package ratelimited

import (
	"context"
	"errors"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driven"
	"github.com/custodia-labs/ragdesk/internal/logger"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// DefaultBackoff is the pause before the retry.
const DefaultBackoff = 500 * time.Millisecond

// EmbeddingService applies rate limiting to an inner embedding service.
type EmbeddingService struct {
	inner   driven.EmbeddingService
	limiter *rate.Limiter
	backoff time.Duration
}

// New wraps inner. rps <= 0 disables limiting; the retry still applies.
func New(inner driven.EmbeddingService, rps float64) *EmbeddingService {
	limit := rate.Inf
	burst := 0
	if rps > 0 {
		limit = rate.Limit(rps)
		burst = max(1, int(rps))
	}
	return &EmbeddingService{
		inner:   inner,
		limiter: rate.NewLimiter(limit, burst),
		backoff: DefaultBackoff,
	}
}

// SetBackoff changes the pause before the retry.
func (s *EmbeddingService) SetBackoff(d time.Duration) {
	s.backoff = d
}

// Embed generates a vector embedding for the given text.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	return call(ctx, s, func() ([]float32, error) {
		return s.inner.Embed(ctx, text)
	})
}

// EmbedBatch generates embeddings for multiple texts.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return call(ctx, s, func() ([][]float32, error) {
		return s.inner.EmbedBatch(ctx, texts)
	})
}

// call waits for a token, runs fn and retries once after the backoff when
// fn fails with ErrCollaboratorUnavailable.
func call[T any](ctx context.Context, s *EmbeddingService, fn func() (T, error)) (T, error) {
	var zero T
	if err := s.limiter.Wait(ctx); err != nil {
		return zero, err
	}

	out, err := fn()
	if err == nil || !errors.Is(err, domain.ErrCollaboratorUnavailable) || ctx.Err() != nil {
		return out, err
	}
	logger.Debug("Embedding call failed, retrying: %v", err)

	select {
	case <-time.After(s.backoff):
	case <-ctx.Done():
		return zero, ctx.Err()
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return zero, err
	}
	return fn()
}

// Dimensions returns the embedding vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.inner.Dimensions()
}

// ModelName returns the name of the embedding model being used.
func (s *EmbeddingService) ModelName() string {
	return s.inner.ModelName()
}

// Ping validates the service is reachable.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	return s.inner.Ping(ctx)
}

// Close releases resources.
func (s *EmbeddingService) Close() error {
	return s.inner.Close()
}
