package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driven"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driving"
	"github.com/custodia-labs/ragdesk/internal/logger"
)

// Ensure Readiness implements the interface.
var _ driving.ReadinessProbe = (*Readiness)(nil)

// Readiness tracks one background initialisation task.
// Before Start and while the task runs, Err returns ErrNotReady.
type Readiness struct {
	once sync.Once
	done chan struct{}

	mu  sync.RWMutex
	err error
}

// NewReadiness creates a probe in the not-ready state.
func NewReadiness() *Readiness {
	return &Readiness{done: make(chan struct{}), err: domain.ErrNotReady}
}

// Start runs task in its own goroutine. Later calls are ignored.
func (r *Readiness) Start(ctx context.Context, task func(context.Context) error) {
	r.once.Do(func() {
		go func() {
			err := task(ctx)
			r.mu.Lock()
			r.err = err
			r.mu.Unlock()
			close(r.done)

			if err != nil {
				logger.Error("Initialisation failed: %v", err)
				return
			}
			logger.Debug("Initialisation complete")
		}()
	})
}

// Ready reports whether the task finished without error.
func (r *Readiness) Ready() bool {
	return r.Err() == nil
}

// Err returns ErrNotReady while running, the task's error, or nil.
func (r *Readiness) Err() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.err
}

// Done is closed when the task finishes.
func (r *Readiness) Done() <-chan struct{} {
	return r.done
}

// Wait blocks until the task finishes or ctx is done.
func (r *Readiness) Wait(ctx context.Context) error {
	select {
	case <-r.done:
		return r.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// WarmUp returns an initialisation task that pings the embedding service and
// loads the active corpus of every model into the cache. A corrupt version
// is logged and skipped; it stays quarantined and does not fail start-up.
func WarmUp(registry *VersionRegistry, cache *CorpusCache, embedder driven.EmbeddingService) func(context.Context) error {
	return func(ctx context.Context) error {
		if embedder != nil {
			if err := embedder.Ping(ctx); err != nil {
				return fmt.Errorf("embedding service: %w", err)
			}
		}

		for _, v := range registry.ActiveVersions() {
			if err := ctx.Err(); err != nil {
				return err
			}
			if _, err := cache.Get(ctx, v.ModelKey, v.VersionID); err != nil {
				logger.Warn("Skipping %s during warm-up: %v", v.Key(), err)
				continue
			}
			logger.Debug("Warmed %s", v.Key())
		}
		return nil
	}
}
