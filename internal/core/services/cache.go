package services

import (
	"context"
	"errors"
	"maps"
	"sync"
	"sync/atomic"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driven"
	"github.com/custodia-labs/ragdesk/internal/logger"
)

// cacheEntry is either a loaded corpus or the reason it cannot serve.
type cacheEntry struct {
	modelKey  string
	versionID string
	corpus    *driven.Corpus
	err       error
}

// CorpusCache holds loaded corpora keyed by model and version.
//
// The map is replaced, never mutated: readers load the current map without
// locking and keep using the corpus they got even after a newer map is
// published. Loads and publishes are serialised by mu.
type CorpusCache struct {
	store   driven.CorpusStore
	mu      sync.Mutex
	entries atomic.Pointer[map[string]cacheEntry]
}

// NewCorpusCache creates an empty cache over store.
func NewCorpusCache(store driven.CorpusStore) *CorpusCache {
	c := &CorpusCache{store: store}
	empty := make(map[string]cacheEntry)
	c.entries.Store(&empty)
	return c
}

func cacheKey(modelKey, versionID string) string {
	return modelKey + "/" + versionID
}

// Get returns the corpus of a version, loading it on first use.
// A version that failed to load with ErrCorruptIndex is quarantined: later
// calls return the same error without touching storage until Drop.
func (c *CorpusCache) Get(ctx context.Context, modelKey, versionID string) (*driven.Corpus, error) {
	key := cacheKey(modelKey, versionID)
	if e, ok := (*c.entries.Load())[key]; ok {
		return e.corpus, e.err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Another caller may have loaded it while we waited.
	if e, ok := (*c.entries.Load())[key]; ok {
		return e.corpus, e.err
	}

	corpus, err := c.store.Load(ctx, modelKey, versionID)
	switch {
	case err == nil:
		c.publish(key, cacheEntry{modelKey: modelKey, versionID: versionID, corpus: corpus})
		logger.Debug("Loaded corpus %s (%d passages)", key, len(corpus.Passages))
		return corpus, nil
	case errors.Is(err, domain.ErrCorruptIndex):
		logger.Error("Corpus %s quarantined: %v", key, err)
		c.publish(key, cacheEntry{modelKey: modelKey, versionID: versionID, err: err})
		return nil, err
	default:
		return nil, err
	}
}

// Put publishes a corpus that was just built, replacing any cached entry.
func (c *CorpusCache) Put(corpus *driven.Corpus) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m := corpus.Manifest
	c.publish(cacheKey(m.ModelKey, m.VersionID), cacheEntry{modelKey: m.ModelKey, versionID: m.VersionID, corpus: corpus})
}

// Drop forgets a version, including a quarantine.
func (c *CorpusCache) Drop(modelKey, versionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := cacheKey(modelKey, versionID)
	cur := *c.entries.Load()
	if _, ok := cur[key]; !ok {
		return
	}
	next := maps.Clone(cur)
	delete(next, key)
	c.entries.Store(&next)
}

// Retain drops every entry for which keep returns false.
func (c *CorpusCache) Retain(keep func(modelKey, versionID string) bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cur := *c.entries.Load()
	next := make(map[string]cacheEntry, len(cur))
	for k, e := range cur {
		if !keep(e.modelKey, e.versionID) {
			continue
		}
		next[k] = e
	}
	c.entries.Store(&next)
}

// Len returns the number of cached entries, quarantined ones included.
func (c *CorpusCache) Len() int {
	return len(*c.entries.Load())
}

// publish must be called with mu held.
func (c *CorpusCache) publish(key string, e cacheEntry) {
	next := maps.Clone(*c.entries.Load())
	next[key] = e
	c.entries.Store(&next)
}

// Refresh drops entries for versions the registry no longer records and
// loads the active version of each model in models.
func (c *CorpusCache) Refresh(ctx context.Context, registry *VersionRegistry, models []string) {
	c.Retain(func(modelKey, versionID string) bool {
		_, ok := registry.Get(modelKey, versionID)
		return ok
	})
	for _, m := range models {
		active, ok := registry.Active(m)
		if !ok {
			continue
		}
		if _, err := c.Get(ctx, m, active.VersionID); err != nil {
			logger.Warn("Refreshing %s: %v", active.Key(), err)
		}
	}
}
