package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driven"
)

// Ensure CorpusStore implements the interface.
var _ driven.CorpusStore = (*CorpusStore)(nil)

// CorpusStore keeps corpus versions in memory.
type CorpusStore struct {
	mu      sync.RWMutex
	corpora map[string]*driven.Corpus
	loads   map[string]int

	// WriteErr, when set, fails every Write.
	WriteErr error
}

// NewCorpusStore creates an empty store.
func NewCorpusStore() *CorpusStore {
	return &CorpusStore{
		corpora: make(map[string]*driven.Corpus),
		loads:   make(map[string]int),
	}
}

func corpusKey(modelKey, versionID string) string {
	return modelKey + "/" + versionID
}

// Write stores a version. Existing versions are never replaced.
func (s *CorpusStore) Write(_ context.Context, c *driven.CorpusWrite) error {
	if s.WriteErr != nil {
		return s.WriteErr
	}
	m := c.Manifest
	if len(c.Passages) != c.Index.Size() {
		return fmt.Errorf("%w: %d passages, %d index rows",
			domain.ErrCorruptIndex, len(c.Passages), c.Index.Size())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := corpusKey(m.ModelKey, m.VersionID)
	if _, ok := s.corpora[key]; ok {
		return fmt.Errorf("%w: %s", domain.ErrAlreadyExists, key)
	}
	s.corpora[key] = &driven.Corpus{
		Manifest: m,
		Passages: append([]domain.Passage(nil), c.Passages...),
		Index:    c.Index,
	}
	return nil
}

// Put stores a ready-made corpus, replacing any existing one.
func (s *CorpusStore) Put(c *driven.Corpus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.corpora[corpusKey(c.Manifest.ModelKey, c.Manifest.VersionID)] = c
}

// Load returns a stored version or ErrNotTrained.
func (s *CorpusStore) Load(_ context.Context, modelKey, versionID string) (*driven.Corpus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := corpusKey(modelKey, versionID)
	c, ok := s.corpora[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotTrained, key)
	}
	s.loads[key]++
	return c, nil
}

// Loads reports how many times a version was loaded.
func (s *CorpusStore) Loads(modelKey, versionID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loads[corpusKey(modelKey, versionID)]
}

// Evict removes a version.
func (s *CorpusStore) Evict(_ context.Context, modelKey, versionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.corpora, corpusKey(modelKey, versionID))
	return nil
}

// Exists reports whether a version is stored.
func (s *CorpusStore) Exists(modelKey, versionID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.corpora[corpusKey(modelKey, versionID)]
	return ok
}
