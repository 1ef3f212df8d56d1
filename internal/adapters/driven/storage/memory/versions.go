package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driven"
)

// Ensure VersionStore implements the interface.
var _ driven.VersionStore = (*VersionStore)(nil)

// VersionStore keeps the version record in memory.
type VersionStore struct {
	mu       sync.RWMutex
	versions []domain.CorpusVersion

	// SaveErr, when set, is returned by Save without changing the record.
	SaveErr error
}

// NewVersionStore creates a record holding versions.
func NewVersionStore(versions ...domain.CorpusVersion) *VersionStore {
	return &VersionStore{versions: cloneVersions(versions)}
}

// Load returns a copy of the record.
func (s *VersionStore) Load(_ context.Context) ([]domain.CorpusVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneVersions(s.versions), nil
}

// Save replaces the record.
func (s *VersionStore) Save(_ context.Context, versions []domain.CorpusVersion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SaveErr != nil {
		return s.SaveErr
	}
	s.versions = cloneVersions(versions)
	return nil
}

// Update applies fn to a copy of the record under the store lock.
func (s *VersionStore) Update(
	_ context.Context,
	fn func(current []domain.CorpusVersion) ([]domain.CorpusVersion, error),
) ([]domain.CorpusVersion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := cloneVersions(s.versions)
	next, err := fn(current)
	if err != nil {
		return nil, err
	}
	if next == nil {
		return current, nil
	}
	if s.SaveErr != nil {
		return nil, s.SaveErr
	}
	s.versions = cloneVersions(next)
	return next, nil
}

// Path returns "" since nothing is file backed.
func (s *VersionStore) Path() string {
	return ""
}

func cloneVersions(in []domain.CorpusVersion) []domain.CorpusVersion {
	out := make([]domain.CorpusVersion, len(in))
	for i, v := range in {
		v.Files = slices.Clone(v.Files)
		out[i] = v
	}
	return out
}
