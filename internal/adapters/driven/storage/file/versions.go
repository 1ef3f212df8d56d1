package file

import (
	"context"
	"path/filepath"
	"sync"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driven"
)

// Ensure VersionStore implements the interface.
var _ driven.VersionStore = (*VersionStore)(nil)

// VersionsFile is the registry record name inside the data directory.
const VersionsFile = "versions.json"

// versionsDoc is the on-disk shape of the registry record.
type versionsDoc struct {
	Versions []domain.CorpusVersion `json:"versions"`
}

// VersionStore keeps the version registry in a JSON file.
type VersionStore struct {
	mu   sync.Mutex
	path string
}

// NewVersionStore creates a store at <dataDir>/versions.json.
func NewVersionStore(dataDir string) *VersionStore {
	return &VersionStore{path: filepath.Join(dataDir, VersionsFile)}
}

// Load returns the stored versions. A missing file is an empty registry.
func (s *VersionStore) Load(_ context.Context) ([]domain.CorpusVersion, error) {
	var doc versionsDoc
	if _, err := ReadJSON(s.path, &doc); err != nil {
		return nil, err
	}
	return doc.Versions, nil
}

// Save replaces the registry record.
func (s *VersionStore) Save(ctx context.Context, versions []domain.CorpusVersion) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return withFileLock(ctx, s.path, func() error {
		return s.write(versions)
	})
}

// Update re-reads versions.json under the file lock, applies fn and writes
// the result back before releasing the lock.
func (s *VersionStore) Update(
	ctx context.Context,
	fn func(current []domain.CorpusVersion) ([]domain.CorpusVersion, error),
) ([]domain.CorpusVersion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []domain.CorpusVersion
	err := withFileLock(ctx, s.path, func() error {
		current, err := s.Load(ctx)
		if err != nil {
			return err
		}
		next, err := fn(current)
		if err != nil {
			return err
		}
		if next == nil {
			result = current
			return nil
		}
		if err := s.write(next); err != nil {
			return err
		}
		result = next
		return nil
	})
	return result, err
}

func (s *VersionStore) write(versions []domain.CorpusVersion) error {
	if versions == nil {
		versions = []domain.CorpusVersion{}
	}
	return WriteJSONAtomic(s.path, versionsDoc{Versions: versions})
}

// Path returns the record location.
func (s *VersionStore) Path() string {
	return s.path
}
