package driven

import (
	"context"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
)

// VersionStore persists the version registry record.
// Save replaces the whole record atomically; readers observe either the
// previous or the new list, never a partial one.
type VersionStore interface {
	// Load returns all versions in stored order. A missing record is empty.
	Load(ctx context.Context) ([]domain.CorpusVersion, error)

	// Save replaces the record. Failures wrap ErrStorageWrite.
	Save(ctx context.Context, versions []domain.CorpusVersion) error

	// Update runs a read-modify-write cycle exclusive across every writer
	// of the record, including other processes. fn receives the record as
	// currently persisted; a nil result with a nil error writes nothing.
	// Update returns the record as it stands afterwards. An error from fn
	// is returned unchanged and nothing is written.
	Update(ctx context.Context, fn func(current []domain.CorpusVersion) ([]domain.CorpusVersion, error)) ([]domain.CorpusVersion, error)

	// Path returns the record location, or "" when not file backed.
	Path() string
}
