package driven

import (
	"context"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
)

// Corpus is a loaded corpus version: passages and their index in lock-step.
// A Corpus is read-only once returned and may be shared across goroutines.
type Corpus struct {
	Manifest domain.CorpusManifest
	Passages []domain.Passage
	Index    VectorIndex
}

// CorpusWrite is everything persisted for one new corpus version.
type CorpusWrite struct {
	Manifest domain.CorpusManifest

	// Uploads are the original documents, kept for re-ingestion.
	Uploads []domain.RawDocument

	// CorpusText is the concatenated cleaned text of all documents.
	CorpusText string

	Passages []domain.Passage

	// RawVectors are the embeddings as returned by the embedding model.
	RawVectors [][]float32

	// Index holds the unit-normalised vectors, one row per passage.
	Index VectorIndex
}

// CorpusStore owns the (model, version) -> corpus mapping on durable storage.
type CorpusStore interface {
	// Write persists a new version. It never overwrites an existing version:
	// files are staged in a fresh location and moved into place at the end.
	// Returns ErrAlreadyExists if the version is already present.
	Write(ctx context.Context, c *CorpusWrite) error

	// Load reads a version back. Returns ErrNotTrained when files are missing
	// and ErrCorruptIndex when passage, vector and index counts disagree.
	Load(ctx context.Context, modelKey, versionID string) (*Corpus, error)

	// Evict removes the persisted files of a version. Evicting a missing
	// version is not an error. Loaded Corpus values stay usable.
	Evict(ctx context.Context, modelKey, versionID string) error

	// Exists reports whether a version's files are present.
	Exists(modelKey, versionID string) bool
}
