package driving

import (
	"context"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
)

// TrainRequest describes one ingestion.
type TrainRequest struct {
	ModelKey string

	// VersionID is optional; a timestamped id is generated when empty.
	VersionID   string
	Description string
	Documents   []domain.RawDocument
}

// TrainingService manages the corpus version lifecycle.
type TrainingService interface {
	// Train ingests documents into a new version and activates it.
	Train(ctx context.Context, req TrainRequest) (*domain.CorpusVersion, error)

	// Activate makes a version the active one for its model.
	// Activating the already-active version is a no-op.
	Activate(ctx context.Context, modelKey, versionID string) (*domain.CorpusVersion, error)

	// DeleteVersion removes a version and its files, promoting the most
	// recently created remaining version when the active one is removed.
	DeleteVersion(ctx context.Context, modelKey, versionID string) error

	// Versions lists a model's versions, newest first.
	Versions(ctx context.Context, modelKey string) ([]domain.CorpusVersion, error)

	// History lists every version of every model, newest first.
	History(ctx context.Context) ([]domain.CorpusVersion, error)

	// Active returns the active version for a model or ErrNotTrained.
	Active(ctx context.Context, modelKey string) (*domain.CorpusVersion, error)
}
