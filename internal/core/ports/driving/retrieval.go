package driving

import (
	"context"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
)

// RetrievalService provides grounded context to external actors.
type RetrievalService interface {
	// Retrieve returns the top passages for a query against the model's
	// active version. An untrained model yields an empty result, not an error.
	Retrieve(ctx context.Context, modelKey, query string, opts domain.RetrievalOptions) (*domain.RetrievalResult, error)
}
