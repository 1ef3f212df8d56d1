package driven

import (
	"context"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
)

// ChatLogStore is the append-only record of chat exchanges.
// Appends and feedback updates are linearised through one writer;
// reads see the last committed state and do not wait for writers.
type ChatLogStore interface {
	// Append assigns the next id (and the current time when Timestamp is
	// zero), persists the entry and returns it.
	Append(ctx context.Context, entry domain.ChatLogEntry) (domain.ChatLogEntry, error)

	// SetFeedback updates only the feedback field of the matching entry.
	// "none" clears it. Returns ErrNotFound when nothing matches.
	SetFeedback(ctx context.Context, key domain.FeedbackKey, feedback string) (domain.ChatLogEntry, error)

	// Get returns one entry by id or ErrNotFound.
	Get(ctx context.Context, id int64) (*domain.ChatLogEntry, error)

	// List returns matching entries, newest first, after Skip and Limit.
	List(ctx context.Context, filter domain.LogFilter) ([]domain.ChatLogEntry, error)

	// Count returns the total number of entries.
	Count(ctx context.Context) (int, error)

	// Close releases resources.
	Close() error
}
