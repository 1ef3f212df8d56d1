package driving

import (
	"context"
	"io"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
)

// ChatService answers questions and manages the chat log.
type ChatService interface {
	// Ask retrieves context, calls the LLM and records the exchange.
	// LLM failures produce a placeholder reply rather than an error.
	Ask(ctx context.Context, req domain.ChatRequest) (*domain.ChatResponse, error)

	// Transcribe converts audio to text, "(no transcript)" on failure.
	Transcribe(ctx context.Context, audio []byte, filename, language string) string

	// SetFeedback records feedback on an exchange. "none" clears it.
	SetFeedback(ctx context.Context, key domain.FeedbackKey, feedback string) (*domain.ChatLogEntry, error)

	// Logs lists exchanges, newest first.
	Logs(ctx context.Context, filter domain.LogFilter) ([]domain.ChatLogEntry, error)

	// Log returns one exchange by id.
	Log(ctx context.Context, id int64) (*domain.ChatLogEntry, error)

	// ExportCSV writes the filtered log as CSV.
	ExportCSV(ctx context.Context, w io.Writer, filter domain.LogFilter) error
}
