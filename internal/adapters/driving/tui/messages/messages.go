// Package messages defines Bubbletea message types for the TUI.
// Messages represent events and commands that flow through the Elm architecture.
package messages

import (
	"github.com/custodia-labs/ragdesk/internal/core/domain"
)

// AskRequested is a command to send a question to the chat service.
type AskRequested struct {
	Question string
}

// AnswerReceived carries the chat service reply back to the model.
type AnswerReceived struct {
	Question string
	Response *domain.ChatResponse
	Err      error
}

// FeedbackSaved signals that feedback was recorded on an exchange.
type FeedbackSaved struct {
	Entry *domain.ChatLogEntry
	Err   error
}

// ActiveVersionLoaded carries the active corpus version for the bound model.
// Version is nil when the model is not trained.
type ActiveVersionLoaded struct {
	Version *domain.CorpusVersion
	Err     error
}

// ErrorOccurred signals that an error happened.
type ErrorOccurred struct {
	Err error
}

// Quit signals the application should exit.
type Quit struct{}
