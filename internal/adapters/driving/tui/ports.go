// Package tui provides an interactive chat console bound to one model.
// It implements a driving adapter following hexagonal architecture principles.
package tui

import (
	"github.com/custodia-labs/ragdesk/internal/core/ports/driving"
)

// Ports aggregates the driving port interfaces required by the TUI.
type Ports struct {
	// Chat answers questions and records feedback.
	Chat driving.ChatService

	// Training reports the active corpus version. Optional.
	Training driving.TrainingService
}

// NewPorts creates a new Ports aggregate with the given services.
func NewPorts(chat driving.ChatService, training driving.TrainingService) *Ports {
	return &Ports{Chat: chat, Training: training}
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Chat == nil {
		return ErrMissingChatService
	}
	return nil
}
