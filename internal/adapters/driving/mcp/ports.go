package mcp

import (
	"github.com/custodia-labs/ragdesk/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
type Ports struct {
	// Retrieval provides grounded context for a model.
	Retrieval driving.RetrievalService

	// Chat answers questions. Optional; the ask tool reports an error without it.
	Chat driving.ChatService

	// Training lists corpus versions. Optional; version listings are empty without it.
	Training driving.TrainingService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Retrieval == nil {
		return ErrMissingRetrievalService
	}
	return nil
}
