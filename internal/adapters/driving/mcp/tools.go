package mcp

import (
	"context"
	"errors"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
)

// RetrieveInput is the input schema for the retrieve tool.
type RetrieveInput struct {
	Model   string `json:"model" jsonschema:"the model key whose corpus is searched"`
	Query   string `json:"query" jsonschema:"the question or keywords to find passages for"`
	TopK    int    `json:"top_k,omitempty" jsonschema:"maximum number of passages to return (default 4)"`
	Version string `json:"version,omitempty" jsonschema:"pin a corpus version instead of the active one"`
}

// RetrieveOutput is the output schema for the retrieve tool.
type RetrieveOutput struct {
	Version    string          `json:"version,omitempty"`
	Passages   []PassageOutput `json:"passages"`
	Context    string          `json:"context"`
	NotTrained bool            `json:"not_trained"`
	Warnings   []string        `json:"warnings,omitempty"`
}

// PassageOutput represents a single retrieved passage.
type PassageOutput struct {
	Source string  `json:"source"`
	Text   string  `json:"text"`
	Score  float32 `json:"score"`
}

// AskInput is the input schema for the ask tool.
type AskInput struct {
	Model    string `json:"model" jsonschema:"the model key to ask"`
	Question string `json:"question" jsonschema:"the question to answer from the corpus"`
	UserID   string `json:"user_id,omitempty" jsonschema:"caller identity recorded in the chat log"`
}

// AskOutput is the output schema for the ask tool.
type AskOutput struct {
	ID       int64    `json:"id"`
	Reply    string   `json:"reply"`
	Warnings []string `json:"warnings,omitempty"`
}

// ListVersionsInput is the input schema for the list_versions tool.
type ListVersionsInput struct {
	Model string `json:"model,omitempty" jsonschema:"restrict to one model key; empty lists every model"`
}

// ListVersionsOutput is the output schema for the list_versions tool.
type ListVersionsOutput struct {
	Versions []VersionOutput `json:"versions"`
	Count    int             `json:"count"`
}

// VersionOutput summarises one corpus version.
type VersionOutput struct {
	Model       string   `json:"model"`
	Version     string   `json:"version"`
	Active      bool     `json:"active"`
	Description string   `json:"description,omitempty"`
	CreatedAt   string   `json:"created_at"`
	Passages    int      `json:"passages"`
	Files       []string `json:"files"`
}

// mcpUserID is recorded when the ask tool is called without a user id.
const mcpUserID = "mcp"

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "retrieve",
		Description: "Retrieve the passages of a model's corpus most similar to a query",
	}, s.handleRetrieve)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ask",
		Description: "Ask a question answered by the LLM grounded on a model's corpus",
	}, s.handleAsk)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_versions",
		Description: "List trained corpus versions, newest first",
	}, s.handleListVersions)
}

// handleRetrieve handles the retrieve tool invocation.
func (s *Server) handleRetrieve(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RetrieveInput,
) (*mcp.CallToolResult, RetrieveOutput, error) {
	result, err := s.ports.Retrieval.Retrieve(ctx, input.Model, input.Query, domain.RetrievalOptions{
		TopK:    input.TopK,
		Version: input.Version,
	})
	if err != nil {
		return nil, RetrieveOutput{}, err
	}

	output := RetrieveOutput{
		Version:    result.VersionID,
		Passages:   make([]PassageOutput, len(result.Passages)),
		Context:    result.Context,
		NotTrained: result.NotTrained,
		Warnings:   result.Warnings,
	}
	for i, p := range result.Passages {
		output.Passages[i] = PassageOutput{Source: p.Source, Text: p.Text, Score: p.Score}
	}

	return nil, output, nil
}

// handleAsk handles the ask tool invocation.
func (s *Server) handleAsk(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AskInput,
) (*mcp.CallToolResult, AskOutput, error) {
	if s.ports.Chat == nil {
		return nil, AskOutput{}, errors.New("mcp: chat service is not configured")
	}

	userID := input.UserID
	if userID == "" {
		userID = mcpUserID
	}

	resp, err := s.ports.Chat.Ask(ctx, domain.ChatRequest{
		UserID:   userID,
		ModelKey: input.Model,
		Question: input.Question,
	})
	if err != nil {
		return nil, AskOutput{}, err
	}

	return nil, AskOutput{ID: resp.Entry.ID, Reply: resp.Reply, Warnings: resp.Warnings}, nil
}

// handleListVersions handles the list_versions tool invocation.
func (s *Server) handleListVersions(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ListVersionsInput,
) (*mcp.CallToolResult, ListVersionsOutput, error) {
	versions, err := s.versions(ctx, input.Model)
	if err != nil {
		return nil, ListVersionsOutput{}, err
	}

	output := ListVersionsOutput{
		Versions: make([]VersionOutput, len(versions)),
		Count:    len(versions),
	}
	for i, v := range versions {
		output.Versions[i] = toVersionOutput(v)
	}
	return nil, output, nil
}

// versions lists one model's versions, or every version when model is empty.
func (s *Server) versions(ctx context.Context, model string) ([]domain.CorpusVersion, error) {
	if s.ports.Training == nil {
		return nil, nil
	}
	if model == "" {
		return s.ports.Training.History(ctx)
	}
	return s.ports.Training.Versions(ctx, model)
}

func toVersionOutput(v domain.CorpusVersion) VersionOutput {
	files := v.Files
	if files == nil {
		files = []string{}
	}
	return VersionOutput{
		Model:       v.ModelKey,
		Version:     v.VersionID,
		Active:      v.Active,
		Description: v.Description,
		CreatedAt:   v.CreatedAt.UTC().Format(time.RFC3339),
		Passages:    v.PassageCount,
		Files:       files,
	}
}
