package mcp

import (
	"context"
	"io"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driving"
)

// mockRetrievalService is a mock implementation of driving.RetrievalService.
type mockRetrievalService struct {
	result *domain.RetrievalResult
	err    error
	model  string
	query  string
	opts   domain.RetrievalOptions
}

func (m *mockRetrievalService) Retrieve(
	_ context.Context,
	model, query string,
	opts domain.RetrievalOptions,
) (*domain.RetrievalResult, error) {
	m.model, m.query, m.opts = model, query, opts
	if m.err != nil {
		return nil, m.err
	}
	if m.result == nil {
		return &domain.RetrievalResult{ModelKey: model, NotTrained: true}, nil
	}
	return m.result, nil
}

// mockChatService is a mock implementation of driving.ChatService.
type mockChatService struct {
	requests []domain.ChatRequest
	err      error
}

func (m *mockChatService) Ask(_ context.Context, req domain.ChatRequest) (*domain.ChatResponse, error) {
	m.requests = append(m.requests, req)
	if m.err != nil {
		return nil, m.err
	}
	return &domain.ChatResponse{
		Entry:    domain.ChatLogEntry{ID: 12},
		Reply:    "grounded answer",
		Warnings: []string{"model has no trained corpus"},
	}, nil
}

func (m *mockChatService) Transcribe(_ context.Context, _ []byte, _, _ string) string {
	return ""
}

func (m *mockChatService) SetFeedback(_ context.Context, _ domain.FeedbackKey, _ string) (*domain.ChatLogEntry, error) {
	return nil, m.err
}

func (m *mockChatService) Logs(_ context.Context, _ domain.LogFilter) ([]domain.ChatLogEntry, error) {
	return nil, m.err
}

func (m *mockChatService) Log(_ context.Context, _ int64) (*domain.ChatLogEntry, error) {
	return nil, m.err
}

func (m *mockChatService) ExportCSV(_ context.Context, _ io.Writer, _ domain.LogFilter) error {
	return m.err
}

// mockTrainingService is a mock implementation of driving.TrainingService.
type mockTrainingService struct {
	versions []domain.CorpusVersion
	err      error
}

func (m *mockTrainingService) Train(_ context.Context, _ driving.TrainRequest) (*domain.CorpusVersion, error) {
	return nil, m.err
}

func (m *mockTrainingService) Activate(_ context.Context, _, _ string) (*domain.CorpusVersion, error) {
	return nil, m.err
}

func (m *mockTrainingService) DeleteVersion(_ context.Context, _, _ string) error {
	return m.err
}

func (m *mockTrainingService) Versions(_ context.Context, model string) ([]domain.CorpusVersion, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []domain.CorpusVersion
	for _, v := range m.versions {
		if v.ModelKey == model {
			out = append(out, v)
		}
	}
	return out, nil
}

func (m *mockTrainingService) History(_ context.Context) ([]domain.CorpusVersion, error) {
	return m.versions, m.err
}

func (m *mockTrainingService) Active(_ context.Context, _ string) (*domain.CorpusVersion, error) {
	return nil, domain.ErrNotTrained
}
