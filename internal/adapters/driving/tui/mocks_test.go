package tui

import (
	"context"
	"io"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driving"
)

// MockChatService implements driving.ChatService for testing.
type MockChatService struct {
	asked    []domain.ChatRequest
	askErr   error
	nextID   int64
	feedback map[int64]string
	fbErr    error
}

func (m *MockChatService) Ask(_ context.Context, req domain.ChatRequest) (*domain.ChatResponse, error) {
	m.asked = append(m.asked, req)
	if m.askErr != nil {
		return nil, m.askErr
	}
	m.nextID++
	return &domain.ChatResponse{
		Entry:    domain.ChatLogEntry{ID: m.nextID, ModelKey: req.ModelKey, Question: req.Question},
		Reply:    "answer: " + req.Question,
		Warnings: nil,
	}, nil
}

func (m *MockChatService) Transcribe(_ context.Context, _ []byte, _, _ string) string {
	return ""
}

func (m *MockChatService) SetFeedback(_ context.Context, key domain.FeedbackKey, feedback string) (*domain.ChatLogEntry, error) {
	if m.fbErr != nil {
		return nil, m.fbErr
	}
	if m.feedback == nil {
		m.feedback = make(map[int64]string)
	}
	value := domain.NormaliseFeedback(feedback)
	m.feedback[key.ID] = value
	return &domain.ChatLogEntry{ID: key.ID, Feedback: value}, nil
}

func (m *MockChatService) Logs(_ context.Context, _ domain.LogFilter) ([]domain.ChatLogEntry, error) {
	return nil, nil
}

func (m *MockChatService) Log(_ context.Context, _ int64) (*domain.ChatLogEntry, error) {
	return nil, domain.ErrNotFound
}

func (m *MockChatService) ExportCSV(_ context.Context, _ io.Writer, _ domain.LogFilter) error {
	return nil
}

// MockTrainingService implements driving.TrainingService for testing.
type MockTrainingService struct {
	active *domain.CorpusVersion
	err    error
}

func (m *MockTrainingService) Train(_ context.Context, _ driving.TrainRequest) (*domain.CorpusVersion, error) {
	return nil, nil
}

func (m *MockTrainingService) Activate(_ context.Context, _, _ string) (*domain.CorpusVersion, error) {
	return nil, nil
}

func (m *MockTrainingService) DeleteVersion(_ context.Context, _, _ string) error {
	return nil
}

func (m *MockTrainingService) Versions(_ context.Context, _ string) ([]domain.CorpusVersion, error) {
	return nil, nil
}

func (m *MockTrainingService) History(_ context.Context) ([]domain.CorpusVersion, error) {
	return nil, nil
}

func (m *MockTrainingService) Active(_ context.Context, _ string) (*domain.CorpusVersion, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.active == nil {
		return nil, domain.ErrNotTrained
	}
	return m.active, nil
}
