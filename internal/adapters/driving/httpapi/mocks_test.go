package httpapi

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driving"
)

var testTime = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type mockChat struct {
	mu        sync.Mutex
	asked     []domain.ChatRequest
	askErr    error
	feedback  []domain.FeedbackKey
	filters   []domain.LogFilter
	logs      []domain.ChatLogEntry
	logsErr   error
	audioSize int
}

func (m *mockChat) Ask(_ context.Context, req domain.ChatRequest) (*domain.ChatResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.asked = append(m.asked, req)
	if m.askErr != nil {
		return nil, m.askErr
	}
	return &domain.ChatResponse{
		Entry: domain.ChatLogEntry{ID: 7, Timestamp: testTime, ModelKey: req.ModelKey, Question: req.Question},
		Reply: "reply to " + req.Question,
	}, nil
}

func (m *mockChat) Transcribe(_ context.Context, audio []byte, filename, language string) string {
	m.audioSize = len(audio)
	return fmt.Sprintf("%s:%s", filename, language)
}

func (m *mockChat) SetFeedback(_ context.Context, key domain.FeedbackKey, feedback string) (*domain.ChatLogEntry, error) {
	m.feedback = append(m.feedback, key)
	if key.ID == 404 {
		return nil, fmt.Errorf("%w: log entry", domain.ErrNotFound)
	}
	return &domain.ChatLogEntry{ID: key.ID, Timestamp: key.Timestamp, Feedback: domain.NormaliseFeedback(feedback)}, nil
}

func (m *mockChat) Logs(_ context.Context, filter domain.LogFilter) ([]domain.ChatLogEntry, error) {
	m.filters = append(m.filters, filter)
	return m.logs, m.logsErr
}

func (m *mockChat) Log(_ context.Context, id int64) (*domain.ChatLogEntry, error) {
	for _, e := range m.logs {
		if e.ID == id {
			return &e, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockChat) ExportCSV(_ context.Context, w io.Writer, _ domain.LogFilter) error {
	_, err := io.WriteString(w, "id,ts\n1,x\n")
	return err
}

type mockRetrieval struct {
	result *domain.RetrievalResult
	err    error
	opts   domain.RetrievalOptions
}

func (m *mockRetrieval) Retrieve(_ context.Context, model, query string, opts domain.RetrievalOptions) (*domain.RetrievalResult, error) {
	m.opts = opts
	if m.err != nil {
		return nil, m.err
	}
	if m.result != nil {
		return m.result, nil
	}
	return &domain.RetrievalResult{ModelKey: model, NotTrained: true}, nil
}

type mockTraining struct {
	trained  []driving.TrainRequest
	trainErr error
	versions []domain.CorpusVersion
	deleted  []string
}

func (m *mockTraining) Train(_ context.Context, req driving.TrainRequest) (*domain.CorpusVersion, error) {
	m.trained = append(m.trained, req)
	if m.trainErr != nil {
		return nil, m.trainErr
	}
	return &domain.CorpusVersion{ModelKey: req.ModelKey, VersionID: req.VersionID, Active: true}, nil
}

func (m *mockTraining) Activate(_ context.Context, model, version string) (*domain.CorpusVersion, error) {
	for _, v := range m.versions {
		if v.ModelKey == model && v.VersionID == version {
			v.Active = true
			return &v, nil
		}
	}
	return nil, fmt.Errorf("%w: %s/%s", domain.ErrVersionNotFound, model, version)
}

func (m *mockTraining) DeleteVersion(_ context.Context, model, version string) error {
	m.deleted = append(m.deleted, model+"/"+version)
	return nil
}

func (m *mockTraining) Versions(_ context.Context, model string) ([]domain.CorpusVersion, error) {
	var out []domain.CorpusVersion
	for _, v := range m.versions {
		if v.ModelKey == model {
			out = append(out, v)
		}
	}
	return out, nil
}

func (m *mockTraining) History(_ context.Context) ([]domain.CorpusVersion, error) {
	return m.versions, nil
}

func (m *mockTraining) Active(_ context.Context, model string) (*domain.CorpusVersion, error) {
	for _, v := range m.versions {
		if v.ModelKey == model && v.Active {
			return &v, nil
		}
	}
	return nil, domain.ErrNotTrained
}

type mockReadiness struct {
	ready bool
	err   error
}

func (m *mockReadiness) Ready() bool                  { return m.ready }
func (m *mockReadiness) Err() error                   { return m.err }
func (m *mockReadiness) Wait(_ context.Context) error { return m.err }
