package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driving"
)

var testTime = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type mockTraining struct {
	trained   []driving.TrainRequest
	trainErr  error
	versions  []domain.CorpusVersion
	activated []string
	deleted   []string
}

func (m *mockTraining) Train(_ context.Context, req driving.TrainRequest) (*domain.CorpusVersion, error) {
	m.trained = append(m.trained, req)
	if m.trainErr != nil {
		return nil, m.trainErr
	}
	files := make([]string, len(req.Documents))
	for i, d := range req.Documents {
		files[i] = d.Name
	}
	id := req.VersionID
	if id == "" {
		id = "v20240501120000-abcdef"
	}
	return &domain.CorpusVersion{
		ModelKey: req.ModelKey, VersionID: id, Files: files, Active: true,
		PassageCount: 12, Dimensions: 768, EmbeddingModel: "nomic-embed-text",
	}, nil
}

func (m *mockTraining) Activate(_ context.Context, model, version string) (*domain.CorpusVersion, error) {
	for _, v := range m.versions {
		if v.ModelKey == model && v.VersionID == version {
			m.activated = append(m.activated, model+"/"+version)
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

type mockRetrieval struct {
	result *domain.RetrievalResult
	query  string
	opts   domain.RetrievalOptions
}

func (m *mockRetrieval) Retrieve(_ context.Context, model, query string, opts domain.RetrievalOptions) (*domain.RetrievalResult, error) {
	m.query = query
	m.opts = opts
	if m.result != nil {
		return m.result, nil
	}
	return &domain.RetrievalResult{ModelKey: model, NotTrained: true}, nil
}

type mockChat struct {
	asked    []domain.ChatRequest
	filters  []domain.LogFilter
	logs     []domain.ChatLogEntry
	feedback map[int64]string
}

func (m *mockChat) Ask(_ context.Context, req domain.ChatRequest) (*domain.ChatResponse, error) {
	m.asked = append(m.asked, req)
	return &domain.ChatResponse{
		Entry:    domain.ChatLogEntry{ID: 42, Timestamp: testTime},
		Reply:    "It is a retrieval engine.",
		Warnings: []string{"translation skipped"},
	}, nil
}

func (m *mockChat) Transcribe(_ context.Context, _ []byte, _, _ string) string {
	return ""
}

func (m *mockChat) SetFeedback(_ context.Context, key domain.FeedbackKey, feedback string) (*domain.ChatLogEntry, error) {
	if key.ID == 404 {
		return nil, fmt.Errorf("%w: log entry 404", domain.ErrNotFound)
	}
	if m.feedback == nil {
		m.feedback = make(map[int64]string)
	}
	value := domain.NormaliseFeedback(feedback)
	m.feedback[key.ID] = value
	return &domain.ChatLogEntry{ID: key.ID, Feedback: value}, nil
}

func (m *mockChat) Logs(_ context.Context, filter domain.LogFilter) ([]domain.ChatLogEntry, error) {
	m.filters = append(m.filters, filter)
	return m.logs, nil
}

func (m *mockChat) Log(_ context.Context, _ int64) (*domain.ChatLogEntry, error) {
	return nil, domain.ErrNotFound
}

func (m *mockChat) ExportCSV(_ context.Context, w io.Writer, filter domain.LogFilter) error {
	m.filters = append(m.filters, filter)
	_, err := io.WriteString(w, strings.Join(csvHeader, ",")+"\n")
	return err
}

var csvHeader = []string{"id", "ts", "user_id", "question", "reply", "model", "feature", "version", "feedback"}

type mockSettings struct {
	settings     domain.AppSettings
	embedding    []string
	llm          []string
	validateErr  error
	validateCall int
}

func (m *mockSettings) Get() (*domain.AppSettings, error) {
	s := m.settings
	return &s, nil
}

func (m *mockSettings) Save(s *domain.AppSettings) error {
	m.settings = *s
	return nil
}

func (m *mockSettings) SetEmbeddingProvider(p domain.AIProvider, model, apiKey string) error {
	m.embedding = []string{string(p), model, apiKey}
	return nil
}

func (m *mockSettings) SetLLMProvider(p domain.AIProvider, model, apiKey string) error {
	m.llm = []string{string(p), model, apiKey}
	return nil
}

func (m *mockSettings) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

func (m *mockSettings) ValidateEmbeddingConfig() error {
	m.validateCall++
	return m.validateErr
}

func (m *mockSettings) ValidateLLMConfig() error {
	m.validateCall++
	return m.validateErr
}

type testServices struct {
	training  *mockTraining
	retrieval *mockRetrieval
	chat      *mockChat
	settings  *mockSettings
}

// setupTestServices installs mocks and returns a cleanup that restores the
// previous services and flag values.
func setupTestServices(t *testing.T) *testServices {
	t.Helper()
	ts := &testServices{
		training: &mockTraining{versions: []domain.CorpusVersion{
			{ModelKey: "Llama", VersionID: "v2", CreatedAt: testTime, Active: true, PassageCount: 10, Files: []string{"a.txt"}},
			{ModelKey: "Llama", VersionID: "v1", CreatedAt: testTime.Add(-time.Hour), PassageCount: 4, Files: []string{"b.md"}},
		}},
		retrieval: &mockRetrieval{},
		chat:      &mockChat{},
		settings:  &mockSettings{settings: domain.DefaultAppSettings()},
	}
	SetServices(Services{
		Training:  ts.training,
		Retrieval: ts.retrieval,
		Chat:      ts.chat,
		Settings:  ts.settings,
	})
	t.Cleanup(func() {
		SetServices(Services{})
		resetFlags()
	})
	return ts
}

func resetFlags() {
	trainVersion, trainDescription, versionsJSON = "", "", false
	retrieveTopK, retrieveVersion, retrieveJSON = 0, "", false
	askUser, askFeature, askVersion, askLanguage = "cli", domain.FeatureRAG, "", ""
	logsModel, logsFeedback, logsUser = "", "", ""
	logsSkip, logsLimit, logsCSV = 0, domain.DefaultLogLimit, false
	providerFlag, modelFlag, apiKeyFlag, skipPing = "", "", "", false
	mcpHTTPAddr, serveAddr = "", ""
}

// execute runs the root command with args and returns combined output.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	return buf.String(), err
}
