package services

import (
	"context"
	"errors"
	"hash/fnv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragdesk/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/ragdesk/internal/adapters/driven/vector/flat"
	"github.com/custodia-labs/ragdesk/internal/core/domain"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driven"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driving"
	"github.com/custodia-labs/ragdesk/internal/postprocessors"
	"github.com/custodia-labs/ragdesk/internal/postprocessors/chunker"
)

const mockDims = 16

// mockEmbeddingService hashes words into a small bag-of-words vector, so
// texts sharing words score higher than unrelated ones.
type mockEmbeddingService struct {
	err        error
	batchErr   error
	delay      time.Duration
	shortBatch bool
	calls      atomic.Int32
}

func hashEmbed(text string) []float32 {
	v := make([]float32, mockDims)
	v[0] = 0.01
	for _, w := range strings.Fields(strings.ToLower(text)) {
		w = strings.Trim(w, ".,;:!?")
		if w == "" {
			continue
		}
		h := fnv.New32a()
		_, _ = h.Write([]byte(w))
		v[1+int(h.Sum32()%(mockDims-1))]++
	}
	return v
}

func (m *mockEmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	m.calls.Add(1)
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.err != nil {
		return nil, m.err
	}
	return hashEmbed(text), nil
}

func (m *mockEmbeddingService) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	m.calls.Add(1)
	if m.batchErr != nil {
		return nil, m.batchErr
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = hashEmbed(t)
	}
	if m.shortBatch && len(out) > 0 {
		out = out[:len(out)-1]
	}
	return out, nil
}

func (m *mockEmbeddingService) Dimensions() int   { return mockDims }
func (m *mockEmbeddingService) ModelName() string { return "mock-embed" }

func (m *mockEmbeddingService) Ping(_ context.Context) error {
	return m.err
}

func (m *mockEmbeddingService) Close() error { return nil }

// mockLLMService records the messages it was sent.
type mockLLMService struct {
	mu       sync.Mutex
	reply    string
	err      error
	block    bool
	messages [][]driven.ChatMessage
}

func (m *mockLLMService) Chat(ctx context.Context, messages []driven.ChatMessage, _ driven.ChatOptions) (string, error) {
	m.mu.Lock()
	m.messages = append(m.messages, messages)
	m.mu.Unlock()
	if m.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if m.err != nil {
		return "", m.err
	}
	return m.reply, nil
}

func (m *mockLLMService) lastSystem() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.messages) == 0 {
		return ""
	}
	return m.messages[len(m.messages)-1][0].Content
}

func (m *mockLLMService) lastUser() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.messages) == 0 {
		return ""
	}
	msgs := m.messages[len(m.messages)-1]
	return msgs[len(msgs)-1].Content
}

func (m *mockLLMService) ModelName() string            { return "mock-llm" }
func (m *mockLLMService) Ping(_ context.Context) error { return nil }
func (m *mockLLMService) Close() error                 { return nil }

// mockPromptStore serves fixed templates.
type mockPromptStore struct {
	err     error
	context string
}

func (m *mockPromptStore) Load(name string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	switch name {
	case driven.PromptSystemRAG:
		return "You are a precise RAG assistant.", nil
	case driven.PromptSystemLoRA:
		return "You are a LoRA fine-tuned assistant.", nil
	case driven.PromptContext:
		if m.context != "" {
			return m.context, nil
		}
		return "Context:\n%s", nil
	}
	return "", errors.New("unknown prompt")
}

// mockTranslator tags text with the target language.
type mockTranslator struct {
	err   error
	calls []string
}

func (m *mockTranslator) Translate(_ context.Context, text, source, target string) (string, error) {
	m.calls = append(m.calls, source+"->"+target)
	if m.err != nil {
		return "", m.err
	}
	return "[" + target + "] " + text, nil
}

type mockTranscriber struct {
	text string
	err  error
}

func (m *mockTranscriber) Transcribe(_ context.Context, _ []byte, _, _ string) (string, error) {
	return m.text, m.err
}

// mockExtractor reads document bytes as text.
type mockExtractor struct {
	mu    sync.Mutex
	seen  []string
	delay func(name string) time.Duration
}

func (m *mockExtractor) Extract(_ context.Context, raw *domain.RawDocument) string {
	if m.delay != nil {
		time.Sleep(m.delay(raw.Name))
	}
	m.mu.Lock()
	m.seen = append(m.seen, raw.Name)
	m.mu.Unlock()
	return string(raw.Content)
}

func (m *mockExtractor) Register(_ driven.Normaliser) {}

func (m *mockExtractor) SupportedMIMETypes() []string { return []string{"text/plain"} }

// trainingFixture wires a training service over in-memory stores.
type trainingFixture struct {
	versions *memory.VersionStore
	corpora  *memory.CorpusStore
	registry *VersionRegistry
	cache    *CorpusCache
	embedder *mockEmbeddingService
	training *TrainingService
	clock    time.Time
}

func newTrainingFixture(t *testing.T) *trainingFixture {
	t.Helper()

	f := &trainingFixture{
		versions: memory.NewVersionStore(),
		corpora:  memory.NewCorpusStore(),
		embedder: &mockEmbeddingService{},
		clock:    time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	registry, err := NewVersionRegistry(context.Background(), f.versions)
	require.NoError(t, err)
	f.registry = registry
	f.cache = NewCorpusCache(f.corpora)

	pipeline := postprocessors.NewPipeline(chunker.New(chunker.WithChunkSize(80)))
	f.training = NewTrainingService(f.registry, f.corpora, f.cache, &mockExtractor{}, pipeline, f.embedder, flat.Build)
	f.training.now = func() time.Time {
		f.clock = f.clock.Add(time.Minute)
		return f.clock
	}
	return f
}

func (f *trainingFixture) train(t *testing.T, model, version string, docs ...domain.RawDocument) *domain.CorpusVersion {
	t.Helper()
	v, err := f.training.Train(context.Background(), driving.TrainRequest{ModelKey: model, VersionID: version, Documents: docs})
	require.NoError(t, err)
	return v
}

func textDoc(name, content string) domain.RawDocument {
	return domain.RawDocument{Name: name, MIMEType: "text/plain", Content: []byte(content)}
}
