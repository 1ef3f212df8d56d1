package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragdesk/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/ragdesk/internal/core/domain"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driven"
)

type chatFixture struct {
	llm     *mockLLMService
	logs    *memory.ChatLogStore
	service *ChatService
}

func newChatFixture(t *testing.T) *chatFixture {
	t.Helper()
	r := newRetrievalFixture(t)
	f := &chatFixture{
		llm:  &mockLLMService{reply: "Apples are sweet."},
		logs: memory.NewChatLogStore(),
	}
	f.service = NewChatService(r.service, f.llm, f.logs, &mockPromptStore{})
	return f
}

// failingLogStore rejects appends.
type failingLogStore struct {
	*memory.ChatLogStore
}

func (s *failingLogStore) Append(_ context.Context, _ domain.ChatLogEntry) (domain.ChatLogEntry, error) {
	return domain.ChatLogEntry{}, fmt.Errorf("%w: disk full", domain.ErrStorageWrite)
}

// stubRetrieval returns a fixed outcome.
type stubRetrieval struct {
	result *domain.RetrievalResult
	err    error
}

func (s *stubRetrieval) Retrieve(_ context.Context, _, _ string, _ domain.RetrievalOptions) (*domain.RetrievalResult, error) {
	return s.result, s.err
}

func TestChatService_Ask(t *testing.T) {
	ctx := context.Background()
	f := newChatFixture(t)

	resp, err := f.service.Ask(ctx, domain.ChatRequest{UserID: "u1", ModelKey: "m1", Question: "  sweet apples?  "})
	require.NoError(t, err)

	assert.Equal(t, "Apples are sweet.", resp.Reply)
	assert.Empty(t, resp.Warnings)
	assert.Equal(t, int64(1), resp.Entry.ID)
	assert.Equal(t, "sweet apples?", resp.Entry.Question)
	assert.Equal(t, domain.FeatureRAG, resp.Entry.Feature)
	assert.Equal(t, domain.DefaultVersion, resp.Entry.Version)
	assert.False(t, resp.Entry.Timestamp.IsZero())

	system := f.llm.lastSystem()
	assert.Contains(t, system, "You are a precise RAG assistant.")
	assert.Contains(t, system, "Context:\nnew apples are sweet")
	assert.NotContains(t, system, "[Version:")
	assert.Equal(t, "sweet apples?", f.llm.lastUser())

	n, err := f.logs.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRenderContext(t *testing.T) {
	tests := []struct {
		name string
		tmpl string
		text string
		want string
	}{
		{"placeholder", "Context:\n%s", "apples", "Context:\napples"},
		{"literal percent kept", "Be 100% sure.\n%s\nUse 50%d of it.", "apples", "Be 100% sure.\napples\nUse 50%d of it."},
		{"only first placeholder", "%s and %s", "apples", "apples and %s"},
		{"no placeholder appends", "Use the context below.\n", "apples", "Use the context below.\napples"},
		{"verbs in context untouched", "Context: %s", "50%s off %d", "Context: 50%s off %d"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, renderContext(tt.tmpl, tt.text))
		})
	}
}

func TestChatService_AskEditedContextPrompt(t *testing.T) {
	r := newRetrievalFixture(t)
	llm := &mockLLMService{reply: "ok"}
	prompts := &mockPromptStore{context: "Answer in 100% plain words; cite %d sources."}
	service := NewChatService(r.service, llm, memory.NewChatLogStore(), prompts)

	_, err := service.Ask(context.Background(), domain.ChatRequest{UserID: "u1", ModelKey: "m1", Question: "sweet apples?"})
	require.NoError(t, err)

	system := llm.lastSystem()
	assert.Contains(t, system, "Answer in 100% plain words; cite %d sources.\nnew apples are sweet")
	assert.NotContains(t, system, "%!")
}

func TestChatService_AskPinnedLoRA(t *testing.T) {
	f := newChatFixture(t)

	resp, err := f.service.Ask(context.Background(), domain.ChatRequest{
		ModelKey: "m1", Feature: "LoRA", Version: "v1", Question: "apples",
	})
	require.NoError(t, err)

	system := f.llm.lastSystem()
	assert.Contains(t, system, "You are a LoRA fine-tuned assistant.")
	assert.Contains(t, system, "[Version: v1]")
	assert.Contains(t, system, "old apples are red")
	assert.Equal(t, "v1", resp.Entry.Version)
	assert.Equal(t, domain.FeatureLoRA, resp.Entry.Feature)
}

func TestChatService_AskValidation(t *testing.T) {
	f := newChatFixture(t)

	tests := []struct {
		name string
		req  domain.ChatRequest
		want error
	}{
		{name: "empty question", req: domain.ChatRequest{ModelKey: "m1", Question: " "}, want: domain.ErrInvalidInput},
		{name: "bad model", req: domain.ChatRequest{ModelKey: "a/b", Question: "q"}, want: domain.ErrInvalidInput},
		{name: "unknown feature", req: domain.ChatRequest{ModelKey: "m1", Feature: "gpt", Question: "q"}, want: domain.ErrInvalidInput},
		{name: "unknown version", req: domain.ChatRequest{ModelKey: "m1", Version: "v9", Question: "q"}, want: domain.ErrVersionNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.service.Ask(context.Background(), tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	n, err := f.logs.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n, "rejected requests are not logged")
}

func TestChatService_AskUntrainedModel(t *testing.T) {
	f := newChatFixture(t)

	resp, err := f.service.Ask(context.Background(), domain.ChatRequest{ModelKey: "fresh", Question: "hello"})
	require.NoError(t, err)

	assert.Equal(t, []string{"model has no trained corpus"}, resp.Warnings)
	assert.NotContains(t, f.llm.lastSystem(), "Context:")
}

func TestChatService_AskLLMFailures(t *testing.T) {
	tests := []struct {
		name  string
		llm   driven.LLMService
		reply string
	}{
		{name: "transport error", llm: &mockLLMService{err: errors.New("502 bad gateway")}, reply: "[LLM Error: 502 bad gateway]"},
		{name: "timeout", llm: &mockLLMService{block: true}, reply: "[LLM Error: timeout]"},
		{name: "not configured", llm: nil, reply: "[LLM Error: no LLM configured]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newChatFixture(t)
			f.service.llm = tt.llm
			f.service.SetLLMTimeout(20 * time.Millisecond)

			resp, err := f.service.Ask(context.Background(), domain.ChatRequest{ModelKey: "m1", Question: "apples"})

			require.NoError(t, err)
			assert.Equal(t, tt.reply, resp.Reply)
			got, err := f.logs.Get(context.Background(), resp.Entry.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.reply, got.Answer)
		})
	}
}

func TestChatService_AskRetrievalFailureWarns(t *testing.T) {
	f := newChatFixture(t)
	f.service.retrieval = &stubRetrieval{err: fmt.Errorf("%w: counts disagree", domain.ErrCorruptIndex)}

	resp, err := f.service.Ask(context.Background(), domain.ChatRequest{ModelKey: "m1", Question: "apples"})

	require.NoError(t, err)
	require.Len(t, resp.Warnings, 1)
	assert.Contains(t, resp.Warnings[0], "corrupt index")
	assert.Equal(t, "Apples are sweet.", resp.Reply)
}

func TestChatService_AskLogFailurePropagates(t *testing.T) {
	f := newChatFixture(t)
	f.service.logs = &failingLogStore{ChatLogStore: memory.NewChatLogStore()}

	_, err := f.service.Ask(context.Background(), domain.ChatRequest{ModelKey: "m1", Question: "apples"})

	assert.ErrorIs(t, err, domain.ErrStorageWrite)
}

func TestChatService_AskTranslates(t *testing.T) {
	f := newChatFixture(t)
	tr := &mockTranslator{}
	f.service.SetTranslator(tr)

	resp, err := f.service.Ask(context.Background(), domain.ChatRequest{ModelKey: "m1", Question: "pommes", Language: "fr"})
	require.NoError(t, err)

	assert.Equal(t, []string{"fr->en", "en->fr"}, tr.calls)
	assert.Equal(t, "[en] pommes", f.llm.lastUser())
	assert.Equal(t, "[fr] Apples are sweet.", resp.Reply)
	assert.Equal(t, "pommes", resp.Entry.Question, "the log keeps the original question")

	t.Run("english skips translation", func(t *testing.T) {
		tr.calls = nil
		_, err := f.service.Ask(context.Background(), domain.ChatRequest{ModelKey: "m1", Question: "apples", Language: "en"})
		require.NoError(t, err)
		assert.Empty(t, tr.calls)
	})

	t.Run("failure passes text through", func(t *testing.T) {
		tr.err = errors.New("unreachable")
		resp, err := f.service.Ask(context.Background(), domain.ChatRequest{ModelKey: "m1", Question: "pommes", Language: "fr"})
		require.NoError(t, err)
		assert.Equal(t, "pommes", f.llm.lastUser())
		assert.Equal(t, "Apples are sweet.", resp.Reply)
	})
}

func TestChatService_Transcribe(t *testing.T) {
	f := newChatFixture(t)
	audio := []byte("RIFF....")

	assert.Equal(t, "(no transcript)", f.service.Transcribe(context.Background(), audio, "a.wav", "en"))

	f.service.SetTranscriber(&mockTranscriber{text: " hello world "})
	assert.Equal(t, "hello world", f.service.Transcribe(context.Background(), audio, "a.wav", "en"))
	assert.Equal(t, "(no transcript)", f.service.Transcribe(context.Background(), nil, "a.wav", "en"))

	f.service.SetTranscriber(&mockTranscriber{err: errors.New("bad audio")})
	assert.Equal(t, "(no transcript)", f.service.Transcribe(context.Background(), audio, "a.wav", "en"))

	f.service.SetTranscriber(&mockTranscriber{text: "   "})
	assert.Equal(t, "(no transcript)", f.service.Transcribe(context.Background(), audio, "a.wav", ""))
}

func TestChatService_Feedback(t *testing.T) {
	ctx := context.Background()
	f := newChatFixture(t)
	resp, err := f.service.Ask(ctx, domain.ChatRequest{ModelKey: "m1", Question: "apples"})
	require.NoError(t, err)

	entry, err := f.service.SetFeedback(ctx, domain.FeedbackKey{ID: resp.Entry.ID}, domain.FeedbackPositive)
	require.NoError(t, err)
	assert.Equal(t, domain.FeedbackPositive, entry.Feedback)

	entry, err = f.service.SetFeedback(ctx, domain.FeedbackKey{Timestamp: resp.Entry.Timestamp}, "none")
	require.NoError(t, err)
	assert.Empty(t, entry.Feedback)

	t.Run("unknown id leaves the log unchanged", func(t *testing.T) {
		before, err := f.service.Logs(ctx, domain.LogFilter{})
		require.NoError(t, err)

		_, err = f.service.SetFeedback(ctx, domain.FeedbackKey{ID: 999}, domain.FeedbackNegative)
		assert.ErrorIs(t, err, domain.ErrNotFound)

		after, err := f.service.Logs(ctx, domain.LogFilter{})
		require.NoError(t, err)
		assert.Equal(t, before, after)
	})

	_, err = f.service.SetFeedback(ctx, domain.FeedbackKey{}, "x")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	got, err := f.service.Log(ctx, resp.Entry.ID)
	require.NoError(t, err)
	assert.Equal(t, "apples", got.Question)

	_, err = f.service.Log(ctx, 42)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestChatService_ConcurrentAsksAllLogged(t *testing.T) {
	ctx := context.Background()
	f := newChatFixture(t)

	var wg sync.WaitGroup
	for i := range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.service.Ask(ctx, domain.ChatRequest{UserID: fmt.Sprintf("u%d", i), ModelKey: "m1", Question: "apples"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	entries, err := f.service.Logs(ctx, domain.LogFilter{})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.NotEqual(t, entries[0].ID, entries[1].ID)
}

func TestChatService_ExportCSV(t *testing.T) {
	ctx := context.Background()
	f := newChatFixture(t)
	_, err := f.service.Ask(ctx, domain.ChatRequest{UserID: "u1", ModelKey: "m1", Question: "apples, please"})
	require.NoError(t, err)
	_, err = f.service.Ask(ctx, domain.ChatRequest{UserID: "u2", ModelKey: "other", Question: "pears"})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, f.service.ExportCSV(ctx, &buf, domain.LogFilter{ModelKey: "M1"}))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, CSVHeader, records[0])
	assert.Equal(t, "1", records[1][0])
	assert.Equal(t, "u1", records[1][2])
	assert.Equal(t, "apples, please", records[1][3])
	assert.Equal(t, "m1", records[1][5])
	assert.Equal(t, "rag", records[1][6])
	assert.Equal(t, "default", records[1][7])
	assert.Empty(t, records[1][8])
}
