package postprocessors

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
)

// mockProcessor is a test processor that returns predefined chunks.
type mockProcessor struct {
	name   string
	chunks []domain.Chunk
	err    error
}

func (m *mockProcessor) Name() string {
	return m.name
}

func (m *mockProcessor) Process(_ context.Context, _ *domain.Document, chunks []domain.Chunk) ([]domain.Chunk, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.chunks != nil {
		return m.chunks, nil
	}
	return chunks, nil
}

func TestPipeline_Process_NilDocument(t *testing.T) {
	_, err := NewPipeline().Process(context.Background(), nil)
	assert.Error(t, err)
}

func TestPipeline_Process_ProcessorError(t *testing.T) {
	boom := errors.New("processor failed")
	p := NewPipeline(&mockProcessor{name: "failing", err: boom})

	_, err := p.Process(context.Background(), &domain.Document{Content: "x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "failing")
}

func TestPipeline_Process_Chained(t *testing.T) {
	p := NewPipeline(
		&mockProcessor{name: "first", chunks: []domain.Chunk{{Content: "a"}}},
		&mockProcessor{name: "passthrough"},
	)
	p.Add(&mockProcessor{name: "last"})

	chunks, err := p.Process(context.Background(), &domain.Document{Content: "x"})
	require.NoError(t, err)
	assert.Len(t, chunks, 1)
	assert.Equal(t, 3, p.Len())
}

func TestPipeline_Process_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewPipeline(&mockProcessor{name: "x"}).Process(ctx, &domain.Document{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPipeline_Passages_DefaultConfig(t *testing.T) {
	p, err := BuildPipeline(NewDefaultRegistry(), domain.DefaultPipelineConfig(20))
	require.NoError(t, err)

	docs := []domain.Document{
		{Source: "a.pdf", Content: "Aaaa bbbb. Cccc dddd. Eeee."},
		{Source: "empty.pdf", Content: ""},
		{Source: "b.pdf", Content: "Only one."},
	}

	passages, err := p.Passages(context.Background(), docs)
	require.NoError(t, err)

	want := []domain.Passage{
		{Source: "a.pdf", Text: "Aaaa bbbb."},
		{Source: "a.pdf", Text: "Aaaa bbbb. Cccc dddd. Eeee."},
		{Source: "b.pdf", Text: "Only one."},
	}
	assert.Equal(t, want, passages)
}
