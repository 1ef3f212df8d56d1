// Package window provides a processor that prefixes each chunk with the
// text of its predecessors, so passages keep context across chunk boundaries.
package window

import (
	"context"
	"strings"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
)

// DefaultPrevious is the number of preceding chunks carried into each passage.
const DefaultPrevious = 1

// Processor replaces chunk i with chunks [i-previous, i] joined by a space,
// clamped at the first chunk.
// It implements the PostProcessor interface.
type Processor struct {
	previous int
}

// Option configures the window processor.
type Option func(*Processor)

// WithPrevious sets how many preceding chunks are prepended.
func WithPrevious(n int) Option {
	return func(p *Processor) {
		if n >= 0 {
			p.previous = n
		}
	}
}

// New creates a new window processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{previous: DefaultPrevious}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "window"
}

// Process builds the overlapped chunk sequence. The input slice is not modified.
func (p *Processor) Process(_ context.Context, _ *domain.Document, chunks []domain.Chunk) ([]domain.Chunk, error) {
	if len(chunks) == 0 || p.previous == 0 {
		return chunks, nil
	}

	out := make([]domain.Chunk, len(chunks))
	for i, c := range chunks {
		start := max(0, i-p.previous)
		parts := make([]string, 0, i-start+1)
		for _, prev := range chunks[start : i+1] {
			parts = append(parts, prev.Content)
		}
		out[i] = domain.Chunk{
			Source:   c.Source,
			Content:  strings.TrimSpace(strings.Join(parts, " ")),
			Position: c.Position,
		}
	}
	return out, nil
}
