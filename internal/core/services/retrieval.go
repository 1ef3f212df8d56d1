package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driven"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driving"
	"github.com/custodia-labs/ragdesk/internal/logger"
)

// Ensure RetrievalService implements the interface.
var _ driving.RetrievalService = (*RetrievalService)(nil)

// DefaultEmbedTimeout bounds the query embedding call.
const DefaultEmbedTimeout = 30 * time.Second

// passageSeparator joins passages in the context block.
const passageSeparator = "\n\n"

// RetrievalService resolves a model's corpus and returns the passages
// closest to a query.
type RetrievalService struct {
	registry *VersionRegistry
	cache    *CorpusCache
	embedder driven.EmbeddingService

	topK         int
	budget       int
	embedTimeout time.Duration
}

// NewRetrievalService creates a retrieval service.
// The embedder may be nil; queries then return an empty result with a warning.
func NewRetrievalService(registry *VersionRegistry, cache *CorpusCache, embedder driven.EmbeddingService) *RetrievalService {
	return &RetrievalService{
		registry:     registry,
		cache:        cache,
		embedder:     embedder,
		topK:         domain.DefaultTopK,
		budget:       domain.DefaultContextBudget,
		embedTimeout: DefaultEmbedTimeout,
	}
}

// SetPolicy overrides the default top-k and context budget. Non-positive
// values keep the current setting.
func (s *RetrievalService) SetPolicy(topK, contextBudget int) {
	if topK > 0 {
		s.topK = topK
	}
	if contextBudget > 0 {
		s.budget = contextBudget
	}
}

// SetEmbedTimeout bounds the query embedding call.
func (s *RetrievalService) SetEmbedTimeout(d time.Duration) {
	if d > 0 {
		s.embedTimeout = d
	}
}

// Retrieve returns the top passages for query. A model without an active
// version, or without corpus files, yields an empty result with NotTrained
// set. Embedding failures degrade to an empty result with a warning.
// Errors are returned for unknown pinned versions and corrupt corpora.
func (s *RetrievalService) Retrieve(
	ctx context.Context, modelKey, query string, opts domain.RetrievalOptions,
) (*domain.RetrievalResult, error) {
	result := &domain.RetrievalResult{ModelKey: modelKey, Passages: []domain.ScoredPassage{}}

	version, err := s.resolve(modelKey, opts.Version)
	if err != nil {
		if errors.Is(err, domain.ErrNotTrained) {
			result.NotTrained = true
			return result, nil
		}
		return nil, err
	}
	result.VersionID = version.VersionID

	corpus, err := s.cache.Get(ctx, modelKey, version.VersionID)
	if err != nil {
		if errors.Is(err, domain.ErrNotTrained) {
			logger.Warn("Active version %s has no corpus files", version.Key())
			result.NotTrained = true
			return result, nil
		}
		return nil, err
	}

	query = strings.TrimSpace(query)
	if query == "" || corpus.Index.Size() == 0 {
		return result, nil
	}

	if s.embedder == nil {
		result.Warnings = append(result.Warnings, "embedding service not configured")
		return result, nil
	}

	embedCtx, cancel := context.WithTimeout(ctx, s.embedTimeout)
	vec, err := s.embedder.Embed(embedCtx, query)
	cancel()
	if err != nil {
		logger.Warn("Query embedding failed for %s: %v", modelKey, err)
		result.Warnings = append(result.Warnings, "embedding unavailable: "+shortReason(err))
		return result, nil
	}

	k := opts.TopK
	if k <= 0 {
		k = s.topK
	}
	hits, err := corpus.Index.Search(vec, k)
	if err != nil {
		logger.Warn("Search failed for %s: %v", version.Key(), err)
		result.Warnings = append(result.Warnings, "search failed: "+shortReason(err))
		return result, nil
	}

	scored := make([]domain.ScoredPassage, 0, len(hits))
	for _, h := range hits {
		if h.Row < 0 || h.Row >= len(corpus.Passages) {
			return nil, fmt.Errorf("%w: hit row %d outside %d passages", domain.ErrCorruptIndex, h.Row, len(corpus.Passages))
		}
		scored = append(scored, domain.ScoredPassage{Passage: corpus.Passages[h.Row], Score: h.Score, Index: h.Row})
	}

	result.Passages, result.Context = BuildContext(scored, s.budget)
	logger.Debug("Retrieved %d passages from %s", len(result.Passages), version.Key())
	return result, nil
}

// resolve returns the pinned version or the model's active one.
func (s *RetrievalService) resolve(modelKey, pinned string) (*domain.CorpusVersion, error) {
	if pinned == "" || pinned == domain.DefaultVersion {
		v, ok := s.registry.Active(modelKey)
		if !ok {
			return nil, domain.ErrNotTrained
		}
		return v, nil
	}
	v, ok := s.registry.Get(modelKey, pinned)
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", domain.ErrVersionNotFound, modelKey, pinned)
	}
	return v, nil
}

// BuildContext concatenates passages in rank order until budget characters
// are used. The last passage that fits only partly is cut at the budget;
// passages beyond it are dropped from the returned list.
func BuildContext(passages []domain.ScoredPassage, budget int) ([]domain.ScoredPassage, string) {
	var b strings.Builder
	used := 0
	for i, p := range passages {
		sep := 0
		if i > 0 {
			sep = len(passageSeparator)
		}
		n := utf8.RuneCountInString(p.Text)
		if used+sep+n <= budget {
			if i > 0 {
				b.WriteString(passageSeparator)
			}
			b.WriteString(p.Text)
			used += sep + n
			continue
		}

		room := budget - used - sep
		if room <= 0 {
			return passages[:i], b.String()
		}
		if i > 0 {
			b.WriteString(passageSeparator)
		}
		b.WriteString(truncateRunes(p.Text, room))
		return passages[:i+1], b.String()
	}
	return passages, b.String()
}

func truncateRunes(s string, n int) string {
	for i := range s {
		if n == 0 {
			return s[:i]
		}
		n--
	}
	return s
}

// shortReason returns a one-line description of err for user-visible text.
func shortReason(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	}
	msg := err.Error()
	if i := strings.IndexByte(msg, '\n'); i >= 0 {
		msg = msg[:i]
	}
	const maxLen = 120
	if utf8.RuneCountInString(msg) > maxLen {
		msg = truncateRunes(msg, maxLen) + "..."
	}
	return msg
}
