package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driven"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driving"
	"github.com/custodia-labs/ragdesk/internal/logger"
)

// Ensure TrainingService implements the interface.
var _ driving.TrainingService = (*TrainingService)(nil)

// Ingestion defaults.
const (
	DefaultEmbedBatchSize = 64
	DefaultIngestWorkers  = 4
)

// TrainingService builds corpus versions and manages their lifecycle.
type TrainingService struct {
	registry   *VersionRegistry
	corpora    driven.CorpusStore
	cache      *CorpusCache
	extractor  driven.NormaliserRegistry
	pipeline   driven.PostProcessorPipeline
	embedder   driven.EmbeddingService
	buildIndex driven.VectorIndexBuilder

	batchSize int
	workers   int
	now       func() time.Time
}

// NewTrainingService creates a training service.
// The embedder may be nil, in which case Train fails with ErrEmbeddingUnavailable.
func NewTrainingService(
	registry *VersionRegistry,
	corpora driven.CorpusStore,
	cache *CorpusCache,
	extractor driven.NormaliserRegistry,
	pipeline driven.PostProcessorPipeline,
	embedder driven.EmbeddingService,
	buildIndex driven.VectorIndexBuilder,
) *TrainingService {
	return &TrainingService{
		registry:   registry,
		corpora:    corpora,
		cache:      cache,
		extractor:  extractor,
		pipeline:   pipeline,
		embedder:   embedder,
		buildIndex: buildIndex,
		batchSize:  DefaultEmbedBatchSize,
		workers:    DefaultIngestWorkers,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// SetBatchSize sets the number of passages per embedding call.
func (s *TrainingService) SetBatchSize(n int) {
	if n > 0 {
		s.batchSize = n
	}
}

// SetWorkers sets the extraction and embedding parallelism.
func (s *TrainingService) SetWorkers(n int) {
	if n > 0 {
		s.workers = n
	}
}

// NewVersionID returns "v<yyyymmddhhmmss>-<6 hex>" for t.
func NewVersionID(t time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
	return "v" + t.UTC().Format("20060102150405") + "-" + suffix
}

// Train extracts, chunks and embeds the documents, persists them as a new
// version and activates it. Nothing is registered unless every step succeeds.
func (s *TrainingService) Train(ctx context.Context, req driving.TrainRequest) (*domain.CorpusVersion, error) {
	logger.Section("Training")

	if s.embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}
	if err := domain.ValidateKey("model", req.ModelKey); err != nil {
		return nil, err
	}
	if len(req.Documents) == 0 {
		return nil, fmt.Errorf("%w: no documents to train on", domain.ErrInvalidInput)
	}

	created := s.now()
	versionID := strings.TrimSpace(req.VersionID)
	if versionID == "" {
		versionID = NewVersionID(created)
	}
	if err := domain.ValidateKey("version", versionID); err != nil {
		return nil, err
	}
	if _, exists := s.registry.Get(req.ModelKey, versionID); exists {
		return nil, fmt.Errorf("%w: version %s/%s", domain.ErrAlreadyExists, req.ModelKey, versionID)
	}
	logger.Info("Training %s/%s from %d documents", req.ModelKey, versionID, len(req.Documents))

	docs := s.extract(ctx, req.Documents)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	passages, err := s.pipeline.Passages(ctx, docs)
	if err != nil {
		return nil, fmt.Errorf("chunking: %w", err)
	}
	if len(passages) == 0 {
		return nil, fmt.Errorf("%w: no text could be extracted from the documents", domain.ErrInvalidInput)
	}
	logger.Debug("%d documents produced %d passages", len(docs), len(passages))

	texts := make([]string, len(passages))
	for i, p := range passages {
		texts[i] = p.Text
	}
	vectors, err := s.embedAll(ctx, texts)
	if err != nil {
		return nil, err
	}

	index, err := s.buildIndex(vectors)
	if err != nil {
		return nil, fmt.Errorf("building index: %w", err)
	}

	files := make([]string, len(req.Documents))
	for i, d := range req.Documents {
		files[i] = d.Name
	}
	corpusText := make([]string, len(docs))
	for i, d := range docs {
		corpusText[i] = d.Content
	}

	manifest := domain.CorpusManifest{
		ModelKey:       req.ModelKey,
		VersionID:      versionID,
		Passages:       len(passages),
		Dimensions:     index.Dimensions(),
		EmbeddingModel: s.embedder.ModelName(),
		Files:          files,
		CreatedAt:      created,
	}
	err = s.corpora.Write(ctx, &driven.CorpusWrite{
		Manifest:   manifest,
		Uploads:    req.Documents,
		CorpusText: strings.Join(corpusText, "\n\n"),
		Passages:   passages,
		RawVectors: vectors,
		Index:      index,
	})
	if err != nil {
		return nil, fmt.Errorf("writing corpus: %w", err)
	}

	version, err := s.registry.Create(ctx, domain.CorpusVersion{
		ModelKey:       req.ModelKey,
		VersionID:      versionID,
		Description:    req.Description,
		CreatedAt:      created,
		Files:          files,
		PassageCount:   len(passages),
		Dimensions:     index.Dimensions(),
		EmbeddingModel: manifest.EmbeddingModel,
	})
	if err != nil {
		// The files are unreachable without a registry entry.
		if evictErr := s.corpora.Evict(context.WithoutCancel(ctx), req.ModelKey, versionID); evictErr != nil {
			logger.Warn("Could not remove unregistered corpus %s/%s: %v", req.ModelKey, versionID, evictErr)
		}
		return nil, err
	}

	s.cache.Put(&driven.Corpus{Manifest: manifest, Passages: passages, Index: index})
	logger.Info("Trained %s: %d passages, %d dimensions", version.Key(), version.PassageCount, version.Dimensions)
	return version, nil
}

// extract runs text extraction on the worker pool and cleans the results.
// Documents without text are skipped with a warning.
func (s *TrainingService) extract(ctx context.Context, raws []domain.RawDocument) []domain.Document {
	texts := make([]string, len(raws))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i := range raws {
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			texts[i] = CleanText(s.extractor.Extract(gctx, &raws[i]))
			return nil
		})
	}
	_ = g.Wait()

	docs := make([]domain.Document, 0, len(raws))
	for i, text := range texts {
		if text == "" {
			logger.Warn("Skipping %s: no text extracted", raws[i].Name)
			continue
		}
		docs = append(docs, domain.Document{Source: raws[i].Name, Content: text})
	}
	return docs
}

// embedAll embeds texts in batches on the worker pool. Each batch writes its
// own slice range, so the output order equals the input order.
func (s *TrainingService) embedAll(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for start := 0; start < len(texts); start += s.batchSize {
		end := min(start+s.batchSize, len(texts))
		g.Go(func() error {
			batch, err := s.embedder.EmbedBatch(gctx, texts[start:end])
			if err != nil {
				return err
			}
			if len(batch) != end-start {
				return fmt.Errorf("%w: embedding returned %d vectors for %d texts",
					domain.ErrCollaboratorUnavailable, len(batch), end-start)
			}
			copy(vectors[start:end], batch)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if errors.Is(err, domain.ErrCollaboratorUnavailable) {
			return nil, fmt.Errorf("embedding passages: %w", err)
		}
		return nil, fmt.Errorf("%w: embedding passages: %v", domain.ErrCollaboratorUnavailable, err)
	}

	dims := len(vectors[0])
	for i, v := range vectors {
		if len(v) == 0 || len(v) != dims {
			return nil, fmt.Errorf("%w: embedding %d has %d dimensions, want %d",
				domain.ErrCollaboratorUnavailable, i, len(v), dims)
		}
	}
	return vectors, nil
}

// Activate makes a version the active one for its model.
func (s *TrainingService) Activate(ctx context.Context, modelKey, versionID string) (*domain.CorpusVersion, error) {
	v, changed, err := s.registry.Activate(ctx, modelKey, versionID)
	if err != nil {
		return nil, err
	}
	if !changed {
		logger.Debug("Version %s already active", v.Key())
	}
	return v, nil
}

// DeleteVersion removes a version from the registry, then its files.
// Already-loaded copies keep serving in-flight queries.
func (s *TrainingService) DeleteVersion(ctx context.Context, modelKey, versionID string) error {
	removed, _, err := s.registry.Delete(ctx, modelKey, versionID)
	if err != nil {
		return err
	}
	s.cache.Drop(removed.ModelKey, removed.VersionID)
	if err := s.corpora.Evict(ctx, removed.ModelKey, removed.VersionID); err != nil {
		return fmt.Errorf("removing files of %s: %w", removed.Key(), err)
	}
	return nil
}

// Versions lists a model's versions, newest first.
func (s *TrainingService) Versions(_ context.Context, modelKey string) ([]domain.CorpusVersion, error) {
	return s.registry.List(modelKey), nil
}

// History lists every version, newest first.
func (s *TrainingService) History(_ context.Context) ([]domain.CorpusVersion, error) {
	return s.registry.All(), nil
}

// Active returns the active version of a model.
func (s *TrainingService) Active(_ context.Context, modelKey string) (*domain.CorpusVersion, error) {
	v, ok := s.registry.Active(modelKey)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotTrained, modelKey)
	}
	return v, nil
}
