package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nichegen/pipeline/internal/domain"
)

// PipelineService runs one niche through gather, rank, enrich and snapshot
type PipelineService struct {
	queries    *QueryBuilder
	aggregator *Aggregator
	normalizer *Normalizer
	ranking    *RankingService
	enricher   *EnrichmentService
	snapshots  domain.SnapshotRepository
	now        func() time.Time
	logger     *slog.Logger
}

// NewPipelineService creates a new pipeline service with dependencies
func NewPipelineService(
	queries *QueryBuilder,
	aggregator *Aggregator,
	ranking *RankingService,
	enricher *EnrichmentService,
	snapshots domain.SnapshotRepository,
	logger *slog.Logger,
) *PipelineService {
	if logger == nil {
		logger = slog.Default()
	}
	if queries == nil {
		queries = NewQueryBuilder(false, logger)
	}

	return &PipelineService{
		queries:    queries,
		aggregator: aggregator,
		normalizer: NewNormalizer(),
		ranking:    ranking,
		enricher:   enricher,
		snapshots:  snapshots,
		now:        time.Now,
		logger:     logger.With(slog.String("component", "pipeline")),
	}
}

// Process generates the product list for one niche and writes its snapshot.
// A niche that ends with no products is not an error: the snapshot is still
// written and the result carries status empty.
// Flow: build query -> gather -> normalize -> shortlist -> enrich -> snapshot
func (s *PipelineService) Process(ctx context.Context, niche domain.Niche, runID string) (*domain.NicheResult, error) {
	slug := niche.Slug()
	if slug == "" {
		return nil, fmt.Errorf("%w: niche %q has no usable name", domain.ErrInvalidRequest, niche.Name)
	}

	start := time.Now()
	log := s.logger.With(slog.String("niche", niche.Name), slog.String("run_id", runID))

	query := s.queries.Build(niche.SearchTerm())
	log.Info("processing niche", slog.String("query", query))

	gathered := s.aggregator.Gather(ctx, query)
	normalized := s.normalizer.NormalizeAll(gathered.Candidates)
	shortlist := s.ranking.Shortlist(niche, normalized)
	log.Info("shortlisted candidates",
		slog.Int("gathered", len(gathered.Candidates)),
		slog.Int("shortlist", len(shortlist)),
	)

	products := s.enricher.EnrichAll(ctx, shortlist)

	snapshot := &domain.Snapshot{
		Niche:        niche.Name,
		Keyword:      query,
		Slug:         slug,
		RunID:        runID,
		GeneratedAt:  s.now().UTC(),
		Sources:      gathered.Sources,
		FallbackUsed: gathered.FallbackUsed,
		Raw:          gathered.Candidates,
		Products:     products,
	}
	if err := s.snapshots.Save(ctx, snapshot); err != nil {
		return nil, fmt.Errorf("save snapshot for %q: %w", niche.Name, err)
	}

	result := &domain.NicheResult{
		Niche:    niche,
		Status:   domain.NicheSucceeded,
		Products: products,
		Duration: time.Since(start),
	}
	if len(products) == 0 {
		result.Status = domain.NicheEmpty
		result.Error = domain.ErrEmptyResult.Error()
		log.Warn("niche produced no products")
	} else {
		log.Info("niche complete", slog.Int("products", len(products)), slog.Duration("duration", result.Duration))
	}

	return result, nil
}
