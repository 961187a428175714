package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/nichegen/pipeline/internal/domain"
	"github.com/nichegen/pipeline/internal/logger"
)

// DefaultNicheDelay separates consecutive niches in a batch
const DefaultNicheDelay = 3 * time.Second

// NicheProcessor processes a single niche. PipelineService implements it.
type NicheProcessor interface {
	Process(ctx context.Context, niche domain.Niche, runID string) (*domain.NicheResult, error)
}

// BatchConfig holds configuration for the batch runner
type BatchConfig struct {
	NicheDelay time.Duration
	Sleep      func(ctx context.Context, d time.Duration) error
	NewRunID   func() string
}

// BatchRunner drives every niche of a run, one after another
type BatchRunner struct {
	processor NicheProcessor
	delay     time.Duration
	sleep     func(ctx context.Context, d time.Duration) error
	newRunID  func() string
	now       func() time.Time
	logger    *slog.Logger
}

// NewBatchRunner creates a batch runner. A negative NicheDelay disables the pause.
func NewBatchRunner(processor NicheProcessor, config BatchConfig, logger *slog.Logger) *BatchRunner {
	delay := config.NicheDelay
	if delay == 0 {
		delay = DefaultNicheDelay
	}
	if delay < 0 {
		delay = 0
	}

	sleep := config.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	newRunID := config.NewRunID
	if newRunID == nil {
		newRunID = uuid.NewString
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &BatchRunner{
		processor: processor,
		delay:     delay,
		sleep:     sleep,
		newRunID:  newRunID,
		now:       time.Now,
		logger:    logger.With(slog.String("component", "batch")),
	}
}

// Run processes niches sequentially in input order. A niche that fails or
// panics is recorded and the run moves on. If ctx is cancelled the remaining
// niches are recorded as failed.
func (b *BatchRunner) Run(ctx context.Context, niches []domain.Niche) *domain.BatchSummary {
	summary := &domain.BatchSummary{
		RunID:     b.newRunID(),
		StartedAt: b.now().UTC(),
		Results:   make([]domain.NicheResult, 0, len(niches)),
	}
	log := b.logger.With(slog.String("run_id", summary.RunID))
	log.Info("batch started", slog.Int("niches", len(niches)))

	for i, niche := range niches {
		if i > 0 && b.delay > 0 {
			if err := b.sleep(ctx, b.delay); err != nil {
				b.abandon(summary, niches[i:], err)
				break
			}
		}
		if err := ctx.Err(); err != nil {
			b.abandon(summary, niches[i:], err)
			break
		}

		result := b.runOne(ctx, niche, summary.RunID)
		summary.Results = append(summary.Results, result)

		log.Info("niche finished",
			slog.Int("index", i+1),
			slog.Int("total", len(niches)),
			slog.String("niche", niche.Name),
			slog.String("status", string(result.Status)),
			slog.Int("products", len(result.Products)),
		)
	}

	summary.DuplicateIdentifiers = duplicateIdentifiers(summary.Results)

	log.Info("batch complete",
		slog.Int("succeeded", len(summary.Succeeded())),
		slog.Int("failed", len(summary.Failed())),
		slog.Int("duplicate_identifiers", len(summary.DuplicateIdentifiers)),
	)
	for _, id := range summary.DuplicateIDs() {
		log.Warn("identifier published in several niches",
			slog.String("identifier", id),
			slog.Any("niches", summary.DuplicateIdentifiers[id]),
		)
	}

	return summary
}

func (b *BatchRunner) runOne(ctx context.Context, niche domain.Niche, runID string) (result domain.NicheResult) {
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("niche panicked", slog.String("niche", niche.Name), slog.Any("panic", r))
			result = domain.NicheResult{
				Niche:    niche,
				Status:   domain.NicheFailed,
				Products: []domain.EnrichedProduct{},
				Error:    fmt.Sprintf("panic: %v", r),
				Duration: time.Since(start),
			}
		}
	}()

	res, err := b.processor.Process(ctx, niche, runID)
	if err != nil || res == nil {
		if err == nil {
			err = domain.ErrEmptyResult
		}
		b.logger.Error("niche failed", slog.String("niche", niche.Name), logger.Err(err))
		return domain.NicheResult{
			Niche:    niche,
			Status:   domain.NicheFailed,
			Products: []domain.EnrichedProduct{},
			Error:    err.Error(),
			Duration: time.Since(start),
		}
	}
	return *res
}

func (b *BatchRunner) abandon(summary *domain.BatchSummary, rest []domain.Niche, err error) {
	b.logger.Warn("batch interrupted", slog.Int("skipped", len(rest)), logger.Err(err))
	for _, niche := range rest {
		summary.Results = append(summary.Results, domain.NicheResult{
			Niche:    niche,
			Status:   domain.NicheFailed,
			Products: []domain.EnrichedProduct{},
			Error:    err.Error(),
		})
	}
}

// duplicateIdentifiers maps each identifier published by more than one niche to those niches' slugs
func duplicateIdentifiers(results []domain.NicheResult) map[string][]string {
	seen := make(map[string][]string)
	for _, r := range results {
		slug := r.Niche.Slug()
		for _, p := range r.Products {
			slugs := seen[p.Identifier]
			if len(slugs) > 0 && slugs[len(slugs)-1] == slug {
				continue
			}
			seen[p.Identifier] = append(slugs, slug)
		}
	}

	dups := make(map[string][]string)
	for id, slugs := range seen {
		if len(slugs) > 1 {
			dups[id] = slugs
		}
	}
	return dups
}
