package usecase

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nichegen/pipeline/internal/domain"
)

// DefaultMinGatherFloor is the candidate count below which the fallback source is consulted
const DefaultMinGatherFloor = 8

// AggregatorConfig holds configuration for the aggregator
type AggregatorConfig struct {
	MinGatherFloor int
	SourceTimeout  time.Duration
}

// GatherResult is the union of everything the sources returned for one niche
type GatherResult struct {
	Candidates   []domain.RawCandidate
	Sources      []domain.SourceReport
	FallbackUsed bool
}

// Aggregator fans a niche out to the primary sources and, when they come back
// thin, to the fallback.
type Aggregator struct {
	primaries []domain.SourceAdapter
	fallback  domain.SourceAdapter
	floor     int
	timeout   time.Duration
	logger    *slog.Logger
}

// NewAggregator creates an aggregator. Primaries keep their order in the
// output regardless of which finishes first. fallback may be nil.
func NewAggregator(
	primaries []domain.SourceAdapter,
	fallback domain.SourceAdapter,
	config AggregatorConfig,
	logger *slog.Logger,
) *Aggregator {
	floor := config.MinGatherFloor
	if floor <= 0 {
		floor = DefaultMinGatherFloor
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Aggregator{
		primaries: primaries,
		fallback:  fallback,
		floor:     floor,
		timeout:   config.SourceTimeout,
		logger:    logger.With(slog.String("component", "aggregator")),
	}
}

// Gather collects raw candidates for the niche. It does not fail: a source that
// errors contributes nothing and is recorded in Sources.
func (a *Aggregator) Gather(ctx context.Context, niche string) *GatherResult {
	batches := make([][]domain.RawCandidate, len(a.primaries))
	reports := make([]domain.SourceReport, len(a.primaries))

	g, gctx := errgroup.WithContext(ctx)
	for i, src := range a.primaries {
		i, src := i, src
		g.Go(func() error {
			batches[i], reports[i] = FetchSoft(gctx, src, niche, a.timeout, a.logger)
			return nil
		})
	}
	_ = g.Wait()

	result := &GatherResult{
		Candidates: []domain.RawCandidate{},
		Sources:    reports,
	}
	for _, batch := range batches {
		result.Candidates = append(result.Candidates, batch...)
	}

	if len(result.Candidates) < a.floor && a.fallback != nil {
		a.logger.Info("primary sources below floor, using fallback",
			slog.String("niche", niche),
			slog.Int("count", len(result.Candidates)),
			slog.Int("floor", a.floor),
		)
		extra, report := FetchSoft(ctx, a.fallback, niche, a.timeout, a.logger)
		report.Fallback = true
		result.Candidates = append(result.Candidates, extra...)
		result.Sources = append(result.Sources, report)
		result.FallbackUsed = true
	}

	a.logger.Info("gather complete",
		slog.String("niche", niche),
		slog.Int("candidates", len(result.Candidates)),
		slog.Bool("fallback", result.FallbackUsed),
	)
	return result
}
