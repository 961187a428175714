package providers

import (
	"log/slog"

	"github.com/samber/do/v2"

	"github.com/nichegen/pipeline/config"
	"github.com/nichegen/pipeline/internal/domain"
	"github.com/nichegen/pipeline/internal/infrastructure/marketplace"
	"github.com/nichegen/pipeline/internal/infrastructure/productapi"
	"github.com/nichegen/pipeline/internal/infrastructure/snapshot"
	"github.com/nichegen/pipeline/internal/infrastructure/trends"
	"github.com/nichegen/pipeline/internal/usecase"
)

// ProvideAggregator provides the aggregator: trend feed and marketplace as
// primaries, the product API as fallback.
func ProvideAggregator(i do.Injector) (*usecase.Aggregator, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*slog.Logger](i)

	primaries := []domain.SourceAdapter{
		do.MustInvoke[*trends.FeedSource](i),
		do.MustInvoke[*marketplace.Scraper](i),
	}
	fallback := do.MustInvoke[*productapi.Client](i)

	return usecase.NewAggregator(primaries, fallback, usecase.AggregatorConfig{
		MinGatherFloor: cfg.Pipeline.MinGatherFloor,
		SourceTimeout:  cfg.Sources.Timeout,
	}, log), nil
}

// ProvideRankingService provides the filter and rank engine.
func ProvideRankingService(i do.Injector) (*usecase.RankingService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*slog.Logger](i)

	return usecase.NewRankingService(usecase.RankingConfig{
		MinRating:          cfg.Pipeline.MinRating,
		TopN:               cfg.Pipeline.TopN,
		EnrichExtra:        cfg.Pipeline.EnrichExtra,
		PremiumBrands:      cfg.Pipeline.PremiumBrands,
		NicheBrands:        cfg.Pipeline.NicheBrands,
		EnableDebugLogging: cfg.Log.Level == "debug",
	}, log), nil
}

// ProvideEnrichmentService provides the detail enricher.
func ProvideEnrichmentService(i do.Injector) (*usecase.EnrichmentService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*slog.Logger](i)
	api := do.MustInvoke[*productapi.Client](i)
	cache := do.MustInvoke[*CacheHandle](i)

	return usecase.NewEnrichmentService(api, cache, usecase.EnrichmentConfig{
		TopN:           cfg.Pipeline.TopN,
		Delay:          cfg.Pipeline.EnrichDelay,
		CacheTTL:       cfg.Cache.TTL,
		AffiliateTag:   cfg.Affiliate.Tag,
		ProductBaseURL: cfg.Affiliate.ProductBaseURL,
	}, log), nil
}

// ProvidePipelineService provides the per-niche pipeline.
func ProvidePipelineService(i do.Injector) (*usecase.PipelineService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*slog.Logger](i)

	return usecase.NewPipelineService(
		usecase.NewQueryBuilder(cfg.Log.Level == "debug", log),
		do.MustInvoke[*usecase.Aggregator](i),
		do.MustInvoke[*usecase.RankingService](i),
		do.MustInvoke[*usecase.EnrichmentService](i),
		do.MustInvoke[*snapshot.FileStore](i),
		log,
	), nil
}

// ProvideBatchRunner provides the batch driver.
func ProvideBatchRunner(i do.Injector) (*usecase.BatchRunner, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*slog.Logger](i)

	delay := cfg.Pipeline.NicheDelay
	if delay == 0 {
		delay = -1
	}

	return usecase.NewBatchRunner(do.MustInvoke[*usecase.PipelineService](i), usecase.BatchConfig{
		NicheDelay: delay,
	}, log), nil
}
