// Package di provides dependency injection configuration for nichegen.
package di

import (
	"github.com/samber/do/v2"

	"github.com/nichegen/pipeline/config"
	"github.com/nichegen/pipeline/internal/di/providers"
)

// NewContainer creates and configures the DI container with all providers.
// Configuration is loaded from the environment on first use.
func NewContainer() *do.RootScope {
	injector := do.New()
	do.Provide(injector, providers.ProvideConfig)
	register(injector)
	return injector
}

// NewContainerWithConfig creates a container around an already loaded configuration.
func NewContainerWithConfig(cfg *config.Config) *do.RootScope {
	injector := do.New()
	do.ProvideValue(injector, cfg)
	register(injector)
	return injector
}

func register(injector *do.RootScope) {
	// Core infrastructure
	do.Provide(injector, providers.ProvideLogger)

	// Storage layer
	do.Provide(injector, providers.ProvideDetailCache)
	do.Provide(injector, providers.ProvideSnapshotStore)

	// Sources
	do.Provide(injector, providers.ProvideProductAPI)
	do.Provide(injector, providers.ProvideTrendSource)
	do.Provide(injector, providers.ProvideMarketplaceScraper)

	// Pipeline services
	do.Provide(injector, providers.ProvideAggregator)
	do.Provide(injector, providers.ProvideRankingService)
	do.Provide(injector, providers.ProvideEnrichmentService)
	do.Provide(injector, providers.ProvidePipelineService)
	do.Provide(injector, providers.ProvideBatchRunner)

	// Server
	do.Provide(injector, providers.ProvideHTTPHandler)
	do.Provide(injector, providers.ProvideHTTPServer)
}
