package providers

import (
	"log/slog"

	"github.com/samber/do/v2"

	"github.com/nichegen/pipeline/config"
	"github.com/nichegen/pipeline/internal/infrastructure/marketplace"
	"github.com/nichegen/pipeline/internal/infrastructure/productapi"
	"github.com/nichegen/pipeline/internal/infrastructure/trends"
)

// ProvideProductAPI provides the structured product API client used for bulk
// search fallback and detail enrichment.
func ProvideProductAPI(i do.Injector) (*productapi.Client, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*slog.Logger](i)

	client := productapi.NewClient(productapi.ClientConfig{
		APIKey:            cfg.API.Key,
		Host:              cfg.API.Host,
		BaseURL:           cfg.API.BaseURL,
		Domain:            cfg.API.Domain,
		Timeout:           cfg.API.Timeout,
		MaxRetries:        cfg.API.MaxRetries,
		RetryDelay:        cfg.API.RetryDelay,
		RequestsPerSecond: cfg.API.RequestsPerSecond,
		Burst:             cfg.API.Burst,
		SearchLimit:       cfg.Sources.MaxResults,
	}, log)

	if cfg.App.Environment == "development" {
		client.SetDebug(true)
	}

	log.Info("Product API configured", "base_url", cfg.API.BaseURL, "domain", cfg.API.Domain)
	return client, nil
}

// ProvideTrendSource provides the trend feed adapter.
func ProvideTrendSource(i do.Injector) (*trends.FeedSource, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*slog.Logger](i)

	feeds := trends.ParseFeedList(cfg.Sources.TrendFeedURL)
	if len(feeds) == 0 {
		log.Warn("No trend feed configured; trend source will contribute nothing")
	}
	return trends.NewFeedSource(feeds, cfg.Sources.Timeout, cfg.Sources.MaxResults, log), nil
}

// ProvideMarketplaceScraper provides the marketplace listing adapter.
func ProvideMarketplaceScraper(i do.Injector) (*marketplace.Scraper, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*slog.Logger](i)

	if cfg.Sources.SkipScraping {
		log.Info("Marketplace scraping disabled")
	}
	return marketplace.NewScraper(marketplace.Config{
		BaseURL:    cfg.Sources.MarketplaceURL,
		Timeout:    cfg.Sources.Timeout,
		MaxResults: cfg.Sources.MaxResults,
		Skip:       cfg.Sources.SkipScraping,
	}, log), nil
}
