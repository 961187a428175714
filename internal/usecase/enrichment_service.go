package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/nichegen/pipeline/internal/domain"
	"github.com/nichegen/pipeline/internal/logger"
)

// Enrichment defaults
const (
	DefaultEnrichDelay    = 500 * time.Millisecond
	DefaultDetailCacheTTL = 720 * time.Hour
	DefaultProductBaseURL = "https://www.amazon.com/dp/"

	synthesizedParts = 3
)

// EnrichmentConfig holds configuration for the enrichment service
type EnrichmentConfig struct {
	TopN           int
	Delay          time.Duration
	CacheTTL       time.Duration
	AffiliateTag   string
	ProductBaseURL string
	// Sleep waits between detail lookups. Tests replace it to avoid real delays.
	Sleep func(ctx context.Context, d time.Duration) error
}

// EnrichmentService backfills shortlisted candidates with detail lookups
type EnrichmentService struct {
	api        domain.ProductAPI
	cache      domain.CacheRepository
	normalizer *Normalizer
	topN       int
	delay      time.Duration
	cacheTTL   time.Duration
	tag        string
	baseURL    string
	sleep      func(ctx context.Context, d time.Duration) error
	logger     *slog.Logger
}

// NewEnrichmentService creates a new enrichment service. cache may be nil.
func NewEnrichmentService(
	api domain.ProductAPI,
	cache domain.CacheRepository,
	config EnrichmentConfig,
	logger *slog.Logger,
) *EnrichmentService {
	topN := config.TopN
	if topN <= 0 {
		topN = DefaultTopN
	}

	delay := config.Delay
	if delay < 0 {
		delay = 0
	}

	cacheTTL := config.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = DefaultDetailCacheTTL
	}

	baseURL := config.ProductBaseURL
	if baseURL == "" {
		baseURL = DefaultProductBaseURL
	}

	sleep := config.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &EnrichmentService{
		api:        api,
		cache:      cache,
		normalizer: NewNormalizer(),
		topN:       topN,
		delay:      delay,
		cacheTTL:   cacheTTL,
		tag:        strings.TrimSpace(config.AffiliateTag),
		baseURL:    baseURL,
		sleep:      sleep,
		logger:     logger.With(slog.String("component", "enricher")),
	}
}

// EnrichAll enriches candidates one at a time, waiting Delay between lookups,
// and stops once TopN products have been accepted. Candidates that fail are
// logged and skipped.
func (s *EnrichmentService) EnrichAll(ctx context.Context, candidates []domain.FilteredCandidate) []domain.EnrichedProduct {
	out := make([]domain.EnrichedProduct, 0, s.topN)

	for i, c := range candidates {
		if len(out) >= s.topN {
			break
		}
		if i > 0 && s.delay > 0 {
			if err := s.sleep(ctx, s.delay); err != nil {
				s.logger.Warn("enrichment interrupted", logger.Err(err))
				break
			}
		}
		if ctx.Err() != nil {
			s.logger.Warn("enrichment interrupted", logger.Err(ctx.Err()))
			break
		}

		product, err := s.Enrich(ctx, c)
		if err != nil {
			s.logger.Warn("candidate dropped",
				slog.String("identifier", c.Identifier),
				slog.String("title", c.Title),
				logger.Err(err),
			)
			continue
		}
		out = append(out, *product)
	}

	s.logger.Info("enrichment complete",
		slog.Int("candidates", len(candidates)),
		slog.Int("accepted", len(out)),
	)
	return out
}

// Enrich looks up the candidate's details and merges them into a publishable product.
// Flow: check cache -> detail lookup -> cache -> merge
func (s *EnrichmentService) Enrich(ctx context.Context, c domain.FilteredCandidate) (*domain.EnrichedProduct, error) {
	if c.Identifier == "" {
		return nil, domain.ErrInvalidRequest
	}

	fields, err := s.lookup(ctx, c.Identifier)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrEnrichmentFailed, c.Identifier, err)
	}

	detail := s.normalizer.Normalize(domain.NewRawCandidate(c.SourceTag, fields))
	return s.merge(c, detail)
}

func (s *EnrichmentService) lookup(ctx context.Context, identifier string) (map[string]any, error) {
	key := detailCacheKey(identifier)

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, key); err == nil {
			if fields, ok := cached.(map[string]any); ok {
				return fields, nil
			}
		} else if !errors.Is(err, domain.ErrCacheMiss) {
			s.logger.Debug("detail cache read failed", slog.String("identifier", identifier), logger.Err(err))
		}
	}

	raw, err := s.api.GetProductDetails(ctx, identifier)
	if err != nil {
		return nil, err
	}
	if raw == nil || len(raw.Fields) == 0 {
		return nil, domain.ErrProductNotFound
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, raw.Fields, s.cacheTTL); err != nil {
			s.logger.Debug("detail cache write failed", slog.String("identifier", identifier), logger.Err(err))
		}
	}
	return raw.Fields, nil
}

func (s *EnrichmentService) merge(c domain.FilteredCandidate, detail domain.NormalizedCandidate) (*domain.EnrichedProduct, error) {
	description := firstNonBlank(detail.Description, c.Description)
	features := detail.Features
	if len(features) == 0 {
		features = c.Features
	}

	if description == "" && len(features) > 0 {
		description = strings.Join(features[:min(len(features), synthesizedParts)], " ")
	}
	if len(features) == 0 && description != "" {
		features = firstSentences(description, synthesizedParts)
	}
	if description == "" || len(features) == 0 {
		return nil, domain.ErrMissingRequiredFields
	}

	title := firstNonBlank(detail.Title, c.Title)
	imageURL := firstNonBlank(detail.ImageURL, c.ImageURL)
	price := firstNonBlank(detail.Price, c.Price)
	if title == "" || imageURL == "" || price == "" {
		return nil, fmt.Errorf("%w: title=%t image=%t price=%t",
			domain.ErrMissingRequiredFields, title != "", imageURL != "", price != "")
	}

	rating := detail.Rating
	if rating == nil {
		rating = c.Rating
	}
	reviews := detail.ReviewCount
	if reviews == nil {
		reviews = c.ReviewCount
	}

	product := &domain.EnrichedProduct{
		Identifier:    c.Identifier,
		Title:         title,
		ImageURL:      imageURL,
		Price:         price,
		OriginalPrice: firstNonBlank(detail.OriginalPrice, c.OriginalPrice),
		Description:   description,
		Features:      features,
		PurchaseURL:   s.purchaseURL(c.Identifier, firstNonBlank(detail.URL, c.URL)),
		IsPremiumTier: c.IsPremiumTier,
		SourceTag:     c.SourceTag,
	}
	if rating != nil {
		product.Rating = *rating
	}
	if reviews != nil {
		product.ReviewCount = *reviews
	}
	if product.Rating == 0 {
		return nil, domain.ErrNoRating
	}
	product.Discount = discountPercent(product.Price, product.OriginalPrice)

	return product, nil
}

// purchaseURL returns the product link with the affiliate tag appended
func (s *EnrichmentService) purchaseURL(identifier, productURL string) string {
	link := productURL
	if link == "" {
		link = s.baseURL + identifier
	}
	if s.tag == "" || strings.Contains(link, "tag=") {
		return link
	}

	sep := "?"
	if strings.Contains(link, "?") {
		sep = "&"
	}
	return link + sep + "tag=" + s.tag
}

// discountPercent is the rounded percent saved against the original price, or 0
func discountPercent(price, original string) int {
	p, ok := parsePriceAmount(price)
	if !ok || p <= 0 {
		return 0
	}
	o, ok := parsePriceAmount(original)
	if !ok || o <= p {
		return 0
	}
	return int(math.Round((o - p) / o * 100))
}

func detailCacheKey(identifier string) string {
	return "product:" + strings.ToUpper(identifier)
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
