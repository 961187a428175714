// Package marketplace scrapes marketplace search result pages for candidate products.
package marketplace

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/nichegen/pipeline/internal/domain"
	"golang.org/x/time/rate"
)

// SourceName tags candidates that came from the listing scraper
const SourceName = "marketplace"

const (
	searchCardSelector     = "div.s-main-slot div[data-component-type='s-search-result']"
	bestsellerCardSelector = "#gridItemRoot"
)

var defaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.3 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
}

// Config holds scraper settings
type Config struct {
	BaseURL           string
	Timeout           time.Duration
	MaxResults        int
	Skip              bool
	RequestsPerMinute int
	UserAgents        []string
}

// Scraper fetches a marketplace search page and extracts one record per result card.
type Scraper struct {
	client     *http.Client
	baseURL    string
	maxResults int
	skip       bool
	limiter    *rate.Limiter
	userAgents []string
	nextAgent  atomic.Uint64
	logger     *slog.Logger
}

// NewScraper creates a listing scraper
func NewScraper(cfg Config, logger *slog.Logger) *Scraper {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 20
	}
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = 20
	}
	if len(cfg.UserAgents) == 0 {
		cfg.UserAgents = defaultUserAgents
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Scraper{
		client:     &http.Client{Timeout: cfg.Timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		maxResults: cfg.MaxResults,
		skip:       cfg.Skip,
		limiter:    rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 1),
		userAgents: cfg.UserAgents,
		logger:     logger.With(slog.String("component", SourceName)),
	}
}

// Name implements domain.SourceAdapter
func (s *Scraper) Name() string {
	return SourceName
}

// Fetch implements domain.SourceAdapter
func (s *Scraper) Fetch(ctx context.Context, niche string) ([]domain.RawCandidate, error) {
	if s.skip {
		return nil, domain.NewSourceError(SourceName, "fetch", domain.ErrScrapingDisabled)
	}

	keyword := strings.TrimSpace(niche)
	if keyword == "" {
		return nil, domain.NewSourceError(SourceName, "fetch", domain.ErrInvalidRequest)
	}

	doc, err := s.load(ctx, keyword)
	if err != nil {
		return nil, domain.NewSourceError(SourceName, "fetch", err)
	}

	candidates := s.parseSearchResults(doc)
	if len(candidates) == 0 {
		candidates = s.parseBestsellerGrid(doc)
	}
	if len(candidates) == 0 {
		return nil, domain.NewSourceError(SourceName, "parse", domain.ErrMarkupChanged)
	}

	s.logger.Info("listing scraped", slog.String("keyword", keyword), slog.Int("count", len(candidates)))
	return candidates, nil
}

func (s *Scraper) load(ctx context.Context, keyword string) (*goquery.Document, error) {
	params := url.Values{}
	params.Set("k", keyword)
	endpoint := s.baseURL + "/s?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", s.userAgent())
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d when scraping %s", domain.ErrSourceUnavailable, resp.StatusCode, endpoint)
	}

	return goquery.NewDocumentFromReader(resp.Body)
}

func (s *Scraper) userAgent() string {
	n := s.nextAgent.Add(1) - 1
	return s.userAgents[n%uint64(len(s.userAgents))]
}

// parseSearchResults reads the standard search result cards
func (s *Scraper) parseSearchResults(doc *goquery.Document) []domain.RawCandidate {
	var out []domain.RawCandidate
	doc.Find(searchCardSelector).EachWithBreak(func(_ int, card *goquery.Selection) bool {
		title := strings.TrimSpace(card.Find("h2 span").First().Text())
		asin := strings.TrimSpace(card.AttrOr("data-asin", ""))
		if title == "" || asin == "" {
			return true
		}

		fields := map[string]any{
			"asin":  asin,
			"title": title,
		}
		setIf(fields, "image_url", card.Find("img.s-image").AttrOr("src", ""))
		setIf(fields, "price", firstNonEmpty(
			card.Find("span.a-price span.a-offscreen").First().Text(),
			card.Find("span.a-price-whole").First().Text(),
		))
		setIf(fields, "original_price", card.Find("span.a-price.a-text-price span.a-offscreen").First().Text())
		setIf(fields, "rating", card.Find("span.a-icon-alt").First().Text())
		setIf(fields, "reviews", firstNonEmpty(
			card.Find("span[aria-label$='ratings']").First().AttrOr("aria-label", ""),
			card.Find("span[aria-label$='rating']").First().AttrOr("aria-label", ""),
			card.Find("span.a-size-base.s-underline-text").First().Text(),
		))
		setIf(fields, "product_url", s.absolute(card.Find("h2 a").AttrOr("href", "")))

		out = append(out, domain.NewRawCandidate(SourceName, fields))
		return len(out) < s.maxResults
	})
	return out
}

// parseBestsellerGrid reads best-seller list pages, which some searches redirect to
func (s *Scraper) parseBestsellerGrid(doc *goquery.Document) []domain.RawCandidate {
	var out []domain.RawCandidate
	doc.Find(bestsellerCardSelector).EachWithBreak(func(_ int, card *goquery.Selection) bool {
		inner := card.Find("div[data-asin]").First()
		asin := strings.TrimSpace(inner.AttrOr("data-asin", ""))
		img := card.Find("img").First()
		title := firstNonEmpty(
			card.Find("div[class*='line-clamp']").First().Text(),
			img.AttrOr("alt", ""),
		)
		if title == "" || asin == "" {
			return true
		}

		fields := map[string]any{
			"asin":  asin,
			"title": title,
		}
		setIf(fields, "image_url", img.AttrOr("src", ""))
		setIf(fields, "price", card.Find("span[class*='p13n-sc-price']").First().Text())
		setIf(fields, "rating", card.Find("span.a-icon-alt").First().Text())
		setIf(fields, "reviews", card.Find("a.a-link-normal span.a-size-small").First().Text())
		setIf(fields, "product_url", s.absolute(card.Find("a.a-link-normal").First().AttrOr("href", "")))

		out = append(out, domain.NewRawCandidate(SourceName, fields))
		return len(out) < s.maxResults
	})
	return out
}

func (s *Scraper) absolute(link string) string {
	link = strings.TrimSpace(link)
	if link == "" || strings.HasPrefix(link, "http") {
		return link
	}
	if !strings.HasPrefix(link, "/") {
		link = "/" + link
	}
	return s.baseURL + link
}

func setIf(fields map[string]any, key, value string) {
	if v := strings.TrimSpace(value); v != "" {
		fields[key] = v
	}
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
