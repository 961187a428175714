package productapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/nichegen/pipeline/internal/domain"
	"golang.org/x/time/rate"
)

// SourceName tags candidates that came from the structured product API
const SourceName = "productapi"

// maxBodyLogBytes bounds how much of an error body ends up in logs
const maxBodyLogBytes = 512

// maxBodyBytes bounds how much of a response body is read at all
const maxBodyBytes = 8 << 20

// ClientConfig holds the settings for the structured product API client
type ClientConfig struct {
	APIKey            string
	Host              string
	BaseURL           string
	Domain            string
	Timeout           time.Duration
	MaxRetries        int
	RetryDelay        time.Duration
	RequestsPerSecond float64
	Burst             int
	SearchLimit       int
}

// Client handles communication with a RapidAPI-style product search API
type Client struct {
	httpClient  *http.Client
	apiKey      string
	host        string
	baseURL     string
	domain      string
	maxRetries  int
	retryDelay  time.Duration
	searchLimit int
	rateLimiter *rate.Limiter
	logger      *slog.Logger
	debug       bool
}

// NewClient creates a new product API client
func NewClient(cfg ClientConfig, logger *slog.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 2
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	if cfg.Domain == "" {
		cfg.Domain = "US"
	}
	if cfg.SearchLimit <= 0 {
		cfg.SearchLimit = 20
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BaseURL == "" && cfg.Host != "" {
		cfg.BaseURL = "https://" + cfg.Host
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		apiKey:      cfg.APIKey,
		host:        cfg.Host,
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		domain:      cfg.Domain,
		maxRetries:  cfg.MaxRetries,
		retryDelay:  cfg.RetryDelay,
		searchLimit: cfg.SearchLimit,
		rateLimiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		logger:      logger.With(slog.String("component", SourceName)),
	}
}

// SetDebug enables or disables verbose request logging
func (c *Client) SetDebug(debug bool) {
	c.debug = debug
}

func (c *Client) debugLog(msg string, args ...any) {
	if c.debug {
		c.logger.Debug(msg, args...)
	}
}

// Name implements domain.SourceAdapter
func (c *Client) Name() string {
	return SourceName
}

// Fetch implements domain.SourceAdapter as a bulk search. An empty result is
// not an error for the aggregator.
func (c *Client) Fetch(ctx context.Context, niche string) ([]domain.RawCandidate, error) {
	candidates, err := c.SearchProducts(ctx, niche)
	if errors.Is(err, domain.ErrProductNotFound) {
		return []domain.RawCandidate{}, nil
	}
	if err != nil {
		return nil, domain.NewSourceError(SourceName, "fetch", err)
	}
	return candidates, nil
}

// SearchProducts runs a keyword search and returns one raw candidate per product
func (c *Client) SearchProducts(ctx context.Context, query string) ([]domain.RawCandidate, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: empty search query", domain.ErrInvalidRequest)
	}
	c.logger.Info("searching products", slog.String("query", query))

	params := url.Values{}
	params.Set("q", query)
	params.Set("domain", c.domain)
	params.Set("limit", strconv.Itoa(c.searchLimit))

	body, err := c.get(ctx, "search", params)
	if err != nil {
		return nil, err
	}

	products, err := decodeSearchPayload(body)
	if err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(products) == 0 {
		c.logger.Info("no products found", slog.String("query", query))
		return nil, domain.ErrProductNotFound
	}

	candidates := toCandidates(products)
	c.logger.Info("search complete", slog.String("query", query), slog.Int("count", len(candidates)))
	return candidates, nil
}

// GetProductDetails retrieves the full record for one identifier
func (c *Client) GetProductDetails(ctx context.Context, identifier string) (*domain.RawCandidate, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, fmt.Errorf("%w: empty identifier", domain.ErrInvalidRequest)
	}
	c.debugLog("fetching details", slog.String("identifier", identifier))

	params := url.Values{}
	params.Set("asin", identifier)
	params.Set("domain", c.domain)

	body, err := c.get(ctx, "product", params)
	if err != nil {
		return nil, err
	}

	fields, err := decodeDetailPayload(body)
	if err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(fields) == 0 {
		return nil, domain.ErrProductNotFound
	}

	candidate := domain.NewRawCandidate(SourceName, fields)
	return &candidate, nil
}

// get performs a GET with rate limiting and retries. Network errors, 429 and
// 5xx are retried with exponential backoff; other statuses fail immediately.
func (c *Client) get(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	reqURL := fmt.Sprintf("%s/%s?%s", c.baseURL, endpoint, params.Encode())

	var lastErr error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		if attempt > 1 {
			if err := sleepContext(ctx, exponentialBackoff(c.retryDelay, attempt-1)); err != nil {
				return nil, err
			}
		}

		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter error: %w", err)
		}

		resp, err := c.doRequest(ctx, reqURL)
		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			c.logger.Warn("request failed",
				slog.String("endpoint", endpoint),
				slog.Int("attempt", attempt),
				slog.String("error", err.Error()))
			lastErr = err
			continue
		}

		body, readErr := readLimitedBody(resp.Body, maxBodyBytes)
		resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusOK:
			if readErr != nil {
				return nil, fmt.Errorf("%w: reading body: %v", domain.ErrAPIFailure, readErr)
			}
			c.debugLog("request succeeded", slog.String("endpoint", endpoint), slog.Int("bytes", len(body)))
			return body, nil

		case resp.StatusCode == http.StatusNotFound:
			return nil, domain.ErrProductNotFound

		case resp.StatusCode == http.StatusTooManyRequests:
			lastErr = fmt.Errorf("%w: status %d", domain.ErrRateLimited, resp.StatusCode)

		case resp.StatusCode >= 500:
			lastErr = fmt.Errorf("%w: status %d", domain.ErrAPIFailure, resp.StatusCode)

		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			return nil, fmt.Errorf("%w: status %d (check API key)", domain.ErrAPIFailure, resp.StatusCode)

		default:
			return nil, fmt.Errorf("%w: status %d", domain.ErrInvalidRequest, resp.StatusCode)
		}

		c.logger.Warn("retryable API status",
			slog.String("endpoint", endpoint),
			slog.Int("attempt", attempt),
			slog.Int("status", resp.StatusCode),
			slog.String("body", truncate(string(body), maxBodyLogBytes)))
	}

	c.logger.Error("all retries failed", slog.String("endpoint", endpoint), slog.Int("attempts", c.maxRetries))
	return nil, lastErr
}

// doRequest executes an HTTP GET request with the API headers set
func (c *Client) doRequest(ctx context.Context, reqURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-RapidAPI-Key", c.apiKey)
	req.Header.Set("X-RapidAPI-Host", c.host)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "nichegen/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrAPIFailure, err)
	}

	return resp, nil
}

// exponentialBackoff returns base, 2*base, 4*base... for retry 1, 2, 3...
func exponentialBackoff(base time.Duration, retry int) time.Duration {
	if retry < 1 {
		retry = 1
	}
	return base * time.Duration(1<<(retry-1))
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// readLimitedBody reads at most limit bytes from r
func readLimitedBody(r io.Reader, limit int64) ([]byte, error) {
	return io.ReadAll(io.LimitReader(r, limit))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
