package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrProductNotFound is returned when the product API has no record for a query or identifier
	ErrProductNotFound = errors.New("product not found")

	// ErrAPIFailure is returned when the structured product API request fails
	ErrAPIFailure = errors.New("product API request failed")

	// ErrRateLimited is returned when an upstream rejects us with 429
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrCacheMiss is returned when data is not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrScrapingDisabled is returned by the listing scraper when scraping is switched off
	ErrScrapingDisabled = errors.New("scraping disabled")

	// ErrSourceUnavailable is returned when a source answers with a non-success status
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrMarkupChanged is returned when a scraped page parses but no product card matches
	ErrMarkupChanged = errors.New("listing markup not recognized")

	// ErrEnrichmentFailed is returned when the detail lookup for a candidate fails
	ErrEnrichmentFailed = errors.New("detail lookup failed")

	// ErrMissingRequiredFields is returned when a candidate still lacks title, image, price or description after enrichment
	ErrMissingRequiredFields = errors.New("required fields missing after enrichment")

	// ErrNoRating is returned when enrichment never found a real rating
	ErrNoRating = errors.New("no rating found")

	// ErrEmptyResult is returned when no candidate survived enrichment for a niche
	ErrEmptyResult = errors.New("no products survived enrichment")

	// ErrSnapshotNotFound is returned when no snapshot exists for a niche slug
	ErrSnapshotNotFound = errors.New("snapshot not found")
)

// SourceError wraps an adapter failure with the source and operation it came from.
type SourceError struct {
	Source string // "trends", "marketplace", "productapi"
	Op     string // "fetch", "search", "details"
	Err    error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Source, e.Op, e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

// NewSourceError creates a SourceError
func NewSourceError(source, op string, err error) error {
	return &SourceError{Source: source, Op: op, Err: err}
}
