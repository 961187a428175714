// Package trends reads trend signal feeds (RSS/Atom/JSON) and turns matching items into sparse candidates.
package trends

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/nichegen/pipeline/internal/domain"
)

// SourceName tags candidates that came from a trend feed
const SourceName = "trends"

// QueryPlaceholder in a feed URL is replaced by the escaped niche keyword
const QueryPlaceholder = "{query}"

var identifierInLinkRe = regexp.MustCompile(`/(?:dp|gp/product)/([A-Z0-9]{10})(?:[/?]|$)`)

// FeedSource pulls one or more feeds and keeps the items that mention the niche.
type FeedSource struct {
	client     *http.Client
	feeds      []string
	maxResults int
	logger     *slog.Logger
}

// NewFeedSource creates a trend adapter over the given feed URLs
func NewFeedSource(feeds []string, timeout time.Duration, maxResults int, logger *slog.Logger) *FeedSource {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if maxResults <= 0 {
		maxResults = 20
	}
	if logger == nil {
		logger = slog.Default()
	}

	cleaned := make([]string, 0, len(feeds))
	for _, f := range feeds {
		if f = strings.TrimSpace(f); f != "" {
			cleaned = append(cleaned, f)
		}
	}

	return &FeedSource{
		client:     &http.Client{Timeout: timeout},
		feeds:      cleaned,
		maxResults: maxResults,
		logger:     logger.With(slog.String("component", SourceName)),
	}
}

// ParseFeedList splits a comma separated list of feed URLs
func ParseFeedList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Name implements domain.SourceAdapter
func (f *FeedSource) Name() string {
	return SourceName
}

// Fetch implements domain.SourceAdapter. Feeds with a {query} placeholder are
// treated as searches and trusted as-is; plain feeds are filtered locally by keyword.
func (f *FeedSource) Fetch(ctx context.Context, niche string) ([]domain.RawCandidate, error) {
	if len(f.feeds) == 0 {
		f.logger.Debug("no trend feeds configured")
		return []domain.RawCandidate{}, nil
	}

	keywords := strings.Fields(strings.ToLower(niche))
	parser := gofeed.NewParser()
	out := make([]domain.RawCandidate, 0, f.maxResults)

	var errs []error
	for _, feedURL := range f.feeds {
		if len(out) >= f.maxResults {
			break
		}

		searchable := strings.Contains(feedURL, QueryPlaceholder)
		target := strings.ReplaceAll(feedURL, QueryPlaceholder, url.QueryEscape(strings.TrimSpace(niche)))

		feed, err := f.load(ctx, parser, target)
		if err != nil {
			f.logger.Warn("trend feed failed", slog.String("feed", target), slog.String("error", err.Error()))
			errs = append(errs, err)
			continue
		}

		for _, item := range feed.Items {
			if len(out) >= f.maxResults {
				break
			}
			title := strings.TrimSpace(item.Title)
			if title == "" {
				continue
			}
			if !searchable && !matchesAnyKeyword(strings.ToLower(title), keywords) {
				continue
			}
			out = append(out, domain.NewRawCandidate(SourceName, itemFields(feed, item)))
		}
	}

	if len(out) == 0 && len(errs) == len(f.feeds) {
		return nil, domain.NewSourceError(SourceName, "fetch", errors.Join(errs...))
	}

	f.logger.Info("trend items matched", slog.String("niche", niche), slog.Int("count", len(out)))
	return out, nil
}

func (f *FeedSource) load(ctx context.Context, parser *gofeed.Parser, feedURL string) (*gofeed.Feed, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "nichegen/1.0")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", domain.ErrSourceUnavailable, resp.StatusCode)
	}

	return parser.Parse(resp.Body)
}

func itemFields(feed *gofeed.Feed, item *gofeed.Item) map[string]any {
	fields := map[string]any{
		"title": strings.TrimSpace(item.Title),
		"feed":  strings.TrimSpace(feed.Title),
	}

	link := strings.TrimSpace(item.Link)
	if link != "" {
		fields["link"] = link
		if m := identifierInLinkRe.FindStringSubmatch(link); m != nil {
			fields["asin"] = m[1]
		}
	}
	if item.Image != nil && item.Image.URL != "" {
		fields["image"] = item.Image.URL
	} else {
		for _, enc := range item.Enclosures {
			if strings.HasPrefix(enc.Type, "image/") {
				fields["image"] = enc.URL
				break
			}
		}
	}
	if item.Description != "" {
		fields["description"] = item.Description
	}

	switch {
	case item.PublishedParsed != nil:
		fields["published"] = item.PublishedParsed.UTC().Format(time.RFC3339)
	case item.UpdatedParsed != nil:
		fields["published"] = item.UpdatedParsed.UTC().Format(time.RFC3339)
	}

	return fields
}

func matchesAnyKeyword(text string, keywords []string) bool {
	for _, k := range keywords {
		if len(k) < 3 {
			continue
		}
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}
