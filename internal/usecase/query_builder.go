package usecase

import (
	"log/slog"
	"regexp"
	"strings"
)

// QueryBuilder turns a niche keyword into the search phrase sent to sources
type QueryBuilder struct {
	enableDebugLogging bool
	logger             *slog.Logger
}

var (
	// Matches years like "2024" or "(2025)"
	yearPattern = regexp.MustCompile(`\(?\b(19|20)\d{2}\b\)?`)

	// Matches ordinal list framing like "top 10", "best 5"
	listCountPattern = regexp.MustCompile(`\b(top|best)\s+\d+\b`)

	orphanedPunctuation  = regexp.MustCompile(`\s+[,\-;:|]+\s+`)
	trailingPunctuation  = regexp.MustCompile(`[,\-;:|]+\s*$`)
	leadingPunctuation   = regexp.MustCompile(`^\s*[,\-;:|]+`)
	queryWhitespaceRegex = regexp.MustCompile(`\s+`)
)

// queryNoiseWords are editorial terms that narrow marketplace search results for no benefit
var queryNoiseWords = map[string]bool{
	"best":         true,
	"top":          true,
	"rated":        true,
	"top-rated":    true,
	"best-selling": true,
	"bestselling":  true,
	"review":       true,
	"reviews":      true,
	"reviewed":     true,
	"cheap":        true,
	"affordable":   true,
	"budget":       true,
	"deal":         true,
	"deals":        true,
	"buy":          true,
	"guide":        true,
	"ultimate":     true,
	"popular":      true,
	"trending":     true,
	"latest":       true,
	"new":          true,
}

// NewQueryBuilder creates a new query builder
func NewQueryBuilder(enableDebugLogging bool, logger *slog.Logger) *QueryBuilder {
	if logger == nil {
		logger = slog.Default()
	}
	return &QueryBuilder{
		enableDebugLogging: enableDebugLogging,
		logger:             logger.With(slog.String("component", "query")),
	}
}

// Build strips years, list framing and editorial noise from a keyword.
// When nothing useful is left the trimmed, lowercased keyword is returned.
func (b *QueryBuilder) Build(keyword string) string {
	original := strings.TrimSpace(keyword)
	if original == "" {
		return ""
	}

	cleaned := strings.ToLower(original)
	cleaned = listCountPattern.ReplaceAllString(cleaned, " ")
	cleaned = yearPattern.ReplaceAllString(cleaned, " ")
	cleaned = removeNoiseWords(cleaned)
	cleaned = cleanOrphanedPunctuation(cleaned)
	cleaned = strings.TrimSpace(queryWhitespaceRegex.ReplaceAllString(cleaned, " "))

	if cleaned == "" {
		cleaned = strings.ToLower(queryWhitespaceRegex.ReplaceAllString(original, " "))
	}

	if b.enableDebugLogging {
		b.logger.Debug("built query", slog.String("input", original), slog.String("output", cleaned))
	}

	return cleaned
}

// removeNoiseWords drops editorial terms, keeping the remaining words in order
func removeNoiseWords(s string) string {
	words := strings.Fields(s)
	kept := make([]string, 0, len(words))

	for _, word := range words {
		cleanWord := strings.Trim(word, ",.!?;:'\"")
		if !queryNoiseWords[cleanWord] {
			kept = append(kept, word)
		}
	}

	return strings.Join(kept, " ")
}

// cleanOrphanedPunctuation removes punctuation left alone after word removal
func cleanOrphanedPunctuation(s string) string {
	result := orphanedPunctuation.ReplaceAllString(s, " ")
	result = trailingPunctuation.ReplaceAllString(result, "")
	return leadingPunctuation.ReplaceAllString(result, "")
}
