package usecase

import (
	"log/slog"
	"math"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/nichegen/pipeline/internal/domain"
)

// Ranking defaults
const (
	DefaultMinRating   = 3.5
	DefaultTopN        = 10
	DefaultEnrichExtra = 2
)

// defaultPremiumBrands is used when no brand list is configured
var defaultPremiumBrands = []string{
	"Apple", "Sony", "Bose", "Sennheiser", "Bang & Olufsen", "Shure",
	"Razer", "Logitech", "Samsung", "JBL", "Beats",
}

var parentheticalRe = regexp.MustCompile(`\([^)]*\)`)

// RankingConfig holds configuration for the ranking service
type RankingConfig struct {
	MinRating     float64
	TopN          int
	EnrichExtra   int
	PremiumBrands []string
	// NicheBrands adds premium brands for specific niches, keyed by niche slug
	NicheBrands        map[string][]string
	EnableDebugLogging bool
}

// RankingService filters normalized candidates down to a ranked shortlist
type RankingService struct {
	minRating          float64
	topN               int
	enrichExtra        int
	premiumBrands      []string
	nicheBrands        map[string][]string
	enableDebugLogging bool
	logger             *slog.Logger
}

// NewRankingService creates a new ranking service with the given configuration
func NewRankingService(config RankingConfig, logger *slog.Logger) *RankingService {
	minRating := config.MinRating
	if minRating <= 0 {
		minRating = DefaultMinRating
	}

	topN := config.TopN
	if topN <= 0 {
		topN = DefaultTopN
	}

	extra := config.EnrichExtra
	if extra < 0 {
		extra = 0
	}

	brands := config.PremiumBrands
	if len(brands) == 0 {
		brands = defaultPremiumBrands
	}

	nicheBrands := make(map[string][]string, len(config.NicheBrands))
	for niche, list := range config.NicheBrands {
		nicheBrands[domain.Slugify(niche)] = lowerAll(list)
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &RankingService{
		minRating:          minRating,
		topN:               topN,
		enrichExtra:        extra,
		premiumBrands:      lowerAll(brands),
		nicheBrands:        nicheBrands,
		enableDebugLogging: config.EnableDebugLogging,
		logger:             logger.With(slog.String("component", "ranking")),
	}
}

// TopN is the number of products a niche publishes
func (s *RankingService) TopN() int {
	return s.topN
}

// FilterAndRank returns at most TopN candidates, best first, using the base brand list
func (s *RankingService) FilterAndRank(candidates []domain.NormalizedCandidate) []domain.FilteredCandidate {
	return s.rank(candidates, s.topN, s.premiumBrands)
}

// Shortlist ranks like FilterAndRank but keeps EnrichExtra spares beyond TopN so
// that products dropped during enrichment can be replaced. Brands registered for
// the niche count as premium too.
func (s *RankingService) Shortlist(niche domain.Niche, candidates []domain.NormalizedCandidate) []domain.FilteredCandidate {
	brands := s.premiumBrands
	if extra := s.nicheBrands[niche.Slug()]; len(extra) > 0 {
		brands = append(append([]string{}, brands...), extra...)
	}
	return s.rank(candidates, s.topN+s.enrichExtra, brands)
}

func (s *RankingService) rank(candidates []domain.NormalizedCandidate, limit int, brands []string) []domain.FilteredCandidate {
	seenIDs := make(map[string]bool, len(candidates))
	seenTitles := make(map[string]bool, len(candidates))
	kept := make([]domain.FilteredCandidate, 0, len(candidates))

	var noTitle, noID, dupID, dupTitle, lowRating int
	for _, c := range candidates {
		if strings.TrimSpace(c.Title) == "" {
			noTitle++
			continue
		}
		if strings.TrimSpace(c.Identifier) == "" {
			noID++
			continue
		}
		if seenIDs[c.Identifier] {
			dupID++
			continue
		}
		seenIDs[c.Identifier] = true

		key := TitleKey(c.Title)
		if seenTitles[key] {
			dupTitle++
			continue
		}
		seenTitles[key] = true

		if c.RatingOrZero() < s.minRating {
			lowRating++
			continue
		}

		kept = append(kept, domain.FilteredCandidate{
			NormalizedCandidate: c,
			IsPremiumTier:       matchesBrand(c.Title, brands),
		})
	}

	sort.SliceStable(kept, func(i, j int) bool {
		a, b := kept[i], kept[j]
		if a.IsPremiumTier != b.IsPremiumTier {
			return a.IsPremiumTier
		}
		if ra, rb := ratingKey(a.RatingOrZero()), ratingKey(b.RatingOrZero()); ra != rb {
			return ra > rb
		}
		return a.ReviewCountOrZero() > b.ReviewCountOrZero()
	})

	if len(kept) > limit {
		kept = kept[:limit]
	}

	if s.enableDebugLogging {
		s.logger.Debug("ranked candidates",
			slog.Int("input", len(candidates)),
			slog.Int("kept", len(kept)),
			slog.Int("no_title", noTitle),
			slog.Int("no_identifier", noID),
			slog.Int("duplicate_identifier", dupID),
			slog.Int("duplicate_title", dupTitle),
			slog.Int("low_rating", lowRating),
		)
	}

	return kept
}

// TitleKey is the form two titles must share to count as the same product:
// lowercased, NFC, parenthetical qualifiers removed, whitespace collapsed.
// Bare variant words ("Black", "Silver") are significant.
func TitleKey(title string) string {
	key := norm.NFC.String(strings.ToLower(title))
	key = parentheticalRe.ReplaceAllString(key, " ")
	return collapseWhitespace(key)
}

// ratingKey compares ratings at one-decimal precision. Buckets are fixed, so
// 4.44 and 4.46 differ even though they are within 0.1 of each other.
func ratingKey(r float64) int {
	return int(math.Round(r * 10))
}

func matchesBrand(title string, brands []string) bool {
	lower := strings.ToLower(title)
	for _, b := range brands {
		if b != "" && strings.Contains(lower, b) {
			return true
		}
	}
	return false
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}
