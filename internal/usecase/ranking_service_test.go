package usecase

import (
	"fmt"
	"testing"

	"github.com/nichegen/pipeline/internal/domain"
	"github.com/nichegen/pipeline/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func candidate(id, title string, rating float64, reviews int) domain.NormalizedCandidate {
	return domain.NormalizedCandidate{
		Identifier:  id,
		Title:       title,
		Rating:      &rating,
		ReviewCount: &reviews,
		Features:    []string{},
	}
}

func identifiers(in []domain.FilteredCandidate) []string {
	out := make([]string, 0, len(in))
	for _, c := range in {
		out = append(out, c.Identifier)
	}
	return out
}

func newTestRanking(config RankingConfig) *RankingService {
	return NewRankingService(config, logger.Discard())
}

func TestNewRankingService(t *testing.T) {
	t.Run("creates service with default values", func(t *testing.T) {
		svc := newTestRanking(RankingConfig{})
		assert.Equal(t, DefaultMinRating, svc.minRating)
		assert.Equal(t, DefaultTopN, svc.TopN())
		assert.Equal(t, 0, svc.enrichExtra)
		assert.Contains(t, svc.premiumBrands, "bang & olufsen")
	})

	t.Run("creates service with custom values", func(t *testing.T) {
		svc := newTestRanking(RankingConfig{
			MinRating:     4.0,
			TopN:          5,
			EnrichExtra:   2,
			PremiumBrands: []string{" Anker "},
			NicheBrands:   map[string][]string{"Gaming Laptops": {"Dell"}},
		})
		assert.Equal(t, 4.0, svc.minRating)
		assert.Equal(t, 5, svc.TopN())
		assert.Equal(t, []string{"anker"}, svc.premiumBrands)
		assert.Equal(t, []string{"dell"}, svc.nicheBrands["gaming-laptops"])
	})
}

func TestRankingService_EndToEndExample(t *testing.T) {
	svc := newTestRanking(RankingConfig{})

	got := svc.FilterAndRank([]domain.NormalizedCandidate{
		candidate("B1", "Sony WH-1000XM5", 4.5, 2000),
		candidate("B1", "Sony WH-1000XM5", 4.5, 2000),
		candidate("B2", "Generic Headphones", 4.8, 2000),
		candidate("B3", "Apple AirPods Pro", 4.5, 3000),
	})

	require.Len(t, got, 3)
	assert.Equal(t, []string{"B3", "B1", "B2"}, identifiers(got))
	assert.True(t, got[0].IsPremiumTier)
	assert.True(t, got[1].IsPremiumTier)
	assert.False(t, got[2].IsPremiumTier)
}

func TestRankingService_DedupByIdentifier(t *testing.T) {
	svc := newTestRanking(RankingConfig{})

	got := svc.FilterAndRank([]domain.NormalizedCandidate{
		candidate("A", "First listing", 4.0, 10),
		candidate("B", "Other thing", 4.0, 5),
		candidate("A", "Second listing", 5.0, 999),
	})

	require.Len(t, got, 2)
	assert.Equal(t, "First listing", got[0].Title)
	assert.Equal(t, "B", got[1].Identifier)
}

func TestRankingService_DedupByTitle(t *testing.T) {
	svc := newTestRanking(RankingConfig{})

	tests := []struct {
		name  string
		input []domain.NormalizedCandidate
		want  []string
	}{
		{
			name: "parenthetical variant collides",
			input: []domain.NormalizedCandidate{
				candidate("A", "X (Black)", 4.0, 1),
				candidate("B", "X", 4.0, 1),
			},
			want: []string{"A"},
		},
		{
			name: "bare colour words are distinct",
			input: []domain.NormalizedCandidate{
				candidate("A", "X Black", 4.0, 1),
				candidate("B", "X Silver", 4.0, 1),
			},
			want: []string{"A", "B"},
		},
		{
			name: "case and whitespace",
			input: []domain.NormalizedCandidate{
				candidate("A", "Echo  Dot", 4.0, 1),
				candidate("B", "echo dot (5th Gen)", 4.0, 1),
			},
			want: []string{"A"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, identifiers(svc.FilterAndRank(tt.input)))
		})
	}
}

func TestRankingService_DropsIncomplete(t *testing.T) {
	svc := newTestRanking(RankingConfig{})

	noRating := candidate("C", "No rating", 0, 0)
	noRating.Rating = nil

	got := svc.FilterAndRank([]domain.NormalizedCandidate{
		candidate("A", "", 4.5, 1),
		candidate("", "No identifier", 4.5, 1),
		noRating,
		candidate("D", "Kept", 4.5, 0),
	})

	assert.Equal(t, []string{"D"}, identifiers(got))
}

func TestRankingService_RatingFloor(t *testing.T) {
	svc := newTestRanking(RankingConfig{})

	got := svc.FilterAndRank([]domain.NormalizedCandidate{
		candidate("low", "Just below", 3.49, 100),
		candidate("edge", "Exactly at floor", 3.5, 100),
		candidate("high", "Above", 4.9, 100),
	})

	assert.Equal(t, []string{"high", "edge"}, identifiers(got))
	for _, c := range got {
		assert.GreaterOrEqual(t, c.RatingOrZero(), 3.5)
	}
}

func TestRankingService_DuplicateBeforeQualityFilter(t *testing.T) {
	svc := newTestRanking(RankingConfig{})

	// the first occurrence wins the identifier even though it is later dropped for rating
	got := svc.FilterAndRank([]domain.NormalizedCandidate{
		candidate("A", "Cheap copy", 2.0, 1),
		candidate("A", "Real product", 4.8, 500),
	})

	assert.Empty(t, got)
}

func TestRankingService_TopNTruncation(t *testing.T) {
	svc := newTestRanking(RankingConfig{})

	var input []domain.NormalizedCandidate
	for i := 0; i < 15; i++ {
		title := fmt.Sprintf("Model %02d", i)
		if i%5 == 0 {
			title = fmt.Sprintf("Bose Model %02d", i)
		}
		input = append(input, candidate(fmt.Sprintf("ID%02d", i), title, 3.5+float64(i%4)*0.4, i*10))
	}

	got := svc.FilterAndRank(input)
	require.Len(t, got, 10)

	assert.True(t, got[0].IsPremiumTier)
	assert.True(t, got[1].IsPremiumTier)
	assert.True(t, got[2].IsPremiumTier)
	for i := 1; i < len(got); i++ {
		prev, cur := got[i-1], got[i]
		if prev.IsPremiumTier != cur.IsPremiumTier {
			assert.True(t, prev.IsPremiumTier)
			continue
		}
		if ratingKey(prev.RatingOrZero()) != ratingKey(cur.RatingOrZero()) {
			assert.Greater(t, prev.RatingOrZero(), cur.RatingOrZero())
			continue
		}
		assert.GreaterOrEqual(t, prev.ReviewCountOrZero(), cur.ReviewCountOrZero())
	}
}

func TestRankingService_RatingTieAtOneDecimal(t *testing.T) {
	svc := newTestRanking(RankingConfig{})

	got := svc.FilterAndRank([]domain.NormalizedCandidate{
		candidate("A", "First", 4.51, 10),
		candidate("B", "Second", 4.49, 900),
	})

	assert.Equal(t, []string{"B", "A"}, identifiers(got))
}

// Ratings are bucketed by rounding, so two ratings closer than 0.1 can still
// land in neighbouring buckets.
func TestRankingService_RatingBucketBoundary(t *testing.T) {
	assert.Equal(t, 44, ratingKey(4.44))
	assert.Equal(t, 45, ratingKey(4.46))

	svc := newTestRanking(RankingConfig{})
	got := svc.FilterAndRank([]domain.NormalizedCandidate{
		candidate("A", "Lower bucket", 4.44, 900),
		candidate("B", "Higher bucket", 4.46, 10),
	})

	assert.Equal(t, []string{"B", "A"}, identifiers(got))
}

func TestRankingService_Shortlist(t *testing.T) {
	svc := newTestRanking(RankingConfig{
		TopN:        3,
		EnrichExtra: 2,
		NicheBrands: map[string][]string{"gaming-laptops": {"Lenovo"}},
	})

	input := []domain.NormalizedCandidate{
		candidate("1", "Acer Nitro", 4.9, 1),
		candidate("2", "Lenovo Legion", 4.0, 1),
		candidate("3", "MSI Katana", 4.8, 1),
		candidate("4", "Asus TUF", 4.7, 1),
		candidate("5", "Gigabyte G5", 4.6, 1),
		candidate("6", "Dell G15", 4.5, 1),
	}

	got := svc.Shortlist(domain.Niche{Name: "Gaming Laptops"}, input)
	assert.Equal(t, []string{"2", "1", "3", "4", "5"}, identifiers(got))

	got = svc.Shortlist(domain.Niche{Name: "Office Laptops"}, input)
	assert.Equal(t, []string{"1", "3", "4", "5", "6"}, identifiers(got))

	assert.Len(t, svc.FilterAndRank(input), 3)
}

func TestRankingService_Deterministic(t *testing.T) {
	svc := newTestRanking(RankingConfig{})
	input := []domain.NormalizedCandidate{
		candidate("A", "One", 4.5, 10),
		candidate("B", "Two", 4.5, 10),
		candidate("C", "Three", 4.5, 10),
	}

	first := svc.FilterAndRank(input)
	assert.Equal(t, []string{"A", "B", "C"}, identifiers(first))
	assert.Equal(t, first, svc.FilterAndRank(input))
}

func TestTitleKey(t *testing.T) {
	assert.Equal(t, "x", TitleKey("X (Black)"))
	assert.Equal(t, "model x black", TitleKey("  Model  X Black "))
	assert.Equal(t, "café grinder", TitleKey("Café Grinder"))
}
