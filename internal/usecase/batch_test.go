package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nichegen/pipeline/internal/domain"
	"github.com/nichegen/pipeline/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockProcessor is a mock implementation of NicheProcessor
type MockProcessor struct {
	products map[string][]string
	errs     map[string]error
	panics   map[string]bool
	nilRes   map[string]bool
	seen     []string
	runIDs   []string
}

func NewMockProcessor() *MockProcessor {
	return &MockProcessor{
		products: make(map[string][]string),
		errs:     make(map[string]error),
		panics:   make(map[string]bool),
		nilRes:   make(map[string]bool),
	}
}

func (m *MockProcessor) Process(ctx context.Context, niche domain.Niche, runID string) (*domain.NicheResult, error) {
	m.seen = append(m.seen, niche.Name)
	m.runIDs = append(m.runIDs, runID)

	if m.panics[niche.Name] {
		panic("nil map write")
	}
	if err := m.errs[niche.Name]; err != nil {
		return nil, err
	}
	if m.nilRes[niche.Name] {
		return nil, nil
	}

	result := &domain.NicheResult{Niche: niche, Status: domain.NicheEmpty, Products: []domain.EnrichedProduct{}}
	for _, id := range m.products[niche.Name] {
		result.Products = append(result.Products, domain.EnrichedProduct{Identifier: id})
	}
	if len(result.Products) > 0 {
		result.Status = domain.NicheSucceeded
	}
	return result, nil
}

func niches(names ...string) []domain.Niche {
	out := make([]domain.Niche, 0, len(names))
	for _, n := range names {
		out = append(out, domain.Niche{Name: n, Keyword: n})
	}
	return out
}

func TestBatchRunner_Run(t *testing.T) {
	ctx := context.Background()

	t.Run("processes niches in order with delay between them", func(t *testing.T) {
		proc := NewMockProcessor()
		proc.products["a"] = []string{"A1"}
		proc.products["b"] = []string{"B1"}
		proc.products["c"] = []string{"C1"}
		rec := &sleepRecorder{}

		runner := NewBatchRunner(proc, BatchConfig{NicheDelay: 3 * time.Second, Sleep: rec.sleep}, logger.Discard())
		summary := runner.Run(ctx, niches("a", "b", "c"))

		assert.Equal(t, []string{"a", "b", "c"}, proc.seen)
		assert.Equal(t, []time.Duration{3 * time.Second, 3 * time.Second}, rec.calls)
		assert.Len(t, summary.Succeeded(), 3)
		assert.False(t, summary.AllFailed())
		assert.Empty(t, summary.DuplicateIdentifiers)
	})

	t.Run("uses one uuid run id for every niche", func(t *testing.T) {
		proc := NewMockProcessor()
		runner := NewBatchRunner(proc, BatchConfig{NicheDelay: -1}, logger.Discard())

		summary := runner.Run(ctx, niches("a", "b"))

		_, err := uuid.Parse(summary.RunID)
		require.NoError(t, err)
		assert.Equal(t, []string{summary.RunID, summary.RunID}, proc.runIDs)
		assert.False(t, summary.StartedAt.IsZero())
	})

	t.Run("isolates errors and panics", func(t *testing.T) {
		proc := NewMockProcessor()
		proc.errs["a"] = errors.New("snapshot dir not writable")
		proc.panics["b"] = true
		proc.nilRes["c"] = true
		proc.products["d"] = []string{"D1"}

		runner := NewBatchRunner(proc, BatchConfig{NicheDelay: -1}, logger.Discard())

		var summary *domain.BatchSummary
		require.NotPanics(t, func() {
			summary = runner.Run(ctx, niches("a", "b", "c", "d", "e"))
		})

		require.Len(t, summary.Results, 5)
		assert.Equal(t, domain.NicheFailed, summary.Results[0].Status)
		assert.Equal(t, "snapshot dir not writable", summary.Results[0].Error)
		assert.Equal(t, domain.NicheFailed, summary.Results[1].Status)
		assert.Contains(t, summary.Results[1].Error, "panic")
		assert.Equal(t, domain.NicheFailed, summary.Results[2].Status)
		assert.Equal(t, domain.NicheSucceeded, summary.Results[3].Status)
		assert.Equal(t, domain.NicheEmpty, summary.Results[4].Status)
		assert.Len(t, summary.Failed(), 4)
		assert.False(t, summary.AllFailed())
	})

	t.Run("all empty is all failed", func(t *testing.T) {
		runner := NewBatchRunner(NewMockProcessor(), BatchConfig{NicheDelay: -1}, logger.Discard())

		summary := runner.Run(ctx, niches("a", "b"))
		assert.True(t, summary.AllFailed())
	})

	t.Run("empty niche list", func(t *testing.T) {
		runner := NewBatchRunner(NewMockProcessor(), BatchConfig{}, logger.Discard())

		summary := runner.Run(ctx, nil)
		assert.Empty(t, summary.Results)
		assert.True(t, summary.AllFailed())
	})

	t.Run("cancellation marks remaining niches failed", func(t *testing.T) {
		proc := NewMockProcessor()
		proc.products["a"] = []string{"A1"}
		rec := &sleepRecorder{err: context.Canceled}

		runner := NewBatchRunner(proc, BatchConfig{NicheDelay: time.Second, Sleep: rec.sleep}, logger.Discard())
		summary := runner.Run(ctx, niches("a", "b", "c"))

		assert.Equal(t, []string{"a"}, proc.seen)
		require.Len(t, summary.Results, 3)
		assert.Equal(t, domain.NicheSucceeded, summary.Results[0].Status)
		assert.Equal(t, domain.NicheFailed, summary.Results[1].Status)
		assert.Equal(t, context.Canceled.Error(), summary.Results[2].Error)
	})

	t.Run("reports identifiers published in several niches", func(t *testing.T) {
		proc := NewMockProcessor()
		proc.products["Air Fryers"] = []string{"B1", "B2"}
		proc.products["Kitchen Gadgets"] = []string{"B2", "B3"}
		proc.products["Cookware"] = []string{"B2", "B1", "B4"}

		runner := NewBatchRunner(proc, BatchConfig{NicheDelay: -1}, logger.Discard())
		summary := runner.Run(ctx, niches("Air Fryers", "Kitchen Gadgets", "Cookware"))

		assert.Equal(t, []string{"B1", "B2"}, summary.DuplicateIDs())
		assert.Equal(t, []string{"air-fryers", "cookware"}, summary.DuplicateIdentifiers["B1"])
		assert.Equal(t, []string{"air-fryers", "kitchen-gadgets", "cookware"}, summary.DuplicateIdentifiers["B2"])
	})
}

func TestNewBatchRunner_Defaults(t *testing.T) {
	runner := NewBatchRunner(NewMockProcessor(), BatchConfig{}, nil)
	assert.Equal(t, DefaultNicheDelay, runner.delay)

	runner = NewBatchRunner(NewMockProcessor(), BatchConfig{NicheDelay: -1}, nil)
	assert.Equal(t, time.Duration(0), runner.delay)

	runner = NewBatchRunner(NewMockProcessor(), BatchConfig{NewRunID: func() string { return "fixed" }}, nil)
	assert.Equal(t, "fixed", runner.Run(context.Background(), nil).RunID)
}
