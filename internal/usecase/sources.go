package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nichegen/pipeline/internal/domain"
	"github.com/nichegen/pipeline/internal/logger"
)

// DefaultSourceTimeout bounds a single adapter call when no timeout is configured
const DefaultSourceTimeout = 30 * time.Second

// FetchSoft calls the adapter and never fails: errors, timeouts and panics all
// become an empty contribution, and the report says what happened.
func FetchSoft(
	ctx context.Context,
	adapter domain.SourceAdapter,
	niche string,
	timeout time.Duration,
	log *slog.Logger,
) (candidates []domain.RawCandidate, report domain.SourceReport) {
	if timeout <= 0 {
		timeout = DefaultSourceTimeout
	}
	if log == nil {
		log = slog.Default()
	}

	name := adapter.Name()
	report.Source = name
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			candidates = []domain.RawCandidate{}
			report.Count = 0
			report.Error = fmt.Sprintf("panic: %v", r)
			log.Error("source panicked", slog.String("source", name), slog.String("niche", niche), slog.Any("panic", r))
		}
		report.Duration = time.Since(start)
	}()

	fetchCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result, err := adapter.Fetch(fetchCtx, niche)
	if err != nil {
		report.Error = err.Error()
		log.Warn("source returned no candidates",
			slog.String("source", name),
			slog.String("niche", niche),
			logger.Err(err),
		)
		return []domain.RawCandidate{}, report
	}

	if result == nil {
		result = []domain.RawCandidate{}
	}
	report.Count = len(result)
	log.Debug("source fetched", slog.String("source", name), slog.String("niche", niche), slog.Int("count", report.Count))
	return result, report
}
