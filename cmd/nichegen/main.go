// Package main runs one batch of the niche pipeline over every configured niche.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/samber/do/v2"

	"github.com/nichegen/pipeline/config"
	"github.com/nichegen/pipeline/internal/di"
	"github.com/nichegen/pipeline/internal/domain"
	"github.com/nichegen/pipeline/internal/infrastructure/nichefile"
	"github.com/nichegen/pipeline/internal/logger"
	"github.com/nichegen/pipeline/internal/usecase"
)

func main() {
	os.Exit(run())
}

func run() int {
	nichesFile := flag.String("niches", "", "niches file (overrides output.niches_file)")
	only := flag.String("niche", "", "process a single niche instead of the niches file")
	flag.Parse()

	// Load configuration; a missing API key fails here, before any niche runs
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		return 1
	}
	if *nichesFile != "" {
		cfg.Output.NichesFile = *nichesFile
	}

	injector := di.NewContainerWithConfig(cfg)
	defer func() {
		if err := injector.Shutdown(); err != nil {
			fmt.Fprintf(os.Stderr, "Shutdown error: %v\n", err)
		}
	}()

	log, err := do.Invoke[*slog.Logger](injector)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return 1
	}

	niches, err := loadNiches(cfg.Output.NichesFile, *only)
	if err != nil {
		log.Error("Failed to read niches", logger.Err(err))
		return 1
	}
	if len(niches) == 0 {
		log.Error("No niches to process", "niches_file", cfg.Output.NichesFile)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runner, err := do.Invoke[*usecase.BatchRunner](injector)
	if err != nil {
		log.Error("Failed to initialize pipeline", logger.Err(err))
		return 1
	}
	summary := runner.Run(ctx, niches)

	for _, r := range summary.Failed() {
		log.Warn("Niche not published", "niche", r.Niche.Name, "status", r.Status, "error", r.Error)
	}
	log.Info("Run finished",
		"run_id", summary.RunID,
		"succeeded", len(summary.Succeeded()),
		"failed", len(summary.Failed()),
		"snapshot_dir", cfg.Output.SnapshotDir,
	)

	if summary.AllFailed() {
		log.Error("Every niche failed")
		return 1
	}
	return 0
}

func loadNiches(path, only string) ([]domain.Niche, error) {
	if only != "" {
		return []domain.Niche{{Name: only, Keyword: only}}, nil
	}
	return nichefile.Read(path)
}
