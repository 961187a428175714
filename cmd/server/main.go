// Package main serves stored niche snapshots to the renderer and preview pages.
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/samber/do/v2"

	"github.com/nichegen/pipeline/config"
	"github.com/nichegen/pipeline/internal/di"
	"github.com/nichegen/pipeline/internal/di/providers"
	"github.com/nichegen/pipeline/internal/logger"
)

func main() {
	// Load configuration; the server never calls the product API
	cfg, err := config.LoadServer()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	injector := di.NewContainerWithConfig(cfg)
	log, err := do.Invoke[*slog.Logger](injector)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	server, err := do.Invoke[*providers.HTTPServerHandle](injector)
	if err != nil {
		log.Error("Failed to initialize server", logger.Err(err))
		os.Exit(1)
	}

	log.Info("Snapshot API starting",
		"environment", cfg.App.Environment,
		"addr", server.Addr,
		"snapshot_dir", cfg.Output.SnapshotDir,
	)

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Failed to start server", logger.Err(err))
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server gracefully...")

	// The DI container shuts down the HTTP server and closes the cache
	if err := injector.Shutdown(); err != nil {
		log.Error("Shutdown error", "error", err)
	}
}
