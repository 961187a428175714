// Package providers contains dependency injection providers for the nichegen pipeline and snapshot API.
package providers

import (
	"log/slog"

	"github.com/samber/do/v2"

	"github.com/nichegen/pipeline/config"
	"github.com/nichegen/pipeline/internal/logger"
)

// ProvideConfig provides the application configuration.
func ProvideConfig(i do.Injector) (*config.Config, error) {
	return config.Load()
}

// ProvideLogger provides the structured logger and installs it as the slog default.
func ProvideLogger(i do.Injector) (*slog.Logger, error) {
	cfg := do.MustInvoke[*config.Config](i)

	log := logger.New(logger.Config{
		Format:      cfg.Log.Format,
		Level:       logger.ParseLevel(cfg.Log.Level),
		AddSource:   cfg.App.Environment == "development",
		Environment: cfg.App.Environment,
	})
	slog.SetDefault(log)

	log.Info("Starting nichegen",
		"environment", cfg.App.Environment,
		"log_level", cfg.Log.Level,
		"snapshot_dir", cfg.Output.SnapshotDir,
		"cache", cfg.Cache.Type,
	)

	return log, nil
}
