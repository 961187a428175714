package providers

import (
	"fmt"
	"log/slog"

	"github.com/samber/do/v2"

	"github.com/nichegen/pipeline/config"
	"github.com/nichegen/pipeline/internal/domain"
	"github.com/nichegen/pipeline/internal/infrastructure/cache"
	"github.com/nichegen/pipeline/internal/infrastructure/snapshot"
)

// CacheHandle wraps the detail cache with shutdown capability.
type CacheHandle struct {
	domain.CacheRepository
	close func() error
}

// Shutdown implements do.Shutdownable.
func (h *CacheHandle) Shutdown() error {
	return h.close()
}

// ProvideDetailCache provides the memory or badger detail cache selected by cache.type.
func ProvideDetailCache(i do.Injector) (*CacheHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*slog.Logger](i)

	switch cfg.Cache.Type {
	case "badger":
		c, err := cache.NewBadgerCache(cfg.Cache.Path, log)
		if err != nil {
			return nil, fmt.Errorf("detail cache: %w", err)
		}
		return &CacheHandle{CacheRepository: c, close: c.Close}, nil
	default:
		c := cache.NewMemoryCache(cleanupInterval)
		log.Info("detail cache initialized", "type", "memory", "ttl", cfg.Cache.TTL)
		return &CacheHandle{CacheRepository: c, close: c.Close}, nil
	}
}

// ProvideSnapshotStore provides the per-niche JSON snapshot store.
func ProvideSnapshotStore(i do.Injector) (*snapshot.FileStore, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*slog.Logger](i)

	return snapshot.NewFileStore(cfg.Output.SnapshotDir, log), nil
}
