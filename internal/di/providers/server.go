package providers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/samber/do/v2"

	"github.com/nichegen/pipeline/config"
	httpDelivery "github.com/nichegen/pipeline/internal/delivery/http"
	"github.com/nichegen/pipeline/internal/infrastructure/snapshot"
)

// HTTPServerHandle wraps http.Server with Shutdownable.
type HTTPServerHandle struct {
	*http.Server
}

// Shutdown implements do.Shutdownable.
func (h *HTTPServerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Server.Shutdown(ctx)
}

// ProvideHTTPHandler provides the snapshot API handler.
func ProvideHTTPHandler(i do.Injector) (*httpDelivery.Handler, error) {
	log := do.MustInvoke[*slog.Logger](i)
	store := do.MustInvoke[*snapshot.FileStore](i)

	return httpDelivery.NewHandler(store, log), nil
}

// ProvideHTTPServer provides the snapshot API server. It is not started here.
func ProvideHTTPServer(i do.Injector) (*HTTPServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*slog.Logger](i)
	handler := do.MustInvoke[*httpDelivery.Handler](i)

	router := httpDelivery.SetupRouter(cfg, handler, log)

	return &HTTPServerHandle{
		Server: &http.Server{
			Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
			Handler:           router,
			ReadHeaderTimeout: readHeaderTimeout,
		},
	}, nil
}
