package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nichegen/pipeline/internal/domain"
	"github.com/nichegen/pipeline/internal/logger"
)

// Version is reported by the health endpoint
const Version = "1.0.0"

// Handler holds dependencies for HTTP handlers
type Handler struct {
	snapshots domain.SnapshotRepository
	logger    *slog.Logger
}

// NewHandler creates a new HTTP handler. snapshots may be nil, in which case
// the snapshot endpoints respond 503.
func NewHandler(snapshots domain.SnapshotRepository, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{
		snapshots: snapshots,
		logger:    log.With(slog.String("component", "http")),
	}
}

// ProductQuery filters the products endpoint
type ProductQuery struct {
	Limit       int  `form:"limit" binding:"omitempty,min=1,max=100"`
	PremiumOnly bool `form:"premium"`
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "nichegen",
		"version": Version,
	})
}

// ListNiches returns a summary of every stored snapshot
func (h *Handler) ListNiches(c *gin.Context) {
	if !h.ready(c) {
		return
	}

	summaries, err := h.snapshots.List(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"niches": summaries,
		"count":  len(summaries),
	})
}

// GetNiche returns the full snapshot for a niche
func (h *Handler) GetNiche(c *gin.Context) {
	if !h.ready(c) {
		return
	}

	snap, err := h.snapshots.Load(c.Request.Context(), c.Param("slug"))
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, snap)
}

// GetNicheProducts returns only the published products of a niche
func (h *Handler) GetNicheProducts(c *gin.Context) {
	if !h.ready(c) {
		return
	}

	var query ProductQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query: " + err.Error()})
		return
	}

	snap, err := h.snapshots.Load(c.Request.Context(), c.Param("slug"))
	if err != nil {
		h.fail(c, err)
		return
	}

	products := make([]domain.EnrichedProduct, 0, len(snap.Products))
	for _, p := range snap.Products {
		if query.PremiumOnly && !p.IsPremiumTier {
			continue
		}
		products = append(products, p)
	}
	if query.Limit > 0 && len(products) > query.Limit {
		products = products[:query.Limit]
	}

	c.JSON(http.StatusOK, gin.H{
		"niche":       snap.Niche,
		"slug":        snap.Slug,
		"generatedAt": snap.GeneratedAt,
		"products":    products,
		"count":       len(products),
	})
}

func (h *Handler) ready(c *gin.Context) bool {
	if h.snapshots == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "snapshot store not configured"})
		return false
	}
	return true
}

// fail maps domain errors to status codes
func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrSnapshotNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "niche not found"})
	case errors.Is(err, domain.ErrInvalidRequest):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.logger.Error("request failed", slog.String("path", c.Request.URL.Path), logger.Err(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
