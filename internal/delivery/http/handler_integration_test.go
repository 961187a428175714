package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nichegen/pipeline/config"
	"github.com/nichegen/pipeline/internal/domain"
	"github.com/nichegen/pipeline/internal/infrastructure/snapshot"
	"github.com/nichegen/pipeline/internal/logger"
)

// TestMain sets up test environment before running tests
func TestMain(m *testing.M) {
	// Set Gin to test mode once for all tests
	gin.SetMode(gin.TestMode)

	// Run tests
	exitCode := m.Run()

	// Exit with the test result code
	os.Exit(exitCode)
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Port:           "8080",
			Environment:    "test",
			AllowedOrigins: []string{"http://localhost:*", "https://preview.example.com"},
		},
	}
}

// setupTestRouter creates a router over a snapshot store seeded with two niches
func setupTestRouter(t *testing.T) (*gin.Engine, *snapshot.FileStore) {
	t.Helper()

	store := snapshot.NewFileStore(t.TempDir(), logger.Discard())
	ctx := context.Background()
	generated := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.Save(ctx, &domain.Snapshot{
		Niche:       "Bluetooth Headphones",
		Keyword:     "bluetooth headphones",
		Slug:        "bluetooth-headphones",
		RunID:       "run-1",
		GeneratedAt: generated,
		Products: []domain.EnrichedProduct{
			{Identifier: "B3", Title: "Apple AirPods Pro", Rating: 4.5, ReviewCount: 3000, IsPremiumTier: true},
			{Identifier: "B1", Title: "Sony WH-1000XM5", Rating: 4.5, ReviewCount: 2000, IsPremiumTier: true},
			{Identifier: "B2", Title: "Generic Headphones", Rating: 4.8, ReviewCount: 2000},
		},
	}))
	require.NoError(t, store.Save(ctx, &domain.Snapshot{
		Niche:       "Air Fryers",
		Slug:        "air-fryers",
		RunID:       "run-1",
		GeneratedAt: generated,
	}))

	router := SetupRouter(testConfig(), NewHandler(store, logger.Discard()), logger.Discard())
	require.NotNil(t, router)
	return router, store
}

func getJSON(t *testing.T, router *gin.Engine, path string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()

	req, _ := http.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var response map[string]interface{}
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response), w.Body.String())
	}
	return w, response
}

// TestHealthCheckEndpoint tests the health check endpoint
func TestHealthCheckEndpoint(t *testing.T) {
	t.Run("returns healthy status", func(t *testing.T) {
		router, _ := setupTestRouter(t)

		w, response := getJSON(t, router, "/health")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "healthy", response["status"])
		assert.Equal(t, "nichegen", response["service"])
		version, ok := response["version"].(string)
		assert.True(t, ok && strings.TrimSpace(version) != "")
	})

	t.Run("accepts GET requests only", func(t *testing.T) {
		router, _ := setupTestRouter(t)

		for _, method := range []string{"POST", "PUT", "DELETE", "PATCH"} {
			req, _ := http.NewRequest(method, "/health", nil)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusNotFound, w.Code, method)
		}
	})
}

func TestListNichesEndpoint(t *testing.T) {
	router, _ := setupTestRouter(t)

	w, response := getJSON(t, router, "/api/v1/niches")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(2), response["count"])

	niches, ok := response["niches"].([]interface{})
	require.True(t, ok)
	first := niches[0].(map[string]interface{})
	second := niches[1].(map[string]interface{})
	assert.Equal(t, "air-fryers", first["slug"])
	assert.Equal(t, float64(0), first["productCount"])
	assert.Equal(t, "bluetooth-headphones", second["slug"])
	assert.Equal(t, float64(3), second["productCount"])
}

func TestListNichesEndpoint_EmptyStore(t *testing.T) {
	store := snapshot.NewFileStore(filepath.Join(t.TempDir(), "not-created-yet"), logger.Discard())
	router := SetupRouter(testConfig(), NewHandler(store, logger.Discard()), logger.Discard())

	w, response := getJSON(t, router, "/api/v1/niches")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(0), response["count"])
}

func TestGetNicheEndpoint(t *testing.T) {
	t.Run("returns full snapshot", func(t *testing.T) {
		router, _ := setupTestRouter(t)

		w, response := getJSON(t, router, "/api/v1/niches/bluetooth-headphones")

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "Bluetooth Headphones", response["niche"])
		assert.Equal(t, "run-1", response["runId"])
		assert.Len(t, response["products"], 3)
		assert.NotNil(t, response["raw"])
	})

	t.Run("unknown slug is 404", func(t *testing.T) {
		router, _ := setupTestRouter(t)

		w, response := getJSON(t, router, "/api/v1/niches/robot-vacuums")

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "niche not found", response["error"])
	})

	t.Run("malformed slug is 400", func(t *testing.T) {
		router, _ := setupTestRouter(t)

		w, _ := getJSON(t, router, "/api/v1/niches/Air_Fryers")

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestGetNicheProductsEndpoint(t *testing.T) {
	t.Run("returns products in ranked order", func(t *testing.T) {
		router, _ := setupTestRouter(t)

		w, response := getJSON(t, router, "/api/v1/niches/bluetooth-headphones/products")

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, float64(3), response["count"])
		products := response["products"].([]interface{})
		assert.Equal(t, "B3", products[0].(map[string]interface{})["identifier"])
		assert.Equal(t, "B2", products[2].(map[string]interface{})["identifier"])
	})

	t.Run("premium filter and limit", func(t *testing.T) {
		router, _ := setupTestRouter(t)

		w, response := getJSON(t, router, "/api/v1/niches/bluetooth-headphones/products?premium=true&limit=1")

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, float64(1), response["count"])
		products := response["products"].([]interface{})
		assert.Equal(t, "B3", products[0].(map[string]interface{})["identifier"])
	})

	t.Run("invalid limit is 400", func(t *testing.T) {
		router, _ := setupTestRouter(t)

		w, _ := getJSON(t, router, "/api/v1/niches/bluetooth-headphones/products?limit=-1")
		assert.Equal(t, http.StatusBadRequest, w.Code)

		w, _ = getJSON(t, router, "/api/v1/niches/bluetooth-headphones/products?limit=500")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("empty niche returns empty list", func(t *testing.T) {
		router, _ := setupTestRouter(t)

		w, response := getJSON(t, router, "/api/v1/niches/air-fryers/products")

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, []interface{}{}, response["products"])
	})

	t.Run("unknown slug is 404", func(t *testing.T) {
		router, _ := setupTestRouter(t)

		w, _ := getJSON(t, router, "/api/v1/niches/robot-vacuums/products")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestSnapshotOverwriteVisibleThroughAPI(t *testing.T) {
	router, store := setupTestRouter(t)

	require.NoError(t, store.Save(context.Background(), &domain.Snapshot{
		Niche:    "Air Fryers",
		Slug:     "air-fryers",
		RunID:    "run-2",
		Products: []domain.EnrichedProduct{{Identifier: "F1", Title: "Ninja AF101"}},
	}))

	w, response := getJSON(t, router, "/api/v1/niches/air-fryers")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "run-2", response["runId"])
	assert.Len(t, response["products"], 1)
}

func TestHandlerWithoutStore(t *testing.T) {
	router := SetupRouter(testConfig(), NewHandler(nil, nil), logger.Discard())

	w, response := getJSON(t, router, "/api/v1/niches")

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, response["error"], "not configured")
}

// TestCORSIntegration tests CORS headers work end-to-end with full router
func TestCORSIntegration(t *testing.T) {
	router, _ := setupTestRouter(t)

	req, _ := http.NewRequest(http.MethodGet, "/api/v1/niches", nil)
	req.Header.Set("Origin", "https://preview.example.com")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://preview.example.com", w.Header().Get("Access-Control-Allow-Origin"))

	req, _ = http.NewRequest(http.MethodGet, "/api/v1/niches", nil)
	req.Header.Set("Origin", "https://evil.example.net")
	w = httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}
