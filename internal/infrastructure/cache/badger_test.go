package cache

import (
	"context"
	"testing"
	"time"

	"github.com/nichegen/pipeline/internal/domain"
	"github.com/nichegen/pipeline/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBadger(t *testing.T, path string) *BadgerCache {
	t.Helper()
	c, err := NewBadgerCache(path, logger.Discard())
	require.NoError(t, err)
	return c
}

func TestBadgerCache_SetAndGet(t *testing.T) {
	cache := newTestBadger(t, "")
	defer cache.Close()
	ctx := context.Background()

	fields := map[string]interface{}{
		"asin":                "B0001",
		"product_title":       "Sony WH-1000XM5",
		"product_star_rating": "4.6",
		"about_product":       []string{"Noise cancelling", "30h battery"},
	}
	require.NoError(t, cache.Set(ctx, "B0001", fields, time.Hour))

	got, err := cache.Get(ctx, "B0001")
	require.NoError(t, err)

	m, ok := got.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "Sony WH-1000XM5", m["product_title"])
	assert.Equal(t, []interface{}{"Noise cancelling", "30h battery"}, m["about_product"])
}

func TestBadgerCache_Miss(t *testing.T) {
	cache := newTestBadger(t, "")
	defer cache.Close()

	_, err := cache.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrCacheMiss)

	exists, err := cache.Exists(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestBadgerCache_DeleteAndExists(t *testing.T) {
	cache := newTestBadger(t, "")
	defer cache.Close()
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "k", "v", 0))
	exists, err := cache.Exists(ctx, "k")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, cache.Delete(ctx, "k"))
	exists, _ = cache.Exists(ctx, "k")
	assert.False(t, exists)

	assert.NoError(t, cache.Delete(ctx, "never-set"))
}

func TestBadgerCache_Expiry(t *testing.T) {
	cache := newTestBadger(t, "")
	defer cache.Close()
	ctx := context.Background()

	// badger TTLs have one-second resolution
	require.NoError(t, cache.Set(ctx, "short", "v", time.Second))
	time.Sleep(2100 * time.Millisecond)

	_, err := cache.Get(ctx, "short")
	assert.ErrorIs(t, err, domain.ErrCacheMiss)
}

func TestBadgerCache_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	first := newTestBadger(t, dir)
	require.NoError(t, first.Set(ctx, "B0002", map[string]interface{}{"title": "kept"}, time.Hour))
	require.NoError(t, first.Close())

	second := newTestBadger(t, dir)
	defer second.Close()

	got, err := second.Get(ctx, "B0002")
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"title": "kept"}, got)
}
