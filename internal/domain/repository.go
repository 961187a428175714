package domain

import (
	"context"
	"time"
)

// CacheRepository defines the interface for caching operations
type CacheRepository interface {
	Get(ctx context.Context, key string) (interface{}, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// SourceAdapter wraps one external origin of candidate products.
// Implementations return the real error; callers decide how to degrade.
type SourceAdapter interface {
	Name() string
	Fetch(ctx context.Context, niche string) ([]RawCandidate, error)
}

// ProductAPI defines the structured product search API used for bulk search
// and single item detail lookups
type ProductAPI interface {
	SearchProducts(ctx context.Context, query string) ([]RawCandidate, error)
	GetProductDetails(ctx context.Context, identifier string) (*RawCandidate, error)
}

// SnapshotRepository persists one snapshot per niche
type SnapshotRepository interface {
	Save(ctx context.Context, snapshot *Snapshot) error
	Load(ctx context.Context, slug string) (*Snapshot, error)
	List(ctx context.Context) ([]SnapshotSummary, error)
}
