package usecase

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nichegen/pipeline/internal/domain"
)

// MockCacheRepository is a mock implementation of domain.CacheRepository
type MockCacheRepository struct {
	data      map[string]interface{}
	getError  error
	setError  error
	getCalled bool
	setCalled bool
}

func NewMockCacheRepository() *MockCacheRepository {
	return &MockCacheRepository{
		data: make(map[string]interface{}),
	}
}

func (m *MockCacheRepository) Get(ctx context.Context, key string) (interface{}, error) {
	m.getCalled = true
	if m.getError != nil {
		return nil, m.getError
	}
	if value, ok := m.data[key]; ok {
		return value, nil
	}
	return nil, domain.ErrCacheMiss
}

func (m *MockCacheRepository) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	m.setCalled = true
	if m.setError != nil {
		return m.setError
	}
	m.data[key] = value
	return nil
}

func (m *MockCacheRepository) Delete(ctx context.Context, key string) error {
	delete(m.data, key)
	return nil
}

func (m *MockCacheRepository) Exists(ctx context.Context, key string) (bool, error) {
	_, ok := m.data[key]
	return ok, nil
}

// MockSource is a mock implementation of domain.SourceAdapter
type MockSource struct {
	name    string
	results []domain.RawCandidate
	err     error
	panics  bool
	delay   time.Duration
	calls   atomic.Int32

	mu      sync.Mutex
	queries []string
}

func NewMockSource(name string, count int) *MockSource {
	m := &MockSource{name: name}
	for i := 0; i < count; i++ {
		m.results = append(m.results, domain.NewRawCandidate(name, map[string]any{
			"asin":  name + "-" + string(rune('a'+i)),
			"title": name + " item " + string(rune('a'+i)),
		}))
	}
	return m
}

func (m *MockSource) Name() string {
	return m.name
}

func (m *MockSource) Fetch(ctx context.Context, niche string) ([]domain.RawCandidate, error) {
	m.calls.Add(1)
	m.mu.Lock()
	m.queries = append(m.queries, niche)
	m.mu.Unlock()

	if m.panics {
		panic("adapter exploded")
	}
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.err != nil {
		return nil, m.err
	}
	return m.results, nil
}

func (m *MockSource) Calls() int {
	return int(m.calls.Load())
}

// MockProductAPI is a mock implementation of domain.ProductAPI
type MockProductAPI struct {
	searchResults []domain.RawCandidate
	searchError   error
	details       map[string]map[string]any
	detailErrors  map[string]error
	detailCalls   []string
}

func NewMockProductAPI() *MockProductAPI {
	return &MockProductAPI{
		details:      make(map[string]map[string]any),
		detailErrors: make(map[string]error),
	}
}

func (m *MockProductAPI) SearchProducts(ctx context.Context, query string) ([]domain.RawCandidate, error) {
	if m.searchError != nil {
		return nil, m.searchError
	}
	return m.searchResults, nil
}

func (m *MockProductAPI) GetProductDetails(ctx context.Context, identifier string) (*domain.RawCandidate, error) {
	m.detailCalls = append(m.detailCalls, identifier)
	if err, ok := m.detailErrors[identifier]; ok {
		return nil, err
	}
	fields, ok := m.details[identifier]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	raw := domain.NewRawCandidate("productapi", fields)
	return &raw, nil
}

// MockSnapshotRepository is a mock implementation of domain.SnapshotRepository
type MockSnapshotRepository struct {
	saved   map[string]*domain.Snapshot
	saveErr error
	order   []string
}

func NewMockSnapshotRepository() *MockSnapshotRepository {
	return &MockSnapshotRepository{saved: make(map[string]*domain.Snapshot)}
}

func (m *MockSnapshotRepository) Save(ctx context.Context, snap *domain.Snapshot) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saved[snap.Slug] = snap
	m.order = append(m.order, snap.Slug)
	return nil
}

func (m *MockSnapshotRepository) Load(ctx context.Context, slug string) (*domain.Snapshot, error) {
	snap, ok := m.saved[slug]
	if !ok {
		return nil, domain.ErrSnapshotNotFound
	}
	return snap, nil
}

func (m *MockSnapshotRepository) List(ctx context.Context) ([]domain.SnapshotSummary, error) {
	out := make([]domain.SnapshotSummary, 0, len(m.saved))
	for _, slug := range m.order {
		out = append(out, m.saved[slug].Summary())
	}
	return out, nil
}
