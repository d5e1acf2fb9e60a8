package usecases_test

import (
	"context"
	"errors"
	"sync"

	"github.com/samirrijal/perspectives/internal/core/domain"
)

// --- Mock PointRepository ---

type mockPointRepo struct {
	listFn    func(ctx context.Context) ([]domain.GeoPoint, error)
	getByIDFn func(ctx context.Context, id string) (*domain.GeoPoint, error)
}

func (m *mockPointRepo) List(ctx context.Context) ([]domain.GeoPoint, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, nil
}

func (m *mockPointRepo) GetByID(ctx context.Context, id string) (*domain.GeoPoint, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockPointRepo) UpsertBatch(ctx context.Context, points []domain.GeoPoint) error { return nil }

// --- Mock EventPublisher ---

type mockPublisher struct {
	mu        sync.Mutex
	navigate  []domain.SelectionResult
	drilldown []domain.SelectionResult
	refreshed []uint64
	err       error
}

func (m *mockPublisher) PublishNavigate(ctx context.Context, res domain.SelectionResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.navigate = append(m.navigate, res)
	return m.err
}

func (m *mockPublisher) PublishDrilldown(ctx context.Context, res domain.SelectionResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drilldown = append(m.drilldown, res)
	return m.err
}

func (m *mockPublisher) PublishRefreshed(ctx context.Context, version uint64, count int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refreshed = append(m.refreshed, version)
	return m.err
}

func (m *mockPublisher) PublishSaved(ctx context.Context, ids []string) error { return m.err }

// --- Mock CacheService ---

var errCacheMiss = errors.New("cache miss")

type mockCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMockCache() *mockCache { return &mockCache{data: map[string][]byte{}} }

func (m *mockCache) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return nil, errCacheMiss
}

func (m *mockCache) Set(ctx context.Context, key string, value []byte, ttlSeconds int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *mockCache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *mockCache) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}

func pt(id string, lat, lng float64) domain.GeoPoint {
	return domain.GeoPoint{ID: id, Lat: lat, Lng: lng, Payload: domain.Perspective{Name: id, Slug: id}}
}
