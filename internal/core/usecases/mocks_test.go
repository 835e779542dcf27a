package usecases_test

import (
	"context"
	"sync"

	"github.com/samirrijal/routeplanner/internal/core/domain"
)

// --- Mock DeliveryRepository ---

type mockDeliveryRepo struct {
	loadFn func(ctx context.Context, ids []string) ([]domain.DeliveryCandidate, error)
	calls  int
}

func (m *mockDeliveryRepo) LoadCandidates(ctx context.Context, ids []string) ([]domain.DeliveryCandidate, error) {
	m.calls++
	if m.loadFn != nil {
		return m.loadFn(ctx, ids)
	}
	return nil, nil
}

// --- Mock RouteRepository ---

type mockRouteRepo struct {
	createPlanFn   func(ctx context.Context, plan *domain.RoutePlan) error
	getByIDFn      func(ctx context.Context, id string) (*domain.Route, error)
	listStopsFn    func(ctx context.Context, routeID string) ([]domain.RouteStop, error)
	listFn         func(ctx context.Context, f domain.RouteFilter, offset, limit int) ([]domain.Route, int, error)
	updateStatusFn func(ctx context.Context, id string, from, to domain.RouteStatus) error
	cancelFn       func(ctx context.Context, id string, from domain.RouteStatus) error

	plans []*domain.RoutePlan
}

func (m *mockRouteRepo) CreatePlan(ctx context.Context, plan *domain.RoutePlan) error {
	if m.createPlanFn != nil {
		if err := m.createPlanFn(ctx, plan); err != nil {
			return err
		}
	}
	m.plans = append(m.plans, plan)
	return nil
}

func (m *mockRouteRepo) GetByID(ctx context.Context, id string) (*domain.Route, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (m *mockRouteRepo) ListStops(ctx context.Context, routeID string) ([]domain.RouteStop, error) {
	if m.listStopsFn != nil {
		return m.listStopsFn(ctx, routeID)
	}
	return nil, nil
}

func (m *mockRouteRepo) List(ctx context.Context, f domain.RouteFilter, offset, limit int) ([]domain.Route, int, error) {
	if m.listFn != nil {
		return m.listFn(ctx, f, offset, limit)
	}
	return nil, 0, nil
}

func (m *mockRouteRepo) UpdateStatus(ctx context.Context, id string, from, to domain.RouteStatus) error {
	if m.updateStatusFn != nil {
		return m.updateStatusFn(ctx, id, from, to)
	}
	return nil
}

func (m *mockRouteRepo) Cancel(ctx context.Context, id string, from domain.RouteStatus) error {
	if m.cancelFn != nil {
		return m.cancelFn(ctx, id, from)
	}
	return nil
}

// --- Mock EventPublisher ---

type mockPublisher struct {
	err    error
	events []*domain.RouteEvent
}

func (m *mockPublisher) PublishRouteEvent(ctx context.Context, event *domain.RouteEvent) error {
	m.events = append(m.events, event)
	return m.err
}

// --- Mock CacheService ---

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
	return nil, domain.ErrNotFound
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
