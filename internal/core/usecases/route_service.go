package usecases

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/samirrijal/routeplanner/internal/core/domain"
	"github.com/samirrijal/routeplanner/internal/core/ports"
	"github.com/samirrijal/routeplanner/internal/pkg/metrics"
)

const routeCacheTTL = 600 // 10 min

// RouteService handles reads and lifecycle changes of planned routes.
type RouteService struct {
	routes    ports.RouteRepository
	cache     ports.CacheService
	publisher ports.EventPublisher
}

// NewRouteService creates a new RouteService. cache and publisher may be nil.
func NewRouteService(routes ports.RouteRepository, cache ports.CacheService, publisher ports.EventPublisher) *RouteService {
	return &RouteService{routes: routes, cache: cache, publisher: publisher}
}

func routeCacheKey(id string) string { return "routes:id:" + id }

// GetByID returns a route by its UUID.
func (s *RouteService) GetByID(ctx context.Context, id string) (*domain.Route, error) {
	cacheKey := routeCacheKey(id)
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var route domain.Route
			if err := json.Unmarshal(data, &route); err == nil {
				metrics.CacheHits.WithLabelValues("route").Inc()
				return &route, nil
			}
		}
		metrics.CacheMisses.WithLabelValues("route").Inc()
	}

	route, err := s.routes.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if data, err := json.Marshal(route); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, routeCacheTTL)
		}
	}

	return route, nil
}

// ListStops returns the stops of a route in visiting order.
func (s *RouteService) ListStops(ctx context.Context, routeID string) ([]domain.RouteStop, error) {
	if _, err := s.GetByID(ctx, routeID); err != nil {
		return nil, err
	}
	return s.routes.ListStops(ctx, routeID)
}

// List returns one page of routes matching filter and the total match count.
func (s *RouteService) List(ctx context.Context, filter domain.RouteFilter, offset, limit int) ([]domain.Route, int, error) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.routes.List(ctx, filter, offset, limit)
}

// UpdateStatus moves a route along its lifecycle. Cancelling also releases the
// route's deliveries.
func (s *RouteService) UpdateStatus(ctx context.Context, id string, to domain.RouteStatus) (*domain.Route, error) {
	if !to.Valid() {
		return nil, &domain.ValidationError{Problems: []string{fmt.Sprintf("unknown route status %q", to)}}
	}

	// Always read through to the store: the cached copy may be stale.
	route, err := s.routes.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	from := route.Status
	if !from.CanTransitionTo(to) {
		return nil, &domain.TransitionError{From: from, To: to}
	}

	if to == domain.RouteCancelled {
		err = s.routes.Cancel(ctx, id, from)
	} else {
		err = s.routes.UpdateStatus(ctx, id, from, to)
	}
	if errors.Is(err, domain.ErrNotFound) {
		// Someone else moved the route first.
		return nil, &domain.TransitionError{From: from, To: to}
	}
	if err != nil {
		return nil, fmt.Errorf("update route status: %w", err)
	}

	if s.cache != nil {
		_ = s.cache.Delete(ctx, routeCacheKey(id))
	}

	route.Status = to
	s.publishStatus(ctx, route)
	return route, nil
}

// Cancel is UpdateStatus(ctx, id, CANCELLED).
func (s *RouteService) Cancel(ctx context.Context, id string) (*domain.Route, error) {
	return s.UpdateStatus(ctx, id, domain.RouteCancelled)
}

func (s *RouteService) publishStatus(ctx context.Context, route *domain.Route) {
	if s.publisher == nil {
		return
	}
	event := &domain.RouteEvent{
		Type:          domain.EventRouteStatus,
		RouteID:       route.ID,
		DriverID:      route.DriverID,
		VehicleID:     route.VehicleID,
		ScheduledDate: route.ScheduledDate.Format(domain.DateLayout),
		Status:        route.Status,
		DistanceKm:    route.TotalDistance,
		Time:          time.Now().UTC(),
	}
	if err := s.publisher.PublishRouteEvent(ctx, event); err != nil {
		slog.WarnContext(ctx, "publish route status failed", "route_id", route.ID, "error", err)
	}
}
