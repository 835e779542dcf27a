package ports

import (
	"context"

	"github.com/samirrijal/routeplanner/internal/core/domain"
)

// DeliveryRepository reads deliveries and their branch coordinates.
type DeliveryRepository interface {
	// LoadCandidates returns the deliveries that exist among ids. Unknown ids
	// are simply absent from the result; order is not significant.
	LoadCandidates(ctx context.Context, ids []string) ([]domain.DeliveryCandidate, error)
}

// RouteRepository persists routes and their stops.
type RouteRepository interface {
	// CreatePlan writes the route, its stops and the delivery assignment in a
	// single transaction. On error nothing of the plan is persisted.
	CreatePlan(ctx context.Context, plan *domain.RoutePlan) error
	GetByID(ctx context.Context, id string) (*domain.Route, error)
	ListStops(ctx context.Context, routeID string) ([]domain.RouteStop, error)
	List(ctx context.Context, filter domain.RouteFilter, offset, limit int) ([]domain.Route, int, error)
	UpdateStatus(ctx context.Context, id string, from, to domain.RouteStatus) error
	// Cancel marks the route CANCELLED and returns its deliveries to PENDING
	// in one transaction.
	Cancel(ctx context.Context, id string, from domain.RouteStatus) error
}
