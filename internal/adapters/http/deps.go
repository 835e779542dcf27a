package http

import (
	"context"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/routeplanner/internal/core/usecases"
)

// Pinger is a backend that can report its connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Optimizer *usecases.RouteOptimizationService
	Routes    *usecases.RouteService
	NATS      *nats.Conn
	DB        Pinger
	Cache     Pinger
}
