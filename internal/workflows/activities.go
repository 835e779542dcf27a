package workflows

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/samirrijal/routeplanner/internal/core/domain"
	"github.com/samirrijal/routeplanner/internal/core/ports"
	"github.com/samirrijal/routeplanner/internal/core/usecases"
	"github.com/samirrijal/routeplanner/internal/pkg/metrics"
)

// DispatchActivities holds the activity implementations for the dispatch workflow.
type DispatchActivities struct {
	Routes   *usecases.RouteService
	Notifier ports.NotificationService
}

// NotifyDriver pushes the new route to its driver.
func (a *DispatchActivities) NotifyDriver(ctx context.Context, in DispatchInput) error {
	title := "New route for " + in.ScheduledDate
	body := fmt.Sprintf("%d stops, %.1f km. Open the app to start.", in.StopCount, in.DistanceKm)
	if a.Notifier == nil {
		slog.Info("push skipped, no notifier", "driver_id", in.DriverID, "route_id", in.RouteID, "body", body)
		return nil
	}
	if err := a.Notifier.SendPush(ctx, in.DriverID, title, body); err != nil {
		return fmt.Errorf("push to driver %s: %w", in.DriverID, err)
	}
	return nil
}

// CancelRoute cancels a still PLANNED route and releases its deliveries (saga
// compensation). A route that is gone or already started is left as it is.
func (a *DispatchActivities) CancelRoute(ctx context.Context, routeID string) error {
	route, err := a.Routes.GetByID(ctx, routeID)
	if errors.Is(err, domain.ErrNotFound) {
		slog.Warn("route gone, nothing to compensate", "route_id", routeID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get route %s: %w", routeID, err)
	}
	if route.Status != domain.RoutePlanned {
		slog.Warn("route already moved on, nothing to compensate", "route_id", routeID, "status", route.Status)
		return nil
	}

	_, err = a.Routes.Cancel(ctx, routeID)
	var te *domain.TransitionError
	switch {
	case err == nil:
		slog.Info("route cancelled (saga compensation)", "route_id", routeID)
		metrics.Dispatches.WithLabelValues("compensated").Inc()
		return nil
	case errors.As(err, &te):
		// Lost a race with a status update.
		slog.Warn("route not cancellable, nothing to compensate", "route_id", routeID, "error", err)
		return nil
	default:
		return fmt.Errorf("cancel route %s: %w", routeID, err)
	}
}
