package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/samirrijal/routeplanner/internal/core/domain"
)

// DispatchInput is the input for the dispatch workflow.
type DispatchInput struct {
	RouteID       string
	DriverID      string
	VehicleID     string
	ScheduledDate string
	StopCount     int
	DistanceKm    float64
}

// InputFromEvent builds the workflow input from a route.planned event.
func InputFromEvent(e *domain.RouteEvent) DispatchInput {
	return DispatchInput{
		RouteID:       e.RouteID,
		DriverID:      e.DriverID,
		VehicleID:     e.VehicleID,
		ScheduledDate: e.ScheduledDate,
		StopCount:     e.StopCount,
		DistanceKm:    e.DistanceKm,
	}
}

// WorkflowID keys the workflow on the route so a redelivered event cannot
// dispatch the same route twice.
func WorkflowID(routeID string) string { return "route-dispatch-" + routeID }

// RouteDispatchWorkflow tells the driver about a newly planned route. If the
// driver cannot be reached the route is cancelled, which returns its
// deliveries to the pending pool.
func RouteDispatchWorkflow(ctx workflow.Context, in DispatchInput) error {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting dispatch workflow", "routeID", in.RouteID, "driverID", in.DriverID)

	notifyCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval: 5 * time.Second,
			MaximumAttempts: 3,
		},
	})
	err := workflow.ExecuteActivity(notifyCtx, "NotifyDriver", in).Get(ctx, nil)
	if err == nil {
		logger.Info("Driver notified", "routeID", in.RouteID)
		return nil
	}

	logger.Warn("driver notification failed, compensating", "routeID", in.RouteID, "error", err)
	cancelCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2,
			MaximumAttempts:    10,
		},
	})
	if cerr := workflow.ExecuteActivity(cancelCtx, "CancelRoute", in.RouteID).Get(ctx, nil); cerr != nil {
		logger.Error("compensation failed", "routeID", in.RouteID, "error", cerr)
		return cerr
	}
	return err
}
