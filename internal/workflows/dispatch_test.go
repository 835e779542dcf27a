package workflows_test

import (
	"context"
	"errors"
	"testing"

	"go.temporal.io/sdk/testsuite"

	"github.com/samirrijal/routeplanner/internal/adapters/memory"
	"github.com/samirrijal/routeplanner/internal/core/domain"
	"github.com/samirrijal/routeplanner/internal/core/routing"
	"github.com/samirrijal/routeplanner/internal/core/usecases"
	"github.com/samirrijal/routeplanner/internal/workflows"
)

type pushFunc func(ctx context.Context, userID, title, body string) error

func (f pushFunc) SendPush(ctx context.Context, userID, title, body string) error {
	return f(ctx, userID, title, body)
}

// plannedRoute saves a two-stop route and returns the workflow input for it.
func plannedRoute(t *testing.T, store *memory.Store) workflows.DispatchInput {
	t.Helper()
	store.Seed(
		memory.Delivery{DeliveryCandidate: domain.DeliveryCandidate{ID: "D1", Point: &domain.GeoPoint{Lat: 43.2712, Lon: -2.9468}}},
		memory.Delivery{DeliveryCandidate: domain.DeliveryCandidate{ID: "D2", Point: &domain.GeoPoint{Lat: 43.2580, Lon: -2.9390}}},
	)
	opt := usecases.NewRouteOptimizationService(store, store, nil, routing.Config{
		Depot: domain.GeoPoint{Lat: 43.2630, Lon: -2.9350}, AverageSpeedKmh: 30,
	})
	res, err := opt.Optimize(context.Background(), domain.OptimizationRequest{
		DeliveryIDs: []string{"D1", "D2"}, DriverID: "driver-7", VehicleID: "van-3",
		ScheduledDate: "2024-05-14", SaveRoute: true,
	})
	if err != nil {
		t.Fatalf("optimize: %v", err)
	}
	return workflows.DispatchInput{
		RouteID: *res.RouteID, DriverID: "driver-7", VehicleID: "van-3",
		ScheduledDate: "2024-05-14", StopCount: res.Summary.StopCount, DistanceKm: res.Summary.TotalDistanceKm,
	}
}

func TestRouteDispatchWorkflow_NotifiesDriver(t *testing.T) {
	store := memory.NewStore()
	in := plannedRoute(t, store)

	var gotUser, gotTitle string
	acts := &workflows.DispatchActivities{
		Routes: usecases.NewRouteService(store, nil, nil),
		Notifier: pushFunc(func(ctx context.Context, userID, title, body string) error {
			gotUser, gotTitle = userID, title
			return nil
		}),
	}

	var s testsuite.WorkflowTestSuite
	env := s.NewTestWorkflowEnvironment()
	env.RegisterActivity(acts)
	env.ExecuteWorkflow(workflows.RouteDispatchWorkflow, in)

	if !env.IsWorkflowCompleted() {
		t.Fatal("workflow did not complete")
	}
	if err := env.GetWorkflowError(); err != nil {
		t.Fatalf("unexpected workflow error: %v", err)
	}
	if gotUser != "driver-7" || gotTitle != "New route for 2024-05-14" {
		t.Errorf("unexpected push %q %q", gotUser, gotTitle)
	}
	route, _ := acts.Routes.GetByID(context.Background(), in.RouteID)
	if route.Status != domain.RoutePlanned {
		t.Errorf("expected route still PLANNED, got %s", route.Status)
	}
}

func TestRouteDispatchWorkflow_CompensatesByCancelling(t *testing.T) {
	store := memory.NewStore()
	in := plannedRoute(t, store)

	attempts := 0
	acts := &workflows.DispatchActivities{
		Routes: usecases.NewRouteService(store, nil, nil),
		Notifier: pushFunc(func(ctx context.Context, userID, title, body string) error {
			attempts++
			return errors.New("push gateway down")
		}),
	}

	var s testsuite.WorkflowTestSuite
	env := s.NewTestWorkflowEnvironment()
	env.RegisterActivity(acts)
	env.ExecuteWorkflow(workflows.RouteDispatchWorkflow, in)

	if !env.IsWorkflowCompleted() {
		t.Fatal("workflow did not complete")
	}
	if env.GetWorkflowError() == nil {
		t.Fatal("expected the notification failure to fail the workflow")
	}
	if attempts != 3 {
		t.Errorf("expected 3 push attempts, got %d", attempts)
	}

	route, err := acts.Routes.GetByID(context.Background(), in.RouteID)
	if err != nil {
		t.Fatal(err)
	}
	if route.Status != domain.RouteCancelled {
		t.Errorf("expected route CANCELLED, got %s", route.Status)
	}
	for _, id := range []string{"D1", "D2"} {
		if d, _ := store.Delivery(id); d.Status != domain.DeliveryPending || d.RouteID != "" {
			t.Errorf("delivery %s not released: %+v", id, d)
		}
	}
}

func TestCancelRoute_AlreadyStartedIsLeftAlone(t *testing.T) {
	store := memory.NewStore()
	in := plannedRoute(t, store)
	routes := usecases.NewRouteService(store, nil, nil)
	if _, err := routes.UpdateStatus(context.Background(), in.RouteID, domain.RouteInProgress); err != nil {
		t.Fatal(err)
	}

	acts := &workflows.DispatchActivities{Routes: routes}
	if err := acts.CancelRoute(context.Background(), in.RouteID); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	route, _ := routes.GetByID(context.Background(), in.RouteID)
	if route.Status != domain.RouteInProgress {
		t.Errorf("expected IN_PROGRESS to stand, got %s", route.Status)
	}
}

func TestInputFromEvent(t *testing.T) {
	in := workflows.InputFromEvent(&domain.RouteEvent{
		Type: domain.EventRoutePlanned, RouteID: "r1", DriverID: "driver-7", VehicleID: "van-3",
		ScheduledDate: "2024-05-14", StopCount: 4, DistanceKm: 12.5,
	})
	if in.RouteID != "r1" || in.StopCount != 4 || in.DistanceKm != 12.5 {
		t.Errorf("unexpected input %+v", in)
	}
	if workflows.WorkflowID("r1") != "route-dispatch-r1" {
		t.Errorf("unexpected workflow id %s", workflows.WorkflowID("r1"))
	}
}
