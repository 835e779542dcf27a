package usecases_test

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"github.com/samirrijal/routeplanner/internal/core/domain"
	"github.com/samirrijal/routeplanner/internal/core/routing"
	"github.com/samirrijal/routeplanner/internal/core/usecases"
)

var testCfg = routing.Config{
	Depot:                 domain.GeoPoint{Lat: 43.2630, Lon: -2.9350},
	AverageSpeedKmh:       30,
	PerStopServiceMinutes: 5,
}

func pt(lat, lon float64) *domain.GeoPoint { return &domain.GeoPoint{Lat: lat, Lon: lon} }

// staticDeliveries serves a fixed set of candidates, returning only the
// requested ones like a real store would. Candidates without a status are
// pending.
func staticDeliveries(all ...domain.DeliveryCandidate) *mockDeliveryRepo {
	for i := range all {
		if all[i].Status == "" {
			all[i].Status = domain.DeliveryPending
		}
	}
	return &mockDeliveryRepo{
		loadFn: func(ctx context.Context, ids []string) ([]domain.DeliveryCandidate, error) {
			want := map[string]bool{}
			for _, id := range ids {
				want[id] = true
			}
			var out []domain.DeliveryCandidate
			for _, c := range all {
				if want[c.ID] {
					out = append(out, c)
				}
			}
			return out, nil
		},
	}
}

func baseRequest(ids ...string) domain.OptimizationRequest {
	return domain.OptimizationRequest{
		DeliveryIDs:   ids,
		DriverID:      "driver-7",
		VehicleID:     "van-3",
		ScheduledDate: "2024-05-14",
	}
}

func TestOptimize_EmptyDeliveriesIsValidationError(t *testing.T) {
	deliveries := &mockDeliveryRepo{}
	svc := usecases.NewRouteOptimizationService(deliveries, &mockRouteRepo{}, nil, testCfg)

	_, err := svc.Optimize(context.Background(), baseRequest())
	var ve *domain.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if deliveries.calls != 0 {
		t.Errorf("store should not be read on invalid input")
	}
}

func TestOptimize_ValidationProblems(t *testing.T) {
	tests := []struct {
		name string
		req  domain.OptimizationRequest
	}{
		{"missing driver", domain.OptimizationRequest{DeliveryIDs: []string{"a"}, VehicleID: "v"}},
		{"missing vehicle", domain.OptimizationRequest{DeliveryIDs: []string{"a"}, DriverID: "d"}},
		{"blank id", domain.OptimizationRequest{DeliveryIDs: []string{"a", " "}, DriverID: "d", VehicleID: "v"}},
		{"duplicate id", domain.OptimizationRequest{DeliveryIDs: []string{"a", "a"}, DriverID: "d", VehicleID: "v"}},
		{"bad date", domain.OptimizationRequest{DeliveryIDs: []string{"a"}, DriverID: "d", VehicleID: "v", ScheduledDate: "14/05/2024"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := usecases.NewRouteOptimizationService(staticDeliveries(), &mockRouteRepo{}, nil, testCfg)
			_, err := svc.Optimize(context.Background(), tt.req)
			var ve *domain.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if len(ve.Problems) == 0 {
				t.Error("expected at least one problem")
			}
		})
	}
}

func TestOptimize_SkipsMissingCoordinates(t *testing.T) {
	repo := &mockRouteRepo{}
	svc := usecases.NewRouteOptimizationService(staticDeliveries(
		domain.DeliveryCandidate{ID: "A", Point: pt(43.27, -2.94)},
		domain.DeliveryCandidate{ID: "B"},
	), repo, nil, testCfg)

	res, err := svc.Optimize(context.Background(), baseRequest("A", "B"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Stops) != 1 || res.Stops[0].DeliveryID != "A" {
		t.Fatalf("expected single stop A, got %+v", res.Stops)
	}
	want := domain.SkippedDelivery{DeliveryID: "B", Reason: domain.SkipMissingCoordinates}
	if len(res.SkippedDeliveries) != 1 || res.SkippedDeliveries[0] != want {
		t.Errorf("expected %v skipped, got %v", want, res.SkippedDeliveries)
	}
	if !res.PartialCoverage {
		t.Error("expected partial coverage warning")
	}
	if res.RouteID != nil || len(repo.plans) != 0 {
		t.Error("preview must not persist anything")
	}
}

func TestOptimize_SkipReasons(t *testing.T) {
	svc := usecases.NewRouteOptimizationService(staticDeliveries(
		domain.DeliveryCandidate{ID: "ok", Point: pt(43.27, -2.94)},
		domain.DeliveryCandidate{ID: "nocoords"},
		domain.DeliveryCandidate{ID: "bad", Point: pt(123, 0)},
	), &mockRouteRepo{}, nil, testCfg)

	res, err := svc.Optimize(context.Background(), baseRequest("nocoords", "ok", "ghost", "bad"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []domain.SkippedDelivery{
		{DeliveryID: "nocoords", Reason: domain.SkipMissingCoordinates},
		{DeliveryID: "ghost", Reason: domain.SkipNotFound},
		{DeliveryID: "bad", Reason: domain.SkipInvalidCoordinates},
	}
	if len(res.SkippedDeliveries) != len(want) {
		t.Fatalf("expected %d skipped, got %v", len(want), res.SkippedDeliveries)
	}
	for i := range want {
		if res.SkippedDeliveries[i] != want[i] {
			t.Errorf("skipped[%d] = %v, want %v", i, res.SkippedDeliveries[i], want[i])
		}
	}
}

func TestOptimize_SkipsClosedDeliveries(t *testing.T) {
	repo := &mockRouteRepo{}
	svc := usecases.NewRouteOptimizationService(staticDeliveries(
		domain.DeliveryCandidate{ID: "A", Status: domain.DeliveryPending, Point: pt(43.27, -2.94)},
		domain.DeliveryCandidate{ID: "R", Status: domain.DeliveryAssigned, Point: pt(43.26, -2.93)},
		domain.DeliveryCandidate{ID: "X", Status: domain.DeliveryDelivered, Point: pt(43.28, -2.95)},
		domain.DeliveryCandidate{ID: "Y", Status: domain.DeliveryCancelled, Point: pt(43.25, -2.92)},
	), repo, nil, testCfg)

	req := baseRequest("A", "X", "R", "Y")
	req.SaveRoute = true
	res, err := svc.Optimize(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(res.Stops) != 2 {
		t.Fatalf("expected 2 stops, got %d", len(res.Stops))
	}
	want := []domain.SkippedDelivery{
		{DeliveryID: "X", Reason: domain.SkipDeliveryClosed},
		{DeliveryID: "Y", Reason: domain.SkipDeliveryClosed},
	}
	if len(res.SkippedDeliveries) != len(want) {
		t.Fatalf("expected %v skipped, got %v", want, res.SkippedDeliveries)
	}
	for i := range want {
		if res.SkippedDeliveries[i] != want[i] {
			t.Errorf("skipped[%d] = %v, want %v", i, res.SkippedDeliveries[i], want[i])
		}
	}

	if len(repo.plans) != 1 {
		t.Fatalf("expected one plan, got %d", len(repo.plans))
	}
	for _, id := range repo.plans[0].Assignment.DeliveryIDs {
		if id == "X" || id == "Y" {
			t.Errorf("closed delivery %s must not be reassigned", id)
		}
	}
}

func TestOptimize_OnlyClosedDeliveries(t *testing.T) {
	svc := usecases.NewRouteOptimizationService(staticDeliveries(
		domain.DeliveryCandidate{ID: "X", Status: domain.DeliveryDelivered, Point: pt(43.28, -2.95)},
		domain.DeliveryCandidate{ID: "Y", Status: domain.DeliveryCancelled, Point: pt(43.25, -2.92)},
	), &mockRouteRepo{}, nil, testCfg)

	_, err := svc.Optimize(context.Background(), baseRequest("X", "Y"))
	var ne *domain.NoRoutableDeliveriesError
	if !errors.As(err, &ne) {
		t.Fatalf("expected NoRoutableDeliveriesError, got %v", err)
	}
	for _, s := range ne.Skipped {
		if s.Reason != domain.SkipDeliveryClosed {
			t.Errorf("%s skipped as %s, want %s", s.DeliveryID, s.Reason, domain.SkipDeliveryClosed)
		}
	}
}

func TestOptimize_AllSkipped(t *testing.T) {
	svc := usecases.NewRouteOptimizationService(staticDeliveries(
		domain.DeliveryCandidate{ID: "A"},
		domain.DeliveryCandidate{ID: "B"},
	), &mockRouteRepo{}, nil, testCfg)

	_, err := svc.Optimize(context.Background(), baseRequest("A", "B"))
	var ne *domain.NoRoutableDeliveriesError
	if !errors.As(err, &ne) {
		t.Fatalf("expected NoRoutableDeliveriesError, got %v", err)
	}
	if len(ne.Skipped) != 2 {
		t.Errorf("expected both deliveries listed, got %v", ne.Skipped)
	}
}

func TestOptimize_LoadErrorIsWrapped(t *testing.T) {
	boom := errors.New("db down")
	svc := usecases.NewRouteOptimizationService(&mockDeliveryRepo{
		loadFn: func(ctx context.Context, ids []string) ([]domain.DeliveryCandidate, error) { return nil, boom },
	}, &mockRouteRepo{}, nil, testCfg)

	_, err := svc.Optimize(context.Background(), baseRequest("A"))
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped load error, got %v", err)
	}
}

func TestOptimize_SavePersistsPlan(t *testing.T) {
	repo := &mockRouteRepo{}
	pub := &mockPublisher{}
	svc := usecases.NewRouteOptimizationService(staticDeliveries(
		domain.DeliveryCandidate{ID: "A", Point: pt(43.2700, -2.9400)},
		domain.DeliveryCandidate{ID: "B", Point: pt(43.2500, -2.9200)},
		domain.DeliveryCandidate{ID: "C", Point: pt(43.2800, -2.9700)},
	), repo, pub, testCfg)

	req := baseRequest("A", "B", "C")
	req.SaveRoute = true
	req.ReturnToDepot = true
	req.Notes = "fragile"

	res, err := svc.Optimize(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(repo.plans) != 1 {
		t.Fatalf("expected exactly one CreatePlan call, got %d", len(repo.plans))
	}
	plan := repo.plans[0]

	if res.RouteID == nil || *res.RouteID != plan.Route.ID || plan.Route.ID == "" {
		t.Fatalf("result route id %v does not match plan %q", res.RouteID, plan.Route.ID)
	}
	r := plan.Route
	if r.Status != domain.RoutePlanned || r.OptimizationMethod != "haversine" {
		t.Errorf("unexpected route status/method: %s %s", r.Status, r.OptimizationMethod)
	}
	if r.TotalDistance != res.Summary.TotalDistanceKm || r.EstimatedDuration != res.Summary.EstimatedDurationMinutes {
		t.Errorf("route totals do not match summary")
	}
	if r.DriverID != "driver-7" || r.VehicleID != "van-3" || r.Notes != "fragile" || !r.ReturnToDepot {
		t.Errorf("unexpected route fields %+v", r)
	}
	if got := r.ScheduledDate.Format(domain.DateLayout); got != "2024-05-14" {
		t.Errorf("expected scheduled date 2024-05-14, got %s", got)
	}
	if r.Depot == nil || *r.Depot != testCfg.Depot {
		t.Errorf("route depot = %v, want %v", r.Depot, testCfg.Depot)
	}

	if len(plan.Stops) != len(res.Stops) {
		t.Fatalf("expected %d route stops, got %d", len(res.Stops), len(plan.Stops))
	}
	for i, st := range plan.Stops {
		if st.StopNumber != i+1 || st.DeliveryID != res.Stops[i].DeliveryID || st.Status != domain.StopPending || st.RouteID != r.ID {
			t.Errorf("stop %d mismatch: %+v", i, st)
		}
		if plan.Assignment.DeliveryIDs[i] != st.DeliveryID {
			t.Errorf("assignment order differs at %d", i)
		}
	}
	a := plan.Assignment
	if a.RouteID != r.ID || a.Status != domain.DeliveryAssigned || a.DriverID != "driver-7" || a.VehicleID != "van-3" {
		t.Errorf("unexpected assignment %+v", a)
	}

	if len(pub.events) != 1 || pub.events[0].Type != domain.EventRoutePlanned || pub.events[0].RouteID != r.ID {
		t.Errorf("expected one route.planned event, got %+v", pub.events)
	}
}

func TestOptimize_PersistenceFailure(t *testing.T) {
	pub := &mockPublisher{}
	repo := &mockRouteRepo{
		createPlanFn: func(ctx context.Context, plan *domain.RoutePlan) error {
			return errors.New("unique violation")
		},
	}
	svc := usecases.NewRouteOptimizationService(staticDeliveries(
		domain.DeliveryCandidate{ID: "A", Point: pt(43.27, -2.94)},
	), repo, pub, testCfg)

	req := baseRequest("A")
	req.SaveRoute = true
	_, err := svc.Optimize(context.Background(), req)

	var pe *domain.PersistenceError
	if !errors.As(err, &pe) {
		t.Fatalf("expected PersistenceError, got %v", err)
	}
	if len(pub.events) != 0 {
		t.Error("no event may be published for a failed save")
	}
}

func TestOptimize_PublishFailureDoesNotFail(t *testing.T) {
	pub := &mockPublisher{err: errors.New("nats: no responders")}
	svc := usecases.NewRouteOptimizationService(staticDeliveries(
		domain.DeliveryCandidate{ID: "A", Point: pt(43.27, -2.94)},
	), &mockRouteRepo{}, pub, testCfg)

	req := baseRequest("A")
	req.SaveRoute = true
	res, err := svc.Optimize(context.Background(), req)
	if err != nil {
		t.Fatalf("publish failure should be logged, not returned: %v", err)
	}
	if res.RouteID == nil {
		t.Error("expected route id")
	}
}

func TestOptimize_DefaultsScheduledDate(t *testing.T) {
	repo := &mockRouteRepo{}
	svc := usecases.NewRouteOptimizationService(staticDeliveries(
		domain.DeliveryCandidate{ID: "A", Point: pt(43.27, -2.94)},
	), repo, nil, testCfg)

	req := baseRequest("A")
	req.ScheduledDate = ""
	req.SaveRoute = true
	if _, err := svc.Optimize(context.Background(), req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.plans[0].Route.ScheduledDate.IsZero() {
		t.Error("expected scheduled date to default to today")
	}
}

func TestOptimize_TwoSavesCreateTwoRoutes(t *testing.T) {
	repo := &mockRouteRepo{}
	svc := usecases.NewRouteOptimizationService(staticDeliveries(
		domain.DeliveryCandidate{ID: "A", Point: pt(43.27, -2.94)},
	), repo, nil, testCfg)

	req := baseRequest("A")
	req.SaveRoute = true
	first, _ := svc.Optimize(context.Background(), req)
	second, _ := svc.Optimize(context.Background(), req)
	if first == nil || second == nil || *first.RouteID == *second.RouteID {
		t.Fatal("expected two independent routes")
	}
}

func TestOptimize_PreviewIsRepeatable(t *testing.T) {
	repo := &mockRouteRepo{}
	pub := &mockPublisher{}
	svc := usecases.NewRouteOptimizationService(staticDeliveries(
		domain.DeliveryCandidate{ID: "A", Point: pt(43.27, -2.94)},
		domain.DeliveryCandidate{ID: "B", Point: pt(43.25, -2.92)},
	), repo, pub, testCfg)

	first, err := svc.Optimize(context.Background(), baseRequest("A", "B"))
	if err != nil {
		t.Fatal(err)
	}
	second, err := svc.Optimize(context.Background(), baseRequest("B", "A"))
	if err != nil {
		t.Fatal(err)
	}
	for i := range first.Stops {
		if first.Stops[i].DeliveryID != second.Stops[i].DeliveryID {
			t.Fatalf("preview order differs at %d", i)
		}
	}
	if len(repo.plans) != 0 || len(pub.events) != 0 {
		t.Error("preview must have no side effects")
	}
}

func TestOptimize_SkipAccounting(t *testing.T) {
	r := rand.New(rand.NewSource(17))
	for trial := 0; trial < 25; trial++ {
		var all []domain.DeliveryCandidate
		var ids []string
		n := 1 + r.Intn(30)
		for i := 0; i < n; i++ {
			id := fmt.Sprintf("d%02d", i)
			ids = append(ids, id)
			switch r.Intn(4) {
			case 0: // no coordinates
				all = append(all, domain.DeliveryCandidate{ID: id})
			case 1: // unknown to the store
			default:
				all = append(all, domain.DeliveryCandidate{ID: id, Point: pt(43.2+r.Float64()/10, -2.9-r.Float64()/10)})
			}
		}

		svc := usecases.NewRouteOptimizationService(staticDeliveries(all...), &mockRouteRepo{}, nil, testCfg)
		res, err := svc.Optimize(context.Background(), baseRequest(ids...))

		var ne *domain.NoRoutableDeliveriesError
		switch {
		case errors.As(err, &ne):
			if len(ne.Skipped) != len(ids) {
				t.Fatalf("trial %d: %d skipped for %d ids", trial, len(ne.Skipped), len(ids))
			}
		case err != nil:
			t.Fatalf("trial %d: unexpected error %v", trial, err)
		default:
			if got := len(res.Stops) + len(res.SkippedDeliveries); got != len(ids) {
				t.Fatalf("trial %d: stops+skipped = %d, want %d", trial, got, len(ids))
			}
			seen := map[string]bool{}
			for _, s := range res.Stops {
				seen[s.DeliveryID] = true
			}
			for _, s := range res.SkippedDeliveries {
				if seen[s.DeliveryID] {
					t.Fatalf("trial %d: %s both routed and skipped", trial, s.DeliveryID)
				}
				seen[s.DeliveryID] = true
			}
			if len(seen) != len(ids) {
				t.Fatalf("trial %d: %d distinct ids accounted, want %d", trial, len(seen), len(ids))
			}
		}
	}
}
