package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/samirrijal/routeplanner/internal/core/domain"
	"github.com/samirrijal/routeplanner/internal/core/ports"
	"github.com/samirrijal/routeplanner/internal/core/routing"
	"github.com/samirrijal/routeplanner/internal/pkg/metrics"
)

var tracer = otel.Tracer("github.com/samirrijal/routeplanner/internal/core/usecases")

// RouteOptimizationService turns a set of deliveries into an ordered route
// and, on request, persists it.
type RouteOptimizationService struct {
	deliveries ports.DeliveryRepository
	routes     ports.RouteRepository
	publisher  ports.EventPublisher
	engine     *routing.Engine

	newID func() string
	now   func() time.Time
}

// NewRouteOptimizationService creates a new RouteOptimizationService.
// publisher may be nil.
func NewRouteOptimizationService(
	deliveries ports.DeliveryRepository,
	routes ports.RouteRepository,
	publisher ports.EventPublisher,
	cfg routing.Config,
) *RouteOptimizationService {
	return &RouteOptimizationService{
		deliveries: deliveries,
		routes:     routes,
		publisher:  publisher,
		engine:     routing.NewEngine(cfg),
		newID:      uuid.NewString,
		now:        time.Now,
	}
}

// Depot returns the fixed origin every route starts from.
func (s *RouteOptimizationService) Depot() domain.GeoPoint { return s.engine.Depot() }

// Optimize sequences the requested deliveries from the depot. Deliveries
// without usable coordinates are reported in SkippedDeliveries. When
// req.SaveRoute is set, the route, its stops and the delivery assignment are
// written atomically; otherwise nothing is persisted.
func (s *RouteOptimizationService) Optimize(ctx context.Context, req domain.OptimizationRequest) (*domain.OptimizationResult, error) {
	ctx, span := tracer.Start(ctx, "RouteOptimizationService.Optimize")
	defer span.End()
	span.SetAttributes(
		attribute.Int("route.requested_deliveries", len(req.DeliveryIDs)),
		attribute.Bool("route.save", req.SaveRoute),
	)

	start := time.Now()
	res, err := s.optimize(ctx, req)
	metrics.OptimizeDuration.Observe(time.Since(start).Seconds())
	metrics.Optimizations.WithLabelValues(outcome(err), mode(req.SaveRoute)).Inc()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	metrics.StopsPerRoute.Observe(float64(res.Summary.StopCount))
	for _, sk := range res.SkippedDeliveries {
		metrics.SkippedDeliveries.WithLabelValues(string(sk.Reason)).Inc()
	}
	span.SetAttributes(
		attribute.Int("route.stops", res.Summary.StopCount),
		attribute.Float64("route.distance_km", res.Summary.TotalDistanceKm),
	)
	return res, nil
}

func (s *RouteOptimizationService) optimize(ctx context.Context, req domain.OptimizationRequest) (*domain.OptimizationResult, error) {
	scheduled, err := s.validate(req)
	if err != nil {
		return nil, err
	}

	loaded, err := s.deliveries.LoadCandidates(ctx, req.DeliveryIDs)
	if err != nil {
		return nil, fmt.Errorf("load deliveries: %w", err)
	}

	routable, skipped := partition(req.DeliveryIDs, loaded)
	if len(routable) == 0 {
		return nil, &domain.NoRoutableDeliveriesError{Skipped: skipped}
	}

	stops, summary := s.engine.Plan(routable, req.ReturnToDepot)

	res := &domain.OptimizationResult{
		Depot:             s.engine.Depot(),
		ReturnToDepot:     req.ReturnToDepot,
		Stops:             stops,
		Summary:           summary,
		SkippedDeliveries: skipped,
		PartialCoverage:   len(skipped) > 0,
	}

	logger := slog.Default().With("driver_id", req.DriverID, "vehicle_id", req.VehicleID)
	if res.PartialCoverage {
		logger.WarnContext(ctx, "route built with skipped deliveries",
			"requested", len(req.DeliveryIDs), "skipped", len(skipped))
	}

	if !req.SaveRoute {
		return res, nil
	}

	plan := s.buildPlan(req, scheduled, stops, summary)
	if err := s.routes.CreatePlan(ctx, plan); err != nil {
		return nil, &domain.PersistenceError{Op: "create route plan", Err: err}
	}

	routeID := plan.Route.ID
	res.RouteID = &routeID
	logger.InfoContext(ctx, "route planned",
		"route_id", routeID, "stops", summary.StopCount, "distance_km", summary.TotalDistanceKm)

	if s.publisher != nil {
		event := &domain.RouteEvent{
			Type:          domain.EventRoutePlanned,
			RouteID:       routeID,
			DriverID:      plan.Route.DriverID,
			VehicleID:     plan.Route.VehicleID,
			ScheduledDate: plan.Route.ScheduledDate.Format(domain.DateLayout),
			Status:        plan.Route.Status,
			StopCount:     summary.StopCount,
			DistanceKm:    summary.TotalDistanceKm,
			Time:          s.now().UTC(),
		}
		// The route is committed; a lost event must not fail the request.
		if err := s.publisher.PublishRouteEvent(ctx, event); err != nil {
			logger.WarnContext(ctx, "publish route event failed", "route_id", routeID, "error", err)
		}
	}

	return res, nil
}

func (s *RouteOptimizationService) validate(req domain.OptimizationRequest) (time.Time, error) {
	var problems []string

	if len(req.DeliveryIDs) == 0 {
		problems = append(problems, "delivery_ids must not be empty")
	}
	seen := make(map[string]struct{}, len(req.DeliveryIDs))
	for i, id := range req.DeliveryIDs {
		if strings.TrimSpace(id) == "" {
			problems = append(problems, fmt.Sprintf("delivery_ids[%d] is blank", i))
			continue
		}
		if _, dup := seen[id]; dup {
			problems = append(problems, fmt.Sprintf("delivery_ids contains %q more than once", id))
		}
		seen[id] = struct{}{}
	}
	if strings.TrimSpace(req.DriverID) == "" {
		problems = append(problems, "driver_id is required")
	}
	if strings.TrimSpace(req.VehicleID) == "" {
		problems = append(problems, "vehicle_id is required")
	}

	var scheduled time.Time
	if req.ScheduledDate == "" {
		y, m, d := s.now().UTC().Date()
		scheduled = time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	} else {
		t, err := time.Parse(domain.DateLayout, req.ScheduledDate)
		if err != nil {
			problems = append(problems, "scheduled_date must be YYYY-MM-DD")
		}
		scheduled = t
	}

	if len(problems) > 0 {
		return time.Time{}, &domain.ValidationError{Problems: problems}
	}
	return scheduled, nil
}

// partition accounts for every requested id exactly once, preserving request
// order in the skip list.
func partition(requested []string, loaded []domain.DeliveryCandidate) ([]domain.DeliveryCandidate, []domain.SkippedDelivery) {
	byID := make(map[string]domain.DeliveryCandidate, len(loaded))
	for _, c := range loaded {
		byID[c.ID] = c
	}

	routable := make([]domain.DeliveryCandidate, 0, len(requested))
	skipped := make([]domain.SkippedDelivery, 0)
	for _, id := range requested {
		c, ok := byID[id]
		switch {
		case !ok:
			skipped = append(skipped, domain.SkippedDelivery{DeliveryID: id, Reason: domain.SkipNotFound})
		case !c.Status.Assignable():
			skipped = append(skipped, domain.SkippedDelivery{DeliveryID: id, Reason: domain.SkipDeliveryClosed})
		case c.Point == nil:
			skipped = append(skipped, domain.SkippedDelivery{DeliveryID: id, Reason: domain.SkipMissingCoordinates})
		case !c.Point.Valid():
			skipped = append(skipped, domain.SkippedDelivery{DeliveryID: id, Reason: domain.SkipInvalidCoordinates})
		default:
			routable = append(routable, c)
		}
	}
	return routable, skipped
}

func (s *RouteOptimizationService) buildPlan(req domain.OptimizationRequest, scheduled time.Time, stops []domain.SequencedStop, summary domain.RouteSummary) *domain.RoutePlan {
	routeID := s.newID()
	depot := s.engine.Depot()

	name := strings.TrimSpace(req.RouteName)
	if name == "" {
		name = fmt.Sprintf("%s %s (%d stops)", scheduled.Format(domain.DateLayout), req.DriverID, summary.StopCount)
	}

	plan := &domain.RoutePlan{
		Route: domain.Route{
			ID:                 routeID,
			RouteName:          name,
			ScheduledDate:      scheduled,
			DriverID:           req.DriverID,
			VehicleID:          req.VehicleID,
			Status:             domain.RoutePlanned,
			TotalDistance:      summary.TotalDistanceKm,
			EstimatedDuration:  summary.EstimatedDurationMinutes,
			Notes:              req.Notes,
			OptimizationMethod: domain.OptimizationMethod,
			ReturnToDepot:      req.ReturnToDepot,
			Depot:              &depot,
			CreatedAt:          s.now().UTC(),
		},
		Stops: make([]domain.RouteStop, len(stops)),
		Assignment: domain.DeliveryAssignment{
			RouteID:       routeID,
			DeliveryIDs:   make([]string, len(stops)),
			DriverID:      req.DriverID,
			VehicleID:     req.VehicleID,
			ScheduledDate: scheduled,
			Status:        domain.DeliveryAssigned,
		},
	}

	for i, st := range stops {
		plan.Stops[i] = domain.RouteStop{
			ID:                   s.newID(),
			RouteID:              routeID,
			DeliveryID:           st.DeliveryID,
			StopNumber:           st.StopNumber,
			Status:               domain.StopPending,
			Point:                st.Point,
			LegDistanceKm:        st.LegDistanceKm,
			CumulativeDistanceKm: st.CumulativeDistanceKm,
		}
		plan.Assignment.DeliveryIDs[i] = st.DeliveryID
	}
	return plan
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return errorKind(err)
}

func mode(save bool) string {
	if save {
		return "save"
	}
	return "preview"
}
