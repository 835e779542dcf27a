package routing

import (
	"github.com/samirrijal/routeplanner/internal/core/domain"
	"github.com/samirrijal/routeplanner/internal/pkg/geospatial"
)

// SummaryBuilder aggregates a sequenced route into distance and duration totals.
type SummaryBuilder struct {
	AverageSpeedKmh       float64
	PerStopServiceMinutes float64
}

// Summarize walks the stops leg by leg. Duration is driving time at the
// average speed plus a flat service time per stop.
func (b SummaryBuilder) Summarize(depot domain.GeoPoint, stops []domain.SequencedStop, returnToDepot bool) domain.RouteSummary {
	sum := domain.RouteSummary{StopCount: len(stops)}

	for _, st := range stops {
		sum.TotalDistanceKm += st.LegDistanceKm
		sum.EstimatedDurationMinutes += geospatial.EstimatedMinutes(st.LegDistanceKm, b.AverageSpeedKmh) + b.PerStopServiceMinutes
	}

	if returnToDepot && len(stops) > 0 {
		sum.ReturnLegKm = DistanceKm(stops[len(stops)-1].Point, depot)
		sum.TotalDistanceKm += sum.ReturnLegKm
		sum.EstimatedDurationMinutes += geospatial.EstimatedMinutes(sum.ReturnLegKm, b.AverageSpeedKmh)
	}

	return sum
}

// Config holds the engine parameters. It is passed in explicitly; the engine
// never reads process-wide settings.
type Config struct {
	Depot                 domain.GeoPoint
	AverageSpeedKmh       float64
	PerStopServiceMinutes float64
	Max2OptPasses         int
}

// Engine couples a Sequencer and SummaryBuilder around a fixed depot.
type Engine struct {
	depot     domain.GeoPoint
	sequencer Sequencer
	summary   SummaryBuilder
}

// NewEngine creates an Engine from cfg.
func NewEngine(cfg Config) *Engine {
	return &Engine{
		depot:     cfg.Depot,
		sequencer: Sequencer{Max2OptPasses: cfg.Max2OptPasses},
		summary: SummaryBuilder{
			AverageSpeedKmh:       cfg.AverageSpeedKmh,
			PerStopServiceMinutes: cfg.PerStopServiceMinutes,
		},
	}
}

// Depot returns the route origin.
func (e *Engine) Depot() domain.GeoPoint { return e.depot }

// Plan sequences the candidates and summarizes the result.
func (e *Engine) Plan(candidates []domain.DeliveryCandidate, returnToDepot bool) ([]domain.SequencedStop, domain.RouteSummary) {
	stops := e.sequencer.Sequence(e.depot, candidates, returnToDepot)
	return stops, e.summary.Summarize(e.depot, stops, returnToDepot)
}
