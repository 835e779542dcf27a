package routing_test

import (
	"testing"

	"github.com/paulmach/orb"

	"github.com/samirrijal/routeplanner/internal/core/domain"
	"github.com/samirrijal/routeplanner/internal/core/routing"
)

func TestGeometry_ClosedPath(t *testing.T) {
	stops := []domain.SequencedStop{
		{StopNumber: 1, DeliveryID: "a", Point: domain.GeoPoint{Lat: 43.30, Lon: -2.90}, CumulativeDistanceKm: 5},
		{StopNumber: 2, DeliveryID: "b", Point: domain.GeoPoint{Lat: 43.10, Lon: -2.50}, CumulativeDistanceKm: 40},
	}
	fc := routing.Geometry(depot, stops, true)

	if len(fc.Features) != 4 {
		t.Fatalf("expected path + depot + 2 stops, got %d features", len(fc.Features))
	}
	path, ok := fc.Features[0].Geometry.(orb.LineString)
	if !ok {
		t.Fatalf("expected first feature to be a LineString, got %T", fc.Features[0].Geometry)
	}
	if len(path) != 4 || path[0] != path[3] {
		t.Errorf("expected closed path of 4 points, got %v", path)
	}
	if path[1] != (orb.Point{-2.90, 43.30}) {
		t.Errorf("expected lon/lat ordering, got %v", path[1])
	}

	bound := fc.BBox.Bound()
	for _, p := range path {
		if !bound.Contains(p) {
			t.Errorf("bbox %v does not contain %v", bound, p)
		}
	}
	if got := fc.Features[3].Properties["delivery_id"]; got != "b" {
		t.Errorf("expected last stop feature for b, got %v", got)
	}
}

func TestGeometry_EmptyRouteIsDepotOnly(t *testing.T) {
	fc := routing.Geometry(depot, nil, true)
	path := fc.Features[0].Geometry.(orb.LineString)
	if len(path) != 1 {
		t.Errorf("expected a single-point path, got %v", path)
	}
}
