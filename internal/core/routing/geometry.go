package routing

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/samirrijal/routeplanner/internal/core/domain"
)

func orbPoint(p domain.GeoPoint) orb.Point { return orb.Point{p.Lon, p.Lat} }

// Geometry renders a sequenced route as GeoJSON: one LineString feature for
// the path from the depot through every stop (and back, when returnToDepot),
// a Point for the depot and a Point per stop. The collection's bbox covers
// all of them.
func Geometry(depot domain.GeoPoint, stops []domain.SequencedStop, returnToDepot bool) *geojson.FeatureCollection {
	path := make(orb.LineString, 0, len(stops)+2)
	path = append(path, orbPoint(depot))
	for _, st := range stops {
		path = append(path, orbPoint(st.Point))
	}
	if returnToDepot && len(stops) > 0 {
		path = append(path, orbPoint(depot))
	}

	fc := geojson.NewFeatureCollection()

	line := geojson.NewFeature(path)
	line.Properties["kind"] = "path"
	line.Properties["return_to_depot"] = returnToDepot
	if n := len(stops); n > 0 {
		line.Properties["distance_km"] = stops[n-1].CumulativeDistanceKm
	}
	fc.Append(line)

	d := geojson.NewFeature(orbPoint(depot))
	d.Properties["kind"] = "depot"
	fc.Append(d)

	for _, st := range stops {
		f := geojson.NewFeature(orbPoint(st.Point))
		f.Properties["kind"] = "stop"
		f.Properties["stop_number"] = st.StopNumber
		f.Properties["delivery_id"] = st.DeliveryID
		f.Properties["leg_distance_km"] = st.LegDistanceKm
		f.Properties["cumulative_distance_km"] = st.CumulativeDistanceKm
		fc.Append(f)
	}

	fc.BBox = geojson.NewBBox(path.Bound())
	return fc
}

// StopsFromRoute converts persisted stops back to their sequenced form.
func StopsFromRoute(stops []domain.RouteStop) []domain.SequencedStop {
	out := make([]domain.SequencedStop, len(stops))
	for i, st := range stops {
		out[i] = domain.SequencedStop{
			StopNumber:           st.StopNumber,
			DeliveryID:           st.DeliveryID,
			Point:                st.Point,
			LegDistanceKm:        st.LegDistanceKm,
			CumulativeDistanceKm: st.CumulativeDistanceKm,
		}
	}
	return out
}
