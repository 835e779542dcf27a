package geospatial_test

import (
	"math"
	"math/rand"
	"testing"

	"github.com/samirrijal/routeplanner/internal/pkg/geospatial"
)

type point struct{ lat, lon float64 }

func randomPoint(r *rand.Rand) point {
	return point{lat: r.Float64()*180 - 90, lon: r.Float64()*360 - 180}
}

func TestHaversineKm_KnownDistance(t *testing.T) {
	// Bilbao (Moyua) to Madrid (Puerta del Sol), ~323 km great-circle.
	d := geospatial.HaversineKm(43.2630, -2.9350, 40.4169, -3.7035)
	if d < 318 || d > 328 {
		t.Errorf("expected ~323 km, got %.2f", d)
	}

	// One degree along the equator.
	d = geospatial.HaversineKm(0, 0, 0, 1)
	want := 6371.0 * math.Pi / 180
	if math.Abs(d-want) > 1e-9 {
		t.Errorf("expected %.6f, got %.6f", want, d)
	}
}

func TestHaversineKm_Identity(t *testing.T) {
	points := []point{
		{0, 0},
		{90, 0},
		{-90, 0},
		{90, 180},
		{-90, -180},
		{0, 180},
		{0, -180},
		{43.2630, -2.9350},
		{-33.8688, 151.2093},
	}
	for _, p := range points {
		d := geospatial.HaversineKm(p.lat, p.lon, p.lat, p.lon)
		if d != 0 {
			t.Errorf("distance(%v, %v) = %v, want exactly 0", p, p, d)
		}
	}
}

func TestHaversineKm_AntimeridianAndPoles(t *testing.T) {
	// +180 and -180 are the same meridian.
	if d := geospatial.HaversineKm(10, 180, 10, -180); d > 1e-6 {
		t.Errorf("antimeridian points should coincide, got %v km", d)
	}
	// Any two longitudes at the pole are the same point.
	if d := geospatial.HaversineKm(90, 0, 90, 123); d > 1e-6 {
		t.Errorf("north pole points should coincide, got %v km", d)
	}
	// Crossing the antimeridian takes the short way round.
	d := geospatial.HaversineKm(0, 179.5, 0, -179.5)
	if math.Abs(d-6371.0*math.Pi/180) > 1e-6 {
		t.Errorf("expected one degree across antimeridian, got %v km", d)
	}
	// Antipodes must not produce NaN.
	d = geospatial.HaversineKm(0, 0, 0, 180)
	if math.IsNaN(d) || math.Abs(d-math.Pi*6371.0) > 1e-6 {
		t.Errorf("expected half circumference, got %v", d)
	}
}

func TestHaversineKm_Symmetry(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for i := 0; i < 500; i++ {
		a, b := randomPoint(r), randomPoint(r)
		ab := geospatial.HaversineKm(a.lat, a.lon, b.lat, b.lon)
		ba := geospatial.HaversineKm(b.lat, b.lon, a.lat, a.lon)
		if math.Abs(ab-ba) > 1e-9 {
			t.Fatalf("asymmetric distance for %v %v: %v vs %v", a, b, ab, ba)
		}
	}
}

func TestHaversineKm_TriangleInequality(t *testing.T) {
	r := rand.New(rand.NewSource(11))
	for i := 0; i < 500; i++ {
		a, b, c := randomPoint(r), randomPoint(r), randomPoint(r)
		ac := geospatial.HaversineKm(a.lat, a.lon, c.lat, c.lon)
		ab := geospatial.HaversineKm(a.lat, a.lon, b.lat, b.lon)
		bc := geospatial.HaversineKm(b.lat, b.lon, c.lat, c.lon)
		if ac > ab+bc+1e-6 {
			t.Fatalf("triangle inequality violated: %v > %v + %v", ac, ab, bc)
		}
	}
}

func TestHaversine_Meters(t *testing.T) {
	km := geospatial.HaversineKm(43.26, -2.93, 43.27, -2.94)
	m := geospatial.Haversine(43.26, -2.93, 43.27, -2.94)
	if math.Abs(km*1000-m) > 1e-6 {
		t.Errorf("meters %v should equal km*1000 %v", m, km*1000)
	}
}

func TestEstimatedMinutes(t *testing.T) {
	if got := geospatial.EstimatedMinutes(15, 30); got != 30 {
		t.Errorf("15 km at 30 km/h: got %v, want 30", got)
	}
	if got := geospatial.EstimatedMinutes(0, 30); got != 0 {
		t.Errorf("zero distance: got %v", got)
	}
	if got := geospatial.EstimatedMinutes(10, 0); got != 0 {
		t.Errorf("non-positive speed should yield 0, got %v", got)
	}
}

func TestValidCoordinate(t *testing.T) {
	tests := []struct {
		lat, lon float64
		want     bool
	}{
		{0, 0, true},
		{90, 180, true},
		{-90, -180, true},
		{90.0001, 0, false},
		{0, 180.5, false},
		{math.NaN(), 0, false},
	}
	for _, tt := range tests {
		if got := geospatial.ValidCoordinate(tt.lat, tt.lon); got != tt.want {
			t.Errorf("ValidCoordinate(%v, %v) = %v, want %v", tt.lat, tt.lon, got, tt.want)
		}
	}
}
