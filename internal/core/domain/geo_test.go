package domain_test

import (
	"math"
	"testing"

	"github.com/samirrijal/routeplanner/internal/core/domain"
)

func TestGeoPoint_Valid(t *testing.T) {
	cases := []struct {
		p    domain.GeoPoint
		want bool
	}{
		{domain.GeoPoint{Lat: 43.263, Lon: -2.935}, true},
		{domain.GeoPoint{Lat: 90, Lon: 180}, true},
		{domain.GeoPoint{Lat: -90, Lon: -180}, true},
		{domain.GeoPoint{Lat: 90.0001, Lon: 0}, false},
		{domain.GeoPoint{Lat: 0, Lon: -180.5}, false},
		{domain.GeoPoint{Lat: math.NaN(), Lon: 0}, false},
	}
	for _, tc := range cases {
		if got := tc.p.Valid(); got != tc.want {
			t.Errorf("%s.Valid() = %v, want %v", tc.p, got, tc.want)
		}
	}
}
