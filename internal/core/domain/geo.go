package domain

import (
	"fmt"

	"github.com/samirrijal/routeplanner/internal/pkg/geospatial"
)

// GeoPoint represents a geographic coordinate (WGS 84).
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Valid reports whether the point is a finite coordinate within WGS 84 range.
func (p GeoPoint) Valid() bool { return geospatial.ValidCoordinate(p.Lat, p.Lon) }

func (p GeoPoint) String() string { return fmt.Sprintf("(%.6f, %.6f)", p.Lat, p.Lon) }
