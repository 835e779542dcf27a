package routing

import (
	"fmt"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/samirrijal/routeplanner/internal/core/domain"
	"github.com/samirrijal/routeplanner/internal/pkg/geospatial"
)

// parallelThreshold is the point count from which matrix rows are filled concurrently.
const parallelThreshold = 64

// DistanceKm is the great-circle distance between two points.
func DistanceKm(a, b domain.GeoPoint) float64 {
	return geospatial.HaversineKm(a.Lat, a.Lon, b.Lat, b.Lon)
}

// matrix is a dense symmetric distance table. Index 0 is the depot.
type matrix struct {
	n int
	d []float64
}

func (m *matrix) at(i, j int) float64 {
	return m.d[i*m.n+j]
}

// buildMatrix panics on a distance that is not a finite non-negative number.
// Points are validated before they get here, so that is a caller bug.
func buildMatrix(points []domain.GeoPoint) *matrix {
	n := len(points)
	m := &matrix{n: n, d: make([]float64, n*n)}

	// Row i owns cells (i,j) and (j,i) for j > i, so rows never share writes.
	fillRow := func(i int) error {
		for j := i + 1; j < n; j++ {
			d := DistanceKm(points[i], points[j])
			if math.IsNaN(d) || math.IsInf(d, 0) || d < 0 {
				return fmt.Errorf("routing: distance between points %d and %d is %v", i, j, d)
			}
			m.d[i*n+j] = d
			m.d[j*n+i] = d
		}
		return nil
	}

	if n < parallelThreshold {
		for i := 0; i < n; i++ {
			if err := fillRow(i); err != nil {
				panic(err)
			}
		}
		return m
	}

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error { return fillRow(i) })
	}
	if err := g.Wait(); err != nil {
		panic(err)
	}
	return m
}
