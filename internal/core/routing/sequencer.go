// Package routing orders deliveries into a single-vehicle route and
// aggregates its distance and duration. It is pure computation: no I/O and no
// shared mutable state, so every function is safe for concurrent use.
package routing

import (
	"fmt"
	"math"
	"sort"

	"github.com/samirrijal/routeplanner/internal/core/domain"
)

const (
	// tieEpsilonKm treats two candidate distances as equal.
	tieEpsilonKm = 1e-9
	// improvementEpsilonKm is the minimum gain for a 2-opt move to be applied.
	improvementEpsilonKm = 1e-9
)

// Sequencer orders deliveries with greedy nearest-neighbor followed by 2-opt.
//
// Max2OptPasses bounds the local search: a positive value is used as is, zero
// means one pass per candidate, and a negative value disables 2-opt.
type Sequencer struct {
	Max2OptPasses int
}

// Sequence returns the candidates in visiting order, numbered from 1, with leg
// and cumulative distances measured from the depot. The return leg, if any, is
// not a stop.
//
// Every candidate must carry an in-range point and a unique id; anything else
// is a caller bug and panics.
func (s Sequencer) Sequence(depot domain.GeoPoint, candidates []domain.DeliveryCandidate, returnToDepot bool) []domain.SequencedStop {
	mustBeRoutable(candidates)
	if len(candidates) == 0 {
		return []domain.SequencedStop{}
	}

	sorted, points := prepare(depot, candidates)
	m := buildMatrix(points)

	order := nearestNeighbor(m, sorted)
	order = twoOpt(m, order, returnToDepot, s.passes(len(candidates)))

	stops := make([]domain.SequencedStop, len(order))
	prev := 0
	cumulative := 0.0
	for i, node := range order {
		leg := m.at(prev, node)
		cumulative += leg
		stops[i] = domain.SequencedStop{
			StopNumber:           i + 1,
			DeliveryID:           sorted[node-1].ID,
			Point:                *sorted[node-1].Point,
			LegDistanceKm:        leg,
			CumulativeDistanceKm: cumulative,
		}
		prev = node
	}

	mustBePermutation(candidates, stops)
	return stops
}

func (s Sequencer) passes(n int) int {
	switch {
	case s.Max2OptPasses > 0:
		return s.Max2OptPasses
	case s.Max2OptPasses == 0:
		return n
	default:
		return 0
	}
}

// NearestNeighbor returns the greedy visiting order from the depot without
// local improvement.
func NearestNeighbor(depot domain.GeoPoint, candidates []domain.DeliveryCandidate) []domain.DeliveryCandidate {
	mustBeRoutable(candidates)
	sorted, points := prepare(depot, candidates)
	return byNodes(sorted, nearestNeighbor(buildMatrix(points), sorted))
}

// TwoOpt improves a fixed visiting order. The depot stays first (and last when
// returnToDepot is set). maxPasses follows the Sequencer.Max2OptPasses rules.
func TwoOpt(depot domain.GeoPoint, order []domain.DeliveryCandidate, returnToDepot bool, maxPasses int) []domain.DeliveryCandidate {
	mustBeRoutable(order)
	points := make([]domain.GeoPoint, 0, len(order)+1)
	points = append(points, depot)
	nodes := make([]int, len(order))
	for i, c := range order {
		points = append(points, *c.Point)
		nodes[i] = i + 1
	}
	passes := Sequencer{Max2OptPasses: maxPasses}.passes(len(order))
	return byNodes(order, twoOpt(buildMatrix(points), nodes, returnToDepot, passes))
}

// PathLengthKm is the length of depot -> order[0] -> ... -> order[n-1], plus
// the way back when returnToDepot is set.
func PathLengthKm(depot domain.GeoPoint, order []domain.DeliveryCandidate, returnToDepot bool) float64 {
	total := 0.0
	prev := depot
	for _, c := range order {
		total += DistanceKm(prev, *c.Point)
		prev = *c.Point
	}
	if returnToDepot && len(order) > 0 {
		total += DistanceKm(prev, depot)
	}
	return total
}

// prepare sorts candidates by id and lays out the matrix points, depot first.
// Node k in the matrix is sorted[k-1].
func prepare(depot domain.GeoPoint, candidates []domain.DeliveryCandidate) ([]domain.DeliveryCandidate, []domain.GeoPoint) {
	sorted := make([]domain.DeliveryCandidate, len(candidates))
	copy(sorted, candidates)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	points := make([]domain.GeoPoint, 0, len(sorted)+1)
	points = append(points, depot)
	for _, c := range sorted {
		points = append(points, *c.Point)
	}
	return sorted, points
}

// nearestNeighbor expects nodes 1..len(sorted) to be in ascending id order, so
// the lowest node index wins a tie.
func nearestNeighbor(m *matrix, sorted []domain.DeliveryCandidate) []int {
	n := len(sorted)
	visited := make([]bool, n+1)
	order := make([]int, 0, n)
	current := 0

	for len(order) < n {
		best := -1
		bestDist := math.Inf(1)
		for node := 1; node <= n; node++ {
			if visited[node] {
				continue
			}
			d := m.at(current, node)
			if d < bestDist-tieEpsilonKm {
				best, bestDist = node, d
			}
		}
		visited[best] = true
		order = append(order, best)
		current = best
	}
	return order
}

// twoOpt reverses segments of the stop sequence while that shortens the path.
// Position 0 of the working path is the depot and never moves.
func twoOpt(m *matrix, order []int, closed bool, maxPasses int) []int {
	n := len(order)
	if n < 2 || maxPasses <= 0 {
		return order
	}

	path := make([]int, 0, n+2)
	path = append(path, 0)
	path = append(path, order...)
	if closed {
		path = append(path, 0)
	}

	for pass := 0; pass < maxPasses; pass++ {
		improved := false
		for i := 1; i < n; i++ {
			for k := i + 1; k <= n; k++ {
				a, b, c := path[i-1], path[i], path[k]
				delta := m.at(a, c) - m.at(a, b)
				if k+1 < len(path) {
					d := path[k+1]
					delta += m.at(b, d) - m.at(c, d)
				}
				if delta < -improvementEpsilonKm {
					reverse(path[i : k+1])
					improved = true
				}
			}
		}
		if !improved {
			break
		}
	}

	out := make([]int, n)
	copy(out, path[1:n+1])
	return out
}

func reverse(s []int) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}

func byNodes(sorted []domain.DeliveryCandidate, nodes []int) []domain.DeliveryCandidate {
	out := make([]domain.DeliveryCandidate, len(nodes))
	for i, node := range nodes {
		out[i] = sorted[node-1]
	}
	return out
}

func mustBeRoutable(candidates []domain.DeliveryCandidate) {
	seen := make(map[string]struct{}, len(candidates))
	for _, c := range candidates {
		if c.Point == nil {
			panic(fmt.Sprintf("routing: delivery %q reached the sequencer without coordinates", c.ID))
		}
		if !c.Point.Valid() {
			panic(fmt.Sprintf("routing: delivery %q has out-of-range coordinates %s", c.ID, c.Point))
		}
		if _, dup := seen[c.ID]; dup {
			panic(fmt.Sprintf("routing: delivery %q appears more than once", c.ID))
		}
		seen[c.ID] = struct{}{}
	}
}

func mustBePermutation(candidates []domain.DeliveryCandidate, stops []domain.SequencedStop) {
	if len(candidates) != len(stops) {
		panic(fmt.Sprintf("routing: sequenced %d stops for %d candidates", len(stops), len(candidates)))
	}
	want := make(map[string]struct{}, len(candidates))
	for _, c := range candidates {
		want[c.ID] = struct{}{}
	}
	for _, s := range stops {
		if _, ok := want[s.DeliveryID]; !ok {
			panic(fmt.Sprintf("routing: stop %d references unexpected delivery %q", s.StopNumber, s.DeliveryID))
		}
		delete(want, s.DeliveryID)
	}
}
