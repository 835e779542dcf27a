// Package memory is an in-process implementation of the route and delivery
// repositories, used when storage.driver is "memory" and in tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/samirrijal/routeplanner/internal/core/domain"
)

// Write steps passed to Store.FailBefore.
const (
	StepRoute  = "route"
	StepStop   = "stop"
	StepAssign = "assign"
)

// Delivery is a delivery row as seeded into the store.
type Delivery struct {
	domain.DeliveryCandidate
	DriverID      string
	VehicleID     string
	ScheduledDate *time.Time
	RouteID       string
}

// Store keeps routes, stops and deliveries in maps guarded by one mutex.
// Plans are staged on copies and only swapped in once every write succeeded,
// so a failed CreatePlan leaves no trace.
type Store struct {
	mu         sync.Mutex
	deliveries map[string]Delivery
	routes     map[string]domain.Route
	stops      map[string][]domain.RouteStop // route id -> stops by stop number

	// FailBefore, if set, is consulted before every write of CreatePlan. A
	// non-nil error aborts the plan. i is the stop index for StepStop and 0
	// otherwise.
	FailBefore func(step string, i int) error
}

func NewStore() *Store {
	return &Store{
		deliveries: map[string]Delivery{},
		routes:     map[string]domain.Route{},
		stops:      map[string][]domain.RouteStop{},
	}
}

// Ping always succeeds; it lets the store stand in for a database in
// readiness checks.
func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }

// Seed inserts or replaces deliveries.
func (s *Store) Seed(ds ...Delivery) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range ds {
		if d.Status == "" {
			d.Status = domain.DeliveryPending
		}
		s.deliveries[d.ID] = d
	}
}

// Delivery returns a copy of a stored delivery.
func (s *Store) Delivery(id string) (Delivery, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.deliveries[id]
	return d, ok
}

// Counts returns the number of stored routes and route stops.
func (s *Store) Counts() (routes, stops int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, st := range s.stops {
		stops += len(st)
	}
	return len(s.routes), stops
}

func (s *Store) LoadCandidates(ctx context.Context, ids []string) ([]domain.DeliveryCandidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.DeliveryCandidate, 0, len(ids))
	for _, id := range ids {
		d, ok := s.deliveries[id]
		if !ok {
			continue
		}
		c := d.DeliveryCandidate
		if c.Point != nil {
			p := *c.Point
			c.Point = &p
		}
		out = append(out, c)
	}
	return out, nil
}

func (s *Store) fail(step string, i int) error {
	if s.FailBefore == nil {
		return nil
	}
	if err := s.FailBefore(step, i); err != nil {
		return fmt.Errorf("%s %d: %w", step, i, err)
	}
	return nil
}

func (s *Store) CreatePlan(ctx context.Context, plan *domain.RoutePlan) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rt := plan.Route
	if err := s.fail(StepRoute, 0); err != nil {
		return err
	}
	if _, dup := s.routes[rt.ID]; dup {
		return fmt.Errorf("insert route: duplicate id %s", rt.ID)
	}

	stops := make([]domain.RouteStop, 0, len(plan.Stops))
	numbers := make(map[int]struct{}, len(plan.Stops))
	for i, st := range plan.Stops {
		if err := s.fail(StepStop, i); err != nil {
			return err
		}
		if st.RouteID != rt.ID {
			return fmt.Errorf("insert stop %d: route %s does not exist", st.StopNumber, st.RouteID)
		}
		if _, ok := s.deliveries[st.DeliveryID]; !ok {
			return fmt.Errorf("insert stop %d: delivery %s does not exist", st.StopNumber, st.DeliveryID)
		}
		if _, dup := numbers[st.StopNumber]; dup {
			return fmt.Errorf("insert stop %d: duplicate stop number", st.StopNumber)
		}
		numbers[st.StopNumber] = struct{}{}
		stops = append(stops, st)
	}
	sort.Slice(stops, func(i, j int) bool { return stops[i].StopNumber < stops[j].StopNumber })

	a := plan.Assignment
	if err := s.fail(StepAssign, 0); err != nil {
		return err
	}
	staged := make(map[string]Delivery, len(a.DeliveryIDs))
	for _, id := range a.DeliveryIDs {
		d, ok := s.deliveries[id]
		if !ok {
			return fmt.Errorf("assign deliveries: %s does not exist", id)
		}
		if !d.Status.Assignable() {
			return fmt.Errorf("assign deliveries: %s is %s", id, d.Status)
		}
		date := a.ScheduledDate
		d.DriverID = a.DriverID
		d.VehicleID = a.VehicleID
		d.ScheduledDate = &date
		d.Status = a.Status
		d.RouteID = a.RouteID
		staged[id] = d
	}

	s.routes[rt.ID] = rt
	s.stops[rt.ID] = stops
	for id, d := range staged {
		s.deliveries[id] = d
	}
	return nil
}

func (s *Store) GetByID(ctx context.Context, id string) (*domain.Route, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rt, ok := s.routes[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &rt, nil
}

func (s *Store) ListStops(ctx context.Context, routeID string) ([]domain.RouteStop, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.RouteStop(nil), s.stops[routeID]...), nil
}

// List orders routes like the Postgres adapter: newest scheduled date first,
// then newest created.
func (s *Store) List(ctx context.Context, f domain.RouteFilter, offset, limit int) ([]domain.Route, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []domain.Route
	for _, rt := range s.routes {
		if f.ScheduledDate != nil && !rt.ScheduledDate.Equal(*f.ScheduledDate) {
			continue
		}
		if f.DriverID != "" && rt.DriverID != f.DriverID {
			continue
		}
		if f.Status != "" && rt.Status != f.Status {
			continue
		}
		matched = append(matched, rt)
	}
	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if !a.ScheduledDate.Equal(b.ScheduledDate) {
			return a.ScheduledDate.After(b.ScheduledDate)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID < b.ID
	})

	total := len(matched)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return matched[offset:end], total, nil
}

func (s *Store) UpdateStatus(ctx context.Context, id string, from, to domain.RouteStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rt, ok := s.routes[id]
	if !ok || rt.Status != from {
		return domain.ErrNotFound
	}
	rt.Status = to
	s.routes[id] = rt
	return nil
}

func (s *Store) Cancel(ctx context.Context, id string, from domain.RouteStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rt, ok := s.routes[id]
	if !ok || rt.Status != from {
		return domain.ErrNotFound
	}
	rt.Status = domain.RouteCancelled
	s.routes[id] = rt

	stops := s.stops[id]
	for i := range stops {
		if stops[i].Status == domain.StopPending {
			stops[i].Status = domain.StopSkipped
		}
	}
	for did, d := range s.deliveries {
		if d.RouteID != id || d.Status != domain.DeliveryAssigned {
			continue
		}
		d.Status = domain.DeliveryPending
		d.DriverID, d.VehicleID, d.ScheduledDate, d.RouteID = "", "", nil, ""
		s.deliveries[did] = d
	}
	return nil
}
