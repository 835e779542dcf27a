package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/samirrijal/routeplanner/internal/core/domain"
)

// RouteRepo implements ports.RouteRepository.
type RouteRepo struct {
	db *DB
}

func NewRouteRepo(db *DB) *RouteRepo { return &RouteRepo{db: db} }

const routeColumns = `id::text, route_name, scheduled_date, driver_id, vehicle_id, status,
	total_distance_km, estimated_duration_min, notes, optimization_method,
	return_to_depot, depot_latitude, depot_longitude, created_at`

func scanRoute(row pgx.Row, rt *domain.Route, extra ...any) error {
	var (
		status             string
		depotLat, depotLon *float64
	)
	dest := []any{&rt.ID, &rt.RouteName, &rt.ScheduledDate, &rt.DriverID, &rt.VehicleID, &status,
		&rt.TotalDistance, &rt.EstimatedDuration, &rt.Notes, &rt.OptimizationMethod,
		&rt.ReturnToDepot, &depotLat, &depotLon, &rt.CreatedAt}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return err
	}
	rt.Status = domain.RouteStatus(status)
	// Routes saved before the depot was recorded have none.
	if depotLat != nil && depotLon != nil {
		rt.Depot = &domain.GeoPoint{Lat: *depotLat, Lon: *depotLon}
	}
	return nil
}

// CreatePlan inserts the route, its stops and the delivery assignment in one
// transaction.
func (r *RouteRepo) CreatePlan(ctx context.Context, plan *domain.RoutePlan) error {
	return pgx.BeginTxFunc(ctx, r.db.Pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		rt := plan.Route
		var depotLat, depotLon *float64
		if rt.Depot != nil {
			depotLat, depotLon = &rt.Depot.Lat, &rt.Depot.Lon
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO routes (id, route_name, scheduled_date, driver_id, vehicle_id, status,
			                    total_distance_km, estimated_duration_min, notes,
			                    optimization_method, return_to_depot,
			                    depot_latitude, depot_longitude, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		`, rt.ID, rt.RouteName, rt.ScheduledDate, rt.DriverID, rt.VehicleID, string(rt.Status),
			rt.TotalDistance, rt.EstimatedDuration, rt.Notes, rt.OptimizationMethod,
			rt.ReturnToDepot, depotLat, depotLon, rt.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert route: %w", err)
		}

		batch := &pgx.Batch{}
		for _, st := range plan.Stops {
			batch.Queue(`
				INSERT INTO route_stops (id, route_id, delivery_id, stop_number, status,
				                         latitude, longitude, leg_distance_km, cumulative_distance_km)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			`, st.ID, st.RouteID, st.DeliveryID, st.StopNumber, string(st.Status),
				st.Point.Lat, st.Point.Lon, st.LegDistanceKm, st.CumulativeDistanceKm)
		}
		br := tx.SendBatch(ctx, batch)
		for _, st := range plan.Stops {
			if _, err := br.Exec(); err != nil {
				_ = br.Close()
				return fmt.Errorf("insert stop %d: %w", st.StopNumber, err)
			}
		}
		if err := br.Close(); err != nil {
			return fmt.Errorf("batch close: %w", err)
		}

		// Deliveries closed since they were loaded are not matched, so the
		// row count check below rolls the plan back.
		a := plan.Assignment
		tag, err := tx.Exec(ctx, `
			UPDATE deliveries
			SET driver_id = $1, vehicle_id = $2, scheduled_date = $3, status = $4,
			    route_id = $5, updated_at = now()
			WHERE id = ANY($6) AND status IN ($7, $8)
		`, a.DriverID, a.VehicleID, a.ScheduledDate, string(a.Status), a.RouteID, a.DeliveryIDs,
			string(domain.DeliveryPending), string(domain.DeliveryAssigned))
		if err != nil {
			return fmt.Errorf("assign deliveries: %w", err)
		}
		if n := tag.RowsAffected(); n != int64(len(a.DeliveryIDs)) {
			return fmt.Errorf("assign deliveries: updated %d of %d", n, len(a.DeliveryIDs))
		}
		return nil
	})
}

// validID reports whether id can match a routes primary key; anything else
// cannot exist and would make Postgres reject the query.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func (r *RouteRepo) GetByID(ctx context.Context, id string) (*domain.Route, error) {
	if !validID(id) {
		return nil, domain.ErrNotFound
	}
	var rt domain.Route
	err := scanRoute(r.db.Pool.QueryRow(ctx, `SELECT `+routeColumns+` FROM routes WHERE id = $1`, id), &rt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rt, nil
}

func (r *RouteRepo) ListStops(ctx context.Context, routeID string) ([]domain.RouteStop, error) {
	if !validID(routeID) {
		return nil, nil
	}
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id::text, route_id::text, delivery_id, stop_number, status,
		       latitude, longitude, leg_distance_km, cumulative_distance_km
		FROM route_stops WHERE route_id = $1 ORDER BY stop_number
	`, routeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stops []domain.RouteStop
	for rows.Next() {
		var (
			st     domain.RouteStop
			status string
		)
		if err := rows.Scan(&st.ID, &st.RouteID, &st.DeliveryID, &st.StopNumber, &status,
			&st.Point.Lat, &st.Point.Lon, &st.LegDistanceKm, &st.CumulativeDistanceKm); err != nil {
			return nil, err
		}
		st.Status = domain.RouteStopStatus(status)
		stops = append(stops, st)
	}
	return stops, rows.Err()
}

// List returns a page of routes, newest first, and the total match count.
func (r *RouteRepo) List(ctx context.Context, f domain.RouteFilter, offset, limit int) ([]domain.Route, int, error) {
	var (
		where []string
		args  []any
	)
	if f.ScheduledDate != nil {
		args = append(args, *f.ScheduledDate)
		where = append(where, fmt.Sprintf("scheduled_date = $%d", len(args)))
	}
	if f.DriverID != "" {
		args = append(args, f.DriverID)
		where = append(where, fmt.Sprintf("driver_id = $%d", len(args)))
	}
	if f.Status != "" {
		args = append(args, string(f.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}

	query := `SELECT ` + routeColumns + `, count(*) OVER () FROM routes`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	args = append(args, limit, offset)
	query += fmt.Sprintf(" ORDER BY scheduled_date DESC, created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var (
		routes []domain.Route
		total  int
	)
	for rows.Next() {
		var rt domain.Route
		if err := scanRoute(rows, &rt, &total); err != nil {
			return nil, 0, err
		}
		routes = append(routes, rt)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	if len(routes) == 0 && offset > 0 {
		// Past the last page: window count is unavailable.
		if err := r.db.Pool.QueryRow(ctx, countQuery(where), args[:len(args)-2]...).Scan(&total); err != nil {
			return nil, 0, err
		}
	}
	return routes, total, nil
}

func countQuery(where []string) string {
	q := `SELECT count(*) FROM routes`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	return q
}

// UpdateStatus moves the route from one status to another. It returns
// domain.ErrNotFound if the route does not exist or is no longer in from.
func (r *RouteRepo) UpdateStatus(ctx context.Context, id string, from, to domain.RouteStatus) error {
	if !validID(id) {
		return domain.ErrNotFound
	}
	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE routes SET status = $3 WHERE id = $1 AND status = $2
	`, id, string(from), string(to))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Cancel marks the route CANCELLED, skips its pending stops and returns its
// deliveries to PENDING.
func (r *RouteRepo) Cancel(ctx context.Context, id string, from domain.RouteStatus) error {
	if !validID(id) {
		return domain.ErrNotFound
	}
	return pgx.BeginTxFunc(ctx, r.db.Pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE routes SET status = $3 WHERE id = $1 AND status = $2
		`, id, string(from), string(domain.RouteCancelled))
		if err != nil {
			return fmt.Errorf("cancel route: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrNotFound
		}

		if _, err := tx.Exec(ctx, `
			UPDATE route_stops SET status = $2 WHERE route_id = $1 AND status = $3
		`, id, string(domain.StopSkipped), string(domain.StopPending)); err != nil {
			return fmt.Errorf("skip stops: %w", err)
		}

		if _, err := tx.Exec(ctx, `
			UPDATE deliveries
			SET status = $2, driver_id = NULL, vehicle_id = NULL, scheduled_date = NULL,
			    route_id = NULL, updated_at = now()
			WHERE route_id = $1 AND status = $3
		`, id, string(domain.DeliveryPending), string(domain.DeliveryAssigned)); err != nil {
			return fmt.Errorf("release deliveries: %w", err)
		}
		return nil
	})
}
