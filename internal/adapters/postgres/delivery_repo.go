package postgres

import (
	"context"
	"fmt"

	"github.com/samirrijal/routeplanner/internal/core/domain"
)

// DeliveryRepo implements ports.DeliveryRepository.
type DeliveryRepo struct {
	db *DB
}

func NewDeliveryRepo(db *DB) *DeliveryRepo { return &DeliveryRepo{db: db} }

// LoadCandidates reads deliveries joined with their branch coordinates.
// A delivery without a branch, or whose branch lacks either coordinate, is
// returned with a nil Point.
func (r *DeliveryRepo) LoadCandidates(ctx context.Context, ids []string) ([]domain.DeliveryCandidate, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := r.db.Pool.Query(ctx, `
		SELECT d.id, d.order_reference, d.customer_name,
		       COALESCE(b.name, ''), COALESCE(b.address, ''),
		       d.status, b.latitude, b.longitude
		FROM deliveries d
		LEFT JOIN branches b ON b.id = d.branch_id
		WHERE d.id = ANY($1)
	`, ids)
	if err != nil {
		return nil, fmt.Errorf("query deliveries: %w", err)
	}
	defer rows.Close()

	var out []domain.DeliveryCandidate
	for rows.Next() {
		var (
			c        domain.DeliveryCandidate
			status   string
			lat, lon *float64
		)
		if err := rows.Scan(&c.ID, &c.OrderReference, &c.CustomerName,
			&c.BranchName, &c.Address, &status, &lat, &lon); err != nil {
			return nil, err
		}
		c.Status = domain.DeliveryStatus(status)
		if lat != nil && lon != nil {
			c.Point = &domain.GeoPoint{Lat: *lat, Lon: *lon}
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
