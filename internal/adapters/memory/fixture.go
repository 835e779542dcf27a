package memory

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/samirrijal/routeplanner/internal/core/domain"
)

type fixtureDelivery struct {
	ID             string   `mapstructure:"id"`
	OrderReference string   `mapstructure:"order_reference"`
	CustomerName   string   `mapstructure:"customer_name"`
	BranchName     string   `mapstructure:"branch_name"`
	Address        string   `mapstructure:"address"`
	Status         string   `mapstructure:"status"`
	Lat            *float64 `mapstructure:"lat"`
	Lon            *float64 `mapstructure:"lon"`
}

// LoadFixture seeds the store from a YAML or JSON file holding a top-level
// "deliveries" list and returns how many deliveries it loaded. Entries without
// lat and lon have no coordinates; a missing status means PENDING.
func (s *Store) LoadFixture(path string) (int, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return 0, fmt.Errorf("read fixture: %w", err)
	}

	var raw []fixtureDelivery
	if err := v.UnmarshalKey("deliveries", &raw); err != nil {
		return 0, fmt.Errorf("decode fixture: %w", err)
	}

	ds := make([]Delivery, 0, len(raw))
	for i, f := range raw {
		id := strings.TrimSpace(f.ID)
		if id == "" {
			return 0, fmt.Errorf("fixture entry %d: id is required", i)
		}
		status := domain.DeliveryStatus(strings.ToUpper(strings.TrimSpace(f.Status)))
		switch status {
		case "", domain.DeliveryPending, domain.DeliveryAssigned, domain.DeliveryDelivered, domain.DeliveryCancelled:
		default:
			return 0, fmt.Errorf("fixture entry %s: unknown status %q", id, f.Status)
		}

		d := Delivery{DeliveryCandidate: domain.DeliveryCandidate{
			ID:             id,
			OrderReference: f.OrderReference,
			CustomerName:   f.CustomerName,
			BranchName:     f.BranchName,
			Address:        f.Address,
			Status:         status,
		}}
		if f.Lat != nil && f.Lon != nil {
			d.Point = &domain.GeoPoint{Lat: *f.Lat, Lon: *f.Lon}
		}
		ds = append(ds, d)
	}

	s.Seed(ds...)
	return len(ds), nil
}
