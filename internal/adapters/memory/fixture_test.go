package memory_test

import (
	"context"
	"testing"

	"github.com/samirrijal/routeplanner/internal/adapters/memory"
	"github.com/samirrijal/routeplanner/internal/core/domain"
	"github.com/samirrijal/routeplanner/internal/core/usecases"
)

func TestLoadFixture(t *testing.T) {
	store := memory.NewStore()
	n, err := store.LoadFixture("testdata/deliveries.yaml")
	if err != nil {
		t.Fatalf("load fixture: %v", err)
	}
	if n != 4 {
		t.Fatalf("expected 4 deliveries, got %d", n)
	}

	a, ok := store.Delivery("A")
	if !ok || a.Status != domain.DeliveryPending || a.Point == nil || a.Point.Lat != 43.2712 || a.CustomerName != "Ferreteria Deusto" {
		t.Errorf("unexpected A: %+v", a)
	}
	if c, _ := store.Delivery("C"); c.Point != nil {
		t.Errorf("C has no coordinates in the fixture, got %v", c.Point)
	}
	if x, _ := store.Delivery("X"); x.Status != domain.DeliveryDelivered {
		t.Errorf("expected X delivered, got %s", x.Status)
	}
}

func TestLoadFixture_Routes(t *testing.T) {
	store := memory.NewStore()
	if _, err := store.LoadFixture("testdata/deliveries.yaml"); err != nil {
		t.Fatalf("load fixture: %v", err)
	}
	svc := usecases.NewRouteOptimizationService(store, store, nil, cfg)

	res, err := svc.Optimize(context.Background(), request(true, "A", "B", "C", "X"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Stops) != 2 || len(res.SkippedDeliveries) != 2 {
		t.Fatalf("expected 2 stops and 2 skipped, got %d and %v", len(res.Stops), res.SkippedDeliveries)
	}
}

func TestLoadFixture_Errors(t *testing.T) {
	for _, path := range []string{"testdata/missing.yaml", "testdata/bad_status.yaml"} {
		store := memory.NewStore()
		if _, err := store.LoadFixture(path); err == nil {
			t.Errorf("%s: expected an error", path)
		}
	}
}

func TestLoadFixture_Example(t *testing.T) {
	store := memory.NewStore()
	n, err := store.LoadFixture("../../../configs/deliveries.example.yaml")
	if err != nil {
		t.Fatalf("load example fixture: %v", err)
	}
	if n == 0 {
		t.Fatal("example fixture is empty")
	}
}
