package domain

import (
	"time"
)

// OptimizationMethod is stored on every route produced by the engine.
const OptimizationMethod = "haversine"

// DateLayout is the wire format of scheduled dates.
const DateLayout = "2006-01-02"

// DeliveryStatus is the lifecycle state of a delivery.
type DeliveryStatus string

const (
	DeliveryPending   DeliveryStatus = "PENDING"
	DeliveryAssigned  DeliveryStatus = "ASSIGNED"
	DeliveryDelivered DeliveryStatus = "DELIVERED"
	DeliveryCancelled DeliveryStatus = "CANCELLED"
)

// Assignable reports whether a delivery in this state may be put on a route.
// Delivered and cancelled deliveries are closed.
func (s DeliveryStatus) Assignable() bool {
	return s == DeliveryPending || s == DeliveryAssigned
}

// DeliveryCandidate is a delivery loaded for routing. Point is nil when the
// delivery's branch has no coordinates.
type DeliveryCandidate struct {
	ID             string         `json:"id"`
	OrderReference string         `json:"order_reference,omitempty"`
	CustomerName   string         `json:"customer_name,omitempty"`
	BranchName     string         `json:"branch_name,omitempty"`
	Address        string         `json:"address,omitempty"`
	Status         DeliveryStatus `json:"status"`
	Point          *GeoPoint      `json:"point,omitempty"`
}

// SequencedStop is one delivery in its visiting position.
type SequencedStop struct {
	StopNumber           int      `json:"stop_number"`
	DeliveryID           string   `json:"delivery_id"`
	Point                GeoPoint `json:"point"`
	LegDistanceKm        float64  `json:"leg_distance_km"`
	CumulativeDistanceKm float64  `json:"cumulative_distance_km"`
}

// RouteSummary aggregates a sequenced route.
type RouteSummary struct {
	TotalDistanceKm          float64 `json:"total_distance_km"`
	EstimatedDurationMinutes float64 `json:"estimated_duration_minutes"`
	StopCount                int     `json:"stop_count"`
	ReturnLegKm              float64 `json:"return_leg_km,omitempty"`
}

// Route is a persisted delivery route for one driver and vehicle.
type Route struct {
	ID                 string      `json:"id"`
	RouteName          string      `json:"route_name"`
	ScheduledDate      time.Time   `json:"scheduled_date"`
	DriverID           string      `json:"driver_id"`
	VehicleID          string      `json:"vehicle_id"`
	Status             RouteStatus `json:"status"`
	TotalDistance      float64     `json:"total_distance_km"`
	EstimatedDuration  float64     `json:"estimated_duration_minutes"`
	Notes              string      `json:"notes,omitempty"`
	OptimizationMethod string      `json:"optimization_method"`
	ReturnToDepot      bool        `json:"return_to_depot"`
	Depot              *GeoPoint   `json:"depot,omitempty"`
	CreatedAt          time.Time   `json:"created_at"`
}

// RouteStop is a persisted stop owned by a Route.
type RouteStop struct {
	ID                   string          `json:"id"`
	RouteID              string          `json:"route_id"`
	DeliveryID           string          `json:"delivery_id"`
	StopNumber           int             `json:"stop_number"`
	Status               RouteStopStatus `json:"status"`
	Point                GeoPoint        `json:"point"`
	LegDistanceKm        float64         `json:"leg_distance_km"`
	CumulativeDistanceKm float64         `json:"cumulative_distance_km"`
}

// DeliveryAssignment is applied to every delivery of a newly planned route.
type DeliveryAssignment struct {
	RouteID       string         `json:"route_id"`
	DeliveryIDs   []string       `json:"delivery_ids"`
	DriverID      string         `json:"driver_id"`
	VehicleID     string         `json:"vehicle_id"`
	ScheduledDate time.Time      `json:"scheduled_date"`
	Status        DeliveryStatus `json:"status"`
}

// RoutePlan is the unit written atomically when a route is saved.
type RoutePlan struct {
	Route      Route
	Stops      []RouteStop
	Assignment DeliveryAssignment
}

// RouteFilter narrows route listings. Zero values match everything.
type RouteFilter struct {
	ScheduledDate *time.Time
	DriverID      string
	Status        RouteStatus
}

// OptimizationRequest is the caller-facing input of the optimizer.
type OptimizationRequest struct {
	DeliveryIDs   []string `json:"delivery_ids"`
	DriverID      string   `json:"driver_id"`
	VehicleID     string   `json:"vehicle_id"`
	ScheduledDate string   `json:"scheduled_date"`
	ReturnToDepot bool     `json:"return_to_depot"`
	SaveRoute     bool     `json:"save_route"`
	RouteName     string   `json:"route_name,omitempty"`
	Notes         string   `json:"notes,omitempty"`
}

// OptimizationResult is returned by a successful optimization. RouteID is nil
// for previews.
type OptimizationResult struct {
	RouteID           *string           `json:"route_id"`
	Depot             GeoPoint          `json:"depot"`
	ReturnToDepot     bool              `json:"return_to_depot"`
	Stops             []SequencedStop   `json:"stops"`
	Summary           RouteSummary      `json:"summary"`
	SkippedDeliveries []SkippedDelivery `json:"skipped_deliveries"`
	PartialCoverage   bool              `json:"partial_coverage"`
}

// RouteEvent is published when a route is planned or changes status.
type RouteEvent struct {
	Type          string      `json:"type"`
	RouteID       string      `json:"route_id"`
	DriverID      string      `json:"driver_id"`
	VehicleID     string      `json:"vehicle_id"`
	ScheduledDate string      `json:"scheduled_date"`
	Status        RouteStatus `json:"status"`
	StopCount     int         `json:"stop_count"`
	DistanceKm    float64     `json:"total_distance_km"`
	Time          time.Time   `json:"time"`
}

const (
	EventRoutePlanned = "route.planned"
	EventRouteStatus  = "route.status"
)
