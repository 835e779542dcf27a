package domain

// RouteStatus is the lifecycle state of a route.
type RouteStatus string

const (
	RoutePlanned    RouteStatus = "PLANNED"
	RouteInProgress RouteStatus = "IN_PROGRESS"
	RouteCompleted  RouteStatus = "COMPLETED"
	RouteCancelled  RouteStatus = "CANCELLED"
)

var routeTransitions = map[RouteStatus][]RouteStatus{
	RoutePlanned:    {RouteInProgress, RouteCancelled},
	RouteInProgress: {RouteCompleted, RouteCancelled},
}

// Valid reports whether s is a known route status.
func (s RouteStatus) Valid() bool {
	switch s {
	case RoutePlanned, RouteInProgress, RouteCompleted, RouteCancelled:
		return true
	}
	return false
}

// CanTransitionTo reports whether a route in state s may move to next.
// COMPLETED and CANCELLED are terminal.
func (s RouteStatus) CanTransitionTo(next RouteStatus) bool {
	for _, allowed := range routeTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// RouteStopStatus is the state of a single stop.
type RouteStopStatus string

const (
	StopPending   RouteStopStatus = "PENDING"
	StopCompleted RouteStopStatus = "COMPLETED"
	StopSkipped   RouteStopStatus = "SKIPPED"
)

// SkipReason explains why a requested delivery was left out of a route.
type SkipReason string

const (
	SkipMissingCoordinates SkipReason = "MISSING_COORDINATES"
	SkipInvalidCoordinates SkipReason = "INVALID_COORDINATES"
	SkipNotFound           SkipReason = "NOT_FOUND"
	SkipDeliveryClosed     SkipReason = "DELIVERY_CLOSED"
)

// SkippedDelivery is a requested delivery that could not be routed.
type SkippedDelivery struct {
	DeliveryID string     `json:"delivery_id"`
	Reason     SkipReason `json:"reason"`
}
