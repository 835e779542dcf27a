package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned by repositories when a record does not exist.
var ErrNotFound = errors.New("not found")

// ValidationError reports a malformed request.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Problems, "; ")
}

// NoRoutableDeliveriesError is returned when every requested delivery was skipped.
type NoRoutableDeliveriesError struct {
	Skipped []SkippedDelivery
}

func (e *NoRoutableDeliveriesError) Error() string {
	return fmt.Sprintf("no routable deliveries: all %d requested deliveries were skipped", len(e.Skipped))
}

// PersistenceError wraps a failed atomic save. Nothing of the attempted route
// was persisted.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// TransitionError is returned for an illegal route status change.
type TransitionError struct {
	From RouteStatus
	To   RouteStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("route cannot move from %s to %s", e.From, e.To)
}
