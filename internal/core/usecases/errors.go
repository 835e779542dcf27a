package usecases

import (
	"errors"

	"github.com/samirrijal/routeplanner/internal/core/domain"
)

// errorKind classifies an error for metrics labels.
func errorKind(err error) string {
	var (
		ve *domain.ValidationError
		ne *domain.NoRoutableDeliveriesError
		pe *domain.PersistenceError
	)
	switch {
	case errors.As(err, &ve):
		return "validation"
	case errors.As(err, &ne):
		return "no_routable_deliveries"
	case errors.As(err, &pe):
		return "persistence"
	default:
		return "error"
	}
}
