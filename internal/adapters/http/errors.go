package http

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/routeplanner/internal/core/domain"
)

// APIError is a structured error response.
type APIError struct {
	Status    int    `json:"status"`
	Code      string `json:"code"`    // Error code: bad_request, not_found, internal_error, etc.
	Message   string `json:"message"` // Human-readable message
	RequestID string `json:"request_id,omitempty"`

	Problems          []string                 `json:"problems,omitempty"`
	SkippedDeliveries []domain.SkippedDelivery `json:"skipped_deliveries,omitempty"`
}

func requestID(c *fiber.Ctx) string {
	reqID, _ := c.Locals("requestid").(string)
	return reqID
}

// newError builds a JSON error response with a request ID.
func newError(c *fiber.Ctx, status int, code string, message string) error {
	return c.Status(status).JSON(APIError{
		Status:    status,
		Code:      code,
		Message:   message,
		RequestID: requestID(c),
	})
}

// errBadRequest returns a 400 error.
func errBadRequest(c *fiber.Ctx, msg string) error {
	return newError(c, 400, "bad_request", msg)
}

// errNotFound returns a 404 error.
func errNotFound(c *fiber.Ctx, msg string) error {
	return newError(c, 404, "not_found", msg)
}

// errInternal returns a 500 error.
func errInternal(c *fiber.Ctx, msg string) error {
	return newError(c, 500, "internal_error", msg)
}

// errConflict returns a 409 error.
func errConflict(c *fiber.Ctx, msg string) error {
	return newError(c, 409, "conflict", msg)
}

// domainError maps a service error onto the API envelope. Internal causes are
// logged, not echoed.
func domainError(c *fiber.Ctx, err error) error {
	var (
		ve *domain.ValidationError
		ne *domain.NoRoutableDeliveriesError
		pe *domain.PersistenceError
		te *domain.TransitionError
	)
	switch {
	case errors.As(err, &ve):
		return c.Status(400).JSON(APIError{
			Status: 400, Code: "validation_failed", Message: "request is invalid",
			RequestID: requestID(c), Problems: ve.Problems,
		})
	case errors.As(err, &ne):
		return c.Status(422).JSON(APIError{
			Status: 422, Code: "no_routable_deliveries", Message: ne.Error(),
			RequestID: requestID(c), SkippedDeliveries: ne.Skipped,
		})
	case errors.As(err, &te):
		return errConflict(c, te.Error())
	case errors.Is(err, domain.ErrNotFound):
		return errNotFound(c, "route not found")
	case errors.As(err, &pe):
		LoggerFromCtx(c.UserContext()).ErrorContext(c.UserContext(), "route not saved", "op", pe.Op, "error", pe.Err)
		return newError(c, 500, "persistence_failed", "route could not be saved; nothing was persisted")
	default:
		slog.ErrorContext(c.UserContext(), "request failed", "path", c.Path(), "error", err)
		return errInternal(c, "internal error")
	}
}
