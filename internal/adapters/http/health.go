package http

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

// HealthHandler returns a basic liveness check.
func HealthHandler(deps *Dependencies) fiber.Handler {
	startedAt := time.Now()

	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"uptime":  time.Since(startedAt).String(),
			"version": apiVersion,
		})
	}
}

type checkResult struct {
	Status    string `json:"status"`
	Required  bool   `json:"required"`
	LatencyMs int64  `json:"latency_ms"`
}

func checkPinger(ctx context.Context, p Pinger, required bool) checkResult {
	if p == nil {
		return checkResult{Status: "not configured", Required: required}
	}
	start := time.Now()
	res := checkResult{Status: "ok", Required: required}
	if err := p.Ping(ctx); err != nil {
		res.Status = "error: " + err.Error()
	}
	res.LatencyMs = time.Since(start).Milliseconds()
	return res
}

// ReadyHandler checks storage, NATS and the cache. Only storage is required:
// without NATS events are not published and without the cache reads go to
// storage.
func ReadyHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 3*time.Second)
		defer cancel()

		checks := map[string]checkResult{
			"database": checkPinger(ctx, deps.DB, true),
			"cache":    checkPinger(ctx, deps.Cache, false),
		}
		switch {
		case deps.NATS == nil:
			checks["nats"] = checkResult{Status: "not configured"}
		case deps.NATS.IsConnected():
			checks["nats"] = checkResult{Status: "ok"}
		default:
			checks["nats"] = checkResult{Status: "disconnected"}
		}

		status, code := "ready", fiber.StatusOK
		for _, r := range checks {
			if r.Required && r.Status != "ok" {
				status, code = "not ready", fiber.StatusServiceUnavailable
			}
		}
		return c.Status(code).JSON(fiber.Map{
			"status": status,
			"checks": checks,
		})
	}
}
