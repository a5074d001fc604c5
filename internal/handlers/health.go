// Package handlers contains the HTTP route handler functions for the padel club API.
// Each handler corresponds to one API endpoint and is responsible for reading the
// request, calling the service layer, and writing a response.
//
// Handlers follow the "handler factory" pattern: an exported function takes its
// dependencies (a service, the hub) and returns a fiber.Handler, so nothing is
// kept in global variables.
package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

// HealthCheck handles GET /health.
// It is intentionally lightweight (no store access, no authentication) so
// container probes and load balancers can call it as often as they like.
func HealthCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// PingResponse is the body of GET /health/ping.
type PingResponse struct {
	Status    string  `json:"status"`
	Message   string  `json:"message"`
	Timestamp string  `json:"timestamp"` // RFC 3339, UTC
	Uptime    float64 `json:"uptime"`    // Seconds since the server started
}

// Ping returns a handler for GET /health/ping that also reports uptime.
func Ping(started time.Time) fiber.Handler {
	return func(c *fiber.Ctx) error {
		now := time.Now()
		return c.JSON(PingResponse{
			Status:    "ok",
			Message:   "pong",
			Timestamp: now.UTC().Format(time.RFC3339),
			Uptime:    now.Sub(started).Seconds(),
		})
	}
}
