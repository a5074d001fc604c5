package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/padelhub/padelhub/internal/hub"
	"github.com/padelhub/padelhub/internal/middleware"
	"github.com/padelhub/padelhub/internal/models"
	"github.com/padelhub/padelhub/internal/service"
)

// Deps is everything the routes need.
type Deps struct {
	Matches   *service.Matches
	Players   *service.Players
	Hub       *hub.Hub
	JWTSecret string
	RateLimit float64 // Requests per second per client IP
	RateBurst int
	Started   time.Time
}

// Register mounts every route on app.
//
//	GET  /health, /health/ping                  public
//	GET  /api/v1/matches[?status=], /:id, /:id/result
//	POST /api/v1/matches, /:id/join, /:id/result
//	PUT  /api/v1/matches/:id                    admin
//	GET  /api/v1/players[?q=], /:id, /api/v1/ranking, /api/v1/clubs
//	POST /api/v1/players, PUT /api/v1/players/:id admin
//	GET  /api/v1/events[?match=]                server-sent events
func Register(app *fiber.App, d Deps) {
	app.Get("/health", HealthCheck)
	app.Get("/health/ping", Ping(d.Started))

	// Every /api/v1 route is rate limited and needs a valid token.
	api := app.Group("/api/v1", middleware.RateLimit(d.RateLimit, d.RateBurst), middleware.Auth(d.JWTSecret))
	admin := middleware.RequireRole(models.RoleAdmin)

	api.Get("/matches", ListMatches(d.Matches))
	api.Post("/matches", CreateMatch(d.Matches))
	api.Get("/matches/:id", GetMatch(d.Matches))
	api.Put("/matches/:id", admin, EditMatch(d.Matches))
	api.Post("/matches/:id/join", JoinMatch(d.Matches))
	api.Get("/matches/:id/result", GetResult(d.Matches))
	api.Post("/matches/:id/result", ConfirmResult(d.Matches))

	api.Get("/players", ListPlayers(d.Players))
	api.Post("/players", admin, CreatePlayer(d.Players))
	api.Get("/players/:id", GetPlayer(d.Players))
	api.Put("/players/:id", admin, UpdatePlayer(d.Players))
	api.Get("/ranking", Ranking(d.Players))
	api.Get("/clubs", ListClubs(d.Players))

	api.Get("/events", Events(d.Hub))
}
