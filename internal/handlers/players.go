package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/padelhub/padelhub/internal/api"
	"github.com/padelhub/padelhub/internal/middleware"
	"github.com/padelhub/padelhub/internal/service"
)

// RankingEntry is one row of GET /api/v1/ranking.
// Rank is the 1-based place; the embedded player keeps its own position (drive or reves).
type RankingEntry struct {
	Rank int `json:"rank"`
	api.Player
}

// PlayerRequest is the JSON body of POST and PUT /api/v1/players.
// Points and stats cannot be set here.
type PlayerRequest struct {
	Name     string `json:"name"`
	Avatar   string `json:"avatar"`
	Position string `json:"position"` // "drive" or "reves"
}

func (r PlayerRequest) input() service.PlayerInput {
	return service.PlayerInput{Name: r.Name, Avatar: r.Avatar, Position: r.Position}
}

// ListPlayers returns a handler for GET /api/v1/players.
// Optional query param: ?q=<name> to search; otherwise the roster is alphabetical.
func ListPlayers(svc *service.Players) fiber.Handler {
	return func(c *fiber.Ctx) error {
		players, err := svc.List(c.UserContext(), c.Query("q"))
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(api.NewPlayers(players))
	}
}

// GetPlayer returns a handler for GET /api/v1/players/:id.
func GetPlayer(svc *service.Players) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := idParam(c, "id")
		if !ok {
			return badRequest(c, "invalid player id")
		}
		p, err := svc.Get(c.UserContext(), id)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(api.NewPlayer(p))
	}
}

// CreatePlayer returns a handler for POST /api/v1/players (admin only).
func CreatePlayer(svc *service.Players) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, ok := middleware.CurrentUser(c)
		if !ok {
			return unauthorized(c)
		}
		var req PlayerRequest
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid request body")
		}
		p, err := svc.Create(c.UserContext(), user, req.input())
		if err != nil {
			return writeError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(api.NewPlayer(p))
	}
}

// UpdatePlayer returns a handler for PUT /api/v1/players/:id (admin only).
func UpdatePlayer(svc *service.Players) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, ok := middleware.CurrentUser(c)
		if !ok {
			return unauthorized(c)
		}
		id, ok := idParam(c, "id")
		if !ok {
			return badRequest(c, "invalid player id")
		}
		var req PlayerRequest
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid request body")
		}
		p, err := svc.Update(c.UserContext(), user, id, req.input())
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(api.NewPlayer(p))
	}
}

// Ranking returns a handler for GET /api/v1/ranking.
func Ranking(svc *service.Players) fiber.Handler {
	return func(c *fiber.Ctx) error {
		entries, err := svc.Ranking(c.UserContext())
		if err != nil {
			return writeError(c, err)
		}
		response := make([]RankingEntry, 0, len(entries))
		for _, e := range entries {
			response = append(response, RankingEntry{Rank: e.Position, Player: api.NewPlayer(e.Player)})
		}
		return c.JSON(response)
	}
}

// ListClubs returns a handler for GET /api/v1/clubs.
func ListClubs(svc *service.Players) fiber.Handler {
	return func(c *fiber.Ctx) error {
		clubs, err := svc.Clubs(c.UserContext())
		if err != nil {
			return writeError(c, err)
		}
		type club struct {
			ID   int    `json:"id"`
			Name string `json:"name"`
		}
		response := make([]club, 0, len(clubs))
		for _, cl := range clubs {
			response = append(response, club{ID: cl.ID, Name: cl.Name})
		}
		return c.JSON(response)
	}
}
