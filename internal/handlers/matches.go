package handlers

// matches.go handles the /api/v1/matches routes: listing, creating, joining,
// editing and confirming results.
//
// Status tags always go out as a JSON array (["complete","pending"]) even though
// older clients stored a bare string; see models.StatusSet.

import (
	"github.com/gofiber/fiber/v2"

	"github.com/padelhub/padelhub/internal/api"
	"github.com/padelhub/padelhub/internal/lifecycle"
	"github.com/padelhub/padelhub/internal/middleware"
	"github.com/padelhub/padelhub/internal/models"
	"github.com/padelhub/padelhub/internal/service"
)

// MatchRequest is the JSON body of POST /api/v1/matches and PUT /api/v1/matches/:id.
// Either club (a name) or club_id may be given; club_id wins.
type MatchRequest struct {
	Date    string    `json:"date"`
	Time    string    `json:"time"`
	Club    string    `json:"club"`
	ClubID  int       `json:"club_id"`
	Court   string    `json:"court"`
	Type    string    `json:"type"`
	Players api.Slots `json:"players"`
}

func (r MatchRequest) fields() lifecycle.Fields {
	return lifecycle.Fields{Date: r.Date, Time: r.Time, Club: r.Club, Court: r.Court, Type: r.Type}
}

// JoinRequest maps slot names to the player taking them, e.g. {"players": {"reves2": 4}}.
type JoinRequest struct {
	Players map[string]int `json:"players"`
}

// assignments orders the requested slots reves1, drive1, reves2, drive2 so the
// same request always fails on the same slot. Unknown slot names go last.
func (r JoinRequest) assignments() []lifecycle.Assignment {
	out := make([]lifecycle.Assignment, 0, len(r.Players))
	seen := make(map[string]bool, len(r.Players))
	for _, slot := range models.AllSlots {
		if id, ok := r.Players[string(slot)]; ok {
			out = append(out, lifecycle.Assignment{Slot: slot, PlayerID: id})
			seen[string(slot)] = true
		}
	}
	for name, id := range r.Players {
		if !seen[name] {
			out = append(out, lifecycle.Assignment{Slot: models.Slot(name), PlayerID: id})
		}
	}
	return out
}

// ResultRequest is the JSON body of POST /api/v1/matches/:id/result.
type ResultRequest struct {
	Winner string `json:"winner"` // "pareja1" or "pareja2"
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "not authenticated"})
}

// ListMatches returns a handler for GET /api/v1/matches.
// Optional query param: ?status=open|complete|pending|finalized (Spanish tags work too).
func ListMatches(svc *service.Matches) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tag, err := service.ParseStatusFilter(c.Query("status"))
		if err != nil {
			return writeError(c, err)
		}
		matches, err := svc.List(c.UserContext(), tag)
		if err != nil {
			return writeError(c, err)
		}

		response := make([]api.Match, 0, len(matches))
		for _, m := range matches {
			response = append(response, api.NewMatch(m))
		}
		return c.JSON(response)
	}
}

// GetMatch returns a handler for GET /api/v1/matches/:id.
func GetMatch(svc *service.Matches) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := idParam(c, "id")
		if !ok {
			return badRequest(c, "invalid match id")
		}
		m, err := svc.Get(c.UserContext(), id)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(api.NewMatch(m))
	}
}

// CreateMatch returns a handler for POST /api/v1/matches.
func CreateMatch(svc *service.Matches) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, ok := middleware.CurrentUser(c)
		if !ok {
			return unauthorized(c)
		}
		var req MatchRequest
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid request body")
		}

		m, err := svc.Create(c.UserContext(), user, service.CreateInput{
			Fields: req.fields(),
			ClubID: req.ClubID,
			Slots:  req.Players.Model(),
		})
		if err != nil {
			return writeError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(api.NewMatch(m))
	}
}

// JoinMatch returns a handler for POST /api/v1/matches/:id/join.
func JoinMatch(svc *service.Matches) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, ok := middleware.CurrentUser(c)
		if !ok {
			return unauthorized(c)
		}
		id, ok := idParam(c, "id")
		if !ok {
			return badRequest(c, "invalid match id")
		}
		var req JoinRequest
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid request body")
		}

		m, err := svc.Join(c.UserContext(), user, id, req.assignments())
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(api.NewMatch(m))
	}
}

// EditMatch returns a handler for PUT /api/v1/matches/:id.
// Requires the admin role (enforced by RequireRole on the route and again by the service).
func EditMatch(svc *service.Matches) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, ok := middleware.CurrentUser(c)
		if !ok {
			return unauthorized(c)
		}
		id, ok := idParam(c, "id")
		if !ok {
			return badRequest(c, "invalid match id")
		}
		var req MatchRequest
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid request body")
		}

		m, err := svc.Edit(c.UserContext(), user, id, service.EditInput{
			Fields: req.fields(),
			ClubID: req.ClubID,
			Slots:  req.Players.Model(),
		})
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(api.NewMatch(m))
	}
}

// ConfirmResult returns a handler for POST /api/v1/matches/:id/result.
func ConfirmResult(svc *service.Matches) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, ok := middleware.CurrentUser(c)
		if !ok {
			return unauthorized(c)
		}
		id, ok := idParam(c, "id")
		if !ok {
			return badRequest(c, "invalid match id")
		}
		var req ResultRequest
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid request body")
		}

		conf, err := svc.ConfirmResult(c.UserContext(), user, id, models.Couple(req.Winner))
		if err != nil {
			return writeError(c, err)
		}

		return c.JSON(api.Confirmation{
			Match:   api.NewMatch(conf.Match),
			Result:  api.NewResult(conf.Result),
			Players: api.NewPlayers(conf.Players),
		})
	}
}

// GetResult returns a handler for GET /api/v1/matches/:id/result.
func GetResult(svc *service.Matches) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := idParam(c, "id")
		if !ok {
			return badRequest(c, "invalid match id")
		}
		r, err := svc.GetResult(c.UserContext(), id)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(api.NewResult(r))
	}
}
