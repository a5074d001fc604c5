// Package api holds the JSON bodies the server sends. The REST handlers and the
// event stream both build them from here, so a match looks the same whether it
// arrives as a response or as the data of an event.
package api

import (
	"time"

	"github.com/padelhub/padelhub/internal/models"
)

// Slots is the four-slot object used in requests and responses.
// A null slot is open.
type Slots struct {
	Reves1 *int `json:"reves1"`
	Drive1 *int `json:"drive1"`
	Reves2 *int `json:"reves2"`
	Drive2 *int `json:"drive2"`
}

// Model converts the body back to the domain type.
func (b Slots) Model() models.Slots {
	return models.Slots{Reves1: b.Reves1, Drive1: b.Drive1, Reves2: b.Reves2, Drive2: b.Drive2}
}

func NewSlots(s models.Slots) Slots {
	return Slots{Reves1: s.Reves1, Drive1: s.Drive1, Reves2: s.Reves2, Drive2: s.Drive2}
}

// Match is what we send back for a match.
type Match struct {
	ID        int      `json:"id"`
	Date      string   `json:"date"`
	Time      string   `json:"time"`
	Club      string   `json:"club"`
	Court     string   `json:"court"`
	Type      string   `json:"type"`
	Players   Slots    `json:"players"`
	Status    []string `json:"status"`
	Winner    *string  `json:"winner"`     // "pareja1", "pareja2" or null until finalized
	CreatedBy *int     `json:"created_by"` // Player id of the creator, if known
	CreatedAt string   `json:"created_at"` // RFC 3339
	UpdatedAt *string  `json:"updated_at"` // RFC 3339 or null if never changed
	Version   int      `json:"version"`
}

func NewMatch(m models.Match) Match {
	resp := Match{
		ID:        m.ID,
		Date:      m.Date,
		Time:      m.Time,
		Club:      m.Club,
		Court:     m.Court,
		Type:      m.Type,
		Players:   NewSlots(m.Players),
		Status:    m.Status.Strings(),
		CreatedBy: m.CreatedBy,
		CreatedAt: m.CreatedAt.UTC().Format(time.RFC3339),
		Version:   m.Version,
	}
	if m.Winner != nil {
		w := string(*m.Winner)
		resp.Winner = &w
	}
	if m.UpdatedAt != nil {
		u := m.UpdatedAt.UTC().Format(time.RFC3339)
		resp.UpdatedAt = &u
	}
	return resp
}

// Stats is a player's record; lost and win_rate are derived.
type Stats struct {
	Matches int `json:"matches"`
	Won     int `json:"won"`
	Lost    int `json:"lost"`
	WinRate int `json:"win_rate"` // Rounded percentage
}

// Player is what we send back for a player.
type Player struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Avatar   string `json:"avatar"`
	Position string `json:"position"`
	Points   int    `json:"points"`
	Stats    Stats  `json:"stats"`
}

func NewPlayer(p models.Player) Player {
	return Player{
		ID:       p.ID,
		Name:     p.Name,
		Avatar:   p.Avatar,
		Position: string(p.Position),
		Points:   p.Points,
		Stats: Stats{
			Matches: p.Stats.Matches,
			Won:     p.Stats.Won,
			Lost:    p.Lost(),
			WinRate: p.WinRate(),
		},
	}
}

func NewPlayers(players []models.Player) []Player {
	out := make([]Player, 0, len(players))
	for _, p := range players {
		out = append(out, NewPlayer(p))
	}
	return out
}

// Result describes a confirmed result.
type Result struct {
	ID          string `json:"id"`
	MatchID     int    `json:"match_id"`
	Winner      string `json:"winner"`
	Winners     []int  `json:"winners"` // Drive first
	Losers      []int  `json:"losers"`
	ConfirmedBy *int   `json:"confirmed_by"`
	ConfirmedAt string `json:"confirmed_at"`
}

func NewResult(r models.MatchResult) Result {
	return Result{
		ID:          r.ID.String(),
		MatchID:     r.MatchID,
		Winner:      string(r.Winner),
		Winners:     r.WinnerIDs,
		Losers:      r.LoserIDs,
		ConfirmedBy: r.ConfirmedBy,
		ConfirmedAt: r.ConfirmedAt.UTC().Format(time.RFC3339),
	}
}

// Confirmation is sent once a result is confirmed: the finalized match, the
// result record and the four players with their new totals.
type Confirmation struct {
	Match   Match    `json:"match"`
	Result  Result   `json:"result"`
	Players []Player `json:"players"`
}
