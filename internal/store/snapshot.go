package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/padelhub/padelhub/internal/models"
)

// Snapshot is the whole data set in one value: the shape of the
// "allDataObject" blob the browser app cached, plus its match counter.
type Snapshot struct {
	Players      []models.Player
	Clubs        []models.Club
	Matches      []models.Match
	Results      []models.MatchResult
	MatchCounter int
}

// The wire types below are the only place the legacy JSON layout is known.
// Unknown keys are rejected and required keys are checked, so nothing
// half-formed reaches the engine.

type snapshotFile struct {
	Players      []playerJSON `json:"players"`
	Clubs        []clubJSON   `json:"clubs"`
	Matches      []matchJSON  `json:"matches"`
	Results      []resultJSON `json:"results"`
	MatchCounter int          `json:"contadorPartidas"`
}

type playerJSON struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Avatar   string `json:"avatar,omitempty"`
	Position string `json:"position"`
	Points   int    `json:"points"`
	Stats    struct {
		Matches int `json:"matches"`
		Won     int `json:"won"`
	} `json:"stats"`
}

type clubJSON struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type slotsJSON struct {
	Reves1 *int `json:"reves1"`
	Drive1 *int `json:"drive1"`
	Reves2 *int `json:"reves2"`
	Drive2 *int `json:"drive2"`
}

type matchJSON struct {
	ID        int              `json:"id"`
	Date      string           `json:"date"`
	Time      string           `json:"time"`
	Club      string           `json:"club"`
	Court     string           `json:"court"`
	Type      string           `json:"type"`
	Players   slotsJSON        `json:"players"`
	Status    models.StatusSet `json:"status"`
	Winner    *models.Couple   `json:"winner,omitempty"`
	CreatedBy *int             `json:"createdBy,omitempty"`
	CreatedAt *time.Time       `json:"createdAt,omitempty"`
	UpdatedAt *time.Time       `json:"updatedAt,omitempty"`
	Version   int              `json:"version,omitempty"`
}

type resultJSON struct {
	ID          uuid.UUID     `json:"id"`
	MatchID     int           `json:"matchId"`
	Winner      models.Couple `json:"winner"`
	Winners     []int         `json:"winners"`
	Losers      []int         `json:"losers"`
	ConfirmedBy *int          `json:"confirmedBy,omitempty"`
	ConfirmedAt time.Time     `json:"confirmedAt"`
}

// DecodeSnapshot reads and validates a snapshot. The status field may be a
// single string or a list, in English or in the Spanish the first version
// of the app used; it comes out as a StatusSet either way.
func DecodeSnapshot(r io.Reader) (Snapshot, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()

	var f snapshotFile
	if err := dec.Decode(&f); err != nil {
		return Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}

	var s Snapshot
	for i, p := range f.Players {
		if p.ID <= 0 || p.Name == "" {
			return Snapshot{}, fmt.Errorf("player #%d: id and name are required", i)
		}
		pos, err := models.ParsePosition(p.Position)
		if err != nil {
			return Snapshot{}, fmt.Errorf("player %d: %w", p.ID, err)
		}
		s.Players = append(s.Players, models.Player{
			ID:       p.ID,
			Name:     p.Name,
			Avatar:   p.Avatar,
			Position: pos,
			Points:   p.Points,
			Stats:    models.PlayerStats{Matches: p.Stats.Matches, Won: p.Stats.Won},
		})
	}

	for i, c := range f.Clubs {
		if c.ID <= 0 || c.Name == "" {
			return Snapshot{}, fmt.Errorf("club #%d: id and name are required", i)
		}
		s.Clubs = append(s.Clubs, models.Club{ID: c.ID, Name: c.Name})
	}

	maxID := 0
	for i, m := range f.Matches {
		if m.ID <= 0 {
			return Snapshot{}, fmt.Errorf("match #%d: id is required", i)
		}
		if m.Status.IsEmpty() {
			return Snapshot{}, fmt.Errorf("match %d: status is required", m.ID)
		}
		if m.Winner != nil && !m.Winner.Valid() {
			return Snapshot{}, fmt.Errorf("match %d: invalid winner %q", m.ID, *m.Winner)
		}
		match := models.Match{
			ID:    m.ID,
			Date:  m.Date,
			Time:  m.Time,
			Club:  m.Club,
			Court: m.Court,
			Type:  m.Type,
			Players: models.Slots{
				Reves1: m.Players.Reves1,
				Drive1: m.Players.Drive1,
				Reves2: m.Players.Reves2,
				Drive2: m.Players.Drive2,
			},
			Status:    m.Status,
			Winner:    m.Winner,
			CreatedBy: m.CreatedBy,
			UpdatedAt: m.UpdatedAt,
			Version:   m.Version,
		}
		if m.CreatedAt != nil {
			match.CreatedAt = *m.CreatedAt
		}
		if err := checkMatch(match); err != nil {
			return Snapshot{}, fmt.Errorf("match %d: %w", m.ID, err)
		}
		s.Matches = append(s.Matches, match)
		if m.ID > maxID {
			maxID = m.ID
		}
	}

	for _, r := range f.Results {
		if !r.Winner.Valid() {
			return Snapshot{}, fmt.Errorf("result for match %d: invalid winner %q", r.MatchID, r.Winner)
		}
		id := r.ID
		if id == uuid.Nil {
			id = uuid.New()
		}
		s.Results = append(s.Results, models.MatchResult{
			ID:          id,
			MatchID:     r.MatchID,
			Winner:      r.Winner,
			WinnerIDs:   r.Winners,
			LoserIDs:    r.Losers,
			ConfirmedBy: r.ConfirmedBy,
			ConfirmedAt: r.ConfirmedAt,
		})
	}

	s.MatchCounter = f.MatchCounter
	if s.MatchCounter < maxID {
		s.MatchCounter = maxID
	}
	return s, nil
}

// checkMatch rejects records the lifecycle could never have produced. Such a
// match would be stuck: it could neither be joined nor confirmed.
func checkMatch(m models.Match) error {
	fields := []struct{ name, value string }{
		{"date", m.Date}, {"time", m.Time}, {"club", m.Club}, {"court", m.Court}, {"type", m.Type},
	}
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			return fmt.Errorf("%s is required", f.name)
		}
	}
	if id, dup := m.Players.FirstDuplicate(); dup {
		return fmt.Errorf("player %d is in more than one slot", id)
	}

	st := m.Status
	if st.Has(models.TagFinalized) {
		if st != models.NewStatusSet(models.TagFinalized) {
			return fmt.Errorf("status %s: finalized cannot be combined with other tags", st)
		}
		if m.Winner == nil {
			return errors.New("finalized without a winner")
		}
		return nil
	}

	if m.Winner != nil {
		return fmt.Errorf("winner %q on a match that is not finalized", *m.Winner)
	}
	if st.Has(models.TagOpen) == st.Has(models.TagComplete) {
		return fmt.Errorf("status %s: exactly one of open and complete is required", st)
	}
	if st.Has(models.TagPending) && !st.Has(models.TagComplete) {
		return fmt.Errorf("status %s: pending requires complete", st)
	}
	if st.Has(models.TagComplete) != m.Players.IsFull() {
		return fmt.Errorf("status %s does not match %d of 4 players", st, m.Players.Count())
	}
	return nil
}

// EncodeSnapshot writes s in the layout DecodeSnapshot reads.
func EncodeSnapshot(w io.Writer, s Snapshot) error {
	f := snapshotFile{
		Players:      make([]playerJSON, 0, len(s.Players)),
		Clubs:        make([]clubJSON, 0, len(s.Clubs)),
		Matches:      make([]matchJSON, 0, len(s.Matches)),
		Results:      make([]resultJSON, 0, len(s.Results)),
		MatchCounter: s.MatchCounter,
	}
	for _, p := range s.Players {
		pj := playerJSON{ID: p.ID, Name: p.Name, Avatar: p.Avatar, Position: string(p.Position), Points: p.Points}
		pj.Stats.Matches = p.Stats.Matches
		pj.Stats.Won = p.Stats.Won
		f.Players = append(f.Players, pj)
	}
	for _, c := range s.Clubs {
		f.Clubs = append(f.Clubs, clubJSON{ID: c.ID, Name: c.Name})
	}
	for _, m := range s.Matches {
		createdAt := m.CreatedAt
		f.Matches = append(f.Matches, matchJSON{
			ID:    m.ID,
			Date:  m.Date,
			Time:  m.Time,
			Club:  m.Club,
			Court: m.Court,
			Type:  m.Type,
			Players: slotsJSON{
				Reves1: m.Players.Reves1,
				Drive1: m.Players.Drive1,
				Reves2: m.Players.Reves2,
				Drive2: m.Players.Drive2,
			},
			Status:    m.Status,
			Winner:    m.Winner,
			CreatedBy: m.CreatedBy,
			CreatedAt: &createdAt,
			UpdatedAt: m.UpdatedAt,
			Version:   m.Version,
		})
	}
	for _, r := range s.Results {
		f.Results = append(f.Results, resultJSON{
			ID:          r.ID,
			MatchID:     r.MatchID,
			Winner:      r.Winner,
			Winners:     r.WinnerIDs,
			Losers:      r.LoserIDs,
			ConfirmedBy: r.ConfirmedBy,
			ConfirmedAt: r.ConfirmedAt,
		})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(f)
}
