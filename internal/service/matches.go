package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/padelhub/padelhub/internal/api"
	"github.com/padelhub/padelhub/internal/hub"
	"github.com/padelhub/padelhub/internal/lifecycle"
	"github.com/padelhub/padelhub/internal/models"
	"github.com/padelhub/padelhub/internal/store"
)

// Matches runs the four lifecycle operations and the match read paths.
type Matches struct {
	store  store.Store
	engine *lifecycle.Engine
	events Publisher
	log    *logrus.Entry
}

// NewMatches wires the service. A nil publisher discards events.
func NewMatches(st store.Store, engine *lifecycle.Engine, events Publisher) *Matches {
	if events == nil {
		events = discard{}
	}
	return &Matches{
		store:  st,
		engine: engine,
		events: events,
		log:    logrus.WithField("component", "service.matches"),
	}
}

// CreateInput describes a new match. ClubID, when set, is looked up and its
// name replaces Fields.Club.
type CreateInput struct {
	Fields lifecycle.Fields
	ClubID int
	Slots  models.Slots
}

// Create allocates the next match id and stores a new match.
func (s *Matches) Create(ctx context.Context, user models.User, in CreateInput) (models.Match, error) {
	var created models.Match
	err := s.store.Atomically(ctx, func(repo store.Repository) error {
		fields := in.Fields
		if in.ClubID > 0 {
			name, err := clubName(ctx, repo, in.ClubID)
			if err != nil {
				return err
			}
			fields.Club = name
		}

		id, err := repo.NextMatchID(ctx)
		if err != nil {
			return err
		}
		m, err := s.engine.CreateMatch(id, fields, in.Slots, userRef(user))
		if err != nil {
			return err
		}
		if err := requirePlayers(ctx, repo, m.Players.IDs()); err != nil {
			return err
		}
		if err := repo.SaveMatches(ctx, []models.Match{m}); err != nil {
			return err
		}
		created, err = repo.LoadMatch(ctx, id)
		return err
	})
	if err != nil {
		return models.Match{}, err
	}

	s.log.WithFields(logrus.Fields{
		"match":   created.ID,
		"by":      user.PlayerID,
		"players": created.Players.Count(),
		"status":  created.Status.String(),
	}).Info("match created")
	s.events.Publish(hub.Event{Type: hub.MatchCreated, MatchID: created.ID, Data: api.NewMatch(created)})
	if created.Players.IsFull() {
		s.events.Publish(hub.Event{Type: hub.MatchComplete, MatchID: created.ID, Data: api.NewMatch(created)})
	}
	return created, nil
}

func clubName(ctx context.Context, repo store.Repository, id int) (string, error) {
	clubs, err := repo.LoadClubs(ctx)
	if err != nil {
		return "", err
	}
	for _, c := range clubs {
		if c.ID == id {
			return c.Name, nil
		}
	}
	return "", ErrUnknownClub
}

// Join places players in open slots. The whole request succeeds or nothing
// changes.
func (s *Matches) Join(ctx context.Context, user models.User, matchID int, assignments []lifecycle.Assignment) (models.Match, error) {
	var (
		out      lifecycle.JoinOutcome
		joined   models.Match
		newcomer []int
	)
	err := s.store.Atomically(ctx, func(repo store.Repository) error {
		m, err := repo.LoadMatch(ctx, matchID)
		if err != nil {
			return err
		}
		out, err = s.engine.JoinMatch(m, assignments)
		if err != nil {
			return err
		}
		newcomer = make([]int, 0, len(assignments))
		for _, a := range assignments {
			newcomer = append(newcomer, a.PlayerID)
		}
		if err := requirePlayers(ctx, repo, newcomer); err != nil {
			return err
		}
		if err := repo.SaveMatches(ctx, []models.Match{out.Match}); err != nil {
			return err
		}
		joined, err = repo.LoadMatch(ctx, matchID)
		return err
	})
	if err != nil {
		return models.Match{}, err
	}

	s.log.WithFields(logrus.Fields{
		"match":   matchID,
		"by":      user.PlayerID,
		"joined":  newcomer,
		"status":  joined.Status.String(),
		"version": joined.Version,
	}).Info("players joined match")
	s.events.Publish(hub.Event{Type: hub.MatchJoined, MatchID: matchID, Data: api.NewMatch(joined)})
	if out.BecameComplete {
		s.events.Publish(hub.Event{Type: hub.MatchComplete, MatchID: matchID, Data: api.NewMatch(joined)})
	}
	return joined, nil
}

// EditInput replaces a match's descriptive fields and its four slots.
type EditInput struct {
	Fields lifecycle.Fields
	ClubID int
	Slots  models.Slots
}

// Edit is the administrative override. It never touches the winner or any
// player's points, and a finalized match stays finalized.
func (s *Matches) Edit(ctx context.Context, user models.User, matchID int, in EditInput) (models.Match, error) {
	if !user.IsAdmin() {
		return models.Match{}, ErrForbidden
	}

	var edited models.Match
	err := s.store.Atomically(ctx, func(repo store.Repository) error {
		m, err := repo.LoadMatch(ctx, matchID)
		if err != nil {
			return err
		}
		fields := in.Fields
		if in.ClubID > 0 {
			if fields.Club, err = clubName(ctx, repo, in.ClubID); err != nil {
				return err
			}
		}
		next, err := s.engine.EditMatch(m, fields, in.Slots)
		if err != nil {
			return err
		}
		if err := requirePlayers(ctx, repo, next.Players.IDs()); err != nil {
			return err
		}
		if err := repo.SaveMatches(ctx, []models.Match{next}); err != nil {
			return err
		}
		edited, err = repo.LoadMatch(ctx, matchID)
		return err
	})
	if err != nil {
		return models.Match{}, err
	}

	s.log.WithFields(logrus.Fields{
		"match":  matchID,
		"by":     user.PlayerID,
		"status": edited.Status.String(),
	}).Info("match edited")
	s.events.Publish(hub.Event{Type: hub.MatchEdited, MatchID: matchID, Data: api.NewMatch(edited)})
	return edited, nil
}

// Confirmation is a committed result: the finalized match, the four scored
// players and the history record.
type Confirmation struct {
	Match   models.Match
	Players []models.Player
	Result  models.MatchResult
}

// ConfirmResult scores a complete match. The match, the four players and the
// result record are written together.
func (s *Matches) ConfirmResult(ctx context.Context, user models.User, matchID int, winner models.Couple) (Confirmation, error) {
	var conf Confirmation
	err := s.store.Atomically(ctx, func(repo store.Repository) error {
		m, err := repo.LoadMatch(ctx, matchID)
		if err != nil {
			return err
		}

		// Players that cannot be found are left out; the engine reports them.
		var participants []models.Player
		for _, id := range m.Players.IDs() {
			p, err := repo.LoadPlayer(ctx, id)
			if err == nil {
				participants = append(participants, p)
				continue
			}
			if !errors.Is(err, store.ErrNotFound) {
				return err
			}
		}

		out, err := s.engine.ConfirmResult(m, participants, winner)
		if err != nil {
			return err
		}
		if err := repo.SaveMatches(ctx, []models.Match{out.Match}); err != nil {
			return err
		}
		if err := repo.SavePlayers(ctx, out.UpdatedPlayers); err != nil {
			return err
		}

		confirmedAt := time.Now().UTC()
		if out.Match.UpdatedAt != nil {
			confirmedAt = *out.Match.UpdatedAt
		}
		record := models.MatchResult{
			ID:          uuid.New(),
			MatchID:     matchID,
			Winner:      winner,
			WinnerIDs:   out.Winners,
			LoserIDs:    out.Losers,
			ConfirmedBy: userRef(user),
			ConfirmedAt: confirmedAt,
		}
		if err := repo.SaveResult(ctx, record); err != nil {
			return err
		}

		conf.Match, err = repo.LoadMatch(ctx, matchID)
		conf.Players = out.UpdatedPlayers
		conf.Result = record
		return err
	})
	if err != nil {
		return Confirmation{}, err
	}

	s.log.WithFields(logrus.Fields{
		"match":   matchID,
		"by":      user.PlayerID,
		"winner":  winner,
		"winners": conf.Result.WinnerIDs,
		"losers":  conf.Result.LoserIDs,
	}).Info("result confirmed")
	s.events.Publish(hub.Event{Type: hub.ResultConfirmed, MatchID: matchID, Data: api.Confirmation{
		Match:   api.NewMatch(conf.Match),
		Result:  api.NewResult(conf.Result),
		Players: api.NewPlayers(conf.Players),
	}})
	return conf, nil
}

// List returns matches ordered by id. A zero tag returns every match,
// otherwise only those whose status has the tag.
func (s *Matches) List(ctx context.Context, tag models.Tag) ([]models.Match, error) {
	all, err := s.store.LoadMatches(ctx)
	if err != nil {
		return nil, err
	}
	if tag == 0 {
		return all, nil
	}
	out := make([]models.Match, 0, len(all))
	for _, m := range all {
		if m.Status.Has(tag) {
			out = append(out, m)
		}
	}
	return out, nil
}

// ParseStatusFilter turns a ?status= value into a tag; empty means no filter.
func ParseStatusFilter(s string) (models.Tag, error) {
	if strings.TrimSpace(s) == "" {
		return 0, nil
	}
	return models.ParseTag(s)
}

// Get returns one match.
func (s *Matches) Get(ctx context.Context, id int) (models.Match, error) {
	return s.store.LoadMatch(ctx, id)
}

// GetResult returns the result record of a finalized match.
func (s *Matches) GetResult(ctx context.Context, matchID int) (models.MatchResult, error) {
	return s.store.LoadResult(ctx, matchID)
}
