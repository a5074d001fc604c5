package service

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/padelhub/padelhub/internal/api"
	"github.com/padelhub/padelhub/internal/hub"
	"github.com/padelhub/padelhub/internal/lifecycle"
	"github.com/padelhub/padelhub/internal/models"
	"github.com/padelhub/padelhub/internal/standings"
	"github.com/padelhub/padelhub/internal/store"
)

// Players serves the player directory, the ranking and the club list.
type Players struct {
	store  store.Store
	events Publisher
	log    *logrus.Entry
}

// NewPlayers wires the service. A nil publisher discards events.
func NewPlayers(st store.Store, events Publisher) *Players {
	if events == nil {
		events = discard{}
	}
	return &Players{store: st, events: events, log: logrus.WithField("component", "service.players")}
}

// PlayerInput is the admin-editable part of a player. Points and stats are
// not here: they only change when a result is confirmed.
type PlayerInput struct {
	Name     string
	Avatar   string
	Position string
}

func (in PlayerInput) validate() (models.Position, error) {
	if strings.TrimSpace(in.Name) == "" {
		return "", &lifecycle.FieldError{Field: "name"}
	}
	return models.ParsePosition(in.Position)
}

// List returns the roster alphabetically, or the players matching query.
func (s *Players) List(ctx context.Context, query string) ([]models.Player, error) {
	players, err := s.store.LoadPlayers(ctx)
	if err != nil {
		return nil, err
	}
	return standings.Search(players, query), nil
}

// Ranking returns the standings table.
func (s *Players) Ranking(ctx context.Context) ([]standings.Entry, error) {
	players, err := s.store.LoadPlayers(ctx)
	if err != nil {
		return nil, err
	}
	return standings.Ranking(players), nil
}

// Get returns one player.
func (s *Players) Get(ctx context.Context, id int) (models.Player, error) {
	return s.store.LoadPlayer(ctx, id)
}

// Create adds a player with no points.
func (s *Players) Create(ctx context.Context, user models.User, in PlayerInput) (models.Player, error) {
	if !user.IsAdmin() {
		return models.Player{}, ErrForbidden
	}
	pos, err := in.validate()
	if err != nil {
		return models.Player{}, err
	}

	p, err := s.store.CreatePlayer(ctx, models.Player{
		Name:     strings.TrimSpace(in.Name),
		Avatar:   strings.TrimSpace(in.Avatar),
		Position: pos,
	})
	if err != nil {
		return models.Player{}, err
	}

	s.log.WithFields(logrus.Fields{"player": p.ID, "by": user.PlayerID}).Info("player created")
	s.events.Publish(hub.Event{Type: hub.PlayerSaved, Data: api.NewPlayer(p)})
	return p, nil
}

// Update changes a player's name, avatar and position.
func (s *Players) Update(ctx context.Context, user models.User, id int, in PlayerInput) (models.Player, error) {
	if !user.IsAdmin() {
		return models.Player{}, ErrForbidden
	}
	pos, err := in.validate()
	if err != nil {
		return models.Player{}, err
	}

	var updated models.Player
	err = s.store.Atomically(ctx, func(repo store.Repository) error {
		p, err := repo.LoadPlayer(ctx, id)
		if err != nil {
			return err
		}
		p.Name = strings.TrimSpace(in.Name)
		p.Avatar = strings.TrimSpace(in.Avatar)
		p.Position = pos
		if err := repo.SavePlayers(ctx, []models.Player{p}); err != nil {
			return err
		}
		updated, err = repo.LoadPlayer(ctx, id)
		return err
	})
	if err != nil {
		return models.Player{}, err
	}

	s.log.WithFields(logrus.Fields{"player": id, "by": user.PlayerID}).Info("player updated")
	s.events.Publish(hub.Event{Type: hub.PlayerSaved, Data: api.NewPlayer(updated)})
	return updated, nil
}

// Clubs lists the venues.
func (s *Players) Clubs(ctx context.Context) ([]models.Club, error) {
	return s.store.LoadClubs(ctx)
}
