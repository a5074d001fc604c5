// Package service runs the match lifecycle against a store.
//
// Every write follows the same shape: inside store.Atomically, load the latest
// state, hand it to the lifecycle engine, check the players it names exist,
// then save whatever the engine returned. The engine decides; the service only
// loads, saves, logs and announces the change on the hub once it is committed.
package service

import (
	"context"
	"errors"

	"github.com/padelhub/padelhub/internal/hub"
	"github.com/padelhub/padelhub/internal/lifecycle"
	"github.com/padelhub/padelhub/internal/models"
	"github.com/padelhub/padelhub/internal/store"
)

var (
	// ErrForbidden is returned when the user lacks the role an operation needs.
	ErrForbidden = errors.New("operation requires the admin role")
	// ErrUnknownClub is returned when a match names a club id that does not exist.
	ErrUnknownClub = errors.New("unknown club")
)

// Publisher receives an event after each committed change. *hub.Hub is one.
type Publisher interface {
	Publish(ev hub.Event)
}

type discard struct{}

func (discard) Publish(hub.Event) {}

// requirePlayers fails with a PlayerError for the first id that has no player.
func requirePlayers(ctx context.Context, repo store.Repository, ids []int) error {
	for _, id := range ids {
		if _, err := repo.LoadPlayer(ctx, id); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return &lifecycle.PlayerError{PlayerID: id, Err: lifecycle.ErrUnknownPlayer}
			}
			return err
		}
	}
	return nil
}

func userRef(user models.User) *int {
	if user.PlayerID <= 0 {
		return nil
	}
	return models.IntPtr(user.PlayerID)
}
