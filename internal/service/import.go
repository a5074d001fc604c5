package service

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/padelhub/padelhub/internal/models"
	"github.com/padelhub/padelhub/internal/store"
)

// Import loads a legacy snapshot into st in one transaction. Matches and
// results must not exist yet; players and clubs are upserted. The match
// counter is moved past every imported id.
func Import(ctx context.Context, st store.Store, snap store.Snapshot) error {
	err := st.Atomically(ctx, func(repo store.Repository) error {
		if err := repo.SaveClubs(ctx, snap.Clubs); err != nil {
			return fmt.Errorf("clubs: %w", err)
		}
		if err := repo.SavePlayers(ctx, snap.Players); err != nil {
			return fmt.Errorf("players: %w", err)
		}

		matches := make([]models.Match, len(snap.Matches))
		for i, m := range snap.Matches {
			m = m.Clone()
			m.Version = 0
			matches[i] = m
		}
		if err := repo.SaveMatches(ctx, matches); err != nil {
			return fmt.Errorf("matches: %w", err)
		}

		for _, r := range snap.Results {
			if err := repo.SaveResult(ctx, r); err != nil {
				return fmt.Errorf("results: %w", err)
			}
		}
		return repo.EnsureMatchCounter(ctx, snap.MatchCounter)
	})
	if err != nil {
		return err
	}

	logrus.WithFields(logrus.Fields{
		"players": len(snap.Players),
		"clubs":   len(snap.Clubs),
		"matches": len(snap.Matches),
		"results": len(snap.Results),
		"counter": snap.MatchCounter,
	}).Info("snapshot imported")
	return nil
}
