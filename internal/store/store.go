// Package store persists players, clubs, matches and result records.
//
// The lifecycle engine never talks to a store. The service layer loads the
// latest state, runs one engine operation and saves the outcome, all inside
// Store.Atomically so the read-modify-write is a single critical section.
// Two adapters are provided: Postgres (gorm) and Memory, an in-process store
// that can mirror itself to a JSON snapshot file in the layout the browser
// version of the app kept in local storage.
package store

import (
	"context"
	"errors"

	"github.com/padelhub/padelhub/internal/models"
)

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrStaleWrite is returned when a record changed between load and save.
	ErrStaleWrite = errors.New("record changed since it was read")
)

// Repository is the load/save surface the service layer works against.
//
// SaveMatches is optimistic: a match is written only if the stored Version
// still equals m.Version (0 for a match that does not exist yet), and it is
// stored with Version+1. Any mismatch fails the whole call with ErrStaleWrite.
type Repository interface {
	LoadMatches(ctx context.Context) ([]models.Match, error)
	LoadMatch(ctx context.Context, id int) (models.Match, error)
	SaveMatches(ctx context.Context, matches []models.Match) error
	NextMatchID(ctx context.Context) (int, error)
	// EnsureMatchCounter moves the counter so NextMatchID returns more than
	// atLeast. It never moves it backwards.
	EnsureMatchCounter(ctx context.Context, atLeast int) error

	LoadPlayers(ctx context.Context) ([]models.Player, error)
	LoadPlayer(ctx context.Context, id int) (models.Player, error)
	SavePlayers(ctx context.Context, players []models.Player) error
	CreatePlayer(ctx context.Context, p models.Player) (models.Player, error)

	LoadClubs(ctx context.Context) ([]models.Club, error)
	SaveClubs(ctx context.Context, clubs []models.Club) error

	LoadResults(ctx context.Context) ([]models.MatchResult, error)
	LoadResult(ctx context.Context, matchID int) (models.MatchResult, error)
	SaveResult(ctx context.Context, r models.MatchResult) error
}

// Store is a Repository that can run several operations as one unit.
// If fn returns an error nothing it saved is kept.
type Store interface {
	Repository
	Atomically(ctx context.Context, fn func(repo Repository) error) error
	Close() error
}
