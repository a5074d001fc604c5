package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/padelhub/padelhub/internal/models"
)

// Memory keeps the whole data set in process. Every operation runs under one
// mutex on a private copy of the state that replaces the live state only if
// the operation succeeds (and, when a path is set, only after the snapshot
// file was written). A failed operation therefore leaves nothing behind.
type Memory struct {
	mu    sync.Mutex
	state *state
	path  string
	log   *logrus.Entry
}

var _ Store = (*Memory)(nil)

// NewMemory returns an empty store that is never written to disk.
func NewMemory() *Memory {
	return &Memory{
		state: newState(),
		log:   logrus.WithField("component", "store.memory"),
	}
}

// NewMemoryFromSnapshot returns a store primed with s.
func NewMemoryFromSnapshot(s Snapshot) *Memory {
	m := NewMemory()
	m.state = stateFromSnapshot(s)
	return m
}

// OpenMemory loads the snapshot file at path (if it exists) and writes the
// state back to it after every successful operation.
func OpenMemory(path string) (*Memory, error) {
	m := NewMemory()
	m.path = path

	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		m.log.WithField("path", path).Info("snapshot not found, starting empty")
		return m, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	snap, err := DecodeSnapshot(f)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	m.state = stateFromSnapshot(snap)
	m.log.WithFields(logrus.Fields{
		"path":    path,
		"players": len(snap.Players),
		"matches": len(snap.Matches),
	}).Info("snapshot loaded")
	return m, nil
}

// Snapshot returns a copy of the current data set.
func (m *Memory) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.snapshot()
}

// Atomically runs fn against a working copy and commits it if fn succeeds.
func (m *Memory) Atomically(ctx context.Context, fn func(repo Repository) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	work := m.state.clone()
	if err := fn(work); err != nil {
		return err
	}
	if m.path != "" {
		if err := writeSnapshotFile(m.path, work.snapshot()); err != nil {
			m.log.WithError(err).Error("snapshot write failed, changes discarded")
			return err
		}
	}
	m.state = work
	return nil
}

// view runs a read-only fn against the live state without copying it.
func (m *Memory) view(ctx context.Context, fn func(repo Repository) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(m.state)
}

// Close is a no-op; every commit is already on disk.
func (m *Memory) Close() error { return nil }

func writeSnapshotFile(path string, s Snapshot) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".snapshot-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := EncodeSnapshot(tmp, s); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// The Repository methods on Memory each run as their own small transaction.

func (m *Memory) LoadMatches(ctx context.Context) (out []models.Match, err error) {
	err = m.view(ctx, func(r Repository) error {
		out, err = r.LoadMatches(ctx)
		return err
	})
	return out, err
}

func (m *Memory) LoadMatch(ctx context.Context, id int) (out models.Match, err error) {
	err = m.view(ctx, func(r Repository) error {
		out, err = r.LoadMatch(ctx, id)
		return err
	})
	return out, err
}

func (m *Memory) SaveMatches(ctx context.Context, matches []models.Match) error {
	return m.Atomically(ctx, func(r Repository) error { return r.SaveMatches(ctx, matches) })
}

func (m *Memory) NextMatchID(ctx context.Context) (id int, err error) {
	err = m.Atomically(ctx, func(r Repository) error {
		id, err = r.NextMatchID(ctx)
		return err
	})
	return id, err
}

func (m *Memory) EnsureMatchCounter(ctx context.Context, atLeast int) error {
	return m.Atomically(ctx, func(r Repository) error { return r.EnsureMatchCounter(ctx, atLeast) })
}

func (m *Memory) LoadPlayers(ctx context.Context) (out []models.Player, err error) {
	err = m.view(ctx, func(r Repository) error {
		out, err = r.LoadPlayers(ctx)
		return err
	})
	return out, err
}

func (m *Memory) LoadPlayer(ctx context.Context, id int) (out models.Player, err error) {
	err = m.view(ctx, func(r Repository) error {
		out, err = r.LoadPlayer(ctx, id)
		return err
	})
	return out, err
}

func (m *Memory) SavePlayers(ctx context.Context, players []models.Player) error {
	return m.Atomically(ctx, func(r Repository) error { return r.SavePlayers(ctx, players) })
}

func (m *Memory) CreatePlayer(ctx context.Context, p models.Player) (out models.Player, err error) {
	err = m.Atomically(ctx, func(r Repository) error {
		out, err = r.CreatePlayer(ctx, p)
		return err
	})
	return out, err
}

func (m *Memory) LoadClubs(ctx context.Context) (out []models.Club, err error) {
	err = m.view(ctx, func(r Repository) error {
		out, err = r.LoadClubs(ctx)
		return err
	})
	return out, err
}

func (m *Memory) SaveClubs(ctx context.Context, clubs []models.Club) error {
	return m.Atomically(ctx, func(r Repository) error { return r.SaveClubs(ctx, clubs) })
}

func (m *Memory) LoadResults(ctx context.Context) (out []models.MatchResult, err error) {
	err = m.view(ctx, func(r Repository) error {
		out, err = r.LoadResults(ctx)
		return err
	})
	return out, err
}

func (m *Memory) LoadResult(ctx context.Context, matchID int) (out models.MatchResult, err error) {
	err = m.view(ctx, func(r Repository) error {
		out, err = r.LoadResult(ctx, matchID)
		return err
	})
	return out, err
}

func (m *Memory) SaveResult(ctx context.Context, res models.MatchResult) error {
	return m.Atomically(ctx, func(r Repository) error { return r.SaveResult(ctx, res) })
}

// state is the unlocked data set. It implements Repository directly and is
// only ever used through Memory.Atomically.
type state struct {
	players map[int]models.Player
	clubs   map[int]models.Club
	matches map[int]models.Match
	results map[int]models.MatchResult // keyed by match id
	counter int
}

func newState() *state {
	return &state{
		players: make(map[int]models.Player),
		clubs:   make(map[int]models.Club),
		matches: make(map[int]models.Match),
		results: make(map[int]models.MatchResult),
	}
}

func stateFromSnapshot(s Snapshot) *state {
	st := newState()
	for _, p := range s.Players {
		st.players[p.ID] = p
	}
	for _, c := range s.Clubs {
		st.clubs[c.ID] = c
	}
	for _, m := range s.Matches {
		st.matches[m.ID] = m.Clone()
	}
	for _, r := range s.Results {
		st.results[r.MatchID] = cloneResult(r)
	}
	st.counter = s.MatchCounter
	return st
}

func cloneResult(r models.MatchResult) models.MatchResult {
	r.WinnerIDs = append(models.IntList(nil), r.WinnerIDs...)
	r.LoserIDs = append(models.IntList(nil), r.LoserIDs...)
	if r.ConfirmedBy != nil {
		r.ConfirmedBy = models.IntPtr(*r.ConfirmedBy)
	}
	return r
}

func (s *state) clone() *state {
	return stateFromSnapshot(s.snapshot())
}

func (s *state) snapshot() Snapshot {
	var snap Snapshot
	for _, id := range sortedKeys(s.players) {
		snap.Players = append(snap.Players, s.players[id])
	}
	for _, id := range sortedKeys(s.clubs) {
		snap.Clubs = append(snap.Clubs, s.clubs[id])
	}
	for _, id := range sortedKeys(s.matches) {
		snap.Matches = append(snap.Matches, s.matches[id].Clone())
	}
	for _, id := range sortedKeys(s.results) {
		snap.Results = append(snap.Results, cloneResult(s.results[id]))
	}
	snap.MatchCounter = s.counter
	return snap
}

func sortedKeys[V any](m map[int]V) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

func (s *state) LoadMatches(context.Context) ([]models.Match, error) {
	out := make([]models.Match, 0, len(s.matches))
	for _, id := range sortedKeys(s.matches) {
		out = append(out, s.matches[id].Clone())
	}
	return out, nil
}

func (s *state) LoadMatch(_ context.Context, id int) (models.Match, error) {
	m, ok := s.matches[id]
	if !ok {
		return models.Match{}, fmt.Errorf("match %d: %w", id, ErrNotFound)
	}
	return m.Clone(), nil
}

func (s *state) SaveMatches(_ context.Context, matches []models.Match) error {
	for _, m := range matches {
		stored, exists := s.matches[m.ID]
		if (!exists && m.Version != 0) || (exists && stored.Version != m.Version) {
			return fmt.Errorf("match %d: %w", m.ID, ErrStaleWrite)
		}
	}
	for _, m := range matches {
		saved := m.Clone()
		saved.Version = m.Version + 1
		s.matches[m.ID] = saved
	}
	return nil
}

func (s *state) NextMatchID(context.Context) (int, error) {
	s.counter++
	return s.counter, nil
}

func (s *state) EnsureMatchCounter(_ context.Context, atLeast int) error {
	if s.counter < atLeast {
		s.counter = atLeast
	}
	return nil
}

func (s *state) LoadPlayers(context.Context) ([]models.Player, error) {
	out := make([]models.Player, 0, len(s.players))
	for _, id := range sortedKeys(s.players) {
		out = append(out, s.players[id])
	}
	return out, nil
}

func (s *state) LoadPlayer(_ context.Context, id int) (models.Player, error) {
	p, ok := s.players[id]
	if !ok {
		return models.Player{}, fmt.Errorf("player %d: %w", id, ErrNotFound)
	}
	return p, nil
}

func (s *state) SavePlayers(_ context.Context, players []models.Player) error {
	for _, p := range players {
		if p.ID <= 0 {
			return fmt.Errorf("save player %q: id is required", p.Name)
		}
		s.players[p.ID] = p
	}
	return nil
}

func (s *state) CreatePlayer(_ context.Context, p models.Player) (models.Player, error) {
	if p.ID == 0 {
		for id := range s.players {
			if id > p.ID {
				p.ID = id
			}
		}
		p.ID++
	} else if _, taken := s.players[p.ID]; taken {
		return models.Player{}, fmt.Errorf("player %d: %w", p.ID, ErrStaleWrite)
	}
	s.players[p.ID] = p
	return p, nil
}

func (s *state) LoadClubs(context.Context) ([]models.Club, error) {
	out := make([]models.Club, 0, len(s.clubs))
	for _, id := range sortedKeys(s.clubs) {
		out = append(out, s.clubs[id])
	}
	return out, nil
}

func (s *state) SaveClubs(_ context.Context, clubs []models.Club) error {
	for _, c := range clubs {
		s.clubs[c.ID] = c
	}
	return nil
}

func (s *state) LoadResults(context.Context) ([]models.MatchResult, error) {
	out := make([]models.MatchResult, 0, len(s.results))
	for _, id := range sortedKeys(s.results) {
		out = append(out, cloneResult(s.results[id]))
	}
	return out, nil
}

func (s *state) LoadResult(_ context.Context, matchID int) (models.MatchResult, error) {
	r, ok := s.results[matchID]
	if !ok {
		return models.MatchResult{}, fmt.Errorf("result for match %d: %w", matchID, ErrNotFound)
	}
	return cloneResult(r), nil
}

func (s *state) SaveResult(_ context.Context, r models.MatchResult) error {
	if _, exists := s.results[r.MatchID]; exists {
		return fmt.Errorf("result for match %d: %w", r.MatchID, ErrStaleWrite)
	}
	s.results[r.MatchID] = cloneResult(r)
	return nil
}
