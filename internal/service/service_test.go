package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/padelhub/padelhub/internal/hub"
	"github.com/padelhub/padelhub/internal/lifecycle"
	"github.com/padelhub/padelhub/internal/models"
	"github.com/padelhub/padelhub/internal/store"
)

var fixedNow = time.Date(2025, 3, 14, 18, 30, 0, 0, time.UTC)

var (
	admin  = models.User{PlayerID: 1, Role: models.RoleAdmin}
	player = models.User{PlayerID: 2, Role: models.RolePlayer}
)

// recorder is a Publisher that keeps every event.
type recorder struct {
	mu     sync.Mutex
	events []hub.Event
}

func (r *recorder) Publish(ev hub.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Type
	}
	return out
}

func seed() store.Snapshot {
	return store.Snapshot{
		Players: []models.Player{
			{ID: 1, Name: "Ale Galán", Position: models.PositionDrive},
			{ID: 2, Name: "Juan Lebrón", Position: models.PositionReves},
			{ID: 3, Name: "Arturo Coello", Position: models.PositionDrive, Points: 10, Stats: models.PlayerStats{Matches: 4, Won: 2}},
			{ID: 4, Name: "Agustín Tapia", Position: models.PositionReves},
			{ID: 5, Name: "Paquito Navarro", Position: models.PositionDrive},
		},
		Clubs: []models.Club{{ID: 1, Name: "Padel Indoor Norte"}, {ID: 2, Name: "Club Sur"}},
	}
}

type fixture struct {
	store   *store.Memory
	events  *recorder
	matches *Matches
	players *Players
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	st := store.NewMemoryFromSnapshot(seed())
	rec := &recorder{}
	engine := &lifecycle.Engine{Now: func() time.Time { return fixedNow }}
	return fixture{
		store:   st,
		events:  rec,
		matches: NewMatches(st, engine, rec),
		players: NewPlayers(st, rec),
	}
}

func fields() lifecycle.Fields {
	return lifecycle.Fields{Date: "2025-03-20", Time: "19:00", Club: "Padel Indoor Norte", Court: "3", Type: "amistosa"}
}

func ptr(v int) *int { return models.IntPtr(v) }

func fullSlots() models.Slots {
	return models.Slots{Reves1: ptr(2), Drive1: ptr(1), Reves2: ptr(4), Drive2: ptr(3)}
}

// region Create

func TestMatches_Create(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.matches.Create(ctx, player, CreateInput{Fields: fields(), Slots: models.Slots{Reves1: ptr(2)}})
	require.NoError(t, err)
	assert.Equal(t, 1, first.ID)
	assert.Equal(t, 1, first.Version)
	assert.Equal(t, models.NewStatusSet(models.TagOpen), first.Status)
	assert.Equal(t, 2, *first.CreatedBy)
	assert.Equal(t, fixedNow, first.CreatedAt)

	second, err := f.matches.Create(ctx, player, CreateInput{Fields: fields()})
	require.NoError(t, err)
	assert.Equal(t, 2, second.ID)

	assert.Equal(t, []string{hub.MatchCreated, hub.MatchCreated}, f.events.types())
}

func TestMatches_CreateFullAnnouncesComplete(t *testing.T) {
	f := newFixture(t)

	m, err := f.matches.Create(context.Background(), player, CreateInput{Fields: fields(), Slots: fullSlots()})
	require.NoError(t, err)
	assert.Equal(t, models.NewStatusSet(models.TagComplete, models.TagPending), m.Status)
	assert.Equal(t, []string{hub.MatchCreated, hub.MatchComplete}, f.events.types())
}

func TestMatches_CreateResolvesClubID(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	in := CreateInput{Fields: fields(), ClubID: 2}
	in.Fields.Club = ""
	m, err := f.matches.Create(ctx, player, in)
	require.NoError(t, err)
	assert.Equal(t, "Club Sur", m.Club)

	_, err = f.matches.Create(ctx, player, CreateInput{Fields: fields(), ClubID: 99})
	assert.ErrorIs(t, err, ErrUnknownClub)
}

func TestMatches_CreateRejectsUnknownPlayerAndKeepsCounter(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.matches.Create(ctx, player, CreateInput{Fields: fields(), Slots: models.Slots{Drive1: ptr(42)}})
	require.ErrorIs(t, err, lifecycle.ErrUnknownPlayer)
	var pe *lifecycle.PlayerError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 42, pe.PlayerID)

	m, err := f.matches.Create(ctx, player, CreateInput{Fields: fields()})
	require.NoError(t, err)
	assert.Equal(t, 1, m.ID, "failed create must not consume an id")
	assert.Equal(t, []string{hub.MatchCreated}, f.events.types())
}

func TestMatches_CreateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	in := CreateInput{Fields: fields()}
	in.Fields.Court = " "
	_, err := f.matches.Create(ctx, player, in)
	assert.ErrorIs(t, err, lifecycle.ErrMissingField)

	_, err = f.matches.Create(ctx, player, CreateInput{Fields: fields(), Slots: models.Slots{Reves1: ptr(1), Drive2: ptr(1)}})
	assert.ErrorIs(t, err, lifecycle.ErrDuplicatePlayerInSlots)
}

// endregion

// region Join

func TestMatches_JoinFillsFourthSlot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	m, err := f.matches.Create(ctx, player, CreateInput{Fields: fields(), Slots: models.Slots{Reves1: ptr(2), Drive1: ptr(1), Drive2: ptr(3)}})
	require.NoError(t, err)

	joined, err := f.matches.Join(ctx, player, m.ID, []lifecycle.Assignment{{Slot: models.SlotReves2, PlayerID: 4}})
	require.NoError(t, err)
	assert.Equal(t, 4, *joined.Players.Reves2)
	assert.Equal(t, models.NewStatusSet(models.TagComplete, models.TagPending), joined.Status)
	assert.Equal(t, 2, joined.Version)
	assert.Equal(t, []string{hub.MatchCreated, hub.MatchJoined, hub.MatchComplete}, f.events.types())
}

func TestMatches_JoinRejectionLeavesMatchUntouched(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	m, err := f.matches.Create(ctx, player, CreateInput{Fields: fields(), Slots: models.Slots{Reves1: ptr(2)}})
	require.NoError(t, err)

	tests := []struct {
		name string
		in   []lifecycle.Assignment
		want error
	}{
		{"nothing selected", nil, lifecycle.ErrNoSelectionMade},
		{"slot taken", []lifecycle.Assignment{{Slot: models.SlotReves1, PlayerID: 4}}, lifecycle.ErrSlotAlreadyFilled},
		{"already in match", []lifecycle.Assignment{{Slot: models.SlotDrive2, PlayerID: 2}}, lifecycle.ErrPlayerAlreadyInMatch},
		{"bad slot", []lifecycle.Assignment{{Slot: "centre", PlayerID: 4}}, lifecycle.ErrInvalidSlot},
		{
			"unknown player in an otherwise valid batch",
			[]lifecycle.Assignment{{Slot: models.SlotDrive1, PlayerID: 1}, {Slot: models.SlotDrive2, PlayerID: 77}},
			lifecycle.ErrUnknownPlayer,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.matches.Join(ctx, player, m.ID, tt.in)
			assert.ErrorIs(t, err, tt.want)

			stored, err := f.matches.Get(ctx, m.ID)
			require.NoError(t, err)
			assert.Equal(t, m, stored)
		})
	}
}

func TestMatches_JoinUnknownMatch(t *testing.T) {
	f := newFixture(t)
	_, err := f.matches.Join(context.Background(), player, 404, []lifecycle.Assignment{{Slot: models.SlotDrive1, PlayerID: 1}})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestMatches_ConcurrentJoinsForOneSlot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	m, err := f.matches.Create(ctx, player, CreateInput{Fields: fields(), Slots: models.Slots{Reves1: ptr(2), Drive1: ptr(1)}})
	require.NoError(t, err)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners []int
	)
	for _, id := range []int{3, 4, 5} {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			_, err := f.matches.Join(ctx, player, m.ID, []lifecycle.Assignment{{Slot: models.SlotDrive2, PlayerID: id}})
			if err == nil {
				mu.Lock()
				winners = append(winners, id)
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, lifecycle.ErrSlotAlreadyFilled)
		}(id)
	}
	wg.Wait()

	require.Len(t, winners, 1)
	stored, _ := f.matches.Get(ctx, m.ID)
	assert.Equal(t, winners[0], *stored.Players.Drive2)
	assert.Equal(t, 2, stored.Version)
}

// endregion

// region Edit

func TestMatches_EditRequiresAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m, err := f.matches.Create(ctx, player, CreateInput{Fields: fields()})
	require.NoError(t, err)

	_, err = f.matches.Edit(ctx, player, m.ID, EditInput{Fields: fields()})
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestMatches_EditRecomputesStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m, err := f.matches.Create(ctx, player, CreateInput{Fields: fields(), Slots: fullSlots()})
	require.NoError(t, err)

	in := EditInput{Fields: fields(), Slots: models.Slots{Reves1: ptr(5), Drive1: ptr(1)}}
	in.Fields.Court = "7"
	edited, err := f.matches.Edit(ctx, admin, m.ID, in)
	require.NoError(t, err)
	assert.Equal(t, "7", edited.Court)
	assert.Equal(t, models.NewStatusSet(models.TagOpen), edited.Status)
	assert.Equal(t, 5, *edited.Players.Reves1)
	assert.Equal(t, fixedNow, *edited.UpdatedAt)
}

func TestMatches_EditFinalizedStaysFinalized(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m, err := f.matches.Create(ctx, player, CreateInput{Fields: fields(), Slots: fullSlots()})
	require.NoError(t, err)
	_, err = f.matches.ConfirmResult(ctx, player, m.ID, models.CouplePareja1)
	require.NoError(t, err)

	edited, err := f.matches.Edit(ctx, admin, m.ID, EditInput{Fields: fields(), Slots: models.Slots{Drive1: ptr(1)}})
	require.NoError(t, err)
	assert.Equal(t, models.NewStatusSet(models.TagFinalized), edited.Status)
	require.NotNil(t, edited.Winner)
	assert.Equal(t, models.CouplePareja1, *edited.Winner)

	// Points from the confirmation are not touched by the edit.
	p, _ := f.players.Get(ctx, 1)
	assert.Equal(t, lifecycle.PointsForWin, p.Points)
}

// endregion

// region ConfirmResult

func TestMatches_ConfirmResultScoresAndRecords(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m, err := f.matches.Create(ctx, player, CreateInput{Fields: fields(), Slots: fullSlots()})
	require.NoError(t, err)

	conf, err := f.matches.ConfirmResult(ctx, player, m.ID, models.CouplePareja2)
	require.NoError(t, err)
	assert.Equal(t, models.NewStatusSet(models.TagFinalized), conf.Match.Status)
	assert.Equal(t, models.IntList{3, 4}, conf.Result.WinnerIDs, "drive first")
	assert.Equal(t, models.IntList{1, 2}, conf.Result.LoserIDs)
	assert.Equal(t, fixedNow, conf.Result.ConfirmedAt)
	assert.Equal(t, 2, *conf.Result.ConfirmedBy)

	want := map[int]struct{ points, matches, won int }{
		1: {1, 1, 0},
		2: {1, 1, 0},
		3: {13, 5, 3}, // had 10 points, 4 matches, 2 won
		4: {3, 1, 1},
	}
	for id, w := range want {
		p, err := f.players.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, w.points, p.Points, "player %d points", id)
		assert.Equal(t, w.matches, p.Stats.Matches, "player %d matches", id)
		assert.Equal(t, w.won, p.Stats.Won, "player %d won", id)
	}

	stored, err := f.matches.GetResult(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, conf.Result, stored)
	assert.Contains(t, f.events.types(), hub.ResultConfirmed)
}

func TestMatches_ConfirmResultTwiceIsRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m, err := f.matches.Create(ctx, player, CreateInput{Fields: fields(), Slots: fullSlots()})
	require.NoError(t, err)
	_, err = f.matches.ConfirmResult(ctx, player, m.ID, models.CouplePareja1)
	require.NoError(t, err)

	_, err = f.matches.ConfirmResult(ctx, player, m.ID, models.CouplePareja2)
	assert.ErrorIs(t, err, lifecycle.ErrResultAlreadyFinalized)

	p, _ := f.players.Get(ctx, 1)
	assert.Equal(t, lifecycle.PointsForWin, p.Points, "second confirmation must not score again")
}

func TestMatches_ConfirmResultRejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	open, err := f.matches.Create(ctx, player, CreateInput{Fields: fields(), Slots: models.Slots{Drive1: ptr(1)}})
	require.NoError(t, err)
	_, err = f.matches.ConfirmResult(ctx, player, open.ID, models.CouplePareja1)
	assert.ErrorIs(t, err, lifecycle.ErrMatchNotReady)

	full, err := f.matches.Create(ctx, player, CreateInput{Fields: fields(), Slots: fullSlots()})
	require.NoError(t, err)
	_, err = f.matches.ConfirmResult(ctx, player, full.ID, "pareja3")
	assert.ErrorIs(t, err, lifecycle.ErrInvalidWinnerSelection)

	_, err = f.matches.GetResult(ctx, full.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestMatches_ConfirmResultWithMissingPlayerSavesNothing(t *testing.T) {
	snap := seed()
	snap.Matches = []models.Match{{
		ID: 9, Date: "2025-03-20", Time: "19:00", Club: "Norte", Court: "1", Type: "amistosa",
		Players: models.Slots{Reves1: ptr(2), Drive1: ptr(1), Reves2: ptr(4), Drive2: ptr(99)},
		Status:  models.NewStatusSet(models.TagComplete, models.TagPending),
		Version: 1,
	}}
	st := store.NewMemoryFromSnapshot(snap)
	svc := NewMatches(st, lifecycle.New(), nil)
	ctx := context.Background()

	_, err := svc.ConfirmResult(ctx, player, 9, models.CouplePareja1)
	require.ErrorIs(t, err, lifecycle.ErrUnknownPlayer)

	m, _ := st.LoadMatch(ctx, 9)
	assert.False(t, m.Status.Has(models.TagFinalized))
	p, _ := st.LoadPlayer(ctx, 1)
	assert.Equal(t, 0, p.Points)
}

// endregion

// region Listing

func TestMatches_ListFiltersByStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.matches.Create(ctx, player, CreateInput{Fields: fields()})
	require.NoError(t, err)
	full, err := f.matches.Create(ctx, player, CreateInput{Fields: fields(), Slots: fullSlots()})
	require.NoError(t, err)

	all, err := f.matches.List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	pending, err := f.matches.List(ctx, models.TagPending)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, full.ID, pending[0].ID)

	finalized, err := f.matches.List(ctx, models.TagFinalized)
	require.NoError(t, err)
	assert.Empty(t, finalized)
}

func TestParseStatusFilter(t *testing.T) {
	tag, err := ParseStatusFilter("")
	require.NoError(t, err)
	assert.Equal(t, models.Tag(0), tag)

	tag, err = ParseStatusFilter("Pendiente")
	require.NoError(t, err)
	assert.Equal(t, models.TagPending, tag)

	_, err = ParseStatusFilter("cancelled")
	assert.ErrorIs(t, err, models.ErrInvalidStatusTag)
}

// endregion

// region Players

func TestPlayers_CreateAndUpdate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.players.Create(ctx, player, PlayerInput{Name: "Fede Chingotto", Position: "drive"})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.players.Create(ctx, admin, PlayerInput{Name: "  ", Position: "drive"})
	assert.ErrorIs(t, err, lifecycle.ErrMissingField)

	_, err = f.players.Create(ctx, admin, PlayerInput{Name: "Fede Chingotto", Position: "portero"})
	assert.ErrorIs(t, err, models.ErrInvalidPosition)

	p, err := f.players.Create(ctx, admin, PlayerInput{Name: " Fede Chingotto ", Avatar: "FC", Position: "Revés"})
	require.NoError(t, err)
	assert.Equal(t, 6, p.ID)
	assert.Equal(t, "Fede Chingotto", p.Name)
	assert.Equal(t, models.PositionReves, p.Position)
	assert.Zero(t, p.Points)

	updated, err := f.players.Update(ctx, admin, 3, PlayerInput{Name: "Arturo Coello", Avatar: "AC", Position: "reves"})
	require.NoError(t, err)
	assert.Equal(t, models.PositionReves, updated.Position)
	assert.Equal(t, 10, updated.Points, "points are not editable")
	assert.Equal(t, models.PlayerStats{Matches: 4, Won: 2}, updated.Stats)

	_, err = f.players.Update(ctx, admin, 404, PlayerInput{Name: "Nobody", Position: "drive"})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestPlayers_ListAndRanking(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	found, err := f.players.List(ctx, "coello")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, 3, found[0].ID)

	all, err := f.players.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 5)
	assert.Equal(t, "Agustín Tapia", all[0].Name)

	table, err := f.players.Ranking(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, table[0].Player.ID)
	assert.Equal(t, 1, table[0].Position)

	clubs, err := f.players.Clubs(ctx)
	require.NoError(t, err)
	assert.Len(t, clubs, 2)
}

// endregion

// region Import

func TestImport_LegacySnapshot(t *testing.T) {
	blob := `{
	  "players": [{"id": 1, "name": "Ale Galán", "position": "Drive", "points": 0, "stats": {"matches": 0, "won": 0}}],
	  "clubs": [{"id": 1, "name": "Norte"}],
	  "matches": [{"id": 12, "date": "2025-03-20", "time": "19:00", "club": "Norte", "court": "1", "type": "amistosa",
	               "players": {"reves1": null, "drive1": 1, "reves2": null, "drive2": null}, "status": "abierta", "version": 5}],
	  "results": [],
	  "contadorPartidas": 3
	}`
	snap, err := store.DecodeSnapshot(strings.NewReader(blob))
	require.NoError(t, err)

	st := store.NewMemory()
	ctx := context.Background()
	require.NoError(t, Import(ctx, st, snap))

	m, err := st.LoadMatch(ctx, 12)
	require.NoError(t, err)
	assert.Equal(t, 1, m.Version)

	svc := NewMatches(st, lifecycle.New(), nil)
	next, err := svc.Create(ctx, player, CreateInput{Fields: fields()})
	require.NoError(t, err)
	assert.Equal(t, 13, next.ID, "new ids continue after the highest imported one")

	// Importing the same matches twice fails as a whole.
	assert.ErrorIs(t, Import(ctx, st, snap), store.ErrStaleWrite)
}

// endregion
