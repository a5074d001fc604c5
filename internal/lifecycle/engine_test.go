package lifecycle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/padelhub/padelhub/internal/models"
)

var fixedNow = time.Date(2025, 3, 14, 18, 30, 0, 0, time.UTC)

func testEngine() *Engine {
	return &Engine{Now: func() time.Time { return fixedNow }}
}

func testFields() Fields {
	return Fields{Date: "2025-03-20", Time: "19:00", Club: "Padel Indoor Norte", Court: "3", Type: "amistosa"}
}

func ptr(v int) *int { return models.IntPtr(v) }

// assertStatusInvariant checks open and complete are mutually exclusive and
// that complete holds exactly when the four slots are filled.
func assertStatusInvariant(t *testing.T, m models.Match) {
	t.Helper()
	if m.Status.Has(models.TagFinalized) {
		return
	}
	assert.NotEqual(t, m.Status.Has(models.TagOpen), m.Status.Has(models.TagComplete), "status %s", m.Status)
	assert.Equal(t, m.Players.IsFull(), m.Status.Has(models.TagComplete), "status %s", m.Status)
}

func TestCreateMatch(t *testing.T) {
	e := testEngine()

	tests := []struct {
		name   string
		slots  models.Slots
		status models.StatusSet
	}{
		{"empty", models.Slots{}, models.NewStatusSet(models.TagOpen)},
		{"two players", models.Slots{Reves1: ptr(10), Drive1: ptr(11)}, models.NewStatusSet(models.TagOpen)},
		{"three players", models.Slots{Reves1: ptr(10), Drive1: ptr(11), Drive2: ptr(13)}, models.NewStatusSet(models.TagOpen)},
		{
			"full",
			models.Slots{Reves1: ptr(10), Drive1: ptr(11), Reves2: ptr(12), Drive2: ptr(13)},
			models.NewStatusSet(models.TagComplete, models.TagPending),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := e.CreateMatch(1, testFields(), tt.slots, ptr(10))
			require.NoError(t, err)
			assert.Equal(t, 1, m.ID)
			assert.Equal(t, tt.status, m.Status)
			assert.Equal(t, fixedNow, m.CreatedAt)
			assert.Nil(t, m.Winner)
			assert.Nil(t, m.UpdatedAt)
			assert.Equal(t, 10, *m.CreatedBy)
			assert.Equal(t, "Padel Indoor Norte", m.Club)
			assertStatusInvariant(t, m)
		})
	}
}

func TestCreateMatch_Validation(t *testing.T) {
	e := testEngine()

	t.Run("duplicate player", func(t *testing.T) {
		_, err := e.CreateMatch(1, testFields(), models.Slots{Reves1: ptr(10), Drive2: ptr(10)}, nil)
		assert.ErrorIs(t, err, ErrDuplicatePlayerInSlots)
		var pe *PlayerError
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, 10, pe.PlayerID)
	})

	t.Run("missing field", func(t *testing.T) {
		f := testFields()
		f.Court = "  "
		_, err := e.CreateMatch(1, f, models.Slots{}, nil)
		assert.ErrorIs(t, err, ErrMissingField)
		var fe *FieldError
		require.ErrorAs(t, err, &fe)
		assert.Equal(t, "court", fe.Field)
	})

	t.Run("non positive id", func(t *testing.T) {
		_, err := e.CreateMatch(0, testFields(), models.Slots{}, nil)
		assert.ErrorIs(t, err, ErrInvalidMatchID)
	})
}

func TestCreateMatch_DoesNotAliasInput(t *testing.T) {
	slots := models.Slots{Reves1: ptr(10)}
	m, err := testEngine().CreateMatch(1, testFields(), slots, nil)
	require.NoError(t, err)

	*slots.Reves1 = 99
	assert.Equal(t, 10, *m.Players.Reves1)
}

func TestJoinMatch_FillsToComplete(t *testing.T) {
	e := testEngine()
	m, err := e.CreateMatch(1, testFields(), models.Slots{Reves1: ptr(10), Drive1: ptr(11)}, nil)
	require.NoError(t, err)

	out, err := e.JoinMatch(m, []Assignment{{Slot: models.SlotReves2, PlayerID: 12}})
	require.NoError(t, err)
	assert.False(t, out.BecameComplete)
	assert.Equal(t, models.NewStatusSet(models.TagOpen), out.Match.Status)
	assertStatusInvariant(t, out.Match)

	out, err = e.JoinMatch(out.Match, []Assignment{{Slot: models.SlotDrive2, PlayerID: 13}})
	require.NoError(t, err)
	assert.True(t, out.BecameComplete)
	assert.Equal(t, models.NewStatusSet(models.TagComplete, models.TagPending), out.Match.Status)
	assert.Equal(t, fixedNow, *out.Match.UpdatedAt)
	assertStatusInvariant(t, out.Match)

	// The input match is untouched.
	assert.Nil(t, m.Players.Reves2)
	assert.Equal(t, models.NewStatusSet(models.TagOpen), m.Status)
}

func TestJoinMatch_Rejections(t *testing.T) {
	e := testEngine()
	open, err := e.CreateMatch(1, testFields(), models.Slots{Reves1: ptr(10), Drive1: ptr(11)}, nil)
	require.NoError(t, err)
	full, err := e.CreateMatch(2, testFields(), models.Slots{Reves1: ptr(10), Drive1: ptr(11), Reves2: ptr(12), Drive2: ptr(13)}, nil)
	require.NoError(t, err)
	finalized, err := e.ConfirmResult(full, players(10, 11, 12, 13), models.CouplePareja1)
	require.NoError(t, err)

	tests := []struct {
		name  string
		match models.Match
		req   []Assignment
		want  error
	}{
		{"no selection", open, nil, ErrNoSelectionMade},
		{"finalized", finalized.Match, []Assignment{{models.SlotReves2, 20}}, ErrMatchClosed},
		{"slot filled", open, []Assignment{{models.SlotReves1, 20}}, ErrSlotAlreadyFilled},
		{"fifth player on full match", full, []Assignment{{models.SlotDrive2, 20}}, ErrSlotAlreadyFilled},
		{"same slot twice", open, []Assignment{{models.SlotReves2, 20}, {models.SlotReves2, 21}}, ErrSlotAlreadyFilled},
		{"player already in match", open, []Assignment{{models.SlotReves2, 10}}, ErrPlayerAlreadyInMatch},
		{"player repeated in request", open, []Assignment{{models.SlotReves2, 20}, {models.SlotDrive2, 20}}, ErrPlayerAlreadyInMatch},
		{"unknown slot", open, []Assignment{{models.Slot("libero"), 20}}, ErrInvalidSlot},
		{"no lifecycle tag", models.Match{ID: 3}, []Assignment{{models.SlotReves1, 20}}, ErrMatchClosed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := tt.match.Clone()
			out, err := e.JoinMatch(tt.match, tt.req)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, JoinOutcome{}, out)
			assert.Equal(t, before, tt.match)
		})
	}
}

func TestJoinMatch_AllOrNothing(t *testing.T) {
	e := testEngine()
	m, err := e.CreateMatch(1, testFields(), models.Slots{Reves1: ptr(10)}, nil)
	require.NoError(t, err)

	// First assignment is fine, second is not: nothing may be applied.
	_, err = e.JoinMatch(m, []Assignment{{models.SlotDrive1, 11}, {models.SlotReves1, 12}})
	var se *SlotError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, models.SlotReves1, se.Slot)
	assert.Nil(t, m.Players.Drive1)
}

func TestEditMatch(t *testing.T) {
	e := testEngine()
	full := models.Slots{Reves1: ptr(10), Drive1: ptr(11), Reves2: ptr(12), Drive2: ptr(13)}

	t.Run("open to complete", func(t *testing.T) {
		m, err := e.CreateMatch(1, testFields(), models.Slots{Reves1: ptr(10)}, nil)
		require.NoError(t, err)
		out, err := e.EditMatch(m, testFields(), full)
		require.NoError(t, err)
		assert.Equal(t, models.NewStatusSet(models.TagComplete, models.TagPending), out.Status)
		assertStatusInvariant(t, out)
	})

	t.Run("complete back to open, overwriting filled slots", func(t *testing.T) {
		m, err := e.CreateMatch(1, testFields(), full, nil)
		require.NoError(t, err)
		out, err := e.EditMatch(m, testFields(), models.Slots{Reves1: ptr(20), Drive1: ptr(21)})
		require.NoError(t, err)
		assert.Equal(t, models.NewStatusSet(models.TagOpen), out.Status)
		assert.Equal(t, []int{20, 21}, out.Players.IDs())
		assertStatusInvariant(t, out)
	})

	t.Run("legacy complete without pending", func(t *testing.T) {
		m := models.Match{ID: 9, Players: full, Status: models.NewStatusSet(models.TagComplete)}
		out, err := e.EditMatch(m, testFields(), full)
		require.NoError(t, err)
		assert.Equal(t, models.NewStatusSet(models.TagComplete, models.TagPending), out.Status)
	})

	t.Run("finalized stays finalized", func(t *testing.T) {
		m, err := e.CreateMatch(1, testFields(), full, nil)
		require.NoError(t, err)
		res, err := e.ConfirmResult(m, players(10, 11, 12, 13), models.CouplePareja2)
		require.NoError(t, err)

		fields := testFields()
		fields.Court = "7"
		out, err := e.EditMatch(res.Match, fields, models.Slots{Reves1: ptr(10)})
		require.NoError(t, err)
		assert.Equal(t, models.NewStatusSet(models.TagFinalized), out.Status)
		require.NotNil(t, out.Winner)
		assert.Equal(t, models.CouplePareja2, *out.Winner)
		assert.Equal(t, "7", out.Court)
	})

	t.Run("duplicate player", func(t *testing.T) {
		m, err := e.CreateMatch(1, testFields(), models.Slots{}, nil)
		require.NoError(t, err)
		_, err = e.EditMatch(m, testFields(), models.Slots{Reves1: ptr(1), Reves2: ptr(1)})
		assert.ErrorIs(t, err, ErrDuplicatePlayerInSlots)
	})
}
