// Package lifecycle implements the match state machine:
//
//	open --(slot filled, <4)--> open
//	open --(4th slot filled)--> complete+pending
//	complete+pending --(ConfirmResult)--> finalized (terminal)
//	edit: any non-finalized state --> open or complete+pending, by slot count
//
// Every operation is a pure function of its inputs. The engine never stores,
// notifies or mutates what it is given; it returns new values and the caller
// persists them. A failed operation returns exactly one error kind from
// errors.go and no new state.
package lifecycle

import (
	"strings"
	"time"

	"github.com/padelhub/padelhub/internal/models"
)

// Fields are the descriptive scheduling fields of a match. The engine only
// checks they are present.
type Fields struct {
	Date  string
	Time  string
	Club  string
	Court string
	Type  string
}

func (f Fields) validate() error {
	checks := []struct {
		name  string
		value string
	}{
		{"date", f.Date},
		{"time", f.Time},
		{"club", f.Club},
		{"court", f.Court},
		{"type", f.Type},
	}
	for _, c := range checks {
		if strings.TrimSpace(c.value) == "" {
			return &FieldError{Field: c.name}
		}
	}
	return nil
}

// Assignment asks for a player to take an open slot.
type Assignment struct {
	Slot     models.Slot
	PlayerID int
}

// JoinOutcome is the result of JoinMatch. BecameComplete is true only on the
// join that filled the fourth slot, so the caller can send a "match full"
// notification exactly once.
type JoinOutcome struct {
	Match          models.Match
	BecameComplete bool
}

// Engine carries the clock used to stamp CreatedAt/UpdatedAt. The zero value
// uses time.Now.
type Engine struct {
	Now func() time.Time
}

// New returns an Engine on the wall clock.
func New() *Engine {
	return &Engine{Now: time.Now}
}

func (e *Engine) now() time.Time {
	if e == nil || e.Now == nil {
		return time.Now().UTC()
	}
	return e.Now().UTC()
}

// statusForSlots is the slot-count rule: four players means the match is
// complete and waiting for a result, anything less means it is open.
func statusForSlots(slots models.Slots) models.StatusSet {
	if slots.IsFull() {
		return models.NewStatusSet(models.TagComplete, models.TagPending)
	}
	return models.NewStatusSet(models.TagOpen)
}

func checkDuplicates(slots models.Slots) error {
	if id, dup := slots.FirstDuplicate(); dup {
		return &PlayerError{PlayerID: id, Err: ErrDuplicatePlayerInSlots}
	}
	return nil
}

// CreateMatch builds a new match under a caller-assigned id. Slots may be
// partly or fully filled; a match created with four players starts out
// complete and pending.
func (e *Engine) CreateMatch(id int, fields Fields, slots models.Slots, createdBy *int) (models.Match, error) {
	if id <= 0 {
		return models.Match{}, ErrInvalidMatchID
	}
	if err := fields.validate(); err != nil {
		return models.Match{}, err
	}
	if err := checkDuplicates(slots); err != nil {
		return models.Match{}, err
	}

	m := models.Match{
		ID:        id,
		Date:      fields.Date,
		Time:      fields.Time,
		Club:      fields.Club,
		Court:     fields.Court,
		Type:      fields.Type,
		Players:   slots.Clone(),
		Status:    statusForSlots(slots),
		CreatedAt: e.now(),
	}
	if createdBy != nil {
		m.CreatedBy = models.IntPtr(*createdBy)
	}
	return m, nil
}

// JoinMatch fills open slots. The whole batch is validated before anything is
// applied: if any assignment is rejected, no slot changes.
func (e *Engine) JoinMatch(match models.Match, assignments []Assignment) (JoinOutcome, error) {
	if match.Status.Has(models.TagFinalized) {
		return JoinOutcome{}, ErrMatchClosed
	}
	// A record that is neither open nor complete has no join transition.
	if !match.Status.Has(models.TagOpen) && !match.Status.Has(models.TagComplete) {
		return JoinOutcome{}, ErrMatchClosed
	}
	if len(assignments) == 0 {
		return JoinOutcome{}, ErrNoSelectionMade
	}

	next := match.Players.Clone()
	requested := make(map[int]bool, len(assignments))
	for _, a := range assignments {
		slot, err := models.ParseSlot(string(a.Slot))
		if err != nil {
			return JoinOutcome{}, &SlotError{Slot: a.Slot, Err: ErrInvalidSlot}
		}
		// Checking against next (not match) also rejects the same slot
		// requested twice in one batch.
		if next.Get(slot) != nil {
			return JoinOutcome{}, &SlotError{Slot: slot, Err: ErrSlotAlreadyFilled}
		}
		if requested[a.PlayerID] || match.Players.Contains(a.PlayerID) {
			return JoinOutcome{}, &PlayerError{PlayerID: a.PlayerID, Err: ErrPlayerAlreadyInMatch}
		}
		requested[a.PlayerID] = true
		next = next.With(slot, models.IntPtr(a.PlayerID))
	}

	out := match.Clone()
	out.Players = next
	out.Status = statusForSlots(next)
	now := e.now()
	out.UpdatedAt = &now

	return JoinOutcome{
		Match:          out,
		BecameComplete: !match.Players.IsFull() && next.IsFull(),
	}, nil
}

// EditMatch is the administrative override: it replaces the scheduling fields
// and all four slots at once, ignoring which slots were already taken.
//
// A finalized match stays finalized (its status is left as {finalized});
// otherwise stale open/complete/pending tags are dropped and the status is
// recomputed from the new slot count. Winner and points are never touched.
func (e *Engine) EditMatch(match models.Match, fields Fields, slots models.Slots) (models.Match, error) {
	if err := fields.validate(); err != nil {
		return models.Match{}, err
	}
	if err := checkDuplicates(slots); err != nil {
		return models.Match{}, err
	}

	out := match.Clone()
	out.Date = fields.Date
	out.Time = fields.Time
	out.Club = fields.Club
	out.Court = fields.Court
	out.Type = fields.Type
	out.Players = slots.Clone()

	if match.Status.Has(models.TagFinalized) {
		out.Status = models.NewStatusSet(models.TagFinalized)
	} else {
		out.Status = statusForSlots(slots)
	}

	now := e.now()
	out.UpdatedAt = &now
	return out, nil
}
