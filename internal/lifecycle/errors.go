package lifecycle

import (
	"errors"
	"fmt"

	"github.com/padelhub/padelhub/internal/models"
)

// Every engine failure is one of these kinds. Callers match them with
// errors.Is; the typed wrappers below add the slot, player or field involved.
var (
	ErrDuplicatePlayerInSlots = errors.New("same player assigned to more than one slot")
	ErrSlotAlreadyFilled      = errors.New("slot already filled")
	ErrPlayerAlreadyInMatch   = errors.New("player already in match")
	ErrNoSelectionMade        = errors.New("no player selected")
	ErrMatchClosed            = errors.New("match is closed")
	ErrMatchNotReady          = errors.New("match is not awaiting a result")
	ErrResultAlreadyFinalized = errors.New("result already confirmed")
	ErrInvalidWinnerSelection = errors.New("winner must be pareja1 or pareja2")
	ErrInvalidMatchID         = errors.New("match id must be positive")
	ErrMissingField           = errors.New("missing scheduling field")
	ErrUnknownPlayer          = errors.New("unknown player")

	// Decoding errors owned by the models package, re-exported so callers
	// only need to look in one place.
	ErrInvalidStatusTag = models.ErrInvalidStatusTag
	ErrInvalidSlot      = models.ErrInvalidSlot
)

// SlotError names the slot an assignment failed on.
type SlotError struct {
	Slot models.Slot
	Err  error
}

func (e *SlotError) Error() string {
	return fmt.Sprintf("slot %s: %v", e.Slot, e.Err)
}

func (e *SlotError) Unwrap() error { return e.Err }

// PlayerError names the player an operation failed on.
type PlayerError struct {
	PlayerID int
	Err      error
}

func (e *PlayerError) Error() string {
	return fmt.Sprintf("player %d: %v", e.PlayerID, e.Err)
}

func (e *PlayerError) Unwrap() error { return e.Err }

// FieldError names the scheduling field that was left empty.
type FieldError struct {
	Field string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%v: %s", ErrMissingField, e.Field)
}

func (e *FieldError) Unwrap() error { return ErrMissingField }
