package models

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidSlot is returned when a slot name is not one of the four court positions.
var ErrInvalidSlot = errors.New("invalid slot")

// Slot names one of the four fixed positions in a doubles match.
type Slot string

const (
	SlotReves1 Slot = "reves1"
	SlotDrive1 Slot = "drive1"
	SlotReves2 Slot = "reves2"
	SlotDrive2 Slot = "drive2"
)

// AllSlots lists the four slots in display order.
var AllSlots = [4]Slot{SlotReves1, SlotDrive1, SlotReves2, SlotDrive2}

// ParseSlot validates a slot name coming from a request body.
func ParseSlot(s string) (Slot, error) {
	slot := Slot(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range AllSlots {
		if slot == known {
			return slot, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidSlot, s)
}

// Couple identifies one side of the net.
type Couple string

const (
	CouplePareja1 Couple = "pareja1" // reves1 + drive1
	CouplePareja2 Couple = "pareja2" // reves2 + drive2
)

// Valid reports whether c is pareja1 or pareja2.
func (c Couple) Valid() bool {
	return c == CouplePareja1 || c == CouplePareja2
}

// Other returns the opposing couple.
func (c Couple) Other() Couple {
	if c == CouplePareja1 {
		return CouplePareja2
	}
	return CouplePareja1
}

// Slots returns the drive and reves slot of the couple, drive first.
func (c Couple) Slots() [2]Slot {
	if c == CouplePareja1 {
		return [2]Slot{SlotDrive1, SlotReves1}
	}
	return [2]Slot{SlotDrive2, SlotReves2}
}

// Slots holds the player id sitting in each position, or nil when open.
// The pointed-to ints are never modified in place; changing a slot always
// means pointing it at a new value.
type Slots struct {
	Reves1 *int `gorm:"column:reves1"`
	Drive1 *int `gorm:"column:drive1"`
	Reves2 *int `gorm:"column:reves2"`
	Drive2 *int `gorm:"column:drive2"`
}

// IntPtr returns a pointer to a copy of v.
func IntPtr(v int) *int {
	return &v
}

// Get returns the player id in slot, or nil if it is open.
func (s Slots) Get(slot Slot) *int {
	switch slot {
	case SlotReves1:
		return s.Reves1
	case SlotDrive1:
		return s.Drive1
	case SlotReves2:
		return s.Reves2
	case SlotDrive2:
		return s.Drive2
	}
	return nil
}

// With returns a copy of s with slot pointed at id (nil empties it).
func (s Slots) With(slot Slot, id *int) Slots {
	var v *int
	if id != nil {
		v = IntPtr(*id)
	}
	switch slot {
	case SlotReves1:
		s.Reves1 = v
	case SlotDrive1:
		s.Drive1 = v
	case SlotReves2:
		s.Reves2 = v
	case SlotDrive2:
		s.Drive2 = v
	}
	return s
}

// Clone returns a copy that shares no pointers with s.
func (s Slots) Clone() Slots {
	var out Slots
	for _, slot := range AllSlots {
		out = out.With(slot, s.Get(slot))
	}
	return out
}

// Count returns how many slots are occupied.
func (s Slots) Count() int {
	n := 0
	for _, slot := range AllSlots {
		if s.Get(slot) != nil {
			n++
		}
	}
	return n
}

// IsFull reports whether all four slots are occupied.
func (s Slots) IsFull() bool {
	return s.Count() == len(AllSlots)
}

// IDs returns the occupied player ids in slot order.
func (s Slots) IDs() []int {
	ids := make([]int, 0, len(AllSlots))
	for _, slot := range AllSlots {
		if id := s.Get(slot); id != nil {
			ids = append(ids, *id)
		}
	}
	return ids
}

// Contains reports whether playerID already sits in any slot.
func (s Slots) Contains(playerID int) bool {
	for _, id := range s.IDs() {
		if id == playerID {
			return true
		}
	}
	return false
}

// CoupleIDs returns the ids of the couple's occupied slots, drive first.
func (s Slots) CoupleIDs(c Couple) []int {
	ids := make([]int, 0, 2)
	for _, slot := range c.Slots() {
		if id := s.Get(slot); id != nil {
			ids = append(ids, *id)
		}
	}
	return ids
}

// FirstDuplicate returns the first player id that occupies more than one slot.
func (s Slots) FirstDuplicate() (int, bool) {
	seen := make(map[int]bool, len(AllSlots))
	for _, id := range s.IDs() {
		if seen[id] {
			return id, true
		}
		seen[id] = true
	}
	return 0, false
}
