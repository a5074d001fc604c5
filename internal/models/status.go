package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidStatusTag is returned when a status tag outside the closed set
// {open, complete, pending, finalized} is decoded, and is the panic value
// (wrapped) when such a tag reaches StatusSet in-process.
var ErrInvalidStatusTag = errors.New("invalid status tag")

// Tag is one lifecycle marker of a match. Each tag is a single bit so a
// whole status fits in one StatusSet byte.
type Tag uint8

const (
	TagOpen      Tag = 1 << iota // Fewer than four players
	TagComplete                  // All four slots filled
	TagPending                   // Complete and waiting for a result
	TagFinalized                 // Winner recorded; terminal
)

// tagOrder fixes the order tags are listed and encoded in.
var tagOrder = [...]Tag{TagOpen, TagComplete, TagPending, TagFinalized}

var tagNames = map[Tag]string{
	TagOpen:      "open",
	TagComplete:  "complete",
	TagPending:   "pending",
	TagFinalized: "finalized",
}

// tagsByName also accepts the Spanish names stored by the first version of
// the app ("abierta", "completa", ...). They are only understood while
// decoding; everything written out uses the English names.
var tagsByName = map[string]Tag{
	"open":       TagOpen,
	"complete":   TagComplete,
	"pending":    TagPending,
	"finalized":  TagFinalized,
	"abierta":    TagOpen,
	"completa":   TagComplete,
	"pendiente":  TagPending,
	"finalizada": TagFinalized,
}

// Valid reports whether t is exactly one of the four known tags.
func (t Tag) Valid() bool {
	_, ok := tagNames[t]
	return ok
}

func (t Tag) String() string {
	if name, ok := tagNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Tag(%d)", uint8(t))
}

// ParseTag converts a stored or user-supplied tag name into a Tag.
func ParseTag(s string) (Tag, error) {
	t, ok := tagsByName[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidStatusTag, s)
	}
	return t, nil
}

func mustBeValid(t Tag) {
	if !t.Valid() {
		panic(fmt.Errorf("%w: %s", ErrInvalidStatusTag, t))
	}
}

// StatusSet is the set of lifecycle tags a match currently carries.
// It is a value type: every operation returns a new set and never touches
// the receiver, so a match's status can be copied freely.
type StatusSet uint8

// NewStatusSet builds a set holding exactly the given tags.
func NewStatusSet(tags ...Tag) StatusSet {
	return StatusSet(0).Set(tags...)
}

// Has reports whether tag t is in the set.
func (s StatusSet) Has(t Tag) bool {
	mustBeValid(t)
	return s&StatusSet(t) != 0
}

// Set replaces the whole set with the given tags. Nothing from the receiver
// is kept.
func (s StatusSet) Set(tags ...Tag) StatusSet {
	var out StatusSet
	for _, t := range tags {
		mustBeValid(t)
		out |= StatusSet(t)
	}
	return out
}

// Add returns the set with t added. Adding a tag twice is a no-op.
func (s StatusSet) Add(t Tag) StatusSet {
	mustBeValid(t)
	return s | StatusSet(t)
}

// Remove returns the set without t. Removing a missing tag is a no-op.
func (s StatusSet) Remove(t Tag) StatusSet {
	mustBeValid(t)
	return s &^ StatusSet(t)
}

// IsEmpty reports whether no tag is set.
func (s StatusSet) IsEmpty() bool {
	return s == 0
}

// Tags lists the tags in the set in lifecycle order.
func (s StatusSet) Tags() []Tag {
	out := make([]Tag, 0, len(tagOrder))
	for _, t := range tagOrder {
		if s&StatusSet(t) != 0 {
			out = append(out, t)
		}
	}
	return out
}

// Strings lists the tag names in lifecycle order.
func (s StatusSet) Strings() []string {
	tags := s.Tags()
	out := make([]string, len(tags))
	for i, t := range tags {
		out[i] = t.String()
	}
	return out
}

func (s StatusSet) String() string {
	return "{" + strings.Join(s.Strings(), ",") + "}"
}

// ParseStatusSet builds a set from tag names, failing on the first unknown one.
func ParseStatusSet(names []string) (StatusSet, error) {
	var out StatusSet
	for _, name := range names {
		t, err := ParseTag(name)
		if err != nil {
			return 0, err
		}
		out |= StatusSet(t)
	}
	return out, nil
}

// MarshalJSON always encodes the array form, e.g. ["complete","pending"].
func (s StatusSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Strings())
}

// UnmarshalJSON accepts both the array form and the single-string form older
// records were saved with ("abierta").
func (s *StatusSet) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		*s = 0
		return nil
	}

	var names []string
	if strings.HasPrefix(trimmed, "\"") {
		var single string
		if err := json.Unmarshal(data, &single); err != nil {
			return err
		}
		names = []string{single}
	} else if err := json.Unmarshal(data, &names); err != nil {
		return fmt.Errorf("status must be a string or a list of strings: %w", err)
	}

	parsed, err := ParseStatusSet(names)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Value stores the set as a JSON array in a jsonb column.
func (s StatusSet) Value() (driver.Value, error) {
	b, err := s.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan reads a status column written by Value (or by hand, as a bare string).
func (s *StatusSet) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*s = 0
		return nil
	case []byte:
		return s.UnmarshalJSON(v)
	case string:
		return s.UnmarshalJSON([]byte(v))
	default:
		return fmt.Errorf("cannot scan %T into StatusSet", src)
	}
}
