// Package models defines the data structures that map to database tables and
// the value types the match lifecycle engine works on.
// GORM uses these structs to generate SQL queries and map database rows back to Go values.
// The struct field tags (the backtick strings like `gorm:"..."`) tell GORM how to handle
// each field: its column type, constraints, default values, and how embedded structs are flattened.
//
// The data model represents a padel club where:
//   - Players have a fixed court position (drive or reves) and accumulate ranking points
//   - Matches have four slots; two slots form a couple (pareja) on each side of the net
//   - A match moves open → complete+pending → finalized as slots fill and a result is confirmed
//   - Each confirmed result is kept as a MatchResult for history
package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	// uuid gives result records an identifier that does not depend on the match counter.
	"github.com/google/uuid"
)

// --- Enums ---
// Named string types plus constants, so a Position can't be passed where a Role is expected
// while the values stay human-readable in the database.

// ErrInvalidPosition is returned when a player position is neither drive nor reves.
var ErrInvalidPosition = errors.New("invalid position")

// Position is a player's fixed side of the court.
type Position string

const (
	PositionDrive Position = "drive" // Right side; usually the more consistent player
	PositionReves Position = "reves" // Left side ("revés"); usually the finisher
)

// ParsePosition normalizes the spellings found in stored data ("Drive", "Revés").
func ParsePosition(s string) (Position, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "drive":
		return PositionDrive, nil
	case "reves", "revés":
		return PositionReves, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidPosition, s)
}

// Role is the permission level of the requesting user.
type Role string

const (
	RoleAdmin  Role = "admin"  // Can edit any match and manage players
	RolePlayer Role = "player" // Can create, join and confirm matches
)

// User is the requesting user of an operation. It is always passed explicitly
// (never looked up from shared state) and only ever used for provenance and
// route-level authorization, never inside the lifecycle engine.
type User struct {
	PlayerID int
	Role     Role
}

// IsAdmin reports whether the user may use administrative overrides.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// --- Models ---
// Each struct below maps to a database table. GORM uses the struct name (snake_cased and
// pluralized) as the table name by default: Player -> players, Match -> matches, etc.

// PlayerStats counts finalized matches a player took part in and won.
type PlayerStats struct {
	Matches int `gorm:"not null;default:0"`
	Won     int `gorm:"not null;default:0"`
}

// Player is a member of the club who can sit in match slots.
// Points and Stats only ever grow, and only through result confirmation.
type Player struct {
	ID        int         `gorm:"primaryKey"`
	Name      string      `gorm:"not null"`
	Avatar    string      `gorm:"not null;default:''"` // Initials or an emoji shown in place of a photo
	Position  Position    `gorm:"type:varchar(8);not null"`
	Points    int         `gorm:"not null;default:0"`
	Stats     PlayerStats `gorm:"embedded;embeddedPrefix:stats_"` // Flattened to stats_matches / stats_won
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Lost returns the number of finalized matches the player did not win.
func (p Player) Lost() int {
	return p.Stats.Matches - p.Stats.Won
}

// WinRate returns the rounded percentage of matches won, 0 when none were played.
func (p Player) WinRate() int {
	if p.Stats.Matches == 0 {
		return 0
	}
	return (p.Stats.Won*100 + p.Stats.Matches/2) / p.Stats.Matches
}

// Club is a venue where matches are played.
type Club struct {
	ID   int    `gorm:"primaryKey"`
	Name string `gorm:"uniqueIndex;not null"`
}

// Match is a single padel match and its lifecycle state.
//
// The ID is assigned by the caller from the match counter (never invented by GORM),
// which is why autoIncrement is disabled. Version is bumped by the store on every
// write and checked on the next one, so two clients can't overwrite each other.
type Match struct {
	ID        int        `gorm:"primaryKey;autoIncrement:false"`
	Date      string     `gorm:"not null"` // "YYYY-MM-DD", opaque to the lifecycle engine
	Time      string     `gorm:"not null"` // "HH:MM"
	Club      string     `gorm:"not null"` // Club name, copied at creation time
	Court     string     `gorm:"not null"`
	Type      string     `gorm:"not null"` // e.g. "amistosa", "competitiva"
	Players   Slots      `gorm:"embedded"`
	Status    StatusSet  `gorm:"type:jsonb;not null"`
	Winner    *Couple    `gorm:"type:varchar(8)"` // Set only once finalized
	CreatedBy *int       // Player id of the creator; provenance only
	CreatedAt time.Time  `gorm:"autoCreateTime:false"`
	UpdatedAt *time.Time `gorm:"autoUpdateTime:false"`
	Version   int        `gorm:"not null;default:0"`
}

// Clone returns a deep copy so callers can change it without affecting the original.
func (m Match) Clone() Match {
	out := m
	out.Players = m.Players.Clone()
	if m.Winner != nil {
		w := *m.Winner
		out.Winner = &w
	}
	if m.CreatedBy != nil {
		out.CreatedBy = IntPtr(*m.CreatedBy)
	}
	if m.UpdatedAt != nil {
		t := *m.UpdatedAt
		out.UpdatedAt = &t
	}
	return out
}

// IntList is a list of player ids stored as a JSON array column.
type IntList []int

// Value stores the list as JSON text.
func (l IntList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]int(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan reads a JSON array column back into the list.
func (l *IntList) Scan(src any) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*l = nil
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into IntList", src)
	}
	var ids []int
	if err := json.Unmarshal(data, &ids); err != nil {
		return err
	}
	*l = ids
	return nil
}

// MatchResult records one result confirmation: who won, who lost, who confirmed it.
// The unique index on MatchID means a match can never be scored twice.
type MatchResult struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	MatchID     int       `gorm:"uniqueIndex;not null"`
	Winner      Couple    `gorm:"type:varchar(8);not null"`
	WinnerIDs   IntList   `gorm:"column:winner_ids;type:jsonb;not null"`
	LoserIDs    IntList   `gorm:"column:loser_ids;type:jsonb;not null"`
	ConfirmedBy *int
	ConfirmedAt time.Time `gorm:"not null"`
}
