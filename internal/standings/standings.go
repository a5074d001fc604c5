// Package standings orders the player directory for display: the points
// ranking, the alphabetical roster and name search.
package standings

import (
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/padelhub/padelhub/internal/models"
)

// Entry is one row of the ranking table.
type Entry struct {
	Position int // 1-based; tied players share a position
	Player   models.Player
}

// newCollator compares names the way a Spanish speaker expects: case and
// accents are ignored, so "Álvaro" sorts next to "alvaro".
// Collators keep internal buffers, so each sort gets its own.
func newCollator() *collate.Collator {
	return collate.New(language.Spanish, collate.Loose)
}

// Ranking orders players by points, then matches won, then name. Players with
// the same points and wins share a position ("1, 2, 2, 4").
func Ranking(players []models.Player) []Entry {
	sorted := append([]models.Player(nil), players...)
	c := newCollator()
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Points != b.Points {
			return a.Points > b.Points
		}
		if a.Stats.Won != b.Stats.Won {
			return a.Stats.Won > b.Stats.Won
		}
		return c.CompareString(a.Name, b.Name) < 0
	})

	entries := make([]Entry, len(sorted))
	for i, p := range sorted {
		pos := i + 1
		if i > 0 {
			prev := entries[i-1]
			if prev.Player.Points == p.Points && prev.Player.Stats.Won == p.Stats.Won {
				pos = prev.Position
			}
		}
		entries[i] = Entry{Position: pos, Player: p}
	}
	return entries
}

// Alphabetical returns a copy of players sorted by name.
func Alphabetical(players []models.Player) []models.Player {
	sorted := append([]models.Player(nil), players...)
	c := newCollator()
	sort.SliceStable(sorted, func(i, j int) bool {
		return c.CompareString(sorted[i].Name, sorted[j].Name) < 0
	})
	return sorted
}

// Search returns the players whose name fuzzily matches query, best match
// first. Accents and case are ignored, and an empty query returns the whole
// roster alphabetically.
func Search(players []models.Player, query string) []models.Player {
	query = strings.TrimSpace(query)
	if query == "" {
		return Alphabetical(players)
	}

	names := make([]string, len(players))
	for i, p := range players {
		names[i] = p.Name
	}

	ranks := fuzzy.RankFindNormalizedFold(query, names)
	c := newCollator()
	sort.SliceStable(ranks, func(i, j int) bool {
		if ranks[i].Distance != ranks[j].Distance {
			return ranks[i].Distance < ranks[j].Distance
		}
		return c.CompareString(ranks[i].Target, ranks[j].Target) < 0
	})

	out := make([]models.Player, 0, len(ranks))
	for _, r := range ranks {
		out = append(out, players[r.OriginalIndex])
	}
	return out
}
