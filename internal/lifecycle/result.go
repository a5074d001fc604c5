package lifecycle

import (
	"fmt"

	"github.com/padelhub/padelhub/internal/models"
)

// Points awarded on result confirmation. Losing still earns a point for
// turning up.
const (
	PointsForWin  = 3
	PointsForLoss = 1
)

// ResultOutcome is what ConfirmResult hands back for the caller to persist.
// The match and the four players must be saved together.
type ResultOutcome struct {
	Match          models.Match
	UpdatedPlayers []models.Player // The four participants, in slot order
	Winners        []int           // Drive first
	Losers         []int           // Drive first
}

// ConfirmResult records the winning couple, finalizes the match and scores
// the four participants:
//
//	everyone: stats.matches += 1
//	winners:  points += 3, stats.won += 1
//	losers:   points += 1
//
// A match can only be scored once; confirming a finalized match is rejected
// with ErrResultAlreadyFinalized and leaves every player untouched.
func (e *Engine) ConfirmResult(match models.Match, players []models.Player, winner models.Couple) (ResultOutcome, error) {
	if match.Status.Has(models.TagFinalized) {
		return ResultOutcome{}, ErrResultAlreadyFinalized
	}
	if !match.Status.Has(models.TagComplete) || !match.Status.Has(models.TagPending) || !match.Players.IsFull() {
		return ResultOutcome{}, ErrMatchNotReady
	}
	if !winner.Valid() {
		return ResultOutcome{}, fmt.Errorf("%w: %q", ErrInvalidWinnerSelection, winner)
	}

	winners := match.Players.CoupleIDs(winner)
	losers := match.Players.CoupleIDs(winner.Other())

	byID := make(map[int]models.Player, len(players))
	for _, p := range players {
		byID[p.ID] = p
	}

	isWinner := make(map[int]bool, len(winners))
	for _, id := range winners {
		isWinner[id] = true
	}

	updated := make([]models.Player, 0, len(models.AllSlots))
	for _, id := range match.Players.IDs() {
		p, ok := byID[id]
		if !ok {
			return ResultOutcome{}, &PlayerError{PlayerID: id, Err: ErrUnknownPlayer}
		}
		p.Stats.Matches++
		if isWinner[id] {
			p.Points += PointsForWin
			p.Stats.Won++
		} else {
			p.Points += PointsForLoss
		}
		updated = append(updated, p)
	}

	out := match.Clone()
	out.Status = models.NewStatusSet(models.TagFinalized)
	w := winner
	out.Winner = &w
	now := e.now()
	out.UpdatedAt = &now

	return ResultOutcome{
		Match:          out,
		UpdatedPlayers: updated,
		Winners:        winners,
		Losers:         losers,
	}, nil
}
