// Package rating turns completed game results into per-player rating deltas.
//
// Two systems exist. Baseline is team Elo: team ratings are member means and
// the team delta K*(S-E) goes undivided to both members. Catch-up starts from
// the baseline delta and scales it per player by where that player sits
// relative to the group median.
package rating

import (
	"fmt"
	"math"
	"slices"

	"github.com/okian/courtside/internal/domain/model"
	"github.com/okian/courtside/internal/domain/standings"
)

// ExpectedScore is team A's expected score against team B.
func ExpectedScore(ra, rb float64) float64 {
	return 1 / (1 + math.Pow(10, (rb-ra)/400))
}

// actualScore maps a result to team A's score.
func actualScore(r model.Result) (float64, bool) {
	switch r {
	case model.ResultTeam1Win:
		return 1, true
	case model.ResultTeam2Win:
		return 0, true
	case model.ResultTie:
		return 0.5, true
	}
	return 0, false
}

// Engine applies one Config. It holds no mutable state.
type Engine struct {
	cfg Config
}

// New validates cfg and returns an Engine.
func New(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{cfg: cfg}, nil
}

// Config returns the engine's configuration.
func (e *Engine) Config() Config { return e.cfg }

// GameDeltas computes the delta for each of the game's four participants from
// their pre-game ratings. median is only read by the catch-up system.
func (e *Engine) GameDeltas(g model.Game, ratings map[string]float64, median float64) (map[string]float64, error) {
	actual, ok := actualScore(g.Result())
	if !ok {
		return nil, fmt.Errorf("%w: round %d court %d", ErrIncompleteResult, g.Round, g.Court)
	}
	for _, id := range g.Participants() {
		if _, ok := ratings[id]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingRating, id)
		}
	}

	ra := model.TeamRating(ratings[g.TeamA.A], ratings[g.TeamA.B])
	rb := model.TeamRating(ratings[g.TeamB.A], ratings[g.TeamB.B])
	teamDelta := e.cfg.KFactor * (actual - ExpectedScore(ra, rb))
	if e.cfg.Rounding == RoundBeforeScaling {
		teamDelta = math.Round(teamDelta)
	}

	out := make(map[string]float64, 4)
	for _, side := range []struct {
		pair  model.Pair
		delta float64
	}{{g.TeamA, teamDelta}, {g.TeamB, -teamDelta}} {
		for _, id := range []string{side.pair.A, side.pair.B} {
			d := side.delta
			switch e.cfg.System {
			case Baseline:
			case CatchUp:
				d = e.catchUp(d, ratings[id], median)
			}
			if e.cfg.Rounding == RoundAfterScaling {
				d = math.Round(d)
			}
			out[id] = d
		}
	}
	return out, nil
}

// catchUp scales one player's baseline delta. Players exactly at the median
// and losses below it are left alone.
func (e *Engine) catchUp(delta, rating, median float64) float64 {
	switch {
	case rating < median && delta > 0:
		return delta * (1 + e.cfg.BelowMedianBonus)
	case rating > median && delta > 0:
		return delta * (1 - e.cfg.AboveMedianReduction)
	case rating > median && delta < 0:
		return delta * (1 + e.cfg.AboveMedianLossPenalty)
	}
	return delta
}

// ApplyEvent rates every game of a completed event and returns one update per
// participant, sorted by player ID. Every game is checked before anything is
// computed, so an incomplete event yields no updates at all.
//
// Games are processed in (round, court) order on running ratings. table is the
// group's standings used for the median; it is cloned, never modified. A nil
// table falls back to the median of the event's own participants.
func (e *Engine) ApplyEvent(eventID string, games []model.Game, ratings map[string]float64, table *standings.Standings) ([]model.RatingUpdate, error) {
	for _, g := range games {
		if g.Result() == model.ResultUnset {
			return nil, fmt.Errorf("%w: game %s round %d court %d", ErrIncompleteResult, g.ID, g.Round, g.Court)
		}
		for _, id := range g.Participants() {
			if _, ok := ratings[id]; !ok {
				return nil, fmt.Errorf("%w: %s", ErrMissingRating, id)
			}
		}
	}

	ordered := slices.Clone(games)
	model.SortGames(ordered)

	running := make(map[string]float64)
	for _, g := range ordered {
		for _, id := range g.Participants() {
			running[id] = ratings[id]
		}
	}
	if table == nil {
		table = standings.FromRatings(running)
	} else {
		table = table.Clone()
	}
	eventMedian, _ := table.Median()

	for _, g := range ordered {
		median := eventMedian
		if e.cfg.MedianMode == MedianPerGame {
			median, _ = table.Median()
		}
		deltas, err := e.GameDeltas(g, running, median)
		if err != nil {
			return nil, err
		}
		for _, id := range g.Participants() {
			running[id] += deltas[id]
			table.Set(id, running[id])
		}
	}

	ids := make([]string, 0, len(running))
	for id := range running {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	updates := make([]model.RatingUpdate, 0, len(ids))
	for _, id := range ids {
		before, after := ratings[id], running[id]
		updates = append(updates, model.RatingUpdate{
			EventID:      eventID,
			PlayerID:     id,
			RatingBefore: before,
			RatingAfter:  after,
			Delta:        after - before,
			RatingSystem: string(e.cfg.System),
		})
	}
	return updates, nil
}
