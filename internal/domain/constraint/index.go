// Package constraint tracks teammate and opponent history for one event and
// answers whether a proposed pairing breaks a hard constraint.
package constraint

import (
	"github.com/okian/courtside/internal/domain/model"
)

// Kind names a hard constraint.
type Kind string

// Hard constraints plus the soft rating-balance constraint.
const (
	TeammateInEvent       Kind = "teammate_repeat_in_event"
	TeammateFromPrevious  Kind = "teammate_repeat_from_previous_event"
	OpponentInEvent       Kind = "opponent_repeat_in_event"
	RatingBalance         Kind = "rating_balance"
	ParticipantsDuplicate Kind = "duplicate_participant"
)

type set map[model.PairKey]struct{}

func (s set) has(k model.PairKey) bool {
	_, ok := s[k]
	return ok
}

// Index holds the exclusion sets. Sets only grow; nothing is ever relaxed.
// An Index is owned by a single generation attempt and is not safe for
// concurrent use.
type Index struct {
	toggles   model.ConstraintToggles
	previous  set
	teammates set
	opponents set
}

// New builds an index from the toggles and the previous event's teammate pairs.
func New(toggles model.ConstraintToggles, previousTeammates []model.PairKey) *Index {
	idx := &Index{
		toggles:   toggles,
		previous:  make(set, len(previousTeammates)),
		teammates: make(set),
		opponents: make(set),
	}
	for _, k := range previousTeammates {
		idx.previous[model.NewPairKey(k.A, k.B)] = struct{}{}
	}
	return idx
}

// IsForbiddenTeammate reports whether a and b may not be teamed.
func (x *Index) IsForbiddenTeammate(a, b string) bool {
	_, forbidden := x.teammateViolation(model.NewPairKey(a, b))
	return forbidden
}

// IsForbiddenOpponent reports whether a and b may not face each other.
func (x *Index) IsForbiddenOpponent(a, b string) bool {
	return x.toggles.NoRepeatOpponentInEvent && x.opponents.has(model.NewPairKey(a, b))
}

func (x *Index) teammateViolation(k model.PairKey) (Kind, bool) {
	if x.toggles.NoRepeatTeammateInEvent && x.teammates.has(k) {
		return TeammateInEvent, true
	}
	if x.toggles.NoRepeatTeammateFromPreviousEvent && x.previous.has(k) {
		return TeammateFromPrevious, true
	}
	return "", false
}

// RecordRound adds every teammate pair and every cross-team opponent pair of a
// finalized round. History is recorded regardless of toggles.
func (x *Index) RecordRound(games []model.Game) {
	for _, g := range games {
		x.teammates[g.TeamA.Key()] = struct{}{}
		x.teammates[g.TeamB.Key()] = struct{}{}
		for _, k := range g.OpponentKeys() {
			x.opponents[k] = struct{}{}
		}
	}
}

// Violation describes a hard constraint broken by a game.
type Violation struct {
	Round      int           `json:"round"`
	Court      int           `json:"court"`
	Constraint Kind          `json:"constraint"`
	Pair       model.PairKey `json:"pair"`
}

// Violations checks a round against the recorded history without recording it.
func (x *Index) Violations(games []model.Game) []Violation {
	var out []Violation
	for _, g := range games {
		for _, team := range []model.Pair{g.TeamA, g.TeamB} {
			if kind, bad := x.teammateViolation(team.Key()); bad {
				out = append(out, Violation{Round: g.Round, Court: g.Court, Constraint: kind, Pair: team.Key()})
			}
		}
		for _, k := range g.OpponentKeys() {
			if x.IsForbiddenOpponent(k.A, k.B) {
				out = append(out, Violation{Round: g.Round, Court: g.Court, Constraint: OpponentInEvent, Pair: k})
			}
		}
	}
	return out
}

// TeammatePairsOf extracts the teammate pairs of a finished event, sorted and
// without duplicates. The result feeds the next event's previous-event set.
func TeammatePairsOf(games []model.Game) []model.PairKey {
	seen := make(set)
	out := make([]model.PairKey, 0, len(games)*2)
	for _, g := range games {
		for _, k := range []model.PairKey{g.TeamA.Key(), g.TeamB.Key()} {
			if !seen.has(k) {
				seen[k] = struct{}{}
				out = append(out, k)
			}
		}
	}
	model.SortPairKeys(out)
	return out
}
