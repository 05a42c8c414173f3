package model

// Result is derived from a game's scores and never stored on its own.
type Result string

// Game results.
const (
	ResultUnset    Result = "UNSET"
	ResultTeam1Win Result = "TEAM1_WIN"
	ResultTeam2Win Result = "TEAM2_WIN"
	ResultTie      Result = "TIE"
)

// Game is one 2v2 match. TeamA is team 1, TeamB is team 2.
type Game struct {
	ID          string  `json:"id"`
	EventID     string  `json:"eventId"`
	Round       int     `json:"round"`
	Court       int     `json:"court"`
	TeamA       Pair    `json:"teamA"`
	TeamB       Pair    `json:"teamB"`
	TeamARating float64 `json:"teamARating"`
	TeamBRating float64 `json:"teamBRating"`
	ScoreTeam1  *int    `json:"scoreTeam1"`
	ScoreTeam2  *int    `json:"scoreTeam2"`
}

// Result derives the outcome from the recorded scores.
func (g Game) Result() Result {
	return DeriveResult(g.ScoreTeam1, g.ScoreTeam2)
}

// DeriveResult maps a score pair to a Result. Anything short of two scores is unset.
func DeriveResult(s1, s2 *int) Result {
	if s1 == nil || s2 == nil {
		return ResultUnset
	}
	switch {
	case *s1 > *s2:
		return ResultTeam1Win
	case *s2 > *s1:
		return ResultTeam2Win
	default:
		return ResultTie
	}
}

// Participants returns the four identifiers, team A first.
func (g Game) Participants() []string {
	return []string{g.TeamA.A, g.TeamA.B, g.TeamB.A, g.TeamB.B}
}

// Has reports whether id plays in this game.
func (g Game) Has(id string) bool {
	return g.TeamA.Has(id) || g.TeamB.Has(id)
}

// OpponentKeys returns the four cross-team pairs.
func (g Game) OpponentKeys() []PairKey {
	return []PairKey{
		NewPairKey(g.TeamA.A, g.TeamB.A),
		NewPairKey(g.TeamA.A, g.TeamB.B),
		NewPairKey(g.TeamA.B, g.TeamB.A),
		NewPairKey(g.TeamA.B, g.TeamB.B),
	}
}

// TeamRating is the arithmetic mean of two member ratings.
func TeamRating(r1, r2 float64) float64 {
	return (r1 + r2) / 2
}
