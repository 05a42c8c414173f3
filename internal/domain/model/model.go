// Package model contains domain models passed between layers.
package model

import (
	"slices"
	"time"
)

// Participant is a group member with a current rating. Ratings change only
// when an event completes.
type Participant struct {
	ID      string  `json:"id"`
	GroupID string  `json:"groupId"`
	Name    string  `json:"name"`
	Rating  float64 `json:"rating"`
}

// Pair is a teammate assignment for one round.
type Pair struct {
	A string `json:"a"`
	B string `json:"b"`
}

// Key returns the unordered form of the pair.
func (p Pair) Key() PairKey { return NewPairKey(p.A, p.B) }

// Has reports whether id is one of the two members.
func (p Pair) Has(id string) bool { return p.A == id || p.B == id }

// PairKey is an unordered pair of participant identifiers, normalized so that
// A <= B.
type PairKey struct {
	A string `json:"a"`
	B string `json:"b"`
}

// NewPairKey normalizes a and b into a PairKey.
func NewPairKey(a, b string) PairKey {
	if b < a {
		a, b = b, a
	}
	return PairKey{A: a, B: b}
}

// SortPairKeys orders keys lexicographically, in place.
func SortPairKeys(keys []PairKey) {
	slices.SortFunc(keys, func(x, y PairKey) int {
		if x.A != y.A {
			if x.A < y.A {
				return -1
			}
			return 1
		}
		switch {
		case x.B < y.B:
			return -1
		case x.B > y.B:
			return 1
		}
		return 0
	})
}

// EventStatus tracks an event's lifecycle.
type EventStatus string

// Event statuses.
const (
	EventDraft     EventStatus = "DRAFT"
	EventGenerated EventStatus = "GENERATED"
	EventCompleted EventStatus = "COMPLETED"
)

// Event is one scheduled session for a fixed roster.
type Event struct {
	ID             string      `json:"id"`
	GroupID        string      `json:"groupId"`
	Sequence       int         `json:"sequence"`
	Status         EventStatus `json:"status"`
	ParticipantIDs []string    `json:"participantIds"`
	Courts         int         `json:"courts"`
	Rounds         int         `json:"rounds"`
	Settings       Settings    `json:"settings"`
	Seed           string      `json:"seed,omitempty"`
	CreatedAt      time.Time   `json:"createdAt"`
	CompletedAt    *time.Time  `json:"completedAt,omitempty"`
}

// Round is the set of games played simultaneously across all courts.
type Round struct {
	Index int    `json:"index"`
	Games []Game `json:"games"`
}

// Participants lists everyone playing in the round in court order.
func (r Round) Participants() []string {
	out := make([]string, 0, len(r.Games)*4)
	for _, g := range r.Games {
		out = append(out, g.Participants()...)
	}
	return out
}

// Schedule is the output of a successful generation.
type Schedule struct {
	EventID  string             `json:"eventId"`
	Rounds   []Round            `json:"rounds"`
	Metadata GenerationMetadata `json:"metadata"`
}

// Games flattens the schedule in (round, court) order.
func (s Schedule) Games() []Game {
	var out []Game
	for _, r := range s.Rounds {
		out = append(out, r.Games...)
	}
	return out
}

// GroupRounds buckets games by round index, ordered by round then court.
func GroupRounds(games []Game) []Round {
	sorted := slices.Clone(games)
	SortGames(sorted)
	var rounds []Round
	for _, g := range sorted {
		if n := len(rounds); n == 0 || rounds[n-1].Index != g.Round {
			rounds = append(rounds, Round{Index: g.Round})
		}
		last := &rounds[len(rounds)-1]
		last.Games = append(last.Games, g)
	}
	return rounds
}

// SortGames orders games by (round, court), in place.
func SortGames(games []Game) {
	slices.SortStableFunc(games, func(a, b Game) int {
		if a.Round != b.Round {
			return a.Round - b.Round
		}
		return a.Court - b.Court
	})
}

// Group is the scope for players, events and a rating scale.
type Group struct {
	ID     string       `json:"id"`
	Name   string       `json:"name"`
	Rating RatingConfig `json:"rating"`
}

// RatingConfig selects and tunes the group's rating system. It mirrors
// rating.Config without importing it.
type RatingConfig struct {
	System                 string  `json:"system"`
	KFactor                float64 `json:"kFactor"`
	BelowMedianBonus       float64 `json:"belowMedianBonus"`
	AboveMedianReduction   float64 `json:"aboveMedianReduction"`
	AboveMedianLossPenalty float64 `json:"aboveMedianLossPenalty"`
	MedianMode             string  `json:"medianMode"`
	Rounding               string  `json:"rounding"`
}

// RatingUpdate is the audit row written per participant per completed event.
type RatingUpdate struct {
	EventID      string  `json:"eventId"`
	PlayerID     string  `json:"playerId"`
	RatingBefore float64 `json:"ratingBefore"`
	RatingAfter  float64 `json:"ratingAfter"`
	Delta        float64 `json:"delta"`
	RatingSystem string  `json:"ratingSystem"`
}
