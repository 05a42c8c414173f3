// Package simulation plays synthetic seasons through the schedule orchestrator
// and the rating engine, and reports how each rating system spreads and
// orders the players relative to their hidden skill.
package simulation

import (
	"errors"
	"fmt"

	"github.com/okian/courtside/internal/domain/model"
	"github.com/okian/courtside/internal/domain/rating"
	"github.com/okian/courtside/internal/domain/schedule"
)

// ErrInvalidConfig is returned for a season that cannot be played.
var ErrInvalidConfig = errors.New("invalid simulation config")

// Default season shape.
const (
	DefaultPlayers         = 16
	DefaultCourts          = 2
	DefaultRounds          = 3
	DefaultEvents          = 200
	DefaultInitialRating   = 1000
	DefaultSkillSpread     = 150
	DefaultCheckpointEvery = 20
)

// Config holds configuration for one simulation run.
type Config struct {
	Players         int     // size of the synthetic group
	Courts          int     // courts per event
	Rounds          int     // rounds per event
	Events          int     // events per season
	Seed            string  // root seed; the same seed replays the same run
	InitialRating   float64 // every player starts here
	SkillSpread     float64 // standard deviation of hidden skill around InitialRating
	CheckpointEvery int     // events between convergence samples; 0 disables

	Settings model.Settings
	Systems  []rating.Config
}

// DefaultConfig returns a small season comparing baseline against catch-up.
func DefaultConfig() Config {
	catchUp := rating.DefaultConfig()
	catchUp.System = rating.CatchUp
	catchUp.BelowMedianBonus = rating.MaxBelowMedianBonus
	catchUp.AboveMedianReduction = rating.MaxAboveMedianReduction

	return Config{
		Players:         DefaultPlayers,
		Courts:          DefaultCourts,
		Rounds:          DefaultRounds,
		Events:          DefaultEvents,
		Seed:            "simulation",
		InitialRating:   DefaultInitialRating,
		SkillSpread:     DefaultSkillSpread,
		CheckpointEvery: DefaultCheckpointEvery,
		Settings:        model.DefaultSettings(),
		Systems:         []rating.Config{rating.DefaultConfig(), catchUp},
	}
}

// Validate checks that every event can seat its participants.
func (c Config) Validate() error {
	switch {
	case c.Courts <= 0 || c.Rounds <= 0 || c.Events <= 0:
		return fmt.Errorf("%w: courts, rounds and events must be positive", ErrInvalidConfig)
	case c.Players < c.Courts*schedule.CourtSize:
		return fmt.Errorf("%w: %d players cannot fill %d courts", ErrInvalidConfig, c.Players, c.Courts)
	case c.SkillSpread < 0:
		return fmt.Errorf("%w: skill spread must not be negative", ErrInvalidConfig)
	case len(c.Systems) == 0:
		return fmt.Errorf("%w: at least one rating system is required", ErrInvalidConfig)
	}
	for _, sys := range c.Systems {
		if err := sys.Validate(); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
	}
	return nil
}
