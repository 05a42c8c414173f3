package rating

import (
	"fmt"

	"github.com/okian/courtside/internal/domain/model"
)

// System is the closed set of rating policies.
type System string

// Rating systems.
const (
	Baseline System = "baseline"
	CatchUp  System = "catch_up"
)

// MedianMode decides when the catch-up median is sampled.
type MedianMode string

// Median modes.
const (
	// MedianEventStart freezes the median before the first game of the event.
	MedianEventStart MedianMode = "event_start"
	// MedianPerGame recomputes it from running ratings before every game.
	MedianPerGame MedianMode = "per_game"
)

// Rounding decides where deltas are rounded to whole points.
type Rounding string

// Rounding modes.
const (
	RoundNone          Rounding = "none"
	RoundBeforeScaling Rounding = "before_scaling"
	RoundAfterScaling  Rounding = "after_scaling"
)

// Catch-up caps.
const (
	MaxBelowMedianBonus       = 0.5
	MaxAboveMedianReduction   = 0.3
	MaxAboveMedianLossPenalty = 0.2
)

const defaultKFactor = 32

// Config selects and tunes a rating system.
type Config struct {
	System  System
	KFactor float64

	// Catch-up only.
	BelowMedianBonus       float64
	AboveMedianReduction   float64
	AboveMedianLossPenalty float64
	MedianMode             MedianMode
	Rounding               Rounding
}

// DefaultConfig is the baseline system with K=32.
func DefaultConfig() Config {
	return Config{
		System:               Baseline,
		KFactor:              defaultKFactor,
		BelowMedianBonus:     MaxBelowMedianBonus,
		AboveMedianReduction: MaxAboveMedianReduction,
		MedianMode:           MedianEventStart,
		Rounding:             RoundNone,
	}
}

// FromModel converts a group's stored rating config. Empty fields take
// defaults.
func FromModel(m model.RatingConfig) Config {
	c := DefaultConfig()
	if m.System != "" {
		c.System = System(m.System)
	}
	if m.KFactor != 0 {
		c.KFactor = m.KFactor
	}
	if m.System == string(CatchUp) {
		c.BelowMedianBonus = m.BelowMedianBonus
		c.AboveMedianReduction = m.AboveMedianReduction
		c.AboveMedianLossPenalty = m.AboveMedianLossPenalty
	}
	if m.MedianMode != "" {
		c.MedianMode = MedianMode(m.MedianMode)
	}
	if m.Rounding != "" {
		c.Rounding = Rounding(m.Rounding)
	}
	return c
}

// Model converts back to the stored form.
func (c Config) Model() model.RatingConfig {
	return model.RatingConfig{
		System:                 string(c.System),
		KFactor:                c.KFactor,
		BelowMedianBonus:       c.BelowMedianBonus,
		AboveMedianReduction:   c.AboveMedianReduction,
		AboveMedianLossPenalty: c.AboveMedianLossPenalty,
		MedianMode:             string(c.MedianMode),
		Rounding:               string(c.Rounding),
	}
}

// Validate checks the enums and the catch-up caps.
func (c Config) Validate() error {
	switch c.System {
	case Baseline, CatchUp:
	default:
		return fmt.Errorf("%w: unknown system %q", ErrInvalidConfig, c.System)
	}
	switch c.MedianMode {
	case MedianEventStart, MedianPerGame:
	default:
		return fmt.Errorf("%w: unknown median mode %q", ErrInvalidConfig, c.MedianMode)
	}
	switch c.Rounding {
	case RoundNone, RoundBeforeScaling, RoundAfterScaling:
	default:
		return fmt.Errorf("%w: unknown rounding %q", ErrInvalidConfig, c.Rounding)
	}
	switch {
	case c.KFactor <= 0:
		return fmt.Errorf("%w: k factor must be positive", ErrInvalidConfig)
	case c.BelowMedianBonus < 0 || c.BelowMedianBonus > MaxBelowMedianBonus:
		return fmt.Errorf("%w: below-median bonus must be within [0, %.2f]", ErrInvalidConfig, MaxBelowMedianBonus)
	case c.AboveMedianReduction < 0 || c.AboveMedianReduction > MaxAboveMedianReduction:
		return fmt.Errorf("%w: above-median reduction must be within [0, %.2f]", ErrInvalidConfig, MaxAboveMedianReduction)
	case c.AboveMedianLossPenalty < 0 || c.AboveMedianLossPenalty > MaxAboveMedianLossPenalty:
		return fmt.Errorf("%w: above-median loss penalty must be within [0, %.2f]", ErrInvalidConfig, MaxAboveMedianLossPenalty)
	}
	return nil
}
