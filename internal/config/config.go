// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Defaults live in New; Load layers .env, an optional YAML file and env vars on top.
// - All loading functions accept context.Context as the first parameter.
// - External errors are wrapped with this package's sentinel kinds.
package config

import (
	"runtime"

	"github.com/okian/courtside/internal/domain/model"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log encoding: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// DBDriver selects the storage backend: sqlite or postgres.
	DBDriver string `koanf:"db_driver"`

	// DBDSN is the driver specific data source name.
	DBDSN string `koanf:"db_dsn"`

	// JobQueueSize bounds the in-memory generation job queue.
	JobQueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of generation workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize bounds the duplicate job tracker.
	DedupeSize int `koanf:"dedupe_size"`

	// MaxStandingsLimit caps GET /groups/{id}/standings?limit.
	MaxStandingsLimit int `koanf:"max_standings_limit"`

	// Generation holds defaults applied to events created without explicit settings.
	Generation Generation `koanf:"generation"`

	// Rating holds defaults applied to groups created without explicit rating config.
	Rating Rating `koanf:"rating"`
}

// Generation mirrors model.Settings for configuration purposes.
type Generation struct {
	EloDiff             float64 `koanf:"elo_diff"`
	EloDiffMax          float64 `koanf:"elo_diff_max"`
	EloDiffStep         float64 `koanf:"elo_diff_step"`
	AutoRelax           bool    `koanf:"auto_relax"`
	RoundAttempts       int     `koanf:"round_attempts"`
	PairingPermutations int     `koanf:"pairing_permutations"`
	BacktrackLimit      int     `koanf:"backtrack_limit"`
	AssemblyNodeBudget  int     `koanf:"assembly_node_budget"`
}

// Rating mirrors rating.Config for configuration purposes.
type Rating struct {
	System                 string  `koanf:"system"`
	KFactor                float64 `koanf:"k_factor"`
	BelowMedianBonus       float64 `koanf:"below_median_bonus"`
	AboveMedianReduction   float64 `koanf:"above_median_reduction"`
	AboveMedianLossPenalty float64 `koanf:"above_median_loss_penalty"`
	MedianMode             string  `koanf:"median_mode"`
	Rounding               string  `koanf:"rounding"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:          "info",
		LogFormat:         "text",
		Addr:              ":9080",
		DBDriver:          "sqlite",
		DBDSN:             "file:courtside.db?_foreign_keys=on",
		JobQueueSize:      1_000,
		WorkerCount:       runtime.NumCPU(),
		DedupeSize:        10_000,
		MaxStandingsLimit: 200,
		Generation: Generation{
			EloDiff:             0.05,
			EloDiffMax:          0.30,
			EloDiffStep:         0.05,
			AutoRelax:           true,
			RoundAttempts:       60,
			PairingPermutations: 25,
			BacktrackLimit:      64,
			AssemblyNodeBudget:  20_000,
		},
		Rating: Rating{
			System:                 "baseline",
			KFactor:                32,
			BelowMedianBonus:       0.5,
			AboveMedianReduction:   0.3,
			AboveMedianLossPenalty: 0,
			MedianMode:             "event_start",
			Rounding:               "none",
		},
	}
}

// Settings converts the generation defaults into an event settings snapshot
// with every constraint enabled.
func (g Generation) Settings() model.Settings {
	return model.Settings{
		EloDiff:             g.EloDiff,
		EloDiffMax:          g.EloDiffMax,
		EloDiffStep:         g.EloDiffStep,
		AutoRelax:           g.AutoRelax,
		Toggles:             model.AllConstraints(),
		RoundAttempts:       g.RoundAttempts,
		PairingPermutations: g.PairingPermutations,
		BacktrackLimit:      g.BacktrackLimit,
		AssemblyNodeBudget:  g.AssemblyNodeBudget,
	}
}

// Model converts the rating defaults into a group rating config.
func (r Rating) Model() model.RatingConfig {
	return model.RatingConfig{
		System:                 r.System,
		KFactor:                r.KFactor,
		BelowMedianBonus:       r.BelowMedianBonus,
		AboveMedianReduction:   r.AboveMedianReduction,
		AboveMedianLossPenalty: r.AboveMedianLossPenalty,
		MedianMode:             r.MedianMode,
		Rounding:               r.Rounding,
	}
}
