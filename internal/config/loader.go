package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix     = "COURTSIDE_"
	envConfigPath = "COURTSIDE_CONFIG"
	envDotEnvPath = "COURTSIDE_DOTENV"
	defaultDotEnv = ".env"
)

// Load builds a Config by layering defaults, .env, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. .env file (COURTSIDE_DOTENV, default ./.env) exported into the process env
//  3. YAML file if COURTSIDE_CONFIG is set
//  4. env (prefix COURTSIDE_); nested keys use a double underscore,
//     e.g. COURTSIDE_GENERATION__ELO_DIFF -> generation.elo_diff
func Load(_ context.Context) (*Config, error) {
	if err := loadDotEnv(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	base := New()
	k := koanf.New(".")

	if path := os.Getenv(envConfigPath); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), strings.ToLower(envPrefix))
		return strings.ReplaceAll(s, "__", ".")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// loadDotEnv exports variables from a .env file when present. Existing
// environment variables win.
func loadDotEnv() error {
	path := os.Getenv(envDotEnvPath)
	if path == "" {
		path = defaultDotEnv
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return godotenv.Load(path)
}

// Validate checks cross-field invariants.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.DBDriver != "sqlite" && c.DBDriver != "postgres":
		return fmt.Errorf("%w: unsupported db_driver %q", ErrInvalidConfig, c.DBDriver)
	case c.DBDSN == "":
		return fmt.Errorf("%w: db_dsn must not be empty", ErrInvalidConfig)
	case c.Generation.EloDiff < 0 || c.Generation.EloDiffMax < c.Generation.EloDiff:
		return fmt.Errorf("%w: generation.elo_diff must be within [0, elo_diff_max]", ErrInvalidConfig)
	case c.Generation.AutoRelax && c.Generation.EloDiffStep <= 0:
		return fmt.Errorf("%w: generation.elo_diff_step must be positive when auto_relax is on", ErrInvalidConfig)
	case c.Rating.KFactor <= 0:
		return fmt.Errorf("%w: rating.k_factor must be positive", ErrInvalidConfig)
	}
	return nil
}
