package config_test

import (
	"context"
	"os"
	"testing"

	"github.com/okian/courtside/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()
		_ = os.Setenv("COURTSIDE_DOTENV", "/non/existent/.env")
		defer clearConfigEnvVars()

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.Generation.EloDiffMax, convey.ShouldEqual, 0.30)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("COURTSIDE_ADDR", ":8080")
			_ = os.Setenv("COURTSIDE_WORKER_COUNT", "16")
			_ = os.Setenv("COURTSIDE_GENERATION__ELO_DIFF", "0.1")
			_ = os.Setenv("COURTSIDE_GENERATION__AUTO_RELAX", "false")
			_ = os.Setenv("COURTSIDE_RATING__SYSTEM", "catch_up")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 16)
				convey.So(cfg.Generation.EloDiff, convey.ShouldEqual, 0.1)
				convey.So(cfg.Generation.AutoRelax, convey.ShouldBeFalse)
				convey.So(cfg.Rating.System, convey.ShouldEqual, "catch_up")
				convey.So(cfg.Rating.KFactor, convey.ShouldEqual, 32)
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			tmpFile := createTempConfigFile(`
addr: ":9090"
queue_size: 300
generation:
  elo_diff: 0.08
  round_attempts: 10
rating:
  k_factor: 24
`)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("COURTSIDE_CONFIG", tmpFile)
			_ = os.Setenv("COURTSIDE_ADDR", ":8080")

			cfg, err := config.Load(ctx)

			convey.Convey("Then env should win and the file should fill the rest", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.JobQueueSize, convey.ShouldEqual, 300)
				convey.So(cfg.Generation.EloDiff, convey.ShouldEqual, 0.08)
				convey.So(cfg.Generation.RoundAttempts, convey.ShouldEqual, 10)
				convey.So(cfg.Generation.EloDiffStep, convey.ShouldEqual, 0.05)
				convey.So(cfg.Rating.KFactor, convey.ShouldEqual, 24)
			})
		})

		convey.Convey("When a .env file is present", func() {
			dotenv := createTempConfigFile("COURTSIDE_DB_DRIVER=postgres\nCOURTSIDE_DB_DSN=postgres://localhost/courtside\n")
			defer func() { _ = os.Remove(dotenv) }()
			_ = os.Setenv("COURTSIDE_DOTENV", dotenv)

			cfg, err := config.Load(ctx)

			convey.Convey("Then its variables are applied", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.DBDriver, convey.ShouldEqual, "postgres")
				convey.So(cfg.DBDSN, convey.ShouldEqual, "postgres://localhost/courtside")
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			tmpFile := createTempConfigFile(`invalid: yaml: content: [`)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("COURTSIDE_CONFIG", tmpFile)

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(err, convey.ShouldWrap, config.ErrLoadConfig)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with empty addr", func() {
			_ = os.Setenv("COURTSIDE_ADDR", "")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "addr must not be empty")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}

func clearConfigEnvVars() {
	for _, key := range []string{
		"COURTSIDE_CONFIG",
		"COURTSIDE_DOTENV",
		"COURTSIDE_ADDR",
		"COURTSIDE_QUEUE_SIZE",
		"COURTSIDE_WORKER_COUNT",
		"COURTSIDE_DB_DRIVER",
		"COURTSIDE_DB_DSN",
		"COURTSIDE_GENERATION__ELO_DIFF",
		"COURTSIDE_GENERATION__AUTO_RELAX",
		"COURTSIDE_RATING__SYSTEM",
	} {
		_ = os.Unsetenv(key)
	}
}

func createTempConfigFile(content string) string {
	f, err := os.CreateTemp("", "courtside-config-*.yaml")
	if err != nil {
		panic(err)
	}
	defer func() { _ = f.Close() }()
	if _, err := f.WriteString(content); err != nil {
		panic(err)
	}
	return f.Name()
}
