package config_test

import (
	"runtime"
	"testing"

	"github.com/okian/courtside/internal/config"
	"github.com/okian/courtside/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.DBDriver, convey.ShouldEqual, "sqlite")
			convey.So(cfg.JobQueueSize, convey.ShouldEqual, 1_000)
			convey.So(cfg.WorkerCount, convey.ShouldEqual, runtime.NumCPU())
			convey.So(cfg.Generation.EloDiff, convey.ShouldEqual, 0.05)
			convey.So(cfg.Generation.AutoRelax, convey.ShouldBeTrue)
			convey.So(cfg.Rating.KFactor, convey.ShouldEqual, 32)
			convey.So(cfg.Rating.System, convey.ShouldEqual, "baseline")
		})

		convey.Convey("Then the defaults should validate", func() {
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given a config with a tolerance above its ceiling", t, func() {
		cfg := config.New()
		cfg.Generation.EloDiff = 0.5
		cfg.Generation.EloDiffMax = 0.2

		convey.So(cfg.Validate(), convey.ShouldWrap, config.ErrInvalidConfig)
	})

	convey.Convey("Given a config with an unknown driver", t, func() {
		cfg := config.New()
		cfg.DBDriver = "mysql"

		convey.So(cfg.Validate(), convey.ShouldWrap, config.ErrInvalidConfig)
	})

	convey.Convey("Given auto relax without a step", t, func() {
		cfg := config.New()
		cfg.Generation.EloDiffStep = 0

		convey.So(cfg.Validate(), convey.ShouldNotBeNil)
	})
}

func TestConfig_Conversions(t *testing.T) {
	convey.Convey("Given the default config", t, func() {
		cfg := config.New()

		convey.Convey("Then generation settings mirror it with every constraint on", func() {
			s := cfg.Generation.Settings()
			convey.So(s.EloDiff, convey.ShouldEqual, cfg.Generation.EloDiff)
			convey.So(s.EloDiffMax, convey.ShouldEqual, cfg.Generation.EloDiffMax)
			convey.So(s.AutoRelax, convey.ShouldBeTrue)
			convey.So(s.Toggles, convey.ShouldResemble, model.AllConstraints())
			convey.So(s.AssemblyNodeBudget, convey.ShouldEqual, cfg.Generation.AssemblyNodeBudget)
		})

		convey.Convey("Then the rating model carries every field", func() {
			m := cfg.Rating.Model()
			convey.So(m.System, convey.ShouldEqual, "baseline")
			convey.So(m.KFactor, convey.ShouldEqual, 32)
			convey.So(m.MedianMode, convey.ShouldEqual, "event_start")
		})
	})
}
