package simulation

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/okian/courtside/internal/domain/rating"
	. "github.com/smartystreets/goconvey/convey"
)

func smallConfig() Config {
	cfg := DefaultConfig()
	cfg.Players = 12
	cfg.Courts = 2
	cfg.Rounds = 2
	cfg.Events = 10
	cfg.CheckpointEvery = 5
	return cfg
}

func TestConfigValidate(t *testing.T) {
	Convey("Given the default config", t, func() {
		cfg := DefaultConfig()
		So(cfg.Validate(), ShouldBeNil)
		So(cfg.Systems, ShouldHaveLength, 2)
		So(cfg.Systems[1].System, ShouldEqual, rating.CatchUp)

		Convey("Too few players are rejected", func() {
			cfg.Players = 7
			So(cfg.Validate(), ShouldWrap, ErrInvalidConfig)
		})
		Convey("A season without systems is rejected", func() {
			cfg.Systems = nil
			So(cfg.Validate(), ShouldWrap, ErrInvalidConfig)
		})
		Convey("A bad rating system is rejected", func() {
			cfg.Systems = []rating.Config{{System: "glicko", KFactor: 32}}
			So(cfg.Validate(), ShouldWrap, ErrInvalidConfig)
		})
		Convey("Zero events are rejected", func() {
			cfg.Events = 0
			So(cfg.Validate(), ShouldWrap, ErrInvalidConfig)
		})
	})
}

func TestStatistics(t *testing.T) {
	Convey("Ranks average ties", t, func() {
		So(ranks([]float64{10, 30, 20, 20}), ShouldResemble, []float64{1, 4, 2.5, 2.5})
	})

	Convey("Spearman follows order, not magnitude", t, func() {
		a := []float64{1, 2, 3, 4}
		So(spearman(a, []float64{10, 200, 3000, 40000}), ShouldAlmostEqual, 1, 1e-12)
		So(spearman(a, []float64{4, 3, 2, 1}), ShouldAlmostEqual, -1, 1e-12)
		So(spearman(a, []float64{5, 5, 5, 5}), ShouldEqual, 0)
	})

	Convey("Spread is the population deviation", t, func() {
		players := []string{"a", "b"}
		snap := snapshot(1, players,
			map[string]float64{"a": 900, "b": 1100},
			map[string]float64{"a": 950, "b": 1200})
		So(snap.Spread, ShouldAlmostEqual, 100, 1e-9)
		So(snap.Range, ShouldEqual, 200)
		So(snap.MeanAbsError, ShouldEqual, 75)
		So(snap.RankCorrelation, ShouldAlmostEqual, 1, 1e-12)
	})

	Convey("A snapshot of equal ratings has no spread", t, func() {
		players := []string{"a", "b"}
		snap := snapshot(3, players,
			map[string]float64{"a": 1000, "b": 1000},
			map[string]float64{"a": 1100, "b": 900})
		So(snap.Event, ShouldEqual, 3)
		So(snap.Spread, ShouldEqual, 0)
		So(snap.Range, ShouldEqual, 0)
		So(snap.MeanAbsError, ShouldEqual, 100)
		So(snap.RankCorrelation, ShouldEqual, 0)
	})
}

func TestRoster(t *testing.T) {
	Convey("Given twelve players and two courts", t, func() {
		cfg := smallConfig()
		players, _ := hiddenSkills(cfg)

		Convey("The roster seats eight distinct players deterministically", func() {
			first := roster(cfg, "S0001", players)
			So(first, ShouldHaveLength, 8)
			seen := map[string]bool{}
			for _, id := range first {
				So(seen[id], ShouldBeFalse)
				seen[id] = true
			}
			So(roster(cfg, "S0001", players), ShouldResemble, first)
		})

		Convey("A full group is always seated whole", func() {
			cfg.Players = 8
			all, _ := hiddenSkills(cfg)
			So(roster(cfg, "S0002", all), ShouldResemble, all)
		})
	})
}

func TestRun(t *testing.T) {
	Convey("Given a small season", t, func() {
		ctx := context.Background()
		cfg := smallConfig()

		res, err := Run(ctx, cfg)
		So(err, ShouldBeNil)
		So(res.Reports, ShouldHaveLength, 2)
		So(res.Skills, ShouldHaveLength, 12)

		Convey("Every system accounts for every event", func() {
			for i, rep := range res.Reports {
				So(rep.System, ShouldEqual, string(cfg.Systems[i].System))
				So(rep.EventsPlayed+rep.EventsFailed, ShouldEqual, cfg.Events)
				So(rep.Checkpoints, ShouldHaveLength, 2)
				So(rep.Final.Event, ShouldEqual, cfg.Events)
				So(rep.Final.RankCorrelation, ShouldBeBetweenOrEqual, -1, 1)
			}
		})

		Convey("The same seed replays the same season", func() {
			again, err := Run(ctx, cfg)
			So(err, ShouldBeNil)
			So(again.Reports, ShouldResemble, res.Reports)
			So(again.Skills, ShouldResemble, res.Skills)
		})

		Convey("The report is written as JSON", func() {
			path := filepath.Join(t.TempDir(), "out", "report.json")
			So(WriteJSON(path, res), ShouldBeNil)
			data, err := os.ReadFile(path)
			So(err, ShouldBeNil)
			So(string(data), ShouldContainSubstring, `"rankCorrelation"`)
		})
	})

	Convey("Given a cancelled context", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := Run(ctx, smallConfig())
		So(err, ShouldWrap, context.Canceled)
	})

	Convey("Given an invalid config", t, func() {
		cfg := smallConfig()
		cfg.Courts = 0
		_, err := Run(context.Background(), cfg)
		So(err, ShouldWrap, ErrInvalidConfig)
	})
}
