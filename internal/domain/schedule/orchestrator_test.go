package schedule_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/okian/courtside/internal/domain/constraint"
	"github.com/okian/courtside/internal/domain/model"
	"github.com/okian/courtside/internal/domain/schedule"
	. "github.com/smartystreets/goconvey/convey"
)

func request(n, courts, rounds int, seed string, rating func(i int) float64) schedule.Request {
	ids := make([]string, n)
	ratings := make(map[string]float64, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("p%02d", i+1)
		ratings[ids[i]] = rating(i)
	}
	return schedule.Request{
		EventID:        "ev-1",
		ParticipantIDs: ids,
		Ratings:        ratings,
		Courts:         courts,
		Rounds:         rounds,
		Settings:       model.DefaultSettings(),
		Seed:           seed,
	}
}

func flat(float64) func(int) float64 { return func(int) float64 { return 1000 } }

// assertValid checks completeness and the hard constraints round by round.
func assertValid(s model.Schedule, req schedule.Request) {
	So(s.Rounds, ShouldHaveLength, req.Rounds)
	So(s.Games(), ShouldHaveLength, req.Rounds*req.Courts)

	idx := constraint.New(req.Settings.Toggles, req.PreviousTeammates)
	for i, r := range s.Rounds {
		So(r.Index, ShouldEqual, i+1)
		So(r.Games, ShouldHaveLength, req.Courts)
		seen := map[string]int{}
		for _, id := range r.Participants() {
			seen[id]++
		}
		So(len(seen), ShouldEqual, len(req.ParticipantIDs))
		for _, id := range req.ParticipantIDs {
			So(seen[id], ShouldEqual, 1)
		}
		So(idx.Violations(r.Games), ShouldBeEmpty)
		idx.RecordRound(r.Games)
	}
}

func TestGenerate(t *testing.T) {
	ctx := context.Background()

	Convey("Given 8 participants rated 1000 on 2 courts for 1 round with seed E1", t, func() {
		req := request(8, 2, 1, "E1", flat(1000))
		req.Settings.EloDiff = 0.05

		s, err := schedule.New().Generate(ctx, req)

		Convey("Then exactly 2 valid games are produced at the configured tolerance", func() {
			So(err, ShouldBeNil)
			So(s.Games(), ShouldHaveLength, 2)
			for _, g := range s.Games() {
				So(g.EventID, ShouldEqual, "ev-1")
				So(g.Round, ShouldEqual, 1)
			}
			assertValid(s, req)
			So(s.Metadata.SeedUsed, ShouldEqual, "E1")
			So(s.Metadata.EloDiffUsed, ShouldEqual, 0.05)
			So(s.Metadata.EloDiffConfigured, ShouldEqual, 0.05)
			So(s.Metadata.RelaxIterations, ShouldEqual, 0)
			So(s.Metadata.Attempts, ShouldBeGreaterThanOrEqualTo, 1)
			So(s.Metadata.ConstraintToggleSnapshot, ShouldResemble, model.AllConstraints())
		})
	})

	Convey("Given a 16 player event over 3 rounds with spread ratings", t, func() {
		req := request(16, 4, 3, "determinism", func(i int) float64 { return 1000 + float64((i*37)%200) })

		Convey("When generated twice", func() {
			first, err1 := schedule.New().Generate(ctx, req)
			second, err2 := schedule.New().Generate(ctx, req)

			Convey("Then rounds and seed are identical", func() {
				So(err1, ShouldBeNil)
				So(err2, ShouldBeNil)
				So(second.Rounds, ShouldResemble, first.Rounds)
				So(second.Metadata.SeedUsed, ShouldEqual, first.Metadata.SeedUsed)
				So(second.Metadata.Attempts, ShouldEqual, first.Metadata.Attempts)
				assertValid(first, req)
			})
		})

		Convey("When generated with previous-event teammates", func() {
			prev, err := schedule.New().Generate(ctx, req)
			So(err, ShouldBeNil)
			req.PreviousTeammates = constraint.TeammatePairsOf(prev.Games())
			req.Seed = "next-event"

			next, err := schedule.New().Generate(ctx, req)

			Convey("Then no previous teammate pair is reused", func() {
				So(err, ShouldBeNil)
				assertValid(next, req)
			})
		})
	})

	Convey("Given pairs whose games can only balance at a wider tolerance", t, func() {
		// teammates are always the equal-rated pair, so every game is 1000 vs 1300
		req := request(4, 1, 1, "relax", func(i int) float64 {
			if i < 2 {
				return 1000
			}
			return 1300
		})
		var transitions []schedule.Transition
		orch := schedule.New(schedule.WithTransitionHook(func(tr schedule.Transition) {
			transitions = append(transitions, tr)
		}))

		Convey("When auto-relax may reach 0.30", func() {
			s, err := orch.Generate(ctx, req)

			Convey("Then the tolerance escalates in steps until it fits", func() {
				So(err, ShouldBeNil)
				So(s.Metadata.RelaxIterations, ShouldEqual, 4)
				So(s.Metadata.EloDiffUsed, ShouldAlmostEqual, 0.25, 1e-9)
				So(s.Metadata.EloDiffUsed, ShouldBeGreaterThanOrEqualTo, s.Metadata.EloDiffConfigured)
				So(s.Metadata.Attempts, ShouldEqual, 4*req.Settings.RoundAttempts+1)

				relaxing := 0
				last := -1.0
				for _, tr := range transitions {
					So(tr.EloDiff, ShouldBeGreaterThanOrEqualTo, last-1e-12)
					last = tr.EloDiff
					if tr.State == schedule.StateRelaxing {
						relaxing++
					}
				}
				So(relaxing, ShouldEqual, 4)
				So(transitions[0].State, ShouldEqual, schedule.StateInitializing)
				So(transitions[len(transitions)-1].State, ShouldEqual, schedule.StateAllRoundsComplete)
			})
		})

		Convey("When the ceiling is below the needed tolerance", func() {
			req.Settings.EloDiffMax = 0.20
			_, err := orch.Generate(ctx, req)

			Convey("Then relaxation is reported as exhausted", func() {
				So(errors.Is(err, schedule.ErrRelaxExhausted), ShouldBeTrue)
				var gerr *schedule.GenerationError
				So(errors.As(err, &gerr), ShouldBeTrue)
				So(gerr.EloDiffConfigured, ShouldEqual, 0.05)
				So(gerr.EloDiffTried, ShouldAlmostEqual, 0.20, 1e-9)
				So(gerr.Constraint, ShouldEqual, constraint.RatingBalance)
				So(transitions[len(transitions)-1].State, ShouldEqual, schedule.StateFailed)
			})
		})

		Convey("When auto-relax is off", func() {
			req.Settings.AutoRelax = false
			_, err := orch.Generate(ctx, req)

			Convey("Then generation is infeasible at round 1", func() {
				So(errors.Is(err, schedule.ErrInfeasible), ShouldBeTrue)
				var gerr *schedule.GenerationError
				So(errors.As(err, &gerr), ShouldBeTrue)
				So(gerr.Round, ShouldEqual, 1)
				So(gerr.Attempts, ShouldEqual, req.Settings.RoundAttempts)
			})
		})
	})

	Convey("Given 4 participants on 1 court", t, func() {
		req := request(4, 1, 2, "tight", flat(1000))
		req.Settings.AutoRelax = false
		req.Settings.RoundAttempts = 5

		Convey("A second round always repeats an opponent", func() {
			_, err := schedule.New().Generate(ctx, req)
			var gerr *schedule.GenerationError
			So(errors.As(err, &gerr), ShouldBeTrue)
			So(gerr.Round, ShouldEqual, 2)
			So(gerr.Constraint, ShouldEqual, constraint.OpponentInEvent)
		})

		Convey("With auto-relax a repeated opponent is still infeasible", func() {
			req.Settings.AutoRelax = true
			req.Settings.EloDiffMax = 0.10
			var transitions []schedule.Transition
			orch := schedule.New(schedule.WithTransitionHook(func(tr schedule.Transition) {
				transitions = append(transitions, tr)
			}))

			_, err := orch.Generate(ctx, req)
			So(errors.Is(err, schedule.ErrInfeasible), ShouldBeTrue)
			So(errors.Is(err, schedule.ErrRelaxExhausted), ShouldBeFalse)
			var gerr *schedule.GenerationError
			So(errors.As(err, &gerr), ShouldBeTrue)
			So(gerr.Round, ShouldEqual, 2)
			So(gerr.Constraint, ShouldEqual, constraint.OpponentInEvent)

			counts := map[schedule.State]int{}
			for _, tr := range transitions {
				counts[tr.State]++
			}
			So(counts[schedule.StateRestarting], ShouldEqual, 8)
			So(counts[schedule.StateRelaxing], ShouldEqual, 1)
			So(gerr.RelaxIterations, ShouldEqual, 1)
		})

		Convey("Without the opponent constraint three rounds use every pairing once", func() {
			req.Settings.Toggles.NoRepeatOpponentInEvent = false
			req.Rounds = 3
			s, err := schedule.New().Generate(ctx, req)
			So(err, ShouldBeNil)
			So(constraint.TeammatePairsOf(s.Games()), ShouldHaveLength, 6)
		})

		Convey("A fourth round must repeat a teammate", func() {
			req.Settings.Toggles.NoRepeatOpponentInEvent = false
			req.Rounds = 4
			_, err := schedule.New().Generate(ctx, req)
			var gerr *schedule.GenerationError
			So(errors.As(err, &gerr), ShouldBeTrue)
			So(gerr.Round, ShouldEqual, 4)
			So(gerr.Constraint, ShouldEqual, constraint.TeammateInEvent)
		})

		Convey("Previous-event teammates leave a single legal pairing", func() {
			req.Rounds = 1
			req.PreviousTeammates = []model.PairKey{
				model.NewPairKey("p01", "p02"), model.NewPairKey("p03", "p04"),
				model.NewPairKey("p01", "p03"), model.NewPairKey("p02", "p04"),
			}
			s, err := schedule.New().Generate(ctx, req)
			So(err, ShouldBeNil)
			So(constraint.TeammatePairsOf(s.Games()), ShouldResemble, []model.PairKey{
				model.NewPairKey("p01", "p04"), model.NewPairKey("p02", "p03"),
			})
		})
	})

	Convey("Preconditions fail before any search", t, func() {
		base := request(8, 2, 1, "pre", flat(1000))

		cases := map[string]func(r *schedule.Request){
			"zero courts":      func(r *schedule.Request) { r.Courts = 0 },
			"zero rounds":      func(r *schedule.Request) { r.Rounds = 0 },
			"roster mismatch":  func(r *schedule.Request) { r.Courts = 3 },
			"duplicate id":     func(r *schedule.Request) { r.ParticipantIDs[1] = r.ParticipantIDs[0] },
			"missing rating":   func(r *schedule.Request) { delete(r.Ratings, r.ParticipantIDs[3]) },
			"empty seed":       func(r *schedule.Request) { r.Seed = "" },
			"negative eloDiff": func(r *schedule.Request) { r.Settings.EloDiff = -0.1 },
		}
		for name, mutate := range cases {
			req := base
			req.ParticipantIDs = append([]string(nil), base.ParticipantIDs...)
			req.Ratings = make(map[string]float64, len(base.Ratings))
			for k, v := range base.Ratings {
				req.Ratings[k] = v
			}
			mutate(&req)

			_, err := schedule.New().Generate(ctx, req)
			So(errors.Is(err, schedule.ErrPrecondition), ShouldBeTrue)
			So(name, ShouldNotBeEmpty)
		}
	})

	Convey("A cancelled context stops generation", t, func() {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := schedule.New().Generate(cctx, request(8, 2, 1, "c", flat(1000)))
		So(errors.Is(err, context.Canceled), ShouldBeTrue)
	})
}
