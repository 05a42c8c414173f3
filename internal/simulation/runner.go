package simulation

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/courtside/internal/domain/constraint"
	"github.com/okian/courtside/internal/domain/model"
	"github.com/okian/courtside/internal/domain/rating"
	"github.com/okian/courtside/internal/domain/rng"
	"github.com/okian/courtside/internal/domain/schedule"
	"github.com/okian/courtside/internal/domain/standings"
	"github.com/okian/courtside/pkg/logger"
)

// Score shape of a simulated game. The winner reaches winningScore and the
// loser lands in [losingScoreMin, losingScoreMin+losingScoreRange).
const (
	winningScore     = 21
	losingScoreMin   = 8
	losingScoreRange = 12
)

// Option configures Run.
type Option func(*runner)

// WithLogger sets the logger for progress and summaries.
func WithLogger(l logger.Logger) Option {
	return func(r *runner) {
		if l != nil {
			r.log = l
		}
	}
}

type runner struct {
	log logger.Logger
}

// Result is the outcome of one simulation run.
type Result struct {
	Seed     string   `json:"seed"`
	Players  int      `json:"players"`
	Events   int      `json:"events"`
	Duration string   `json:"duration"`
	Reports  []Report `json:"reports"`
	Skills   []Sample `json:"skills"`
}

// Sample is one player's hidden skill.
type Sample struct {
	PlayerID string  `json:"playerId"`
	Skill    float64 `json:"skill"`
}

// Report summarizes one rating system's season.
type Report struct {
	System        string     `json:"system"`
	EventsPlayed  int        `json:"eventsPlayed"`
	EventsFailed  int        `json:"eventsFailed"`
	RelaxedEvents int        `json:"relaxedEvents"`
	Final         Snapshot   `json:"final"`
	Checkpoints   []Snapshot `json:"checkpoints,omitempty"`
}

// Run plays one season per configured rating system. Every season sees the
// same players, hidden skills and per-event rosters; seasons run concurrently.
func Run(ctx context.Context, cfg Config, opts ...Option) (Result, error) {
	if err := cfg.Validate(); err != nil {
		return Result{}, err
	}
	r := &runner{log: logger.Nop()}
	for _, opt := range opts {
		opt(r)
	}

	start := time.Now()
	players, skills := hiddenSkills(cfg)

	r.log.Info(ctx, "starting simulation",
		logger.String("seed", cfg.Seed),
		logger.Int("players", cfg.Players),
		logger.Int("events", cfg.Events),
		logger.Int("systems", len(cfg.Systems)))

	reports := make([]Report, len(cfg.Systems))
	g, gctx := errgroup.WithContext(ctx)
	for i, sys := range cfg.Systems {
		g.Go(func() error {
			rep, err := r.season(gctx, cfg, sys, players, skills)
			if err != nil {
				return fmt.Errorf("%s season: %w", sys.System, err)
			}
			reports[i] = rep
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	res := Result{
		Seed:     cfg.Seed,
		Players:  cfg.Players,
		Events:   cfg.Events,
		Duration: time.Since(start).String(),
		Reports:  reports,
		Skills:   make([]Sample, 0, len(players)),
	}
	for _, id := range players {
		res.Skills = append(res.Skills, Sample{PlayerID: id, Skill: skills[id]})
	}
	for _, rep := range reports {
		r.log.Info(ctx, "season finished",
			logger.String("system", rep.System),
			logger.Int("played", rep.EventsPlayed),
			logger.Int("failed", rep.EventsFailed),
			logger.Int("relaxed", rep.RelaxedEvents),
			logger.Float64("spread", rep.Final.Spread),
			logger.Float64("range", rep.Final.Range),
			logger.Float64("meanAbsError", rep.Final.MeanAbsError),
			logger.Float64("rankCorrelation", rep.Final.RankCorrelation))
	}
	return res, nil
}

// hiddenSkills draws a normally distributed skill per player from the root seed.
func hiddenSkills(cfg Config) ([]string, map[string]float64) {
	src := rng.ForAttempt(cfg.Seed+"|skills", 0, 0)
	players := make([]string, cfg.Players)
	skills := make(map[string]float64, cfg.Players)
	for i := range players {
		id := fmt.Sprintf("p%03d", i+1)
		players[i] = id
		skills[id] = cfg.InitialRating + src.NormFloat64()*cfg.SkillSpread
	}
	return players, skills
}

// roster picks the event's participants. It depends only on the seed and
// event ID so every season seats the same people.
func roster(cfg Config, eventID string, players []string) []string {
	need := cfg.Courts * schedule.CourtSize
	if need == len(players) {
		return slices.Clone(players)
	}
	perm := rng.Permutation(rng.ForAttempt(cfg.Seed+"|roster|"+eventID, 0, 0), len(players))
	out := make([]string, 0, need)
	for _, i := range perm[:need] {
		out = append(out, players[i])
	}
	slices.Sort(out)
	return out
}

func (r *runner) season(ctx context.Context, cfg Config, sys rating.Config, players []string, skills map[string]float64) (Report, error) {
	engine, err := rating.New(sys)
	if err != nil {
		return Report{}, err
	}
	log := r.log.Named(string(sys.System))
	orch := schedule.New(schedule.WithLogger(log))

	ratings := make(map[string]float64, len(players))
	for _, id := range players {
		ratings[id] = cfg.InitialRating
	}
	table := standings.FromRatings(ratings)

	rep := Report{System: string(sys.System)}
	var previous []model.PairKey

	for n := 1; n <= cfg.Events; n++ {
		if err := ctx.Err(); err != nil {
			return Report{}, err
		}
		eventID := fmt.Sprintf("S%04d", n)

		sched, err := orch.Generate(ctx, schedule.Request{
			EventID:           eventID,
			ParticipantIDs:    roster(cfg, eventID, players),
			Ratings:           ratings,
			Courts:            cfg.Courts,
			Rounds:            cfg.Rounds,
			Settings:          cfg.Settings,
			PreviousTeammates: previous,
			Seed:              cfg.Seed + "|" + eventID,
		})
		switch {
		case errors.Is(err, schedule.ErrInfeasible), errors.Is(err, schedule.ErrRelaxExhausted):
			rep.EventsFailed++
			log.Debug(ctx, "event skipped", logger.String("event", eventID), logger.Error(err))
		case err != nil:
			return Report{}, err
		default:
			if sched.Metadata.RelaxIterations > 0 {
				rep.RelaxedEvents++
			}
			games := sched.Games()
			for i := range games {
				playGame(cfg.Seed+"|score|"+eventID, &games[i], skills)
			}
			updates, err := engine.ApplyEvent(eventID, games, ratings, table)
			if err != nil {
				return Report{}, err
			}
			for _, u := range updates {
				ratings[u.PlayerID] = u.RatingAfter
				table.Set(u.PlayerID, u.RatingAfter)
			}
			previous = constraint.TeammatePairsOf(games)
			rep.EventsPlayed++
		}

		if cfg.CheckpointEvery > 0 && n%cfg.CheckpointEvery == 0 {
			snap := snapshot(n, players, ratings, skills)
			rep.Checkpoints = append(rep.Checkpoints, snap)
			log.Debug(ctx, "checkpoint",
				logger.Int("event", n),
				logger.Float64("spread", snap.Spread),
				logger.Float64("rankCorrelation", snap.RankCorrelation))
		}
	}

	rep.Final = snapshot(cfg.Events, players, ratings, skills)
	return rep, nil
}

// playGame draws the winner from the expected score of the two teams'
// hidden skills and writes a plausible score line.
func playGame(seed string, g *model.Game, skills map[string]float64) {
	src := rng.ForAttempt(seed, g.Round, g.Court)
	team1 := model.TeamRating(skills[g.TeamA.A], skills[g.TeamA.B])
	team2 := model.TeamRating(skills[g.TeamB.A], skills[g.TeamB.B])

	win, lose := winningScore, losingScoreMin+src.IntN(losingScoreRange)
	if src.Float64() < rating.ExpectedScore(team1, team2) {
		g.ScoreTeam1, g.ScoreTeam2 = &win, &lose
	} else {
		g.ScoreTeam1, g.ScoreTeam2 = &lose, &win
	}
}
