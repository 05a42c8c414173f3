// Package schedule drives round-by-round generation for a whole event.
//
// Generation is synchronous and single threaded. Each round draws teammate
// pairs and assembles games, retrying with fresh seeded streams up to the
// round attempt budget. When a hard constraint blocks a round the entire event
// is restarted at the same tolerance with fresh streams, a bounded number of
// times. Otherwise it is restarted with a wider rating tolerance, as long as
// auto-relax is on and the ceiling allows it. Hard constraints are never relaxed.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/courtside/internal/domain/assembly"
	"github.com/okian/courtside/internal/domain/constraint"
	"github.com/okian/courtside/internal/domain/model"
	"github.com/okian/courtside/internal/domain/pairing"
	"github.com/okian/courtside/internal/domain/rng"
	"github.com/okian/courtside/pkg/logger"
	"github.com/okian/courtside/pkg/metrics"
)

// CourtSize is the number of participants per game.
const CourtSize = 4

// toleranceEpsilon keeps a step that lands exactly on the ceiling eligible.
const toleranceEpsilon = 1e-9

// maxEventRestarts bounds whole-event restarts at an unchanged tolerance after
// a hard constraint blocked a round. Each restart draws fresh attempt streams.
const maxEventRestarts = 8

// State is a node of the generation state machine.
type State string

// Generation states.
const (
	StateInitializing      State = "INITIALIZING"
	StateGeneratingRound   State = "GENERATING_ROUND"
	StateRoundComplete     State = "ROUND_COMPLETE"
	StateAllRoundsComplete State = "ALL_ROUNDS_COMPLETE"
	StateRelaxing          State = "RELAXING"
	StateRestarting        State = "RESTARTING"
	StateFailed            State = "FAILED"
)

// Transition is reported on every state entry.
type Transition struct {
	State   State
	Round   int
	EloDiff float64
}

// Request is everything one generation needs. Ratings must cover every
// participant.
type Request struct {
	EventID           string
	ParticipantIDs    []string
	Ratings           map[string]float64
	Courts            int
	Rounds            int
	Settings          model.Settings
	PreviousTeammates []model.PairKey
	Seed              string
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger used for state transitions.
func WithLogger(l logger.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.log = l
		}
	}
}

// WithClock overrides the clock used for durationMs.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// WithTransitionHook registers a callback invoked on every state entry.
func WithTransitionHook(fn func(Transition)) Option {
	return func(o *Orchestrator) { o.hook = fn }
}

// Orchestrator generates schedules. It keeps no per-event state, so one value
// may serve concurrent generations for different events.
type Orchestrator struct {
	log  logger.Logger
	now  func() time.Time
	hook func(Transition)
}

// New creates an Orchestrator.
func New(opts ...Option) *Orchestrator {
	o := &Orchestrator{
		log: logger.Nop(),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// run is the mutable state of one Generate call.
type run struct {
	req       Request
	settings  model.Settings
	log       logger.Logger
	pairer    *pairing.Generator
	assembler *assembly.Assembler
	attempts  int
}

// failure is a round that exhausted its attempt budget.
type failure struct {
	round      int
	constraint constraint.Kind
}

// Generate builds a full schedule for req or explains why it cannot.
func (o *Orchestrator) Generate(ctx context.Context, req Request) (model.Schedule, error) {
	start := o.now()
	settings := req.Settings.WithBudgetDefaults()
	r := &run{
		req:      req,
		settings: settings,
		log:      o.log.With(logger.String("event", req.EventID), logger.String("seed", req.Seed)),
		pairer: pairing.New(
			pairing.WithPermutations(settings.PairingPermutations),
			pairing.WithBacktrackLimit(settings.BacktrackLimit),
		),
		assembler: assembly.New(assembly.WithNodeBudget(settings.AssemblyNodeBudget)),
	}
	elapsed := func() int64 { return o.now().Sub(start).Milliseconds() }

	o.enter(ctx, r, StateInitializing, 0, settings.EloDiff)
	if err := validate(req, settings); err != nil {
		o.enter(ctx, r, StateFailed, 0, settings.EloDiff)
		metrics.RecordGeneration("precondition", 0, 0, float64(elapsed()))
		return model.Schedule{}, err
	}

	// pass numbers every whole-event search so each one gets its own
	// attempt streams; relax counts tolerance steps only.
	relax, pass, restarts := 0, 0, 0
	for {
		tol := settings.EloDiff + float64(relax)*settings.EloDiffStep
		rounds, fail, err := o.generateEvent(ctx, r, tol, pass)
		if err != nil {
			return model.Schedule{}, err
		}
		if fail == nil {
			o.enter(ctx, r, StateAllRoundsComplete, len(rounds), tol)
			meta := model.GenerationMetadata{
				SeedUsed:                 req.Seed,
				EloDiffConfigured:        settings.EloDiff,
				EloDiffUsed:              tol,
				RelaxIterations:          relax,
				ConstraintToggleSnapshot: settings.Toggles,
				Attempts:                 r.attempts,
				DurationMs:               elapsed(),
			}
			metrics.RecordGeneration("success", r.attempts, relax, float64(meta.DurationMs))
			r.log.Info(ctx, "schedule generated",
				logger.Int("rounds", len(rounds)),
				logger.Float64("eloDiffUsed", tol),
				logger.Int("relaxIterations", relax),
				logger.Int("restarts", restarts),
				logger.Int("attempts", r.attempts),
			)
			return model.Schedule{EventID: req.EventID, Rounds: rounds, Metadata: meta}, nil
		}
		pass++

		// a wider tolerance cannot lift a hard constraint, so try other
		// permutations at the same tolerance first
		if fail.constraint != constraint.RatingBalance && restarts < maxEventRestarts {
			restarts++
			o.enter(ctx, r, StateRestarting, fail.round, tol)
			continue
		}

		next := settings.EloDiff + float64(relax+1)*settings.EloDiffStep
		if settings.AutoRelax && settings.EloDiffStep > 0 && next <= settings.EloDiffMax+toleranceEpsilon {
			relax++
			o.enter(ctx, r, StateRelaxing, fail.round, next)
			continue
		}

		o.enter(ctx, r, StateFailed, fail.round, tol)
		gerr := &GenerationError{
			Kind:              ErrInfeasible,
			Round:             fail.round,
			Constraint:        fail.constraint,
			EloDiffConfigured: settings.EloDiff,
			EloDiffTried:      tol,
			EloDiffMax:        settings.EloDiffMax,
			RelaxIterations:   relax,
			Attempts:          r.attempts,
		}
		outcome := "infeasible"
		if settings.AutoRelax && fail.constraint == constraint.RatingBalance {
			gerr.Kind = ErrRelaxExhausted
			outcome = "relax_exhausted"
		}
		metrics.RecordGeneration(outcome, r.attempts, relax, float64(elapsed()))
		r.log.Warn(ctx, "schedule generation failed", logger.Error(gerr))
		return model.Schedule{}, gerr
	}
}

// generateEvent runs one pass over every round at a fixed tolerance. The
// constraint index is rebuilt so a restart starts from the previous event's
// history only.
func (o *Orchestrator) generateEvent(ctx context.Context, r *run, tol float64, pass int) ([]model.Round, *failure, error) {
	idx := constraint.New(r.settings.Toggles, r.req.PreviousTeammates)
	rounds := make([]model.Round, 0, r.req.Rounds)
	for round := 1; round <= r.req.Rounds; round++ {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		o.enter(ctx, r, StateGeneratingRound, round, tol)
		games, fail, err := r.generateRound(idx, round, tol, pass)
		if err != nil || fail != nil {
			return nil, fail, err
		}
		idx.RecordRound(games)
		rounds = append(rounds, model.Round{Index: round, Games: games})
		o.enter(ctx, r, StateRoundComplete, round, tol)
	}
	return rounds, nil, nil
}

func (r *run) generateRound(idx *constraint.Index, round int, tol float64, pass int) ([]model.Game, *failure, error) {
	fail := &failure{round: round, constraint: teammateBlocker(r.settings.Toggles, round)}
	for local := 0; local < r.settings.RoundAttempts; local++ {
		attempt := pass*r.settings.RoundAttempts + local
		r.attempts++

		pairs, _, err := r.pairer.Generate(pairing.Input{
			Participants: r.req.ParticipantIDs,
			Ratings:      r.req.Ratings,
			Forbidden:    idx.IsForbiddenTeammate,
			Tolerance:    tol,
			Rand:         rng.ForAttempt(r.req.Seed, round, attempt),
		})
		if errors.Is(err, pairing.ErrNoPairing) {
			fail.constraint = teammateBlocker(r.settings.Toggles, round)
			continue
		}
		if err != nil {
			return nil, nil, err
		}

		games, _, err := r.assembler.Assemble(assembly.Input{
			Pairs:     pairs,
			Ratings:   r.req.Ratings,
			Forbidden: idx.IsForbiddenOpponent,
			Tolerance: tol,
		})
		var inf *assembly.InfeasibleError
		if errors.As(err, &inf) {
			fail.constraint = inf.Constraint
			continue
		}
		if err != nil {
			return nil, nil, err
		}

		for i := range games {
			games[i].EventID = r.req.EventID
			games[i].Round = round
		}
		return games, nil, nil
	}
	return nil, fail, nil
}

// teammateBlocker names the teammate constraint that can block a round. In the
// first round only the previous event's pairs exist.
func teammateBlocker(t model.ConstraintToggles, round int) constraint.Kind {
	if round == 1 || !t.NoRepeatTeammateInEvent {
		return constraint.TeammateFromPrevious
	}
	return constraint.TeammateInEvent
}

func (o *Orchestrator) enter(ctx context.Context, r *run, s State, round int, tol float64) {
	metrics.RecordStateTransition(string(s))
	r.log.Debug(ctx, "generation state",
		logger.String("state", string(s)),
		logger.Int("round", round),
		logger.Float64("eloDiff", tol),
	)
	if o.hook != nil {
		o.hook(Transition{State: s, Round: round, EloDiff: tol})
	}
}

func validate(req Request, s model.Settings) error {
	switch {
	case req.Courts <= 0:
		return fmt.Errorf("%w: courts must be positive, got %d", ErrPrecondition, req.Courts)
	case req.Rounds <= 0:
		return fmt.Errorf("%w: rounds must be positive, got %d", ErrPrecondition, req.Rounds)
	case len(req.ParticipantIDs) != req.Courts*CourtSize:
		return fmt.Errorf("%w: %d participants do not fill %d courts of %d",
			ErrPrecondition, len(req.ParticipantIDs), req.Courts, CourtSize)
	case req.Seed == "":
		return fmt.Errorf("%w: seed is required", ErrPrecondition)
	case s.EloDiff < 0:
		return fmt.Errorf("%w: eloDiff must not be negative", ErrPrecondition)
	case s.AutoRelax && s.EloDiffMax < s.EloDiff:
		return fmt.Errorf("%w: eloDiffMax %.4g is below eloDiff %.4g", ErrPrecondition, s.EloDiffMax, s.EloDiff)
	}

	seen := make(map[string]struct{}, len(req.ParticipantIDs))
	for _, id := range req.ParticipantIDs {
		if id == "" {
			return fmt.Errorf("%w: empty participant id", ErrPrecondition)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: participant %s listed twice", ErrPrecondition, id)
		}
		seen[id] = struct{}{}
		if _, ok := req.Ratings[id]; !ok {
			return fmt.Errorf("%w: participant %s has no rating", ErrPrecondition, id)
		}
	}
	return nil
}
