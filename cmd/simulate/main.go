package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/courtside/internal/config"
	"github.com/okian/courtside/internal/domain/rating"
	"github.com/okian/courtside/internal/simulation"
	"github.com/okian/courtside/pkg/logger"
)

const defaultRunTimeout = 10 * time.Minute

func main() {
	var (
		players    = flag.Int("players", simulation.DefaultPlayers, "Number of players in the synthetic group")
		courts     = flag.Int("courts", simulation.DefaultCourts, "Courts per event")
		rounds     = flag.Int("rounds", simulation.DefaultRounds, "Rounds per event")
		events     = flag.Int("events", simulation.DefaultEvents, "Events per season")
		seed       = flag.String("seed", "simulation", "Root seed; the same seed replays the same run")
		spread     = flag.Float64("spread", simulation.DefaultSkillSpread, "Standard deviation of hidden skill")
		checkpoint = flag.Int("checkpoint", simulation.DefaultCheckpointEvery, "Events between convergence samples")
		timeout    = flag.Duration("timeout", defaultRunTimeout, "Overall run timeout")
		outputFile = flag.String("output", "", "Write the JSON report to this file")
		verbose    = flag.Bool("verbose", false, "Log checkpoints and skipped events")
	)
	flag.Parse()

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()
	if *verbose {
		_ = logger.SetLevelString("debug")
	}
	log := logger.Named("simulate")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	// Generation and catch-up tuning come from the service config so a run
	// reflects what the server would do.
	cfg, err := config.Load(ctx)
	if err != nil {
		log.Error(ctx, "failed to load config", logger.Error(err))
		os.Exit(1)
	}

	baseline := rating.FromModel(cfg.Rating.Model())
	baseline.System = rating.Baseline
	catchUp := baseline
	catchUp.System = rating.CatchUp

	sim := simulation.DefaultConfig()
	sim.Players = *players
	sim.Courts = *courts
	sim.Rounds = *rounds
	sim.Events = *events
	sim.Seed = *seed
	sim.SkillSpread = *spread
	sim.CheckpointEvery = *checkpoint
	sim.Settings = cfg.Generation.Settings()
	sim.Systems = []rating.Config{baseline, catchUp}

	res, err := simulation.Run(ctx, sim, simulation.WithLogger(log))
	if err != nil {
		log.Error(ctx, "simulation failed", logger.Error(err))
		os.Exit(1)
	}

	if *outputFile != "" {
		if err := simulation.WriteJSON(*outputFile, res); err != nil {
			log.Error(ctx, "failed to save report", logger.Error(err))
			os.Exit(1)
		}
		log.Info(ctx, "report saved", logger.String("file", *outputFile))
	}
}
