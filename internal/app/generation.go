package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	eventqueue "github.com/okian/courtside/internal/adapters/mq/queue"
	"github.com/okian/courtside/internal/adapters/repository"
	"github.com/okian/courtside/internal/domain/constraint"
	"github.com/okian/courtside/internal/domain/dedupe"
	"github.com/okian/courtside/internal/domain/model"
	"github.com/okian/courtside/internal/domain/schedule"
	"github.com/okian/courtside/pkg/logger"
	"github.com/okian/courtside/pkg/metrics"
)

// Generate builds the first schedule of a DRAFT event. An empty seed is
// replaced by a fresh one, which the metadata records.
func (s *Service) Generate(ctx context.Context, eventID, seed string) (model.Schedule, error) {
	return s.generate(ctx, eventID, seed, false)
}

// Regenerate replaces an event's games and metadata with a new schedule.
func (s *Service) Regenerate(ctx context.Context, eventID, seed string) (model.Schedule, error) {
	return s.generate(ctx, eventID, seed, true)
}

func (s *Service) generate(ctx context.Context, eventID, seed string, regenerate bool) (model.Schedule, error) {
	unlock := s.lockEvent(eventID)
	defer unlock()

	ev, err := s.store.Event(ctx, eventID)
	if err != nil {
		return model.Schedule{}, err
	}
	switch {
	case ev.Status == model.EventCompleted:
		return model.Schedule{}, fmt.Errorf("%w: %s", ErrEventCompleted, eventID)
	case ev.Status == model.EventGenerated && !regenerate:
		return model.Schedule{}, fmt.Errorf("%w: %s", ErrAlreadyGenerated, eventID)
	}
	if seed == "" {
		seed = uuid.NewString()
	}

	ratings, err := s.ratings(ctx, ev.GroupID)
	if err != nil {
		return model.Schedule{}, err
	}
	previous, err := s.previousTeammates(ctx, ev)
	if err != nil {
		return model.Schedule{}, err
	}

	sched, err := s.orchestrator.Generate(ctx, schedule.Request{
		EventID:           ev.ID,
		ParticipantIDs:    ev.ParticipantIDs,
		Ratings:           ratings,
		Courts:            ev.Courts,
		Rounds:            ev.Rounds,
		Settings:          ev.Settings,
		PreviousTeammates: previous,
		Seed:              seed,
	})
	if err != nil {
		metrics.RecordErrorByComponent("service", "generation")
		return model.Schedule{}, err
	}
	if err := s.store.ReplaceSchedule(ctx, sched); err != nil {
		return model.Schedule{}, storeErr(err)
	}

	games, err := s.store.Games(ctx, eventID)
	if err != nil {
		return model.Schedule{}, err
	}
	sched.Rounds = model.GroupRounds(games)
	s.logger.Info(ctx, "schedule stored",
		logger.String("event", eventID),
		logger.String("seed", seed),
		logger.Bool("regenerate", regenerate),
		logger.Int("games", len(games)),
	)
	return sched, nil
}

// previousTeammates returns the teammate pairs of the group's preceding
// event, or nil for the first event.
func (s *Service) previousTeammates(ctx context.Context, ev model.Event) ([]model.PairKey, error) {
	prev, err := s.store.PreviousEvent(ctx, ev.GroupID, ev.Sequence)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	games, err := s.store.Games(ctx, prev.ID)
	if err != nil {
		return nil, err
	}
	return constraint.TeammatePairsOf(games), nil
}

func storeErr(err error) error {
	if errors.Is(err, repository.ErrConflict) {
		return fmt.Errorf("%w: %w", ErrEventCompleted, err)
	}
	return err
}

// EnqueueGeneration queues an asynchronous (re)generation. A job for the same
// event and seed that is still queued or running is rejected.
func (s *Service) EnqueueGeneration(ctx context.Context, eventID, seed string, regenerate bool) (JobStatus, error) {
	s.mu.RLock()
	started := s.started
	s.mu.RUnlock()
	if !started {
		return JobStatus{}, ErrNotStarted
	}

	ev, err := s.store.Event(ctx, eventID)
	if err != nil {
		return JobStatus{}, err
	}
	if ev.Status == model.EventCompleted {
		return JobStatus{}, fmt.Errorf("%w: %s", ErrEventCompleted, eventID)
	}
	if seed == "" {
		seed = uuid.NewString()
	}

	key := dedupe.JobKey(eventID, seed)
	if s.deduper.SeenAndRecord(ctx, key) {
		metrics.RecordJobDuplicate()
		s.logger.Debug(ctx, "duplicate generation job", logger.String("key", key))
		return JobStatus{}, fmt.Errorf("%w: event %s seed %s", ErrDuplicateJob, eventID, seed)
	}

	job := eventqueue.Job{
		ID:         uuid.NewString(),
		EventID:    eventID,
		Seed:       seed,
		Regenerate: regenerate,
		EnqueuedAt: s.now(),
	}
	status := s.jobs.add(job)
	if err := s.jobQueue.Enqueue(ctx, job); err != nil {
		s.deduper.Unrecord(ctx, key)
		s.jobs.remove(job.ID)
		switch {
		case errors.Is(err, eventqueue.ErrFull):
			return JobStatus{}, ErrBackpressure
		case errors.Is(err, eventqueue.ErrClosed):
			return JobStatus{}, ErrNotStarted
		}
		return JobStatus{}, err
	}
	s.logger.Debug(ctx, "generation job queued", logger.String("job", job.ID), logger.String("event", eventID))
	return status, nil
}

// ProcessJob runs a queued generation. It is called by the worker pool.
func (s *Service) ProcessJob(ctx context.Context, job eventqueue.Job) error {
	defer s.deduper.Unrecord(ctx, dedupe.JobKey(job.EventID, job.Seed))

	s.jobs.update(job.ID, JobRunning, nil, s.now())
	_, err := s.generate(ctx, job.EventID, job.Seed, job.Regenerate)
	if err != nil {
		s.jobs.update(job.ID, JobFailed, err, s.now())
		return err
	}
	s.jobs.update(job.ID, JobSucceeded, nil, s.now())
	return nil
}

// Job returns the status of a generation job.
func (s *Service) Job(_ context.Context, id string) (JobStatus, error) {
	st, ok := s.jobs.get(id)
	if !ok {
		return JobStatus{}, fmt.Errorf("%w: job %s", ErrNotFound, id)
	}
	return st, nil
}
