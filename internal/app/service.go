// Package service wires the scheduling engine, the rating engine and the
// store into the operations the HTTP API exposes.
package service

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	eventqueue "github.com/okian/courtside/internal/adapters/mq/queue"
	workerpool "github.com/okian/courtside/internal/adapters/mq/worker"
	"github.com/okian/courtside/internal/adapters/repository"
	"github.com/okian/courtside/internal/domain/dedupe"
	"github.com/okian/courtside/internal/domain/model"
	"github.com/okian/courtside/internal/domain/rating"
	"github.com/okian/courtside/internal/domain/schedule"
	"github.com/okian/courtside/internal/domain/standings"
	"github.com/okian/courtside/pkg/logger"
	"github.com/okian/courtside/pkg/metrics"
)

const (
	// DefaultRating is given to imported players without a rating.
	DefaultRating = 1000.0

	eventLockStripes     = 64
	defaultStandingsSize = 50
)

// Service implements the API dependencies for the scheduling system.
type Service struct {
	mu sync.RWMutex

	store        repository.Store
	orchestrator *schedule.Orchestrator
	deduper      dedupe.Deduper
	jobQueue     eventqueue.Queue
	workerPool   *workerpool.Pool

	// Configuration
	workerCount       int
	queueSize         int
	dedupeSize        int
	maxStandingsLimit int
	settings          model.Settings
	ratingConfig      rating.Config
	now               func() time.Time

	// State
	started   bool
	runCancel context.CancelFunc
	tables    map[string]*standings.Standings
	jobs      *jobTracker

	// swaps, scores, generation and completion on one event run one at a time
	eventLocks [eventLockStripes]sync.Mutex

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of generation workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum number of queued generation jobs.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize bounds the duplicate job tracker.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithMaxStandingsLimit caps how many standings rows one call returns.
func WithMaxStandingsLimit(limit int) Option {
	return func(s *Service) {
		if limit > 0 {
			s.maxStandingsLimit = limit
		}
	}
}

// WithDefaultSettings sets the generation settings for events created
// without their own.
func WithDefaultSettings(settings model.Settings) Option {
	return func(s *Service) {
		s.settings = settings.WithBudgetDefaults()
	}
}

// WithDefaultRating sets the rating config for groups saved without one.
func WithDefaultRating(cfg rating.Config) Option {
	return func(s *Service) {
		s.ratingConfig = cfg
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a Service over store.
func New(store repository.Store, opts ...Option) *Service {
	s := &Service{
		store:             store,
		workerCount:       runtime.NumCPU(),
		queueSize:         1_000,
		dedupeSize:        10_000,
		maxStandingsLimit: 200,
		settings:          model.DefaultSettings(),
		ratingConfig:      rating.DefaultConfig(),
		now:               time.Now,
		tables:            make(map[string]*standings.Standings),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}
	s.orchestrator = schedule.New(
		schedule.WithLogger(s.logger.Named("schedule")),
		schedule.WithClock(s.now),
	)
	s.jobs = newJobTracker(s.dedupeSize)
	return s
}

// Start creates the job queue and starts the worker pool. Synchronous
// operations work without Start.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	s.logger.Info(ctx, "starting scheduling service...")

	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.jobQueue = eventqueue.NewInMemoryQueue(
		eventqueue.WithCapacity(s.queueSize),
	)
	s.workerPool = workerpool.NewPool(s.workerCount, s.jobQueue, s,
		workerpool.WithLogger(s.logger.Named("worker")),
	)

	// workers outlive the context Start was called with
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.runCancel = cancel
	s.workerPool.Start(runCtx)

	s.started = true
	s.logger.Info(ctx, "scheduling service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
	)
	return nil
}

// Stop drains queued jobs and stops the workers. The store is left open.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx := context.Background()
	s.logger.Info(ctx, "stopping scheduling service...")

	if s.workerPool != nil {
		if err := s.workerPool.Shutdown(ctx); err != nil {
			s.logger.Warn(ctx, "worker pool shutdown", logger.Error(err))
		}
	}
	if s.runCancel != nil {
		s.runCancel()
	}

	s.started = false
	s.logger.Info(ctx, "scheduling service stopped")
}

// Ping checks the store.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]any{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"dedupeSize":  s.dedupeSize,
		"groups":      len(s.tables),
		"jobs":        s.jobs.counts(),
	}

	if s.started {
		queueLen := s.jobQueue.Len(ctx)
		stats["queueLength"] = queueLen
		stats["inFlight"] = s.deduper.Size()

		metrics.UpdateQueueSize(queueLen)
		metrics.UpdateWorkerCount(s.workerPool.Size())
	}
	return stats
}

func (s *Service) lockEvent(eventID string) func() {
	m := &s.eventLocks[xxhash.Sum64String(eventID)%eventLockStripes]
	m.Lock()
	return m.Unlock
}
