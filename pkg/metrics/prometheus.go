// Package metrics provides Prometheus metrics for the courtside scheduling service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every collector the service exports.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Generation
	generations        *prometheus.CounterVec
	generationAttempts prometheus.Histogram
	relaxIterations    prometheus.Histogram
	generationDuration prometheus.Histogram
	stateTransitions   *prometheus.CounterVec

	// Ratings and results
	ratingUpdates   *prometheus.CounterVec
	eventsCompleted prometheus.Counter
	scoresRecorded  *prometheus.CounterVec
	swaps           *prometheus.CounterVec

	// Standings
	standingsPlayers *prometheus.GaugeVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Job queue
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueEnqueued      prometheus.Counter
	queueDequeued      prometheus.Counter
	queueEnqueueErrors prometheus.Counter
	jobsDuplicate      prometheus.Counter

	// Workers
	workerCount      prometheus.Gauge
	workerJobs       *prometheus.CounterVec
	workerJobLatency prometheus.Histogram

	// Errors
	errorsByComponent *prometheus.CounterVec

	// Store
	storeLatency *prometheus.HistogramVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // service registry without default Go collectors

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "courtside",
		subsystem:        "scheduler",
		histogramBuckets: []float64{1, 2, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		constLabels:      prometheus.Labels{},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels}
}

func (m *Manager) histogramOpts(name, help string, buckets []float64) prometheus.HistogramOpts {
	if buckets == nil {
		buckets = m.histogramBuckets
	}
	return prometheus.HistogramOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: buckets, ConstLabels: m.constLabels}
}

func (m *Manager) initializeMetrics() { //nolint:funlen // flat list of collectors
	auto := promauto.With(m.registry)

	m.generations = auto.NewCounterVec(m.counterOpts("generations_total",
		"Schedule generations by outcome (success, precondition, infeasible, relax_exhausted)"), []string{"outcome"})
	m.generationAttempts = auto.NewHistogram(m.histogramOpts("generation_attempts",
		"Pairing and assembly attempts spent per generation", []float64{1, 2, 5, 10, 25, 50, 100, 250, 500, 1000}))
	m.relaxIterations = auto.NewHistogram(m.histogramOpts("relax_iterations",
		"Tolerance relaxation steps taken per generation", []float64{0, 1, 2, 3, 5, 8, 13, 21}))
	m.generationDuration = auto.NewHistogram(m.histogramOpts("generation_duration_milliseconds",
		"Wall time spent searching for a schedule", nil))
	m.stateTransitions = auto.NewCounterVec(m.counterOpts("state_transitions_total",
		"Orchestrator state machine transitions"), []string{"state"})

	m.ratingUpdates = auto.NewCounterVec(m.counterOpts("rating_updates_total",
		"Per-player rating updates written, by rating system"), []string{"system"})
	m.eventsCompleted = auto.NewCounter(m.counterOpts("events_completed_total",
		"Events completed with ratings applied"))
	m.scoresRecorded = auto.NewCounterVec(m.counterOpts("scores_recorded_total",
		"Game scores recorded, by derived result"), []string{"result"})
	m.swaps = auto.NewCounterVec(m.counterOpts("swaps_total",
		"Swap operations, by outcome"), []string{"outcome"})

	m.standingsPlayers = auto.NewGaugeVec(m.gaugeOpts("standings_players",
		"Players tracked in the in-memory standings per group"), []string{"group"})

	m.httpRequests = auto.NewCounterVec(m.counterOpts("http_requests_total",
		"Total number of HTTP requests by endpoint and method"), []string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(m.histogramOpts("http_request_duration_milliseconds",
		"HTTP request duration in milliseconds", nil), []string{"endpoint", "method", "status_code"})

	m.queueSize = auto.NewGauge(m.gaugeOpts("job_queue_size", "Generation jobs waiting in the queue"))
	m.queueCapacity = auto.NewGauge(m.gaugeOpts("job_queue_capacity", "Maximum generation jobs the queue accepts"))
	m.queueEnqueued = auto.NewCounter(m.counterOpts("job_queue_enqueued_total", "Generation jobs enqueued"))
	m.queueDequeued = auto.NewCounter(m.counterOpts("job_queue_dequeued_total", "Generation jobs handed to workers"))
	m.queueEnqueueErrors = auto.NewCounter(m.counterOpts("job_queue_enqueue_errors_total", "Generation jobs rejected by the queue"))
	m.jobsDuplicate = auto.NewCounter(m.counterOpts("jobs_duplicate_total", "Generation jobs suppressed as duplicates"))

	m.workerCount = auto.NewGauge(m.gaugeOpts("worker_count", "Generation workers running"))
	m.workerJobs = auto.NewCounterVec(m.counterOpts("worker_jobs_total",
		"Generation jobs processed by workers, by outcome"), []string{"outcome"})
	m.workerJobLatency = auto.NewHistogram(m.histogramOpts("worker_job_latency_milliseconds",
		"End to end job processing latency", nil))

	m.errorsByComponent = auto.NewCounterVec(m.counterOpts("errors_total",
		"Errors by component and type"), []string{"component", "error_type"})

	m.storeLatency = auto.NewHistogramVec(m.histogramOpts("store_latency_milliseconds",
		"Store operation latency", nil), []string{"operation"})

	m.systemMemoryUsage = auto.NewGauge(m.gaugeOpts("system_memory_usage_bytes", "System memory usage in bytes"))
	m.systemGoroutineCount = auto.NewGauge(m.gaugeOpts("system_goroutine_count", "Number of goroutines"))
}

// RecordGeneration records the outcome and search effort of one generation call.
func RecordGeneration(outcome string, attempts, relaxIterations int, durationMs float64) {
	globalManager.generations.WithLabelValues(outcome).Inc()
	globalManager.generationAttempts.Observe(float64(attempts))
	globalManager.relaxIterations.Observe(float64(relaxIterations))
	globalManager.generationDuration.Observe(durationMs)
}

// RecordStateTransition counts an orchestrator state entry.
func RecordStateTransition(state string) {
	globalManager.stateTransitions.WithLabelValues(state).Inc()
}

// RecordRatingUpdates adds n written rating updates for system.
func RecordRatingUpdates(system string, n int) {
	globalManager.ratingUpdates.WithLabelValues(system).Add(float64(n))
}

// RecordEventCompleted increments the completed events counter.
func RecordEventCompleted() {
	globalManager.eventsCompleted.Inc()
}

// RecordScore counts a recorded score by its derived result.
func RecordScore(result string) {
	globalManager.scoresRecorded.WithLabelValues(result).Inc()
}

// RecordSwap counts a swap by outcome (ok, warning, rejected).
func RecordSwap(outcome string) {
	globalManager.swaps.WithLabelValues(outcome).Inc()
}

// UpdateStandingsPlayers sets the number of players tracked for a group.
func UpdateStandingsPlayers(groupID string, n int) {
	globalManager.standingsPlayers.WithLabelValues(groupID).Set(float64(n))
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueued.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeued.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// RecordJobDuplicate increments the duplicate job counter.
func RecordJobDuplicate() {
	globalManager.jobsDuplicate.Inc()
}

// UpdateWorkerCount sets the current worker count.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// RecordWorkerJob records a processed job and its latency.
func RecordWorkerJob(outcome string, latencyMs float64) {
	globalManager.workerJobs.WithLabelValues(outcome).Inc()
	globalManager.workerJobLatency.Observe(latencyMs)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordStoreLatency records the latency of a store operation.
func RecordStoreLatency(operation string, latencyMs float64) {
	globalManager.storeLatency.WithLabelValues(operation).Observe(latencyMs)
}

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
