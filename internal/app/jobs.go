package service

import (
	"sync"
	"time"

	eventqueue "github.com/okian/courtside/internal/adapters/mq/queue"
)

// JobState is the lifecycle of a generation job.
type JobState string

const (
	JobQueued    JobState = "queued"
	JobRunning   JobState = "running"
	JobSucceeded JobState = "succeeded"
	JobFailed    JobState = "failed"
)

// JobStatus reports a generation job.
type JobStatus struct {
	ID         string     `json:"id"`
	EventID    string     `json:"eventId"`
	Seed       string     `json:"seed"`
	Regenerate bool       `json:"regenerate"`
	State      JobState   `json:"state"`
	Error      string     `json:"error,omitempty"`
	EnqueuedAt time.Time  `json:"enqueuedAt"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
}

func (j JobStatus) finished() bool {
	return j.State == JobSucceeded || j.State == JobFailed
}

// jobTracker remembers recent jobs. Once more than limit are held, the oldest
// finished ones are forgotten.
type jobTracker struct {
	mu    sync.Mutex
	limit int
	byID  map[string]*JobStatus
	order []string
}

func newJobTracker(limit int) *jobTracker {
	return &jobTracker{limit: max(limit, 1), byID: make(map[string]*JobStatus)}
}

func (t *jobTracker) add(j eventqueue.Job) JobStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	st := &JobStatus{
		ID:         j.ID,
		EventID:    j.EventID,
		Seed:       j.Seed,
		Regenerate: j.Regenerate,
		State:      JobQueued,
		EnqueuedAt: j.EnqueuedAt,
	}
	t.byID[j.ID] = st
	t.order = append(t.order, j.ID)
	t.prune()
	return *st
}

func (t *jobTracker) prune() {
	if len(t.byID) <= t.limit {
		return
	}
	kept := t.order[:0]
	for _, id := range t.order {
		st, ok := t.byID[id]
		if !ok {
			continue
		}
		if len(t.byID) > t.limit && st.finished() {
			delete(t.byID, id)
			continue
		}
		kept = append(kept, id)
	}
	t.order = kept
}

func (t *jobTracker) update(id string, state JobState, err error, at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	st, ok := t.byID[id]
	if !ok {
		return
	}
	st.State = state
	if err != nil {
		st.Error = err.Error()
	}
	if st.finished() {
		st.FinishedAt = &at
	}
}

func (t *jobTracker) remove(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.byID, id)
}

func (t *jobTracker) get(id string) (JobStatus, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	st, ok := t.byID[id]
	if !ok {
		return JobStatus{}, false
	}
	return *st, true
}

func (t *jobTracker) counts() map[JobState]int {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[JobState]int, 4)
	for _, st := range t.byID {
		out[st.State]++
	}
	return out
}
