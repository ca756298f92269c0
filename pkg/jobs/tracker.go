package jobs

import (
	"sync"
	"time"
)

// State is the lifecycle stage of a job.
type State string

const (
	StateQueued   State = "queued"
	StateRunning  State = "running"
	StateFinished State = "finished"
	StateFailed   State = "failed"
)

// Status is a snapshot of a tracked job.
type Status struct {
	ID         string      `json:"id"`
	Type       string      `json:"type"`
	State      State       `json:"state"`
	Attempt    int         `json:"attempt"`
	Error      string      `json:"error,omitempty"`
	Result     interface{} `json:"result,omitempty"`
	EnqueuedAt time.Time   `json:"enqueued_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

// Done reports whether the job reached a terminal state.
func (s Status) Done() bool {
	return s.State == StateFinished || s.State == StateFailed
}

// Tracker keeps job statuses in memory. Terminal statuses are pruned after ttl.
type Tracker struct {
	mu       sync.RWMutex
	ttl      time.Duration
	now      func() time.Time
	statuses map[string]*Status
}

// NewTracker builds a tracker; a non-positive ttl defaults to one hour.
func NewTracker(ttl time.Duration) *Tracker {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Tracker{ttl: ttl, now: time.Now, statuses: make(map[string]*Status)}
}

// Get returns a copy of the job status.
func (t *Tracker) Get(id string) (Status, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pruneLocked()
	status, ok := t.statuses[id]
	if !ok {
		return Status{}, false
	}
	return *status, true
}

func (t *Tracker) queued(job Job) Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pruneLocked()
	status := &Status{
		ID:         job.ID,
		Type:       job.Type,
		State:      StateQueued,
		Attempt:    job.Attempt,
		EnqueuedAt: job.Enqueued,
		UpdatedAt:  t.now().UTC(),
	}
	t.statuses[job.ID] = status
	return *status
}

func (t *Tracker) running(id string, attempt int) {
	t.update(id, func(s *Status) {
		s.State = StateRunning
		s.Attempt = attempt
	})
}

func (t *Tracker) retrying(id string, attempt int, err error) {
	t.update(id, func(s *Status) {
		s.State = StateQueued
		s.Attempt = attempt
		s.Error = err.Error()
	})
}

func (t *Tracker) finished(id string, result interface{}) {
	t.update(id, func(s *Status) {
		s.State = StateFinished
		s.Error = ""
		s.Result = result
	})
}

func (t *Tracker) failed(id string, err error) {
	t.update(id, func(s *Status) {
		s.State = StateFailed
		s.Error = err.Error()
	})
}

func (t *Tracker) update(id string, fn func(*Status)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	status, ok := t.statuses[id]
	if !ok {
		return
	}
	fn(status)
	status.UpdatedAt = t.now().UTC()
}

func (t *Tracker) pruneLocked() {
	cutoff := t.now().UTC().Add(-t.ttl)
	for id, status := range t.statuses {
		if status.Done() && status.UpdatedAt.Before(cutoff) {
			delete(t.statuses, id)
		}
	}
}
