package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitDone(t *testing.T, q *Queue, id string) Status {
	t.Helper()
	var status Status
	require.Eventually(t, func() bool {
		var ok bool
		status, ok = q.Status(id)
		return ok && status.Done()
	}, 2*time.Second, 5*time.Millisecond)
	return status
}

func TestQueueRecordsResult(t *testing.T) {
	q := NewQueue("test", func(_ context.Context, job Job) (interface{}, error) {
		return job.Payload.(int) * 2, nil
	}, QueueConfig{Workers: 2})
	q.Start(context.Background())
	defer q.Stop()

	status, err := q.Enqueue(Job{Type: "double", Payload: 21})
	require.NoError(t, err)
	assert.NotEmpty(t, status.ID)
	assert.Equal(t, StateQueued, status.State)

	done := waitDone(t, q, status.ID)
	assert.Equal(t, StateFinished, done.State)
	assert.Equal(t, 42, done.Result)
}

func TestQueueRetriesThenFails(t *testing.T) {
	var calls int32
	q := NewQueue("test", func(context.Context, Job) (interface{}, error) {
		atomic.AddInt32(&calls, 1)
		return nil, errors.New("boom")
	}, QueueConfig{MaxRetries: 2, RetryDelay: time.Millisecond})
	q.Start(context.Background())
	defer q.Stop()

	status, err := q.Enqueue(Job{ID: "job-1"})
	require.NoError(t, err)

	done := waitDone(t, q, status.ID)
	assert.Equal(t, StateFailed, done.State)
	assert.Equal(t, "boom", done.Error)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestQueueRetrySucceeds(t *testing.T) {
	var calls int32
	q := NewQueue("test", func(context.Context, Job) (interface{}, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			return nil, errors.New("transient")
		}
		return "ok", nil
	}, QueueConfig{MaxRetries: 1, RetryDelay: time.Millisecond})
	q.Start(context.Background())
	defer q.Stop()

	status, err := q.Enqueue(Job{})
	require.NoError(t, err)

	done := waitDone(t, q, status.ID)
	assert.Equal(t, StateFinished, done.State)
	assert.Equal(t, 1, done.Attempt)
	assert.Empty(t, done.Error)
}

func TestEnqueueRequiresStart(t *testing.T) {
	q := NewQueue("idle", func(context.Context, Job) (interface{}, error) { return nil, nil }, QueueConfig{})
	_, err := q.Enqueue(Job{})
	assert.Error(t, err)
}

func TestTrackerPrunesTerminalStatuses(t *testing.T) {
	tracker := NewTracker(time.Minute)
	now := time.Date(2024, 9, 1, 8, 0, 0, 0, time.UTC)
	tracker.now = func() time.Time { return now }

	tracker.queued(Job{ID: "a"})
	tracker.queued(Job{ID: "b"})
	tracker.finished("a", nil)

	now = now.Add(2 * time.Minute)
	_, ok := tracker.Get("a")
	assert.False(t, ok)
	status, ok := tracker.Get("b")
	require.True(t, ok)
	assert.Equal(t, StateQueued, status.State)
}
