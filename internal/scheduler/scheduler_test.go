package scheduler

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/benchgrid/internal/interrupt"
)

// recordingRunner counts executions per job id and tracks peak concurrency.
type recordingRunner struct {
	mu      sync.Mutex
	runs    map[string]int
	active  int
	peak    int
	block   time.Duration
	onStart func(*recordingRunner)
}

func newRecordingRunner() *recordingRunner {
	return &recordingRunner{runs: make(map[string]int)}
}

func (r *recordingRunner) RunJob(_ context.Context, job Job) {
	r.mu.Lock()
	r.runs[job.ID]++
	r.active++
	if r.active > r.peak {
		r.peak = r.active
	}
	if r.onStart != nil {
		r.onStart(r)
	}
	r.mu.Unlock()

	if r.block > 0 {
		time.Sleep(r.block)
	}

	r.mu.Lock()
	r.active--
	r.mu.Unlock()
}

func makeJobs(n int) []Job {
	jobs := make([]Job, n)
	for i := range jobs {
		jobs[i] = Job{ID: "job-" + strconv.Itoa(i)}
	}
	return jobs
}

func TestRunSequential(t *testing.T) {
	r := newRecordingRunner()
	r.block = 10 * time.Millisecond
	pool := NewPool(r, interrupt.NewGuard(), 1)

	admitted := pool.Run(context.Background(), makeJobs(5))

	assert.Equal(t, 5, admitted)
	assert.Len(t, r.runs, 5)
	for id, count := range r.runs {
		assert.Equal(t, 1, count, "job %s claimed more than once", id)
	}
	assert.Equal(t, 1, r.peak, "width 1 must be strictly sequential")
}

func TestRunConcurrent(t *testing.T) {
	r := newRecordingRunner()
	r.block = 50 * time.Millisecond
	pool := NewPool(r, interrupt.NewGuard(), 4)

	admitted := pool.Run(context.Background(), makeJobs(8))

	assert.Equal(t, 8, admitted)
	assert.Len(t, r.runs, 8)
	for id, count := range r.runs {
		assert.Equal(t, 1, count, "job %s claimed more than once", id)
	}
	assert.Greater(t, r.peak, 1, "width 4 should overlap executions")
	assert.LessOrEqual(t, r.peak, 4, "pool must never exceed its width")
}

func TestRunJoinsBeforeReturning(t *testing.T) {
	r := newRecordingRunner()
	r.block = 20 * time.Millisecond
	pool := NewPool(r, interrupt.NewGuard(), 3)

	pool.Run(context.Background(), makeJobs(6))

	r.mu.Lock()
	defer r.mu.Unlock()
	assert.Zero(t, r.active, "Run must block until every admitted job finished")
}

func TestAbortStopsAdmission(t *testing.T) {
	guard := interrupt.NewGuard()
	r := newRecordingRunner()
	r.block = 10 * time.Millisecond
	r.onStart = func(rr *recordingRunner) {
		// Abort as soon as the first job is claimed; jobs already claimed
		// run to completion, the rest are never admitted.
		guard.Abort()
	}
	pool := NewPool(r, guard, 1)

	admitted := pool.Run(context.Background(), makeJobs(10))

	require.Less(t, admitted, 10)
	assert.Len(t, r.runs, admitted)
}

func TestWidthClamp(t *testing.T) {
	pool := NewPool(newRecordingRunner(), interrupt.NewGuard(), 0)
	assert.Equal(t, 1, pool.Width())
}
