// Package scheduler dispatches schedulable jobs across a fixed-size worker
// pool. Jobs are independent leaves of one matrix: there is no dependency
// graph, so the pool is a plain drain of a shared queue where the channel
// receive is the mutually-exclusive claim.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/vk/benchgrid/internal/ctxlog"
	"github.com/vk/benchgrid/internal/interrupt"
)

// Job is one schedulable unit: a stable identity, the parameter bindings
// layered over the alias table at execution time, and the effective timeout
// (a per-job override already folded over the global one; zero means none).
type Job struct {
	ID       string
	Bindings map[string]string
	Timeout  time.Duration
}

// Runner executes a single claimed job through to a terminal status. Job
// failures never escape this boundary: they become status-store writes
// inside the implementation.
type Runner interface {
	RunJob(ctx context.Context, job Job)
}

// Pool is the fixed-size worker pool.
type Pool struct {
	runner Runner
	guard  *interrupt.Guard
	width  int
}

// NewPool returns a pool of the given width; widths below 1 are clamped to
// strictly sequential execution.
func NewPool(runner Runner, guard *interrupt.Guard, width int) *Pool {
	if width < 1 {
		width = 1
	}
	return &Pool{runner: runner, guard: guard, width: width}
}

// Width reports the configured concurrency degree.
func (p *Pool) Width() int {
	return p.width
}

// Run dispatches the jobs and blocks until every admitted job has reached a
// terminal status. The abort flag is consulted between dispatches only: a
// job already claimed runs to its natural conclusion or its own timeout.
// Returns the number of jobs admitted.
func (p *Pool) Run(ctx context.Context, jobs []Job) int {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Worker pool starting.", "width", p.width, "jobs", len(jobs))

	jobCh := make(chan Job)
	var wg sync.WaitGroup
	for i := 0; i < p.width; i++ {
		wg.Add(1)
		go p.worker(ctx, i, jobCh, &wg)
	}

	admitted := 0
	for _, job := range jobs {
		if p.guard.Aborted() {
			logger.Warn("Abort observed, not admitting further jobs.", "remaining", len(jobs)-admitted)
			break
		}
		jobCh <- job
		admitted++
	}
	close(jobCh)
	wg.Wait()

	logger.Debug("Worker pool drained.", "admitted", admitted)
	return admitted
}

// worker is the processing loop for a single concurrent worker.
func (p *Pool) worker(ctx context.Context, workerID int, jobCh <-chan Job, wg *sync.WaitGroup) {
	defer wg.Done()
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Worker started.", "workerID", workerID)

	for job := range jobCh {
		workerLogger := logger.With("workerID", workerID, "jobID", job.ID)
		workerLogger.Debug("Worker picked up job.")
		p.runner.RunJob(ctxlog.WithLogger(ctx, workerLogger), job)
		workerLogger.Debug("Worker finished job.")
	}

	logger.Debug("Worker finished.", "workerID", workerID)
}
