package project

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/vk/benchgrid/internal/ctxlog"
	"github.com/vk/benchgrid/internal/limits"
	"github.com/vk/benchgrid/internal/runner"
	"github.com/vk/benchgrid/internal/scheduler"
	"github.com/vk/benchgrid/internal/status"
)

// RunOptions control one run invocation.
type RunOptions struct {
	// Threads is the worker pool width; values below 1 mean strictly
	// sequential.
	Threads int
	// GlobalTimeout overrides the configuration's per-job timeout.
	GlobalTimeout time.Duration
	// WithInProgress / WithTimeout / WithFailure re-admit jobs stuck in the
	// corresponding state from a prior attempt.
	WithInProgress bool
	WithTimeout    bool
	WithFailure    bool
	// Only restricts scheduling to the named job ids.
	Only []string
	// InstallGuard hooks the SIGINT handler. Tests leave it false so an
	// interrupted test run cannot exit the test binary.
	InstallGuard bool
}

// Run drains the job matrix through the worker pool. Configuration problems
// (missing required overrides, alias cycles) are reported before any job is
// touched; job-local failures never escape the workers.
func (p *Project) Run(ctx context.Context, opts RunOptions) error {
	logger := ctxlog.FromContext(ctx)

	if missing := p.MissingOverrides(); len(missing) > 0 {
		return fmt.Errorf("missing required overrides: %s (pass them with -o key:value)", strings.Join(missing, ", "))
	}
	if err := p.table.Validate(); err != nil {
		return err
	}
	if err := p.InitDirs(); err != nil {
		return err
	}

	for _, unlock := range []struct {
		requested bool
		state     status.State
	}{
		{opts.WithInProgress, status.InProgress},
		{opts.WithTimeout, status.TimedOut},
		{opts.WithFailure, status.Failed},
	} {
		if !unlock.requested {
			continue
		}
		reset, err := p.store.Unlock(unlock.state)
		if err != nil {
			return fmt.Errorf("cannot unlock %s jobs: %w", unlock.state, err)
		}
		logger.Info("Re-admitted jobs.", "state", unlock.state, "count", len(reset))
	}

	if opts.InstallGuard {
		p.guard.Install(ctx)
	}
	if err := limits.Apply(ctx, p.cfg.Limits); err != nil {
		// The campaign still runs with inherited limits.
		logger.Warn("Cannot apply project limits.", "error", err)
	}
	if err := p.dumpLastRunningConfiguration(); err != nil {
		logger.Warn("Cannot write last running configuration.", "error", err)
	}

	globalTimeout, err := p.cfg.GlobalTimeout()
	if err != nil {
		return err
	}
	if opts.GlobalTimeout > 0 {
		globalTimeout = opts.GlobalTimeout
	}

	all, err := p.Jobs(globalTimeout)
	if err != nil {
		return err
	}

	schedulable, err := p.selectSchedulable(ctx, all, opts.Only)
	if err != nil {
		return err
	}

	pool := scheduler.NewPool(p, p.guard, opts.Threads)
	logger.Info("Starting campaign run.",
		"jobs", len(schedulable), "skipped", len(all)-len(schedulable), "width", pool.Width(), "attempt", p.attempt)
	admitted := pool.Run(ctx, schedulable)
	logger.Info("Campaign run finished.", "admitted", admitted)
	return nil
}

// selectSchedulable keeps the jobs whose persisted state is NotStarted,
// applying the --only filter first. Jobs in any other state are skipped:
// resumption re-admits them only through an explicit unlock.
func (p *Project) selectSchedulable(ctx context.Context, all []scheduler.Job, only []string) ([]scheduler.Job, error) {
	logger := ctxlog.FromContext(ctx)

	var onlySet map[string]bool
	if len(only) > 0 {
		onlySet = make(map[string]bool, len(only))
		for _, id := range only {
			onlySet[id] = true
		}
	}

	var out []scheduler.Job
	for _, job := range all {
		if onlySet != nil && !onlySet[job.ID] {
			continue
		}
		marker, err := p.store.Read(job.ID)
		if err != nil {
			return nil, err
		}
		if marker.State != status.NotStarted {
			logger.Debug("Skipping job with prior state.", "jobID", job.ID, "state", marker.State)
			continue
		}
		out = append(out, job)
	}
	return out, nil
}

// RunJob executes one claimed job through to a terminal status. It
// implements scheduler.Runner; errors become status transitions, never
// panics or pool aborts.
func (p *Project) RunJob(ctx context.Context, job scheduler.Job) {
	logger := ctxlog.FromContext(ctx)

	if err := p.store.Transition(job.ID, status.Marker{State: status.InProgress, Attempt: p.attempt}); err != nil {
		logger.Error("Cannot claim job.", "error", err)
		return
	}

	state, elapsed := p.executeJob(ctx, job)

	if err := p.store.Transition(job.ID, status.Marker{State: state, Elapsed: elapsed, Attempt: p.attempt}); err != nil {
		logger.Error("Cannot persist terminal status.", "error", err)
	}
	if err := p.summary.Append(p.summaryRow(job, state, elapsed)); err != nil {
		logger.Error("Cannot append summary row.", "error", err)
	}
	logger.Info("Job finished.", "state", state, "elapsed", elapsed)
}

// executeJob resolves the command template and runs it, returning the
// terminal classification.
func (p *Project) executeJob(ctx context.Context, job scheduler.Job) (status.State, time.Duration) {
	logger := ctxlog.FromContext(ctx)

	outPath, errPath := p.logPaths(job.ID)
	outFile, err := os.Create(outPath)
	if err != nil {
		logger.Error("Cannot create job log file.", "error", err)
		return status.Error, 0
	}
	defer outFile.Close()
	errFile, err := os.Create(errPath)
	if err != nil {
		logger.Error("Cannot create job error file.", "error", err)
		return status.Error, 0
	}
	defer errFile.Close()

	script, err := p.table.Overlay(job.Bindings).Resolve(p.cfg.Commands.Execute)
	if err != nil {
		fmt.Fprintln(errFile, err)
		logger.Error("Cannot resolve command template.", "error", err)
		return status.Error, 0
	}

	res := runner.RunShell(ctx, p.guard, p.paths.Working, runner.Shell{Script: script}, outFile, errFile, job.Timeout)

	switch res.Class {
	case runner.ClassTimedOut:
		return status.TimedOut, res.Elapsed
	case runner.ClassError:
		return status.Error, res.Elapsed
	}

	if p.failureRe != nil && p.matchesFailurePattern(ctx, errPath) {
		logger.Warn("Clean exit reclassified by failure policy.")
		return status.Failed, res.Elapsed
	}
	return status.Ok, res.Elapsed
}

// matchesFailurePattern scans the job's stderr log for the failure policy
// pattern.
func (p *Project) matchesFailurePattern(ctx context.Context, errPath string) bool {
	data, err := os.ReadFile(errPath)
	if err != nil {
		ctxlog.FromContext(ctx).Warn("Cannot read stderr log for failure policy.", "error", err)
		return false
	}
	return p.failureRe.Match(data)
}

// summaryRow renders one completed job as a summary record: parameter
// values in column order, then status and elapsed time.
func (p *Project) summaryRow(job scheduler.Job, state status.State, elapsed time.Duration) []string {
	columns := p.summary.Columns()
	row := make([]string, 0, len(columns))
	for _, column := range columns {
		switch column {
		case "status":
			row = append(row, string(state))
		case "elapsed":
			row = append(row, elapsed.String())
		default:
			row = append(row, job.Bindings[column])
		}
	}
	return row
}
