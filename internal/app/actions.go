package app

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/vk/benchgrid/internal/notes"
	"github.com/vk/benchgrid/internal/project"
	"github.com/vk/benchgrid/internal/summary"
)

// RunArgs are the run-action knobs collected from the command line.
type RunArgs struct {
	Threads        int
	GlobalTimeout  string
	WithInProgress bool
	WithTimeout    bool
	WithFailure    bool
	Only           []string
}

// Run executes the campaign: the whole matrix on a fresh project, the
// remaining NotStarted jobs on a resumed one.
func (a *App) Run(ctx context.Context, args RunArgs) error {
	var globalTimeout time.Duration
	if args.GlobalTimeout != "" {
		d, err := time.ParseDuration(args.GlobalTimeout)
		if err != nil {
			return fmt.Errorf("cannot parse global timeout %q: %w", args.GlobalTimeout, err)
		}
		globalTimeout = d
	}
	return a.project.Run(a.context(ctx), project.RunOptions{
		Threads:        args.Threads,
		GlobalTimeout:  globalTimeout,
		WithInProgress: args.WithInProgress,
		WithTimeout:    args.WithTimeout,
		WithFailure:    args.WithFailure,
		Only:           args.Only,
		InstallGuard:   true,
	})
}

// Build runs the project's build command.
func (a *App) Build(ctx context.Context) error {
	return a.project.Build(a.context(ctx))
}

// Fetch materializes the pinned sources.
func (a *App) Fetch(ctx context.Context, commit string) error {
	return a.project.Fetch(a.context(ctx), commit)
}

// HasResults reports whether the campaign has a summary file, i.e. whether
// cleaning would discard anything worth backing up.
func (a *App) HasResults() bool {
	return exists(a.project.Paths().SummaryFile)
}

// Clean runs the clean command. When saveBackup is set, a snapshot of the
// current results is written next to the working directory first.
func (a *App) Clean(ctx context.Context, saveBackup bool, zipWith []string) error {
	ctx = a.context(ctx)
	if saveBackup {
		path := a.BackupPath()
		if err := a.zipTo(ctx, path, zipWith); err != nil {
			return fmt.Errorf("cannot back up results before cleaning: %w", err)
		}
		a.logger.Info("Saved results backup.", "path", path)
	}
	return a.project.Clean(ctx)
}

// ShowNotes renders the project description.
func (a *App) ShowNotes(ctx context.Context) error {
	rendered, err := notes.Render(a.project.Config().Description)
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(a.outW, rendered)
	return err
}

// ShowSummary prints the summary table, optionally sorted by the named
// columns (a leading '~' reverses a column).
func (a *App) ShowSummary(ctx context.Context, sortBy []string) error {
	paths := a.project.Paths()
	t, err := summary.Read(paths.SummaryFile)
	if err != nil {
		return err
	}
	if len(sortBy) > 0 {
		t.Sort(sortBy)
	}
	if _, err := fmt.Fprintln(a.outW, t.Render()); err != nil {
		return err
	}
	a.logger.Info("Summary file.", "path", paths.SummaryFile)
	return nil
}

// ShowStatus prints the per-job state table.
func (a *App) ShowStatus(ctx context.Context, only []string) error {
	t, err := a.project.StatusTable(only)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(a.outW, t.Render())
	return err
}

// ShowJSON prints the resolved project as JSON.
func (a *App) ShowJSON(ctx context.Context, pretty bool) error {
	export, err := a.project.ExportModel()
	if err != nil {
		return err
	}
	var data []byte
	if pretty {
		data, err = json.MarshalIndent(export, "", "  ")
	} else {
		data, err = json.Marshal(export)
	}
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(a.outW, string(data))
	return err
}
