package project

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/vk/benchgrid/internal/ctxlog"
	"github.com/vk/benchgrid/internal/runner"
)

// LastRunningConfigName is the resolved-project dump written to the working
// directory at the start of every run, and included in snapshots.
const LastRunningConfigName = "last_running_configuration.json"

// Build resolves and runs the build command in the working directory. Any
// failure is fatal to the whole invocation: no jobs run on a broken build.
func (p *Project) Build(ctx context.Context) error {
	ctxlog.FromContext(ctx).Info("Building project.")
	return p.runDirect(ctx, p.cfg.Commands.Build)
}

// Clean resolves and runs the clean command, if one is configured.
func (p *Project) Clean(ctx context.Context) error {
	if p.cfg.Commands.Clean == "" {
		ctxlog.FromContext(ctx).Info("No clean command configured, nothing to do.")
		return nil
	}
	return p.runDirect(ctx, p.cfg.Commands.Clean)
}

// Fetch materializes the pinned sources: clone on first use, then check out
// the requested commit. commitOverride, when non-empty, wins over the
// configured pin.
func (p *Project) Fetch(ctx context.Context, commitOverride string) error {
	if p.cfg.Versioning == nil {
		return fmt.Errorf("project has no versioning block, nothing to fetch")
	}
	if err := p.InitDirs(); err != nil {
		return err
	}

	if _, err := os.Stat(filepath.Join(p.paths.Sources, ".git")); os.IsNotExist(err) {
		clone := runner.Direct{Executable: "git", Args: []string{"clone", p.cfg.Versioning.Repository, p.paths.Sources}}
		if err := runner.RunDirect(ctx, p.paths.Working, clone); err != nil {
			return err
		}
	}

	commit := p.cfg.Versioning.Commit
	if commitOverride != "" {
		commit = commitOverride
	}
	if commit == "" {
		return nil
	}
	checkout := runner.Direct{Executable: "git", Args: []string{"-C", p.paths.Sources, "checkout", commit}}
	return runner.RunDirect(ctx, p.paths.Working, checkout)
}

// runDirect resolves a build-style template and executes it as a direct
// process with inherited stdio.
func (p *Project) runDirect(ctx context.Context, template string) error {
	if err := p.table.Validate(); err != nil {
		return err
	}
	resolved, err := p.table.Resolve(template)
	if err != nil {
		return err
	}
	cmd, err := runner.ParseDirect(resolved)
	if err != nil {
		return fmt.Errorf("invalid command template %q: %w", template, err)
	}
	if err := p.InitDirs(); err != nil {
		return err
	}
	return runner.RunDirect(ctx, p.paths.Working, cmd)
}

// Export is the serializable view of a project used by `show json` and the
// last-running-configuration dump.
type Export struct {
	Version     string            `json:"version"`
	Description string            `json:"description,omitempty"`
	Attempt     string            `json:"attempt"`
	Paths       Paths             `json:"paths"`
	Aliases     map[string]string `json:"aliases"`
	Build       string            `json:"build"`
	Execute     string            `json:"execute"`
	Clean       string            `json:"clean,omitempty"`
	Timeout     string            `json:"timeout,omitempty"`
	Required    []string          `json:"required,omitempty"`
	JobIDs      []string          `json:"jobs"`
}

// ExportModel assembles the serializable view.
func (p *Project) ExportModel() (*Export, error) {
	globalTimeout, err := p.cfg.GlobalTimeout()
	if err != nil {
		return nil, err
	}
	jobs, err := p.Jobs(globalTimeout)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(jobs))
	for i, job := range jobs {
		ids[i] = job.ID
	}

	return &Export{
		Version:     p.cfg.Version,
		Description: p.cfg.Description,
		Attempt:     p.attempt,
		Paths:       p.paths,
		Aliases:     p.table.Snapshot(),
		Build:       p.cfg.Commands.Build,
		Execute:     p.cfg.Commands.Execute,
		Clean:       p.cfg.Commands.Clean,
		Timeout:     p.cfg.Timeout,
		Required:    p.cfg.Required,
		JobIDs:      ids,
	}, nil
}

// dumpLastRunningConfiguration records the exact resolved configuration the
// run was started with.
func (p *Project) dumpLastRunningConfiguration() error {
	export, err := p.ExportModel()
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(p.paths.Working, LastRunningConfigName), data, 0o644)
}
