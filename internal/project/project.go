// Package project implements the campaign orchestrator. It owns the alias
// table, the command definitions, the job matrix and the run-status store,
// and exposes the lifecycle operations (fetch, build, run, clean) used by
// the CLI surface.
package project

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/vk/benchgrid/internal/alias"
	"github.com/vk/benchgrid/internal/config"
	"github.com/vk/benchgrid/internal/interrupt"
	"github.com/vk/benchgrid/internal/status"
	"github.com/vk/benchgrid/internal/summary"
)

// Reserved alias names injected at startup. User configuration and CLI
// overrides applied afterwards win over them.
const (
	AliasProject     = "PROJECT"
	AliasSources     = "SOURCES"
	AliasLogs        = "LOGS"
	AliasSummaryFile = "SUMMARY_FILE"
)

// Paths are the four resolved campaign directories handed to the core.
type Paths struct {
	Working     string `json:"working_directory"`
	Sources     string `json:"source_directory"`
	Logs        string `json:"log_directory"`
	SummaryFile string `json:"summary_file"`
}

// DerivePaths computes the campaign paths from the configuration file
// location. A commit pin suffixes the root so pinned campaigns do not share
// state with unpinned ones.
func DerivePaths(configPath string, versioning *config.Versioning) Paths {
	root := strings.TrimSuffix(configPath, filepath.Ext(configPath))
	if versioning != nil && versioning.Commit != "" {
		commit := versioning.Commit
		if len(commit) > 8 {
			commit = commit[:8]
		}
		root += "-" + commit
	}
	return Paths{
		Working:     root,
		Sources:     filepath.Join(root, "sources"),
		Logs:        filepath.Join(root, "logs"),
		SummaryFile: filepath.Join(root, "summary.tsv"),
	}
}

// Project is the orchestrator for one campaign.
type Project struct {
	cfg     *config.Project
	table   *alias.Table
	paths   Paths
	attempt string

	store     *status.Store
	guard     *interrupt.Guard
	summary   *summary.Writer
	failureRe *regexp.Regexp
}

// New assembles a project: reserved aliases first, then the configuration's
// alias block on top (later writes win; CLI overrides come later still via
// Override).
func New(cfg *config.Project, paths Paths) (*Project, error) {
	attempt, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("cannot generate attempt id: %w", err)
	}

	table := alias.New()
	table.Set(AliasProject, paths.Working)
	table.Set(AliasSources, paths.Sources)
	table.Set(AliasLogs, paths.Logs)
	table.Set(AliasSummaryFile, paths.SummaryFile)
	for key, value := range cfg.Aliases {
		table.Set(key, value)
	}

	p := &Project{
		cfg:     cfg,
		table:   table,
		paths:   paths,
		attempt: attempt.String(),
		store:   status.NewStore(paths.Logs),
		guard:   interrupt.NewGuard(),
	}
	if cfg.Commands.FailureRegex != "" {
		// Pattern syntax is checked at config load; recompiling here keeps
		// the project self-contained.
		re, err := regexp.Compile(cfg.Commands.FailureRegex)
		if err != nil {
			return nil, fmt.Errorf("invalid failure_regex: %w", err)
		}
		p.failureRe = re
	}

	columns := append(p.ParameterColumns(), "status", "elapsed")
	p.summary = summary.NewWriter(paths.SummaryFile, columns)
	return p, nil
}

// Config returns the decoded configuration.
func (p *Project) Config() *config.Project { return p.cfg }

// Paths returns the resolved campaign paths.
func (p *Project) Paths() Paths { return p.paths }

// Guard returns the interrupt guard owned by this campaign.
func (p *Project) Guard() *interrupt.Guard { return p.guard }

// Aliases returns the live alias table.
func (p *Project) Aliases() *alias.Table { return p.table }

// Attempt returns this invocation's attempt id.
func (p *Project) Attempt() string { return p.attempt }

// Statuses returns the run-status store.
func (p *Project) Statuses() *status.Store { return p.store }

// Override applies one key:value shortcut override; last write wins.
func (p *Project) Override(key, value string) {
	p.table.Set(key, value)
}

// MissingOverrides lists required overrides that are still unbound. A
// non-empty result is the pre-flight gate that refuses to run.
func (p *Project) MissingOverrides() []string {
	var missing []string
	for _, key := range p.cfg.Required {
		if !p.table.Has(key) {
			missing = append(missing, key)
		}
	}
	return missing
}

// InitDirs creates the working and log directories.
func (p *Project) InitDirs() error {
	for _, dir := range []string{p.paths.Working, p.paths.Logs} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("cannot create %q: %w", dir, err)
		}
	}
	return nil
}

// logPaths returns the stdout/stderr log files for a job, escaped the same
// way the status store escapes marker names.
func (p *Project) logPaths(jobID string) (string, string) {
	base := filepath.Join(p.paths.Logs, url.PathEscape(jobID))
	return base + ".out.log", base + ".err.log"
}
