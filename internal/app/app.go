// Package app wires the loaded configuration, the logger and the project
// orchestrator together and exposes one method per CLI action.
package app

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/vk/benchgrid/internal/config"
	"github.com/vk/benchgrid/internal/ctxlog"
	"github.com/vk/benchgrid/internal/project"
)

// Config carries the settings every action shares.
type Config struct {
	// ConfigPath points at a .hcl project file or a .zip snapshot.
	ConfigPath string
	LogLevel   string
	LogFormat  string
}

// App is the assembled application: one loaded project plus the writers the
// actions report through.
type App struct {
	cfg         *Config
	logger      *slog.Logger
	outW        io.Writer
	project     *project.Project
	fromArchive bool
}

// New loads and validates the project at cfg.ConfigPath. Program output
// (tables, rendered notes, JSON) goes to outW; log records go to logW.
func New(outW, logW io.Writer, cfg *Config) (*App, error) {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, logW)

	model, fromArchive, err := config.Load(cfg.ConfigPath)
	if err != nil {
		return nil, err
	}
	proj, err := project.New(model, project.DerivePaths(cfg.ConfigPath, model.Versioning))
	if err != nil {
		return nil, err
	}

	logger.Debug("Project loaded.",
		"path", cfg.ConfigPath, "archive", fromArchive, "attempt", proj.Attempt())
	return &App{
		cfg:         cfg,
		logger:      logger,
		outW:        outW,
		project:     proj,
		fromArchive: fromArchive,
	}, nil
}

// Project exposes the orchestrator, mainly for tests.
func (a *App) Project() *project.Project { return a.project }

// context attaches the configured logger so every layer below logs through
// it.
func (a *App) context(ctx context.Context) context.Context {
	return ctxlog.WithLogger(ctx, a.logger)
}

// ApplyOverrides applies key:value shortcut overrides from the command line.
func (a *App) ApplyOverrides(pairs []string) error {
	for _, pair := range pairs {
		key, value, err := parseOverride(pair)
		if err != nil {
			return err
		}
		a.project.Override(key, value)
	}
	return nil
}

// ApplyConfigurationFile applies key:value overrides read line by line from
// a file. Blank lines are skipped. An empty path is a no-op.
func (a *App) ApplyConfigurationFile(path string) error {
	if path == "" {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("cannot open configuration override file %q: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		key, value, err := parseOverride(line)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		a.project.Override(key, value)
	}
	return scanner.Err()
}

func parseOverride(pair string) (string, string, error) {
	key, value, ok := strings.Cut(pair, ":")
	if !ok || strings.TrimSpace(key) == "" {
		return "", "", fmt.Errorf("invalid override %q: expected key:value", pair)
	}
	return strings.TrimSpace(key), value, nil
}
