// Package cli defines the benchgrid command tree and maps it onto the app
// actions.
package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/cobra"

	"github.com/vk/benchgrid/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// envDefaults are flag defaults taken from BENCHGRID_* environment
// variables, so operators can pin logging and width without repeating flags.
type envDefaults struct {
	LogLevel  string `split_words:"true" default:"info"`
	LogFormat string `split_words:"true" default:"text"`
	Threads   int    `default:"1"`
}

// rootState carries the persistent flag values shared by every subcommand.
type rootState struct {
	outW io.Writer
	errW io.Writer

	logLevel      string
	logFormat     string
	overrides     []string
	configuration string
}

// newApp loads the project named by the positional argument and applies the
// shared override flags.
func (s *rootState) newApp(configPath string) (*app.App, error) {
	logLevel := strings.ToLower(s.logLevel)
	switch logLevel {
	case "debug", "info", "warn", "error":
	default:
		// Exit code 2 is reserved for the interrupt path; a flag typo is an
		// ordinary fatal error.
		return nil, &ExitError{Code: 1, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}
	logFormat := strings.ToLower(s.logFormat)
	if logFormat != "text" && logFormat != "json" {
		return nil, &ExitError{Code: 1, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	a, err := app.New(s.outW, s.errW, &app.Config{
		ConfigPath: configPath,
		LogLevel:   logLevel,
		LogFormat:  logFormat,
	})
	if err != nil {
		return nil, err
	}
	if err := a.ApplyConfigurationFile(s.configuration); err != nil {
		return nil, err
	}
	if err := a.ApplyOverrides(s.overrides); err != nil {
		return nil, err
	}
	return a, nil
}

// New builds the command tree. Program output goes to outW, logs and
// prompts to errW.
func New(outW, errW io.Writer) *cobra.Command {
	var env envDefaults
	if err := envconfig.Process("benchgrid", &env); err != nil {
		// Unparseable environment falls back to the built-in defaults.
		env = envDefaults{LogLevel: "info", LogFormat: "text", Threads: 1}
	}

	state := &rootState{outW: outW, errW: errW}

	root := &cobra.Command{
		Use:           "benchgrid",
		Short:         "Batch executor for parametric benchmark campaigns",
		Long:          "benchgrid expands a configuration's parameter matrix into jobs,\nruns them through a fixed-width worker pool and records durable\nper-job statuses so interrupted campaigns resume where they stopped.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(outW)
	root.SetErr(errW)

	pf := root.PersistentFlags()
	pf.StringVar(&state.logLevel, "log-level", env.LogLevel, "log level: debug, info, warn or error")
	pf.StringVar(&state.logFormat, "log-format", env.LogFormat, "log format: text or json")
	pf.StringArrayVarP(&state.overrides, "override", "o", nil, "alias override as key:value, repeatable")
	pf.StringVarP(&state.configuration, "configuration", "c", "", "file with one key:value override per line")

	root.AddCommand(
		newRunCmd(state, env.Threads),
		newBuildCmd(state),
		newCleanCmd(state),
		newZipCmd(state),
		newFetchCmd(state),
		newShowCmd(state),
	)
	return root
}

// Execute runs the command tree against args and returns the resulting
// error, if any.
func Execute(outW, errW io.Writer, args []string) error {
	root := New(outW, errW)
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			return exitErr
		}
		return fmt.Errorf("benchgrid: %w", err)
	}
	return nil
}
