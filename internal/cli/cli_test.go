package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/benchgrid/internal/testutil"
)

const cliProjectSrc = `
version = "0.6.2"

aliases = {
  CMD = "echo"
}

commands {
  build   = "true"
  execute = "{CMD} {x}"
  clean   = "true"
}

matrix {
  dimension "x" {
    values = ["1", "2"]
  }
}
`

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, errW bytes.Buffer
	err := Execute(&out, &errW, args)
	return out.String(), errW.String(), err
}

func TestRunCommand(t *testing.T) {
	path := testutil.WriteProject(t, cliProjectSrc)

	_, logs, err := execute(t, "run", path, "--threads", "2")
	require.NoError(t, err)
	assert.Contains(t, logs, "Campaign run finished.")

	summary, err := os.ReadFile(filepath.Join(
		filepath.Dir(path), "bench", "summary.tsv"))
	require.NoError(t, err)
	assert.Contains(t, string(summary), "ok")
}

func TestRunCommandRequiresConfigArgument(t *testing.T) {
	_, _, err := execute(t, "run")
	assert.Error(t, err)
}

func TestInvalidLogLevelIsAnExitError(t *testing.T) {
	path := testutil.WriteProject(t, cliProjectSrc)

	_, _, err := execute(t, "run", path, "--log-level", "loud")
	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	// Code 2 is reserved for interrupted campaigns.
	assert.Equal(t, 1, exitErr.Code)
}

func TestInvalidLogFormatIsAnExitError(t *testing.T) {
	path := testutil.WriteProject(t, cliProjectSrc)

	_, _, err := execute(t, "show", "json", path, "--log-format", "xml")
	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 1, exitErr.Code)
}

func TestOverridesReachTheAliasTable(t *testing.T) {
	src := `
version  = "0.6.2"
required = ["SEED"]

commands {
  build   = "true"
  execute = "echo {SEED} {x}"
}

matrix {
  dimension "x" {
    values = ["1"]
  }
}
`
	path := testutil.WriteProject(t, src)

	// Without the override the pre-flight gate refuses to run.
	_, _, err := execute(t, "run", path)
	require.ErrorContains(t, err, "missing required overrides")

	_, _, err = execute(t, "run", path, "-o", "SEED:42")
	assert.NoError(t, err)
}

func TestConfigurationFileFlag(t *testing.T) {
	src := `
version  = "0.6.2"
required = ["SEED"]

commands {
  build   = "true"
  execute = "echo {SEED}"
}

job "only" {
  parameters = { x = "1" }
}
`
	path := testutil.WriteProject(t, src)
	overrides := filepath.Join(t.TempDir(), "overrides.conf")
	require.NoError(t, os.WriteFile(overrides, []byte("SEED:7\n"), 0o644))

	_, _, err := execute(t, "run", path, "-c", overrides)
	assert.NoError(t, err)
}

func TestShowJSONCommand(t *testing.T) {
	path := testutil.WriteProject(t, cliProjectSrc)

	out, _, err := execute(t, "show", "json", path)
	require.NoError(t, err)

	var export map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &export))
	assert.Equal(t, "0.6.2", export["version"])
}

func TestShowSummarySorted(t *testing.T) {
	path := testutil.WriteProject(t, cliProjectSrc)
	_, _, err := execute(t, "run", path)
	require.NoError(t, err)

	out, _, err := execute(t, "show", "summary", path, "--sort", "~x")
	require.NoError(t, err)
	assert.Contains(t, out, "x")
	assert.Contains(t, out, "ok")
}

func TestCleanNoBackup(t *testing.T) {
	path := testutil.WriteProject(t, cliProjectSrc)
	_, _, err := execute(t, "run", path)
	require.NoError(t, err)

	_, _, err = execute(t, "clean", path, "--no-backup")
	require.NoError(t, err)

	backup := filepath.Join(filepath.Dir(path), "bench.backup.zip")
	_, statErr := os.Stat(backup)
	assert.True(t, os.IsNotExist(statErr), "no backup should be written with --no-backup")
}

func TestCleanYesWritesBackup(t *testing.T) {
	path := testutil.WriteProject(t, cliProjectSrc)
	_, _, err := execute(t, "run", path)
	require.NoError(t, err)

	_, _, err = execute(t, "clean", path, "--yes")
	require.NoError(t, err)

	backup := filepath.Join(filepath.Dir(path), "bench.backup.zip")
	_, statErr := os.Stat(backup)
	assert.NoError(t, statErr)
}

func TestThreadsDefaultFromEnvironment(t *testing.T) {
	t.Setenv("BENCHGRID_THREADS", "7")

	root := New(&bytes.Buffer{}, &bytes.Buffer{})
	runCmd, _, err := root.Find([]string{"run"})
	require.NoError(t, err)
	assert.Equal(t, "7", runCmd.Flags().Lookup("threads").DefValue)
}

func TestZipCommand(t *testing.T) {
	path := testutil.WriteProject(t, cliProjectSrc)
	_, _, err := execute(t, "run", path)
	require.NoError(t, err)

	_, _, err = execute(t, "zip", path)
	require.NoError(t, err)

	_, statErr := os.Stat(filepath.Join(filepath.Dir(path), "bench.zip"))
	assert.NoError(t, statErr)
}
