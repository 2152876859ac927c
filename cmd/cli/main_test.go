package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRun_Help(t *testing.T) {
	t.Parallel()

	out := &bytes.Buffer{}
	errW := &bytes.Buffer{}

	err := run(out, errW, []string{"--help"})

	require.NoError(t, err, "run() should return a nil error for --help")
	require.Contains(t, out.String(), "Usage:", "expected help text on the output buffer")
}

func TestRun_UnknownFlag(t *testing.T) {
	t.Parallel()

	err := run(&bytes.Buffer{}, &bytes.Buffer{}, []string{"run", "--this-is-not-a-valid-flag", "x.hcl"})

	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown flag")
}

func TestRun_BrokenConfiguration(t *testing.T) {
	t.Parallel()

	filePath := filepath.Join(t.TempDir(), "main.hcl")
	require.NoError(t, os.WriteFile(filePath, []byte("version = \"0.6.2\"\ncommands {\n"), 0o600))

	err := run(&bytes.Buffer{}, &bytes.Buffer{}, []string{"show", "json", filePath})
	require.Error(t, err, "a truncated configuration must fail to load")
}
