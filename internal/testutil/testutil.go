// Package testutil holds small helpers shared by the app and cli tests.
package testutil

import (
	"bytes"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// SafeBuffer is a thread-safe buffer for capturing log output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

// Write implements the io.Writer interface for SafeBuffer.
func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

// String implements the fmt.Stringer interface for SafeBuffer.
func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// WriteProject writes an HCL project configuration into a fresh temp
// directory and returns the configuration path.
func WriteProject(t *testing.T, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bench.hcl")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return path
}
