// Package limits applies the project's process resource limits before any
// job is scheduled. Children inherit them across fork/exec.
package limits

import (
	"context"
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/vk/benchgrid/internal/config"
	"github.com/vk/benchgrid/internal/ctxlog"
)

// setrlimit is swapped out in tests; changing real process limits inside the
// test binary would leak into sibling tests.
var setrlimit = unix.Setrlimit

// Apply sets the configured rlimits on the current process. Zero-valued
// fields leave the inherited limit untouched.
func Apply(ctx context.Context, l *config.Limits) error {
	if l == nil {
		return nil
	}
	logger := ctxlog.FromContext(ctx)

	set := func(resource int, name string, value uint64) error {
		if value == 0 {
			return nil
		}
		logger.Debug("Applying resource limit.", "limit", name, "value", value)
		if err := setrlimit(resource, &unix.Rlimit{Cur: value, Max: value}); err != nil {
			return fmt.Errorf("cannot set %s limit to %d: %w", name, value, err)
		}
		return nil
	}

	if err := set(unix.RLIMIT_NOFILE, "open_files", l.OpenFiles); err != nil {
		return err
	}
	if err := set(unix.RLIMIT_CPU, "cpu_seconds", l.CPUSeconds); err != nil {
		return err
	}
	return set(unix.RLIMIT_AS, "address_space_mb", l.AddressSpaceMB*1024*1024)
}
