package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"golang.org/x/sys/unix"

	"github.com/vk/benchgrid/internal/ctxlog"
	"github.com/vk/benchgrid/internal/interrupt"
)

// Class is the outcome classification of an execution cell.
type Class int

const (
	// ClassOk is a clean zero-code termination.
	ClassOk Class = iota
	// ClassError is a nonzero exit or a spawn failure.
	ClassError
	// ClassTimedOut means the wall-clock bound elapsed before the process
	// exited and the process was forcibly reclaimed.
	ClassTimedOut
)

// String implements fmt.Stringer for log output.
func (c Class) String() string {
	switch c {
	case ClassOk:
		return "ok"
	case ClassError:
		return "error"
	case ClassTimedOut:
		return "timed_out"
	default:
		return "unknown"
	}
}

// Result is the classified outcome of a shell execution. For ClassTimedOut,
// Elapsed is the timeout bound itself.
type Result struct {
	Class   Class
	Elapsed time.Duration
}

// RunDirect spawns the command synchronously with inherited stdio and blocks
// until exit. Any outcome other than a clean zero-code termination is
// returned as an error: build and clean failures are fatal to the whole
// invocation, never retried.
func RunDirect(ctx context.Context, dir string, cmd Direct) error {
	logger := ctxlog.FromContext(ctx)
	logger.Info("$ " + cmd.String())

	c := exec.Command(cmd.Executable, cmd.Args...)
	c.Dir = dir
	c.Stdin = os.Stdin
	c.Stdout = os.Stdout
	c.Stderr = os.Stderr
	if err := c.Run(); err != nil {
		return fmt.Errorf("command %q failed: %w", cmd.String(), err)
	}
	return nil
}

// RunShell executes the script through `sh -c` with stdout and stderr
// attached to the caller-supplied writers (normally the job's log files).
// The shell leads its own process group, and the group leader pid is
// registered with the guard for the duration of the run so a global
// interrupt can reach the whole script; deregistration happens on every
// exit path.
//
// With timeout <= 0 the call blocks until the process exits. With a positive
// timeout, expiry forcibly kills the process and waits for the OS to reap it
// before returning, so no zombie survives either path. A spawn failure is
// classified as an error with the message captured to stderr rather than
// aborting the pool.
func RunShell(ctx context.Context, guard *interrupt.Guard, dir string, cmd Shell, stdout, stderr io.Writer, timeout time.Duration) Result {
	logger := ctxlog.FromContext(ctx)
	logger.Info("$ " + cmd.String())

	c := exec.Command("sh", "-c", cmd.Script)
	c.Dir = dir
	c.Stdout = stdout
	c.Stderr = stderr
	// The shell leads a fresh process group so that kills reach every
	// process a compound script spawns, not just the sh wrapper.
	c.SysProcAttr = &unix.SysProcAttr{Setpgid: true}

	start := time.Now()
	if err := c.Start(); err != nil {
		fmt.Fprintf(stderr, "cannot execute %q: %v\n", cmd.Script, err)
		logger.Error("Spawn failed.", "command", cmd.Script, "error", err)
		return Result{Class: ClassError, Elapsed: time.Since(start)}
	}

	pid := c.Process.Pid
	guard.Register(pid)
	defer guard.Deregister(pid)

	done := make(chan error, 1)
	go func() { done <- c.Wait() }()

	if timeout <= 0 {
		return classify(stderr, <-done, time.Since(start))
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		return classify(stderr, err, time.Since(start))
	case <-timer.C:
		// Kill the whole process group, then wait for the reap; Wait is the
		// single reaper on every path, so a successful-but-racing exit
		// cannot leave a zombie, and pipeline members cannot outlive the
		// shell or hold the output pipes open.
		_ = unix.Kill(-pid, unix.SIGKILL)
		<-done
		return Result{Class: ClassTimedOut, Elapsed: timeout}
	}
}

// classify maps a Wait error onto an outcome class.
func classify(stderr io.Writer, err error, elapsed time.Duration) Result {
	if err == nil {
		return Result{Class: ClassOk, Elapsed: elapsed}
	}
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		// Wait-level failure rather than a nonzero exit; keep the message
		// with the job's output.
		fmt.Fprintf(stderr, "wait failed: %v\n", err)
	}
	return Result{Class: ClassError, Elapsed: elapsed}
}
