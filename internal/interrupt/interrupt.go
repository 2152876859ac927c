// Package interrupt owns the process-wide abort flag and the registry of
// live child process ids. The SIGINT handler flips the flag, fans the signal
// out to every registered child, and terminates the whole program; the
// status store is what makes the aborted campaign resumable afterwards.
package interrupt

import (
	"context"
	"os"
	"os/signal"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/vk/benchgrid/internal/ctxlog"
)

// ExitCodeInterrupted is the distinguished exit code for the signal path.
const ExitCodeInterrupted = 2

// Guard is the shared interrupt state, injected into the scheduler and the
// process runner rather than living as ambient globals. The mutex protects
// the flag and the child set; it is never held across a kill syscall.
type Guard struct {
	mu       sync.Mutex
	aborted  bool
	children map[int]struct{}

	// Overridable for tests.
	exit func(code int)
	kill func(pid int) error
}

// NewGuard returns a guard with no registered children. Registered pids are
// process-group leaders, so the fan-out signals the negated pid and reaches
// everything a compound script spawned.
func NewGuard() *Guard {
	return &Guard{
		children: make(map[int]struct{}),
		exit:     os.Exit,
		kill:     func(pid int) error { return unix.Kill(-pid, unix.SIGINT) },
	}
}

// Register adds a live child pid to the kill fan-out set. It must be paired
// with Deregister on every exit path of the spawned process.
func (g *Guard) Register(pid int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.children[pid] = struct{}{}
}

// Deregister removes a child pid. Removing an unknown pid is a no-op.
func (g *Guard) Deregister(pid int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.children, pid)
}

// Abort marks the process as shutting down. The flag is consulted by the
// scheduler between job dispatches; it never interrupts an in-flight job.
func (g *Guard) Abort() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.aborted = true
}

// Aborted reports whether an abort has been observed.
func (g *Guard) Aborted() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.aborted
}

// Children returns a snapshot of the registered pids.
func (g *Guard) Children() []int {
	g.mu.Lock()
	defer g.mu.Unlock()
	pids := make([]int, 0, len(g.children))
	for pid := range g.children {
		pids = append(pids, pid)
	}
	return pids
}

// Install hooks the interactive interrupt signal. On delivery the guard
// aborts, sends SIGINT to every registered child, and exits the program
// with ExitCodeInterrupted. There is no graceful join: in-flight jobs keep
// their InProgress markers for a future resumed run to re-admit.
func (g *Guard) Install(ctx context.Context) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt)
	go func() {
		<-ch
		g.fanOut(ctx)
		g.exit(ExitCodeInterrupted)
	}()
}

// fanOut flips the abort flag and kills every registered child. The pid
// snapshot is taken under the lock; the kills happen outside it.
func (g *Guard) fanOut(ctx context.Context) {
	logger := ctxlog.FromContext(ctx)
	g.Abort()
	for _, pid := range g.Children() {
		logger.Warn("Interrupted, killing child process.", "pid", pid)
		if err := g.kill(pid); err != nil {
			// Already-gone children are expected here.
			logger.Debug("Kill failed.", "pid", pid, "error", err)
		}
	}
}
