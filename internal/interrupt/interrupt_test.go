package interrupt

import (
	"context"
	"os/exec"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestRegisterDeregister(t *testing.T) {
	g := NewGuard()

	g.Register(100)
	g.Register(200)
	assert.ElementsMatch(t, []int{100, 200}, g.Children())

	g.Deregister(100)
	assert.Equal(t, []int{200}, g.Children())

	// Unknown pid is a no-op.
	g.Deregister(100)
	assert.Equal(t, []int{200}, g.Children())
}

func TestAborted(t *testing.T) {
	g := NewGuard()
	assert.False(t, g.Aborted())
	g.Abort()
	assert.True(t, g.Aborted())
}

func TestFanOutKillsSnapshotAndSetsAbort(t *testing.T) {
	g := NewGuard()

	var mu sync.Mutex
	var killed []int
	g.kill = func(pid int) error {
		mu.Lock()
		defer mu.Unlock()
		killed = append(killed, pid)
		return nil
	}

	g.Register(11)
	g.Register(22)
	g.Register(33)
	g.Deregister(22)

	g.fanOut(context.Background())

	require.True(t, g.Aborted())
	sort.Ints(killed)
	assert.Equal(t, []int{11, 33}, killed)
}

func TestDefaultKillReachesTheWholeProcessGroup(t *testing.T) {
	g := NewGuard()

	// Runners register group leaders; a compound script's members must not
	// survive the fan-out.
	c := exec.Command("sh", "-c", "sleep 5 | sleep 5")
	c.SysProcAttr = &unix.SysProcAttr{Setpgid: true}
	require.NoError(t, c.Start())
	pid := c.Process.Pid

	done := make(chan struct{})
	go func() {
		_ = c.Wait()
		close(done)
	}()

	require.Eventually(t, func() bool {
		return g.kill(pid) == nil
	}, 2*time.Second, 10*time.Millisecond, "the group should accept the signal once it exists")

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("shell did not die from the group signal")
	}
	assert.Eventually(t, func() bool {
		return unix.Kill(-pid, 0) == unix.ESRCH
	}, 3*time.Second, 10*time.Millisecond, "every pipeline member must be gone")
}

func TestConcurrentRegistration(t *testing.T) {
	g := NewGuard()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(pid int) {
			defer wg.Done()
			g.Register(pid)
			g.Deregister(pid)
		}(i)
	}
	wg.Wait()

	assert.Empty(t, g.Children())
}
