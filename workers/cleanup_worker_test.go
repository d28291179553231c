package workers

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReaper struct {
	mu      sync.Mutex
	calls   int
	maxIdle time.Duration
	reaped  int
}

func (f *fakeReaper) Reap(maxIdle time.Duration) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.maxIdle = maxIdle
	return f.reaped
}

func (f *fakeReaper) Count() int { return 0 }

func TestCleanupWorkerDefaults(t *testing.T) {
	cw := NewCleanupWorker(&fakeReaper{}, CleanupWorkerConfig{})

	assert.Equal(t, 2*time.Hour, cw.config.SessionIdleTTL)
	assert.Equal(t, 5*time.Minute, cw.config.SessionReapInterval)
	require.Len(t, cw.tasks, 1)
	assert.Equal(t, "reap_idle_sessions", cw.tasks[0].Name)
}

func TestCleanupWorkerRunTaskRecordsStats(t *testing.T) {
	reaper := &fakeReaper{reaped: 3}
	cw := NewCleanupWorker(reaper, CleanupWorkerConfig{SessionIdleTTL: time.Minute})

	cw.runTask(cw.tasks[0])
	cw.runTask(cw.tasks[0])

	stats := cw.GetStats()
	assert.Equal(t, int64(2), stats.TasksExecuted)
	assert.Equal(t, int64(0), stats.TasksFailed)
	assert.Equal(t, int64(6), stats.SessionsReaped)
	assert.False(t, cw.tasks[0].LastRun.IsZero())
	assert.Equal(t, time.Minute, reaper.maxIdle)
}

func TestCleanupWorkerStartStop(t *testing.T) {
	reaper := &fakeReaper{}
	cw := NewCleanupWorker(reaper, CleanupWorkerConfig{SessionReapInterval: time.Second})

	require.NoError(t, cw.Start())
	assert.Error(t, cw.Start())

	require.Eventually(t, func() bool {
		reaper.mu.Lock()
		defer reaper.mu.Unlock()
		return reaper.calls > 0
	}, 3*time.Second, 50*time.Millisecond)

	cw.Stop()
	cw.Stop()
	assert.False(t, cw.GetStats().StartTime.IsZero())
}
