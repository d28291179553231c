package workers

import (
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// SessionReaper drops emergency sessions nobody has touched for a while
type SessionReaper interface {
	Reap(maxIdle time.Duration) int
	Count() int
}

type CleanupWorkerConfig struct {
	SessionIdleTTL      time.Duration `json:"sessionIdleTTL"`
	SessionReapInterval time.Duration `json:"sessionReapInterval"`
}

type CleanupTask struct {
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Interval    time.Duration `json:"interval"`
	LastRun     time.Time     `json:"lastRun"`
	Function    func() error  `json:"-"`
}

type CleanupWorkerStats struct {
	TasksExecuted  int64     `json:"tasksExecuted"`
	TasksFailed    int64     `json:"tasksFailed"`
	SessionsReaped int64     `json:"sessionsReaped"`
	LastCleanupAt  time.Time `json:"lastCleanupAt"`
	StartTime      time.Time `json:"startTime"`
}

type CleanupWorker struct {
	sessions SessionReaper
	config   CleanupWorkerConfig
	cron     *cron.Cron

	tasks []*CleanupTask

	mutex     sync.RWMutex
	isRunning bool
	stats     CleanupWorkerStats
}

func NewCleanupWorker(sessions SessionReaper, config CleanupWorkerConfig) *CleanupWorker {
	if config.SessionIdleTTL <= 0 {
		config.SessionIdleTTL = 2 * time.Hour
	}
	if config.SessionReapInterval <= 0 {
		config.SessionReapInterval = 5 * time.Minute
	}

	cw := &CleanupWorker{
		sessions: sessions,
		config:   config,
		cron:     cron.New(cron.WithLocation(time.UTC)),
	}

	cw.tasks = []*CleanupTask{
		{
			Name:        "reap_idle_sessions",
			Description: "Close emergency sessions idle past the TTL",
			Interval:    config.SessionReapInterval,
			Function:    cw.reapIdleSessions,
		},
	}
	return cw
}

// Start registers every task with the scheduler
func (cw *CleanupWorker) Start() error {
	cw.mutex.Lock()
	defer cw.mutex.Unlock()

	if cw.isRunning {
		return fmt.Errorf("cleanup worker is already running")
	}

	for _, task := range cw.tasks {
		task := task
		spec := fmt.Sprintf("@every %s", task.Interval)
		if _, err := cw.cron.AddFunc(spec, func() { cw.runTask(task) }); err != nil {
			return fmt.Errorf("register %s: %w", task.Name, err)
		}
	}

	cw.stats.StartTime = time.Now()
	cw.cron.Start()
	cw.isRunning = true

	logrus.WithFields(logrus.Fields{
		"idle_ttl": cw.config.SessionIdleTTL,
		"interval": cw.config.SessionReapInterval,
	}).Info("🧹 Cleanup worker started")
	return nil
}

// Stop waits for running tasks to finish
func (cw *CleanupWorker) Stop() {
	cw.mutex.Lock()
	if !cw.isRunning {
		cw.mutex.Unlock()
		return
	}
	cw.isRunning = false
	cw.mutex.Unlock()

	<-cw.cron.Stop().Done()
	logrus.Info("Cleanup worker stopped")
}

func (cw *CleanupWorker) GetStats() CleanupWorkerStats {
	cw.mutex.RLock()
	defer cw.mutex.RUnlock()
	return cw.stats
}

func (cw *CleanupWorker) runTask(task *CleanupTask) {
	start := time.Now()
	err := task.Function()

	cw.mutex.Lock()
	task.LastRun = start
	cw.stats.TasksExecuted++
	cw.stats.LastCleanupAt = start
	if err != nil {
		cw.stats.TasksFailed++
	}
	cw.mutex.Unlock()

	if err != nil {
		logrus.WithField("task", task.Name).Errorf("Cleanup task failed: %v", err)
		return
	}
	logrus.WithFields(logrus.Fields{
		"task":     task.Name,
		"duration": time.Since(start),
	}).Debug("Cleanup task completed")
}

func (cw *CleanupWorker) reapIdleSessions() error {
	reaped := cw.sessions.Reap(cw.config.SessionIdleTTL)

	cw.mutex.Lock()
	cw.stats.SessionsReaped += int64(reaped)
	cw.mutex.Unlock()

	if reaped > 0 {
		logrus.WithFields(logrus.Fields{
			"reaped":    reaped,
			"remaining": cw.sessions.Count(),
		}).Info("Idle emergency sessions closed")
	}
	return nil
}
