package scheduler

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
	ctrl "sigs.k8s.io/controller-runtime"
)

var log = ctrl.Log.WithName("scheduler")

// DefaultScheduler implements the Scheduler interface with a weighted semaphore.
// The semaphore wakes waiters in arrival order, which gives FIFO admission.
type DefaultScheduler struct {
	config SchedulerConfig
	slots  *semaphore.Weighted

	mu                sync.RWMutex
	activeTasksPerRun map[string]int
	totalActiveTasks  int
}

// NewScheduler creates a new DefaultScheduler with the given configuration
func NewScheduler(config SchedulerConfig) *DefaultScheduler {
	if config.MaxActiveTasks <= 0 {
		config.MaxActiveTasks = DefaultSchedulerConfig().MaxActiveTasks
	}
	if config.Policy == "" {
		config.Policy = PolicyFIFO
	}
	return &DefaultScheduler{
		config:            config,
		slots:             semaphore.NewWeighted(int64(config.MaxActiveTasks)),
		activeTasksPerRun: make(map[string]int),
	}
}

// NewDefaultScheduler creates a scheduler with default configuration
func NewDefaultScheduler() *DefaultScheduler {
	return NewScheduler(DefaultSchedulerConfig())
}

// Name returns the scheduler name
func (s *DefaultScheduler) Name() string {
	return "default-scheduler"
}

// Policy returns the scheduling policy
func (s *DefaultScheduler) Policy() Policy {
	return s.config.Policy
}

// Config returns the scheduler configuration
func (s *DefaultScheduler) Config() SchedulerConfig {
	return s.config
}

// Admit waits for a free slot
func (s *DefaultScheduler) Admit(ctx context.Context, task *TaskInfo) (func(), error) {
	if !s.slots.TryAcquire(1) {
		log.V(1).Info("Waiting for a task slot", "run", task.RunID, "task", task.TaskName,
			"active", s.GetActiveTaskCount())
		if err := s.slots.Acquire(ctx, 1); err != nil {
			return nil, err
		}
	}
	s.notifyTaskStarted(task.RunID)

	var once sync.Once
	return func() {
		once.Do(func() {
			s.notifyTaskCompleted(task.RunID)
			s.slots.Release(1)
		})
	}, nil
}

func (s *DefaultScheduler) notifyTaskStarted(runID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.activeTasksPerRun[runID]++
	s.totalActiveTasks++
}

func (s *DefaultScheduler) notifyTaskCompleted(runID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.activeTasksPerRun[runID] > 0 {
		s.activeTasksPerRun[runID]--
	}
	if s.totalActiveTasks > 0 {
		s.totalActiveTasks--
	}

	if s.activeTasksPerRun[runID] == 0 {
		delete(s.activeTasksPerRun, runID)
	}
}

// GetActiveTaskCount returns the number of currently active tasks
func (s *DefaultScheduler) GetActiveTaskCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.totalActiveTasks
}

// GetActiveRunCount returns the number of workflow runs with an active task
func (s *DefaultScheduler) GetActiveRunCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.activeTasksPerRun)
}
