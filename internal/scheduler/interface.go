// Package scheduler provides admission control for task calls.
// Workflows issue calls one at a time, but many workflow runs can share an
// engine; the scheduler bounds how many calls execute at once.
package scheduler

import (
	"context"
)

// Policy defines the scheduling policy type
type Policy string

const (
	// PolicyFIFO admits waiting calls in arrival order
	PolicyFIFO Policy = "FIFO"
)

// TaskInfo contains task information for scheduling decisions
type TaskInfo struct {
	RunID    string
	NodeID   string
	TaskName string
	Env      string // Empty for function tasks
}

// Scheduler defines the interface for task admission.
type Scheduler interface {
	// Name returns the scheduler name
	Name() string

	// Policy returns the scheduling policy
	Policy() Policy

	// Admit blocks until the task may run. The returned release must be called
	// exactly once when the task finishes.
	Admit(ctx context.Context, task *TaskInfo) (release func(), err error)
}

// SchedulerConfig holds common configuration for schedulers
type SchedulerConfig struct {
	Policy         Policy
	MaxActiveTasks int32
}

// DefaultSchedulerConfig returns the default scheduler configuration
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Policy:         PolicyFIFO,
		MaxActiveTasks: 10,
	}
}
