package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	ctrl "sigs.k8s.io/controller-runtime"

	actorsv1 "github.com/kination/actorflow/api/v1"
	"github.com/kination/actorflow/internal/executor"
	"github.com/kination/actorflow/internal/scheduler"
	"github.com/kination/actorflow/pkg/sdk"
)

var log = ctrl.Log.WithName("runner")

// DefaultRunner implements the Runner interface using the executor registry.
type DefaultRunner struct {
	executorRegistry *executor.Registry
	scheduler        scheduler.Scheduler
	config           RunnerConfig
}

// NewRunner creates a new DefaultRunner with the given executor registry.
// A nil scheduler admits every call immediately.
func NewRunner(registry *executor.Registry, sched scheduler.Scheduler, config RunnerConfig) *DefaultRunner {
	return &DefaultRunner{
		executorRegistry: registry,
		scheduler:        sched,
		config:           config,
	}
}

// NewDefaultRunner creates a runner with default configuration
func NewDefaultRunner(registry *executor.Registry) *DefaultRunner {
	return NewRunner(registry, scheduler.NewDefaultScheduler(), DefaultRunnerConfig())
}

// Run executes a call using the appropriate executor
func (r *DefaultRunner) Run(ctx context.Context, call *sdk.Call) (*RunResult, error) {
	// Get the executor for this task type
	exec, err := r.executorRegistry.Get(call.Type)
	if err != nil {
		return nil, fmt.Errorf("no executor found for task type %s: %w", call.Type, err)
	}

	if r.scheduler != nil {
		release, err := r.scheduler.Admit(ctx, &scheduler.TaskInfo{
			RunID:    call.RunID,
			NodeID:   call.NodeID,
			TaskName: call.TaskName,
			Env:      envName(call),
		})
		if err != nil {
			return nil, fmt.Errorf("task %s not admitted: %w", call.TaskName, err)
		}
		defer release()
	}

	log.Info("Running task", "run", call.RunID, "node", call.NodeID, "task", call.TaskName, "type", call.Type)

	result := &RunResult{TaskName: call.TaskName, NodeID: call.NodeID}
	start := time.Now()

	err = backoff.Retry(func() error {
		result.Attempts++
		out, err := exec.Execute(ctx, call)
		if err != nil {
			if isPermanent(ctx, err) {
				return backoff.Permanent(err)
			}
			log.Info("Task attempt failed", "task", call.TaskName, "attempt", result.Attempts, "error", err.Error())
			return err
		}
		result.Output = out
		return nil
	}, backoff.WithContext(r.retryPolicy(), ctx))

	taskDuration.WithLabelValues(string(call.Type)).Observe(time.Since(start).Seconds())
	if result.Attempts > 1 {
		taskRetriesTotal.WithLabelValues(string(call.Type)).Add(float64(result.Attempts - 1))
	}

	if err != nil {
		result.State = actorsv1.StateFailed
		result.Message = err.Error()
		taskRunsTotal.WithLabelValues(string(call.Type), string(result.State)).Inc()
		return result, err
	}

	result.State = actorsv1.StateCompleted
	result.Message = "Task completed"
	taskRunsTotal.WithLabelValues(string(call.Type), string(result.State)).Inc()
	return result, nil
}

func (r *DefaultRunner) retryPolicy() backoff.BackOff {
	var b backoff.BackOff = &backoff.ZeroBackOff{}
	if r.config.RetryBackoffSeconds > 0 {
		exp := backoff.NewExponentialBackOff()
		exp.InitialInterval = time.Duration(r.config.RetryBackoffSeconds) * time.Second
		exp.MaxElapsedTime = 0
		b = exp
	}
	return backoff.WithMaxRetries(b, uint64(max(r.config.MaxRetries, 0)))
}

// isPermanent reports errors that a retry cannot fix
func isPermanent(ctx context.Context, err error) bool {
	return ctx.Err() != nil ||
		errors.Is(err, sdk.ErrInvalidInput) ||
		errors.Is(err, sdk.ErrNotRegistered) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

func envName(call *sdk.Call) string {
	if call.Env == nil {
		return ""
	}
	return call.Env.Name()
}

// Config returns the runner configuration
func (r *DefaultRunner) Config() RunnerConfig {
	return r.config
}

// ExecutorRegistry returns the executor registry
func (r *DefaultRunner) ExecutorRegistry() *executor.Registry {
	return r.executorRegistry
}
