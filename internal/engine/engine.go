// Package engine executes registered workflows. It acts as the workflow's
// invoker: every task call is passed to the runner and recorded in the store
// together with the final outcome of the run.
package engine

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"k8s.io/utils/clock"
	ctrl "sigs.k8s.io/controller-runtime"

	actorsv1 "github.com/kination/actorflow/api/v1"
	"github.com/kination/actorflow/internal/runner"
	"github.com/kination/actorflow/internal/store"
	"github.com/kination/actorflow/pkg/sdk"
)

// Execution modes recorded on runs
const (
	ModeLocal  = "local"
	ModeRemote = "remote"
)

// Config holds the engine dependencies
type Config struct {
	Registry *sdk.Registry
	Runner   runner.Runner
	Store    store.Store
	Mode     string
	Clock    clock.PassiveClock
	// Log defaults to the controller-runtime logger named "engine"
	Log logr.Logger
}

// Engine runs workflows from a registry
type Engine struct {
	registry *sdk.Registry
	runner   runner.Runner
	store    store.Store
	mode     string
	clock    clock.PassiveClock
	log      logr.Logger
}

// New creates an Engine
func New(cfg Config) *Engine {
	if cfg.Mode == "" {
		cfg.Mode = ModeLocal
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.RealClock{}
	}
	if cfg.Log.GetSink() == nil {
		cfg.Log = ctrl.Log.WithName("engine")
	}
	return &Engine{
		registry: cfg.Registry,
		runner:   cfg.Runner,
		store:    cfg.Store,
		mode:     cfg.Mode,
		clock:    cfg.Clock,
		log:      cfg.Log,
	}
}

// Run executes the named workflow to completion and returns the recorded run.
// The run is returned alongside the error when the workflow fails.
func (e *Engine) Run(ctx context.Context, workflow string) (*store.WorkflowRun, error) {
	wf, err := e.registry.Workflow(workflow)
	if err != nil {
		return nil, err
	}

	run := &store.WorkflowRun{
		RunID:     uuid.NewString(),
		Workflow:  wf.Name(),
		Mode:      e.mode,
		StartTime: e.clock.Now(),
		State:     actorsv1.StateRunning,
	}
	if err := e.store.SaveRun(ctx, run); err != nil {
		return nil, fmt.Errorf("record run of %s: %w", workflow, err)
	}
	e.log.Info("Starting workflow", "workflow", run.Workflow, "run", run.RunID, "mode", run.Mode)

	result, runErr := wf.Execute(ctx, e, run.RunID)

	end := e.clock.Now()
	run.EndTime = &end
	if runErr != nil {
		run.State = actorsv1.StateFailed
		run.Message = runErr.Error()
		e.log.Error(runErr, "Workflow failed", "workflow", run.Workflow, "run", run.RunID)
	} else {
		run.State = actorsv1.StateCompleted
		run.Result = result
		e.log.Info("Workflow completed", "workflow", run.Workflow, "run", run.RunID, "duration", end.Sub(run.StartTime))
	}

	// The run outlives a canceled ctx; record its outcome regardless
	if err := e.store.SaveRun(context.WithoutCancel(ctx), run); err != nil {
		e.log.Error(err, "Failed to record run outcome", "run", run.RunID)
	}
	if recorded, err := e.store.GetRun(context.WithoutCancel(ctx), run.RunID); err == nil {
		run = recorded
	}
	return run, runErr
}

// Invoke implements sdk.Invoker
func (e *Engine) Invoke(ctx context.Context, call *sdk.Call) (json.RawMessage, error) {
	task := &store.TaskRun{
		NodeID:    call.NodeID,
		TaskName:  call.TaskName,
		Upstream:  call.Upstream,
		State:     actorsv1.StateRunning,
		StartTime: e.clock.Now(),
		Input:     call.Input,
	}
	if call.Env != nil {
		task.Env = call.Env.Name()
	}
	e.recordTask(ctx, call.RunID, task)

	res, err := e.runner.Run(ctx, call)

	end := e.clock.Now()
	task.EndTime = &end
	if res != nil {
		task.Attempts = res.Attempts
		task.Output = res.Output
		task.Message = res.Message
	}
	if err != nil {
		task.State = actorsv1.StateFailed
		task.Message = err.Error()
		e.recordTask(ctx, call.RunID, task)
		return nil, err
	}
	task.State = actorsv1.StateCompleted
	e.recordTask(ctx, call.RunID, task)
	return res.Output, nil
}

func (e *Engine) recordTask(ctx context.Context, runID string, task *store.TaskRun) {
	if err := e.store.SaveTaskRun(context.WithoutCancel(ctx), runID, task); err != nil {
		e.log.Error(err, "Failed to record task run", "run", runID, "node", task.NodeID)
	}
}
