package runner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	actorsv1 "github.com/kination/actorflow/api/v1"
	"github.com/kination/actorflow/internal/executor"
	"github.com/kination/actorflow/internal/scheduler"
	"github.com/kination/actorflow/pkg/sdk"
)

// flakyExecutor fails the first failures calls with err
type flakyExecutor struct {
	failures int
	err      error
	calls    int
}

func (f *flakyExecutor) Type() []actorsv1.TaskType {
	return []actorsv1.TaskType{actorsv1.TaskTypeFunction}
}

func (f *flakyExecutor) Execute(_ context.Context, call *sdk.Call) (json.RawMessage, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, f.err
	}
	return call.Input, nil
}

func (f *flakyExecutor) Cleanup(context.Context) error { return nil }

func newRunner(exec executor.Executor, cfg RunnerConfig) *DefaultRunner {
	reg := executor.NewRegistry()
	reg.Register(exec)
	return NewRunner(reg, scheduler.NewDefaultScheduler(), cfg)
}

func functionCall(input string) *sdk.Call {
	return &sdk.Call{
		RunID:    "run",
		NodeID:   "n0",
		TaskName: "echo",
		Type:     actorsv1.TaskTypeFunction,
		Input:    json.RawMessage(input),
	}
}

func TestRunner_Success(t *testing.T) {
	before := testutil.ToFloat64(taskRunsTotal.WithLabelValues("Function", "Completed"))

	r := newRunner(&flakyExecutor{}, DefaultRunnerConfig())
	res, err := r.Run(context.Background(), functionCall(`42`))
	require.NoError(t, err)
	require.Equal(t, actorsv1.StateCompleted, res.State)
	require.Equal(t, 1, res.Attempts)
	require.Equal(t, "n0", res.NodeID)
	require.JSONEq(t, `42`, string(res.Output))

	require.Equal(t, before+1, testutil.ToFloat64(taskRunsTotal.WithLabelValues("Function", "Completed")))
}

func TestRunner_RetriesTransientErrors(t *testing.T) {
	exec := &flakyExecutor{failures: 2, err: errors.New("connection reset")}
	r := newRunner(exec, RunnerConfig{MaxRetries: 3, RetryBackoffSeconds: 0})

	res, err := r.Run(context.Background(), functionCall(`1`))
	require.NoError(t, err)
	require.Equal(t, 3, res.Attempts)
	require.Equal(t, 3, exec.calls)
}

func TestRunner_GivesUpAfterMaxRetries(t *testing.T) {
	exec := &flakyExecutor{failures: 10, err: errors.New("boom")}
	r := newRunner(exec, RunnerConfig{MaxRetries: 2})

	res, err := r.Run(context.Background(), functionCall(`1`))
	require.ErrorContains(t, err, "boom")
	require.Equal(t, actorsv1.StateFailed, res.State)
	require.Equal(t, 3, res.Attempts)
	require.Equal(t, "boom", res.Message)
}

func TestRunner_PermanentErrorsAreNotRetried(t *testing.T) {
	for _, sentinel := range []error{sdk.ErrInvalidInput, sdk.ErrNotRegistered, context.Canceled} {
		t.Run(sentinel.Error(), func(t *testing.T) {
			exec := &flakyExecutor{failures: 10, err: fmt.Errorf("wrapped: %w", sentinel)}
			r := newRunner(exec, RunnerConfig{MaxRetries: 5})

			res, err := r.Run(context.Background(), functionCall(`1`))
			require.ErrorIs(t, err, sentinel)
			require.Equal(t, 1, res.Attempts)
		})
	}
}

func TestRunner_NoExecutor(t *testing.T) {
	r := NewDefaultRunner(executor.NewRegistry())
	call := functionCall(`1`)
	call.Type = actorsv1.TaskTypeActor

	res, err := r.Run(context.Background(), call)
	require.Error(t, err)
	require.Nil(t, res)
}

func TestDefaultRunnerConfig(t *testing.T) {
	cfg := DefaultRunnerConfig()
	if cfg.MaxRetries != 0 {
		t.Errorf("expected MaxRetries 0, got %d", cfg.MaxRetries)
	}
	if cfg.RetryBackoffSeconds != 30 {
		t.Errorf("expected RetryBackoffSeconds 30, got %d", cfg.RetryBackoffSeconds)
	}
}
