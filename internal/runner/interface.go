// Package runner provides task execution capabilities.
// Runner is responsible for actually executing admitted task calls using executors.
package runner

import (
	"context"
	"encoding/json"

	actorsv1 "github.com/kination/actorflow/api/v1"
	"github.com/kination/actorflow/pkg/sdk"
)

// Runner defines the interface for task execution.
// It receives task calls and uses executors to run them.
type Runner interface {
	// Run executes a call and returns the result. The result is non-nil
	// whenever the call reached an executor, even if it failed.
	Run(ctx context.Context, call *sdk.Call) (*RunResult, error)
}

// RunResult contains the result of task execution
type RunResult struct {
	// TaskName is the name of the executed task
	TaskName string

	// NodeID is the workflow node the call belongs to
	NodeID string

	// State is the final state of the call
	State actorsv1.TaskState

	// Output is the JSON-encoded task result
	Output json.RawMessage

	// Attempts is how many times the executor was called
	Attempts int

	// Message contains any additional information
	Message string
}

// RunnerConfig holds configuration for the runner
type RunnerConfig struct {
	// MaxRetries is the maximum number of retries for failed tasks
	MaxRetries int

	// RetryBackoff is the backoff duration between retries (in seconds)
	RetryBackoffSeconds int
}

// DefaultRunnerConfig returns the default runner configuration
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		MaxRetries:          0,
		RetryBackoffSeconds: 30,
	}
}
