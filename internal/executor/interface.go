// Package executor provides the Executor interface and registry for task execution.
package executor

import (
	"context"
	"encoding/json"

	actorsv1 "github.com/kination/actorflow/api/v1"
	"github.com/kination/actorflow/pkg/sdk"
)

// Executor defines the interface for executing tasks.
// Different implementations handle different task types and placements
// (in-process, local actor pool, remote actor replicas).
type Executor interface {
	// Type returns the task type(s) this executor handles
	Type() []actorsv1.TaskType

	// Execute runs the call to completion and returns its encoded output
	Execute(ctx context.Context, call *sdk.Call) (json.RawMessage, error)

	// Cleanup releases whatever the executor provisioned
	Cleanup(ctx context.Context) error
}
