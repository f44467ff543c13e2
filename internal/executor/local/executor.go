// Package local provides the executor for function tasks. Each call runs
// in-process with an empty cache scope, so nothing survives between calls.
package local

import (
	"context"
	"encoding/json"
	"fmt"

	ctrl "sigs.k8s.io/controller-runtime"

	actorsv1 "github.com/kination/actorflow/api/v1"
	"github.com/kination/actorflow/pkg/sdk"
)

var log = ctrl.Log.WithName("executor").WithName("local")

// Executor implements the executor.Executor interface for function tasks
type Executor struct{}

// New creates a new local Executor
func New() *Executor {
	return &Executor{}
}

// Type returns the task types this executor handles
func (e *Executor) Type() []actorsv1.TaskType {
	return []actorsv1.TaskType{actorsv1.TaskTypeFunction}
}

// Execute runs the task body in a fresh cache scope
func (e *Executor) Execute(ctx context.Context, call *sdk.Call) (json.RawMessage, error) {
	if call.Definition == nil {
		return nil, fmt.Errorf("task %s has no definition", call.TaskName)
	}
	log.V(1).Info("Executing function task", "run", call.RunID, "node", call.NodeID, "task", call.TaskName)

	scope := sdk.NewCacheScope()
	return call.Definition.Handle(sdk.WithCacheScope(ctx, scope), call.Input)
}

// Cleanup is a no-op; function tasks hold nothing between calls
func (e *Executor) Cleanup(ctx context.Context) error {
	return nil
}
