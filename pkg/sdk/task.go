package sdk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	actorsv1 "github.com/kination/actorflow/api/v1"
)

// ErrInvalidInput is returned when a task payload cannot be decoded
var ErrInvalidInput = errors.New("invalid task input")

// TaskDefinition is the untyped view of a task used by registries and executors.
type TaskDefinition interface {
	Name() string
	Type() actorsv1.TaskType
	// Env is the actor environment the task runs on, nil for function tasks
	Env() *ActorEnvironment
	// Handle decodes input, runs the task body, and encodes its output
	Handle(ctx context.Context, input []byte) ([]byte, error)
}

// Task is a typed unit of work.
type Task[In, Out any] struct {
	name string
	env  *ActorEnvironment
	fn   func(context.Context, In) (Out, error)
}

// NewTask declares a function task. Each call runs in a fresh environment.
func NewTask[In, Out any](name string, fn func(context.Context, In) (Out, error)) *Task[In, Out] {
	return &Task[In, Out]{name: name, fn: fn}
}

// ActorTask declares a task that runs on the replicas of env.
func ActorTask[In, Out any](env *ActorEnvironment, name string, fn func(context.Context, In) (Out, error)) *Task[In, Out] {
	return &Task[In, Out]{name: name, env: env, fn: fn}
}

func (t *Task[In, Out]) Name() string { return t.name }

func (t *Task[In, Out]) Env() *ActorEnvironment { return t.env }

func (t *Task[In, Out]) Type() actorsv1.TaskType {
	if t.env != nil {
		return actorsv1.TaskTypeActor
	}
	return actorsv1.TaskTypeFunction
}

// Handle implements TaskDefinition
func (t *Task[In, Out]) Handle(ctx context.Context, input []byte) ([]byte, error) {
	var in In
	if err := json.Unmarshal(input, &in); err != nil {
		return nil, fmt.Errorf("%w for %s: %v", ErrInvalidInput, t.name, err)
	}
	out, err := t.fn(ctx, in)
	if err != nil {
		return nil, err
	}
	return json.Marshal(out)
}

// Call invokes the task from inside a workflow and blocks for its result.
func (t *Task[In, Out]) Call(wc *Context, in In) (Out, error) {
	var out Out
	payload, err := json.Marshal(in)
	if err != nil {
		return out, fmt.Errorf("encode input for %s: %w", t.name, err)
	}
	result, err := wc.invoke(t, payload)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(result, &out); err != nil {
		return out, fmt.Errorf("decode output of %s: %w", t.name, err)
	}
	return out, nil
}
