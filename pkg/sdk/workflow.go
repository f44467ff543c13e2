package sdk

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	actorsv1 "github.com/kination/actorflow/api/v1"
)

// Call is a single task invocation issued by a workflow
type Call struct {
	RunID    string
	NodeID   string
	TaskName string
	Type     actorsv1.TaskType
	Env      *ActorEnvironment
	Input    json.RawMessage
	// Upstream holds the node whose result this call waited for
	Upstream []string

	Definition TaskDefinition `json:"-"`
}

// Invoker executes task calls on behalf of a workflow
type Invoker interface {
	Invoke(ctx context.Context, call *Call) (json.RawMessage, error)
}

// InvokerFunc adapts a function to Invoker
type InvokerFunc func(ctx context.Context, call *Call) (json.RawMessage, error)

func (f InvokerFunc) Invoke(ctx context.Context, call *Call) (json.RawMessage, error) {
	return f(ctx, call)
}

// Context is passed to workflow bodies. Task calls made through it form a linear chain:
// each call waits for the previous one and records it as upstream.
type Context struct {
	ctx     context.Context
	invoker Invoker
	runID   string

	mu    sync.Mutex
	nodes int
	last  string
}

// NewContext builds a workflow context. Engines use it; workflow authors receive one.
func NewContext(ctx context.Context, invoker Invoker, runID string) *Context {
	return &Context{ctx: ctx, invoker: invoker, runID: runID}
}

// Context returns the underlying context.Context
func (c *Context) Context() context.Context { return c.ctx }

// RunID returns the id of the workflow run
func (c *Context) RunID() string { return c.runID }

func (c *Context) invoke(def TaskDefinition, input []byte) (json.RawMessage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	call := &Call{
		RunID:      c.runID,
		NodeID:     fmt.Sprintf("n%d", c.nodes),
		TaskName:   def.Name(),
		Type:       def.Type(),
		Env:        def.Env(),
		Input:      input,
		Definition: def,
	}
	if c.last != "" {
		call.Upstream = []string{c.last}
	}
	c.nodes++
	c.last = call.NodeID

	out, err := c.invoker.Invoke(c.ctx, call)
	if err != nil {
		return nil, fmt.Errorf("node %s (%s): %w", call.NodeID, call.TaskName, err)
	}
	return out, nil
}

// WorkflowDefinition is the untyped view of a workflow
type WorkflowDefinition interface {
	Name() string
	Execute(ctx context.Context, invoker Invoker, runID string) (json.RawMessage, error)
}

// Workflow sequences task calls and returns a result
type Workflow[Out any] struct {
	name string
	fn   func(*Context) (Out, error)
}

// NewWorkflow declares a workflow
func NewWorkflow[Out any](name string, fn func(*Context) (Out, error)) *Workflow[Out] {
	return &Workflow[Out]{name: name, fn: fn}
}

func (w *Workflow[Out]) Name() string { return w.name }

// Run executes the workflow and returns its typed result
func (w *Workflow[Out]) Run(ctx context.Context, invoker Invoker, runID string) (Out, error) {
	return w.fn(NewContext(ctx, invoker, runID))
}

// Execute implements WorkflowDefinition
func (w *Workflow[Out]) Execute(ctx context.Context, invoker Invoker, runID string) (json.RawMessage, error) {
	out, err := w.Run(ctx, invoker, runID)
	if err != nil {
		return nil, err
	}
	return json.Marshal(out)
}
