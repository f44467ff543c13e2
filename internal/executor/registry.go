package executor

import (
	"context"
	"errors"
	"fmt"
	"sync"

	actorsv1 "github.com/kination/actorflow/api/v1"
)

// Registry manages executor registration and lookup
type Registry struct {
	mu        sync.RWMutex
	executors map[actorsv1.TaskType]Executor
}

// NewRegistry creates a new executor registry
func NewRegistry() *Registry {
	return &Registry{
		executors: make(map[actorsv1.TaskType]Executor),
	}
}

// Register adds an executor to the registry
func (r *Registry) Register(exec Executor) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, taskType := range exec.Type() {
		r.executors[taskType] = exec
	}
}

// Get retrieves an executor for the given task type
func (r *Registry) Get(taskType actorsv1.TaskType) (Executor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	exec, ok := r.executors[taskType]
	if !ok {
		return nil, fmt.Errorf("no executor registered for task type: %s", taskType)
	}
	return exec, nil
}

// Has checks if an executor is registered for the given task type
func (r *Registry) Has(taskType actorsv1.TaskType) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.executors[taskType]
	return ok
}

// Types returns all registered task types
func (r *Registry) Types() []actorsv1.TaskType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]actorsv1.TaskType, 0, len(r.executors))
	for t := range r.executors {
		types = append(types, t)
	}
	return types
}

// Cleanup calls Cleanup once on every distinct registered executor
func (r *Registry) Cleanup(ctx context.Context) error {
	r.mu.RLock()
	seen := make(map[Executor]bool)
	for _, exec := range r.executors {
		seen[exec] = true
	}
	r.mu.RUnlock()

	var errs []error
	for exec := range seen {
		if err := exec.Cleanup(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
