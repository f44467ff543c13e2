package sdk

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrNotRegistered is returned when a lookup finds nothing
var ErrNotRegistered = errors.New("not registered")

// Registry holds the tasks, actor environments and workflows of a program
type Registry struct {
	mu        sync.RWMutex
	tasks     map[string]TaskDefinition
	envs      map[string]*ActorEnvironment
	workflows map[string]WorkflowDefinition
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		tasks:     make(map[string]TaskDefinition),
		envs:      make(map[string]*ActorEnvironment),
		workflows: make(map[string]WorkflowDefinition),
	}
}

// RegisterTask adds a task and, for actor tasks, its environment
func (r *Registry) RegisterTask(task TaskDefinition) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tasks[task.Name()]; ok {
		return fmt.Errorf("task %s already registered", task.Name())
	}
	if env := task.Env(); env != nil {
		if err := r.registerEnvLocked(env); err != nil {
			return err
		}
	}
	r.tasks[task.Name()] = task
	return nil
}

// RegisterEnvironment adds an environment. Re-registering an identical one is a no-op.
func (r *Registry) RegisterEnvironment(env *ActorEnvironment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.registerEnvLocked(env)
}

func (r *Registry) registerEnvLocked(env *ActorEnvironment) error {
	existing, ok := r.envs[env.Name()]
	if !ok {
		r.envs[env.Name()] = env
		return nil
	}
	if existing != env && !existing.equal(env) {
		return fmt.Errorf("actor environment %s already registered with a different definition", env.Name())
	}
	return nil
}

// RegisterWorkflow adds a workflow
func (r *Registry) RegisterWorkflow(wf WorkflowDefinition) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.workflows[wf.Name()]; ok {
		return fmt.Errorf("workflow %s already registered", wf.Name())
	}
	r.workflows[wf.Name()] = wf
	return nil
}

// Task retrieves a task by name
func (r *Registry) Task(name string) (TaskDefinition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tasks[name]
	if !ok {
		return nil, fmt.Errorf("task %s: %w", name, ErrNotRegistered)
	}
	return t, nil
}

// Environment retrieves an actor environment by name
func (r *Registry) Environment(name string) (*ActorEnvironment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	env, ok := r.envs[name]
	if !ok {
		return nil, fmt.Errorf("actor environment %s: %w", name, ErrNotRegistered)
	}
	return env, nil
}

// Workflow retrieves a workflow by name
func (r *Registry) Workflow(name string) (WorkflowDefinition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	wf, ok := r.workflows[name]
	if !ok {
		return nil, fmt.Errorf("workflow %s: %w", name, ErrNotRegistered)
	}
	return wf, nil
}

// Environments returns all environments sorted by name
func (r *Registry) Environments() []*ActorEnvironment {
	r.mu.RLock()
	defer r.mu.RUnlock()

	envs := make([]*ActorEnvironment, 0, len(r.envs))
	for _, env := range r.envs {
		envs = append(envs, env)
	}
	sort.Slice(envs, func(i, j int) bool { return envs[i].Name() < envs[j].Name() })
	return envs
}

// Workflows returns all workflow names, sorted
func (r *Registry) Workflows() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.workflows))
	for name := range r.workflows {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// TasksFor returns the names of tasks bound to the environment, sorted
func (r *Registry) TasksFor(envName string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var names []string
	for name, t := range r.tasks {
		if env := t.Env(); env != nil && env.Name() == envName {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
