package sdk

import (
	"context"
	"errors"
	"testing"
)

func echoTask(name string, env *ActorEnvironment) *Task[string, string] {
	fn := func(_ context.Context, s string) (string, error) { return s, nil }
	if env != nil {
		return ActorTask(env, name, fn)
	}
	return NewTask(name, fn)
}

func TestRegistry_RegisterTask(t *testing.T) {
	registry := NewRegistry()
	env := MustActorEnvironment(ActorOptions{Name: "echo", ReplicaCount: 1, Requests: Resources{CPU: "1", Mem: "1Gi"}})

	if err := registry.RegisterTask(echoTask("actor-echo", env)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := registry.RegisterTask(echoTask("plain-echo", nil)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := registry.Task("actor-echo"); err != nil {
		t.Errorf("actor-echo should be registered: %v", err)
	}
	if _, err := registry.Environment("echo"); err != nil {
		t.Errorf("environment should be registered with its task: %v", err)
	}
	if got := registry.TasksFor("echo"); len(got) != 1 || got[0] != "actor-echo" {
		t.Errorf("expected [actor-echo], got %v", got)
	}
	if err := registry.RegisterTask(echoTask("plain-echo", nil)); err == nil {
		t.Error("expected error for duplicate task")
	}
}

func TestRegistry_ConflictingEnvironment(t *testing.T) {
	registry := NewRegistry()
	a := MustActorEnvironment(ActorOptions{Name: "pool", ReplicaCount: 1, Requests: Resources{CPU: "1", Mem: "1Gi"}})
	same := MustActorEnvironment(ActorOptions{Name: "pool", ReplicaCount: 1, Requests: Resources{CPU: "1", Mem: "1Gi"}})
	other := MustActorEnvironment(ActorOptions{Name: "pool", ReplicaCount: 3, Requests: Resources{CPU: "1", Mem: "1Gi"}})

	if err := registry.RegisterTask(echoTask("t1", a)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := registry.RegisterTask(echoTask("t2", same)); err != nil {
		t.Errorf("identical environment should be accepted: %v", err)
	}
	if err := registry.RegisterTask(echoTask("t3", other)); err == nil {
		t.Error("expected error for conflicting environment")
	}
	if _, err := registry.Task("t3"); err == nil {
		t.Error("t3 should not be registered after a conflict")
	}
}

func TestRegistry_NotRegistered(t *testing.T) {
	registry := NewRegistry()

	if _, err := registry.Task("missing"); !errors.Is(err, ErrNotRegistered) {
		t.Errorf("expected ErrNotRegistered, got %v", err)
	}
	if _, err := registry.Workflow("missing"); !errors.Is(err, ErrNotRegistered) {
		t.Errorf("expected ErrNotRegistered, got %v", err)
	}
	if _, err := registry.Environment("missing"); !errors.Is(err, ErrNotRegistered) {
		t.Errorf("expected ErrNotRegistered, got %v", err)
	}
}

func TestRegistry_Workflows(t *testing.T) {
	registry := NewRegistry()
	wfB := NewWorkflow("wf_b", func(*Context) (int, error) { return 0, nil })
	wfA := NewWorkflow("wf_a", func(*Context) (int, error) { return 0, nil })

	if err := registry.RegisterWorkflow(wfB); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := registry.RegisterWorkflow(wfA); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := registry.RegisterWorkflow(wfA); err == nil {
		t.Error("expected error for duplicate workflow")
	}

	names := registry.Workflows()
	if len(names) != 2 || names[0] != "wf_a" || names[1] != "wf_b" {
		t.Errorf("expected sorted [wf_a wf_b], got %v", names)
	}
}

func TestRegistry_Concurrent(t *testing.T) {
	registry := NewRegistry()
	env := MustActorEnvironment(ActorOptions{Name: "pool", ReplicaCount: 1, Requests: Resources{CPU: "1", Mem: "1Gi"}})

	done := make(chan bool)

	go func() {
		for i := 0; i < 100; i++ {
			_ = registry.RegisterEnvironment(env)
		}
		done <- true
	}()

	go func() {
		for i := 0; i < 100; i++ {
			registry.Environments()
			registry.Workflows()
		}
		done <- true
	}()

	<-done
	<-done
}
