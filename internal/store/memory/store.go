// Package memory provides an in-process store.Store
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/kination/actorflow/internal/store"
)

// Store keeps workflow runs in memory
type Store struct {
	mu   sync.RWMutex
	runs map[string]*store.WorkflowRun
}

// New creates an empty Store
func New() *Store {
	return &Store{runs: make(map[string]*store.WorkflowRun)}
}

func (s *Store) SaveRun(ctx context.Context, run *store.WorkflowRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := cloneRun(run)
	// Task runs saved earlier are kept; the ones carried by run win
	if existing, ok := s.runs[run.RunID]; ok {
		merged := existing.TaskRuns
		cp.TaskRuns, merged = merged, cp.TaskRuns
		for _, task := range merged {
			cp.UpsertTaskRun(task)
		}
	}
	s.runs[run.RunID] = cp
	return nil
}

func (s *Store) GetRun(ctx context.Context, runID string) (*store.WorkflowRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[runID]
	if !ok {
		return nil, fmt.Errorf("run %s: %w", runID, store.ErrNotFound)
	}
	return cloneRun(run), nil
}

func (s *Store) ListRuns(ctx context.Context, workflow string, opts store.ListOptions) ([]*store.WorkflowRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*store.WorkflowRun
	for _, run := range s.runs {
		if workflow != "" && run.Workflow != workflow {
			continue
		}
		if opts.State != "" && run.State != opts.State {
			continue
		}
		out = append(out, cloneRun(run))
	}
	// Newest first
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartTime.Equal(out[j].StartTime) {
			return out[i].RunID < out[j].RunID
		}
		return out[i].StartTime.After(out[j].StartTime)
	})

	if opts.Offset > 0 {
		if opts.Offset >= len(out) {
			return nil, nil
		}
		out = out[opts.Offset:]
	}
	if opts.Limit > 0 && opts.Limit < len(out) {
		out = out[:opts.Limit]
	}
	return out, nil
}

func (s *Store) SaveTaskRun(ctx context.Context, runID string, task *store.TaskRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	run, ok := s.runs[runID]
	if !ok {
		return fmt.Errorf("run %s: %w", runID, store.ErrNotFound)
	}
	run.UpsertTaskRun(cloneTask(*task))
	return nil
}

func (s *Store) Ping(ctx context.Context) error { return nil }

func (s *Store) Close() error { return nil }

func cloneRun(run *store.WorkflowRun) *store.WorkflowRun {
	cp := *run
	if run.EndTime != nil {
		t := *run.EndTime
		cp.EndTime = &t
	}
	cp.Result = append([]byte(nil), run.Result...)
	cp.TaskRuns = nil
	for _, task := range run.TaskRuns {
		cp.TaskRuns = append(cp.TaskRuns, cloneTask(task))
	}
	return &cp
}

func cloneTask(task store.TaskRun) store.TaskRun {
	if task.EndTime != nil {
		t := *task.EndTime
		task.EndTime = &t
	}
	task.Upstream = append([]string(nil), task.Upstream...)
	task.Input = append([]byte(nil), task.Input...)
	task.Output = append([]byte(nil), task.Output...)
	return task
}
