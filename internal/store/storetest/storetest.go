// Package storetest holds behaviour tests shared by every store.Store implementation
package storetest

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	actorsv1 "github.com/kination/actorflow/api/v1"
	"github.com/kination/actorflow/internal/store"
)

// Run exercises a store created fresh by newStore for each subtest
func Run(t *testing.T, newStore func(t *testing.T) store.Store) {
	t.Run("SaveAndGet", func(t *testing.T) { testSaveAndGet(t, newStore(t)) })
	t.Run("TaskRuns", func(t *testing.T) { testTaskRuns(t, newStore(t)) })
	t.Run("ListRuns", func(t *testing.T) { testListRuns(t, newStore(t)) })
	t.Run("NotFound", func(t *testing.T) { testNotFound(t, newStore(t)) })
}

var base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newRun(id, workflow string, offset time.Duration) *store.WorkflowRun {
	return &store.WorkflowRun{
		RunID:     id,
		Workflow:  workflow,
		Mode:      "local",
		StartTime: base.Add(offset),
		State:     actorsv1.StateRunning,
	}
}

func testSaveAndGet(t *testing.T, s store.Store) {
	ctx := context.Background()
	require.NoError(t, s.Ping(ctx))

	run := newRun("r1", "wf_add", 0)
	require.NoError(t, s.SaveRun(ctx, run))

	end := base.Add(1500 * time.Millisecond)
	run.EndTime = &end
	run.State = actorsv1.StateCompleted
	run.Result = json.RawMessage(`17`)
	require.NoError(t, s.SaveRun(ctx, run))

	got, err := s.GetRun(ctx, "r1")
	require.NoError(t, err)
	require.Equal(t, "wf_add", got.Workflow)
	require.Equal(t, "local", got.Mode)
	require.Equal(t, actorsv1.StateCompleted, got.State)
	require.True(t, got.StartTime.Equal(base))
	require.NotNil(t, got.EndTime)
	require.True(t, got.EndTime.Equal(end))
	require.JSONEq(t, `17`, string(got.Result))
}

func testTaskRuns(t *testing.T, s store.Store) {
	ctx := context.Background()
	require.NoError(t, s.SaveRun(ctx, newRun("r1", "wf_text_gen", 0)))

	first := store.TaskRun{
		NodeID:    "n0",
		TaskName:  "actor_model_predict",
		Env:       "gpu-llm-actor",
		State:     actorsv1.StateRunning,
		StartTime: base,
		Input:     json.RawMessage(`{"query":"What is an ant?"}`),
	}
	require.NoError(t, s.SaveTaskRun(ctx, "r1", &first))

	second := store.TaskRun{
		NodeID:    "n1",
		TaskName:  "actor_model_predict",
		Env:       "gpu-llm-actor",
		Upstream:  []string{"n0"},
		State:     actorsv1.StateRunning,
		StartTime: base.Add(time.Second),
	}
	require.NoError(t, s.SaveTaskRun(ctx, "r1", &second))

	// Completing n0 replaces it in place
	end := base.Add(500 * time.Millisecond)
	first.State = actorsv1.StateCompleted
	first.EndTime = &end
	first.Attempts = 1
	first.Output = json.RawMessage(`"An ant is an insect."`)
	require.NoError(t, s.SaveTaskRun(ctx, "r1", &first))

	got, err := s.GetRun(ctx, "r1")
	require.NoError(t, err)
	require.Len(t, got.TaskRuns, 2)

	n0, n1 := got.TaskRuns[0], got.TaskRuns[1]
	require.Equal(t, "n0", n0.NodeID)
	require.Equal(t, actorsv1.StateCompleted, n0.State)
	require.Equal(t, 1, n0.Attempts)
	require.Empty(t, n0.Upstream)
	require.JSONEq(t, `"An ant is an insect."`, string(n0.Output))
	require.JSONEq(t, `{"query":"What is an ant?"}`, string(n0.Input))
	require.True(t, n0.EndTime.Equal(end))

	require.Equal(t, "n1", n1.NodeID)
	require.Equal(t, []string{"n0"}, n1.Upstream)
	require.Nil(t, n1.EndTime)

	// Saving the run again keeps its task runs
	got.State = actorsv1.StateCompleted
	got.TaskRuns = nil
	require.NoError(t, s.SaveRun(ctx, got))
	again, err := s.GetRun(ctx, "r1")
	require.NoError(t, err)
	require.Len(t, again.TaskRuns, 2)
}

func testListRuns(t *testing.T, s store.Store) {
	ctx := context.Background()
	require.NoError(t, s.SaveRun(ctx, newRun("a", "wf_add", 0)))
	require.NoError(t, s.SaveRun(ctx, newRun("b", "wf_add", time.Minute)))
	require.NoError(t, s.SaveRun(ctx, newRun("c", "wf_text_gen", 2*time.Minute)))

	failed := newRun("d", "wf_add", 3*time.Minute)
	failed.State = actorsv1.StateFailed
	require.NoError(t, s.SaveRun(ctx, failed))

	ids := func(runs []*store.WorkflowRun) []string {
		var out []string
		for _, r := range runs {
			out = append(out, r.RunID)
		}
		return out
	}

	all, err := s.ListRuns(ctx, "", store.ListOptions{})
	require.NoError(t, err)
	require.Equal(t, []string{"d", "c", "b", "a"}, ids(all))

	add, err := s.ListRuns(ctx, "wf_add", store.ListOptions{})
	require.NoError(t, err)
	require.Equal(t, []string{"d", "b", "a"}, ids(add))

	page, err := s.ListRuns(ctx, "wf_add", store.ListOptions{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Equal(t, []string{"b"}, ids(page))

	onlyFailed, err := s.ListRuns(ctx, "", store.ListOptions{State: actorsv1.StateFailed})
	require.NoError(t, err)
	require.Equal(t, []string{"d"}, ids(onlyFailed))

	none, err := s.ListRuns(ctx, "wf_missing", store.ListOptions{})
	require.NoError(t, err)
	require.Empty(t, none)
}

func testNotFound(t *testing.T, s store.Store) {
	ctx := context.Background()
	_, err := s.GetRun(ctx, "ghost")
	require.ErrorIs(t, err, store.ErrNotFound)

	err = s.SaveTaskRun(ctx, "ghost", &store.TaskRun{NodeID: "n0", StartTime: base})
	require.ErrorIs(t, err, store.ErrNotFound)
}
