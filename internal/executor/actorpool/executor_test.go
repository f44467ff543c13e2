package actorpool

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	testingclock "k8s.io/utils/clock/testing"

	"github.com/kination/actorflow/pkg/sdk"
)

func newEnv(t *testing.T, name string, replicas, ttl int32) *sdk.ActorEnvironment {
	t.Helper()
	env, err := sdk.NewActorEnvironment(sdk.ActorOptions{
		Name:         name,
		ReplicaCount: replicas,
		TTLSeconds:   ttl,
		Requests:     sdk.Resources{CPU: "1", Mem: "128Mi"},
	})
	require.NoError(t, err)
	return env
}

// modelTask counts how often its cached "model" is loaded
func modelTask(env *sdk.ActorEnvironment, loads *atomic.Int32) *sdk.Task[string, string] {
	cache := sdk.NewActorCache("model", func(_ context.Context, name string) (string, error) {
		loads.Add(1)
		return "model:" + name, nil
	})
	return sdk.ActorTask(env, "predict", func(ctx context.Context, q string) (string, error) {
		m, err := cache.Get(ctx, "phi")
		if err != nil {
			return "", err
		}
		return m + "/" + q, nil
	})
}

func call(task sdk.TaskDefinition, input string) *sdk.Call {
	return &sdk.Call{
		RunID:      "run",
		TaskName:   task.Name(),
		Type:       task.Type(),
		Env:        task.Env(),
		Input:      []byte(input),
		Definition: task,
	}
}

func TestExecutor_ReusesReplicaCache(t *testing.T) {
	fc := testingclock.NewFakeClock(time.Now())
	exec := New(Config{Clock: fc})
	defer exec.Cleanup(context.Background())

	var loads atomic.Int32
	task := modelTask(newEnv(t, "gpu", 1, 120), &loads)

	for _, q := range []string{`"ant"`, `"bee"`, `"wasp"`} {
		out, err := exec.Execute(context.Background(), call(task, q))
		require.NoError(t, err)
		require.Contains(t, string(out), "model:phi/")
	}
	require.Equal(t, int32(1), loads.Load())
	require.Equal(t, 1, exec.Provisions("gpu"))

	pools := exec.Pools()
	require.Len(t, pools, 1)
	require.Equal(t, "gpu", pools[0].Env)
	require.Equal(t, 1, pools[0].Replicas)
	require.Equal(t, 0, pools[0].InFlight)
}

func TestExecutor_ReapAfterTTL(t *testing.T) {
	fc := testingclock.NewFakeClock(time.Now())
	exec := New(Config{Clock: fc})
	defer exec.Cleanup(context.Background())

	var loads atomic.Int32
	task := modelTask(newEnv(t, "gpu", 1, 120), &loads)

	_, err := exec.Execute(context.Background(), call(task, `"ant"`))
	require.NoError(t, err)

	fc.Step(119 * time.Second)
	require.Equal(t, 0, exec.Reap(), "pool must survive until its TTL")

	// A call inside the TTL refreshes the idle timer
	_, err = exec.Execute(context.Background(), call(task, `"bee"`))
	require.NoError(t, err)
	fc.Step(119 * time.Second)
	require.Equal(t, 0, exec.Reap())
	require.Equal(t, int32(1), loads.Load())

	fc.Step(time.Second)
	require.Equal(t, 1, exec.Reap())
	require.Empty(t, exec.Pools())

	// Cold start: the replica is new and reloads the model
	_, err = exec.Execute(context.Background(), call(task, `"wasp"`))
	require.NoError(t, err)
	require.Equal(t, int32(2), loads.Load())
	require.Equal(t, 2, exec.Provisions("gpu"))
}

func TestExecutor_ReplicasServeConcurrently(t *testing.T) {
	exec := New(Config{})
	defer exec.Cleanup(context.Background())

	env := newEnv(t, "wide", 2, 60)
	var started sync.WaitGroup
	started.Add(2)
	release := make(chan struct{})
	task := sdk.ActorTask(env, "block", func(_ context.Context, n int) (int, error) {
		started.Done()
		<-release
		return n, nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := exec.Execute(context.Background(), call(task, `1`))
			require.NoError(t, err)
		}()
	}

	// Both calls must be in a replica at the same time before either can finish
	started.Wait()
	close(release)
	wg.Wait()
}

func TestExecutor_ContextCanceled(t *testing.T) {
	exec := New(Config{})
	defer exec.Cleanup(context.Background())

	env := newEnv(t, "busy", 1, 60)
	release := make(chan struct{})
	task := sdk.ActorTask(env, "block", func(_ context.Context, n int) (int, error) {
		<-release
		return n, nil
	})

	go func() {
		_, _ = exec.Execute(context.Background(), call(task, `1`))
	}()
	require.Eventually(t, func() bool {
		pools := exec.Pools()
		return len(pools) == 1 && pools[0].InFlight == 1
	}, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := exec.Execute(ctx, call(task, `2`))
	require.ErrorIs(t, err, context.DeadlineExceeded)
	close(release)
}

func TestExecutor_PanicIsReturnedAsError(t *testing.T) {
	exec := New(Config{})
	defer exec.Cleanup(context.Background())

	task := sdk.ActorTask(newEnv(t, "fragile", 1, 60), "explode", func(context.Context, int) (int, error) {
		panic("kaboom")
	})
	_, err := exec.Execute(context.Background(), call(task, `1`))
	require.ErrorContains(t, err, "kaboom")

	// The replica survives the panic
	ok := sdk.ActorTask(task.Env(), "fine", func(_ context.Context, n int) (int, error) { return n, nil })
	out, err := exec.Execute(context.Background(), call(ok, `7`))
	require.NoError(t, err)
	require.JSONEq(t, `7`, string(out))
}

func TestExecutor_RequiresEnvironment(t *testing.T) {
	exec := New(Config{})
	defer exec.Cleanup(context.Background())

	plain := sdk.NewTask("plain", func(_ context.Context, n int) (int, error) { return n, nil })
	_, err := exec.Execute(context.Background(), call(plain, `1`))
	require.Error(t, err)
}

func TestExecutor_Cleanup(t *testing.T) {
	exec := New(Config{ReapInterval: 10 * time.Millisecond})
	exec.Start(context.Background())

	var loads atomic.Int32
	task := modelTask(newEnv(t, "gpu", 1, 120), &loads)
	_, err := exec.Execute(context.Background(), call(task, `"ant"`))
	require.NoError(t, err)

	require.NoError(t, exec.Cleanup(context.Background()))
	require.Empty(t, exec.Pools())
}

func TestExecutor_RestartAfterCleanup(t *testing.T) {
	fc := testingclock.NewFakeClock(time.Now())
	exec := New(Config{Clock: fc, ReapInterval: 5 * time.Millisecond})
	var loads atomic.Int32
	task := modelTask(newEnv(t, "gpu", 1, 120), &loads)

	exec.Start(context.Background())
	require.NoError(t, exec.Cleanup(context.Background()))
	require.NoError(t, exec.Cleanup(context.Background()), "cleanup is idempotent")

	exec.Start(context.Background())
	defer exec.Cleanup(context.Background())

	_, err := exec.Execute(context.Background(), call(task, `"ant"`))
	require.NoError(t, err)
	require.Len(t, exec.Pools(), 1)

	// The restarted reaper still releases idle pools
	fc.Step(120 * time.Second)
	require.Eventually(t, func() bool { return len(exec.Pools()) == 0 },
		5*time.Second, 5*time.Millisecond)
}
