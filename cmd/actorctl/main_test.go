package main

import (
	"context"
	"path/filepath"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"

	"github.com/kination/actorflow/internal/config"
	"github.com/kination/actorflow/internal/store"
)

func TestRunWorkflow_LocalAdd(t *testing.T) {
	cfg := config.Default()
	cfg.Store.Type = store.StoreTypeSQLite
	cfg.Store.Path = filepath.Join(t.TempDir(), "runs.db")

	require.NoError(t, runWorkflow(context.Background(), cfg, "wf_add", false))

	st, err := openStore(cfg)
	require.NoError(t, err)
	defer st.Close()

	runs, err := st.ListRuns(context.Background(), "wf_add", store.ListOptions{})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	require.JSONEq(t, `17`, string(runs[0].Result))
	require.Len(t, runs[0].TaskRuns, 4)
}

func TestRunWorkflow_Unknown(t *testing.T) {
	err := runWorkflow(context.Background(), config.Default(), "wf_missing", false)
	require.Error(t, err)
}

func TestNewRegistry_UnknownBackend(t *testing.T) {
	cfg := config.Default()
	cfg.Model.Backend = "tgi"
	_, err := newRegistry(cfg)
	require.Error(t, err)
}

func TestNewRegistry(t *testing.T) {
	reg, err := newRegistry(config.Default())
	require.NoError(t, err)
	require.Equal(t, []string{"wf_add", "wf_text_gen"}, reg.Workflows())
}

func TestTruncate(t *testing.T) {
	require.Equal(t, "short", truncate("short", 120))
	require.Equal(t, "abc...", truncate("abcdef", 3))

	out := truncate("개미는 곤충입니다", 2)
	require.Equal(t, "개미...", out)
	require.True(t, utf8.ValidString(out))

	exact := "🐝🐜"
	require.Equal(t, exact, truncate(exact, 2))
}

func TestReplicaOptions(t *testing.T) {
	cfg := config.Default()
	cfg.Namespace = "ml"
	cfg.Model.Verify = true

	opts := replicaOptions(cfg)
	require.Equal(t, int32(8080), opts.Port)
	require.Equal(t, "openai", opts.Env[config.EnvModelBackend])
	require.Equal(t, "true", opts.Env[config.EnvModelVerify])
	require.Equal(t, "ml", opts.Env[config.EnvNamespace])
	require.Empty(t, opts.SecretEnv)

	cfg.Model.APIKeySecret = "model-credentials"
	opts = replicaOptions(cfg)
	ref, ok := opts.SecretEnv["OPENAI_API_KEY"]
	require.True(t, ok)
	require.Equal(t, "model-credentials", ref.Name)
	require.Equal(t, "OPENAI_API_KEY", ref.Key)
	require.NotContains(t, opts.Env, "OPENAI_API_KEY")
}
