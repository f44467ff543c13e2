package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kination/actorflow/internal/store"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "actorflow.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
	require.NoError(t, cfg.Validate())
	require.Equal(t, int32(10), cfg.SchedulerConfig().MaxActiveTasks)
	require.Equal(t, 30, cfg.RunnerConfig().RetryBackoffSeconds)
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
namespace: ml
runner:
  maxRetries: 2
store:
  type: sqlite
  path: /var/lib/actorflow/runs.db
model:
  baseURL: http://vllm.ml:8000/v1
  apiKeyEnv: VLLM_KEY
  verify: true
remote:
  readyTimeoutSeconds: 30
`)
	t.Setenv("VLLM_KEY", "secret")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "ml", cfg.Namespace)
	require.Equal(t, 2, cfg.Runner.MaxRetries)
	require.Equal(t, 30, cfg.Runner.RetryBackoffSeconds, "unset fields keep their default")
	require.Equal(t, "http://vllm.ml:8000/v1", cfg.Model.BaseURL)
	require.Equal(t, "openai", cfg.Model.Backend)
	require.Equal(t, "secret", cfg.Model.APIKey())
	require.True(t, cfg.Model.Verify)
	require.Equal(t, "30s", cfg.Remote.ReadyTimeout().String())

	sc := cfg.StoreConfig()
	require.Equal(t, store.StoreTypeSQLite, sc.Type)
	require.Equal(t, "/var/lib/actorflow/runs.db", sc.ConnectionString)
}

func TestLoad_Invalid(t *testing.T) {
	cases := map[string]string{
		"unknown store":    "store:\n  type: etcd\n",
		"negative retries": "runner:\n  maxRetries: -1\n",
		"no slots":         "scheduler:\n  maxActiveTasks: 0\n",
		"bad yaml":         "namespace: [\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			require.Error(t, err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv(EnvNamespace, "actors")
	t.Setenv(EnvModelBaseURL, "http://vllm.actors:8000/v1")

	cfg, err := Load(writeConfig(t, "namespace: ml\n"))
	require.NoError(t, err)
	require.Equal(t, "actors", cfg.Namespace)
	require.Equal(t, "http://vllm.actors:8000/v1", cfg.Model.BaseURL)
}

func TestLoad_ModelEnvOverrides(t *testing.T) {
	t.Setenv(EnvModelBackend, "openai-compat")
	t.Setenv(EnvModelVerify, "true")

	cfg, err := Load(writeConfig(t, "model:\n  backend: openai\n"))
	require.NoError(t, err)
	require.Equal(t, "openai-compat", cfg.Model.Backend)
	require.True(t, cfg.Model.Verify)

	t.Setenv(EnvModelVerify, "maybe")
	_, err = Load(writeConfig(t, "namespace: ml\n"))
	require.ErrorContains(t, err, EnvModelVerify)
}

func TestReplicaEnv_RoundTrips(t *testing.T) {
	src := Default()
	src.Namespace = "ml"
	src.Model.Backend = "openai"
	src.Model.BaseURL = "http://vllm.ml:8000/v1"
	src.Model.Verify = true

	for k, v := range src.ReplicaEnv() {
		t.Setenv(k, v)
	}
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, src.Namespace, cfg.Namespace)
	require.Equal(t, src.Model.Backend, cfg.Model.Backend)
	require.Equal(t, src.Model.BaseURL, cfg.Model.BaseURL)
	require.True(t, cfg.Model.Verify)
}
