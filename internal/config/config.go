// Package config loads actorctl configuration from YAML.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kination/actorflow/internal/runner"
	"github.com/kination/actorflow/internal/scheduler"
	"github.com/kination/actorflow/internal/store"
)

// Config is the actorctl configuration
type Config struct {
	Namespace string          `yaml:"namespace"`
	Runner    RunnerConfig    `yaml:"runner"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Store     StoreConfig     `yaml:"store"`
	Model     ModelConfig     `yaml:"model"`
	Remote    RemoteConfig    `yaml:"remote"`
}

type RunnerConfig struct {
	MaxRetries          int `yaml:"maxRetries"`
	RetryBackoffSeconds int `yaml:"retryBackoffSeconds"`
}

type SchedulerConfig struct {
	MaxActiveTasks int32 `yaml:"maxActiveTasks"`
}

type StoreConfig struct {
	Type StoreType `yaml:"type"`
	Path string    `yaml:"path"` // SQLite database file
}

// StoreType mirrors store.StoreType
type StoreType = store.StoreType

// ModelConfig points the text-generation pipeline at an OpenAI-compatible server
type ModelConfig struct {
	Backend   string `yaml:"backend"`
	BaseURL   string `yaml:"baseURL"`
	APIKeyEnv string `yaml:"apiKeyEnv"` // Name of the environment variable holding the key
	Verify    bool   `yaml:"verify"`    // Check the model exists when it is loaded

	// APIKeySecret names the Secret exposed to actor replicas as APIKeyEnv.
	// The Secret must store the key under the APIKeyEnv name.
	APIKeySecret string `yaml:"apiKeySecret"`
}

type RemoteConfig struct {
	ServiceDomain       string `yaml:"serviceDomain"`
	Port                int    `yaml:"port"`
	ReadyTimeoutSeconds int    `yaml:"readyTimeoutSeconds"`
}

// Default returns the configuration used when no file is given
func Default() *Config {
	runnerDefaults := runner.DefaultRunnerConfig()
	return &Config{
		Namespace: "default",
		Runner: RunnerConfig{
			MaxRetries:          runnerDefaults.MaxRetries,
			RetryBackoffSeconds: runnerDefaults.RetryBackoffSeconds,
		},
		Scheduler: SchedulerConfig{
			MaxActiveTasks: scheduler.DefaultSchedulerConfig().MaxActiveTasks,
		},
		Store: StoreConfig{
			Type: store.StoreTypeMemory,
			Path: "actorflow.db",
		},
		Model: ModelConfig{
			Backend:   "openai",
			BaseURL:   "http://localhost:8000/v1",
			APIKeyEnv: "OPENAI_API_KEY",
		},
		Remote: RemoteConfig{
			ServiceDomain:       "svc.cluster.local",
			Port:                8080,
			ReadyTimeoutSeconds: 600,
		},
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		if err := cfg.ApplyEnv(); err != nil {
			return nil, err
		}
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config error: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("yaml parse error: %w", err)
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Environment variables set on actor replicas by the controller
const (
	EnvNamespace    = "ACTORFLOW_NAMESPACE"
	EnvModelBackend = "ACTORFLOW_MODEL_BACKEND"
	EnvModelBaseURL = "ACTORFLOW_MODEL_BASE_URL"
	EnvModelVerify  = "ACTORFLOW_MODEL_VERIFY"
)

// ApplyEnv lets the environment override file settings
func (c *Config) ApplyEnv() error {
	if v := os.Getenv(EnvNamespace); v != "" {
		c.Namespace = v
	}
	if v := os.Getenv(EnvModelBackend); v != "" {
		c.Model.Backend = v
	}
	if v := os.Getenv(EnvModelBaseURL); v != "" {
		c.Model.BaseURL = v
	}
	if v := os.Getenv(EnvModelVerify); v != "" {
		verify, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvModelVerify, v, err)
		}
		c.Model.Verify = verify
	}
	return nil
}

// ReplicaEnv returns the settings the controller forwards to actor replicas
// so they resolve the same model backend as actorctl
func (c *Config) ReplicaEnv() map[string]string {
	return map[string]string{
		EnvNamespace:    c.Namespace,
		EnvModelBackend: c.Model.Backend,
		EnvModelBaseURL: c.Model.BaseURL,
		EnvModelVerify:  strconv.FormatBool(c.Model.Verify),
	}
}

// Validate checks values the defaults cannot repair
func (c *Config) Validate() error {
	switch c.Store.Type {
	case store.StoreTypeMemory:
	case store.StoreTypeSQLite:
		if c.Store.Path == "" {
			return fmt.Errorf("store.path is required for sqlite")
		}
	default:
		return fmt.Errorf("unknown store type %q", c.Store.Type)
	}
	if c.Runner.MaxRetries < 0 {
		return fmt.Errorf("runner.maxRetries must not be negative")
	}
	if c.Scheduler.MaxActiveTasks < 1 {
		return fmt.Errorf("scheduler.maxActiveTasks must be at least 1")
	}
	if c.Model.Backend == "" {
		return fmt.Errorf("model.backend is required")
	}
	return nil
}

// APIKey resolves the model API key from the environment
func (m ModelConfig) APIKey() string {
	if m.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(m.APIKeyEnv)
}

// ReadyTimeout returns the remote readiness timeout
func (r RemoteConfig) ReadyTimeout() time.Duration {
	return time.Duration(r.ReadyTimeoutSeconds) * time.Second
}

// RunnerConfig converts to the runner's configuration
func (c *Config) RunnerConfig() runner.RunnerConfig {
	return runner.RunnerConfig{
		MaxRetries:          c.Runner.MaxRetries,
		RetryBackoffSeconds: c.Runner.RetryBackoffSeconds,
	}
}

// SchedulerConfig converts to the scheduler's configuration
func (c *Config) SchedulerConfig() scheduler.SchedulerConfig {
	return scheduler.SchedulerConfig{
		Policy:         scheduler.PolicyFIFO,
		MaxActiveTasks: c.Scheduler.MaxActiveTasks,
	}
}

// StoreConfig converts to the store's configuration
func (c *Config) StoreConfig() store.StoreConfig {
	cfg := store.DefaultStoreConfig()
	cfg.Type = c.Store.Type
	if cfg.Type == store.StoreTypeSQLite {
		cfg.ConnectionString = c.Store.Path
	}
	return cfg
}
