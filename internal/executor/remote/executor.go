// Package remote runs actor tasks on replicas provisioned in Kubernetes.
// The executor declares the ActorEnvironment resource, marks it active so the
// controller keeps replicas up, waits for readiness and invokes the task over HTTP.
// While a call is in flight the activity mark is refreshed on a heartbeat, and it
// is stamped once more when the call returns, so the environment TTL counts from
// the end of the last call.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"k8s.io/apimachinery/pkg/api/equality"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/utils/clock"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"

	actorsv1 "github.com/kination/actorflow/api/v1"
	"github.com/kination/actorflow/internal/actorserver"
	"github.com/kination/actorflow/pkg/sdk"
)

var log = ctrl.Log.WithName("executor").WithName("remote")

// ErrNotReady is returned when no replica became ready within the timeout
var ErrNotReady = errors.New("actor environment not ready")

// DefaultHeartbeat is how often an in-flight call refreshes the activity mark
const DefaultHeartbeat = 30 * time.Second

// Config holds configuration for the remote executor
type Config struct {
	Client        client.Client
	Namespace     string
	ServiceDomain string
	Port          int
	HTTPClient    *http.Client
	ReadyTimeout  time.Duration
	PollInterval  time.Duration
	Clock         clock.PassiveClock

	// Heartbeat bounds how often in-flight calls refresh the activity mark.
	// Environments with a shorter TTL refresh at half their TTL.
	Heartbeat time.Duration

	// Endpoint overrides how an environment name maps to a base URL
	Endpoint func(env string) string
}

// Executor implements the executor.Executor interface for remote actor tasks
type Executor struct {
	config Config
}

// New creates a new remote Executor
func New(cfg Config) *Executor {
	if cfg.Namespace == "" {
		cfg.Namespace = "default"
	}
	if cfg.ServiceDomain == "" {
		cfg.ServiceDomain = "svc.cluster.local"
	}
	if cfg.Port == 0 {
		cfg.Port = actorserver.DefaultPort
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 10 * time.Minute}
	}
	if cfg.ReadyTimeout == 0 {
		cfg.ReadyTimeout = 10 * time.Minute
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if cfg.Heartbeat <= 0 {
		cfg.Heartbeat = DefaultHeartbeat
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.RealClock{}
	}
	e := &Executor{config: cfg}
	if e.config.Endpoint == nil {
		e.config.Endpoint = e.serviceURL
	}
	return e
}

// Type returns the task types this executor handles
func (e *Executor) Type() []actorsv1.TaskType {
	return []actorsv1.TaskType{actorsv1.TaskTypeActor}
}

// Execute provisions (if needed) and invokes the task on a remote replica
func (e *Executor) Execute(ctx context.Context, call *sdk.Call) (json.RawMessage, error) {
	if call.Env == nil {
		return nil, fmt.Errorf("task %s is not bound to an actor environment", call.TaskName)
	}
	if err := e.ensureEnvironment(ctx, call.Env); err != nil {
		return nil, err
	}
	if err := e.waitReady(ctx, call.Env.Name()); err != nil {
		return nil, err
	}

	stop := e.heartbeat(ctx, call.Env)
	out, err := e.invoke(ctx, call)
	stop()
	if terr := e.touch(context.WithoutCancel(ctx), call.Env.Name()); terr != nil {
		log.Error(terr, "Failed to mark actor environment active after call", "env", call.Env.Name())
	}
	return out, err
}

// Cleanup is a no-op; the controller scales idle environments to zero
func (e *Executor) Cleanup(ctx context.Context) error {
	return nil
}

func (e *Executor) serviceURL(env string) string {
	return fmt.Sprintf("http://%s.%s.%s:%d", env, e.config.Namespace, e.config.ServiceDomain, e.config.Port)
}

// ensureEnvironment creates the resource or brings its spec up to date, and stamps activity
func (e *Executor) ensureEnvironment(ctx context.Context, env *sdk.ActorEnvironment) error {
	now := e.config.Clock.Now().UTC().Format(time.RFC3339)
	key := types.NamespacedName{Namespace: e.config.Namespace, Name: env.Name()}

	current := &actorsv1.ActorEnvironment{}
	err := e.config.Client.Get(ctx, key, current)
	if apierrors.IsNotFound(err) {
		desired := env.Manifest(e.config.Namespace)
		desired.Annotations = map[string]string{actorsv1.LastActiveAnnotation: now}
		log.Info("Creating actor environment", "env", env.Name(), "namespace", e.config.Namespace)
		if err := e.config.Client.Create(ctx, desired); err != nil && !apierrors.IsAlreadyExists(err) {
			return fmt.Errorf("failed to create actor environment %s: %w", env.Name(), err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to get actor environment %s: %w", env.Name(), err)
	}

	patch := client.MergeFrom(current.DeepCopy())
	if current.Annotations == nil {
		current.Annotations = map[string]string{}
	}
	current.Annotations[actorsv1.LastActiveAnnotation] = now
	if spec := env.Spec(); !equality.Semantic.DeepEqual(current.Spec, spec) {
		log.Info("Updating actor environment spec", "env", env.Name())
		current.Spec = spec
	}
	if err := e.config.Client.Patch(ctx, current, patch); err != nil {
		return fmt.Errorf("failed to mark actor environment %s active: %w", env.Name(), err)
	}
	return nil
}

// heartbeat refreshes the activity mark of env until the returned func is called
func (e *Executor) heartbeat(ctx context.Context, env *sdk.ActorEnvironment) func() {
	interval := e.config.Heartbeat
	if ttl := env.TTL(); ttl > 0 && ttl/2 < interval {
		interval = ttl / 2
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := e.touch(ctx, env.Name()); err != nil && ctx.Err() == nil {
					log.Error(err, "Failed to refresh actor environment activity", "env", env.Name())
				}
			}
		}
	}()
	return func() {
		cancel()
		<-done
	}
}

// touch stamps the last-active annotation with a merge patch
func (e *Executor) touch(ctx context.Context, name string) error {
	patch, err := json.Marshal(map[string]any{
		"metadata": map[string]any{
			"annotations": map[string]string{
				actorsv1.LastActiveAnnotation: e.config.Clock.Now().UTC().Format(time.RFC3339),
			},
		},
	})
	if err != nil {
		return err
	}
	obj := &actorsv1.ActorEnvironment{}
	obj.Namespace = e.config.Namespace
	obj.Name = name
	if err := e.config.Client.Patch(ctx, obj, client.RawPatch(types.MergePatchType, patch)); err != nil {
		return fmt.Errorf("failed to mark actor environment %s active: %w", name, err)
	}
	return nil
}

func (e *Executor) waitReady(ctx context.Context, name string) error {
	key := types.NamespacedName{Namespace: e.config.Namespace, Name: name}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = e.config.PollInterval
	b.MaxInterval = 10 * e.config.PollInterval
	b.MaxElapsedTime = e.config.ReadyTimeout

	var last actorsv1.ActorPhase
	err := backoff.Retry(func() error {
		env := &actorsv1.ActorEnvironment{}
		if err := e.config.Client.Get(ctx, key, env); err != nil {
			if apierrors.IsNotFound(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		if env.Status.ReadyReplicas > 0 {
			return nil
		}
		last = env.Status.Phase
		return fmt.Errorf("%w: %s has no ready replicas (phase %q)", ErrNotReady, name, last)
	}, backoff.WithContext(b, ctx))
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	return nil
}

func (e *Executor) invoke(ctx context.Context, call *sdk.Call) (json.RawMessage, error) {
	body, err := json.Marshal(actorserver.InvokeRequest{
		RunID:  call.RunID,
		NodeID: call.NodeID,
		Input:  call.Input,
	})
	if err != nil {
		return nil, err
	}

	url := e.config.Endpoint(call.Env.Name()) + actorserver.TaskPath(call.TaskName)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	log.V(1).Info("Invoking remote task", "url", url, "run", call.RunID, "node", call.NodeID)
	resp, err := e.config.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("invoke %s on %s: %w", call.TaskName, call.Env.Name(), err)
	}
	defer resp.Body.Close()

	var out actorserver.InvokeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response of %s (status %d): %w", call.TaskName, resp.StatusCode, err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return out.Output, nil
	case resp.StatusCode == http.StatusBadRequest:
		return nil, fmt.Errorf("%w: %s", sdk.ErrInvalidInput, out.Error)
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("task %s on %s: %w", call.TaskName, call.Env.Name(), sdk.ErrNotRegistered)
	default:
		return nil, fmt.Errorf("task %s failed on %s: %s", call.TaskName, call.Env.Name(), out.Error)
	}
}
