// Package actorpool runs actor tasks on warm in-process replicas.
//
// A pool is provisioned per actor environment on its first call and keeps
// ReplicaCount replica goroutines consuming a shared queue. Each replica owns
// a cache scope for its whole life, so values memoized with sdk.ActorCache
// survive across calls. Pools idle for longer than the environment TTL are
// torn down by Reap.
package actorpool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"k8s.io/utils/clock"
	ctrl "sigs.k8s.io/controller-runtime"

	actorsv1 "github.com/kination/actorflow/api/v1"
	"github.com/kination/actorflow/pkg/sdk"
)

var log = ctrl.Log.WithName("executor").WithName("actorpool")

// ErrPoolStopped is returned to calls whose pool shut down before they were served
var ErrPoolStopped = errors.New("actor pool stopped")

// DefaultReapInterval is how often a started executor checks for idle pools
const DefaultReapInterval = time.Second

// Config holds configuration for the executor
type Config struct {
	Clock        clock.PassiveClock
	ReapInterval time.Duration
}

// PoolStatus describes a live pool
type PoolStatus struct {
	Env        string
	Replicas   int
	InFlight   int
	LastActive time.Time
}

// Executor implements the executor.Executor interface for actor tasks
type Executor struct {
	clock        clock.PassiveClock
	reapInterval time.Duration

	mu         sync.Mutex
	pools      map[string]*pool
	provisions map[string]int
	// stop is nil while no reaper runs; Cleanup closes it and Start makes a new one
	stop chan struct{}

	wg sync.WaitGroup
}

// New creates a new actor pool executor
func New(cfg Config) *Executor {
	if cfg.Clock == nil {
		cfg.Clock = clock.RealClock{}
	}
	if cfg.ReapInterval <= 0 {
		cfg.ReapInterval = DefaultReapInterval
	}
	return &Executor{
		clock:        cfg.Clock,
		reapInterval: cfg.ReapInterval,
		pools:        make(map[string]*pool),
		provisions:   make(map[string]int),
	}
}

// Type returns the task types this executor handles
func (e *Executor) Type() []actorsv1.TaskType {
	return []actorsv1.TaskType{actorsv1.TaskTypeActor}
}

// Start reaps idle pools in the background until ctx is done or Cleanup is called.
// An executor may be started again after Cleanup.
func (e *Executor) Start(ctx context.Context) {
	e.mu.Lock()
	if e.stop == nil {
		e.stop = make(chan struct{})
	}
	stop := e.stop
	e.mu.Unlock()

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		ticker := time.NewTicker(e.reapInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-stop:
				return
			case <-ticker.C:
				e.Reap()
			}
		}
	}()
}

// Execute queues the call on the environment's pool and waits for a replica to serve it
func (e *Executor) Execute(ctx context.Context, call *sdk.Call) (json.RawMessage, error) {
	if call.Env == nil {
		return nil, fmt.Errorf("task %s is not bound to an actor environment", call.TaskName)
	}
	if call.Definition == nil {
		return nil, fmt.Errorf("task %s has no definition", call.TaskName)
	}

	p := e.acquire(call.Env)
	defer e.release(p)

	req := &request{ctx: ctx, call: call, reply: make(chan result, 1)}
	select {
	case p.queue <- req:
	case <-p.quit:
		return nil, ErrPoolStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case res := <-req.reply:
		return res.out, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Reap tears down pools that have been idle for their TTL and returns how many it stopped
func (e *Executor) Reap() int {
	now := e.clock.Now()

	e.mu.Lock()
	var idle []*pool
	for name, p := range e.pools {
		if p.inflight == 0 && now.Sub(p.lastActive) >= p.env.TTL() {
			idle = append(idle, p)
			delete(e.pools, name)
		}
	}
	e.mu.Unlock()

	for _, p := range idle {
		log.Info("Actor environment idle, releasing replicas", "env", p.env.Name(), "ttl", p.env.TTL())
		p.shutdown()
	}
	return len(idle)
}

// Cleanup stops every pool and the background reaper
func (e *Executor) Cleanup(ctx context.Context) error {
	e.mu.Lock()
	if e.stop != nil {
		close(e.stop)
		e.stop = nil
	}
	pools := e.pools
	e.pools = make(map[string]*pool)
	e.mu.Unlock()

	for _, p := range pools {
		p.shutdown()
	}
	e.wg.Wait()
	return nil
}

// Pools returns the live pools sorted by environment name
func (e *Executor) Pools() []PoolStatus {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]PoolStatus, 0, len(e.pools))
	for _, p := range e.pools {
		out = append(out, PoolStatus{
			Env:        p.env.Name(),
			Replicas:   p.replicas,
			InFlight:   p.inflight,
			LastActive: p.lastActive,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Env < out[j].Env })
	return out
}

// Provisions returns how many times the environment's pool has been started
func (e *Executor) Provisions(env string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.provisions[env]
}

func (e *Executor) acquire(env *sdk.ActorEnvironment) *pool {
	e.mu.Lock()
	defer e.mu.Unlock()

	p, ok := e.pools[env.Name()]
	if !ok {
		p = newPool(env)
		e.pools[env.Name()] = p
		e.provisions[env.Name()]++
		log.Info("Provisioned actor environment", "env", env.Name(), "replicas", env.ReplicaCount(), "image", env.Image())
	}
	p.inflight++
	p.lastActive = e.clock.Now()
	return p
}

func (e *Executor) release(p *pool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p.inflight--
	p.lastActive = e.clock.Now()
}

type request struct {
	ctx   context.Context
	call  *sdk.Call
	reply chan result
}

type result struct {
	out json.RawMessage
	err error
}

// pool is guarded by Executor.mu except for its channels
type pool struct {
	env        *sdk.ActorEnvironment
	queue      chan *request
	quit       chan struct{}
	once       sync.Once
	wg         sync.WaitGroup
	replicas   int
	inflight   int
	lastActive time.Time
}

func newPool(env *sdk.ActorEnvironment) *pool {
	p := &pool{
		env:      env,
		queue:    make(chan *request),
		quit:     make(chan struct{}),
		replicas: int(env.ReplicaCount()),
	}
	for i := 0; i < p.replicas; i++ {
		p.wg.Add(1)
		go p.serve(i, sdk.NewCacheScope())
	}
	return p
}

func (p *pool) serve(id int, scope *sdk.CacheScope) {
	defer p.wg.Done()
	for {
		select {
		case <-p.quit:
			return
		case req := <-p.queue:
			log.V(1).Info("Replica serving task", "env", p.env.Name(), "replica", id,
				"run", req.call.RunID, "node", req.call.NodeID, "task", req.call.TaskName)
			out, err := handle(sdk.WithCacheScope(req.ctx, scope), req.call)
			req.reply <- result{out: out, err: err}
		}
	}
}

func (p *pool) shutdown() {
	p.once.Do(func() { close(p.quit) })
	p.wg.Wait()
}

func handle(ctx context.Context, call *sdk.Call) (out json.RawMessage, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task %s panicked: %v", call.TaskName, r)
		}
	}()
	return call.Definition.Handle(ctx, call.Input)
}
