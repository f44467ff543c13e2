package sdk

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"
)

// CacheScope holds values memoized by ActorCaches for the lifetime of one actor replica.
type CacheScope struct {
	mu      sync.RWMutex
	entries map[string]any
	group   singleflight.Group
}

// NewCacheScope returns an empty scope
func NewCacheScope() *CacheScope {
	return &CacheScope{entries: make(map[string]any)}
}

// Len returns the number of cached entries
func (s *CacheScope) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Clear drops every entry
func (s *CacheScope) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]any)
}

func (s *CacheScope) get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.entries[key]
	return v, ok
}

// load runs fn at most once per key. fn is shared by every concurrent caller,
// so it must not depend on any one caller's cancellation; a caller whose ctx
// ends stops waiting without aborting the load for the others.
func (s *CacheScope) load(ctx context.Context, key string, fn func() (any, error)) (any, error) {
	if v, ok := s.get(key); ok {
		return v, nil
	}
	ch := s.group.DoChan(key, func() (any, error) {
		if v, ok := s.get(key); ok {
			return v, nil
		}
		v, err := fn()
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		s.entries[key] = v
		s.mu.Unlock()
		return v, nil
	})
	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type cacheScopeKey struct{}

// WithCacheScope attaches scope to ctx
func WithCacheScope(ctx context.Context, scope *CacheScope) context.Context {
	return context.WithValue(ctx, cacheScopeKey{}, scope)
}

// CacheScopeFrom returns the scope attached to ctx, or nil
func CacheScopeFrom(ctx context.Context) *CacheScope {
	scope, _ := ctx.Value(cacheScopeKey{}).(*CacheScope)
	return scope
}

// ActorCache memoizes an expensive loader on the actor replica that runs the task.
// Outside an actor scope the loader runs on every call.
type ActorCache[K comparable, V any] struct {
	name string
	load func(context.Context, K) (V, error)
}

// NewActorCache wraps load. name must be unique among the caches of a program.
func NewActorCache[K comparable, V any](name string, load func(context.Context, K) (V, error)) *ActorCache[K, V] {
	return &ActorCache[K, V]{name: name, load: load}
}

// Get returns the cached value for key, loading it on first use
func (c *ActorCache[K, V]) Get(ctx context.Context, key K) (V, error) {
	scope := CacheScopeFrom(ctx)
	if scope == nil {
		return c.load(ctx, key)
	}
	loadCtx := context.WithoutCancel(ctx)
	v, err := scope.load(ctx, fmt.Sprintf("%s/%v", c.name, key), func() (any, error) {
		return c.load(loadCtx, key)
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return v.(V), nil
}
