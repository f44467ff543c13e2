package connector

import (
	"fmt"
	"sort"
	"sync"
)

// Registry manages connector registration and lookup
type Registry struct {
	mu         sync.RWMutex
	connectors map[string]ModelConnector
}

// NewRegistry creates a new connector registry
func NewRegistry() *Registry {
	return &Registry{
		connectors: make(map[string]ModelConnector),
	}
}

// Register adds a model connector to the registry
func (r *Registry) Register(conn ModelConnector) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.connectors[conn.Type()] = conn
}

// Get retrieves a model connector
func (r *Registry) Get(connType string) (ModelConnector, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, ok := r.connectors[connType]
	if !ok {
		return nil, fmt.Errorf("no model connector registered for type: %s", connType)
	}
	return conn, nil
}

// Has checks if a connector is registered
func (r *Registry) Has(connType string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.connectors[connType]
	return ok
}

// Types returns all registered connector types, sorted
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.connectors))
	for t := range r.connectors {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
