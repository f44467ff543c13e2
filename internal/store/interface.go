// Package store provides storage interfaces for workflow run history.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	actorsv1 "github.com/kination/actorflow/api/v1"
)

// ErrNotFound is returned when a run does not exist
var ErrNotFound = errors.New("not found")

// Store defines the interface for workflow run persistence.
type Store interface {
	// Run operations
	SaveRun(ctx context.Context, run *WorkflowRun) error
	GetRun(ctx context.Context, runID string) (*WorkflowRun, error)
	ListRuns(ctx context.Context, workflow string, opts ListOptions) ([]*WorkflowRun, error)

	// SaveTaskRun inserts or replaces the task run with the same node id
	SaveTaskRun(ctx context.Context, runID string, task *TaskRun) error

	// Health check
	Ping(ctx context.Context) error

	// Close releases resources
	Close() error
}

// ListOptions defines options for listing operations
type ListOptions struct {
	// Limit is the maximum number of items to return
	Limit int
	// Offset is the number of items to skip
	Offset int
	// State filters by run state
	State actorsv1.TaskState
}

// WorkflowRun represents one execution of a workflow
type WorkflowRun struct {
	// RunID is a unique identifier for this run
	RunID string
	// Workflow is the registered workflow name
	Workflow string
	// Mode is "local" or "remote"
	Mode string
	// StartTime is when the run started
	StartTime time.Time
	// EndTime is when the run finished
	EndTime *time.Time
	// State is the state of the run
	State actorsv1.TaskState
	// Result is the JSON-encoded workflow result
	Result json.RawMessage
	// TaskRuns contains each task call in node order
	TaskRuns []TaskRun
	// Message contains the failure reason, if any
	Message string
}

// TaskRun represents a task call within a workflow run
type TaskRun struct {
	NodeID    string
	TaskName  string
	Env       string
	Upstream  []string
	State     actorsv1.TaskState
	StartTime time.Time
	EndTime   *time.Time
	Attempts  int
	Input     json.RawMessage
	Output    json.RawMessage
	Message   string
}

// StoreConfig holds configuration for creating a store
type StoreConfig struct {
	// Type is the store backend type (memory, sqlite)
	Type StoreType
	// ConnectionString is the connection string for the backend
	ConnectionString string
	// MaxConnections is the maximum number of connections
	MaxConnections int
	// Timeout is the default operation timeout
	Timeout time.Duration
}

// StoreType defines the type of store backend
type StoreType string

const (
	// StoreTypeMemory keeps runs in process memory
	StoreTypeMemory StoreType = "memory"
	// StoreTypeSQLite persists runs to a SQLite database file
	StoreTypeSQLite StoreType = "sqlite"
)

// DefaultStoreConfig returns the default store configuration
func DefaultStoreConfig() StoreConfig {
	return StoreConfig{
		Type:           StoreTypeMemory,
		MaxConnections: 10,
		Timeout:        30 * time.Second,
	}
}

// UpsertTaskRun replaces the task run with the same node id or appends it
func (r *WorkflowRun) UpsertTaskRun(task TaskRun) {
	for i := range r.TaskRuns {
		if r.TaskRuns[i].NodeID == task.NodeID {
			r.TaskRuns[i] = task
			return
		}
	}
	r.TaskRuns = append(r.TaskRuns, task)
}
