package actorserver

import "encoding/json"

// DefaultPort is the port actor replicas listen on
const DefaultPort = 8080

// InvokeRequest is the body of POST /v1/tasks/{task}
type InvokeRequest struct {
	RunID  string          `json:"runId,omitempty"`
	NodeID string          `json:"nodeId,omitempty"`
	Input  json.RawMessage `json:"input"`
}

// InvokeResponse carries either the task output or its error
type InvokeResponse struct {
	Output json.RawMessage `json:"output,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// TaskPath returns the invocation path for task
func TaskPath(task string) string {
	return "/v1/tasks/" + task
}
