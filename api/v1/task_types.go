package v1

// TaskType defines how a task is executed
type TaskType string

const (
	// TaskTypeFunction runs once in a fresh environment per call
	TaskTypeFunction TaskType = "Function"
	// TaskTypeActor runs on a warm replica of an ActorEnvironment
	TaskTypeActor TaskType = "Actor"
)

// TaskState represents the current state of an individual task or workflow run.
type TaskState string

const (
	StatePending   TaskState = "Pending"
	StateRunning   TaskState = "Running"
	StateCompleted TaskState = "Completed"
	StateFailed    TaskState = "Failed"
)

// IsFinal reports whether the state is terminal
func (s TaskState) IsFinal() bool {
	return s == StateCompleted || s == StateFailed
}
