package ports

import "context"

// WorkerEventType categorizes events on a worker's output stream.
type WorkerEventType string

const (
	// WorkerSnapshot carries a full table snapshot to replace the current one.
	WorkerSnapshot WorkerEventType = "snapshot"

	// WorkerPrompt asks the human for clarification; the worker pauses until
	// Resume is called with the reply.
	WorkerPrompt WorkerEventType = "prompt"

	// WorkerCompleted signals successful completion of the task.
	WorkerCompleted WorkerEventType = "completed"

	// WorkerFailed signals an unrecoverable extraction failure.
	WorkerFailed WorkerEventType = "failed"
)

// WorkerEvent is one item on the worker's output stream.
type WorkerEvent struct {
	Type WorkerEventType

	// Columns and Rows are set for WorkerSnapshot.
	Columns []string
	Rows    []map[string]string

	// Message is the prompt text for WorkerPrompt or the failure description
	// for WorkerFailed.
	Message string
}

// StartRequest carries the validated inputs for a new task.
type StartRequest struct {
	URL          string
	Instructions string
	Credentials  map[string]string
}

// Worker is the extraction/generation capability. It produces a stream of
// table snapshots and dialogue prompts, and accepts resumed input keyed by
// task identifier. How content is extracted is outside the core's scope.
type Worker interface {
	// Start begins a task, returning the worker-assigned task identifier and
	// the event stream. The stream is closed after a terminal event.
	Start(ctx context.Context, req StartRequest) (taskID string, events <-chan WorkerEvent, err error)

	// Resume hands the human's reply to a paused task.
	Resume(ctx context.Context, taskID, userText string) error
}
