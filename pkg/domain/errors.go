package domain

import (
	"errors"
	"fmt"
)

// ErrNotConnected is returned when a send is attempted without an open channel.
var ErrNotConnected = errors.New("not connected")

// ErrTaskActive is returned when a start is attempted while a task is already running.
var ErrTaskActive = errors.New("a task is already active for this session")

// ErrNoTask is returned when an operation requires a task but none exists.
var ErrNoTask = errors.New("no active task")

// ErrTaskFinished is returned when a message references a task that already
// reached a terminal state. Callers discard the message and log the anomaly.
var ErrTaskFinished = errors.New("task already finished")

// ErrEditInProgress is returned when a cell edit is started while another
// cell is still being edited.
var ErrEditInProgress = errors.New("another cell is being edited")

// ErrNoEditInProgress is returned when a commit arrives without a matching
// begin.
var ErrNoEditInProgress = errors.New("no cell is being edited")

// ErrSnapshotNotFound is returned by snapshot stores when no snapshot exists
// for the requested task.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// ValidationError indicates a request carried invalid or missing data.
// No state transition occurs; the error is surfaced to the originating client.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation failed: %s", e.Reason)
	}
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Reason)
}

// NewValidationError builds a ValidationError for a specific field.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// StateError indicates an action that is not valid in the current task state.
// State remains unchanged.
type StateError struct {
	State  TaskState
	Action string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("action %q is not valid in state %q", e.Action, e.State)
}

// WorkerError indicates a failure reported by the extraction worker.
// It moves the task to Failed but leaves the session connected and reusable.
type WorkerError struct {
	TaskID  string
	Message string
}

func (e *WorkerError) Error() string {
	return fmt.Sprintf("worker failed for task %s: %s", e.TaskID, e.Message)
}
