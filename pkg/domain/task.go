package domain

import "time"

// TaskState defines the lifecycle position of a content-retrieval task.
type TaskState string

const (
	TaskIdle              TaskState = "idle"
	TaskStarted           TaskState = "started"
	TaskProcessing        TaskState = "processing"
	TaskAwaitingUserInput TaskState = "awaiting_user_input"
	TaskCompleted         TaskState = "completed"
	TaskFailed            TaskState = "failed"
)

// Terminal reports whether no further transitions are possible.
func (s TaskState) Terminal() bool {
	return s == TaskCompleted || s == TaskFailed
}

// Task is one in-progress content-retrieval job. A session owns at most one
// active task at a time; the task owns its dialogue and its table.
type Task struct {
	// ID is assigned by the worker on acknowledgment and is required on all
	// subsequent messages referencing the task.
	ID string

	// SessionID identifies the owning session.
	SessionID string

	State TaskState

	URL          string
	Instructions string
	Credentials  map[string]string

	Dialogue *DialogueLog
	Table    *Table

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewTask creates a task in the Started state for the given session.
// Validation of the request happens before construction.
func NewTask(sessionID, url, instructions string, credentials map[string]string) *Task {
	now := time.Now().UTC()
	return &Task{
		SessionID:    sessionID,
		State:        TaskStarted,
		URL:          url,
		Instructions: instructions,
		Credentials:  credentials,
		Dialogue:     NewDialogueLog(),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Touch updates the modification timestamp.
func (t *Task) Touch() {
	t.UpdatedAt = time.Now().UTC()
}
