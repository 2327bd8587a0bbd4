// Package runtime implements the authoritative lifecycle of one
// content-retrieval task: the state machine that sequences worker progress,
// human-in-the-loop clarification, table updates, and completion.
package runtime

import (
	"fmt"
	"log/slog"

	"github.com/jshinodea/content-retriever/internal/logging"
	"github.com/jshinodea/content-retriever/pkg/domain"
	"github.com/jshinodea/content-retriever/pkg/protocol"
)

// Machine holds the task lifecycle for one session. Transition methods take
// the current event and return the outbound messages to deliver to the peer,
// keeping the machine independent of any rendering surface.
//
// All transitions are driven from the session's single event loop, so each
// one is atomic with respect to other messages on the same session.
type Machine struct {
	sessionID string
	task      *domain.Task
	logger    *slog.Logger
}

// NewMachine creates a machine in the Idle state for a session.
func NewMachine(sessionID string, logger *slog.Logger) *Machine {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Machine{sessionID: sessionID, logger: logger}
}

// State returns the current task state, TaskIdle when no task exists.
func (m *Machine) State() domain.TaskState {
	if m.task == nil {
		return domain.TaskIdle
	}
	return m.task.State
}

// Task returns the current task, or nil before the first start.
func (m *Machine) Task() *domain.Task {
	return m.task
}

// StartTask validates the request and moves Idle -> Started. Validation
// happens before any work is dispatched: an invalid request leaves the
// machine untouched. A session has at most one active task at a time.
func (m *Machine) StartTask(p protocol.StartTaskPayload) error {
	if m.task != nil && !m.task.State.Terminal() {
		return domain.ErrTaskActive
	}
	if err := p.Validate(); err != nil {
		return err
	}
	m.task = domain.NewTask(m.sessionID, p.URL, p.Instructions, p.Credentials)
	return nil
}

// AckStarted records the worker-assigned identifier and moves
// Started -> Processing, emitting task_started.
func (m *Machine) AckStarted(taskID string) ([]protocol.Message, error) {
	if m.task == nil || m.task.State != domain.TaskStarted {
		return nil, &domain.StateError{State: m.State(), Action: "acknowledge start"}
	}
	m.task.ID = taskID
	m.task.State = domain.TaskProcessing
	m.task.Touch()
	return []protocol.Message{protocol.TaskStarted(taskID)}, nil
}

// RequestInput moves Processing -> AwaitingUserInput: the worker appends an
// agent dialogue entry and pauses. No table mutation occurs in this state.
func (m *Machine) RequestInput(prompt string) ([]protocol.Message, error) {
	if err := m.requireActive("request input"); err != nil {
		return nil, err
	}
	if m.task.State != domain.TaskProcessing {
		return nil, &domain.StateError{State: m.task.State, Action: "request input"}
	}
	m.task.Dialogue.Append(domain.SenderAgent, prompt)
	m.task.State = domain.TaskAwaitingUserInput
	m.task.Touch()
	return []protocol.Message{protocol.AgentMessage(prompt)}, nil
}

// UserReply moves AwaitingUserInput -> Processing. The reply is appended as
// a user dialogue entry and handed back to the caller for resumption; the
// table is untouched by the act of answering.
func (m *Machine) UserReply(text string) error {
	if err := m.requireActive("user reply"); err != nil {
		return err
	}
	if m.task.State != domain.TaskAwaitingUserInput {
		return &domain.StateError{State: m.task.State, Action: "user reply"}
	}
	m.task.Dialogue.Append(domain.SenderUser, text)
	m.task.State = domain.TaskProcessing
	m.task.Touch()
	return nil
}

// ApplySnapshot handles a worker table update while Processing. Each update
// atomically replaces the table: partial tables are valid intermediate
// states and the emitted content_update is renderable at every step.
func (m *Machine) ApplySnapshot(columns []string, rows []map[string]string) ([]protocol.Message, error) {
	if err := m.requireActive("content update"); err != nil {
		return nil, err
	}
	if m.task.State != domain.TaskProcessing {
		return nil, &domain.StateError{State: m.task.State, Action: "content update"}
	}
	if m.task.Table == nil {
		m.task.Table = domain.NewTable(columns, rows)
	} else {
		m.task.Table.Replace(columns, rows)
	}
	m.task.Touch()
	return []protocol.Message{protocol.ContentUpdate(m.task.Table.Columns(), m.task.Table.Rows())}, nil
}

// Complete moves Processing -> Completed. Afterwards no content_update or
// agent_message is accepted for this task identifier; late messages are
// discarded with a logged anomaly, not surfaced as a user error.
func (m *Machine) Complete() ([]protocol.Message, error) {
	if err := m.requireActive("complete"); err != nil {
		return nil, err
	}
	if m.task.State != domain.TaskProcessing {
		return nil, &domain.StateError{State: m.task.State, Action: "complete"}
	}
	m.task.State = domain.TaskCompleted
	m.task.Touch()
	return []protocol.Message{protocol.TaskCompleted()}, nil
}

// Fail moves any non-terminal state to Failed, carrying a human-readable
// message. The dialogue records it as an agent entry prefixed to distinguish
// it from ordinary content.
func (m *Machine) Fail(message string) ([]protocol.Message, error) {
	if m.task == nil {
		return nil, domain.ErrNoTask
	}
	if m.task.State.Terminal() {
		m.logger.Info("discarding failure for finished task", "task", m.task.ID)
		return nil, domain.ErrTaskFinished
	}
	m.task.Dialogue.Append(domain.SenderAgent, fmt.Sprintf("[error] %s", message))
	m.task.State = domain.TaskFailed
	m.task.Touch()
	return []protocol.Message{protocol.Error(message)}, nil
}

// RequireTable guards operations that are valid only once a table exists,
// i.e. not in Idle or Started.
func (m *Machine) RequireTable(action string) (*domain.Table, error) {
	if m.task == nil {
		return nil, &domain.StateError{State: domain.TaskIdle, Action: action}
	}
	if m.task.Table == nil {
		return nil, &domain.StateError{State: m.task.State, Action: action}
	}
	return m.task.Table, nil
}

// requireActive rejects events for absent or finished tasks. Late worker
// events after a terminal state are an anomaly to discard, not an error to
// surface.
func (m *Machine) requireActive(action string) error {
	if m.task == nil {
		return domain.ErrNoTask
	}
	if m.task.State.Terminal() {
		m.logger.Info("discarding late event for finished task",
			"task", m.task.ID,
			"action", action,
			"state", m.task.State,
		)
		return domain.ErrTaskFinished
	}
	return nil
}
