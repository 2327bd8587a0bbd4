package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jshinodea/content-retriever/internal/logging"
	"github.com/jshinodea/content-retriever/pkg/dispatch"
	"github.com/jshinodea/content-retriever/pkg/domain"
	"github.com/jshinodea/content-retriever/pkg/ports"
	"github.com/jshinodea/content-retriever/pkg/protocol"
)

// Sender delivers outbound messages to the peer. *session.Session satisfies
// it; tests use a recording fake.
type Sender interface {
	Send(ctx context.Context, msg protocol.Message) error
}

// Engine wires the dispatch registry to the task state machine, the
// extraction worker, and the persistence collaborator for one session.
//
// Inbound handlers and the worker event pump serialize on one mutex, so
// every transition is atomic with respect to other events on the session.
type Engine struct {
	sessionID string
	sender    Sender
	worker    ports.Worker
	store     ports.SnapshotStore
	logger    *slog.Logger

	mu        sync.Mutex
	machine   *Machine
	selection *domain.Selection

	// editor is rebound whenever a worker snapshot replaces the table.
	editor      *domain.CellEditor
	editorTable *domain.Table
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) { e.logger = logger }
}

// NewEngine creates the per-session orchestration engine.
func NewEngine(sessionID string, sender Sender, worker ports.Worker, store ports.SnapshotStore, opts ...EngineOption) *Engine {
	e := &Engine{
		sessionID: sessionID,
		sender:    sender,
		worker:    worker,
		store:     store,
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.machine = NewMachine(sessionID, e.logger)
	e.selection = domain.NewSelection()
	return e
}

// Register installs the engine's handlers on a session-owned registry.
func (e *Engine) Register(r *dispatch.Registry) {
	r.Register(protocol.TypeStartTask, e.surfaced(e.handleStartTask))
	r.Register(protocol.TypeUserMessage, e.surfaced(e.handleUserMessage))
	r.Register(protocol.TypeEditCells, e.surfaced(e.handleEditCells))
	r.Register(protocol.TypeSaveContent, e.surfaced(e.handleSaveContent))
	r.Register(protocol.TypeContentChange, e.surfaced(e.handleContentChange))
}

// Machine exposes the task state machine, primarily for inspection in tests
// and read-only views by non-owning sessions.
func (e *Engine) Machine() *Machine {
	return e.machine
}

// Selection exposes the current batch-edit selection.
func (e *Engine) Selection() *domain.Selection {
	return e.selection
}

// Editing returns the cell currently in edit mode, or nil.
func (e *Engine) Editing() *domain.CellRef {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.editor == nil {
		return nil
	}
	return e.editor.Editing()
}

// editorFor returns the cell editor bound to the current table, discarding
// any edit that was in flight when the table was replaced.
func (e *Engine) editorFor(table *domain.Table) *domain.CellEditor {
	if e.editor == nil || e.editorTable != table {
		e.editor = domain.NewCellEditor(table)
		e.editorTable = table
	}
	return e.editor
}

// surfaced converts client-facing failures (validation, state, worker) into
// outbound error messages. A surfaced failure is handled, not a handler
// error: state is unchanged and the session continues.
func (e *Engine) surfaced(h dispatch.Handler) dispatch.Handler {
	return func(ctx context.Context, msg protocol.Message) error {
		err := h(ctx, msg)
		if err == nil {
			return nil
		}

		var vErr *domain.ValidationError
		var sErr *domain.StateError
		var wErr *domain.WorkerError
		var pErr *protocol.ProtocolError
		switch {
		case errors.As(err, &vErr), errors.As(err, &sErr), errors.As(err, &wErr),
			errors.As(err, &pErr), errors.Is(err, domain.ErrNoTask):
			e.logger.Info("rejected client request", "type", msg.Type, "err", err)
			if sendErr := e.sender.Send(ctx, protocol.Error(err.Error())); sendErr != nil {
				return fmt.Errorf("surface %v: %w", err, sendErr)
			}
			return nil
		case errors.Is(err, domain.ErrTaskFinished):
			// Late message for a finished task: discarded, already logged.
			return nil
		default:
			return err
		}
	}
}

func (e *Engine) handleStartTask(ctx context.Context, msg protocol.Message) error {
	var p protocol.StartTaskPayload
	if err := protocol.DecodePayload(msg, &p); err != nil {
		return err
	}

	e.mu.Lock()
	err := e.machine.StartTask(p)
	e.mu.Unlock()
	if err != nil {
		if errors.Is(err, domain.ErrTaskActive) {
			return &domain.StateError{State: e.machine.State(), Action: "start_task"}
		}
		return err
	}

	taskID, events, err := e.worker.Start(ctx, ports.StartRequest{
		URL:          p.URL,
		Instructions: p.Instructions,
		Credentials:  p.Credentials,
	})
	if err != nil {
		e.mu.Lock()
		msgs, failErr := e.machine.Fail(fmt.Sprintf("failed to start task: %v", err))
		e.mu.Unlock()
		if failErr != nil {
			return failErr
		}
		e.deliver(ctx, msgs)
		return nil
	}

	e.mu.Lock()
	msgs, err := e.machine.AckStarted(taskID)
	e.mu.Unlock()
	if err != nil {
		return err
	}
	e.deliver(ctx, msgs)

	go e.pumpEvents(ctx, taskID, events)
	return nil
}

func (e *Engine) handleUserMessage(ctx context.Context, msg protocol.Message) error {
	var p protocol.UserMessagePayload
	if err := protocol.DecodePayload(msg, &p); err != nil {
		return err
	}

	e.mu.Lock()
	err := e.machine.UserReply(p.Message)
	taskID := ""
	if e.machine.Task() != nil {
		taskID = e.machine.Task().ID
	}
	e.mu.Unlock()
	if err != nil {
		return err
	}

	if err := e.worker.Resume(ctx, taskID, p.Message); err != nil {
		e.mu.Lock()
		msgs, failErr := e.machine.Fail(fmt.Sprintf("failed to resume task: %v", err))
		e.mu.Unlock()
		if failErr != nil {
			return fmt.Errorf("resume task %s: %w", taskID, err)
		}
		e.deliver(ctx, msgs)
	}
	return nil
}

func (e *Engine) handleEditCells(ctx context.Context, msg protocol.Message) error {
	var p protocol.EditCellsPayload
	if err := protocol.DecodePayload(msg, &p); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	table, err := e.machine.RequireTable("edit_cells")
	if err != nil {
		return err
	}
	if len(p.Cells) == 0 {
		return domain.NewValidationError("cells", "selection is empty")
	}
	e.selection.Replace(p.Cells)

	// Selecting a single cell enters edit mode on it; a pending edit on
	// another cell is discarded first. Batch selections end point editing.
	editor := e.editorFor(table)
	editor.Cancel()
	if len(p.Cells) == 1 {
		if err := editor.Begin(p.Cells[0]); err != nil {
			return domain.NewValidationError("cells", err.Error())
		}
	}
	return nil
}

func (e *Engine) handleSaveContent(ctx context.Context, msg protocol.Message) error {
	var p protocol.SaveContentPayload
	if err := protocol.DecodePayload(msg, &p); err != nil {
		return err
	}

	// save_content never changes task state: it is a request forwarded to
	// the persistence collaborator. It requires a task identifier to exist;
	// without one, no persistence call is made.
	e.mu.Lock()
	task := e.machine.Task()
	if task == nil || task.ID == "" {
		e.mu.Unlock()
		return &domain.StateError{State: e.machine.State(), Action: "save_content"}
	}
	if p.TaskID != "" && p.TaskID != task.ID {
		e.mu.Unlock()
		return domain.NewValidationError("task_id", "does not match the active task")
	}
	if task.Table == nil {
		e.mu.Unlock()
		return &domain.StateError{State: task.State, Action: "save_content"}
	}
	snapshot := task.Table.Snapshot(task.ID)
	e.mu.Unlock()

	if err := e.store.Save(ctx, snapshot); err != nil {
		e.logger.Error("snapshot save failed", "task", snapshot.TaskID, "err", err)
		return e.sender.Send(ctx, protocol.Error(fmt.Sprintf("failed to save content: %v", err)))
	}
	return e.sender.Send(ctx, protocol.AgentMessage("content saved"))
}

func (e *Engine) handleContentChange(ctx context.Context, msg protocol.Message) error {
	var p protocol.ContentChangePayload
	if err := protocol.DecodePayload(msg, &p); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	table, err := e.machine.RequireTable("content_change")
	if err != nil {
		return err
	}

	// A change for the cell in edit mode commits that edit; any other change
	// is a direct point write.
	ref := domain.CellRef{Row: p.Row, Column: p.Column}
	editor := e.editorFor(table)
	if editing := editor.Editing(); editing != nil && *editing == ref {
		// The commit's content_change notification is not echoed back: the
		// peer that sent this change already holds the value, and it is the
		// only client of this session's table.
		if _, err := editor.Commit(p.Value); err != nil {
			return domain.NewValidationError("cell", err.Error())
		}
	} else if err := table.SetCell(p.Row, p.Column, p.Value); err != nil {
		return domain.NewValidationError("cell", err.Error())
	}
	if e.machine.Task() != nil {
		e.machine.Task().Touch()
	}
	return nil
}

// pumpEvents feeds worker events through the same serialized transition
// path as inbound messages. The pump is bound to the task that opened the
// stream: once another task is active, remaining events on this stream are
// discarded, as are events for a finished task.
func (e *Engine) pumpEvents(ctx context.Context, taskID string, events <-chan ports.WorkerEvent) {
	for ev := range events {
		var msgs []protocol.Message
		var err error

		e.mu.Lock()
		if task := e.machine.Task(); task == nil || task.ID != taskID {
			e.mu.Unlock()
			e.logger.Info("discarding event from superseded task", "task", taskID, "event", ev.Type)
			continue
		}
		switch ev.Type {
		case ports.WorkerSnapshot:
			msgs, err = e.machine.ApplySnapshot(ev.Columns, ev.Rows)
		case ports.WorkerPrompt:
			msgs, err = e.machine.RequestInput(ev.Message)
		case ports.WorkerCompleted:
			msgs, err = e.machine.Complete()
		case ports.WorkerFailed:
			msgs, err = e.machine.Fail(ev.Message)
		default:
			err = fmt.Errorf("unknown worker event %q", ev.Type)
		}
		e.mu.Unlock()

		if err != nil {
			if errors.Is(err, domain.ErrTaskFinished) {
				continue
			}
			e.logger.Error("worker event rejected", "event", ev.Type, "err", err)
			continue
		}
		e.deliver(ctx, msgs)
	}
}

// deliver sends outbound messages, logging delivery failures. A lost
// channel surfaces through the session's own notices.
func (e *Engine) deliver(ctx context.Context, msgs []protocol.Message) {
	for _, msg := range msgs {
		if err := e.sender.Send(ctx, msg); err != nil {
			e.logger.Warn("outbound delivery failed", "type", msg.Type, "err", err)
		}
	}
}
