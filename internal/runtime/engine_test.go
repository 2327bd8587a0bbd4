package runtime_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jshinodea/content-retriever/internal/adapters/memory"
	"github.com/jshinodea/content-retriever/internal/runtime"
	"github.com/jshinodea/content-retriever/pkg/dispatch"
	"github.com/jshinodea/content-retriever/pkg/domain"
	"github.com/jshinodea/content-retriever/pkg/ports"
	"github.com/jshinodea/content-retriever/pkg/protocol"
)

// recordingSender captures every outbound message. The worker event pump
// delivers from its own goroutine, so access is guarded.
type recordingSender struct {
	mu   sync.Mutex
	msgs []protocol.Message
}

func (s *recordingSender) Send(ctx context.Context, msg protocol.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, msg)
	return nil
}

func (s *recordingSender) byType(t protocol.MessageType) []protocol.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []protocol.Message
	for _, m := range s.msgs {
		if m.Type == t {
			out = append(out, m)
		}
	}
	return out
}

func (s *recordingSender) count(t protocol.MessageType) int {
	return len(s.byType(t))
}

// recordingStore counts persistence calls on top of the in-memory store.
type recordingStore struct {
	ports.SnapshotStore

	mu    sync.Mutex
	saves []*domain.TableSnapshot
}

func newRecordingStore() *recordingStore {
	return &recordingStore{SnapshotStore: memory.NewStore()}
}

func (s *recordingStore) Save(ctx context.Context, snapshot *domain.TableSnapshot) error {
	s.mu.Lock()
	s.saves = append(s.saves, snapshot)
	s.mu.Unlock()
	return s.SnapshotStore.Save(ctx, snapshot)
}

func (s *recordingStore) saveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.saves)
}

type engineFixture struct {
	engine   *runtime.Engine
	registry *dispatch.Registry
	sender   *recordingSender
	store    *recordingStore
}

func newEngineFixture(t *testing.T, worker ports.Worker) *engineFixture {
	t.Helper()
	f := &engineFixture{
		registry: dispatch.NewRegistry(),
		sender:   &recordingSender{},
		store:    newRecordingStore(),
	}
	f.engine = runtime.NewEngine("sess-1", f.sender, worker, f.store)
	f.engine.Register(f.registry)
	return f
}

func (f *engineFixture) dispatch(t *testing.T, msgType protocol.MessageType, content map[string]any) {
	t.Helper()
	require.NoError(t, f.registry.Dispatch(context.Background(), protocol.New(msgType, content)))
}

func (f *engineFixture) startTask(t *testing.T) {
	t.Helper()
	f.dispatch(t, protocol.TypeStartTask, map[string]any{
		"url":          "https://example.com",
		"instructions": "extract titles",
	})
}

func (f *engineFixture) waitForState(t *testing.T, want domain.TaskState) {
	t.Helper()
	require.Eventually(t, func() bool {
		return f.engine.Machine().State() == want
	}, time.Second, 5*time.Millisecond, "never reached state %s", want)
}

func TestEngine_HappyPath(t *testing.T) {
	f := newEngineFixture(t, memory.DemoWorker())

	f.startTask(t)
	f.waitForState(t, domain.TaskCompleted)

	// One acknowledgement, progressive updates, one completion.
	assert.Equal(t, 1, f.sender.count(protocol.TypeTaskStarted))
	assert.Equal(t, 2, f.sender.count(protocol.TypeContentUpdate))
	assert.Equal(t, 1, f.sender.count(protocol.TypeTaskCompleted))
	assert.Equal(t, 0, f.sender.count(protocol.TypeError))

	// The final visible table is the last snapshot, fully replacing earlier
	// ones.
	table := f.engine.Machine().Task().Table
	require.NotNil(t, table)
	assert.Equal(t, []string{"title", "summary"}, table.Columns())
	assert.Equal(t, 2, table.RowCount())
}

func TestEngine_ClarificationRoundTrip(t *testing.T) {
	worker := memory.NewScriptedWorker(
		ports.WorkerEvent{Type: ports.WorkerSnapshot, Columns: []string{"title"}, Rows: []map[string]string{{"title": "A"}}},
		ports.WorkerEvent{Type: ports.WorkerPrompt, Message: "which fields?"},
		ports.WorkerEvent{Type: ports.WorkerSnapshot, Columns: []string{"title"}, Rows: []map[string]string{{"title": "B"}}},
		ports.WorkerEvent{Type: ports.WorkerCompleted},
	)
	f := newEngineFixture(t, worker)

	f.startTask(t)
	f.waitForState(t, domain.TaskAwaitingUserInput)

	prompts := f.sender.byType(protocol.TypeAgentMessage)
	require.Len(t, prompts, 1)
	assert.Equal(t, "which fields?", prompts[0].Content["message"])

	f.dispatch(t, protocol.TypeUserMessage, map[string]any{"message": "just titles"})
	f.waitForState(t, domain.TaskCompleted)

	// The post-reply snapshot fully replaced the pre-prompt one.
	table := f.engine.Machine().Task().Table
	v, err := table.Cell(0, "title")
	require.NoError(t, err)
	assert.Equal(t, "B", v)

	entries := f.engine.Machine().Task().Dialogue.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, domain.SenderAgent, entries[0].Sender)
	assert.Equal(t, domain.SenderUser, entries[1].Sender)
	assert.Equal(t, "just titles", entries[1].Text)
}

func TestEngine_EmptyInstructionsRejectedBeforeAck(t *testing.T) {
	f := newEngineFixture(t, memory.DemoWorker())

	f.dispatch(t, protocol.TypeStartTask, map[string]any{
		"url":          "https://example.com",
		"instructions": "",
	})

	// Rejected before any acknowledgement: an error went out, no
	// task_started ever did, and no task exists.
	assert.Equal(t, 1, f.sender.count(protocol.TypeError))
	assert.Equal(t, 0, f.sender.count(protocol.TypeTaskStarted))
	assert.Equal(t, domain.TaskIdle, f.engine.Machine().State())
	assert.Nil(t, f.engine.Machine().Task())
}

func TestEngine_SecondStartWhileActiveRejected(t *testing.T) {
	worker := memory.NewScriptedWorker(
		ports.WorkerEvent{Type: ports.WorkerPrompt, Message: "hold"},
	)
	f := newEngineFixture(t, worker)

	f.startTask(t)
	f.waitForState(t, domain.TaskAwaitingUserInput)
	firstID := f.engine.Machine().Task().ID

	f.startTask(t)

	assert.Equal(t, 1, f.sender.count(protocol.TypeError))
	assert.Equal(t, 1, f.sender.count(protocol.TypeTaskStarted))
	assert.Equal(t, firstID, f.engine.Machine().Task().ID)
}

func TestEngine_UserMessageWithoutTask(t *testing.T) {
	f := newEngineFixture(t, memory.DemoWorker())

	f.dispatch(t, protocol.TypeUserMessage, map[string]any{"message": "anyone there?"})

	assert.Equal(t, 1, f.sender.count(protocol.TypeError))
}

func TestEngine_SaveContentWithoutTask(t *testing.T) {
	f := newEngineFixture(t, memory.DemoWorker())

	f.dispatch(t, protocol.TypeSaveContent, map[string]any{})

	// A state error is surfaced to the client and the persistence
	// collaborator is never called.
	assert.Equal(t, 1, f.sender.count(protocol.TypeError))
	assert.Equal(t, 0, f.store.saveCount())
}

func TestEngine_SaveContent(t *testing.T) {
	f := newEngineFixture(t, memory.DemoWorker())

	f.startTask(t)
	f.waitForState(t, domain.TaskCompleted)
	taskID := f.engine.Machine().Task().ID

	f.dispatch(t, protocol.TypeSaveContent, map[string]any{"task_id": taskID})

	require.Equal(t, 1, f.store.saveCount())
	saved, err := f.store.Load(context.Background(), taskID)
	require.NoError(t, err)
	assert.Equal(t, []string{"title", "summary"}, saved.Columns)
	assert.Equal(t, 2, len(saved.Rows))

	acks := f.sender.byType(protocol.TypeAgentMessage)
	require.NotEmpty(t, acks)
	assert.Equal(t, "content saved", acks[len(acks)-1].Content["message"])
}

func TestEngine_SaveContentMismatchedTaskID(t *testing.T) {
	f := newEngineFixture(t, memory.DemoWorker())

	f.startTask(t)
	f.waitForState(t, domain.TaskCompleted)

	f.dispatch(t, protocol.TypeSaveContent, map[string]any{"task_id": "someone-else"})

	assert.Equal(t, 1, f.sender.count(protocol.TypeError))
	assert.Equal(t, 0, f.store.saveCount())
}

func TestEngine_EditCells(t *testing.T) {
	f := newEngineFixture(t, memory.DemoWorker())

	f.startTask(t)
	f.waitForState(t, domain.TaskCompleted)

	f.dispatch(t, protocol.TypeEditCells, map[string]any{
		"cells": []map[string]any{
			{"row": 0, "column": "title"},
			{"row": 1, "column": "title"},
		},
	})

	sel := f.engine.Selection()
	assert.Equal(t, 2, sel.Len())
	assert.True(t, sel.Contains(domain.CellRef{Row: 0, Column: "title"}))
	assert.True(t, sel.Contains(domain.CellRef{Row: 1, Column: "title"}))
}

func TestEngine_EditCellsEmptySelectionRejected(t *testing.T) {
	f := newEngineFixture(t, memory.DemoWorker())

	f.startTask(t)
	f.waitForState(t, domain.TaskCompleted)

	f.dispatch(t, protocol.TypeEditCells, map[string]any{"cells": []map[string]any{}})

	assert.Equal(t, 1, f.sender.count(protocol.TypeError))
	assert.Equal(t, 0, f.engine.Selection().Len())
}

func TestEngine_EditCellsBeforeAnyTable(t *testing.T) {
	f := newEngineFixture(t, memory.DemoWorker())

	f.dispatch(t, protocol.TypeEditCells, map[string]any{
		"cells": []map[string]any{{"row": 0, "column": "title"}},
	})

	assert.Equal(t, 1, f.sender.count(protocol.TypeError))
}

func TestEngine_SingleCellSelectionEntersEditMode(t *testing.T) {
	f := newEngineFixture(t, memory.DemoWorker())

	f.startTask(t)
	f.waitForState(t, domain.TaskCompleted)

	f.dispatch(t, protocol.TypeEditCells, map[string]any{
		"cells": []map[string]any{{"row": 0, "column": "title"}},
	})

	editing := f.engine.Editing()
	require.NotNil(t, editing)
	assert.Equal(t, domain.CellRef{Row: 0, Column: "title"}, *editing)

	// The matching change commits the edit and leaves edit mode. Nothing is
	// echoed back to the peer that sent the change.
	outboundBefore := len(f.sender.byType(protocol.TypeContentUpdate)) + len(f.sender.byType(protocol.TypeAgentMessage))
	f.dispatch(t, protocol.TypeContentChange, map[string]any{
		"row": 0, "column": "title", "value": "Edited",
	})
	assert.Nil(t, f.engine.Editing())
	outboundAfter := len(f.sender.byType(protocol.TypeContentUpdate)) + len(f.sender.byType(protocol.TypeAgentMessage))
	assert.Equal(t, outboundBefore, outboundAfter)

	v, err := f.engine.Machine().Task().Table.Cell(0, "title")
	require.NoError(t, err)
	assert.Equal(t, "Edited", v)
}

func TestEngine_BatchSelectionEndsEditMode(t *testing.T) {
	f := newEngineFixture(t, memory.DemoWorker())

	f.startTask(t)
	f.waitForState(t, domain.TaskCompleted)

	f.dispatch(t, protocol.TypeEditCells, map[string]any{
		"cells": []map[string]any{{"row": 0, "column": "title"}},
	})
	require.NotNil(t, f.engine.Editing())

	f.dispatch(t, protocol.TypeEditCells, map[string]any{
		"cells": []map[string]any{
			{"row": 0, "column": "title"},
			{"row": 1, "column": "title"},
		},
	})
	assert.Nil(t, f.engine.Editing())
}

func TestEngine_ContentChange(t *testing.T) {
	f := newEngineFixture(t, memory.DemoWorker())

	f.startTask(t)
	f.waitForState(t, domain.TaskCompleted)

	f.dispatch(t, protocol.TypeContentChange, map[string]any{
		"row": 0, "column": "title", "value": "Edited title",
	})

	v, err := f.engine.Machine().Task().Table.Cell(0, "title")
	require.NoError(t, err)
	assert.Equal(t, "Edited title", v)
}

func TestEngine_ContentChangeUnknownCellRejected(t *testing.T) {
	f := newEngineFixture(t, memory.DemoWorker())

	f.startTask(t)
	f.waitForState(t, domain.TaskCompleted)

	f.dispatch(t, protocol.TypeContentChange, map[string]any{
		"row": 99, "column": "title", "value": "x",
	})

	assert.Equal(t, 1, f.sender.count(protocol.TypeError))
}

// manualWorker hands out streams the test pushes events on directly, with
// sequential task IDs and a controllable Resume outcome.
type manualWorker struct {
	mu        sync.Mutex
	streams   []chan ports.WorkerEvent
	resumeErr error
}

func (w *manualWorker) Start(ctx context.Context, req ports.StartRequest) (string, <-chan ports.WorkerEvent, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	ch := make(chan ports.WorkerEvent, 8)
	w.streams = append(w.streams, ch)
	return fmt.Sprintf("task-%d", len(w.streams)), ch, nil
}

func (w *manualWorker) Resume(ctx context.Context, taskID, userText string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.resumeErr
}

func (w *manualWorker) stream(n int) chan ports.WorkerEvent {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.streams[n-1]
}

func TestEngine_ResumeFailureFailsTask(t *testing.T) {
	worker := &manualWorker{resumeErr: errors.New("worker went away")}
	f := newEngineFixture(t, worker)

	f.startTask(t)
	worker.stream(1) <- ports.WorkerEvent{Type: ports.WorkerPrompt, Message: "?"}
	f.waitForState(t, domain.TaskAwaitingUserInput)

	f.dispatch(t, protocol.TypeUserMessage, map[string]any{"message": "go on"})
	f.waitForState(t, domain.TaskFailed)

	errs := f.sender.byType(protocol.TypeError)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Content["message"], "failed to resume task")
}

func TestEngine_StaleStreamCannotTouchSuccessor(t *testing.T) {
	worker := &manualWorker{resumeErr: errors.New("worker went away")}
	f := newEngineFixture(t, worker)

	// First task fails through the resume path, leaving its stream open.
	f.startTask(t)
	worker.stream(1) <- ports.WorkerEvent{Type: ports.WorkerPrompt, Message: "?"}
	f.waitForState(t, domain.TaskAwaitingUserInput)
	f.dispatch(t, protocol.TypeUserMessage, map[string]any{"message": "go on"})
	f.waitForState(t, domain.TaskFailed)

	// Second task is live when a late snapshot arrives on the dead stream.
	f.startTask(t)
	f.waitForState(t, domain.TaskProcessing)
	require.Equal(t, "task-2", f.engine.Machine().Task().ID)

	worker.stream(1) <- ports.WorkerEvent{
		Type:    ports.WorkerSnapshot,
		Columns: []string{"stale"},
		Rows:    []map[string]string{{"stale": "task-1 leftovers"}},
	}
	time.Sleep(50 * time.Millisecond)

	assert.Nil(t, f.engine.Machine().Task().Table, "stale event must not build the new task's table")
	assert.Equal(t, 0, f.sender.count(protocol.TypeContentUpdate))

	// The live stream still drives the new task.
	worker.stream(2) <- ports.WorkerEvent{
		Type:    ports.WorkerSnapshot,
		Columns: []string{"title"},
		Rows:    []map[string]string{{"title": "current"}},
	}
	require.Eventually(t, func() bool {
		return f.sender.count(protocol.TypeContentUpdate) == 1
	}, time.Second, 5*time.Millisecond)

	v, err := f.engine.Machine().Task().Table.Cell(0, "title")
	require.NoError(t, err)
	assert.Equal(t, "current", v)
}

func TestEngine_WorkerFailureSurfacesError(t *testing.T) {
	worker := memory.NewScriptedWorker(
		ports.WorkerEvent{Type: ports.WorkerFailed, Message: "navigation timed out"},
	)
	f := newEngineFixture(t, worker)

	f.startTask(t)
	f.waitForState(t, domain.TaskFailed)

	errs := f.sender.byType(protocol.TypeError)
	require.Len(t, errs, 1)
	assert.Equal(t, "navigation timed out", errs[0].Content["message"])
}
