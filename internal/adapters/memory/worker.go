package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/jshinodea/content-retriever/pkg/domain"
	"github.com/jshinodea/content-retriever/pkg/ports"
)

// ScriptedWorker implements ports.Worker by replaying a fixed event script.
// A prompt step pauses the script until Resume delivers the user's reply,
// mirroring how a real extraction worker waits for clarification.
//
// Used by engine tests and by the demo serve mode; real extraction plugs in
// behind the same port.
type ScriptedWorker struct {
	script []ports.WorkerEvent

	mu     sync.Mutex
	resume map[string]chan string
}

// NewScriptedWorker creates a worker that will replay the given events for
// every started task.
func NewScriptedWorker(script ...ports.WorkerEvent) *ScriptedWorker {
	return &ScriptedWorker{
		script: script,
		resume: make(map[string]chan string),
	}
}

// Start assigns a task ID and begins replaying the script.
func (w *ScriptedWorker) Start(ctx context.Context, req ports.StartRequest) (string, <-chan ports.WorkerEvent, error) {
	taskID := uuid.NewString()
	resume := make(chan string, 1)

	w.mu.Lock()
	w.resume[taskID] = resume
	w.mu.Unlock()

	events := make(chan ports.WorkerEvent)
	go w.replay(ctx, taskID, resume, events)
	return taskID, events, nil
}

// Resume hands the user's reply to a paused script.
func (w *ScriptedWorker) Resume(ctx context.Context, taskID, userText string) error {
	w.mu.Lock()
	resume, ok := w.resume[taskID]
	w.mu.Unlock()
	if !ok {
		return &domain.WorkerError{TaskID: taskID, Message: "unknown task"}
	}

	select {
	case resume <- userText:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *ScriptedWorker) replay(ctx context.Context, taskID string, resume <-chan string, events chan<- ports.WorkerEvent) {
	defer close(events)
	defer func() {
		w.mu.Lock()
		delete(w.resume, taskID)
		w.mu.Unlock()
	}()

	for _, ev := range w.script {
		select {
		case events <- ev:
		case <-ctx.Done():
			return
		}

		if ev.Type == ports.WorkerPrompt {
			select {
			case <-resume:
			case <-ctx.Done():
				return
			}
		}
	}
}

// DemoWorker returns a scripted worker producing a small progressive table,
// useful for exercising the full protocol flow end to end.
func DemoWorker() *ScriptedWorker {
	return NewScriptedWorker(
		ports.WorkerEvent{
			Type:    ports.WorkerSnapshot,
			Columns: []string{"title"},
			Rows:    []map[string]string{{"title": "First result"}},
		},
		ports.WorkerEvent{
			Type:    ports.WorkerSnapshot,
			Columns: []string{"title", "summary"},
			Rows: []map[string]string{
				{"title": "First result", "summary": "Generated summary"},
				{"title": "Second result", "summary": "Another summary"},
			},
		},
		ports.WorkerEvent{Type: ports.WorkerCompleted},
	)
}
