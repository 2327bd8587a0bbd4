package protocol

import (
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/jshinodea/content-retriever/pkg/domain"
)

// StartTaskPayload carries a request to begin a content-retrieval task.
type StartTaskPayload struct {
	URL          string            `json:"url"`
	Instructions string            `json:"instructions"`
	Credentials  map[string]string `json:"credentials"`
}

// Validate checks the request before any work is dispatched.
func (p *StartTaskPayload) Validate() error {
	if p.URL == "" {
		return domain.NewValidationError("url", "must not be empty")
	}
	if p.Instructions == "" {
		return domain.NewValidationError("instructions", "must not be empty")
	}
	return nil
}

// UserMessagePayload carries the human's reply to a clarification request.
type UserMessagePayload struct {
	Message string `json:"message"`
}

// EditCellsPayload selects cells for batch editing.
type EditCellsPayload struct {
	Cells []domain.CellRef `json:"cells"`
}

// SaveContentPayload requests the current table be handed to the
// persistence collaborator.
type SaveContentPayload struct {
	TaskID string `json:"task_id"`
}

// ContentChangePayload reports a manual point edit from the client.
type ContentChangePayload struct {
	Row    int    `json:"row"`
	Column string `json:"column"`
	Value  string `json:"value"`
}

// TaskStartedPayload acknowledges a started task with its worker-assigned ID.
type TaskStartedPayload struct {
	TaskID string `json:"task_id"`
}

// AgentMessagePayload carries an agent dialogue turn to the client.
type AgentMessagePayload struct {
	Message string `json:"message"`
}

// ContentUpdatePayload carries a full table snapshot. Updates replace the
// previous snapshot; partial tables are valid intermediate states.
type ContentUpdatePayload struct {
	Columns []string            `json:"columns"`
	Rows    []map[string]string `json:"rows"`
}

// ErrorPayload carries a human-readable failure description.
type ErrorPayload struct {
	Message string `json:"message"`
}

// DecodePayload maps a message's content into a typed payload struct.
// JSON numbers arrive as float64 in the generic content map, so weak typing
// is enabled for integer fields like row indices.
func DecodePayload(msg Message, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "json",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return fmt.Errorf("build payload decoder: %w", err)
	}
	if err := dec.Decode(msg.Content); err != nil {
		return &ProtocolError{Reason: fmt.Sprintf("invalid %s payload", msg.Type), Err: err}
	}
	return nil
}

// Outbound message constructors. Content goes through the generic map so the
// encoded shape matches what a decoding peer sees.

// TaskStarted builds a task_started message.
func TaskStarted(taskID string) Message {
	return New(TypeTaskStarted, map[string]any{"task_id": taskID})
}

// AgentMessage builds an agent_message.
func AgentMessage(text string) Message {
	return New(TypeAgentMessage, map[string]any{"message": text})
}

// ContentUpdate builds a content_update carrying a full table snapshot.
func ContentUpdate(columns []string, rows []map[string]string) Message {
	return New(TypeContentUpdate, map[string]any{
		"columns": columns,
		"rows":    rows,
	})
}

// TaskCompleted builds a task_completed message.
func TaskCompleted() Message {
	return New(TypeTaskCompleted, map[string]any{})
}

// Error builds an error message.
func Error(text string) Message {
	return New(TypeError, map[string]any{"message": text})
}
