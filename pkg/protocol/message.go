// Package protocol defines the wire contract between the worker-facing logic
// and interactive clients: typed, timestamped messages exchanged in both
// directions over a duplex channel.
package protocol

import "time"

// MessageType tags a message with its payload shape. The sets below are
// closed; unknown tags decode successfully at the envelope layer but are
// reported as unhandled by the dispatch registry.
type MessageType string

// Inbound types (peer -> worker-facing logic).
const (
	TypeStartTask     MessageType = "start_task"
	TypeUserMessage   MessageType = "user_message"
	TypeEditCells     MessageType = "edit_cells"
	TypeSaveContent   MessageType = "save_content"
	TypeContentChange MessageType = "content_change"
)

// Outbound types (worker-facing logic -> peer).
const (
	TypeTaskStarted   MessageType = "task_started"
	TypeAgentMessage  MessageType = "agent_message"
	TypeContentUpdate MessageType = "content_update"
	TypeTaskCompleted MessageType = "task_completed"
	TypeError         MessageType = "error"
)

var inboundTypes = map[MessageType]bool{
	TypeStartTask:     true,
	TypeUserMessage:   true,
	TypeEditCells:     true,
	TypeSaveContent:   true,
	TypeContentChange: true,
}

var outboundTypes = map[MessageType]bool{
	TypeTaskStarted:   true,
	TypeAgentMessage:  true,
	TypeContentUpdate: true,
	TypeTaskCompleted: true,
	TypeError:         true,
}

// Inbound reports whether t belongs to the closed inbound set.
func (t MessageType) Inbound() bool { return inboundTypes[t] }

// Outbound reports whether t belongs to the closed outbound set.
func (t MessageType) Outbound() bool { return outboundTypes[t] }

// Known reports whether t belongs to either closed set.
func (t MessageType) Known() bool { return inboundTypes[t] || outboundTypes[t] }

// Message is the decoded envelope. Messages are immutable once constructed;
// every message has exactly one type.
type Message struct {
	Type      MessageType
	Content   map[string]any
	Timestamp time.Time
}

// New constructs a message stamped with the current time.
func New(t MessageType, content map[string]any) Message {
	return Message{
		Type:      t,
		Content:   content,
		Timestamp: time.Now().UTC(),
	}
}
