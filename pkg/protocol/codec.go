package protocol

import (
	"encoding/json"
	"fmt"
	"time"
)

// ProtocolError indicates a frame that could not be decoded: malformed JSON,
// a missing type tag, or an unparseable timestamp. It is logged and the
// session continues; it never terminates a connection.
type ProtocolError struct {
	Reason string
	Err    error
}

func (e *ProtocolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("protocol error: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("protocol error: %s", e.Reason)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// wireMessage is the JSON shape on the wire:
// {"type": <tag>, "content": <object>, "timestamp": <ISO-8601 string>}.
type wireMessage struct {
	Type      string         `json:"type"`
	Content   map[string]any `json:"content"`
	Timestamp string         `json:"timestamp"`
}

// Encode serializes a message into a wire frame.
func Encode(msg Message) ([]byte, error) {
	ts := msg.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	frame, err := json.Marshal(wireMessage{
		Type:      string(msg.Type),
		Content:   msg.Content,
		Timestamp: ts.Format(time.RFC3339Nano),
	})
	if err != nil {
		return nil, fmt.Errorf("encode %s message: %w", msg.Type, err)
	}
	return frame, nil
}

// Decode parses a wire frame into a Message. It is pure and side-effect-free.
// Unknown types decode successfully; the dispatch registry reports them as
// unhandled. A frame without a type, or with malformed JSON, yields a
// *ProtocolError.
func Decode(frame []byte) (Message, error) {
	var wire wireMessage
	if err := json.Unmarshal(frame, &wire); err != nil {
		return Message{}, &ProtocolError{Reason: "malformed frame", Err: err}
	}
	if wire.Type == "" {
		return Message{}, &ProtocolError{Reason: "missing message type"}
	}

	var ts time.Time
	if wire.Timestamp != "" {
		parsed, err := time.Parse(time.RFC3339Nano, wire.Timestamp)
		if err != nil {
			return Message{}, &ProtocolError{Reason: "invalid timestamp", Err: err}
		}
		ts = parsed
	}

	content := wire.Content
	if content == nil {
		content = map[string]any{}
	}

	return Message{
		Type:      MessageType(wire.Type),
		Content:   content,
		Timestamp: ts,
	}, nil
}
