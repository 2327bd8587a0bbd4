package domain

import "time"

// Sender identifies the author of a dialogue entry.
type Sender string

const (
	SenderAgent Sender = "agent"
	SenderUser  Sender = "user"
)

// DialogueEntry is a single turn in the agent/user exchange.
type DialogueEntry struct {
	Sender    Sender    `json:"sender"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// DialogueLog is the ordered, append-only record of agent/user turns.
// Entries are never edited or removed; corrections take the form of new
// entries, preserving an auditable transcript.
//
// The log is mutated only through the task state machine, which serializes
// access per session, so no internal locking is needed.
type DialogueLog struct {
	entries []DialogueEntry
}

// NewDialogueLog creates an empty log.
func NewDialogueLog() *DialogueLog {
	return &DialogueLog{}
}

// Append adds an entry stamped with the current time and returns it.
func (l *DialogueLog) Append(sender Sender, text string) DialogueEntry {
	entry := DialogueEntry{
		Sender:    sender,
		Text:      text,
		Timestamp: time.Now().UTC(),
	}
	l.entries = append(l.entries, entry)
	return entry
}

// Entries returns a copy of the ordered sequence. Rendering is a pure
// projection of this slice.
func (l *DialogueLog) Entries() []DialogueEntry {
	out := make([]DialogueEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of entries.
func (l *DialogueLog) Len() int {
	return len(l.entries)
}
