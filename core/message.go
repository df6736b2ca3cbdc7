package core

import (
	"time"

	"github.com/hupe1980/taskmesh/internal/util"
)

// MessageKind categorizes entries in a task's message log.
type MessageKind string

const (
	// MessageKindText is a plain user or assistant turn.
	MessageKindText MessageKind = "text"
	// MessageKindToolCall records that a tool invocation was issued.
	MessageKindToolCall MessageKind = "tool_call"
	// MessageKindToolResult records a tool outcome.
	MessageKindToolResult MessageKind = "tool_result"
	// MessageKindGuidance is a synthetic corrective message injected when the
	// consecutive-mistake limit is reached.
	MessageKindGuidance MessageKind = "guidance"
	// MessageKindCompletion is the completion marker logged when the model
	// declares the task finished.
	MessageKindCompletion MessageKind = "completion"
	// MessageKindError records a loop-level failure surfaced to the caller.
	MessageKindError MessageKind = "error"
)

// Message is one entry in a task's message log. The message log is the
// user-facing transcript and is distinct from the model-conversation history;
// it additionally carries partial-streaming markers and completion markers.
// After being appended a message should be treated as immutable.
type Message struct {
	ID        string      `json:"id"`
	Role      string      `json:"role"` // user or assistant
	Kind      MessageKind `json:"kind"`
	Text      string      `json:"text"`
	Partial   bool        `json:"partial,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// NewMessage creates a message with a fresh id and UTC timestamp.
func NewMessage(role string, kind MessageKind, text string) Message {
	return Message{
		ID:        NewID(),
		Role:      role,
		Kind:      kind,
		Text:      text,
		Timestamp: time.Now().UTC(),
	}
}

// IsCompletionMarker reports whether this message signals task completion.
func (m Message) IsCompletionMarker() bool { return m.Kind == MessageKindCompletion }

// NewID generates a new unique identifier for tasks, messages and tool calls.
func NewID() string { return util.NewID() }
