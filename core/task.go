package core

import (
	"sync"
	"time"
)

// TodoStatus is the lifecycle state of a single todo item.
type TodoStatus string

const (
	// TodoPending indicates the item has not been started.
	TodoPending TodoStatus = "pending"
	// TodoInProgress indicates the item is actively being worked.
	TodoInProgress TodoStatus = "in_progress"
	// TodoCompleted indicates the item is done.
	TodoCompleted TodoStatus = "completed"
)

// TodoItem is one entry in a task's todo list.
type TodoItem struct {
	ID      string     `json:"id"`
	Content string     `json:"content"`
	Status  TodoStatus `json:"status"`
}

// Task represents one agent session: identity, workspace, mutable status,
// metadata, the ordered message log, the ordered model-conversation history
// (distinct from the message log; includes tool-result entries), the todo
// list and the consecutive-mistake counter.
//
// Contract:
//   - A task is owned exclusively by its execution loop; external actors read
//     snapshots (MessagesSnapshot, HistorySnapshot, Clone) and issue
//     abort/pause/resume commands through the engine, never direct mutation.
//   - Mutations update the Updated timestamp.
//   - Exactly one execution loop runs per task at a time.
type Task struct {
	ID            string    `json:"id"`
	RunID         string    `json:"run_id"`
	WorkspacePath string    `json:"workspace_path"`
	Prompt        string    `json:"prompt"`
	Images        []string  `json:"images,omitempty"`
	Status        Status    `json:"status"`
	Error         string    `json:"error,omitempty"`
	Created       time.Time `json:"created"`
	Updated       time.Time `json:"updated"`

	messages     []Message
	history      []Content
	todos        []TodoItem
	mistakeCount int

	mu sync.RWMutex
}

// NewTask creates a pending task bound to a workspace.
func NewTask(id, workspacePath string) *Task {
	now := time.Now().UTC()
	return &Task{
		ID:            id,
		WorkspacePath: workspacePath,
		Status:        StatusPending,
		Created:       now,
		Updated:       now,
	}
}

// BeginRun resets the message log, conversation history, mistake counter and
// run metadata for a fresh run. Prior-run state never leaks into the new run.
func (t *Task) BeginRun(runID, prompt string, images []string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.RunID = runID
	t.Prompt = prompt
	t.Images = images
	t.messages = nil
	t.history = nil
	t.mistakeCount = 0
	t.Updated = time.Now().UTC()
}

// SetStatus records the task's lifecycle state.
func (t *Task) SetStatus(s Status) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Status = s
	t.Updated = time.Now().UTC()
}

// SetError records the loop-level error that terminated the task.
func (t *Task) SetError(msg string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Error = msg
	t.Updated = time.Now().UTC()
}

// AddMessage appends an entry to the message log.
func (t *Task) AddMessage(m Message) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.messages = append(t.messages, m)
	t.Updated = time.Now().UTC()
}

// MessagesSnapshot returns a defensive copy of the message log.
func (t *Task) MessagesSnapshot() []Message {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Message, len(t.messages))
	copy(out, t.messages)
	return out
}

// LastMessage returns the most recent log entry and whether one exists.
func (t *Task) LastMessage() (Message, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if len(t.messages) == 0 {
		return Message{}, false
	}
	return t.messages[len(t.messages)-1], true
}

// HasCompletionMarker reports whether a completion marker has been logged.
func (t *Task) HasCompletionMarker() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for i := len(t.messages) - 1; i >= 0; i-- {
		if t.messages[i].IsCompletionMarker() {
			return true
		}
	}
	return false
}

// AppendHistory appends one entry to the model-conversation history.
func (t *Task) AppendHistory(c Content) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.history = append(t.history, c)
	t.Updated = time.Now().UTC()
}

// HistorySnapshot returns a defensive copy of the conversation history.
func (t *Task) HistorySnapshot() []Content {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Content, len(t.history))
	copy(out, t.history)
	return out
}

// HistoryLen returns the number of history entries.
func (t *Task) HistoryLen() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.history)
}

// Todos returns a defensive copy of the todo list.
func (t *Task) Todos() []TodoItem {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]TodoItem, len(t.todos))
	copy(out, t.todos)
	return out
}

// SetTodos replaces the todo list.
func (t *Task) SetTodos(items []TodoItem) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.todos = make([]TodoItem, len(items))
	copy(t.todos, items)
	t.Updated = time.Now().UTC()
}

// MistakeCount returns the consecutive-mistake counter.
func (t *Task) MistakeCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.mistakeCount
}

// IncrementMistakes bumps the consecutive-mistake counter and returns the new value.
func (t *Task) IncrementMistakes() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.mistakeCount++
	return t.mistakeCount
}

// ResetMistakes zeroes the consecutive-mistake counter. Called after any round
// in which at least one tool call was dispatched, regardless of success.
func (t *Task) ResetMistakes() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.mistakeCount = 0
}

// Clone returns a deep copy of the task safe for independent reads.
func (t *Task) Clone() *Task {
	t.mu.RLock()
	defer t.mu.RUnlock()
	clone := &Task{
		ID:            t.ID,
		RunID:         t.RunID,
		WorkspacePath: t.WorkspacePath,
		Prompt:        t.Prompt,
		Status:        t.Status,
		Error:         t.Error,
		Created:       t.Created,
		Updated:       t.Updated,
		mistakeCount:  t.mistakeCount,
	}
	clone.Images = append([]string(nil), t.Images...)
	clone.messages = append([]Message(nil), t.messages...)
	clone.history = append([]Content(nil), t.history...)
	clone.todos = append([]TodoItem(nil), t.todos...)
	return clone
}
