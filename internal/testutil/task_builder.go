package testutil

import (
	"github.com/hupe1980/taskmesh/core"
)

// TaskBuilder provides a fluent helper for constructing tasks in tests.
// Example:
//
//	task := NewTaskBuilder("task-1").Workspace("/ws").UserText("hi").Status(core.StatusRunning).Build()
//
// Chain only the parts you need; sensible defaults are applied.
type TaskBuilder struct {
	id        string
	workspace string
	status    core.Status
	prompt    string
	messages  []core.Message
	history   []core.Content
	todos     []core.TodoItem
}

// NewTaskBuilder creates a builder for a task with the given id and a default
// workspace path.
func NewTaskBuilder(id string) *TaskBuilder {
	return &TaskBuilder{id: id, workspace: "/workspace"}
}

// Workspace overrides the workspace path (chainable).
func (b *TaskBuilder) Workspace(path string) *TaskBuilder { b.workspace = path; return b }

// Status sets the task status on the built task (chainable).
func (b *TaskBuilder) Status(s core.Status) *TaskBuilder { b.status = s; return b }

// Prompt begins a run with the given initial prompt (chainable).
func (b *TaskBuilder) Prompt(p string) *TaskBuilder { b.prompt = p; return b }

// Message appends a message to the log (chainable).
func (b *TaskBuilder) Message(m core.Message) *TaskBuilder {
	b.messages = append(b.messages, m)
	return b
}

// UserText appends a plain user message to the log (chainable).
func (b *TaskBuilder) UserText(text string) *TaskBuilder {
	return b.Message(core.NewMessage("user", core.MessageKindText, text))
}

// AssistantText appends a plain assistant message to the log (chainable).
func (b *TaskBuilder) AssistantText(text string) *TaskBuilder {
	return b.Message(core.NewMessage("assistant", core.MessageKindText, text))
}

// CompletionMarker appends a completion marker message (chainable).
func (b *TaskBuilder) CompletionMarker(result string) *TaskBuilder {
	return b.Message(core.NewMessage("assistant", core.MessageKindCompletion, result))
}

// History appends conversation contents (chainable).
func (b *TaskBuilder) History(contents ...core.Content) *TaskBuilder {
	b.history = append(b.history, contents...)
	return b
}

// Todos sets the todo list (chainable).
func (b *TaskBuilder) Todos(items ...core.TodoItem) *TaskBuilder {
	b.todos = append(b.todos, items...)
	return b
}

// Build materializes the task.
func (b *TaskBuilder) Build() *core.Task {
	task := core.NewTask(b.id, b.workspace)
	if b.prompt != "" {
		task.BeginRun(core.NewID(), b.prompt, nil)
	}
	if b.status != "" {
		task.SetStatus(b.status)
	}
	for _, m := range b.messages {
		task.AddMessage(m)
	}
	for _, c := range b.history {
		task.AppendHistory(c)
	}
	if len(b.todos) > 0 {
		task.SetTodos(b.todos)
	}
	return task
}
