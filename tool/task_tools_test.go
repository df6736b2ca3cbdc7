package tool

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/taskmesh/core"
)

type memoryTodos struct {
	items []core.TodoItem
}

func (m *memoryTodos) Todos() []core.TodoItem         { return m.items }
func (m *memoryTodos) SetTodos(items []core.TodoItem) { m.items = items }

func taskToolHandler(t *testing.T, name string) Handler {
	t.Helper()
	c := NewCatalog()
	RegisterTaskTools(c)
	def, ok := c.Lookup(name)
	require.True(t, ok)
	return def.Handler
}

func TestAttemptCompletionTool(t *testing.T) {
	handler := taskToolHandler(t, "attempt_completion")

	out, err := handler(newTestContext(map[string]any{"result": "All done."}, allowAll{}))
	require.NoError(t, err)
	assert.Equal(t, "All done.", out)

	_, err = handler(newTestContext(map[string]any{"result": "   "}, allowAll{}))
	assert.Error(t, err)
}

func TestAskFollowupQuestionTool(t *testing.T) {
	handler := taskToolHandler(t, "ask_followup_question")

	out, err := handler(newTestContext(map[string]any{"question": "Which branch?"}, allowAll{}))
	require.NoError(t, err)
	assert.Contains(t, out, "Which branch?")

	_, err = handler(newTestContext(map[string]any{"question": ""}, allowAll{}))
	assert.Error(t, err)
}

func TestUpdateTodoListTool(t *testing.T) {
	handler := taskToolHandler(t, "update_todo_list")

	sink := &memoryTodos{}
	toolCtx := core.NewToolExecutionContext(
		context.Background(), "task-1", "/tmp/ws",
		map[string]any{"todos": "- [x] set up repo\n- [-] write parser\n- [ ] write tests\nplain item\n"},
		allowAll{},
		func(o *core.ToolExecutionContextOptions) { o.Todos = sink },
	)

	out, err := handler(toolCtx)
	require.NoError(t, err)
	assert.Contains(t, out, "4 items")

	require.Len(t, sink.items, 4)
	assert.Equal(t, core.TodoCompleted, sink.items[0].Status)
	assert.Equal(t, "set up repo", sink.items[0].Content)
	assert.Equal(t, core.TodoInProgress, sink.items[1].Status)
	assert.Equal(t, core.TodoPending, sink.items[2].Status)
	assert.Equal(t, "plain item", sink.items[3].Content)

	// ---- Missing sink fails ----
	_, err = handler(newTestContext(map[string]any{"todos": "- [ ] x"}, allowAll{}))
	assert.Error(t, err)
}
