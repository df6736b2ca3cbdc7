package core_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/taskmesh/core"
	"github.com/hupe1980/taskmesh/internal/testutil"
)

func TestTaskBeginRunResetsState(t *testing.T) {
	task := testutil.NewTaskBuilder("task-1").
		Prompt("first run").
		UserText("hello").
		AssistantText("hi there").
		History(core.NewTextContent("user", "hello")).
		Build()
	task.IncrementMistakes()

	require.Len(t, task.MessagesSnapshot(), 2)
	require.Equal(t, 1, task.HistoryLen())
	require.Equal(t, 1, task.MistakeCount())

	task.BeginRun(core.NewID(), "second run", nil)

	assert.Empty(t, task.MessagesSnapshot())
	assert.Zero(t, task.HistoryLen())
	assert.Zero(t, task.MistakeCount())
	assert.Equal(t, "second run", task.Prompt)
}

func TestTaskCompletionMarker(t *testing.T) {
	task := testutil.NewTaskBuilder("task-1").
		AssistantText("working on it").
		Build()
	assert.False(t, task.HasCompletionMarker())

	task.AddMessage(core.NewMessage("assistant", core.MessageKindCompletion, "done"))
	assert.True(t, task.HasCompletionMarker())

	last, ok := task.LastMessage()
	require.True(t, ok)
	assert.True(t, last.IsCompletionMarker())
	assert.Equal(t, "done", last.Text)
}

func TestTaskMistakeCounter(t *testing.T) {
	task := testutil.NewTaskBuilder("task-1").Build()

	assert.Equal(t, 1, task.IncrementMistakes())
	assert.Equal(t, 2, task.IncrementMistakes())
	task.ResetMistakes()
	assert.Zero(t, task.MistakeCount())
}

func TestTaskSnapshotsAreDefensive(t *testing.T) {
	task := testutil.NewTaskBuilder("task-1").
		UserText("hello").
		Todos(core.TodoItem{ID: "1", Content: "step one", Status: core.TodoPending}).
		Build()

	msgs := task.MessagesSnapshot()
	msgs[0].Text = "mutated"
	fresh := task.MessagesSnapshot()
	assert.Equal(t, "hello", fresh[0].Text)

	todos := task.Todos()
	todos[0].Status = core.TodoCompleted
	assert.Equal(t, core.TodoPending, task.Todos()[0].Status)
}

func TestTaskClone(t *testing.T) {
	task := testutil.NewTaskBuilder("task-1").
		Workspace("/ws").
		Status(core.StatusRunning).
		UserText("hello").
		Build()

	clone := task.Clone()
	clone.Status = core.StatusFailed
	clone.AddMessage(core.NewMessage("user", core.MessageKindText, "extra"))

	assert.Equal(t, core.StatusRunning, task.Status)
	assert.Len(t, task.MessagesSnapshot(), 1)
}

func TestTaskConcurrentStatusWritesAndClones(t *testing.T) {
	task := testutil.NewTaskBuilder("task-1").UserText("hello").Build()

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			if i%2 == 0 {
				task.SetStatus(core.StatusPaused)
			} else {
				task.SetStatus(core.StatusRunning)
			}
			task.SetError("transient")
		}
	}()

	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			clone := task.Clone()
			_ = clone.Status
			_ = clone.Error
		}
	}()

	wg.Wait()

	final := task.Clone()
	assert.Equal(t, core.StatusRunning, final.Status)
	assert.Equal(t, "transient", final.Error)
}

// ---- State machine ----

func TestStateMachineHappyPath(t *testing.T) {
	m := core.NewStateMachine()
	assert.Equal(t, core.StatusPending, m.Current())

	require.NoError(t, m.Transition(core.StatusRunning))
	require.NoError(t, m.Transition(core.StatusPaused))
	require.NoError(t, m.Transition(core.StatusRunning))
	require.NoError(t, m.Transition(core.StatusCompleted))
	assert.True(t, m.Current().IsTerminal())
}

func TestStateMachineAbortFromAnyNonTerminal(t *testing.T) {
	for _, from := range []core.Status{core.StatusPending, core.StatusRunning, core.StatusPaused} {
		m := core.NewStateMachine()
		if from != core.StatusPending {
			require.NoError(t, m.Transition(core.StatusRunning))
		}
		if from == core.StatusPaused {
			require.NoError(t, m.Transition(core.StatusPaused))
		}
		require.NoError(t, m.Transition(core.StatusAborted), string(from))
	}
}

func TestStateMachineTerminalStatesAreImmutable(t *testing.T) {
	m := core.NewStateMachine()
	require.NoError(t, m.Transition(core.StatusRunning))
	require.NoError(t, m.Transition(core.StatusCompleted))

	assert.Error(t, m.Transition(core.StatusRunning))
	assert.Error(t, m.Transition(core.StatusAborted))
}

func TestStateMachineRejectsSkippingPending(t *testing.T) {
	m := core.NewStateMachine()
	assert.Error(t, m.Transition(core.StatusPaused))
	assert.Error(t, m.Transition(core.StatusCompleted))
}

func TestStateMachineSelfTransitionIsNoOp(t *testing.T) {
	m := core.NewStateMachine()
	require.NoError(t, m.Transition(core.StatusRunning))
	require.NoError(t, m.Transition(core.StatusRunning))
	assert.Equal(t, core.StatusRunning, m.Current())
}

func TestStateMachineReset(t *testing.T) {
	m := core.NewStateMachine()
	require.NoError(t, m.Transition(core.StatusRunning))
	require.NoError(t, m.Transition(core.StatusFailed))

	m.Reset()
	assert.Equal(t, core.StatusPending, m.Current())
	require.NoError(t, m.Transition(core.StatusRunning))
}
