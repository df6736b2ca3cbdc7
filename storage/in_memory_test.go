package storage

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/taskmesh/core"
)

func TestInMemoryStoreSaveAndGet(t *testing.T) {
	store := NewInMemoryStore()

	task := core.NewTask("task-1", "/workspace/demo")
	require.NoError(t, store.Save(task))

	got, err := store.Get("task-1")
	require.NoError(t, err)
	assert.Equal(t, "task-1", got.ID)
	assert.Equal(t, "/workspace/demo", got.WorkspacePath)
	assert.Equal(t, core.StatusPending, got.Status)

	// ---- Clone isolation: mutating the copy never touches the store ----
	got.Status = core.StatusAborted
	again, err := store.Get("task-1")
	require.NoError(t, err)
	assert.Equal(t, core.StatusPending, again.Status)
}

func TestInMemoryStoreGetUnknown(t *testing.T) {
	store := NewInMemoryStore()

	_, err := store.Get("missing")
	assert.ErrorIs(t, err, core.ErrTaskNotFound)
}

func TestInMemoryStoreUpdateStatus(t *testing.T) {
	store := NewInMemoryStore()
	require.NoError(t, store.Save(core.NewTask("task-1", "/ws")))

	require.NoError(t, store.UpdateStatus("task-1", core.StatusRunning, nil))

	got, err := store.Get("task-1")
	require.NoError(t, err)
	assert.Equal(t, core.StatusRunning, got.Status)
	assert.Empty(t, got.Error)

	// ---- Failure records the loop-level error, success clears it ----
	require.NoError(t, store.UpdateStatus("task-1", core.StatusFailed, errors.New("model unavailable")))
	got, err = store.Get("task-1")
	require.NoError(t, err)
	assert.Equal(t, core.StatusFailed, got.Status)
	assert.Equal(t, "model unavailable", got.Error)

	require.NoError(t, store.UpdateStatus("task-1", core.StatusRunning, nil))
	got, err = store.Get("task-1")
	require.NoError(t, err)
	assert.Empty(t, got.Error)

	assert.ErrorIs(t, store.UpdateStatus("missing", core.StatusRunning, nil), core.ErrTaskNotFound)
}

func TestInMemoryStoreQuery(t *testing.T) {
	store := NewInMemoryStore()

	a := core.NewTask("task-a", "/ws/one")
	b := core.NewTask("task-b", "/ws/two")
	c := core.NewTask("task-c", "/ws/one")

	require.NoError(t, store.Save(a))
	time.Sleep(time.Millisecond)
	require.NoError(t, store.Save(b))
	time.Sleep(time.Millisecond)
	require.NoError(t, store.Save(c))

	require.NoError(t, store.UpdateStatus("task-b", core.StatusCompleted, nil))

	// ---- Filter by workspace ----
	got, err := store.Query(core.TaskFilter{WorkspacePath: "/ws/one"})
	require.NoError(t, err)
	require.Len(t, got, 2)

	// ---- Filter by status ----
	got, err = store.Query(core.TaskFilter{Status: core.StatusCompleted})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "task-b", got[0].ID)

	// ---- No filter returns everything, most recently updated first ----
	got, err = store.Query(core.TaskFilter{})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "task-b", got[0].ID)
}

func TestInMemoryStoreDelete(t *testing.T) {
	store := NewInMemoryStore()
	require.NoError(t, store.Save(core.NewTask("task-1", "/ws")))

	require.NoError(t, store.Delete("task-1"))
	_, err := store.Get("task-1")
	assert.ErrorIs(t, err, core.ErrTaskNotFound)

	assert.ErrorIs(t, store.Delete("task-1"), core.ErrTaskNotFound)
}
