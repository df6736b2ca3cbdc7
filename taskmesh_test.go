package taskmesh

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/taskmesh/core"
	"github.com/hupe1980/taskmesh/model"
)

func TestNewRequiresProvider(t *testing.T) {
	_, err := New(nil)
	require.Error(t, err)
}

func TestRunToCompletion(t *testing.T) {
	provider := model.NewMockProvider("mock", "test")
	provider.Enqueue("<attempt_completion><result>All set</result></attempt_completion>")

	mesh, err := New(provider)
	require.NoError(t, err)

	result, err := mesh.Run(context.Background(), t.TempDir(), "finish immediately")
	require.NoError(t, err)
	assert.Equal(t, "All set", result)
}

func TestRunReportsNonCompletedStatus(t *testing.T) {
	provider := model.NewMockProvider("mock", "test")

	mesh, err := New(provider, func(o *Options) {
		o.EngineConfig.MaxRounds = 2
	})
	require.NoError(t, err)

	_, err = mesh.Run(context.Background(), t.TempDir(), "ramble forever")
	require.Error(t, err)
}

func TestNewTaskAndStoreLookup(t *testing.T) {
	provider := model.NewMockProvider("mock", "test")
	provider.Enqueue("<attempt_completion><result>done</result></attempt_completion>")

	mesh, err := New(provider)
	require.NoError(t, err)

	e, err := mesh.NewTask("task-42", t.TempDir())
	require.NoError(t, err)
	require.NoError(t, e.Start(context.Background(), "go", nil))

	task, err := mesh.Task("task-42")
	require.NoError(t, err)
	assert.Equal(t, core.StatusCompleted, task.Status)

	tasks, err := mesh.Tasks(core.TaskFilter{Status: core.StatusCompleted})
	require.NoError(t, err)
	assert.Len(t, tasks, 1)
}

func TestCatalogContainsCoreTools(t *testing.T) {
	provider := model.NewMockProvider("mock", "test")

	mesh, err := New(provider)
	require.NoError(t, err)

	for _, name := range []string{"read_file", "write_to_file", "execute_command", "attempt_completion"} {
		_, ok := mesh.Catalog().Lookup(name)
		assert.True(t, ok, name)
	}

	// MCP bridge tools are off without a resource client.
	_, ok := mesh.Catalog().Lookup("use_mcp_tool")
	assert.False(t, ok)
}
