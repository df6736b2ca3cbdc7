package tool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/taskmesh/core"
)

func testDefinition(name string) Definition {
	return Definition{
		Name:        name,
		Description: "test tool " + name,
		Parameters: map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		},
		Handler: func(toolCtx *core.ToolExecutionContext) (string, error) {
			return "ok", nil
		},
	}
}

func TestCatalogRegisterAndLookup(t *testing.T) {
	// ---- Registration ----
	c := NewCatalog()
	c.Register(testDefinition("alpha"))
	c.Register(testDefinition("beta"))

	def, ok := c.Lookup("alpha")
	require.True(t, ok)
	assert.Equal(t, "alpha", def.Name)

	_, ok = c.Lookup("missing")
	assert.False(t, ok)

	// ---- Listing preserves registration order ----
	assert.Equal(t, []string{"alpha", "beta"}, c.Names())

	// ---- Re-registration overwrites but keeps position ----
	replacement := testDefinition("alpha")
	replacement.Description = "replaced"
	c.Register(replacement)

	def, ok = c.Lookup("alpha")
	require.True(t, ok)
	assert.Equal(t, "replaced", def.Description)
	assert.Equal(t, []string{"alpha", "beta"}, c.Names())
}

func TestCatalogGroups(t *testing.T) {
	c := NewCatalog()
	c.Register(testDefinition("read_file"))
	c.Register(testDefinition("execute_command"))

	c.AddToGroup("filesystem", "read_file")
	c.AddToGroup("shell", "execute_command")

	fsGroup := c.Group("filesystem")
	require.Len(t, fsGroup, 1)
	assert.Equal(t, "read_file", fsGroup[0].Name)

	assert.Empty(t, c.Group("unknown"))
	assert.ElementsMatch(t, []string{"filesystem", "shell"}, c.Groups())
}

func TestRegisterCoreTools(t *testing.T) {
	c := NewCatalog()
	RegisterCoreTools(c)

	// ---- Standard set without MCP ----
	expected := []string{
		"read_file", "write_to_file", "replace_in_file",
		"list_files", "search_files", "delete_file",
		"execute_command",
		"attempt_completion", "ask_followup_question", "update_todo_list",
	}
	for _, name := range expected {
		_, ok := c.Lookup(name)
		assert.True(t, ok, "expected tool %s to be registered", name)
	}

	_, ok := c.Lookup("use_mcp_tool")
	assert.False(t, ok)

	// ---- MCP bridge opt-in ----
	c2 := NewCatalog()
	RegisterCoreTools(c2, func(o *CoreToolsOptions) {
		o.EnableMCP = true
	})

	_, ok = c2.Lookup("use_mcp_tool")
	assert.True(t, ok)
	_, ok = c2.Lookup("access_mcp_resource")
	assert.True(t, ok)
}

func TestDefinitionRequiredParams(t *testing.T) {
	def := Definition{
		Name: "demo",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"path":    map[string]any{"type": "string"},
				"content": map[string]any{"type": "string"},
			},
			"required": []string{"path", "content"},
		},
	}

	assert.Equal(t, []string{"path", "content"}, def.RequiredParams())
}
