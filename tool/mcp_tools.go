package tool

import (
	"fmt"
	"strings"

	"github.com/hupe1980/taskmesh/core"
)

// RegisterMCPTools adds the MCP bridge tools to the catalog under the "mcp"
// capability group. The tools resolve servers through the resource client
// attached to the tool execution context.
func RegisterMCPTools(catalog *Catalog) {
	defs := []Definition{
		useMCPTool(),
		accessMCPResourceTool(),
	}

	for _, def := range defs {
		catalog.Register(def)
		catalog.AddToGroup("mcp", def.Name)
	}
}

func useMCPTool() Definition {
	return Definition{
		Name:        "use_mcp_tool",
		Description: "Invoke a tool provided by a connected MCP server.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"server_name": map[string]any{
					"type":        "string",
					"description": "Name of the MCP server providing the tool.",
				},
				"tool_name": map[string]any{
					"type":        "string",
					"description": "Name of the tool to invoke.",
				},
				"arguments": map[string]any{
					"type":        "object",
					"description": "Arguments passed to the tool.",
				},
			},
			"required": []string{"server_name", "tool_name"},
		},
		Handler: func(toolCtx *core.ToolExecutionContext) (string, error) {
			resources := toolCtx.Resources()
			if resources == nil {
				return "", fmt.Errorf("no MCP servers are configured")
			}

			server, _ := StringParam(toolCtx, "server_name")
			name, _ := StringParam(toolCtx, "tool_name")
			args, _ := ObjectParam(toolCtx, "arguments")

			toolCtx.Logger().Debug("tool.use_mcp_tool", "server", server, "tool", name)

			if !resources.IsConnected(server) {
				return "", fmt.Errorf("MCP server %q is not connected", server)
			}

			out, err := resources.CallTool(toolCtx.Context(), server, name, args)
			if err != nil {
				return "", fmt.Errorf("call %s on %s: %w", name, server, err)
			}

			if strings.TrimSpace(out) == "" {
				return "(no content)", nil
			}

			return out, nil
		},
	}
}

func accessMCPResourceTool() Definition {
	return Definition{
		Name:        "access_mcp_resource",
		Description: "Read a resource exposed by a connected MCP server.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"server_name": map[string]any{
					"type":        "string",
					"description": "Name of the MCP server providing the resource.",
				},
				"uri": map[string]any{
					"type":        "string",
					"description": "URI of the resource to read.",
				},
			},
			"required": []string{"server_name", "uri"},
		},
		Handler: func(toolCtx *core.ToolExecutionContext) (string, error) {
			resources := toolCtx.Resources()
			if resources == nil {
				return "", fmt.Errorf("no MCP servers are configured")
			}

			server, _ := StringParam(toolCtx, "server_name")
			uri, _ := StringParam(toolCtx, "uri")

			if !resources.IsConnected(server) {
				return "", fmt.Errorf("MCP server %q is not connected", server)
			}

			out, err := resources.ReadResource(toolCtx.Context(), server, uri)
			if err != nil {
				return "", fmt.Errorf("read %s from %s: %w", uri, server, err)
			}

			if strings.TrimSpace(out) == "" {
				return "(no content)", nil
			}

			return out, nil
		},
	}
}
