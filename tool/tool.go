// Package tool implements the tool subsystem that lets task engines invoke
// structured capabilities (file edits, shell commands, external resources)
// with schema validated parameters, consistent error handling and rich
// metadata for model guidance. It provides the Catalog of registered tool
// definitions and the Dispatcher that validates and executes calls under the
// security policy.
package tool

import (
	"fmt"

	"github.com/hupe1980/taskmesh/core"
	"github.com/hupe1980/taskmesh/internal/util"
)

// Handler executes a tool call with its per-call execution context and
// returns the rendered result payload or an error.
type Handler func(toolCtx *core.ToolExecutionContext) (string, error)

// Definition declaratively exposes a callable capability to the model.
//
// Definitions are registered once at startup and read-only afterward. The
// Parameters map follows a minimal JSON Schema shape; only the subset
// validated by util.ValidateParameters needs to be supplied (type,
// properties, required).
type Definition struct {
	// Tool identifier (snake_case recommended)
	Name string
	// Human-readable description shown to models
	Description string
	// JSON schema describing accepted parameters
	Parameters map[string]any
	// Handler invoked after policy approval and parameter validation
	Handler Handler
}

// RequiredParams returns the parameter names marked required in the schema.
func (d Definition) RequiredParams() []string {
	return util.RequiredFields(d.Parameters)
}

// ValidationError represents parameter validation errors with detailed information.
type ValidationError = util.ValidationError

// ToolError represents errors that occur during tool execution.
type ToolError struct {
	Tool    string `json:"tool"`              // Name of the tool that failed
	Message string `json:"message"`           // Error message
	Code    string `json:"code"`              // Error code for categorization
	Details any    `json:"details,omitempty"` // Additional error details
}

func (e *ToolError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tool error [%s] in %s: %s", e.Code, e.Tool, e.Message)
	}
	return fmt.Sprintf("tool error in %s: %s", e.Tool, e.Message)
}

// NewToolError creates a new ToolError with the specified details.
func NewToolError(tool, message, code string) *ToolError {
	return &ToolError{
		Tool:    tool,
		Message: message,
		Code:    code,
	}
}
