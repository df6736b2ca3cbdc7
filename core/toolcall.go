package core

import (
	"context"
	"time"

	"github.com/hupe1980/taskmesh/logging"
)

// ToolCall is a structured request to run a named capability with parameters,
// parsed from model output (or surfaced directly by provider tool-use chunks).
// It is created during response parsing, mutated exactly once with its outcome
// via SetResult, and immutable thereafter.
type ToolCall struct {
	ID        string               `json:"id"`
	Name      string               `json:"name"`
	Params    map[string]any       `json:"params"`
	Result    *ToolExecutionResult `json:"result,omitempty"`
	CreatedAt time.Time            `json:"created_at"`
}

// NewToolCall creates a tool call with a synthesized id.
func NewToolCall(name string, params map[string]any) *ToolCall {
	if params == nil {
		params = map[string]any{}
	}
	return &ToolCall{
		ID:        NewID(),
		Name:      name,
		Params:    params,
		CreatedAt: time.Now().UTC(),
	}
}

// SetResult records the call's outcome. The first result wins; subsequent
// calls are ignored so a ToolCall never yields more than one result.
func (tc *ToolCall) SetResult(res *ToolExecutionResult) {
	if tc.Result == nil {
		tc.Result = res
	}
}

// ToolExecutionResult captures success, payload or error, and elapsed time for
// exactly one ToolCall.
type ToolExecutionResult struct {
	Success bool          `json:"success"`
	Output  string        `json:"output,omitempty"`
	Error   string        `json:"error,omitempty"`
	Elapsed time.Duration `json:"elapsed"`
}

// Rendered returns the payload for successful calls and the error text otherwise.
func (r *ToolExecutionResult) Rendered() string {
	if r.Success {
		return r.Output
	}
	return r.Error
}

// Approver is the fail-closed authorization contract consulted before any tool
// runs real side effects. A nil error approves the call; any returned error is
// a rejection and must be converted into a failed result by the dispatcher.
type Approver interface {
	Approve(call *ToolCall, toolCtx *ToolExecutionContext) error
}

// TodoSink exposes read/replace access to a task's todo list for tools that
// manage it. Implemented by the task engine.
type TodoSink interface {
	Todos() []TodoItem
	SetTodos(items []TodoItem)
}

// ResourceClient is the external-resource-server collaborator reached through
// specific tool handlers. Implementations maintain per-server connections.
type ResourceClient interface {
	ListTools(ctx context.Context, server string) ([]string, error)
	CallTool(ctx context.Context, server, tool string, args map[string]any) (string, error)
	ReadResource(ctx context.Context, server, uri string) (string, error)
	IsConnected(server string) bool
}

// ToolExecutionContext provides a constrained, auditable surface for tool
// handlers. It is constructed per call and carries the workspace path, task
// identity, the concrete parameters, and the policy engine reference.
type ToolExecutionContext struct {
	ctx           context.Context
	taskID        string
	workspacePath string
	params        map[string]any
	policy        Approver
	resources     ResourceClient
	todos         TodoSink

	*loggerAdapter
}

// ToolExecutionContextOptions configures optional collaborators on a context.
type ToolExecutionContextOptions struct {
	Resources ResourceClient
	Todos     TodoSink
	Logger    logging.Logger
}

// NewToolExecutionContext constructs a per-call execution context.
func NewToolExecutionContext(
	ctx context.Context,
	taskID, workspacePath string,
	params map[string]any,
	policy Approver,
	optFns ...func(o *ToolExecutionContextOptions),
) *ToolExecutionContext {
	opts := ToolExecutionContextOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}

	if params == nil {
		params = map[string]any{}
	}

	return &ToolExecutionContext{
		ctx:           ctx,
		taskID:        taskID,
		workspacePath: workspacePath,
		params:        params,
		policy:        policy,
		resources:     opts.Resources,
		todos:         opts.Todos,
		loggerAdapter: newLoggerAdapter(opts.Logger),
	}
}

// Context returns the cancellation context for this call.
func (tc *ToolExecutionContext) Context() context.Context { return tc.ctx }

// TaskID returns the owning task's id.
func (tc *ToolExecutionContext) TaskID() string { return tc.taskID }

// WorkspacePath returns the task's workspace root.
func (tc *ToolExecutionContext) WorkspacePath() string { return tc.workspacePath }

// Params returns the concrete parameters for this call.
func (tc *ToolExecutionContext) Params() map[string]any { return tc.params }

// Policy returns the security policy engine reference for this call.
func (tc *ToolExecutionContext) Policy() Approver { return tc.policy }

// Resources returns the external-resource-server collaborator, or nil.
func (tc *ToolExecutionContext) Resources() ResourceClient { return tc.resources }

// Todos returns the todo list accessor, or nil.
func (tc *ToolExecutionContext) Todos() TodoSink { return tc.todos }

// Logger returns the logger associated with the tool invocation.
func (tc *ToolExecutionContext) Logger() logging.Logger { return tc.loggerAdapter.Logger() }
