package tool

import (
	"fmt"
	"time"

	"github.com/hupe1980/taskmesh/core"
	"github.com/hupe1980/taskmesh/internal/util"
	"github.com/hupe1980/taskmesh/logging"
)

// ContextFactory builds the per-call execution context for a tool call. The
// task engine supplies a factory that binds the call's parameters, workspace
// and policy reference.
type ContextFactory func(call *core.ToolCall) *core.ToolExecutionContext

// DispatcherOptions configures a Dispatcher.
type DispatcherOptions struct {
	// Logger for dispatch lifecycle logging. Defaults to NoOp.
	Logger logging.Logger
	// Observer receives per-call issued/result notifications. Defaults to NoOp.
	Observer core.TaskObserver
}

// Dispatcher validates and invokes tool calls through the catalog and the
// security policy engine. Every dispatched call yields exactly one
// ToolExecutionResult; lookup failures, policy rejections, validation errors
// and handler panics are all converted into failed results so nothing throws
// past this boundary.
type Dispatcher struct {
	catalog  *Catalog
	logger   logging.Logger
	observer core.TaskObserver
}

// NewDispatcher constructs a dispatcher over a catalog.
func NewDispatcher(catalog *Catalog, optFns ...func(o *DispatcherOptions)) *Dispatcher {
	opts := DispatcherOptions{
		Logger:   logging.NoOpLogger{},
		Observer: core.NoOpObserver{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	if opts.Observer == nil {
		opts.Observer = core.NoOpObserver{}
	}

	return &Dispatcher{catalog: catalog, logger: opts.Logger, observer: opts.Observer}
}

// Execute runs one tool call under the given execution context and records
// the result on the call. The pipeline is: catalog lookup, policy approval,
// required-parameter check, handler invocation with timing.
func (d *Dispatcher) Execute(call *core.ToolCall, toolCtx *core.ToolExecutionContext) *core.ToolExecutionResult {
	start := time.Now()

	d.observer.OnToolCallIssued(toolCtx.TaskID(), call)
	d.logger.Debug("dispatcher.execute.start", "tool", call.Name, "call_id", call.ID, "task_id", toolCtx.TaskID())

	result := d.run(call, toolCtx)
	result.Elapsed = time.Since(start)

	call.SetResult(result)
	d.observer.OnToolResult(toolCtx.TaskID(), call, result)

	if result.Success {
		d.logger.Info("dispatcher.execute.complete", "tool", call.Name, "call_id", call.ID, "duration_ms", result.Elapsed.Milliseconds())
	} else {
		d.logger.Error("dispatcher.execute.error", "tool", call.Name, "call_id", call.ID, "error", result.Error)
	}

	return result
}

func (d *Dispatcher) run(call *core.ToolCall, toolCtx *core.ToolExecutionContext) *core.ToolExecutionResult {
	def, ok := d.catalog.Lookup(call.Name)
	if !ok {
		return &core.ToolExecutionResult{
			Success: false,
			Error:   fmt.Sprintf("tool not found: %s", call.Name),
		}
	}

	// Fail closed: no policy reference means no approval is possible.
	policy := toolCtx.Policy()
	if policy == nil {
		return &core.ToolExecutionResult{
			Success: false,
			Error:   fmt.Sprintf("no security policy configured; refusing to execute %s", call.Name),
		}
	}

	if err := policy.Approve(call, toolCtx); err != nil {
		return &core.ToolExecutionResult{
			Success: false,
			Error:   err.Error(),
		}
	}

	for _, required := range def.RequiredParams() {
		if _, present := call.Params[required]; !present {
			return &core.ToolExecutionResult{
				Success: false,
				Error:   fmt.Sprintf("missing required parameter %q for tool %s", required, call.Name),
			}
		}
	}

	if err := util.ValidateParameters(call.Params, def.Parameters); err != nil {
		return &core.ToolExecutionResult{
			Success: false,
			Error:   err.Error(),
		}
	}

	output, err := d.invoke(def, toolCtx)
	if err != nil {
		return &core.ToolExecutionResult{
			Success: false,
			Error:   err.Error(),
		}
	}

	return &core.ToolExecutionResult{
		Success: true,
		Output:  output,
	}
}

// invoke calls the handler with panic recovery so a misbehaving tool cannot
// take down the task loop.
func (d *Dispatcher) invoke(def Definition, toolCtx *core.ToolExecutionContext) (output string, err error) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("dispatcher.handler.panic", "tool", def.Name, "recover", r)
			err = NewToolError(def.Name, fmt.Sprintf("handler panic: %v", r), "PANIC")
		}
	}()

	return def.Handler(toolCtx)
}

// ExecuteAll runs calls strictly in order, building each per-call context via
// the factory. With stopOnError set, the first failed result halts execution;
// the returned slice then covers only the dispatched prefix. Calls for the
// same task never execute concurrently.
func (d *Dispatcher) ExecuteAll(calls []*core.ToolCall, factory ContextFactory, stopOnError bool) []*core.ToolExecutionResult {
	results := make([]*core.ToolExecutionResult, 0, len(calls))
	for _, call := range calls {
		res := d.Execute(call, factory(call))
		results = append(results, res)
		if stopOnError && !res.Success {
			break
		}
	}
	return results
}
