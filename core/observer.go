package core

// TaskObserver receives lifecycle and progress notifications for a single
// task engine instance. Observers are scoped per engine, never process-wide,
// so notifications from one task cannot leak into another.
//
// Implementations must be fast and non-blocking; the engine invokes them
// synchronously from inside the task loop between suspension points.
type TaskObserver interface {
	// OnTaskStarted fires when the loop begins a fresh run.
	OnTaskStarted(taskID string)
	// OnTaskPaused fires when a pause request takes effect.
	OnTaskPaused(taskID string)
	// OnTaskResumed fires when a paused loop resumes.
	OnTaskResumed(taskID string)
	// OnTaskCompleted fires when the completion marker is logged.
	OnTaskCompleted(taskID, result string)
	// OnTaskFailed fires when a loop-level error terminates the task.
	OnTaskFailed(taskID string, err error)
	// OnTaskAborted fires when an abort request takes effect.
	OnTaskAborted(taskID string)
	// OnMessage fires for every entry appended to the message log.
	OnMessage(taskID string, msg Message)
	// OnToolCallIssued fires immediately before a tool call is dispatched.
	OnToolCallIssued(taskID string, call *ToolCall)
	// OnToolResult fires after a tool call yields its result.
	OnToolResult(taskID string, call *ToolCall, result *ToolExecutionResult)
	// OnStatusChanged fires on every status transition.
	OnStatusChanged(taskID string, from, to Status)
}

// NoOpObserver discards all notifications. Embed it to implement only the
// callbacks a consumer cares about.
type NoOpObserver struct{}

// OnTaskStarted implements TaskObserver.
func (NoOpObserver) OnTaskStarted(string) {}

// OnTaskPaused implements TaskObserver.
func (NoOpObserver) OnTaskPaused(string) {}

// OnTaskResumed implements TaskObserver.
func (NoOpObserver) OnTaskResumed(string) {}

// OnTaskCompleted implements TaskObserver.
func (NoOpObserver) OnTaskCompleted(string, string) {}

// OnTaskFailed implements TaskObserver.
func (NoOpObserver) OnTaskFailed(string, error) {}

// OnTaskAborted implements TaskObserver.
func (NoOpObserver) OnTaskAborted(string) {}

// OnMessage implements TaskObserver.
func (NoOpObserver) OnMessage(string, Message) {}

// OnToolCallIssued implements TaskObserver.
func (NoOpObserver) OnToolCallIssued(string, *ToolCall) {}

// OnToolResult implements TaskObserver.
func (NoOpObserver) OnToolResult(string, *ToolCall, *ToolExecutionResult) {}

// OnStatusChanged implements TaskObserver.
func (NoOpObserver) OnStatusChanged(string, Status, Status) {}
