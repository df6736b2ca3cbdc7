// Package engine implements the agentic task execution loop at the heart of
// TaskMesh.
//
// A TaskEngine owns exactly one task: its conversation state, its lifecycle
// status, and the request/tool loop that drives it. Each round the engine
// builds a system prompt from the tool catalog and environment facts, calls
// the model provider with the full conversation history, recovers tool
// invocations from the response (structured tool-use chunks or the textual
// tag protocol), dispatches them strictly sequentially through the security
// policy, and appends one ordered tool result per call. The loop repeats
// until the model signals completion via attempt_completion, the caller
// aborts, or a loop-level error fails the task.
//
// Status is tracked by an explicit state machine
// (pending/running/paused/completed/failed/aborted) with an enumerated
// transition table; abort always wins over pause, and terminal states are
// immutable until the engine is restarted with a fresh run.
//
// Error handling follows a two-tier policy: tool-level errors (unknown tool,
// missing parameters, policy rejections, handler failures) are converted to
// failed results and re-enter the conversation so the model can self-correct;
// only loop-level errors (model call failure, prompt generation failure)
// escape Start and transition the task to failed.
//
// Rounds in which the model produces no tool invocation increment a
// consecutive-mistake counter; reaching the limit injects corrective
// guidance into the conversation and resets the counter without terminating
// the task. Any round that dispatches at least one tool call resets the
// counter regardless of individual call success.
package engine
