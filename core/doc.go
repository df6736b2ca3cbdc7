// Package core provides the foundational domain types, interfaces and execution
// contexts used by TaskMesh. It defines the core abstractions for:
//
//   - Tasks (one agent session with conversation state and status)
//   - Messages (the ordered user/assistant message log per task)
//   - Contents (the model-conversation history including tool results)
//   - ToolCalls and their execution results / contexts
//   - The task status state machine and per-task observer notifications
//   - Pluggable collaborator interfaces (policy approval, resource servers)
//
// The package intentionally keeps implementation concerns (persistence, engine
// orchestration, concrete tools) out of scope, exposing small interfaces to
// enable custom backends and extensions.
package core
