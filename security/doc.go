// Package security implements the fail-closed authorization layer gating tool
// execution. Given a tool call plus its execution context the Engine either
// approves it or rejects it with a ViolationError; nothing is approved by
// default ambiguity. Checks run in a fixed order: the tool-level allow/deny
// gate first, then a parameter-level gate dispatched by tool category (shell
// commands, file access, deletes).
package security
