// Package storage houses concrete implementations of the core.TaskStore.
// The interface itself (and the Task struct) live in the core package to
// centralize domain contracts. Keeping only implementations here prevents
// higher level packages (engine, tools) from depending on concrete storage.
//
// Add additional backends (Redis, Postgres, SQLite, etc.) in sub-packages
// without changing any calling code; only the wiring layer needs to decide
// which implementation to instantiate.
package storage
