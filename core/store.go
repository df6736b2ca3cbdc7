package core

import "errors"

// ErrTaskNotFound is returned by stores when a task id is unknown.
var ErrTaskNotFound = errors.New("task not found")

// TaskFilter narrows Query results. Zero-value fields match everything.
type TaskFilter struct {
	Status        Status // Match tasks in this status
	WorkspacePath string // Match tasks rooted at this workspace
}

// TaskStore persists task snapshots. Implementations must be safe for
// concurrent use and must not allow callers to mutate stored state through
// returned values.
type TaskStore interface {
	// Save stores a snapshot of the task, overwriting any previous one.
	Save(task *Task) error

	// Get returns a snapshot of the task with the given id.
	Get(taskID string) (*Task, error)

	// UpdateStatus changes the stored task's status field. A non-nil
	// taskErr records the loop-level error that put the task there;
	// nil clears it.
	UpdateStatus(taskID string, status Status, taskErr error) error

	// Query returns snapshots of all tasks matching the filter, most
	// recently updated first.
	Query(filter TaskFilter) ([]*Task, error)

	// Delete removes the task with the given id.
	Delete(taskID string) error
}
