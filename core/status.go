package core

import (
	"fmt"
	"sync"
)

// Status represents the lifecycle state of a task.
type Status string

const (
	// StatusPending indicates the task has been created but its loop has not started.
	StatusPending Status = "pending"
	// StatusRunning indicates the task loop is actively awaiting model or tool responses.
	StatusRunning Status = "running"
	// StatusPaused indicates the loop has been cooperatively suspended.
	StatusPaused Status = "paused"
	// StatusCompleted indicates the model signaled completion of the task.
	StatusCompleted Status = "completed"
	// StatusFailed indicates a loop-level error terminated the task.
	StatusFailed Status = "failed"
	// StatusAborted indicates the caller requested termination.
	StatusAborted Status = "aborted"
)

// IsTerminal reports whether no further transitions are expected from this status.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusAborted
}

// transitions enumerates the legal status changes. Abort is reachable from
// every non-terminal state so it always wins over pause.
var transitions = map[Status][]Status{
	StatusPending: {StatusRunning, StatusAborted, StatusFailed},
	StatusRunning: {StatusPaused, StatusCompleted, StatusFailed, StatusAborted},
	StatusPaused:  {StatusRunning, StatusAborted, StatusFailed},
}

// StateMachine tracks a task's status through an explicit transition table
// instead of deriving it from a combination of flags. Illegal transitions are
// rejected with an error, which keeps precedence rules (abort over pause,
// terminal states immutable) enforced in one place.
type StateMachine struct {
	mu      sync.RWMutex
	current Status
}

// NewStateMachine returns a state machine in the pending state.
func NewStateMachine() *StateMachine {
	return &StateMachine{current: StatusPending}
}

// Current returns the current status.
func (m *StateMachine) Current() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Transition moves to the target status if the transition table permits it.
func (m *StateMachine) Transition(to Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == to {
		return nil
	}

	for _, allowed := range transitions[m.current] {
		if allowed == to {
			m.current = to
			return nil
		}
	}

	return fmt.Errorf("invalid status transition: %s -> %s", m.current, to)
}

// Reset returns the machine to pending. Used when a task engine is restarted
// with a fresh run; the prior run's terminal status is discarded.
func (m *StateMachine) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = StatusPending
}
