package storage

import (
	"sort"
	"sync"
	"time"

	"github.com/hupe1980/taskmesh/core"
)

// InMemoryStore is a volatile TaskStore implementation storing tasks in a
// process local map. It is safe for concurrent access and best suited for
// tests or single-process embeddings. Each returned task is cloned to prevent
// external mutation of internal state.
type InMemoryStore struct {
	mu    sync.RWMutex
	tasks map[string]*core.Task
}

// NewInMemoryStore constructs an empty in-memory task store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{tasks: make(map[string]*core.Task)}
}

// Save stores a clone of the provided task snapshot.
func (s *InMemoryStore) Save(task *core.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := task.Clone()
	clone.Updated = time.Now().UTC()
	s.tasks[task.ID] = clone
	return nil
}

// Get returns a clone of the task with the given id.
func (s *InMemoryStore) Get(taskID string) (*core.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	task, ok := s.tasks[taskID]
	if !ok {
		return nil, core.ErrTaskNotFound
	}
	return task.Clone(), nil
}

// UpdateStatus changes the stored task's status and error fields in place.
func (s *InMemoryStore) UpdateStatus(taskID string, status core.Status, taskErr error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[taskID]
	if !ok {
		return core.ErrTaskNotFound
	}
	task.Status = status
	if taskErr != nil {
		task.Error = taskErr.Error()
	} else {
		task.Error = ""
	}
	task.Updated = time.Now().UTC()
	return nil
}

// Query returns clones of all tasks matching the filter, most recently
// updated first.
func (s *InMemoryStore) Query(filter core.TaskFilter) ([]*core.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*core.Task
	for _, task := range s.tasks {
		if filter.Status != "" && task.Status != filter.Status {
			continue
		}
		if filter.WorkspacePath != "" && task.WorkspacePath != filter.WorkspacePath {
			continue
		}
		out = append(out, task.Clone())
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Updated.After(out[j].Updated)
	})

	return out, nil
}

// Delete removes the task with the given id.
func (s *InMemoryStore) Delete(taskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[taskID]; !ok {
		return core.ErrTaskNotFound
	}
	delete(s.tasks, taskID)
	return nil
}
