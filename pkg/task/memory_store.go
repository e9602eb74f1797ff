package task

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/quaero-ai/quaero/pkg/errors"
)

// MemoryStore keeps tasks in memory.
type MemoryStore struct {
	mu    sync.RWMutex
	tasks map[string]*Task
}

// NewMemoryStore creates a new in-memory task store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tasks: make(map[string]*Task)}
}

// Create stores a new task.
func (s *MemoryStore) Create(_ context.Context, t *Task) error {
	if t == nil || t.ID == "" {
		return errors.New(errors.CodeInvalidInput, "task id is required", nil)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[t.ID]; ok {
		return errors.New(errors.CodeInvalidInput, "task already exists", nil).
			WithContext("task_id", t.ID)
	}
	s.tasks[t.ID] = clone(t)
	return nil
}

// Get returns the task with the given id.
func (s *MemoryStore) Get(_ context.Context, id string) (*Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil, notFound(id)
	}
	return clone(t), nil
}

// Update replaces the stored task.
func (s *MemoryStore) Update(_ context.Context, t *Task) error {
	if t == nil || t.ID == "" {
		return errors.New(errors.CodeInvalidInput, "task id is required", nil)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[t.ID]; !ok {
		return notFound(t.ID)
	}
	updated := clone(t)
	updated.UpdatedAt = time.Now().UTC()
	s.tasks[t.ID] = updated
	return nil
}

// List returns all tasks, most recently created first.
func (s *MemoryStore) List(_ context.Context) ([]*Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		out = append(out, clone(t))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// Delete removes the task with the given id.
func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[id]; !ok {
		return notFound(id)
	}
	delete(s.tasks, id)
	return nil
}

// clone copies the task record. The pipeline state is shared: it is treated
// as immutable once attached to a task.
func clone(t *Task) *Task {
	c := *t
	return &c
}

func notFound(id string) error {
	return errors.New(errors.CodeNotFound, "task not found", nil).
		WithContext("task_id", id).
		WithRecoverable(false)
}

var _ Store = (*MemoryStore)(nil)
