// Package task tracks research pipeline runs: one Task per submitted query,
// with in-memory and SQLite-backed stores.
package task

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/quaero-ai/quaero/pkg/pipeline"
)

// Status is the lifecycle state of a research task.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Active reports whether the status is non-terminal.
func (s Status) Active() bool {
	return s == StatusPending || s == StatusRunning
}

// Task is one research pipeline run.
type Task struct {
	ID           string          `json:"id"`
	Query        string          `json:"query"`
	Status       Status          `json:"status"`
	CurrentStage string          `json:"current_stage,omitempty"`
	Result       *pipeline.State `json:"result,omitempty"`
	Error        string          `json:"error,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// New creates a pending task for the query with a fresh UUID.
func New(query string) *Task {
	now := time.Now().UTC()
	return &Task{
		ID:        uuid.NewString(),
		Query:     query,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Store provides access to task records. Implementations return a
// NOT_FOUND coded error for unknown task ids.
type Store interface {
	Create(ctx context.Context, t *Task) error
	Get(ctx context.Context, id string) (*Task, error)
	Update(ctx context.Context, t *Task) error
	// List returns all tasks, most recently created first.
	List(ctx context.Context) ([]*Task, error)
	Delete(ctx context.Context, id string) error
}
