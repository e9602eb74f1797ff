package task

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/quaero-ai/quaero/pkg/errors"
	"github.com/quaero-ai/quaero/pkg/pipeline"
)

func testStores(t *testing.T) map[string]Store {
	t.Helper()
	sqlite, db, err := OpenSQLiteStore(filepath.Join(t.TempDir(), "tasks.db"))
	if err != nil {
		t.Fatalf("open sqlite store: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return map[string]Store{
		"memory": NewMemoryStore(),
		"sqlite": sqlite,
	}
}

func isNotFound(err error) bool {
	qe := errors.AsQuaeroError(err)
	return qe != nil && qe.Code == errors.CodeNotFound
}

func TestStoreLifecycle(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			created := New("what is quantum computing")
			if created.Status != StatusPending {
				t.Fatalf("new task status = %q", created.Status)
			}
			if err := store.Create(ctx, created); err != nil {
				t.Fatalf("Create: %v", err)
			}

			got, err := store.Get(ctx, created.ID)
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if got.Query != created.Query || got.Status != StatusPending {
				t.Errorf("got = %+v", got)
			}

			got.Status = StatusRunning
			got.CurrentStage = "research"
			if err := store.Update(ctx, got); err != nil {
				t.Fatalf("Update: %v", err)
			}

			got.Status = StatusCompleted
			got.Result = &pipeline.State{
				Query:             created.Query,
				FinalResponse:     "the answer",
				OverallConfidence: 0.8,
			}
			if err := store.Update(ctx, got); err != nil {
				t.Fatalf("Update with result: %v", err)
			}

			final, err := store.Get(ctx, created.ID)
			if err != nil {
				t.Fatalf("Get after update: %v", err)
			}
			if final.Status != StatusCompleted {
				t.Errorf("Status = %q", final.Status)
			}
			if final.Result == nil || final.Result.FinalResponse != "the answer" {
				t.Errorf("Result = %+v", final.Result)
			}
			if !final.UpdatedAt.After(final.CreatedAt) {
				t.Errorf("UpdatedAt %v not after CreatedAt %v", final.UpdatedAt, final.CreatedAt)
			}

			if err := store.Delete(ctx, created.ID); err != nil {
				t.Fatalf("Delete: %v", err)
			}
			if _, err := store.Get(ctx, created.ID); !isNotFound(err) {
				t.Errorf("Get deleted = %v, want not found", err)
			}
		})
	}
}

func TestStoreNotFound(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			if _, err := store.Get(ctx, "nope"); !isNotFound(err) {
				t.Errorf("Get = %v, want not found", err)
			}
			if err := store.Delete(ctx, "nope"); !isNotFound(err) {
				t.Errorf("Delete = %v, want not found", err)
			}
			ghost := New("q")
			if err := store.Update(ctx, ghost); !isNotFound(err) {
				t.Errorf("Update = %v, want not found", err)
			}
		})
	}
}

func TestStoreListOrder(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			older := New("first")
			older.CreatedAt = time.Now().UTC().Add(-time.Minute)
			older.UpdatedAt = older.CreatedAt
			newer := New("second")

			if err := store.Create(ctx, older); err != nil {
				t.Fatal(err)
			}
			if err := store.Create(ctx, newer); err != nil {
				t.Fatal(err)
			}

			tasks, err := store.List(ctx)
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if len(tasks) != 2 {
				t.Fatalf("len = %d", len(tasks))
			}
			if tasks[0].Query != "second" || tasks[1].Query != "first" {
				t.Errorf("order = %q, %q", tasks[0].Query, tasks[1].Query)
			}
		})
	}
}

func TestMemoryStoreDuplicateCreate(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	first := New("q")
	if err := store.Create(ctx, first); err != nil {
		t.Fatal(err)
	}
	if err := store.Create(ctx, first); err == nil {
		t.Error("duplicate create should fail")
	}
}

func TestStatusActive(t *testing.T) {
	if !StatusPending.Active() || !StatusRunning.Active() {
		t.Error("pending/running should be active")
	}
	if StatusCompleted.Active() || StatusFailed.Active() {
		t.Error("completed/failed should not be active")
	}
}
