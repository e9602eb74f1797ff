// Package research orchestrates the pipeline end to end: task bookkeeping,
// stage execution, memory persistence, and presentation streaming.
package research

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/quaero-ai/quaero/pkg/agents"
	"github.com/quaero-ai/quaero/pkg/errors"
	"github.com/quaero-ai/quaero/pkg/llm"
	"github.com/quaero-ai/quaero/pkg/memory"
	"github.com/quaero-ai/quaero/pkg/pipeline"
	"github.com/quaero-ai/quaero/pkg/search"
	"github.com/quaero-ai/quaero/pkg/task"
	"github.com/quaero-ai/quaero/pkg/telemetry"
)

const memorySource = "research_workflow"

// Service runs research queries through the pipeline and tracks them as
// tasks.
type Service struct {
	tasks     task.Store
	memory    *memory.ResearchMemory
	graph     *pipeline.Graph
	handlers  map[string]pipeline.Handler
	presenter *agents.Presenter
	metrics   *telemetry.PipelineMetrics
	logger    *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithGraph overrides the built-in research graph.
func WithGraph(g *pipeline.Graph) Option {
	return func(s *Service) { s.graph = g }
}

// WithMetrics attaches pipeline metrics.
func WithMetrics(m *telemetry.PipelineMetrics) Option {
	return func(s *Service) { s.metrics = m }
}

// NewService wires the four stage agents. mem may be nil to disable
// semantic memory.
func NewService(provider llm.Provider, searcher search.Client, mem *memory.ResearchMemory, store task.Store, opts ...Option) *Service {
	presenter := agents.NewPresenter(provider)
	s := &Service{
		tasks:     store,
		memory:    mem,
		graph:     pipeline.ResearchGraph(),
		presenter: presenter,
		logger:    slog.Default().With("component", "research"),
		handlers: map[string]pipeline.Handler{
			pipeline.StageResearch:  agents.NewResearcher(searcher, mem).Handler(),
			pipeline.StageSummarize: agents.NewSummarizer(provider).Handler(),
			pipeline.StageValidate:  agents.NewValidator(provider, searcher).Handler(),
			pipeline.StagePresent:   presenter.Handler(),
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit validates the query and records a new pending task.
func (s *Service) Submit(ctx context.Context, query string) (*task.Task, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New(errors.CodeInvalidInput, "query cannot be empty", nil).
			WithRecoverable(false)
	}

	t := task.New(query)
	if err := s.tasks.Create(ctx, t); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "task created", "task_id", t.ID, "query", truncate(query, 50))
	return t, nil
}

// Execute runs the pipeline for the task, updating the task store as stages
// progress and persisting the final response into semantic memory. The
// optional emitter receives the pipeline's semantic events.
func (s *Service) Execute(ctx context.Context, t *task.Task, emitter pipeline.Emitter) (*pipeline.State, error) {
	t.Status = task.StatusRunning
	t.CurrentStage = "Starting..."
	if err := s.tasks.Update(ctx, t); err != nil {
		return nil, err
	}
	s.metrics.RecordTaskStarted(ctx)

	tracker := &progressEmitter{service: s, task: t}
	emitters := pipeline.MultiEmitter{tracker}
	if emitter != nil {
		emitters = append(emitters, emitter)
	}

	state := pipeline.NewState(t.Query)
	executor := pipeline.NewExecutor(s.handlers).WithEmitter(emitters)
	state, err := executor.Execute(ctx, s.graph, state)
	if err != nil {
		s.logger.ErrorContext(ctx, "pipeline failed", "task_id", t.ID, "error", err)
		s.metrics.RecordTaskFailed(ctx)
		s.metrics.RecordError(ctx, err, "pipeline")
		t.Status = task.StatusFailed
		t.Error = err.Error()
		if uerr := s.tasks.Update(ctx, t); uerr != nil {
			s.logger.ErrorContext(ctx, "task update failed", "task_id", t.ID, "error", uerr)
		}
		return state, err
	}

	s.persistSnippet(ctx, state)

	t.Status = task.StatusCompleted
	t.CurrentStage = "Completed"
	t.Result = state
	t.Error = state.Error
	if err := s.tasks.Update(ctx, t); err != nil {
		s.logger.ErrorContext(ctx, "task update failed", "task_id", t.ID, "error", err)
	}
	s.metrics.RecordTaskCompleted(ctx, state.OverallConfidence)
	s.logger.InfoContext(ctx, "task completed", "task_id", t.ID,
		"confidence", state.OverallConfidence, "sources", len(state.Summaries))
	return state, nil
}

// ExecuteAsync runs Execute in a background goroutine, detached from the
// caller's cancellation.
func (s *Service) ExecuteAsync(ctx context.Context, t *task.Task) {
	bg := context.WithoutCancel(ctx)
	go func() {
		if _, err := s.Execute(bg, t, nil); err != nil {
			s.logger.Error("background task failed", "task_id", t.ID, "error", err)
		}
	}()
}

// StreamPresentation renders the final answer chunk by chunk.
func (s *Service) StreamPresentation(ctx context.Context, state *pipeline.State) <-chan string {
	return s.presenter.StreamPresentation(ctx, state)
}

// Task returns the task with the given id.
func (s *Service) Task(ctx context.Context, id string) (*task.Task, error) {
	return s.tasks.Get(ctx, id)
}

// Tasks lists all tasks, most recent first.
func (s *Service) Tasks(ctx context.Context) ([]*task.Task, error) {
	return s.tasks.List(ctx)
}

// DeleteTask removes the task with the given id.
func (s *Service) DeleteTask(ctx context.Context, id string) error {
	return s.tasks.Delete(ctx, id)
}

// ActiveTasks counts tasks that are pending or running.
func (s *Service) ActiveTasks(ctx context.Context) (int, error) {
	tasks, err := s.tasks.List(ctx)
	if err != nil {
		return 0, err
	}
	active := 0
	for _, t := range tasks {
		if t.Status.Active() {
			active++
		}
	}
	return active, nil
}

// MemoryEnabled reports whether semantic memory is configured.
func (s *Service) MemoryEnabled() bool { return s.memory != nil }

// persistSnippet stores the final response into semantic memory. Failures
// are logged, never propagated.
func (s *Service) persistSnippet(ctx context.Context, state *pipeline.State) {
	if s.memory == nil || state.FinalResponse == "" {
		return
	}
	err := s.memory.StoreSnippet(ctx, memory.Snippet{
		Query:           state.Query,
		Content:         state.FinalResponse,
		Source:          memorySource,
		ValidationScore: state.OverallConfidence,
	})
	if err != nil {
		s.logger.WarnContext(ctx, "memory store failed", "error", err)
		s.metrics.RecordError(ctx, err, "memory")
	}
}

// progressEmitter mirrors pipeline events into the task record and stage
// duration metrics.
type progressEmitter struct {
	service *Service
	task    *task.Task

	mu      sync.Mutex
	started map[string]time.Time
}

func (p *progressEmitter) Emit(ctx context.Context, event pipeline.Event) {
	switch event.Type {
	case pipeline.EventStageStarted:
		p.mu.Lock()
		if p.started == nil {
			p.started = make(map[string]time.Time)
		}
		p.started[event.Stage] = event.Timestamp
		p.mu.Unlock()

		p.task.CurrentStage = StageLabel(event.Stage)
		if err := p.service.tasks.Update(ctx, p.task); err != nil {
			p.service.logger.WarnContext(ctx, "stage update failed", "error", err)
		}
	case pipeline.EventStageCompleted:
		p.mu.Lock()
		started, ok := p.started[event.Stage]
		p.mu.Unlock()
		if ok {
			p.service.metrics.RecordStageDuration(ctx, event.Stage, event.Timestamp.Sub(started))
		}
	}
}

// StageLabel is the user-facing progress text for a stage.
func StageLabel(stage string) string {
	switch stage {
	case pipeline.StageResearch:
		return "Researching web sources..."
	case pipeline.StageSummarize:
		return "Summarizing findings..."
	case pipeline.StageValidate:
		return "Validating facts..."
	case pipeline.StagePresent:
		return "Crafting final response..."
	default:
		return stage
	}
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
