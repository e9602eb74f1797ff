package pipeline

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Handler executes one stage against the shared state.
type Handler func(ctx context.Context, node Node, state *State) error

// Executor runs a graph using stage handlers.
type Executor struct {
	Handlers map[string]Handler
	Emitter  Emitter
	tracer   trace.Tracer
}

// NewExecutor creates an executor with provided handlers.
func NewExecutor(handlers map[string]Handler) *Executor {
	return &Executor{
		Handlers: handlers,
		Emitter:  NoopEmitter{},
		tracer:   otel.Tracer("quaero/pipeline"),
	}
}

// WithEmitter sets the event emitter and returns the executor.
func (e *Executor) WithEmitter(emitter Emitter) *Executor {
	if emitter != nil {
		e.Emitter = emitter
	}
	return e
}

// Execute walks the graph from its start node, running each stage handler
// against the shared state. It stops on context cancellation or a handler
// error. Stage-level failures that agents record on the state do not abort
// the walk.
func (e *Executor) Execute(ctx context.Context, graph *Graph, state *State) (*State, error) {
	if graph == nil {
		return nil, fmt.Errorf("graph is nil")
	}
	if err := graph.Validate(); err != nil {
		return nil, err
	}
	if state == nil {
		return nil, fmt.Errorf("state is nil")
	}

	startID, err := resolveStartNode(graph)
	if err != nil {
		return nil, err
	}

	adjacency := buildAdjacency(graph)

	visited := make(map[string]bool)
	currentID := startID
	for currentID != "" {
		if err := ctx.Err(); err != nil {
			return state, err
		}
		if visited[currentID] {
			return nil, fmt.Errorf("cycle detected at node %q", currentID)
		}
		visited[currentID] = true

		node, ok := graph.Nodes[currentID]
		if !ok {
			return nil, fmt.Errorf("node %q not found", currentID)
		}

		handler := e.Handlers[node.Stage]
		if handler == nil {
			return nil, fmt.Errorf("no handler for stage %q", node.Stage)
		}

		state.CurrentStage = node.Stage
		e.Emitter.Emit(ctx, NewEvent(EventStageStarted, node.Stage, "", nil))

		nodeCtx, span := e.tracer.Start(ctx, "Pipeline.Stage",
			trace.WithAttributes(
				attribute.String("stage.id", node.ID),
				attribute.String("stage.name", node.Stage),
			),
		)
		err := handler(nodeCtx, node, state)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		if err != nil {
			e.Emitter.Emit(ctx, NewEvent(EventPipelineError, node.Stage, "", map[string]any{
				"error": err.Error(),
			}))
			return state, fmt.Errorf("stage %q failed: %w", node.Stage, err)
		}

		if log := state.LastLog(); log != nil && log.Agent == node.Stage {
			e.Emitter.Emit(ctx, NewEvent(EventAgentLogged, node.Stage, "", map[string]any{
				"status":  log.Status,
				"message": log.Message,
			}))
		}
		e.Emitter.Emit(ctx, NewEvent(EventStageCompleted, node.Stage, "", nil))

		next := adjacency[currentID]
		if len(next) == 0 {
			break
		}
		if len(next) > 1 {
			return nil, fmt.Errorf("node %q has multiple outgoing edges", currentID)
		}
		currentID = next[0]
	}

	state.CurrentStage = "complete"
	e.Emitter.Emit(ctx, NewEvent(EventPipelineDone, "", "", nil))
	return state, nil
}

func resolveStartNode(graph *Graph) (string, error) {
	if graph.Start != "" {
		if _, ok := graph.Nodes[graph.Start]; !ok {
			return "", fmt.Errorf("start node %q not found", graph.Start)
		}
		return graph.Start, nil
	}

	incoming := make(map[string]int)
	for id := range graph.Nodes {
		incoming[id] = 0
	}
	for _, edge := range graph.Edges {
		incoming[edge.To]++
	}

	var candidates []string
	for id, count := range incoming {
		if count == 0 {
			candidates = append(candidates, id)
		}
	}
	switch len(candidates) {
	case 1:
		return candidates[0], nil
	case 0:
		return "", fmt.Errorf("no start node found")
	default:
		return "", fmt.Errorf("multiple start nodes found")
	}
}

func buildAdjacency(graph *Graph) map[string][]string {
	adj := make(map[string][]string, len(graph.Nodes))
	for id := range graph.Nodes {
		adj[id] = nil
	}
	for _, edge := range graph.Edges {
		adj[edge.From] = append(adj[edge.From], edge.To)
	}
	return adj
}
