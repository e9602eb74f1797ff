package pipeline

import (
	"context"
	"time"
)

// EventType identifies a semantic event emitted during pipeline execution.
type EventType string

const (
	EventStageStarted   EventType = "stage.started"
	EventStageCompleted EventType = "stage.completed"
	EventAgentLogged    EventType = "agent.log"
	EventPipelineError  EventType = "pipeline.error"
	EventPipelineDone   EventType = "pipeline.done"
)

// Event captures a semantic streaming/logging event.
type Event struct {
	Type      EventType      `json:"type"`
	Stage     string         `json:"stage,omitempty"`
	TaskID    string         `json:"task_id,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Payload   map[string]any `json:"payload,omitempty"`
}

// Emitter receives semantic events.
type Emitter interface {
	Emit(ctx context.Context, event Event)
}

// NoopEmitter is a default no-op implementation.
type NoopEmitter struct{}

// Emit implements Emitter.
func (NoopEmitter) Emit(_ context.Context, _ Event) {}

// NewEvent builds a default event with timestamp.
func NewEvent(eventType EventType, stage, taskID string, payload map[string]any) Event {
	return Event{
		Type:      eventType,
		Stage:     stage,
		TaskID:    taskID,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// ChannelEmitter forwards events to a channel. Events are dropped when the
// channel is full or the context is done, so a slow consumer never stalls
// the pipeline.
type ChannelEmitter struct {
	ch chan Event
}

// NewChannelEmitter creates an emitter with the given buffer size.
func NewChannelEmitter(buffer int) *ChannelEmitter {
	if buffer <= 0 {
		buffer = 64
	}
	return &ChannelEmitter{ch: make(chan Event, buffer)}
}

// Events returns the receive side of the emitter.
func (c *ChannelEmitter) Events() <-chan Event { return c.ch }

// Emit implements Emitter.
func (c *ChannelEmitter) Emit(ctx context.Context, event Event) {
	select {
	case c.ch <- event:
	case <-ctx.Done():
	default:
	}
}

// Close closes the underlying channel. Call only after execution finished.
func (c *ChannelEmitter) Close() { close(c.ch) }

// MultiEmitter fans one event out to several emitters.
type MultiEmitter []Emitter

// Emit implements Emitter.
func (m MultiEmitter) Emit(ctx context.Context, event Event) {
	for _, e := range m {
		if e != nil {
			e.Emit(ctx, event)
		}
	}
}
