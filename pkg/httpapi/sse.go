package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/quaero-ai/quaero/pkg/errors"
	"github.com/quaero-ai/quaero/pkg/pipeline"
	"github.com/quaero-ai/quaero/pkg/research"
	"github.com/quaero-ai/quaero/pkg/task"
)

// sseWriter writes named server-sent events.
type sseWriter struct {
	w http.ResponseWriter
	f http.Flusher
}

func newSSEWriter(w http.ResponseWriter, f http.Flusher) *sseWriter {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	return &sseWriter{w: w, f: f}
}

func (s *sseWriter) send(event string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	if _, err := s.w.Write([]byte("event: " + event + "\n")); err != nil {
		return err
	}
	if _, err := s.w.Write([]byte("data: ")); err != nil {
		return err
	}
	if _, err := s.w.Write(payload); err != nil {
		return err
	}
	if _, err := s.w.Write([]byte("\n\n")); err != nil {
		return err
	}
	s.f.Flush()
	return nil
}

// handleStream drives the pipeline for the task and streams progress as
// SSE: status, stage, log, response (presentation chunks), complete, error.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request, id string) {
	ctx := r.Context()

	t, err := s.svc.Task(ctx, id)
	if err != nil {
		writeError(w, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, errors.New(errors.CodeInternal, "streaming not supported", nil))
		return
	}
	sse := newSSEWriter(w, flusher)

	_ = sse.send("status", map[string]any{
		"stage":   "initializing",
		"message": "Starting research workflow...",
	})

	state := resultState(t)
	if state == nil {
		emitter := pipeline.NewChannelEmitter(64)
		type outcome struct {
			state *pipeline.State
			err   error
		}
		done := make(chan outcome, 1)
		go func() {
			st, execErr := s.svc.Execute(ctx, t, emitter)
			emitter.Close()
			done <- outcome{state: st, err: execErr}
		}()

		for ev := range emitter.Events() {
			switch ev.Type {
			case pipeline.EventStageStarted:
				_ = sse.send("stage", map[string]any{
					"stage":     ev.Stage,
					"message":   research.StageLabel(ev.Stage),
					"timestamp": ev.Timestamp.Format(time.RFC3339),
				})
			case pipeline.EventAgentLogged:
				entry := map[string]any{"agent": ev.Stage}
				for k, v := range ev.Payload {
					entry[k] = v
				}
				entry["timestamp"] = ev.Timestamp.Format(time.RFC3339)
				_ = sse.send("log", entry)
			case pipeline.EventPipelineError:
				_ = sse.send("error", map[string]any{
					"error":   ev.Payload["error"],
					"message": "An error occurred during research",
				})
			}
		}

		res := <-done
		if res.err != nil {
			s.logger.ErrorContext(ctx, "streaming task failed", "task_id", id, "error", res.err)
			_ = sse.send("error", map[string]any{
				"error":   res.err.Error(),
				"message": "An error occurred during research",
			})
			return
		}
		state = res.state
	}

	_ = sse.send("status", map[string]any{
		"stage":   "presenting",
		"message": "Streaming final response...",
	})
	for chunk := range s.svc.StreamPresentation(ctx, state) {
		_ = sse.send("response", map[string]any{"chunk": chunk})
	}

	_ = sse.send("complete", map[string]any{
		"message":       "Research completed",
		"confidence":    state.OverallConfidence,
		"sources_count": len(state.Summaries),
	})
}

// resultState returns the stored final state for tasks that already ran.
func resultState(t *task.Task) *pipeline.State {
	if t.Status == task.StatusCompleted && t.Result != nil {
		return t.Result
	}
	return nil
}
