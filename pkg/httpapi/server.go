// Package httpapi exposes the research service over HTTP+JSON, with SSE
// streaming for live pipeline progress. Errors are rendered as RFC 7807
// problem documents.
package httpapi

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/quaero-ai/quaero/pkg/errors"
	"github.com/quaero-ai/quaero/pkg/research"
)

// Health reports which external dependencies are configured.
type Health struct {
	LLMConfigured    bool
	SearchConfigured bool
}

// Server is the HTTP binding for the research service.
type Server struct {
	svc     *research.Service
	health  Health
	service string
	version string
	logger  *slog.Logger
}

// New creates a server for the given service.
func New(svc *research.Service, health Health, version string) *Server {
	return &Server{
		svc:     svc,
		health:  health,
		service: "Quaero Research Assistant",
		version: version,
		logger:  slog.Default().With("component", "httpapi"),
	}
}

// Routes builds the HTTP handler.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("POST /query", s.handleQuery)
	mux.HandleFunc("GET /tasks", s.handleListTasks)
	mux.HandleFunc("/tasks/", s.handleTask)
	return mux
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "operational",
		"service":   s.service,
		"version":   s.version,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	active, err := s.svc.ActiveTasks(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	memoryStatus := "disconnected"
	if s.svc.MemoryEnabled() {
		memoryStatus = "connected"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":       "healthy",
		"memory":       memoryStatus,
		"llm":          configured(s.health.LLMConfigured),
		"search":       configured(s.health.SearchConfigured),
		"active_tasks": active,
	})
}

type queryRequest struct {
	Query string `json:"query"`
	// Stream defaults to true when omitted: execution then belongs to the
	// /tasks/{id}:stream endpoint.
	Stream *bool `json:"stream"`
}

func (r queryRequest) wantsStream() bool {
	return r.Stream == nil || *r.Stream
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	body, err := io.ReadAll(r.Body)
	if err != nil || len(body) == 0 {
		writeError(w, errors.New(errors.CodeInvalidInput, "empty body", nil))
		return
	}
	var req queryRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, errors.New(errors.CodeInvalidInput, "invalid body", err))
		return
	}

	t, err := s.svc.Submit(r.Context(), req.Query)
	if err != nil {
		writeError(w, err)
		return
	}

	// Streaming clients drive execution through /tasks/{id}:stream.
	if !req.wantsStream() {
		s.svc.ExecuteAsync(r.Context(), t)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"task_id": t.ID,
		"status":  "created",
		"message": "Research task created successfully",
	})
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := s.svc.Tasks(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	items := make([]map[string]any, 0, len(tasks))
	for _, t := range tasks {
		items = append(items, map[string]any{
			"task_id":    t.ID,
			"query":      truncate(t.Query, 100),
			"status":     string(t.Status),
			"created_at": t.CreatedAt.Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"tasks": items,
		"total": len(tasks),
	})
}

func (s *Server) handleTask(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/tasks/")
	if id == "" || strings.Contains(id, "/") {
		http.NotFound(w, r)
		return
	}

	if streamID, ok := strings.CutSuffix(id, ":stream"); ok {
		if r.Method != http.MethodGet {
			http.NotFound(w, r)
			return
		}
		s.handleStream(w, r, streamID)
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.handleGetTask(w, r, id)
	case http.MethodDelete:
		s.handleDeleteTask(w, r, id)
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request, id string) {
	t, err := s.svc.Task(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := map[string]any{
		"task_id":       t.ID,
		"status":        string(t.Status),
		"current_stage": t.CurrentStage,
		"error":         t.Error,
	}
	if t.Result != nil {
		resp["final_response"] = t.Result.FinalResponse
	} else {
		resp["final_response"] = ""
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request, id string) {
	if err := s.svc.DeleteTask(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	s.logger.InfoContext(r.Context(), "task deleted", "task_id", id)
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Task deleted successfully",
	})
}

func configured(ok bool) string {
	if ok {
		return "configured"
	}
	return "not configured"
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, err error) {
	qe := errors.AsQuaeroError(err)
	status := qe.StatusCode
	if status == 0 {
		status = http.StatusInternalServerError
	}
	body := map[string]any{
		"type":   "about:blank",
		"title":  string(qe.Code),
		"detail": qe.Message,
	}
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
