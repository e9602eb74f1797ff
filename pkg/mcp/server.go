// Package mcp exposes the research pipeline as MCP tools over stdio, so
// editor and agent hosts can submit research queries.
package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/quaero-ai/quaero/pkg/research"
)

// Server wraps the mcp-go server with the research toolset.
type Server struct {
	svc       *research.Service
	mcpServer *server.MCPServer
}

// NewServer creates an MCP server for the research service.
func NewServer(svc *research.Service, name, version string) *Server {
	s := &Server{
		svc:       svc,
		mcpServer: server.NewMCPServer(name, version),
	}
	s.registerTools()
	return s
}

// ServeStdio starts the server on stdin/stdout. It blocks until the
// transport closes.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

func (s *Server) registerTools() {
	s.register("research_query",
		"Run the full research pipeline (search, summarize, validate, present) for a query and return the final markdown report.",
		s.handleQuery)
	s.register("research_status",
		"Get the status and result of a research task by its id.",
		s.handleStatus)
	s.register("research_list",
		"List research tasks, newest first.",
		s.handleList)
}

func (s *Server) register(name, description string, handler func(ctx context.Context, args map[string]interface{}) (*mcp.CallToolResult, error)) {
	tool := mcp.NewTool(name, mcp.WithDescription(description))
	s.mcpServer.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, _ := request.Params.Arguments.(map[string]interface{})
		return handler(ctx, args)
	})
}

func (s *Server) handleQuery(ctx context.Context, args map[string]interface{}) (*mcp.CallToolResult, error) {
	query, _ := args["query"].(string)
	if strings.TrimSpace(query) == "" {
		return errorResult("query is required"), nil
	}

	t, err := s.svc.Submit(ctx, query)
	if err != nil {
		return errorResult(err.Error()), nil
	}
	state, err := s.svc.Execute(ctx, t, nil)
	if err != nil {
		return errorResult(err.Error()), nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: state.FinalResponse}},
		StructuredContent: map[string]interface{}{
			"task_id":         t.ID,
			"confidence":      state.OverallConfidence,
			"sources_count":   len(state.Summaries),
			"claims_verified": len(state.Validations),
		},
	}, nil
}

func (s *Server) handleStatus(ctx context.Context, args map[string]interface{}) (*mcp.CallToolResult, error) {
	id, _ := args["task_id"].(string)
	if id == "" {
		return errorResult("task_id is required"), nil
	}

	t, err := s.svc.Task(ctx, id)
	if err != nil {
		return errorResult(err.Error()), nil
	}

	structured := map[string]interface{}{
		"task_id":       t.ID,
		"query":         t.Query,
		"status":        string(t.Status),
		"current_stage": t.CurrentStage,
	}
	text := fmt.Sprintf("Task %s is %s (%s).", t.ID, t.Status, t.CurrentStage)
	if t.Result != nil {
		structured["confidence"] = t.Result.OverallConfidence
		text = t.Result.FinalResponse
	}
	if t.Error != "" {
		structured["error"] = t.Error
	}

	return &mcp.CallToolResult{
		Content:           []mcp.Content{mcp.TextContent{Type: "text", Text: text}},
		StructuredContent: structured,
	}, nil
}

func (s *Server) handleList(ctx context.Context, args map[string]interface{}) (*mcp.CallToolResult, error) {
	tasks, err := s.svc.Tasks(ctx)
	if err != nil {
		return errorResult(err.Error()), nil
	}

	items := make([]map[string]interface{}, 0, len(tasks))
	var b strings.Builder
	for _, t := range tasks {
		items = append(items, map[string]interface{}{
			"task_id": t.ID,
			"query":   t.Query,
			"status":  string(t.Status),
		})
		fmt.Fprintf(&b, "- %s [%s] %s\n", t.ID, t.Status, t.Query)
	}
	if len(tasks) == 0 {
		b.WriteString("No research tasks yet.")
	}

	return &mcp.CallToolResult{
		Content:           []mcp.Content{mcp.TextContent{Type: "text", Text: b.String()}},
		StructuredContent: map[string]interface{}{"tasks": items, "total": len(tasks)},
	}, nil
}

func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: msg}},
	}
}
