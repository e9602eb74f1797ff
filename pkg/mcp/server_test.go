package mcp

import (
	"context"
	"strings"
	"testing"

	mcpgo "github.com/mark3labs/mcp-go/mcp"

	"github.com/quaero-ai/quaero/pkg/llm"
	"github.com/quaero-ai/quaero/pkg/research"
	"github.com/quaero-ai/quaero/pkg/search"
	"github.com/quaero-ai/quaero/pkg/task"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	provider := llm.NewScriptedMockProvider(
		"summary of first source",
		"summary of second source",
		"combined summary of research",
		"The first important claim",
		"VERDICT: SUPPORTED\nCONFIDENCE: 0.9\nEXPLANATION: evidence agrees",
		"## Answer\n\nHere are the findings.",
	)
	client := &search.MockClient{Results: []search.Result{
		{Title: "Source One", URL: "https://one.example",
			Content: "one " + strings.Repeat("alpha beta gamma delta epsilon ", 8), Score: 0.9},
		{Title: "Source Two", URL: "https://two.example",
			Content: "two " + strings.Repeat("alpha beta gamma delta epsilon ", 8), Score: 0.8},
	}}
	svc := research.NewService(provider, client, nil, task.NewMemoryStore())
	return NewServer(svc, "quaero", "test")
}

func textContent(t *testing.T, result *mcpgo.CallToolResult) string {
	t.Helper()
	if len(result.Content) != 1 {
		t.Fatalf("content = %+v", result.Content)
	}
	tc, ok := result.Content[0].(mcpgo.TextContent)
	if !ok {
		t.Fatalf("content[0] = %T", result.Content[0])
	}
	return tc.Text
}

func TestQueryTool(t *testing.T) {
	srv := newTestServer(t)

	result, err := srv.handleQuery(context.Background(),
		map[string]interface{}{"query": "what changed in fusion research"})
	if err != nil {
		t.Fatalf("handleQuery: %v", err)
	}
	if result.IsError {
		t.Fatalf("result = %+v", result)
	}

	text := textContent(t, result)
	if !strings.Contains(text, "Here are the findings.") {
		t.Errorf("text = %q", text)
	}

	structured := result.StructuredContent.(map[string]interface{})
	if structured["confidence"] != 0.9 {
		t.Errorf("confidence = %v", structured["confidence"])
	}
	if structured["sources_count"] != 2 {
		t.Errorf("sources_count = %v", structured["sources_count"])
	}
}

func TestQueryToolRequiresQuery(t *testing.T) {
	srv := newTestServer(t)
	for _, args := range []map[string]interface{}{nil, {"query": "   "}, {"query": 7}} {
		result, err := srv.handleQuery(context.Background(), args)
		if err != nil {
			t.Fatalf("handleQuery: %v", err)
		}
		if !result.IsError {
			t.Errorf("args %v: expected error result", args)
		}
	}
}

func TestStatusTool(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()

	created, err := srv.svc.Submit(ctx, "status check")
	if err != nil {
		t.Fatal(err)
	}

	result, err := srv.handleStatus(ctx, map[string]interface{}{"task_id": created.ID})
	if err != nil {
		t.Fatalf("handleStatus: %v", err)
	}
	structured := result.StructuredContent.(map[string]interface{})
	if structured["status"] != "pending" || structured["query"] != "status check" {
		t.Errorf("structured = %v", structured)
	}
}

func TestStatusToolUnknownTask(t *testing.T) {
	srv := newTestServer(t)
	result, err := srv.handleStatus(context.Background(),
		map[string]interface{}{"task_id": "missing"})
	if err != nil {
		t.Fatalf("handleStatus: %v", err)
	}
	if !result.IsError {
		t.Error("expected error result")
	}
}

func TestListTool(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()

	result, err := srv.handleList(ctx, nil)
	if err != nil {
		t.Fatalf("handleList: %v", err)
	}
	if got := textContent(t, result); got != "No research tasks yet." {
		t.Errorf("text = %q", got)
	}

	if _, err := srv.svc.Submit(ctx, "list me"); err != nil {
		t.Fatal(err)
	}
	result, err = srv.handleList(ctx, nil)
	if err != nil {
		t.Fatalf("handleList: %v", err)
	}
	structured := result.StructuredContent.(map[string]interface{})
	if structured["total"] != 1 {
		t.Errorf("total = %v", structured["total"])
	}
	if !strings.Contains(textContent(t, result), "list me") {
		t.Errorf("text = %q", textContent(t, result))
	}
}
