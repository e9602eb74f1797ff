package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func orderRecorder(order *[]string) Handler {
	return func(_ context.Context, node Node, _ *State) error {
		*order = append(*order, node.Stage)
		return nil
	}
}

func TestExecuteRunsStagesInOrder(t *testing.T) {
	var order []string
	handlers := map[string]Handler{
		StageResearch:  orderRecorder(&order),
		StageSummarize: orderRecorder(&order),
		StageValidate:  orderRecorder(&order),
		StagePresent:   orderRecorder(&order),
	}

	state, err := NewExecutor(handlers).Execute(context.Background(), ResearchGraph(), NewState("test query"))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	want := []string{StageResearch, StageSummarize, StageValidate, StagePresent}
	if len(order) != len(want) {
		t.Fatalf("ran %d stages, want %d", len(order), len(want))
	}
	for i, stage := range want {
		if order[i] != stage {
			t.Errorf("stage %d = %q, want %q", i, order[i], stage)
		}
	}
	if state.CurrentStage != "complete" {
		t.Errorf("CurrentStage = %q, want complete", state.CurrentStage)
	}
}

func TestExecuteSharesStateBetweenStages(t *testing.T) {
	handlers := map[string]Handler{
		StageResearch: func(_ context.Context, _ Node, s *State) error {
			s.ResearchResults = append(s.ResearchResults, Source{Title: "A", URL: "https://a.example"})
			return nil
		},
		StageSummarize: func(_ context.Context, _ Node, s *State) error {
			s.CombinedSummary = fmt.Sprintf("%d sources", len(s.ResearchResults))
			return nil
		},
	}
	graph := &Graph{
		Start: StageResearch,
		Nodes: map[string]Node{
			StageResearch:  {Stage: StageResearch},
			StageSummarize: {Stage: StageSummarize},
		},
		Edges: []Edge{{From: StageResearch, To: StageSummarize}},
	}

	state, err := NewExecutor(handlers).Execute(context.Background(), graph, NewState("q"))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if state.CombinedSummary != "1 sources" {
		t.Errorf("CombinedSummary = %q", state.CombinedSummary)
	}
}

func TestExecuteHandlerError(t *testing.T) {
	boom := errors.New("boom")
	handlers := map[string]Handler{
		StageResearch: func(_ context.Context, _ Node, _ *State) error { return boom },
	}
	graph := &Graph{
		Start: StageResearch,
		Nodes: map[string]Node{StageResearch: {Stage: StageResearch}},
	}

	_, err := NewExecutor(handlers).Execute(context.Background(), graph, NewState("q"))
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped boom", err)
	}
	if !strings.Contains(err.Error(), StageResearch) {
		t.Errorf("error should name failing stage: %v", err)
	}
}

func TestExecuteMissingHandler(t *testing.T) {
	graph := &Graph{
		Start: StageResearch,
		Nodes: map[string]Node{StageResearch: {Stage: StageResearch}},
	}
	_, err := NewExecutor(map[string]Handler{}).Execute(context.Background(), graph, NewState("q"))
	if err == nil || !strings.Contains(err.Error(), "no handler") {
		t.Fatalf("err = %v, want missing handler error", err)
	}
}

func TestExecuteCycleDetection(t *testing.T) {
	handlers := map[string]Handler{
		"a": func(_ context.Context, _ Node, _ *State) error { return nil },
	}
	graph := &Graph{
		Start: "n1",
		Nodes: map[string]Node{
			"n1": {Stage: "a"},
			"n2": {Stage: "a"},
		},
		Edges: []Edge{{From: "n1", To: "n2"}, {From: "n2", To: "n1"}},
	}
	_, err := NewExecutor(handlers).Execute(context.Background(), graph, NewState("q"))
	if err == nil || !strings.Contains(err.Error(), "cycle") {
		t.Fatalf("err = %v, want cycle error", err)
	}
}

func TestExecuteContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	handlers := map[string]Handler{
		StageResearch: func(_ context.Context, _ Node, _ *State) error {
			t.Fatal("handler must not run after cancellation")
			return nil
		},
	}
	graph := &Graph{
		Start: StageResearch,
		Nodes: map[string]Node{StageResearch: {Stage: StageResearch}},
	}
	_, err := NewExecutor(handlers).Execute(ctx, graph, NewState("q"))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestExecuteEmitsEvents(t *testing.T) {
	emitter := NewChannelEmitter(32)
	handlers := map[string]Handler{
		StageResearch: func(_ context.Context, _ Node, s *State) error {
			s.AppendLog(StageResearch, LogStatusCompleted, "found 2 sources", nil)
			return nil
		},
	}
	graph := &Graph{
		Start: StageResearch,
		Nodes: map[string]Node{StageResearch: {Stage: StageResearch}},
	}

	_, err := NewExecutor(handlers).WithEmitter(emitter).Execute(context.Background(), graph, NewState("q"))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	emitter.Close()

	var types []EventType
	for ev := range emitter.Events() {
		types = append(types, ev.Type)
	}
	want := []EventType{EventStageStarted, EventAgentLogged, EventStageCompleted, EventPipelineDone}
	if len(types) != len(want) {
		t.Fatalf("got events %v, want %v", types, want)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Errorf("event %d = %q, want %q", i, types[i], want[i])
		}
	}
}

func TestGraphValidate(t *testing.T) {
	cases := []struct {
		name  string
		graph *Graph
		want  string
	}{
		{"no nodes", &Graph{}, "no nodes"},
		{"missing stage", &Graph{Nodes: map[string]Node{"a": {}}}, "missing stage"},
		{"bad edge from", &Graph{
			Nodes: map[string]Node{"a": {Stage: "x"}},
			Edges: []Edge{{From: "ghost", To: "a"}},
		}, "not found"},
		{"bad edge to", &Graph{
			Nodes: map[string]Node{"a": {Stage: "x"}},
			Edges: []Edge{{From: "a", To: "ghost"}},
		}, "not found"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.graph.Validate()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("err = %v, want containing %q", err, tc.want)
			}
		})
	}

	if err := ResearchGraph().Validate(); err != nil {
		t.Fatalf("default graph should validate: %v", err)
	}
}

func TestParseYAMLGraph(t *testing.T) {
	data := []byte(`
id: custom
start: research
nodes:
  research:
    stage: research
  present:
    stage: present
edges:
  - from: research
    to: present
`)
	graph, err := ParseYAML(data)
	if err != nil {
		t.Fatalf("ParseYAML: %v", err)
	}
	if graph.ID != "custom" {
		t.Errorf("ID = %q", graph.ID)
	}
	if len(graph.Nodes) != 2 || len(graph.Edges) != 1 {
		t.Errorf("nodes/edges = %d/%d", len(graph.Nodes), len(graph.Edges))
	}
	if graph.Nodes["research"].ID != "research" {
		t.Errorf("node id not backfilled from map key")
	}
}

func TestParseJSONGraph(t *testing.T) {
	data := []byte(`{"id":"j","start":"a","nodes":{"a":{"stage":"research"}}}`)
	graph, err := ParseJSON(data)
	if err != nil {
		t.Fatalf("ParseJSON: %v", err)
	}
	if graph.Start != "a" {
		t.Errorf("Start = %q", graph.Start)
	}
}

func TestLoadGraphFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "flow.yaml")
	content := "id: file\nstart: a\nnodes:\n  a:\n    stage: research\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	graph, err := LoadGraph(path)
	if err != nil {
		t.Fatalf("LoadGraph: %v", err)
	}
	if graph.ID != "file" {
		t.Errorf("ID = %q", graph.ID)
	}

	if _, err := LoadGraph(""); err == nil {
		t.Error("empty path should fail")
	}
	if _, err := LoadGraph(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("missing file should fail")
	}
}
