package pipeline

import "fmt"

// Graph defines a deterministic execution graph for the research workflow.
type Graph struct {
	ID    string          `json:"id" yaml:"id"`
	Start string          `json:"start" yaml:"start"`
	Nodes map[string]Node `json:"nodes" yaml:"nodes"`
	Edges []Edge          `json:"edges" yaml:"edges"`
}

// Node represents a stage in the graph. Stage selects the handler that
// executes the node.
type Node struct {
	ID       string            `json:"id" yaml:"id"`
	Stage    string            `json:"stage" yaml:"stage"`
	Metadata map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// Edge defines a transition between nodes.
type Edge struct {
	From string `json:"from" yaml:"from"`
	To   string `json:"to" yaml:"to"`
}

// Validate ensures the graph is well-formed for execution.
func (g *Graph) Validate() error {
	if g == nil {
		return fmt.Errorf("graph is nil")
	}
	if len(g.Nodes) == 0 {
		return fmt.Errorf("graph has no nodes")
	}

	for id, node := range g.Nodes {
		if node.ID == "" {
			node.ID = id
			g.Nodes[id] = node
		}
		if node.ID == "" {
			return fmt.Errorf("node id is required")
		}
		if node.Stage == "" {
			return fmt.Errorf("node %q missing stage", node.ID)
		}
	}

	for _, edge := range g.Edges {
		if edge.From == "" || edge.To == "" {
			return fmt.Errorf("edge must include from/to")
		}
		if _, ok := g.Nodes[edge.From]; !ok {
			return fmt.Errorf("edge from %q not found", edge.From)
		}
		if _, ok := g.Nodes[edge.To]; !ok {
			return fmt.Errorf("edge to %q not found", edge.To)
		}
	}
	return nil
}

// Stage names of the research workflow.
const (
	StageResearch  = "research"
	StageSummarize = "summarize"
	StageValidate  = "validate"
	StagePresent   = "present"
)

// ResearchGraph returns the default sequential workflow:
// research, summarize, validate, present.
func ResearchGraph() *Graph {
	return &Graph{
		ID:    "research-pipeline",
		Start: StageResearch,
		Nodes: map[string]Node{
			StageResearch:  {ID: StageResearch, Stage: StageResearch},
			StageSummarize: {ID: StageSummarize, Stage: StageSummarize},
			StageValidate:  {ID: StageValidate, Stage: StageValidate},
			StagePresent:   {ID: StagePresent, Stage: StagePresent},
		},
		Edges: []Edge{
			{From: StageResearch, To: StageSummarize},
			{From: StageSummarize, To: StageValidate},
			{From: StageValidate, To: StagePresent},
		},
	}
}
