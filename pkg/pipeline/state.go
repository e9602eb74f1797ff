// Package pipeline runs the research workflow as a deterministic execution
// graph over a shared state.
package pipeline

import "time"

// Verdicts assigned to validated claims.
const (
	VerdictSupported    = "SUPPORTED"
	VerdictContradicted = "CONTRADICTED"
	VerdictInsufficient = "INSUFFICIENT_EVIDENCE"
	VerdictError        = "ERROR"
)

// Source is a web document gathered during research.
type Source struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

// SourceSummary is the condensed form of one source.
type SourceSummary struct {
	SourceTitle   string  `json:"source_title"`
	SourceURL     string  `json:"source_url"`
	Summary       string  `json:"summary"`
	OriginalScore float64 `json:"original_score"`
}

// Validation is the fact-check result for one claim.
type Validation struct {
	Claim       string   `json:"claim"`
	Verdict     string   `json:"verdict"`
	Confidence  float64  `json:"confidence"`
	Explanation string   `json:"explanation"`
	Sources     []string `json:"sources"`
}

// ValidationStats aggregates validation outcomes.
type ValidationStats struct {
	TotalClaims  int     `json:"total_claims"`
	Supported    int     `json:"supported"`
	Contradicted int     `json:"contradicted"`
	Confidence   float64 `json:"confidence"`
}

// AgentLog records one agent's outcome for a stage.
type AgentLog struct {
	Agent     string                 `json:"agent"`
	Status    string                 `json:"status"`
	Message   string                 `json:"message"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

// Agent log statuses.
const (
	LogStatusCompleted = "completed"
	LogStatusSkipped   = "skipped"
	LogStatusError     = "error"
)

// State is the shared mutable object threaded through the pipeline stages.
type State struct {
	Query             string          `json:"query"`
	ResearchResults   []Source        `json:"research_results"`
	Summaries         []SourceSummary `json:"summaries"`
	CombinedSummary   string          `json:"combined_summary"`
	Validations       []Validation    `json:"validations"`
	OverallConfidence float64         `json:"overall_confidence"`
	ValidationStats   ValidationStats `json:"validation_stats"`
	FinalResponse     string          `json:"final_response"`
	MemoryContext     string          `json:"memory_context"`
	AgentLogs         []AgentLog      `json:"agent_logs"`
	Error             string          `json:"error"`
	CurrentStage      string          `json:"current_stage"`
}

// NewState creates a state seeded with the user query.
func NewState(query string) *State {
	return &State{
		Query:        query,
		CurrentStage: "Initializing...",
	}
}

// AppendLog records an agent log entry on the state.
func (s *State) AppendLog(agent, status, message string, data map[string]interface{}) {
	s.AgentLogs = append(s.AgentLogs, AgentLog{
		Agent:     agent,
		Status:    status,
		Message:   message,
		Timestamp: time.Now().UTC(),
		Data:      data,
	})
}

// LastLog returns the most recent agent log entry, or nil.
func (s *State) LastLog() *AgentLog {
	if len(s.AgentLogs) == 0 {
		return nil
	}
	return &s.AgentLogs[len(s.AgentLogs)-1]
}
