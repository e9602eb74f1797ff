// Package agents implements the four stages of the research pipeline:
// research, summarize, validate, present. Each agent mutates the shared
// pipeline state and records its outcome as an agent log entry; stage
// failures are written to the state instead of aborting the run, so
// downstream stages can degrade gracefully.
package agents

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/quaero-ai/quaero/pkg/memory"
	"github.com/quaero-ai/quaero/pkg/pipeline"
	"github.com/quaero-ai/quaero/pkg/resilience"
	"github.com/quaero-ai/quaero/pkg/search"
)

const (
	memoryLookupLimit = 3
	searchMaxResults  = 10
)

// Researcher gathers web sources for the query. When semantic memory is
// configured it first looks up similar past research and records it as
// context for later stages.
type Researcher struct {
	search search.Client
	memory *memory.ResearchMemory
	retry  resilience.RetryConfig
	logger *slog.Logger
}

// NewResearcher creates a researcher. mem may be nil to disable the
// memory lookup.
func NewResearcher(client search.Client, mem *memory.ResearchMemory) *Researcher {
	return &Researcher{
		search: client,
		memory: mem,
		retry:  resilience.DefaultRetryConfig(),
		logger: slog.Default().With("agent", pipeline.StageResearch),
	}
}

// Handler adapts the agent to a pipeline stage handler.
func (r *Researcher) Handler() pipeline.Handler {
	return func(ctx context.Context, _ pipeline.Node, state *pipeline.State) error {
		return r.Execute(ctx, state)
	}
}

// Execute runs the research stage.
func (r *Researcher) Execute(ctx context.Context, state *pipeline.State) error {
	r.logger.InfoContext(ctx, "starting research", "query", truncate(state.Query, 50))

	if r.memory != nil {
		snippets, err := r.memory.SearchSimilar(ctx, state.Query, memoryLookupLimit)
		if err != nil {
			// Memory is advisory only.
			r.logger.WarnContext(ctx, "memory lookup failed", "error", err)
		} else if len(snippets) > 0 {
			lines := make([]string, 0, len(snippets))
			for _, s := range snippets {
				lines = append(lines, "- "+truncate(s.Content, 100)+"...")
			}
			state.MemoryContext = "\n\nRelevant past research:\n" + strings.Join(lines, "\n")
			r.logger.InfoContext(ctx, "found past research snippets", "count", len(snippets))
		}
	}

	value, err := r.retry.DoWithResult(ctx, func() (interface{}, error) {
		return r.search.Search(ctx, state.Query, search.Options{
			MaxResults:    searchMaxResults,
			Depth:         search.DepthAdvanced,
			IncludeAnswer: true,
		})
	})
	if err != nil {
		r.logger.ErrorContext(ctx, "web search failed", "error", err)
		state.Error = err.Error()
		state.AppendLog(pipeline.StageResearch, pipeline.LogStatusError, "Error: "+err.Error(), nil)
		return nil
	}

	results := value.([]search.Result)
	if len(results) == 0 {
		r.logger.WarnContext(ctx, "no search results found")
		state.Error = "No search results found"
		state.AppendLog(pipeline.StageResearch, pipeline.LogStatusError, "No search results found", nil)
		return nil
	}

	sources := make([]pipeline.Source, 0, len(results))
	for _, res := range results {
		sources = append(sources, pipeline.Source{
			Title:   res.Title,
			URL:     res.URL,
			Content: res.Content,
			Score:   res.Score,
		})
	}
	state.ResearchResults = sources

	r.logger.InfoContext(ctx, "research completed", "sources", len(sources))
	state.AppendLog(pipeline.StageResearch, pipeline.LogStatusCompleted,
		fmt.Sprintf("Found %d relevant sources", len(sources)),
		map[string]interface{}{
			"sources_count": len(sources),
			"top_source":    sources[0].Title,
		})
	return nil
}
