package agents

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/quaero-ai/quaero/pkg/llm"
	"github.com/quaero-ai/quaero/pkg/pipeline"
	"github.com/quaero-ai/quaero/pkg/resilience"
)

const (
	maxSummarySources   = 8
	minSourceContentLen = 100
	summaryWordLimit    = 150
)

const noSummaryText = "Unable to generate summary from available sources."

// Summarizer condenses each gathered source and synthesizes the per-source
// summaries into one combined summary.
type Summarizer struct {
	llm    llm.Provider
	logger *slog.Logger
}

// NewSummarizer creates a summarizer backed by the given provider.
func NewSummarizer(provider llm.Provider) *Summarizer {
	return &Summarizer{
		llm:    provider,
		logger: slog.Default().With("agent", pipeline.StageSummarize),
	}
}

// Handler adapts the agent to a pipeline stage handler.
func (s *Summarizer) Handler() pipeline.Handler {
	return func(ctx context.Context, _ pipeline.Node, state *pipeline.State) error {
		return s.Execute(ctx, state)
	}
}

// Execute runs the summarize stage.
func (s *Summarizer) Execute(ctx context.Context, state *pipeline.State) error {
	s.logger.InfoContext(ctx, "summarizing sources", "count", len(state.ResearchResults))

	if len(state.ResearchResults) == 0 {
		s.logger.WarnContext(ctx, "no research results to summarize")
		state.Summaries = nil
		state.AppendLog(pipeline.StageSummarize, pipeline.LogStatusSkipped,
			"No research results to summarize", nil)
		return nil
	}

	sources := state.ResearchResults
	if len(sources) > maxSummarySources {
		sources = sources[:maxSummarySources]
	}

	var summaries []pipeline.SourceSummary
	for idx, src := range sources {
		if err := ctx.Err(); err != nil {
			return err
		}
		if len(src.Content) < minSourceContentLen {
			continue
		}

		summary := s.summarizeSource(ctx, src.Content)
		title := src.Title
		if title == "" {
			title = fmt.Sprintf("Source %d", idx+1)
		}
		summaries = append(summaries, pipeline.SourceSummary{
			SourceTitle:   title,
			SourceURL:     src.URL,
			Summary:       summary,
			OriginalScore: src.Score,
		})
	}

	combined := noSummaryText
	if len(summaries) > 0 {
		texts := make([]string, 0, len(summaries))
		for _, sum := range summaries {
			texts = append(texts, sum.Summary)
		}
		var err error
		combined, err = s.combineSummaries(ctx, state.Query, texts)
		if err != nil {
			s.logger.ErrorContext(ctx, "combining summaries failed", "error", err)
			combined = strings.Join(texts, "\n\n")
		}
	}

	state.Summaries = summaries
	state.CombinedSummary = combined

	s.logger.InfoContext(ctx, "summarization completed", "summaries", len(summaries))
	state.AppendLog(pipeline.StageSummarize, pipeline.LogStatusCompleted,
		fmt.Sprintf("Created %d summaries and synthesis", len(summaries)),
		map[string]interface{}{
			"summary_count":    len(summaries),
			"synthesis_length": len(combined),
		})
	return nil
}

// summarizeSource condenses one source. On provider failure it degrades to
// a word-capped excerpt of the original text.
func (s *Summarizer) summarizeSource(ctx context.Context, text string) string {
	prompt := fmt.Sprintf(`Provide a concise summary in approximately %d words.

Text to summarize:
%s

Summary:`, summaryWordLimit, text)

	value, _ := resilience.WithFallback(ctx, func() (interface{}, error) {
		resp, err := s.llm.Chat(ctx, llm.ChatRequest{
			Messages: []llm.Message{
				{Role: llm.RoleSystem, Content: "You are an expert at summarizing information clearly and accurately."},
				{Role: llm.RoleUser, Content: prompt},
			},
			Temperature: 0.3,
			MaxTokens:   500,
		})
		if err != nil {
			return nil, err
		}
		return strings.TrimSpace(resp.Content), nil
	}, resilience.FallbackFunc(func(_ context.Context, primaryErr error) (interface{}, error) {
		s.logger.ErrorContext(ctx, "source summarization failed", "error", primaryErr)
		return "Summary: " + excerptWords(text, summaryWordLimit), nil
	}))
	return value.(string)
}

func (s *Summarizer) combineSummaries(ctx context.Context, query string, texts []string) (string, error) {
	numbered := make([]string, 0, len(texts))
	for i, t := range texts {
		numbered = append(numbered, fmt.Sprintf("Source %d: %s", i+1, t))
	}

	prompt := fmt.Sprintf(`Given the following summaries from multiple sources about %q,
create a cohesive, well-structured summary that synthesizes the key information.

Summaries:
%s

Please provide a comprehensive summary that:
1. Identifies the main themes
2. Highlights key insights
3. Notes any contradictions or disagreements
4. Organizes information logically
`, query, strings.Join(numbered, "\n\n"))

	resp, err := s.llm.Chat(ctx, llm.ChatRequest{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: "You are an expert research analyst."},
			{Role: llm.RoleUser, Content: prompt},
		},
		Temperature: 0.4,
		MaxTokens:   800,
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Content), nil
}

// excerptWords returns the first limit words of text, with an ellipsis
// when truncated.
func excerptWords(text string, limit int) string {
	words := strings.Fields(text)
	if len(words) <= limit {
		return strings.Join(words, " ")
	}
	return strings.Join(words[:limit], " ") + "..."
}

// truncate caps s at n runes.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
