package agents

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/quaero-ai/quaero/pkg/llm"
	"github.com/quaero-ai/quaero/pkg/pipeline"
)

const maxPresentedSources = 5

// Presenter renders the research findings as a markdown answer. Provider
// failures degrade to a deterministic rendering, never an error.
type Presenter struct {
	llm    llm.Provider
	logger *slog.Logger
}

// NewPresenter creates a presenter.
func NewPresenter(provider llm.Provider) *Presenter {
	return &Presenter{
		llm:    provider,
		logger: slog.Default().With("agent", pipeline.StagePresent),
	}
}

// Handler adapts the agent to a pipeline stage handler.
func (p *Presenter) Handler() pipeline.Handler {
	return func(ctx context.Context, _ pipeline.Node, state *pipeline.State) error {
		return p.Execute(ctx, state)
	}
}

// Execute runs the present stage.
func (p *Presenter) Execute(ctx context.Context, state *pipeline.State) error {
	p.logger.InfoContext(ctx, "crafting final response")

	presentation := p.createPresentation(ctx, state)
	state.FinalResponse = presentation

	p.logger.InfoContext(ctx, "final response prepared", "length", len(presentation))
	state.AppendLog(pipeline.StagePresent, pipeline.LogStatusCompleted,
		"Final response prepared",
		map[string]interface{}{
			"response_length": len(presentation),
		})
	return nil
}

func (p *Presenter) createPresentation(ctx context.Context, state *pipeline.State) string {
	prompt := presentationPrompt(state)

	resp, err := p.llm.Chat(ctx, llm.ChatRequest{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: "You are an expert research presenter who communicates complex information clearly."},
			{Role: llm.RoleUser, Content: prompt},
		},
		Temperature: 0.6,
		MaxTokens:   1200,
	})
	if err != nil {
		p.logger.ErrorContext(ctx, "presentation request failed", "error", err)
		return basicPresentation(state)
	}

	return strings.TrimSpace(resp.Content) + metadataFooter(state)
}

// StreamPresentation renders the answer chunk by chunk on the returned
// channel. Providers without streaming support deliver the whole answer as
// one chunk. The channel is closed when the presentation is complete.
func (p *Presenter) StreamPresentation(ctx context.Context, state *pipeline.State) <-chan string {
	out := make(chan string, 16)

	go func() {
		defer close(out)

		sp, ok := p.llm.(llm.StreamingProvider)
		if !ok {
			emit(ctx, out, p.createPresentation(ctx, state))
			return
		}

		stream, err := sp.ChatStream(ctx, llm.ChatRequest{
			Messages: []llm.Message{
				{Role: llm.RoleSystem, Content: "You are an expert research presenter who communicates complex information clearly."},
				{Role: llm.RoleUser, Content: presentationPrompt(state)},
			},
			Temperature: 0.6,
			MaxTokens:   1200,
		})
		if err != nil {
			p.logger.ErrorContext(ctx, "presentation stream failed", "error", err)
			emit(ctx, out, basicPresentation(state))
			return
		}

		for chunk := range stream {
			if chunk.Error != nil {
				p.logger.ErrorContext(ctx, "presentation stream aborted", "error", chunk.Error)
				emit(ctx, out, "\n\n"+basicPresentation(state))
				return
			}
			if chunk.Content != "" {
				if !emit(ctx, out, chunk.Content) {
					return
				}
			}
		}
		emit(ctx, out, metadataFooter(state))
	}()

	return out
}

func emit(ctx context.Context, out chan<- string, chunk string) bool {
	select {
	case out <- chunk:
		return true
	case <-ctx.Done():
		return false
	}
}

func presentationPrompt(state *pipeline.State) string {
	var validationContext string
	if len(state.Validations) > 0 {
		var b strings.Builder
		b.WriteString("\n\nValidation Results:\n")
		for _, v := range state.Validations {
			fmt.Fprintf(&b, "- %s: %s (confidence: %.2f)\n", v.Claim, v.Verdict, v.Confidence)
		}
		validationContext = b.String()
	}

	var sourcesContext string
	if len(state.Summaries) > 0 {
		var b strings.Builder
		b.WriteString("\n\nSources:\n")
		for i, s := range topSummaries(state) {
			fmt.Fprintf(&b, "%d. %s\n", i+1, s.SourceTitle)
		}
		sourcesContext = b.String()
	}

	return fmt.Sprintf(`You are presenting research findings to a user. Create a comprehensive, well-structured response.

User Query: %s

Research Summary:
%s
%s%s

Overall Confidence Score: %.2f

Please create a final response that:
1. Directly answers the user's query
2. Presents key findings in a clear, organized manner
3. Uses markdown formatting (headings, bullet points, bold, etc.)
4. Includes the confidence assessment
5. Cites the number of sources verified
6. Is engaging and easy to read

Format the response professionally with proper markdown.`,
		state.Query, state.CombinedSummary, validationContext, sourcesContext, state.OverallConfidence)
}

func metadataFooter(state *pipeline.State) string {
	var b strings.Builder
	b.WriteString("\n\n---\n\n**Research Metadata:**\n")
	fmt.Fprintf(&b, "- Sources analyzed: %d\n", len(state.Summaries))
	fmt.Fprintf(&b, "- Claims validated: %d\n", len(state.Validations))
	fmt.Fprintf(&b, "- Overall confidence: %.1f%%\n", state.OverallConfidence*100)
	return b.String()
}

// basicPresentation renders the findings without the provider.
func basicPresentation(state *pipeline.State) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Research Results: %s\n\n", state.Query)
	fmt.Fprintf(&b, "## Summary\n\n%s\n\n", state.CombinedSummary)

	if len(state.Summaries) > 0 {
		b.WriteString("## Sources\n\n")
		for i, s := range topSummaries(state) {
			fmt.Fprintf(&b, "%d. **%s**\n", i+1, s.SourceTitle)
			fmt.Fprintf(&b, "   %s...\n\n", truncate(s.Summary, 200))
		}
	}

	fmt.Fprintf(&b, "\n**Confidence Level:** %.1f%%\n", state.OverallConfidence*100)
	fmt.Fprintf(&b, "**Sources Analyzed:** %d\n", len(state.Summaries))
	return b.String()
}

func topSummaries(state *pipeline.State) []pipeline.SourceSummary {
	if len(state.Summaries) > maxPresentedSources {
		return state.Summaries[:maxPresentedSources]
	}
	return state.Summaries
}
