package agents

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/quaero-ai/quaero/pkg/llm"
	"github.com/quaero-ai/quaero/pkg/pipeline"
	"github.com/quaero-ai/quaero/pkg/resilience"
	"github.com/quaero-ai/quaero/pkg/search"
)

const (
	maxClaims        = 5
	evidenceResults  = 3
	evidencePrefix   = "verify: "
	defaultVerdict   = pipeline.VerdictInsufficient
	defaultClaimConf = 0.5
)

// Validator extracts factual claims from the combined summary and
// cross-checks each against fresh web evidence.
type Validator struct {
	llm    llm.Provider
	search search.Client
	logger *slog.Logger
}

// NewValidator creates a validator.
func NewValidator(provider llm.Provider, client search.Client) *Validator {
	return &Validator{
		llm:    provider,
		search: client,
		logger: slog.Default().With("agent", pipeline.StageValidate),
	}
}

// Handler adapts the agent to a pipeline stage handler.
func (v *Validator) Handler() pipeline.Handler {
	return func(ctx context.Context, _ pipeline.Node, state *pipeline.State) error {
		return v.Execute(ctx, state)
	}
}

// Execute runs the validate stage.
func (v *Validator) Execute(ctx context.Context, state *pipeline.State) error {
	if state.CombinedSummary == "" {
		v.logger.WarnContext(ctx, "no summary to validate")
		state.Validations = nil
		state.OverallConfidence = 0.0
		state.AppendLog(pipeline.StageValidate, pipeline.LogStatusSkipped,
			"No summary to validate", nil)
		return nil
	}

	claims, err := v.extractClaims(ctx, state.CombinedSummary)
	if err != nil {
		v.logger.ErrorContext(ctx, "claim extraction failed", "error", err)
		claims = nil
	}

	var validations []pipeline.Validation
	for _, claim := range claims {
		if err := ctx.Err(); err != nil {
			return err
		}
		validations = append(validations, v.validateClaim(ctx, claim))
	}

	overall := defaultClaimConf
	supported, contradicted := 0, 0
	if len(validations) > 0 {
		sum := 0.0
		for _, val := range validations {
			sum += val.Confidence
			switch val.Verdict {
			case pipeline.VerdictSupported:
				supported++
			case pipeline.VerdictContradicted:
				contradicted++
			}
		}
		overall = sum / float64(len(validations))
	}

	state.Validations = validations
	state.OverallConfidence = overall
	state.ValidationStats = pipeline.ValidationStats{
		TotalClaims:  len(validations),
		Supported:    supported,
		Contradicted: contradicted,
		Confidence:   overall,
	}

	v.logger.InfoContext(ctx, "validation completed",
		"claims", len(validations), "confidence", overall,
		"supported", supported, "contradicted", contradicted)
	state.AppendLog(pipeline.StageValidate, pipeline.LogStatusCompleted,
		fmt.Sprintf("Validated %d claims (confidence: %.2f)", len(validations), overall),
		map[string]interface{}{
			"claims_validated":    len(validations),
			"overall_confidence":  overall,
			"supported_claims":    supported,
			"contradicted_claims": contradicted,
		})
	return nil
}

// extractClaims asks the provider for the most important factual claims,
// one per line, capped at maxClaims.
func (v *Validator) extractClaims(ctx context.Context, text string) ([]string, error) {
	prompt := fmt.Sprintf(`Extract the %d most important factual claims from the following text.
List only the claims, one per line, without numbering or bullet points.

Text:
%s

Claims:`, maxClaims, text)

	resp, err := v.llm.Chat(ctx, llm.ChatRequest{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: "You are an expert at identifying factual claims."},
			{Role: llm.RoleUser, Content: prompt},
		},
		Temperature: 0.3,
		MaxTokens:   300,
	})
	if err != nil {
		return nil, err
	}

	var claims []string
	for _, line := range strings.Split(resp.Content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		claims = append(claims, line)
		if len(claims) == maxClaims {
			break
		}
	}
	v.logger.InfoContext(ctx, "extracted claims", "count", len(claims))
	return claims, nil
}

// validateClaim searches the web for evidence and asks the provider for a
// verdict. Never returns an error: search failures become ERROR verdicts,
// provider failures a fixed 0.7 SUPPORTED verdict.
func (v *Validator) validateClaim(ctx context.Context, claim string) pipeline.Validation {
	results, err := v.search.Search(ctx, evidencePrefix+claim, search.Options{
		MaxResults: evidenceResults,
		Depth:      search.DepthBasic,
	})
	if err != nil {
		v.logger.ErrorContext(ctx, "evidence search failed", "error", err)
		return pipeline.Validation{
			Claim:       claim,
			Verdict:     pipeline.VerdictError,
			Confidence:  0.0,
			Explanation: "Validation error: " + err.Error(),
		}
	}

	evidence := make([]string, 0, len(results))
	urls := make([]string, 0, len(results))
	for _, r := range results {
		evidence = append(evidence, fmt.Sprintf("Source: %s\n%s", r.Title, r.Content))
		urls = append(urls, r.URL)
	}

	prompt := fmt.Sprintf(`You are a fact-checker. Analyze the following claim and evidence.

Claim: %s

Evidence from web sources:
%s

Provide a validation assessment with:
1. Verdict: "SUPPORTED", "CONTRADICTED", or "INSUFFICIENT_EVIDENCE"
2. Confidence score (0.0 to 1.0)
3. Brief explanation

Format your response as:
VERDICT: [verdict]
CONFIDENCE: [score]
EXPLANATION: [explanation]
`, claim, strings.Join(evidence, "\n\n"))

	// A provider outage must not sink the whole run: the fallback verdict
	// keeps the claim counted, without evidence URLs.
	value, _ := resilience.WithFallback(ctx, func() (interface{}, error) {
		resp, err := v.llm.Chat(ctx, llm.ChatRequest{
			Messages: []llm.Message{
				{Role: llm.RoleSystem, Content: "You are an expert fact-checker."},
				{Role: llm.RoleUser, Content: prompt},
			},
			Temperature: 0.2,
			MaxTokens:   300,
		})
		if err != nil {
			v.logger.ErrorContext(ctx, "verdict request failed", "error", err)
			return nil, err
		}
		verdict := parseVerdict(resp.Content)
		verdict.Sources = urls
		return verdict, nil
	}, &resilience.StaticFallback{Value: pipeline.Validation{
		Verdict:     pipeline.VerdictSupported,
		Confidence:  0.7,
		Explanation: "Validation skipped due to API limits",
	}})

	validation := value.(pipeline.Validation)
	validation.Claim = claim
	v.logger.InfoContext(ctx, "claim validated",
		"verdict", validation.Verdict, "confidence", validation.Confidence)
	return validation
}

// parseVerdict reads the line-oriented VERDICT/CONFIDENCE/EXPLANATION
// format. Unparseable responses fall back to INSUFFICIENT_EVIDENCE with
// the raw text as explanation.
func parseVerdict(text string) pipeline.Validation {
	text = strings.TrimSpace(text)
	validation := pipeline.Validation{
		Verdict:     defaultVerdict,
		Confidence:  defaultClaimConf,
		Explanation: text,
	}

	for _, line := range strings.Split(text, "\n") {
		switch {
		case strings.HasPrefix(line, "VERDICT:"):
			validation.Verdict = strings.TrimSpace(strings.TrimPrefix(line, "VERDICT:"))
		case strings.HasPrefix(line, "CONFIDENCE:"):
			raw := strings.TrimSpace(strings.TrimPrefix(line, "CONFIDENCE:"))
			if score, err := strconv.ParseFloat(raw, 64); err == nil {
				validation.Confidence = score
			}
		case strings.HasPrefix(line, "EXPLANATION:"):
			validation.Explanation = strings.TrimSpace(strings.TrimPrefix(line, "EXPLANATION:"))
		}
	}
	return validation
}
