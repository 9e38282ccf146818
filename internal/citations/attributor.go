package citations

import (
	"context"
	"strings"

	"advisorbrief/internal/core"
	"advisorbrief/internal/llm"
	"advisorbrief/internal/logger"
	"advisorbrief/internal/metrics"
)

// StageName is the pipeline stage that fills core.SourcedSections.
const StageName = "attribute_citations"

// Options configures an Attributor.
type Options struct {
	MaxChunkLength  int
	MaxURLsPerClaim int
}

// Result is the outcome of attributing one summary.
type Result struct {
	Text     string
	Claims   []Claim
	Inserted int
}

// Attributor runs the chunk, prompt, parse and insert steps for a summary.
type Attributor struct {
	completer llm.Completer
	options   Options
}

// NewAttributor creates an Attributor that sends one mapping request per summary.
func NewAttributor(completer llm.Completer, options Options) *Attributor {
	if options.MaxChunkLength <= 0 {
		options.MaxChunkLength = DefaultMaxChunkLength
	}
	if options.MaxURLsPerClaim <= 0 {
		options.MaxURLsPerClaim = DefaultMaxURLsPerClaim
	}
	return &Attributor{completer: completer, options: options}
}

// Attribute returns summary with citation markers. Empty summaries and empty source
// sets skip the model call. A response that does not parse yields zero citations;
// only a failing model call is an error.
func (a *Attributor) Attribute(ctx context.Context, summary string, sources Sources) (Result, error) {
	result := Result{Text: summary}
	if strings.TrimSpace(summary) == "" {
		return result, nil
	}
	chunks := ChunkSources(sources, a.options.MaxChunkLength)
	if len(chunks) == 0 {
		return result, nil
	}

	response, err := a.completer.Complete(ctx, BuildPrompt(summary, chunks))
	if err != nil {
		return result, err
	}

	result.Claims = ParseClaims(response)
	if len(result.Claims) == 0 {
		logger.Debug("citation response had no usable claims", "response_length", len(response))
		return result, nil
	}
	result.Text, result.Inserted = Insert(summary, result.Claims, NewURLIndex(chunks), a.options.MaxURLsPerClaim)
	metrics.CitationsInserted.Add(float64(result.Inserted))
	return result, nil
}

// AttributeSections is the attribute_citations stage: it cites the finance/holdings
// and client-news sections against the three source collections.
func (a *Attributor) AttributeSections(ctx context.Context, state core.BriefingState) (core.BriefingState, error) {
	switch {
	case state.Sections == nil:
		return state, core.Missing(StageName, core.FieldSections)
	case state.MacroNews == nil:
		return state, core.Missing(StageName, core.FieldMacroNews)
	case state.IndustryNews == nil:
		return state, core.Missing(StageName, core.FieldIndustryNews)
	case state.HoldingsNews == nil:
		return state, core.Missing(StageName, core.FieldHoldingsNews)
	}

	sources := SourcesFromState(state)
	finance, err := a.Attribute(ctx, state.Sections.FinanceHoldings, sources)
	if err != nil {
		return state, err
	}
	clientNews, err := a.Attribute(ctx, state.Sections.ClientNews, sources)
	if err != nil {
		return state, err
	}

	state.Sourced = &core.SourcedSections{
		FinanceHoldings: finance.Text,
		ClientNews:      clientNews.Text,
	}
	logger.Debug("citations attributed", "run_id", state.RunID,
		"finance_markers", finance.Inserted, "client_news_markers", clientNews.Inserted)
	return state, nil
}
