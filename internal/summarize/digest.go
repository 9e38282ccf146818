package summarize

import (
	"context"
	"fmt"
	"strings"

	"advisorbrief/internal/core"
)

// LimitedDataSummary is the digest used when retrieval found nothing for any topic.
const LimitedDataSummary = "**Financial News Summary - Limited Data Available**\n\n" +
	"No recent financial news articles were found within the meeting window from the trusted news sources. " +
	"This could be due to:\n" +
	"- Very recent meeting date with limited news coverage\n" +
	"- Narrow date range between meetings\n" +
	"- Technical issues with news retrieval\n\n" +
	"**Recommendation:** Consider expanding the date range or checking alternative news sources " +
	"for the most current market developments affecting the client's portfolio."

// formatItems renders source items one per line for a prompt.
func formatItems(items []core.SourceItem) string {
	var b strings.Builder
	for _, item := range items {
		b.WriteString("- ")
		b.WriteString(item.Title)
		if item.HasDate() {
			b.WriteString(" (" + item.Date + ")")
		}
		if item.Snippet != "" {
			b.WriteString(": " + item.Snippet)
		}
		if item.Link != "" {
			b.WriteString(" <" + item.Link + ">")
		}
		b.WriteString("\n")
	}
	return b.String()
}

// formatHoldings renders per-holding news; holdings without evidence show the sentinel.
func formatHoldings(h *core.HoldingsCollection) string {
	var b strings.Builder
	for _, holding := range h.Holdings {
		b.WriteString(holding.Holding + ":\n")
		if holding.NoEvidence() {
			b.WriteString("- " + holding.Sentinel + "\n")
			continue
		}
		b.WriteString(formatItems(holding.Items))
	}
	return b.String()
}

// SummarizeFinanceNews condenses the three source collections into one digest. With no
// evidence at all it records LimitedDataSummary without calling the model.
func (s *Summarizer) SummarizeFinanceNews(ctx context.Context, state core.BriefingState) (core.BriefingState, error) {
	switch {
	case state.MacroNews == nil:
		return state, core.Missing(StageFinanceDigest, core.FieldMacroNews)
	case state.IndustryNews == nil:
		return state, core.Missing(StageFinanceDigest, core.FieldIndustryNews)
	case state.HoldingsNews == nil:
		return state, core.Missing(StageFinanceDigest, core.FieldHoldingsNews)
	}

	industry := state.IndustryNews.Len()
	holdings := len(state.HoldingsNews.Items())
	macro := state.MacroNews.Len()
	if industry+holdings+macro == 0 {
		state.FinanceDigest = core.StringPtr(LimitedDataSummary)
		return state, nil
	}

	var prompt strings.Builder
	prompt.WriteString("Please provide a comprehensive but concise summary of the available financial news and insights:\n\n")

	if industry > 0 {
		prompt.WriteString(fmt.Sprintf("**Client Industry News (%d articles):**\n%s\n", industry, formatItems(state.IndustryNews.Items)))
	} else {
		prompt.WriteString("**Client Industry News:** No recent industry-specific news found.\n\n")
	}
	if holdings > 0 {
		prompt.WriteString(fmt.Sprintf("**Client Holdings News (%d articles):**\n%s\n", holdings, formatHoldings(state.HoldingsNews)))
	} else {
		prompt.WriteString("**Client Holdings News:** No recent holdings-specific news found.\n\n")
	}
	if macro > 0 {
		prompt.WriteString(fmt.Sprintf("**Macroeconomic News (%d articles):**\n%s\n", macro, formatItems(state.MacroNews.Items)))
	} else {
		prompt.WriteString("**Macroeconomic News:** No recent macro news found.\n\n")
	}
	if len(state.MacroIndicators) > 0 {
		prompt.WriteString("**Macro Indicators:**\n")
		prompt.WriteString(formatIndicators(state.MacroIndicators))
		prompt.WriteString("\n")
	}

	prompt.WriteString("**Instructions:**\n")
	prompt.WriteString("- Focus on the available data and clearly note any missing categories\n")
	prompt.WriteString("- Organize the summary into key themes and highlight important developments\n")
	prompt.WriteString("- Provide actionable insights and identify potential risks or opportunities\n")
	prompt.WriteString("- If data is limited, acknowledge this and focus on what IS available\n")
	prompt.WriteString("- Maintain a professional tone suitable for client meeting preparation\n")

	digest, err := s.complete(ctx, StageFinanceDigest, prompt.String())
	if err != nil {
		return state, err
	}
	state.FinanceDigest = &digest
	return state, nil
}

func formatIndicators(snapshots []core.IndicatorSnapshot) string {
	var b strings.Builder
	for _, s := range snapshots {
		if s.Level == nil {
			continue
		}
		b.WriteString(fmt.Sprintf("- %s: %.2f", s.Label, *s.Level))
		if s.Change1M != nil {
			b.WriteString(fmt.Sprintf(" (1M %+.2f%%", *s.Change1M))
			if s.Change1Y != nil {
				b.WriteString(fmt.Sprintf(", 1Y %+.2f%%", *s.Change1Y))
			}
			b.WriteString(")")
		}
		b.WriteString("\n")
	}
	return b.String()
}
