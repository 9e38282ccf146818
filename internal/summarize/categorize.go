package summarize

import (
	"context"
	"fmt"
	"strings"

	"advisorbrief/internal/core"
)

// Meeting categories.
const (
	CategoryCustomerRelationship = "Customer Relationship"
	CategoryBenchmarkChange      = "Benchmark Change"
	CategoryAnnualReview         = "Annual Review"
	CategoryRegulatory           = "Regulatory"
	CategoryESG                  = "ESG Investing"
	CategoryRiskManagement       = "Risk Management"
	CategoryTaxOptimization      = "Tax Optimization"
	CategoryNewFunds             = "New Funds Offerings"
	CategoryMacroUpdate          = "Macro Update"
)

// Categories lists every meeting category.
var Categories = []string{
	CategoryCustomerRelationship,
	CategoryBenchmarkChange,
	CategoryAnnualReview,
	CategoryRegulatory,
	CategoryESG,
	CategoryRiskManagement,
	CategoryTaxOptimization,
	CategoryNewFunds,
	CategoryMacroUpdate,
}

// DefaultNewsFocus is highlighted when the category has no dedicated focus.
const DefaultNewsFocus = "Finance"

var newsFocus = map[string]string{
	CategoryRegulatory:      "Regulatory, SEC, SCC, FINRA",
	CategoryESG:             "ESG Investing, Sustainability",
	CategoryTaxOptimization: "Taxes, IRS",
	CategoryMacroUpdate:     "Federal Reserve Bank, Interest Rates, politics, market conditions",
}

// NewsFocus returns the news topics highlighted for a meeting category.
func NewsFocus(category string) string {
	if focus, ok := newsFocus[category]; ok {
		return focus
	}
	return DefaultNewsFocus
}

var categoryGuidance = []struct {
	category string
	topics   string
}{
	{CategoryAnnualReview, "portfolio review, annual review, goals, year ahead, or broad objectives"},
	{CategoryCustomerRelationship, "onboarding, product needs, relationship review, or introduction to the firm"},
	{CategoryRegulatory, "insider trading, regulatory, regulations, SCC, FINRA, or compliance"},
	{CategoryBenchmarkChange, "benchmark changed, reporting, re-alignment, or transition"},
	{CategoryESG, "ESG, environmental, green investing, carbon score, climate, or sustainability"},
	{CategoryRiskManagement, "risk, stress testing, hedging, diversification, or exposure"},
	{CategoryTaxOptimization, "tax, charitable deductions, capital gains, loss realization, or IRS"},
	{CategoryNewFunds, "fund launch, fund enhancements, new fund allocation, or innovative funds"},
	{CategoryMacroUpdate, "macro, headwinds, federal reserve, fed policy, central bank, geopolitical, commodity trends, currency trends, or market conditions"},
}

// ParseCategory finds the category named in a model answer. Unrecognised answers map
// to Annual Review.
func ParseCategory(answer string) string {
	lower := strings.ToLower(answer)
	best, at := "", -1
	for _, c := range Categories {
		i := strings.Index(lower, strings.ToLower(c))
		if i >= 0 && (at < 0 || i < at) {
			best, at = c, i
		}
	}
	if best == "" {
		return CategoryAnnualReview
	}
	return best
}

// CategorizeMeeting classifies the meeting from its description and the recent email
// summary, and derives the news focus used by the section templates.
func (s *Summarizer) CategorizeMeeting(ctx context.Context, state core.BriefingState) (core.BriefingState, error) {
	if state.RecentEmailSummary == nil {
		return state, core.Missing(StageCategorizeMeeting, core.FieldRecentEmailSummary)
	}

	var prompt strings.Builder
	prompt.WriteString("Classify the meeting topic into one of the following categories using the guidance below. ")
	prompt.WriteString("Use the Meeting Description and Recent Email Summary to do this.\n\nGuidance:\n")
	for _, g := range categoryGuidance {
		prompt.WriteString(fmt.Sprintf("- Categorize as %q if the description focuses on topics such as: %s\n", g.category, g.topics))
	}
	prompt.WriteString("\nImportant Instructions:\n")
	prompt.WriteString(fmt.Sprintf("1. Only return a categorization from this list [%s]\n", quoteAll(Categories)))
	prompt.WriteString("2. If the categorization is not clear based on the Meeting Description, then refer to the Recent Email Summary.\n\n")
	prompt.WriteString("Inputs:\n")
	prompt.WriteString(fmt.Sprintf("Meeting Description: %s\n", state.MeetingDescription))
	prompt.WriteString(fmt.Sprintf("Recent Email Summary: %s\n", *state.RecentEmailSummary))

	answer, err := s.complete(ctx, StageCategorizeMeeting, prompt.String())
	if err != nil {
		return state, err
	}
	category := ParseCategory(answer)
	state.Meeting = &core.MeetingFocus{Category: category, NewsFocus: NewsFocus(category)}
	return state, nil
}

// DefaultMeetingFocus stands in for CategorizeMeeting when categorization is disabled;
// it makes no model call.
func DefaultMeetingFocus(_ context.Context, state core.BriefingState) (core.BriefingState, error) {
	state.Meeting = &core.MeetingFocus{Category: CategoryAnnualReview, NewsFocus: DefaultNewsFocus}
	return state, nil
}

func quoteAll(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = fmt.Sprintf("%q", v)
	}
	return strings.Join(quoted, ", ")
}
