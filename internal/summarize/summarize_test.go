package summarize

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"advisorbrief/internal/core"
	"advisorbrief/internal/llm"
	"advisorbrief/internal/preferences"
)

func baseState(t *testing.T) core.BriefingState {
	t.Helper()
	state, err := core.NewBriefingState("Jane Doe", "jane@acme.com", "2024-10-01 09:00:00", "annual portfolio review", "advisor@bank.com")
	require.NoError(t, err)
	last := time.Date(2024, 9, 21, 14, 0, 0, 0, time.UTC)
	state.Client = &core.ClientProfile{
		Company:       "Acme Corp",
		Industry:      "Industrials",
		Holdings:      []string{"Apple Inc", "Microsoft Corp"},
		ContactEmails: []string{"jane@acme.com"},
	}
	state.Correspondence = &core.Correspondence{
		LastMeeting:  &last,
		PastEmails:   []string{"Can we rebalance toward bonds?", "Thanks for the update."},
		RecentEmails: []string{"Can we rebalance toward bonds?"},
	}
	return state
}

func TestCorrespondenceStages(t *testing.T) {
	mock := llm.NewMockCompleter("unused").
		On("Produce a summary of past emails", "  Past narrative.  ").
		On("Recent Email Bullet Points", "• Rebalancing was discussed.").
		On("identify client questions", "1. \"Can we rebalance toward bonds?\"")
	s := New(mock, "")
	ctx := context.Background()

	state, err := s.SummarizePastCorrespondence(ctx, baseState(t))
	require.NoError(t, err)
	state, err = s.SummarizeRecentCorrespondence(ctx, state)
	require.NoError(t, err)
	state, err = s.ExtractClientQuestions(ctx, state)
	require.NoError(t, err)

	assert.Equal(t, "Past narrative.", *state.EmailSummary)
	assert.Equal(t, "• Rebalancing was discussed.", *state.RecentEmailSummary)
	assert.Contains(t, *state.ClientQuestions, "rebalance")
	require.Equal(t, 3, mock.Calls())
	for _, p := range mock.Prompts() {
		assert.Contains(t, p, "Acme Corp")
		assert.Contains(t, p, DefaultFirmName)
	}
}

func TestCorrespondenceWithoutEmailsSkipsModel(t *testing.T) {
	mock := llm.NewMockCompleter("x")
	state := baseState(t)
	state.Correspondence = &core.Correspondence{}

	out, err := New(mock, "Acme Advisors").SummarizePastCorrespondence(context.Background(), state)
	require.NoError(t, err)
	assert.Equal(t, NoCorrespondence, *out.EmailSummary)
	assert.Zero(t, mock.Calls())
}

func TestCorrespondenceRequiresUpstream(t *testing.T) {
	state := baseState(t)
	state.Correspondence = nil
	_, err := New(llm.NewMockCompleter(""), "").SummarizeRecentCorrespondence(context.Background(), state)

	var missing *core.MissingFieldError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, core.FieldCorrespondence, missing.Field)
	assert.Equal(t, StageRecentCorrespondence, missing.Stage)
}

func TestParseCategoryAndFocus(t *testing.T) {
	assert.Equal(t, CategoryTaxOptimization, ParseCategory("Category: Tax Optimization"))
	assert.Equal(t, CategoryRegulatory, ParseCategory(`"regulatory"`))
	assert.Equal(t, CategoryAnnualReview, ParseCategory("I am not sure"))
	assert.Equal(t, CategoryESG, ParseCategory("ESG Investing, though Annual Review also fits"))

	assert.Equal(t, "Taxes, IRS", NewsFocus(CategoryTaxOptimization))
	assert.Equal(t, DefaultNewsFocus, NewsFocus(CategoryAnnualReview))
}

func TestCategorizeMeeting(t *testing.T) {
	mock := llm.NewMockCompleter("Macro Update")
	state := baseState(t)
	state.RecentEmailSummary = core.StringPtr("- Fed policy was discussed.")

	out, err := New(mock, "").CategorizeMeeting(context.Background(), state)
	require.NoError(t, err)
	require.NotNil(t, out.Meeting)
	assert.Equal(t, CategoryMacroUpdate, out.Meeting.Category)
	assert.Equal(t, NewsFocus(CategoryMacroUpdate), out.Meeting.NewsFocus)
	assert.Contains(t, mock.Prompts()[0], "Fed policy was discussed")

	_, err = New(mock, "").CategorizeMeeting(context.Background(), baseState(t))
	assert.ErrorIs(t, err, core.ErrMissingField)
}

func newsState(t *testing.T) core.BriefingState {
	state := baseState(t)
	state.MacroNews = &core.SourceCollection{Topic: "macro"}
	state.IndustryNews = &core.SourceCollection{Topic: "industry"}
	state.HoldingsNews = &core.HoldingsCollection{Holdings: []core.HoldingNews{
		core.NewHoldingNews("Apple Inc", nil),
	}}
	return state
}

func TestFinanceDigestLimitedData(t *testing.T) {
	mock := llm.NewMockCompleter("should not be used")
	out, err := New(mock, "").SummarizeFinanceNews(context.Background(), newsState(t))
	require.NoError(t, err)
	assert.Equal(t, LimitedDataSummary, *out.FinanceDigest)
	assert.Zero(t, mock.Calls())
}

func TestFinanceDigestPrompt(t *testing.T) {
	mock := llm.NewMockCompleter("Digest.")
	state := newsState(t)
	state.HoldingsNews.Holdings = append(state.HoldingsNews.Holdings, core.NewHoldingNews("Microsoft Corp", []core.SourceItem{
		{Title: "Microsoft earnings beat", Snippet: "Cloud grew.", Date: "Sep 25, 2024", Link: "https://reuters.com/msft"},
	}))
	level := 5738.17
	state.MacroIndicators = []core.IndicatorSnapshot{{Label: "S&P 500 Index", Level: &level}, {Label: "Fed Funds Rate"}}

	out, err := New(mock, "").SummarizeFinanceNews(context.Background(), state)
	require.NoError(t, err)
	assert.Equal(t, "Digest.", *out.FinanceDigest)

	prompt := mock.Prompts()[0]
	assert.Contains(t, prompt, "**Client Holdings News (1 articles):**")
	assert.Contains(t, prompt, "- "+core.NoRelevantNews)
	assert.Contains(t, prompt, "- Microsoft earnings beat (Sep 25, 2024): Cloud grew. <https://reuters.com/msft>")
	assert.Contains(t, prompt, "No recent macro news found")
	assert.Contains(t, prompt, "- S&P 500 Index: 5738.17")
	assert.NotContains(t, prompt, "Fed Funds Rate")
}

func assemblyState(t *testing.T) core.BriefingState {
	state := newsState(t)
	state.EmailSummary = core.StringPtr("Past narrative.")
	state.RecentEmailSummary = core.StringPtr("- Rebalancing.")
	state.ClientQuestions = core.StringPtr("1. Bonds?")
	state.Meeting = &core.MeetingFocus{Category: CategoryAnnualReview, NewsFocus: DefaultNewsFocus}
	state.FinanceDigest = core.StringPtr("Markets rose.")
	return state
}

func TestAssembleSectionsNoneMakesNoCall(t *testing.T) {
	mock := llm.NewMockCompleter("unused").
		On("financial holdings", "• Apple rose.\n* Microsoft fell.").
		On("summarizing earlier correspondence", "Correspondence paragraph.")
	prefs := preferences.NewStatic(core.DefaultPreferences(), map[string]core.Preferences{
		"advisor@bank.com": {Finance: core.DetailShort, ClientNews: core.DetailNone, Communications: core.DetailFull},
	})

	out, err := NewAssembler(mock, nil, prefs).AssembleSections(context.Background(), assemblyState(t))
	require.NoError(t, err)
	require.NotNil(t, out.Sections)

	assert.Equal(t, "- Apple rose.\n- Microsoft fell.", out.Sections.FinanceHoldings)
	assert.Equal(t, "", out.Sections.ClientNews)
	assert.Equal(t, "Correspondence paragraph.", out.Sections.Communications)
	assert.Equal(t, core.DetailNone, out.Preferences.ClientNews)
	assert.Equal(t, 2, mock.Calls())
	for _, p := range mock.Prompts() {
		assert.NotContains(t, p, "recent news about")
	}
}

func TestAssembleAllNone(t *testing.T) {
	mock := llm.NewMockCompleter("unused")
	none := core.Preferences{Finance: core.DetailNone, ClientNews: core.DetailNone, Communications: core.DetailNone}

	out, err := NewAssembler(mock, nil, preferences.NewStatic(none, nil)).AssembleSections(context.Background(), assemblyState(t))
	require.NoError(t, err)
	assert.Equal(t, core.Sections{}, *out.Sections)
	assert.Zero(t, mock.Calls())
}

func TestTemplateRenderMissingField(t *testing.T) {
	tmpl, ok := DefaultRegistry().Lookup(core.TopicFinance, core.DetailFull)
	require.True(t, ok)

	state := assemblyState(t)
	state.FinanceDigest = nil
	_, err := tmpl.Render(state)

	var missing *core.MissingFieldError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, core.FieldFinanceDigest, missing.Field)
	assert.Equal(t, StageAssembleSections, missing.Stage)
}

func TestTemplateUsesDeclaredFieldsOnly(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(core.TopicClientNews, core.DetailShort, []string{"Company"}, "News about {{.Company}} for {{.ClientName}}"))
	tmpl, _ := r.Lookup(core.TopicClientNews, core.DetailShort)

	_, err := tmpl.Render(assemblyState(t))
	assert.Error(t, err)
	assert.False(t, errors.Is(err, core.ErrMissingField))

	assert.Error(t, r.Register(core.TopicFinance, core.DetailShort, []string{"Unknown"}, "x"))
	assert.Error(t, r.Register(core.TopicFinance, core.DetailNone, nil, "x"))
}

func TestDefaultRegistryCoversEveryTopic(t *testing.T) {
	r := DefaultRegistry()
	for _, topic := range core.Topics {
		for _, level := range []core.DetailLevel{core.DetailShort, core.DetailFull} {
			tmpl, ok := r.Lookup(topic, level)
			require.True(t, ok, "%s/%s", topic, level)
			out, err := tmpl.Render(assemblyState(t))
			require.NoError(t, err)
			assert.NotContains(t, out, "<no value>")
			assert.True(t, strings.Contains(out, "Acme Corp"))
		}
	}
	assert.Contains(t, Fields(), "FinanceDigest")
}

func TestNormalizeBullets(t *testing.T) {
	in := "• one\n* two\n  3. three\n**Bold** stays\n- four"
	assert.Equal(t, "- one\n- two\n- three\n**Bold** stays\n- four", NormalizeBullets(in))
}
