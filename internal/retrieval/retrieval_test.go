package retrieval

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"advisorbrief/internal/core"
	"advisorbrief/internal/search"
)

var (
	sites       = []string{"reuters.com", "cnn.com"}
	meetingTime = time.Date(2024, 10, 1, 9, 0, 0, 0, time.UTC)
)

func testSettings(parallel bool) Settings {
	keywords := []string{"earnings", "launches", "recession"}
	return Settings{
		Sites:            sites,
		Language:         "en",
		Macro:            TopicSettings{Query: "news about relevant macro events and the economy", MaxResultsPerSite: 6, WindowFallback: 180 * 24 * time.Hour, Recency: 60 * 24 * time.Hour, Keywords: keywords},
		Industry:         TopicSettings{Query: "news about {company} and about {industry} industry", MaxResultsPerSite: 8, WindowFallback: 90 * 24 * time.Hour, Recency: 30 * 24 * time.Hour, Keywords: keywords},
		Holdings:         TopicSettings{Query: "news about {holding}", MaxResultsPerSite: 4, WindowFallback: 60 * 24 * time.Hour, Recency: 45 * 24 * time.Hour, Keywords: keywords},
		ParallelHoldings: parallel,
	}
}

func baseState() core.BriefingState {
	return core.BriefingState{
		ClientName:     "Jane Doe",
		ClientEmail:    "jane@acme.com",
		MeetingTime:    meetingTime,
		Client:         &core.ClientProfile{Company: "Acme", Industry: "Industrials", Holdings: []string{"Acme Corp", "Globex", "Initech"}},
		Correspondence: &core.Correspondence{},
	}
}

func scriptedProvider() *search.MockProvider {
	mock := search.NewMockProvider()
	mock.SetQueryResults("site:reuters.com news about Acme Corp", []search.Result{
		{URL: "https://www.reuters.com/acme-1", Title: "Acme Corp earnings", Date: "2 days ago"},
		{URL: "https://www.reuters.com/acme-2", Title: "Acme Corp plant", Date: "2024-09-15"},
	})
	mock.SetQueryResults("site:cnn.com news about Acme Corp", []search.Result{
		{URL: "https://reuters.com/acme-1/", Title: "Acme Corp earnings (repost)", Date: "2 days ago"},
		{URL: "https://cnn.com/acme-3", Title: "Acme Corp launches", Date: "2020-01-01"},
	})
	mock.SetQueryResults("site:reuters.com news about Initech", []search.Result{
		{URL: "https://reuters.com/initech", Title: "Initech earnings", Date: "2024-09-30"},
	})
	return mock
}

func TestCollectIssuesOneQueryPerSite(t *testing.T) {
	mock := search.NewMockProvider()
	r := New(mock, testSettings(false))

	state, err := r.RetrieveMacro(context.Background(), baseState())
	require.NoError(t, err)
	require.NotNil(t, state.MacroNews)
	assert.Equal(t, []string{
		"site:reuters.com news about relevant macro events and the economy",
		"site:cnn.com news about relevant macro events and the economy",
	}, mock.Queries())
}

func TestRetrieveIndustryExpandsTemplate(t *testing.T) {
	mock := search.NewMockProvider()
	r := New(mock, testSettings(false))

	_, err := r.RetrieveIndustry(context.Background(), baseState())
	require.NoError(t, err)
	assert.Equal(t, "site:reuters.com news about Acme and about Industrials industry", mock.Queries()[0])
}

func TestRetrieveHoldingsSentinelAndDedupe(t *testing.T) {
	r := New(scriptedProvider(), testSettings(false))

	state, err := r.RetrieveHoldings(context.Background(), baseState())
	require.NoError(t, err)
	require.NotNil(t, state.HoldingsNews)
	require.Len(t, state.HoldingsNews.Holdings, 3)

	acme := state.HoldingsNews.Holdings[0]
	assert.Equal(t, "Acme Corp", acme.Holding)
	require.Len(t, acme.Items, 3)
	assert.Equal(t, "https://www.reuters.com/acme-1", acme.Items[0].Link, "first occurrence wins dedupe")
	assert.Equal(t, core.TierWindow, acme.Items[0].RetainedBy)
	assert.Equal(t, "https://cnn.com/acme-3", acme.Items[1].Link, "equal score keeps discovery order")
	assert.Equal(t, core.TierHighRelevance, acme.Items[1].RetainedBy)
	assert.Equal(t, 4, acme.Items[2].Score)

	globex := state.HoldingsNews.Holdings[1]
	assert.Equal(t, core.NoRelevantNews, globex.Sentinel)
	assert.Nil(t, globex.Items)
	assert.True(t, globex.NoEvidence())

	initech, ok := state.HoldingsNews.Lookup("Initech")
	require.True(t, ok)
	assert.Len(t, initech.Items, 1)
}

func TestParallelHoldingsMatchSequential(t *testing.T) {
	sequential, err := New(scriptedProvider(), testSettings(false)).RetrieveHoldings(context.Background(), baseState())
	require.NoError(t, err)
	parallel, err := New(scriptedProvider(), testSettings(true)).RetrieveHoldings(context.Background(), baseState())
	require.NoError(t, err)

	assert.Equal(t, sequential.HoldingsNews, parallel.HoldingsNews)

	bounded := testSettings(true)
	bounded.MaxConcurrency = 1
	limited, err := New(scriptedProvider(), bounded).RetrieveHoldings(context.Background(), baseState())
	require.NoError(t, err)
	assert.Equal(t, sequential.HoldingsNews, limited.HoldingsNews)
}

func TestSearchFailureIsFatal(t *testing.T) {
	mock := scriptedProvider()
	mock.FailQuery("site:cnn.com news about Globex", errors.New("503"))

	for _, parallel := range []bool{false, true} {
		_, err := New(mock, testSettings(parallel)).RetrieveHoldings(context.Background(), baseState())
		require.Error(t, err)
		assert.True(t, errors.Is(err, core.ErrExternalCall), "parallel=%v: %v", parallel, err)
	}
}

func TestMissingUpstreamFields(t *testing.T) {
	r := New(search.NewMockProvider(), testSettings(false))

	noClient := baseState()
	noClient.Client = nil
	_, err := r.RetrieveIndustry(context.Background(), noClient)
	var missing *core.MissingFieldError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, StageIndustry, missing.Stage)
	assert.Equal(t, core.FieldClient, missing.Field)

	noCorrespondence := baseState()
	noCorrespondence.Correspondence = nil
	_, err = r.RetrieveMacro(context.Background(), noCorrespondence)
	assert.ErrorIs(t, err, core.ErrMissingField)
}

func TestLastMeetingNarrowsWindow(t *testing.T) {
	r := New(search.NewMockProvider(), testSettings(false))
	last := meetingTime.AddDate(0, 0, -10)

	withLast := r.Policy(TopicHoldings, meetingTime, &last)
	assert.Equal(t, last, withLast.Window.Start)

	fallback := r.Policy(TopicHoldings, meetingTime, nil)
	assert.Equal(t, meetingTime.AddDate(0, 0, -60), fallback.Window.Start)
}

func TestCollectTopicExpandsValues(t *testing.T) {
	mock := scriptedProvider()
	r := New(mock, testSettings(false))

	items, err := r.CollectTopic(context.Background(), TopicHoldings, map[string]string{"holding": "Initech"}, meetingTime, nil)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "https://reuters.com/initech", items[0].Link)
	assert.Equal(t, []string{"site:reuters.com news about Initech", "site:cnn.com news about Initech"}, mock.Queries())
}
