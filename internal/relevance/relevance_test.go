package relevance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"advisorbrief/internal/core"
)

var (
	testSites    = []string{"reuters.com", "bloomberg.com", "cnn.com", "finance.yahoo.com", "marketwatch.com", "WSJ.com"}
	testKeywords = []string{"announces", "acquires", "launches", "earnings", "report", "profit", "CEO", "drop"}
	meeting      = time.Date(2024, 10, 1, 9, 0, 0, 0, time.UTC)
	lastMeeting  = time.Date(2024, 9, 21, 9, 0, 0, 0, time.UTC)
)

func holdingsPolicy() Policy {
	return NewPolicy(testSites, testKeywords, meeting, &lastMeeting, 60*24*time.Hour, 45*24*time.Hour)
}

func TestScore(t *testing.T) {
	policy := holdingsPolicy()

	tests := []struct {
		name string
		item core.SourceItem
		want int
	}{
		{"nothing", core.SourceItem{Link: "https://blog.example/x", Title: "Picnic"}, 0},
		{"allowed site", core.SourceItem{Link: "https://www.Reuters.com/x"}, 3},
		{"keyword in snippet case-insensitive", core.SourceItem{Link: "https://blog.example", Snippet: "Acme EARNINGS beat"}, 2},
		{"date present even if garbage", core.SourceItem{Link: "https://blog.example", Date: "sometime"}, 1},
		{"all signals", core.SourceItem{Link: "https://wsj.com/a", Title: "Acme launches", Date: "2024-09-30"}, 6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Score(tt.item, policy))
		})
	}
}

func TestCanonicalURL(t *testing.T) {
	assert.Equal(t, "https://reuters.com/markets/acme", CanonicalURL("https://www.Reuters.com/markets/acme/"))
	assert.Equal(t, "https://reuters.com/markets/acme", CanonicalURL("http://reuters.com/markets/acme#comments"))
	assert.Equal(t, "https://reuters.com/markets/acme?id=7", CanonicalURL("https://reuters.com/markets/acme?utm_source=x&id=7&fbclid=abc"))
	assert.NotEqual(t, CanonicalURL("https://reuters.com/a?id=1"), CanonicalURL("https://reuters.com/a?id=2"))
}

func TestDedupeNoDuplicateLinks(t *testing.T) {
	items := []core.SourceItem{
		{Title: "first", Link: "https://www.reuters.com/a/"},
		{Title: "other", Link: "https://reuters.com/b"},
		{Title: "dup", Link: "http://reuters.com/a?utm_campaign=feed"},
		{Title: "no link"},
		{Title: "dup2", Link: "https://reuters.com/b#top"},
	}

	got := Dedupe(items)
	require.Len(t, got, 2)
	assert.Equal(t, "first", got[0].Title)
	assert.Equal(t, "other", got[1].Title)

	seen := map[string]bool{}
	for _, item := range got {
		key := CanonicalURL(item.Link)
		assert.False(t, seen[key], "duplicate link %s", item.Link)
		seen[key] = true
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		raw  string
		want time.Time
	}{
		{"3 days ago", meeting.AddDate(0, 0, -3)},
		{"2 hours ago", meeting.Add(-2 * time.Hour)},
		{"1 week ago", meeting.AddDate(0, 0, -7)},
		{"a month ago", meeting.AddDate(0, -1, 0)},
		{"yesterday", meeting.AddDate(0, 0, -1)},
		{"2024-09-20", time.Date(2024, 9, 20, 0, 0, 0, 0, time.UTC)},
		{"Sep 30, 2024", time.Date(2024, 9, 30, 0, 0, 0, 0, time.UTC)},
		{"2024-09-28T10:00:00Z", time.Date(2024, 9, 28, 10, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		got, ok := ParseDate(tt.raw, meeting)
		require.True(t, ok, "expected %q to parse", tt.raw)
		assert.True(t, tt.want.Equal(got), "ParseDate(%q) = %v, want %v", tt.raw, got, tt.want)
	}

	for _, raw := range []string{"", "   ", "sometime soon"} {
		_, ok := ParseDate(raw, meeting)
		assert.False(t, ok, "expected %q not to parse", raw)
	}
}

func TestHighScoreSurvivesRegardlessOfDate(t *testing.T) {
	policy := holdingsPolicy()
	for _, date := range []string{"", "garbage date", "2001-01-01", "2099-12-31", "5 years ago"} {
		item := core.SourceItem{Link: "https://reuters.com/x", Title: "Acme earnings", Date: date}
		item.Score = Score(item, policy)
		require.GreaterOrEqual(t, item.Score, 5)

		kept := Filter([]core.SourceItem{item}, policy)
		require.Len(t, kept, 1, "date %q", date)
		assert.Contains(t, []core.Tier{core.TierWindow, core.TierRecentQuality, core.TierUndatedHighRel, core.TierHighRelevance}, kept[0].RetainedBy)
	}
}

func TestWindowFallbackWhenLastMeetingUnknown(t *testing.T) {
	policy := NewPolicy(testSites, testKeywords, meeting, nil, 180*24*time.Hour, 60*24*time.Hour)
	assert.Equal(t, meeting.AddDate(0, 0, -180), policy.Window.Start)
	assert.Equal(t, meeting, policy.Window.End)
	assert.Equal(t, 180*24*time.Hour, policy.Lookback())
}

// One holding exercising every tier, a drop and a duplicate.
func TestProcessEveryTier(t *testing.T) {
	policy := holdingsPolicy()
	raw := []core.SourceItem{
		{Title: "Acme Corp earnings beat", Snippet: "Strong quarter.", Link: "https://www.reuters.com/acme-earnings"},
		{Title: "Acme Corp announces buyback", Snippet: "Board approves plan.", Link: "https://www.reuters.com/acme-buyback", Date: "2023-01-15"},
		{Title: "Acme Corp quarterly update", Snippet: "Shares were flat.", Link: "https://www.reuters.com/acme-update", Date: "2024-09-11"},
		{Title: "Acme Corp launches product", Snippet: "New widget.", Link: "https://www.acmeblog.example/news", Date: "2024-09-25"},
		{Title: "Acme Corp holds picnic", Snippet: "Employees gathered.", Link: "https://local.example/acme", Date: "5 days ago"},
		{Title: "Acme Corp sponsors marathon", Snippet: "Runners.", Link: "https://other.example/acme", Date: "2024-06-01"},
		{Title: "Acme Corp launches product (syndicated)", Snippet: "New widget.", Link: "http://acmeblog.example/news/?utm_source=feed", Date: "2024-09-25"},
	}

	got := Process(raw, policy)
	require.Len(t, got, 5)

	wantTitles := []string{
		"Acme Corp announces buyback",
		"Acme Corp earnings beat",
		"Acme Corp quarterly update",
		"Acme Corp launches product",
		"Acme Corp holds picnic",
	}
	wantScores := []int{6, 5, 4, 3, 1}
	wantTiers := []core.Tier{core.TierHighRelevance, core.TierUndatedHighRel, core.TierRecentQuality, core.TierWindow, core.TierWindow}
	for i := range got {
		assert.Equal(t, wantTitles[i], got[i].Title, "position %d", i)
		assert.Equal(t, wantScores[i], got[i].Score, "position %d", i)
		assert.Equal(t, wantTiers[i], got[i].RetainedBy, "position %d", i)
	}

	assert.Empty(t, raw[0].RetainedBy, "input must not be mutated")
}

func TestFilterStableForTies(t *testing.T) {
	policy := holdingsPolicy()
	items := []core.SourceItem{
		{Title: "one", Link: "https://reuters.com/1", Score: 5},
		{Title: "two", Link: "https://reuters.com/2", Score: 6},
		{Title: "three", Link: "https://reuters.com/3", Score: 5},
		{Title: "four", Link: "https://reuters.com/4", Score: 5},
	}
	got := Filter(items, policy)
	require.Len(t, got, 4)
	assert.Equal(t, []string{"two", "one", "three", "four"}, []string{got[0].Title, got[1].Title, got[2].Title, got[3].Title})
}
