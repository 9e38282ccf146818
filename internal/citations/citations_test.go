package citations

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"advisorbrief/internal/core"
	"advisorbrief/internal/llm"
)

func testSources() Sources {
	return Sources{
		Industry: []core.SourceItem{
			{Title: "Industrials rally", Snippet: "Industrial stocks rose 3% this week.", Link: "https://reuters.com/industrials"},
		},
		Holdings: []core.SourceItem{
			{Title: "Acme Corp earnings beat", Snippet: "Acme reported record profit.", Link: "https://www.wsj.com/acme"},
			{Title: "Acme Corp buyback", Snippet: "Board approves plan.", Link: "https://bloomberg.com/acme-buyback"},
		},
		Macro: []core.SourceItem{
			{Title: "Fed holds rates", Snippet: "The Federal Reserve left rates unchanged.", Link: "https://cnn.com/fed"},
		},
	}
}

func TestChunkSourcesKeysAndURLs(t *testing.T) {
	chunks := ChunkSources(testSources(), 1000)
	require.Len(t, chunks, 4)

	assert.Equal(t, "Client Industry Summary [1.1]", chunks[0].Key)
	assert.Equal(t, "Holdings Summary [1.1]", chunks[1].Key)
	assert.Equal(t, "Holdings Summary [2.1]", chunks[2].Key)
	assert.Equal(t, "Macro Summary [1.1]", chunks[3].Key)
	assert.Equal(t, "Acme Corp earnings beat Acme reported record profit.", chunks[1].Text)
	assert.Equal(t, "https://www.wsj.com/acme", chunks[1].URL)
}

func TestWrapNeverSplitsWords(t *testing.T) {
	long := strings.Repeat("x", 30)
	lines := wrap("alpha beta "+long+" gamma delta", 12)
	assert.Equal(t, []string{"alpha beta", long, "gamma delta"}, lines)
	for _, line := range lines {
		if line != long {
			assert.LessOrEqual(t, len(line), 12)
		}
	}

	chunks := ChunkSources(Sources{Macro: []core.SourceItem{{Title: "one two three", Snippet: "four five", Link: "https://cnn.com/x"}}}, 9)
	require.Len(t, chunks, 3)
	assert.Equal(t, "Macro Summary [1.3]", chunks[2].Key)
	assert.Nil(t, wrap("   ", 10))
}

func TestBuildPromptListsEveryChunk(t *testing.T) {
	chunks := ChunkSources(testSources(), 1000)
	prompt := BuildPrompt("Acme reported record profit.", chunks)

	assert.Contains(t, prompt, "--- Summary ---\nAcme reported record profit.")
	for _, c := range chunks {
		assert.Contains(t, prompt, c.Key+" (Source: "+c.URL+"):\n"+c.Text)
	}
	assert.Contains(t, prompt, "Don't invent URLs")
}

func TestParseClaimsTolerance(t *testing.T) {
	response := `Here is the mapping:

- Summary claim: "Acme reported record profit"
  → Source URL(s): ["https://www.wsj.com/acme"]

* Summary claim: “The Federal Reserve left rates unchanged.”
  -> Source URL(s): ['https://cnn.com/fed', "https://reuters.com/industrials"]

- **Summary claim:** "Unsupported musing"
  → **Source URL(s):** []

Summary claim: "Bare urls work" => Source URLs: [https://bloomberg.com/acme-buyback]
`
	claims := ParseClaims(response)
	require.Len(t, claims, 3)

	assert.Equal(t, "Acme reported record profit", claims[0].Text)
	assert.Equal(t, []string{"https://www.wsj.com/acme"}, claims[0].URLs)
	assert.Equal(t, "The Federal Reserve left rates unchanged.", claims[1].Text)
	assert.Equal(t, []string{"https://cnn.com/fed", "https://reuters.com/industrials"}, claims[1].URLs)
	assert.Equal(t, "Bare urls work", claims[2].Text)
	assert.Equal(t, []string{"https://bloomberg.com/acme-buyback"}, claims[2].URLs)
}

func TestParseClaimsMalformed(t *testing.T) {
	assert.Empty(t, ParseClaims(""))
	assert.Empty(t, ParseClaims("I could not find any claims."))
	assert.Empty(t, ParseClaims(`{"claims": [{"text": "x", "urls": ["https://a.com"]}]}`))
}

func TestInsertPlacement(t *testing.T) {
	index := NewURLIndex(ChunkSources(testSources(), 1000))

	summary := "Acme reported record profit. Rates were unchanged! Industrials rallied"
	claims := []Claim{
		{Text: "Acme reported record profit", URLs: []string{"https://www.wsj.com/acme"}},
		{Text: "Rates were unchanged!", URLs: []string{"https://cnn.com/fed"}},
		{Text: "Industrials rallied", URLs: []string{"https://reuters.com/industrials"}},
	}

	got, n := Insert(summary, claims, index, 3)
	assert.Equal(t, 3, n)
	assert.Equal(t,
		"Acme reported record profit[[2]](https://www.wsj.com/acme). "+
			"Rates were unchanged[[4]](https://cnn.com/fed)! "+
			"Industrials rallied[[1]](https://reuters.com/industrials)",
		got)
}

func TestInsertFirstOccurrenceOnly(t *testing.T) {
	index := NewURLIndex(ChunkSources(testSources(), 1000))
	summary := "Acme grew. Later, Acme grew again."
	got, _ := Insert(summary, []Claim{{Text: "Acme grew", URLs: []string{"https://www.wsj.com/acme"}}}, index, 3)
	assert.Equal(t, "Acme grew[[2]](https://www.wsj.com/acme). Later, Acme grew again.", got)
}

func TestInsertOverlappingClaimsIsIdempotent(t *testing.T) {
	index := NewURLIndex(ChunkSources(testSources(), 1000))
	summary := "Acme profit rose sharply. Later, Acme profit rose. Acme profit rose sharply."
	claims := []Claim{
		{Text: "Acme profit rose sharply.", URLs: []string{"https://www.wsj.com/acme"}},
		{Text: "profit rose", URLs: []string{"https://bloomberg.com/acme-buyback"}},
		{Text: "Later, Acme profit rose", URLs: []string{"https://cnn.com/fed"}},
	}

	once, n := Insert(summary, claims, index, 3)
	assert.Equal(t, 3, n)
	assert.Equal(t,
		"Acme profit rose[[3]](https://bloomberg.com/acme-buyback) sharply[[2]](https://www.wsj.com/acme). "+
			"Later, Acme profit rose[[4]](https://cnn.com/fed). Acme profit rose sharply.",
		once)

	twice, n := Insert(once, claims, index, 3)
	assert.Zero(t, n)
	assert.Equal(t, once, twice)

	echoed := []Claim{{Text: "Acme profit rose[[3]](https://bloomberg.com/acme-buyback) sharply.", URLs: []string{"https://www.wsj.com/acme"}}}
	again, n := Insert(once, echoed, index, 3)
	assert.Zero(t, n, "claims copied with their markers resolve to the cited occurrence")
	assert.Equal(t, once, again)
}

func TestInsertSkipsUnlocatableClaims(t *testing.T) {
	index := NewURLIndex(ChunkSources(testSources(), 1000))
	summary := "Acme reported a record profit."
	got, n := Insert(summary, []Claim{{Text: "Acme reported record profit", URLs: []string{"https://www.wsj.com/acme"}}}, index, 3)
	assert.Equal(t, summary, got, "near matches are not fuzzy-matched")
	assert.Zero(t, n)
}

func TestInsertNoFabricationAndCap(t *testing.T) {
	index := NewURLIndex(ChunkSources(testSources(), 1000))
	summary := "Acme is doing well."
	claims := []Claim{{Text: "Acme is doing well", URLs: []string{
		"https://evil.example/fake",
		"https://wsj.com/acme/",
		"https://www.wsj.com/acme",
		"https://bloomberg.com/acme-buyback",
		"https://cnn.com/fed",
		"https://reuters.com/industrials",
	}}}

	got, n := Insert(summary, claims, index, 3)
	assert.Equal(t, 3, n)
	assert.NotContains(t, got, "evil.example")
	assert.Equal(t, "Acme is doing well[[2]](https://www.wsj.com/acme)[[3]](https://bloomberg.com/acme-buyback)[[4]](https://cnn.com/fed).", got)
}

func TestAttributeIdempotentAndNoFabrication(t *testing.T) {
	response := `- Summary claim: "Acme reported record profit."
  → Source URL(s): ["https://www.wsj.com/acme", "https://made-up.example/story"]

- Summary claim: "The Federal Reserve left rates unchanged"
  → Source URL(s): ["https://cnn.com/fed"]

- Summary claim: "Nothing supports this"
  → Source URL(s): []`
	mock := llm.NewMockCompleter(response)
	attributor := NewAttributor(mock, Options{})
	sources := testSources()
	summary := "Acme reported record profit. The Federal Reserve left rates unchanged, while Nothing supports this."

	once, err := attributor.Attribute(context.Background(), summary, sources)
	require.NoError(t, err)
	twice, err := attributor.Attribute(context.Background(), once.Text, sources)
	require.NoError(t, err)

	assert.Equal(t, once.Text, twice.Text)
	assert.Zero(t, twice.Inserted)
	assert.Equal(t, summary, StripMarkers(once.Text))

	allowed := map[string]bool{}
	for _, c := range ChunkSources(sources, DefaultMaxChunkLength) {
		allowed[c.URL] = true
	}
	markers := ExtractMarkers(once.Text)
	require.Len(t, markers, 2)
	for _, m := range markers {
		assert.True(t, allowed[m.URL], "fabricated url %s", m.URL)
	}
}

func TestAttributeMalformedResponseIsNotAnError(t *testing.T) {
	attributor := NewAttributor(llm.NewMockCompleter("Sorry, I cannot help with that."), Options{})
	res, err := attributor.Attribute(context.Background(), "Acme reported record profit.", testSources())
	require.NoError(t, err)
	assert.Equal(t, "Acme reported record profit.", res.Text)
	assert.Zero(t, res.Inserted)
}

func TestAttributeSkipsEmptyInputs(t *testing.T) {
	mock := llm.NewMockCompleter("")
	attributor := NewAttributor(mock, Options{})

	res, err := attributor.Attribute(context.Background(), "", testSources())
	require.NoError(t, err)
	assert.Equal(t, "", res.Text)

	res, err = attributor.Attribute(context.Background(), "Some text.", Sources{})
	require.NoError(t, err)
	assert.Equal(t, "Some text.", res.Text)
	assert.Zero(t, mock.Calls())
}

func TestAttributeModelFailureIsFatal(t *testing.T) {
	mock := llm.NewMockCompleter("")
	mock.Err = errors.New("unavailable")
	_, err := NewAttributor(mock, Options{}).Attribute(context.Background(), "text", testSources())
	assert.ErrorIs(t, err, core.ErrExternalCall)
}

func TestAttributeSections(t *testing.T) {
	response := `- Summary claim: "Acme reported record profit" → Source URL(s): ["https://www.wsj.com/acme"]`
	mock := llm.NewMockCompleter(response)
	attributor := NewAttributor(mock, Options{})

	state := core.BriefingState{
		MacroNews:    &core.SourceCollection{},
		IndustryNews: &core.SourceCollection{},
		HoldingsNews: &core.HoldingsCollection{Holdings: []core.HoldingNews{
			core.NewHoldingNews("Acme Corp", testSources().Holdings),
			core.NewHoldingNews("Globex", nil),
		}},
		Sections: &core.Sections{FinanceHoldings: "Acme reported record profit.", ClientNews: ""},
	}

	out, err := attributor.AttributeSections(context.Background(), state)
	require.NoError(t, err)
	require.NotNil(t, out.Sourced)
	assert.Equal(t, "Acme reported record profit[[1]](https://www.wsj.com/acme).", out.Sourced.FinanceHoldings)
	assert.Equal(t, "", out.Sourced.ClientNews)
	assert.Equal(t, 1, mock.Calls(), "empty client-news section makes no call")

	state.Sections = nil
	_, err = attributor.AttributeSections(context.Background(), state)
	assert.ErrorIs(t, err, core.ErrMissingField)
}

func TestReferences(t *testing.T) {
	text := "a[[3]](https://www.cnn.com/fed) b[[1]](https://markets.reuters.com/x) c[[3]](https://www.cnn.com/fed)"
	refs := References(text)
	require.Len(t, refs, 2)
	assert.Equal(t, 1, refs[0].Number)
	assert.Equal(t, "reuters.com", refs[0].Publisher)
	assert.Equal(t, "cnn.com", refs[1].Publisher)
}

func TestAttributeKeepsURLsWithPunctuation(t *testing.T) {
	sources := Sources{Holdings: []core.SourceItem{
		{Title: "Acme", Snippet: "Acme is a conglomerate.", Link: "https://en.wikipedia.org/wiki/Acme_(company)"},
		{Title: "Acme results", Snippet: "Profit doubled.", Link: "https://www.ft.com/content/abc,123"},
	}}
	response := `- Summary claim: "Acme is a conglomerate" → Source URL(s): ["https://en.wikipedia.org/wiki/Acme_(company)"]
- Summary claim: "Profit doubled" → Source URL(s): [https://www.ft.com/content/abc,123, https://made-up.example/x]`
	attributor := NewAttributor(llm.NewMockCompleter(response), Options{})

	once, err := attributor.Attribute(context.Background(), "Acme is a conglomerate. Profit doubled.", sources)
	require.NoError(t, err)
	assert.Equal(t,
		"Acme is a conglomerate[[1]](https://en.wikipedia.org/wiki/Acme_(company)). "+
			"Profit doubled[[2]](https://www.ft.com/content/abc,123).",
		once.Text)
	require.Len(t, once.Claims, 2)
	assert.Equal(t, []string{"https://www.ft.com/content/abc,123", "https://made-up.example/x"}, once.Claims[1].URLs)

	refs := References(once.Text)
	require.Len(t, refs, 2)
	assert.Equal(t, "https://en.wikipedia.org/wiki/Acme_(company)", refs[0].URL)
	assert.Equal(t, "wikipedia.org", refs[0].Publisher)
	assert.Equal(t, "https://www.ft.com/content/abc,123", refs[1].URL)
	assert.Equal(t, "Acme is a conglomerate. Profit doubled.", StripMarkers(once.Text))

	twice, err := attributor.Attribute(context.Background(), once.Text, sources)
	require.NoError(t, err)
	assert.Zero(t, twice.Inserted)
	assert.Equal(t, once.Text, twice.Text)
}
