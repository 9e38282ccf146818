// Package citations maps narrative claims back to the retrieved sources that support
// them and rewrites the narrative with inline [[n]](url) markers.
package citations

import (
	"fmt"
	"strings"

	"advisorbrief/internal/core"
	"advisorbrief/internal/relevance"
)

// DefaultMaxChunkLength bounds the text of a single chunk.
const DefaultMaxChunkLength = 1000

// Chunk categories, in the order chunks are labelled.
const (
	CategoryIndustry = "Client Industry Summary"
	CategoryHoldings = "Holdings Summary"
	CategoryMacro    = "Macro Summary"
)

// Sources are the collections available to a summarizer.
type Sources struct {
	Industry []core.SourceItem
	Holdings []core.SourceItem
	Macro    []core.SourceItem
}

// SourcesFromState gathers the three collections; holdings carrying the empty-evidence
// sentinel contribute nothing.
func SourcesFromState(state core.BriefingState) Sources {
	var s Sources
	if state.IndustryNews != nil {
		s.Industry = state.IndustryNews.Items
	}
	s.Holdings = state.HoldingsNews.Items()
	if state.MacroNews != nil {
		s.Macro = state.MacroNews.Items
	}
	return s
}

// Chunk is one labelled piece of source text with its originating URL.
type Chunk struct {
	Key  string
	Text string
	URL  string
}

// ChunkSources word-wraps every item's title and snippet into chunks no longer than
// maxLen (words longer than maxLen are kept whole). Keys read "{category} [{i}.{j}]"
// with 1-based item and chunk indexes.
func ChunkSources(sources Sources, maxLen int) []Chunk {
	if maxLen <= 0 {
		maxLen = DefaultMaxChunkLength
	}
	groups := []struct {
		category string
		items    []core.SourceItem
	}{
		{CategoryIndustry, sources.Industry},
		{CategoryHoldings, sources.Holdings},
		{CategoryMacro, sources.Macro},
	}

	var chunks []Chunk
	for _, g := range groups {
		for i, item := range g.items {
			text := strings.TrimSpace(item.Title + "\n" + item.Snippet)
			for j, piece := range wrap(text, maxLen) {
				chunks = append(chunks, Chunk{
					Key:  fmt.Sprintf("%s [%d.%d]", g.category, i+1, j+1),
					Text: piece,
					URL:  item.Link,
				})
			}
		}
	}
	return chunks
}

// wrap greedily packs whitespace-separated words into lines of at most width runes.
func wrap(text string, width int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var lines []string
	var line strings.Builder
	lineLen := 0
	for _, w := range words {
		wLen := len([]rune(w))
		if lineLen > 0 && lineLen+1+wLen > width {
			lines = append(lines, line.String())
			line.Reset()
			lineLen = 0
		}
		if lineLen > 0 {
			line.WriteByte(' ')
			lineLen++
		}
		line.WriteString(w)
		lineLen += wLen
	}
	if lineLen > 0 {
		lines = append(lines, line.String())
	}
	return lines
}

// URLIndex numbers the distinct URLs of a chunk set by first appearance.
type URLIndex struct {
	urls      []string
	position  map[string]int
	canonical map[string]string
}

// NewURLIndex builds the index for chunks.
func NewURLIndex(chunks []Chunk) *URLIndex {
	idx := &URLIndex{position: make(map[string]int), canonical: make(map[string]string)}
	for _, c := range chunks {
		if c.URL == "" {
			continue
		}
		if _, ok := idx.position[c.URL]; ok {
			continue
		}
		idx.urls = append(idx.urls, c.URL)
		idx.position[c.URL] = len(idx.urls)
		key := relevance.CanonicalURL(c.URL)
		if _, ok := idx.canonical[key]; !ok {
			idx.canonical[key] = c.URL
		}
	}
	return idx
}

// Resolve maps a model-reported URL onto a URL of the chunk set. Exact matches win;
// otherwise the canonical form is compared. ok is false for URLs not in the set.
func (x *URLIndex) Resolve(raw string) (url string, n int, ok bool) {
	raw = strings.TrimSpace(raw)
	if n, ok := x.position[raw]; ok {
		return raw, n, true
	}
	if u, ok := x.canonical[relevance.CanonicalURL(raw)]; ok {
		return u, x.position[u], true
	}
	return "", 0, false
}

// URLs returns the indexed URLs in numbering order.
func (x *URLIndex) URLs() []string {
	return append([]string(nil), x.urls...)
}

// Len is the number of distinct URLs.
func (x *URLIndex) Len() int {
	return len(x.urls)
}
