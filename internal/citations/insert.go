package citations

import (
	"strings"
)

// DefaultMaxURLsPerClaim caps the markers attached to a single claim.
const DefaultMaxURLsPerClaim = 3

// Insert places citation markers after the first verbatim occurrence of each claim,
// before any trailing sentence punctuation. URLs outside index are discarded, duplicates
// removed, and at most maxURLs kept. Claims are matched against the text with its
// markers removed, so the occurrence chosen for a claim never depends on earlier
// insertions. Claims that cannot be found are skipped, and an occurrence that already
// carries a marker inside or right after it is left untouched, so repeated calls with
// the same claims do not change the text. It returns the new text and the number of
// markers inserted.
func Insert(summary string, claims []Claim, index *URLIndex, maxURLs int) (string, int) {
	if maxURLs <= 0 {
		maxURLs = DefaultMaxURLsPerClaim
	}

	inserted := 0
	for _, claim := range claims {
		marker, count := markerFor(claim, index, maxURLs)
		if count == 0 {
			continue
		}
		body, punct := splitTrailingPunct(StripMarkers(claim.Text))
		if body == "" {
			continue
		}
		at, ok := locate(summary, body, punct)
		if !ok {
			continue
		}
		summary = summary[:at] + marker + summary[at:]
		inserted += count
	}
	return summary, inserted
}

func markerFor(claim Claim, index *URLIndex, maxURLs int) (string, int) {
	var b strings.Builder
	seen := make(map[string]bool)
	count := 0
	for _, raw := range claim.URLs {
		url, n, ok := index.Resolve(raw)
		if !ok || seen[url] {
			continue
		}
		seen[url] = true
		b.WriteString(FormatMarker(n, url))
		count++
		if count == maxURLs {
			break
		}
	}
	return b.String(), count
}

// locate returns the insertion offset in text after the first occurrence of body that
// is followed by punct, both read with markers removed. ok is false when there is no
// such occurrence or when it already carries markers.
func locate(text, body, punct string) (int, bool) {
	plain, offsets := unmarked(text)
	from := 0
	for {
		i := strings.Index(plain[from:], body)
		if i < 0 {
			return 0, false
		}
		start := from + i
		if !strings.HasPrefix(plain[start+len(body):], punct) {
			from = start + 1
			continue
		}
		begin, end := offsets[start], offsets[start+len(body)-1]+1
		if end-begin != len(body) || markerRunPattern.MatchString(text[end:]) {
			return 0, false
		}
		return end, true
	}
}

// unmarked returns text without citation markers along with the offset in text of
// every byte kept.
func unmarked(text string) (string, []int) {
	var b strings.Builder
	offsets := make([]int, 0, len(text))
	keep := func(from, to int) {
		b.WriteString(text[from:to])
		for i := from; i < to; i++ {
			offsets = append(offsets, i)
		}
	}
	last := 0
	for _, loc := range markerPattern.FindAllStringIndex(text, -1) {
		keep(last, loc[0])
		last = loc[1]
	}
	keep(last, len(text))
	return b.String(), offsets
}

func splitTrailingPunct(claim string) (string, string) {
	body := strings.TrimRight(claim, ".?!")
	return body, claim[len(body):]
}
