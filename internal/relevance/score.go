package relevance

import (
	"strings"

	"advisorbrief/internal/core"
)

// Score sums the signals for one item: an allow-listed link, a keyword in the title
// or snippet (case-insensitive), and the presence of any date field.
func Score(item core.SourceItem, policy Policy) int {
	score := 0
	if policy.allowedSite(item.Link) {
		score += AllowedSitePoints
	}
	if containsKeyword(item.Title+" "+item.Snippet, policy.Keywords) {
		score += KeywordPoints
	}
	if item.HasDate() {
		score += DatePresentPoints
	}
	return score
}

// ScoreAll returns copies of items with Score set.
func ScoreAll(items []core.SourceItem, policy Policy) []core.SourceItem {
	scored := make([]core.SourceItem, len(items))
	for i, item := range items {
		item.Score = Score(item, policy)
		scored[i] = item
	}
	return scored
}

func containsKeyword(text string, keywords []string) bool {
	text = strings.ToLower(text)
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" && strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
