package relevance

import (
	"sort"

	"advisorbrief/internal/core"
)

// Classify returns the first tier that retains a scored item, or core.TierNone:
//
//	(a) date inside the policy window
//	(b) date inside the recency sub-window and score >= RecencyMinScore
//	(c) date missing or unparseable and score >= UndatedMinScore
//	(d) score >= AnyDateMinScore regardless of date
func Classify(item core.SourceItem, policy Policy) core.Tier {
	date, dated := ParseDate(item.Date, policy.Window.End)
	switch {
	case dated && policy.Window.Contains(date):
		return core.TierWindow
	case dated && policy.RecentWindow().Contains(date) && item.Score >= policy.RecencyMinScore:
		return core.TierRecentQuality
	case !dated && item.Score >= policy.UndatedMinScore:
		return core.TierUndatedHighRel
	case item.Score >= policy.AnyDateMinScore:
		return core.TierHighRelevance
	}
	return core.TierNone
}

// Filter keeps the items retained by some tier, records the tier on each copy, and
// orders them by descending score. The sort is stable, so ties keep discovery order.
func Filter(items []core.SourceItem, policy Policy) []core.SourceItem {
	kept := make([]core.SourceItem, 0, len(items))
	for _, item := range items {
		tier := Classify(item, policy)
		if tier == core.TierNone {
			continue
		}
		item.RetainedBy = tier
		kept = append(kept, item)
	}
	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Score > kept[j].Score
	})
	return kept
}

// Process runs the full post-search procedure: dedupe, score, filter, sort.
func Process(items []core.SourceItem, policy Policy) []core.SourceItem {
	return Filter(ScoreAll(Dedupe(items), policy), policy)
}
