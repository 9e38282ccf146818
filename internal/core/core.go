package core

import (
	"strings"
	"time"
)

// MeetingTimeLayout is the layout used for meeting timestamps on requests and in the CRM.
const MeetingTimeLayout = "2006-01-02 15:04:05"

// NoRelevantNews is the sentinel carried by a holding whose retrieval produced no
// retained articles. Downstream stages treat it as "no evidence", never as an error.
const NoRelevantNews = "No relevant news found for this holding in the selected time window."

// Tier identifies which date-filtering rule retained a source item.
type Tier string

const (
	TierNone           Tier = ""
	TierWindow         Tier = "window"          // (a) dated inside [last meeting, meeting]
	TierRecentQuality  Tier = "recent_quality"  // (b) dated inside the recency sub-window, score >= 3
	TierUndatedHighRel Tier = "undated_high"    // (c) date missing/unparseable, score >= 5
	TierHighRelevance  Tier = "high_relevance"  // (d) score >= 5 regardless of date
)

// SourceItem is one retrieved, scored news/search result.
type SourceItem struct {
	Title      string `json:"title" yaml:"title"`                                 // Result title
	Snippet    string `json:"snippet" yaml:"snippet"`                             // Result snippet
	Date       string `json:"date,omitempty" yaml:"date,omitempty"`               // Free-form date as returned by search
	Link       string `json:"link" yaml:"link"`                                   // Result URL
	Score      int    `json:"relevance_score" yaml:"relevance_score"`             // Derived relevance score
	RetainedBy Tier   `json:"retained_by,omitempty" yaml:"retained_by,omitempty"` // Filter tier that kept the item
}

// HasDate reports whether the search collaborator returned a date field at all.
func (s SourceItem) HasDate() bool {
	return strings.TrimSpace(s.Date) != ""
}

// SourceCollection is the retained set of items for one topic.
type SourceCollection struct {
	Topic string       `json:"topic" yaml:"topic"`
	Items []SourceItem `json:"items" yaml:"items"`
}

// Len returns the number of retained items; a nil collection has none.
func (c *SourceCollection) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Items)
}

// HoldingNews is the retrieval outcome for a single holding. Exactly one of Items or
// Sentinel is set: a holding without retained articles carries NoRelevantNews.
type HoldingNews struct {
	Holding  string       `json:"holding" yaml:"holding"`
	Items    []SourceItem `json:"items,omitempty" yaml:"items,omitempty"`
	Sentinel string       `json:"sentinel,omitempty" yaml:"sentinel,omitempty"`
}

// NoEvidence reports whether the holding produced the empty-evidence sentinel.
func (h HoldingNews) NoEvidence() bool {
	return h.Sentinel != ""
}

// NewHoldingNews builds the outcome for a holding, substituting the sentinel when empty.
func NewHoldingNews(holding string, items []SourceItem) HoldingNews {
	if len(items) == 0 {
		return HoldingNews{Holding: holding, Sentinel: NoRelevantNews}
	}
	return HoldingNews{Holding: holding, Items: items}
}

// HoldingsCollection keeps per-holding results in the order of the client's holdings.
type HoldingsCollection struct {
	Holdings []HoldingNews `json:"holdings" yaml:"holdings"`
}

// Lookup returns the result for a holding by name.
func (h *HoldingsCollection) Lookup(holding string) (HoldingNews, bool) {
	if h == nil {
		return HoldingNews{}, false
	}
	for _, news := range h.Holdings {
		if news.Holding == holding {
			return news, true
		}
	}
	return HoldingNews{}, false
}

// Items flattens all retained holdings articles in holding order.
func (h *HoldingsCollection) Items() []SourceItem {
	if h == nil {
		return nil
	}
	var items []SourceItem
	for _, news := range h.Holdings {
		items = append(items, news.Items...)
	}
	return items
}

// ClientProfile is the CRM view of the client's firm.
type ClientProfile struct {
	Company       string   `json:"client_company" yaml:"client_company"`
	Industry      string   `json:"client_industry" yaml:"client_industry"`
	Holdings      []string `json:"client_holdings" yaml:"client_holdings"`     // Ordered by position weight
	ContactEmails []string `json:"all_client_emails" yaml:"all_client_emails"` // Every contact at the company
}

// Correspondence holds the raw email bodies exchanged with the client's contacts.
type Correspondence struct {
	LastMeeting  *time.Time `json:"last_meeting_timestamp,omitempty" yaml:"last_meeting_timestamp,omitempty"`
	PastEmails   []string   `json:"past_emails" yaml:"past_emails"`
	RecentEmails []string   `json:"recent_emails" yaml:"recent_emails"`
}

// MeetingFocus is the categorization of the meeting topic.
type MeetingFocus struct {
	Category  string `json:"meeting_category" yaml:"meeting_category"`
	NewsFocus string `json:"news_focus" yaml:"news_focus"`
}

// IndicatorSnapshot is the latest level of a macro indicator and its percent changes.
// Nil values mean the indicator (or that lookback) was unavailable.
type IndicatorSnapshot struct {
	Label    string   `json:"label" yaml:"label"`
	SeriesID string   `json:"series_id" yaml:"series_id"`
	Level    *float64 `json:"level" yaml:"level"`
	Change1M *float64 `json:"change_1m" yaml:"change_1m"`
	Change3M *float64 `json:"change_3m" yaml:"change_3m"`
	Change6M *float64 `json:"change_6m" yaml:"change_6m"`
	Change1Y *float64 `json:"change_1y" yaml:"change_1y"`
	Change2Y *float64 `json:"change_2y" yaml:"change_2y"`
}

// Sections are the preference-driven narrative sections of the briefing.
// A topic at detail level "none" is always present as an empty string.
type Sections struct {
	FinanceHoldings string `json:"summary_fin_hold" yaml:"summary_fin_hold"`
	ClientNews      string `json:"summary_client_news" yaml:"summary_client_news"`
	Communications  string `json:"summary_client_comms" yaml:"summary_client_comms"`
}

// SourcedSections are the cited variants of the finance/holdings and client-news sections.
type SourcedSections struct {
	FinanceHoldings string `json:"fin_hold_summary_sourced" yaml:"fin_hold_summary_sourced"`
	ClientNews      string `json:"client_news_summary_sourced" yaml:"client_news_summary_sourced"`
}
