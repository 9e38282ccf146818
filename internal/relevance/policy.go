// Package relevance scores, deduplicates and date-filters retrieved source items.
// Every retrieval topic shares the same implementation and differs only in Policy.
package relevance

import (
	"strings"
	"time"
)

// Point values of the three scoring signals.
const (
	AllowedSitePoints = 3
	KeywordPoints     = 2
	DatePresentPoints = 1
)

// Default tier thresholds.
const (
	DefaultRecencyMinScore = 3
	DefaultUndatedMinScore = 5
	DefaultAnyDateMinScore = 5
)

// Window is an inclusive time range.
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t lies in [Start, End].
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// Policy parameterizes scoring and tiered date filtering for one topic.
type Policy struct {
	AllowedSites    []string
	Keywords        []string
	Window          Window
	RecencyWindow   time.Duration
	RecencyMinScore int
	UndatedMinScore int
	AnyDateMinScore int
}

// NewPolicy builds a policy with the default tier thresholds. When lastMeeting is
// nil the window falls back to [meeting-fallback, meeting].
func NewPolicy(sites, keywords []string, meeting time.Time, lastMeeting *time.Time, fallback, recency time.Duration) Policy {
	start := meeting.Add(-fallback)
	if lastMeeting != nil && !lastMeeting.IsZero() {
		start = *lastMeeting
	}
	return Policy{
		AllowedSites:    sites,
		Keywords:        keywords,
		Window:          Window{Start: start, End: meeting},
		RecencyWindow:   recency,
		RecencyMinScore: DefaultRecencyMinScore,
		UndatedMinScore: DefaultUndatedMinScore,
		AnyDateMinScore: DefaultAnyDateMinScore,
	}
}

// RecentWindow is the sub-window [End-RecencyWindow, End].
func (p Policy) RecentWindow() Window {
	return Window{Start: p.Window.End.Add(-p.RecencyWindow), End: p.Window.End}
}

// Lookback is how far before the meeting the window reaches, used as a search recency hint.
func (p Policy) Lookback() time.Duration {
	return p.Window.End.Sub(p.Window.Start)
}

func (p Policy) allowedSite(link string) bool {
	link = strings.ToLower(link)
	for _, site := range p.AllowedSites {
		if site != "" && strings.Contains(link, strings.ToLower(site)) {
			return true
		}
	}
	return false
}
