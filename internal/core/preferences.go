package core

import (
	"fmt"
	"strings"
)

// DetailLevel selects which section template, if any, runs for a topic.
type DetailLevel string

const (
	DetailNone  DetailLevel = "none"
	DetailShort DetailLevel = "short"
	DetailFull  DetailLevel = "full"
)

// Topic names a preference-driven briefing section.
type Topic string

const (
	TopicFinance        Topic = "finance"
	TopicClientNews     Topic = "client_news"
	TopicCommunications Topic = "communications"
)

// Topics lists every section topic in assembly order.
var Topics = []Topic{TopicFinance, TopicClientNews, TopicCommunications}

// ParseDetailLevel accepts the canonical levels plus the aliases used by stored preferences.
func ParseDetailLevel(raw string) (DetailLevel, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "none", "off":
		return DetailNone, nil
	case "short", "low":
		return DetailShort, nil
	case "full", "medium", "high", "long":
		return DetailFull, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidDetailLevel, raw)
}

// Preferences carries one detail level per topic.
type Preferences struct {
	Finance        DetailLevel `json:"finance" yaml:"finance"`
	ClientNews     DetailLevel `json:"client_news" yaml:"client_news"`
	Communications DetailLevel `json:"communications" yaml:"communications"`
}

// DefaultPreferences is used when a user has no stored profile.
func DefaultPreferences() Preferences {
	return Preferences{Finance: DetailShort, ClientNews: DetailShort, Communications: DetailShort}
}

// Level returns the detail level for a topic; unknown topics are disabled.
func (p Preferences) Level(topic Topic) DetailLevel {
	switch topic {
	case TopicFinance:
		return p.Finance
	case TopicClientNews:
		return p.ClientNews
	case TopicCommunications:
		return p.Communications
	}
	return DetailNone
}
