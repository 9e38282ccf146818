package relevance

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

var relativeDate = regexp.MustCompile(`^(\d+|an?|one)\s+(second|sec|minute|min|hour|hr|day|week|month|year)s?\s+ago$`)

// ParseDate interprets a free-form search result date. Relative forms such as
// "3 days ago" or "yesterday" are resolved against ref (the meeting time); other
// values go through dateparse in ref's location. ok is false for unparseable input.
func ParseDate(raw string, ref time.Time) (time.Time, bool) {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.TrimPrefix(s, "updated ")
	s = strings.TrimPrefix(s, "published ")
	if s == "" {
		return time.Time{}, false
	}

	switch s {
	case "just now", "now", "today":
		return ref, true
	case "yesterday":
		return ref.AddDate(0, 0, -1), true
	}

	if m := relativeDate.FindStringSubmatch(s); m != nil {
		n := 1
		if v, err := strconv.Atoi(m[1]); err == nil {
			n = v
		}
		switch m[2] {
		case "second", "sec":
			return ref.Add(-time.Duration(n) * time.Second), true
		case "minute", "min":
			return ref.Add(-time.Duration(n) * time.Minute), true
		case "hour", "hr":
			return ref.Add(-time.Duration(n) * time.Hour), true
		case "day":
			return ref.AddDate(0, 0, -n), true
		case "week":
			return ref.AddDate(0, 0, -7*n), true
		case "month":
			return ref.AddDate(0, -n, 0), true
		case "year":
			return ref.AddDate(-n, 0, 0), true
		}
	}

	loc := ref.Location()
	if loc == nil {
		loc = time.UTC
	}
	t, err := dateparse.ParseIn(strings.TrimSpace(raw), loc)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
