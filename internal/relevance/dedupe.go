package relevance

import (
	"net/url"
	"strings"

	"advisorbrief/internal/core"
)

// trackingParams are query parameters that never change the page being linked.
var trackingParams = map[string]bool{
	"fbclid": true, "gclid": true, "mc_cid": true, "mc_eid": true,
	"ref": true, "cmpid": true, "guccounter": true, "src": true,
}

// CanonicalURL normalizes a link for duplicate detection: lower-cased scheme and host,
// "www." stripped, fragment and tracking parameters removed, trailing slash trimmed.
// Links that do not parse are compared by their trimmed, lower-cased text.
func CanonicalURL(link string) string {
	link = strings.TrimSpace(link)
	u, err := url.Parse(link)
	if err != nil || u.Host == "" {
		return strings.TrimSuffix(strings.ToLower(link), "/")
	}

	u.Scheme = strings.ToLower(u.Scheme)
	if u.Scheme == "http" {
		u.Scheme = "https"
	}
	u.Host = strings.TrimPrefix(strings.ToLower(u.Host), "www.")
	u.Fragment = ""
	u.RawFragment = ""
	u.User = nil

	q := u.Query()
	for key := range q {
		if strings.HasPrefix(strings.ToLower(key), "utm_") || trackingParams[strings.ToLower(key)] {
			q.Del(key)
		}
	}
	u.RawQuery = q.Encode()
	u.Path = strings.TrimSuffix(u.Path, "/")
	u.RawPath = ""
	return u.String()
}

// Dedupe keeps the first occurrence of every canonical URL, preserving discovery order.
// Items without a link are dropped since nothing can cite them.
func Dedupe(items []core.SourceItem) []core.SourceItem {
	seen := make(map[string]bool, len(items))
	out := make([]core.SourceItem, 0, len(items))
	for _, item := range items {
		if strings.TrimSpace(item.Link) == "" {
			continue
		}
		key := CanonicalURL(item.Link)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, item)
	}
	return out
}
