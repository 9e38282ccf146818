package citations

import (
	"regexp"
	"strings"
)

// Claim is one claim of a summary with the URLs the model attributed to it.
type Claim struct {
	Text string   `json:"text" yaml:"text"`
	URLs []string `json:"urls" yaml:"urls"`
}

// claimPattern accepts an optional bullet or bold markers, straight or curly quotes
// around the claim, and "→", "->" or "=>" before the URL list.
var claimPattern = regexp.MustCompile(
	`(?s)(?:^|\n)[ \t]*(?:[-*•][ \t]*)?(?:\*\*)?Summary claim(?:\*\*)?:(?:\*\*)?[ \t]*["“”](.*?)["“”]\s*(?:→|->|=>)[ \t]*(?:\*\*)?Source URLs?(?:\(s\))?(?:\*\*)?:(?:\*\*)?[ \t]*\[(.*?)\]`)

// urlStartPattern finds URLs that open the list or follow a separator, a quote or
// whitespace, so a URL nested in another URL's query is not split off.
var urlStartPattern = regexp.MustCompile(`(?:^|[\s"'“”‘’,\[])(https?://)`)

// ParseClaims extracts (claim, urls) pairs from a free-form model response. Text that
// does not match the format yields no claims; pairs without any URL are dropped.
func ParseClaims(response string) []Claim {
	var claims []Claim
	for _, m := range claimPattern.FindAllStringSubmatch(response, -1) {
		text := strings.TrimSpace(m[1])
		if text == "" {
			continue
		}
		urls := splitURLs(m[2])
		if len(urls) == 0 {
			continue
		}
		claims = append(claims, Claim{Text: text, URLs: urls})
	}
	return claims
}

// splitURLs reads the URLs of a bracketed list. A URL runs until whitespace, a quote or
// the next URL, so commas inside a URL are kept and only separators are dropped.
func splitURLs(list string) []string {
	starts := urlStartPattern.FindAllStringSubmatchIndex(list, -1)
	var urls []string
	for i, m := range starts {
		end := len(list)
		if i+1 < len(starts) {
			end = starts[i+1][2]
		}
		u := list[m[2]:end]
		if cut := strings.IndexAny(u, " \t\r\n\"'“”‘’"); cut >= 0 {
			u = u[:cut]
		}
		u = strings.TrimRight(u, ",;")
		if len(u) > m[3]-m[2] {
			urls = append(urls, u)
		}
	}
	return urls
}
