package citations

import (
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Marker is one inline citation found in text.
type Marker struct {
	Number int
	URL    string
}

// FormatMarker renders the inline citation for the n-th URL of a chunk set.
func FormatMarker(n int, url string) string {
	return fmt.Sprintf("[[%d]](%s)", n, url)
}

// markerURL accepts one level of balanced parentheses, as in
// https://en.wikipedia.org/wiki/Acme_(company).
const markerURL = `(?:[^()\s]|\([^()\s]*\))+`

var (
	markerPattern    = regexp.MustCompile(`\[\[(\d+)\]\]\((` + markerURL + `)\)`)
	markerRunPattern = regexp.MustCompile(`^(?:\[\[\d+\]\]\(` + markerURL + `\))+`)
)

// ExtractMarkers returns every [[n]](url) marker in text, in order.
func ExtractMarkers(text string) []Marker {
	var markers []Marker
	for _, m := range markerPattern.FindAllStringSubmatch(text, -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		markers = append(markers, Marker{Number: n, URL: m[2]})
	}
	return markers
}

// StripMarkers removes every inline citation from text.
func StripMarkers(text string) string {
	return markerPattern.ReplaceAllString(text, "")
}

// Reference is a numbered entry of a source list.
type Reference struct {
	Number    int    `json:"number" yaml:"number"`
	URL       string `json:"url" yaml:"url"`
	Publisher string `json:"publisher" yaml:"publisher"`
}

// References lists the distinct markers of text ordered by number.
func References(text string) []Reference {
	seen := make(map[int]bool)
	var refs []Reference
	for _, m := range ExtractMarkers(text) {
		if seen[m.Number] {
			continue
		}
		seen[m.Number] = true
		refs = append(refs, Reference{Number: m.Number, URL: m.URL, Publisher: extractPublisher(m.URL)})
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].Number < refs[j].Number })
	return refs
}

// extractPublisher extracts the registrable domain from a URL
func extractPublisher(rawURL string) string {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	host := strings.TrimPrefix(parsedURL.Hostname(), "www.")
	parts := strings.Split(host, ".")
	if len(parts) > 2 {
		return strings.Join(parts[len(parts)-2:], ".")
	}
	return host
}
