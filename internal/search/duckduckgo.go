package search

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"advisorbrief/internal/logger"
)

const (
	defaultDuckDuckGoURL = "https://html.duckduckgo.com/html/"
	duckDuckGoUserAgent  = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
)

// DuckDuckGoProvider implements the Provider interface by scraping the DuckDuckGo HTML endpoint
type DuckDuckGoProvider struct {
	baseURL string
	client  *http.Client
}

// NewDuckDuckGoProvider creates a new DuckDuckGo search provider
func NewDuckDuckGoProvider(baseURL string, client *http.Client) *DuckDuckGoProvider {
	if baseURL == "" {
		baseURL = defaultDuckDuckGoURL
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &DuckDuckGoProvider{baseURL: baseURL, client: client}
}

// GetName returns the name of this provider
func (d *DuckDuckGoProvider) GetName() string {
	return "DuckDuckGo"
}

// Search performs a search using DuckDuckGo and returns results
func (d *DuckDuckGoProvider) Search(ctx context.Context, query string, config Config) ([]Result, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("kl", "us-en")
	if bucket := recencyBucket(config.SinceTime); bucket != "" {
		params.Set("df", bucket)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", duckDuckGoUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute search request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError("DuckDuckGo", resp)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DuckDuckGo HTML: %w", err)
	}

	if doc.Find(".anomaly-modal__title, form#challenge-form").Length() > 0 {
		return nil, fmt.Errorf("DuckDuckGo: %w", ErrBlocked)
	}

	results := parseDuckDuckGoResults(doc, config.MaxResults)
	logger.Debug("DuckDuckGo search completed", "query", query, "results_found", len(results))
	return results, nil
}

// parseDuckDuckGoResults extracts organic results, skipping ads.
func parseDuckDuckGoResults(doc *goquery.Document, maxResults int) []Result {
	var results []Result
	doc.Find("div.result").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if s.HasClass("result--ad") {
			return true
		}
		link := s.Find("a.result__a").First()
		href, ok := link.Attr("href")
		if !ok {
			return true
		}
		finalURL := extractFinalURL(href)
		if finalURL == "" {
			return true
		}

		results = append(results, Result{
			URL:     finalURL,
			Title:   cleanText(link.Text()),
			Snippet: cleanText(s.Find(".result__snippet").First().Text()),
			Domain:  extractDomain(finalURL),
			Date:    cleanText(s.Find(".result__timestamp").First().Text()),
			Source:  "DuckDuckGo",
			Rank:    len(results) + 1,
		})
		return maxResults <= 0 || len(results) < maxResults
	})
	return results
}

// extractFinalURL extracts the actual URL from DuckDuckGo's redirect URL
func extractFinalURL(redirectURL string) string {
	// Redirects look like //duckduckgo.com/l/?uddg=https%3A//example.com/...&rut=...
	if strings.Contains(redirectURL, "/l/?") {
		parsed, err := url.Parse(redirectURL)
		if err != nil {
			return ""
		}
		return parsed.Query().Get("uddg")
	}
	if strings.HasPrefix(redirectURL, "http") {
		return redirectURL
	}
	return ""
}

func cleanText(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
