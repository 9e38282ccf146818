package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"advisorbrief/internal/logger"
)

const defaultGoogleCSEURL = "https://www.googleapis.com/customsearch/v1"

// publishedTimeKeys are the page metatags Google CSE exposes that carry a publication date.
var publishedTimeKeys = []string{"article:published_time", "og:updated_time", "date", "pubdate"}

// GoogleProvider implements Provider using Google Custom Search API
type GoogleProvider struct {
	apiKey   string
	searchID string
	baseURL  string
	client   *http.Client
}

// NewGoogleProvider creates a new Google Custom Search provider
func NewGoogleProvider(apiKey, searchID, baseURL string, client *http.Client) *GoogleProvider {
	if baseURL == "" {
		baseURL = defaultGoogleCSEURL
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &GoogleProvider{apiKey: apiKey, searchID: searchID, baseURL: baseURL, client: client}
}

// GetName returns the name of this provider
func (g *GoogleProvider) GetName() string {
	return "Google Custom Search"
}

// Search performs a search using Google Custom Search API
func (g *GoogleProvider) Search(ctx context.Context, query string, config Config) ([]Result, error) {
	params := url.Values{}
	params.Set("key", g.apiKey)
	params.Set("cx", g.searchID)
	params.Set("q", query)
	if config.MaxResults > 0 {
		params.Set("num", strconv.Itoa(min(config.MaxResults, 10))) // CSE allows max 10 per request
	}
	if bucket := recencyBucket(config.SinceTime); bucket != "" {
		params.Set("dateRestrict", bucket+"1")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Google CSE request: %w", err)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute Google CSE request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError("google CSE", resp)
	}

	var apiResponse struct {
		Items []struct {
			Title   string `json:"title"`
			Link    string `json:"link"`
			Snippet string `json:"snippet"`
			Pagemap struct {
				Metatags []map[string]string `json:"metatags"`
			} `json:"pagemap"`
		} `json:"items"`
		Error struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error,omitempty"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&apiResponse); err != nil {
		return nil, fmt.Errorf("failed to parse Google CSE response: %w", err)
	}

	if apiResponse.Error.Code != 0 {
		return nil, fmt.Errorf("google CSE API error (%d): %s", apiResponse.Error.Code, apiResponse.Error.Message)
	}

	var results []Result
	for i, item := range apiResponse.Items {
		results = append(results, Result{
			URL:     item.Link,
			Title:   item.Title,
			Snippet: item.Snippet,
			Domain:  extractDomain(item.Link),
			Date:    firstMetatag(item.Pagemap.Metatags, publishedTimeKeys),
			Source:  "Google",
			Rank:    i + 1,
		})
	}

	logger.Debug("Google Custom Search completed", "query", query, "results_found", len(results))
	return results, nil
}

func firstMetatag(tags []map[string]string, keys []string) string {
	for _, key := range keys {
		for _, tag := range tags {
			if v := tag[key]; v != "" {
				return v
			}
		}
	}
	return ""
}
