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

const defaultSerpAPIURL = "https://serpapi.com/search"

// SerpAPIProvider implements Provider using SerpAPI
type SerpAPIProvider struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewSerpAPIProvider creates a new SerpAPI search provider
func NewSerpAPIProvider(apiKey, baseURL string, client *http.Client) *SerpAPIProvider {
	if baseURL == "" {
		baseURL = defaultSerpAPIURL
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &SerpAPIProvider{apiKey: apiKey, baseURL: baseURL, client: client}
}

// GetName returns the name of this provider
func (s *SerpAPIProvider) GetName() string {
	return "SerpAPI"
}

// Search performs a search using SerpAPI
func (s *SerpAPIProvider) Search(ctx context.Context, query string, config Config) ([]Result, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("engine", "google")
	params.Set("api_key", s.apiKey)
	if config.MaxResults > 0 {
		params.Set("num", strconv.Itoa(config.MaxResults))
	}
	if config.Language != "" {
		params.Set("hl", config.Language)
	}
	if bucket := recencyBucket(config.SinceTime); bucket != "" {
		params.Set("tbs", "qdr:"+bucket)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create SerpAPI request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute SerpAPI request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError("SerpAPI", resp)
	}

	var apiResponse struct {
		OrganicResults []struct {
			Title    string `json:"title"`
			Link     string `json:"link"`
			Snippet  string `json:"snippet"`
			Date     string `json:"date"`
			Position int    `json:"position"`
		} `json:"organic_results"`
		Error string `json:"error,omitempty"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&apiResponse); err != nil {
		return nil, fmt.Errorf("failed to parse SerpAPI response: %w", err)
	}

	if apiResponse.Error != "" {
		return nil, fmt.Errorf("SerpAPI error: %s", apiResponse.Error)
	}

	var results []Result
	for _, item := range apiResponse.OrganicResults {
		results = append(results, Result{
			URL:     item.Link,
			Title:   item.Title,
			Snippet: item.Snippet,
			Domain:  extractDomain(item.Link),
			Date:    item.Date,
			Source:  "SerpAPI",
			Rank:    item.Position,
		})
	}

	logger.Debug("SerpAPI search completed", "query", query, "results_found", len(results))
	return results, nil
}
