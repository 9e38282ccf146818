package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"advisorbrief/internal/logger"
)

const defaultSerperURL = "https://google.serper.dev/search"

// SerperProvider implements Provider using the Serper Google Search API.
// Unlike the other providers it reports a per-result date.
type SerperProvider struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewSerperProvider creates a Serper provider; an empty baseURL uses the public endpoint.
func NewSerperProvider(apiKey, baseURL string, client *http.Client) *SerperProvider {
	if baseURL == "" {
		baseURL = defaultSerperURL
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &SerperProvider{apiKey: apiKey, baseURL: baseURL, client: client}
}

// GetName returns the name of this provider
func (s *SerperProvider) GetName() string {
	return "Serper"
}

type serperRequest struct {
	Q   string `json:"q"`
	Num int    `json:"num,omitempty"`
	Tbs string `json:"tbs,omitempty"`
	Hl  string `json:"hl,omitempty"`
}

type serperResponse struct {
	Organic []struct {
		Title    string `json:"title"`
		Link     string `json:"link"`
		Snippet  string `json:"snippet"`
		Date     string `json:"date"`
		Position int    `json:"position"`
	} `json:"organic"`
	Message string `json:"message"`
}

// Search performs a search using Serper
func (s *SerperProvider) Search(ctx context.Context, query string, config Config) ([]Result, error) {
	payload := serperRequest{Q: query, Num: config.MaxResults, Hl: config.Language}
	if bucket := recencyBucket(config.SinceTime); bucket != "" {
		payload.Tbs = "qdr:" + bucket
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode Serper request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create Serper request: %w", err)
	}
	req.Header.Set("X-API-KEY", s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute Serper request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError("Serper", resp)
	}

	var apiResponse serperResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResponse); err != nil {
		return nil, fmt.Errorf("failed to parse Serper response: %w", err)
	}

	results := make([]Result, 0, len(apiResponse.Organic))
	for i, item := range apiResponse.Organic {
		rank := item.Position
		if rank == 0 {
			rank = i + 1
		}
		results = append(results, Result{
			URL:     item.Link,
			Title:   item.Title,
			Snippet: item.Snippet,
			Domain:  extractDomain(item.Link),
			Date:    item.Date,
			Source:  "Serper",
			Rank:    rank,
		})
		if config.MaxResults > 0 && len(results) == config.MaxResults {
			break
		}
	}

	logger.Debug("Serper search completed", "query", query, "results_found", len(results))
	return results, nil
}
