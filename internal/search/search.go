package search

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Provider defines the unified interface for search providers
type Provider interface {
	// Search performs a search with configuration
	Search(ctx context.Context, query string, config Config) ([]Result, error)

	// GetName returns the name of the search provider
	GetName() string
}

// Config holds configuration for search requests
type Config struct {
	MaxResults int           // Maximum number of results to return
	SinceTime  time.Duration // Only return results newer than this duration
	Language   string        // Language preference (e.g., "en", "es")
}

// Result represents a unified search result
type Result struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	Domain  string `json:"domain"`
	Date    string `json:"date,omitempty"` // Free-form date as reported by the provider
	Source  string `json:"source"`         // Provider-specific source identifier
	Rank    int    `json:"rank"`           // Position in search results
}

// SiteQuery restricts query to a single domain.
func SiteQuery(domain, query string) string {
	return fmt.Sprintf("site:%s %s", domain, query)
}

// ProviderType represents the type of search provider
type ProviderType string

const (
	ProviderTypeSerper     ProviderType = "serper"
	ProviderTypeDuckDuckGo ProviderType = "duckduckgo"
	ProviderTypeGoogle     ProviderType = "google"
	ProviderTypeSerpAPI    ProviderType = "serpapi"
	ProviderTypeMock       ProviderType = "mock"
)

// ProviderFactory creates search providers based on type and configuration
type ProviderFactory struct {
	client   *http.Client
	interval time.Duration
}

// NewProviderFactory creates a factory whose providers share client and allow one
// request per interval. A zero interval disables rate limiting.
func NewProviderFactory(timeout, interval time.Duration) *ProviderFactory {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ProviderFactory{client: &http.Client{Timeout: timeout}, interval: interval}
}

// CreateProvider creates a search provider of the specified type
func (f *ProviderFactory) CreateProvider(providerType ProviderType, config map[string]string) (Provider, error) {
	var provider Provider
	switch providerType {
	case ProviderTypeSerper:
		apiKey := config["api_key"]
		if apiKey == "" {
			return nil, ErrMissingAPIKey
		}
		provider = NewSerperProvider(apiKey, config["base_url"], f.client)
	case ProviderTypeDuckDuckGo:
		provider = NewDuckDuckGoProvider(config["base_url"], f.client)
	case ProviderTypeGoogle:
		apiKey := config["api_key"]
		if apiKey == "" {
			return nil, ErrMissingAPIKey
		}
		searchID := config["search_id"]
		if searchID == "" {
			return nil, ErrMissingSearchID
		}
		provider = NewGoogleProvider(apiKey, searchID, config["base_url"], f.client)
	case ProviderTypeSerpAPI:
		apiKey := config["api_key"]
		if apiKey == "" {
			return nil, ErrMissingAPIKey
		}
		provider = NewSerpAPIProvider(apiKey, config["base_url"], f.client)
	case ProviderTypeMock:
		return NewMockProvider(), nil
	default:
		return nil, ErrUnsupportedProvider
	}
	if f.interval > 0 {
		provider = NewRateLimited(provider, f.interval)
	}
	return provider, nil
}

// GetAvailableProviders returns a list of available provider types
func (f *ProviderFactory) GetAvailableProviders() []ProviderType {
	return []ProviderType{
		ProviderTypeSerper,
		ProviderTypeDuckDuckGo,
		ProviderTypeGoogle,
		ProviderTypeSerpAPI,
		ProviderTypeMock,
	}
}

// RateLimited spaces out calls to the wrapped provider. It is safe for concurrent use.
type RateLimited struct {
	Provider
	limiter *rate.Limiter
}

// NewRateLimited allows one call per interval with no burst.
func NewRateLimited(p Provider, interval time.Duration) *RateLimited {
	return &RateLimited{Provider: p, limiter: rate.NewLimiter(rate.Every(interval), 1)}
}

// Search waits for the limiter, honoring ctx, then delegates.
func (r *RateLimited) Search(ctx context.Context, query string, config Config) ([]Result, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%s: waiting for rate limiter: %w", r.GetName(), err)
	}
	return r.Provider.Search(ctx, query, config)
}

// extractDomain extracts the domain name from a URL
func extractDomain(urlStr string) string {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(parsed.Hostname()), "www.")
}

// recencyBucket maps a lookback to the coarse d/w/m/y filters the search APIs accept.
func recencyBucket(since time.Duration) string {
	if since <= 0 {
		return ""
	}
	days := int(since.Hours() / 24)
	switch {
	case days <= 1:
		return "d"
	case days <= 7:
		return "w"
	case days <= 31:
		return "m"
	case days <= 365:
		return "y"
	}
	return ""
}

func statusError(provider string, resp *http.Response) error {
	if resp.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("%s: %w", provider, ErrRateLimited)
	}
	return fmt.Errorf("%s request failed with status: %d", provider, resp.StatusCode)
}
