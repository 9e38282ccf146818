// Package macro fetches macroeconomic indicator levels and lookback changes from FRED.
package macro

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const (
	serviceName    = "macro"
	DefaultBaseURL = "https://api.stlouisfed.org/fred"
	dateLayout     = "2006-01-02"
)

// ErrNoObservations is returned when a series has no usable values in range.
var ErrNoObservations = errors.New("series returned no observations")

// Observation is one dated value of a series.
type Observation struct {
	Date  time.Time
	Value float64
}

// Source returns the observations of a series between start and end, oldest first.
type Source interface {
	Observations(ctx context.Context, seriesID string, start, end time.Time) ([]Observation, error)
}

// FREDClient reads series observations from the FRED API.
type FREDClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewFREDClient creates a client; an empty baseURL uses the public endpoint.
func NewFREDClient(apiKey, baseURL string, client *http.Client) *FREDClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &FREDClient{apiKey: apiKey, baseURL: baseURL, client: client}
}

type observationsResponse struct {
	Observations []struct {
		Date  string `json:"date"`
		Value string `json:"value"`
	} `json:"observations"`
	ErrorMessage string `json:"error_message"`
}

// Observations implements Source. FRED reports missing values as "."; those are skipped.
func (c *FREDClient) Observations(ctx context.Context, seriesID string, start, end time.Time) ([]Observation, error) {
	params := url.Values{}
	params.Set("series_id", seriesID)
	params.Set("api_key", c.apiKey)
	params.Set("file_type", "json")
	params.Set("sort_order", "asc")
	if !start.IsZero() {
		params.Set("observation_start", start.Format(dateLayout))
	}
	if !end.IsZero() {
		params.Set("observation_end", end.Format(dateLayout))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/series/observations?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create FRED request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute FRED request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	var payload observationsResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode FRED response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("FRED returned status %d: %s", resp.StatusCode, payload.ErrorMessage)
	}

	observations := make([]Observation, 0, len(payload.Observations))
	for _, o := range payload.Observations {
		v, err := strconv.ParseFloat(o.Value, 64)
		if err != nil {
			continue
		}
		d, err := time.Parse(dateLayout, o.Date)
		if err != nil {
			continue
		}
		observations = append(observations, Observation{Date: d, Value: v})
	}
	if len(observations) == 0 {
		return nil, fmt.Errorf("%s: %w", seriesID, ErrNoObservations)
	}
	return observations, nil
}
