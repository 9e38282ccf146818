package search

import (
	"context"
	"sync"
)

// MockProvider implements Provider for tests and offline runs. Results can be
// scripted per exact query; unscripted queries return the default set.
type MockProvider struct {
	name     string
	mu       sync.Mutex
	results  []Result
	byQuery  map[string][]Result
	failures map[string]error
	queries  []string
}

// NewMockProvider creates a new mock search provider
func NewMockProvider() *MockProvider {
	return &MockProvider{
		name:     "Mock",
		byQuery:  make(map[string][]Result),
		failures: make(map[string]error),
	}
}

// GetName returns the name of this provider
func (m *MockProvider) GetName() string {
	return m.name
}

// Search returns the scripted results for query, truncated to config.MaxResults
func (m *MockProvider) Search(ctx context.Context, query string, config Config) ([]Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries = append(m.queries, query)

	if err, ok := m.failures[query]; ok {
		return nil, err
	}
	source, ok := m.byQuery[query]
	if !ok {
		source = m.results
	}

	n := len(source)
	if config.MaxResults > 0 && config.MaxResults < n {
		n = config.MaxResults
	}
	results := make([]Result, n)
	copy(results, source[:n])
	return results, nil
}

// SetResults sets the default results returned for unscripted queries
func (m *MockProvider) SetResults(results []Result) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results = results
}

// SetQueryResults scripts the results for one exact query
func (m *MockProvider) SetQueryResults(query string, results []Result) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byQuery[query] = results
}

// FailQuery makes one exact query return err
func (m *MockProvider) FailQuery(query string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[query] = err
}

// Queries returns every query received, in call order
func (m *MockProvider) Queries() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.queries...)
}
