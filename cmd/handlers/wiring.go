package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"advisorbrief/internal/citations"
	"advisorbrief/internal/config"
	"advisorbrief/internal/crm"
	"advisorbrief/internal/llm"
	"advisorbrief/internal/logger"
	"advisorbrief/internal/macro"
	"advisorbrief/internal/pipeline"
	"advisorbrief/internal/preferences"
	"advisorbrief/internal/retrieval"
	"advisorbrief/internal/search"
	"advisorbrief/internal/summarize"
)

const day = 24 * time.Hour

// offlineResponse is what the placeholder model answers in offline runs.
const offlineResponse = "Offline run: no language model was called."

// sources controls how collaborators are built for a command.
type sources struct {
	fixture string // CRM fixture YAML; replaces the database when set
	offline bool   // placeholder model and mock search, no indicator fetch
}

func newCompleter(ctx context.Context, cfg *config.Config, src sources) (llm.Completer, error) {
	if src.offline {
		return llm.NewMockCompleter(offlineResponse), nil
	}
	client, err := llm.NewClient(ctx, llm.Options{
		Model:       cfg.AI.Gemini.Model,
		Timeout:     config.Duration(cfg.AI.Gemini.Timeout, llm.DefaultTimeout),
		MaxTokens:   cfg.AI.Gemini.MaxTokens,
		Temperature: cfg.AI.Gemini.Temperature,
	})
	if err != nil {
		return nil, err
	}
	logger.Debug("language model ready", "model", client.ModelName())
	return client, nil
}

func newSearchProvider(cfg *config.Config, src sources) (search.Provider, error) {
	if src.offline {
		return search.NewMockProvider(), nil
	}
	factory := search.NewProviderFactory(
		config.Duration(cfg.Search.Timeout, 15*time.Second),
		config.Duration(cfg.Search.RateLimit, 0),
	)

	providers := cfg.Search.Providers
	var settings map[string]string
	switch search.ProviderType(cfg.Search.DefaultProvider) {
	case search.ProviderTypeSerper:
		settings = map[string]string{"api_key": providers.Serper.APIKey, "base_url": providers.Serper.BaseURL}
	case search.ProviderTypeGoogle:
		settings = map[string]string{"api_key": providers.Google.APIKey, "search_id": providers.Google.SearchID}
	case search.ProviderTypeSerpAPI:
		settings = map[string]string{"api_key": providers.SerpAPI.APIKey}
	default:
		settings = map[string]string{}
	}

	provider, err := factory.CreateProvider(search.ProviderType(cfg.Search.DefaultProvider), settings)
	if err != nil {
		return nil, fmt.Errorf("search provider %s: %w", cfg.Search.DefaultProvider, err)
	}
	return provider, nil
}

func topicSettings(t config.TopicConfig, keywords []string) retrieval.TopicSettings {
	return retrieval.TopicSettings{
		Query:             t.Query,
		MaxResultsPerSite: t.MaxResultsPerSite,
		WindowFallback:    time.Duration(t.WindowFallbackDays) * day,
		Recency:           time.Duration(t.RecencyDays) * day,
		Keywords:          keywords,
	}
}

// retrievalSettings maps the search section onto the retriever. Macro news is scored
// against the economic keywords, company and holdings news against the client ones.
func retrievalSettings(cfg *config.Config) retrieval.Settings {
	s := cfg.Search
	return retrieval.Settings{
		Sites:            s.TrustedSites,
		Language:         s.Language,
		Macro:            topicSettings(s.Topics.Macro, s.KeywordsEcon),
		Industry:         topicSettings(s.Topics.Industry, s.KeywordsClient),
		Holdings:         topicSettings(s.Topics.Holdings, s.KeywordsClient),
		ParallelHoldings: cfg.Pipeline.ParallelHoldings,
		MaxConcurrency:   cfg.Pipeline.MaxConcurrency,
	}
}

// loadFixture reads a CRM fixture into a MemoryStore.
func loadFixture(path string) (*crm.MemoryStore, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read CRM fixture: %w", err)
	}
	store := &crm.MemoryStore{}
	if err := yaml.Unmarshal(data, store); err != nil {
		return nil, fmt.Errorf("failed to parse CRM fixture %s: %w", path, err)
	}
	return store, nil
}

// newStore returns the CRM store and a func that releases it.
func newStore(ctx context.Context, cfg *config.Config, src sources) (crm.Store, func(), error) {
	if src.fixture != "" {
		store, err := loadFixture(src.fixture)
		return store, func() {}, err
	}
	if cfg.CRM.DSN == "" {
		return nil, nil, errors.New("CRM database is not configured: set crm.dsn or DATABASE_URL, or pass --fixture")
	}
	store, err := crm.Open(ctx, cfg.CRM.DSN, crm.PoolOptions{
		MaxOpenConns: cfg.CRM.MaxOpenConns,
		MaxIdleConns: cfg.CRM.MaxIdleConns,
		Timeout:      config.Duration(cfg.CRM.Timeout, 10*time.Second),
	})
	if err != nil {
		return nil, nil, err
	}
	return store, func() {
		if err := store.Close(); err != nil {
			logger.Warn("failed to close CRM database", "error", err)
		}
	}, nil
}

// newIndicators returns nil when indicators are disabled or cannot be fetched.
func newIndicators(cfg *config.Config, src sources) *macro.Collector {
	if src.offline || !cfg.Macro.Enabled || !cfg.Pipeline.FetchIndicators {
		return nil
	}
	if cfg.Macro.APIKey == "" {
		logger.Warn("macro indicators disabled: FRED_API_KEY is not set")
		return nil
	}
	client := &http.Client{Timeout: config.Duration(cfg.Macro.Timeout, 10*time.Second)}
	return macro.NewCollector(macro.NewFREDClient(cfg.Macro.APIKey, cfg.Macro.BaseURL, client), macro.DefaultIndicators)
}

// buildPipeline wires every collaborator from configuration. The returned func
// releases the CRM connection.
func buildPipeline(ctx context.Context, cfg *config.Config, src sources) (*pipeline.Pipeline, func(), error) {
	completer, err := newCompleter(ctx, cfg, src)
	if err != nil {
		return nil, nil, err
	}
	provider, err := newSearchProvider(cfg, src)
	if err != nil {
		return nil, nil, err
	}
	prefs, err := preferences.FromConfig(cfg.Preferences)
	if err != nil {
		return nil, nil, err
	}
	store, release, err := newStore(ctx, cfg, src)
	if err != nil {
		return nil, nil, err
	}

	builder := pipeline.NewBuilder().
		WithCRM(crm.NewLoader(store, cfg.CRM.HoldingsLimit, cfg.CRM.RecentEmailLimit)).
		WithSummarizer(summarize.New(completer, cfg.Firm.Name)).
		WithRetriever(retrieval.New(provider, retrievalSettings(cfg))).
		WithAssembler(summarize.NewAssembler(completer, summarize.DefaultRegistry(), prefs)).
		WithAttributor(citations.NewAttributor(completer, citations.Options{
			MaxChunkLength:  cfg.Citations.MaxChunkLength,
			MaxURLsPerClaim: cfg.Citations.MaxURLsPerClaim,
		})).
		WithParallelRetrieval(cfg.Pipeline.ParallelRetrieval).
		WithMeetingCategorization(cfg.Pipeline.CategorizeMeeting)
	if collector := newIndicators(cfg, src); collector != nil {
		builder = builder.WithIndicators(collector)
	}

	p, err := builder.Build()
	if err != nil {
		release()
		return nil, nil, err
	}
	return p, release, nil
}
