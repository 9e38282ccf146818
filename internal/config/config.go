package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"advisorbrief/internal/core"
)

// Config holds all application configuration
type Config struct {
	App         App         `mapstructure:"app"`
	AI          AI          `mapstructure:"ai"`
	Search      Search      `mapstructure:"search"`
	CRM         CRM         `mapstructure:"crm"`
	Macro       Macro       `mapstructure:"macro"`
	Citations   Citations   `mapstructure:"citations"`
	Pipeline    Pipeline    `mapstructure:"pipeline"`
	Firm        Firm        `mapstructure:"firm"`
	Preferences Preferences `mapstructure:"preferences"`
	Metrics     Metrics     `mapstructure:"metrics"`
}

// App holds general application configuration
type App struct {
	Debug        bool   `mapstructure:"debug"`
	LogLevel     string `mapstructure:"log_level"`
	OutputFormat string `mapstructure:"output_format"`
}

// AI holds language-model configuration
type AI struct {
	Gemini GeminiConfig `mapstructure:"gemini"`
}

// GeminiConfig holds Google Gemini configuration
type GeminiConfig struct {
	APIKey      string  `mapstructure:"api_key"`
	Model       string  `mapstructure:"model"`
	Timeout     string  `mapstructure:"timeout"`
	MaxTokens   int32   `mapstructure:"max_tokens"`
	Temperature float32 `mapstructure:"temperature"`
}

// Search holds search provider and retrieval configuration
type Search struct {
	DefaultProvider string          `mapstructure:"default_provider"`
	Timeout         string          `mapstructure:"timeout"`
	RateLimit       string          `mapstructure:"rate_limit"`
	Language        string          `mapstructure:"language"`
	TrustedSites    []string        `mapstructure:"trusted_sites"`
	KeywordsClient  []string        `mapstructure:"keywords_client"`
	KeywordsEcon    []string        `mapstructure:"keywords_econ"`
	Topics          SearchTopics    `mapstructure:"topics"`
	Providers       SearchProviders `mapstructure:"providers"`
}

// SearchTopics holds per-topic retrieval settings
type SearchTopics struct {
	Macro    TopicConfig `mapstructure:"macro"`
	Industry TopicConfig `mapstructure:"industry"`
	Holdings TopicConfig `mapstructure:"holdings"`
}

// TopicConfig configures one retrieval topic
type TopicConfig struct {
	Query              string `mapstructure:"query"`
	MaxResultsPerSite  int    `mapstructure:"max_results_per_site"`
	WindowFallbackDays int    `mapstructure:"window_fallback_days"`
	RecencyDays        int    `mapstructure:"recency_days"`
}

// SearchProviders holds configuration for all search providers
type SearchProviders struct {
	Serper  SerperConfig       `mapstructure:"serper"`
	Google  GoogleSearchConfig `mapstructure:"google"`
	SerpAPI SerpAPIConfig      `mapstructure:"serpapi"`
}

// SerperConfig holds Serper (google.serper.dev) configuration
type SerperConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
}

// GoogleSearchConfig holds Google Custom Search configuration
type GoogleSearchConfig struct {
	APIKey   string `mapstructure:"api_key"`
	SearchID string `mapstructure:"search_id"`
}

// SerpAPIConfig holds SerpAPI configuration
type SerpAPIConfig struct {
	APIKey string `mapstructure:"api_key"`
}

// CRM holds the CRM/email database configuration
type CRM struct {
	DSN              string `mapstructure:"dsn"`
	Timeout          string `mapstructure:"timeout"`
	MaxOpenConns     int    `mapstructure:"max_open_conns"`
	MaxIdleConns     int    `mapstructure:"max_idle_conns"`
	HoldingsLimit    int    `mapstructure:"holdings_limit"`
	RecentEmailLimit int    `mapstructure:"recent_email_limit"`
}

// Macro holds the macro time-series configuration
type Macro struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	Timeout string `mapstructure:"timeout"`
}

// Citations holds citation attribution settings
type Citations struct {
	MaxChunkLength  int `mapstructure:"max_chunk_length"`
	MaxURLsPerClaim int `mapstructure:"max_urls_per_claim"`
}

// Pipeline holds orchestration switches
type Pipeline struct {
	ParallelRetrieval bool `mapstructure:"parallel_retrieval"`
	ParallelHoldings  bool `mapstructure:"parallel_holdings"`
	CategorizeMeeting bool `mapstructure:"categorize_meeting"`
	FetchIndicators   bool `mapstructure:"fetch_indicators"`
	MaxConcurrency    int  `mapstructure:"max_concurrency"` // holdings searched at once, 0 for no limit
}

// Firm identifies the advisory firm named in prompts
type Firm struct {
	Name string `mapstructure:"name"`
}

// Preferences holds detail-level profiles. Users are a list because emails contain dots.
type Preferences struct {
	Default PreferenceProfile `mapstructure:"default"`
	Users   []UserPreference  `mapstructure:"users"`
}

// PreferenceProfile holds one detail level per section
type PreferenceProfile struct {
	Finance        string `mapstructure:"finance"`
	ClientNews     string `mapstructure:"client_news"`
	Communications string `mapstructure:"communications"`
}

// UserPreference binds a profile to a requesting user
type UserPreference struct {
	Email             string `mapstructure:"email"`
	PreferenceProfile `mapstructure:",squash"`
}

// Metrics holds the prometheus endpoint configuration
type Metrics struct {
	Addr string `mapstructure:"addr"`
}

var globalConfig *Config

// Load loads the configuration from various sources
func Load(configFile string) (*Config, error) {
	if globalConfig != nil {
		return globalConfig, nil
	}

	// Load .env file if it exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: Error loading .env file: %v\n", err)
		}
	}

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME")
		viper.SetConfigName(".advisorbrief")
		viper.SetConfigType("yaml")
	}

	setDefaults()
	bindEnvironmentVariables()

	viper.SetEnvPrefix("ADVISORBRIEF")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := postProcessConfig(config); err != nil {
		return nil, fmt.Errorf("error post-processing config: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, err
	}

	globalConfig = config
	return config, nil
}

// Get returns the global configuration, loading it if necessary
func Get() *Config {
	if globalConfig == nil {
		config, err := Load("")
		if err != nil {
			panic(fmt.Sprintf("Failed to load configuration: %v", err))
		}
		return config
	}
	return globalConfig
}

// setDefaults sets default configuration values
func setDefaults() {
	viper.SetDefault("app.debug", false)
	viper.SetDefault("app.log_level", "info")
	viper.SetDefault("app.output_format", "json")

	viper.SetDefault("ai.gemini.model", "gemini-2.5-flash")
	viper.SetDefault("ai.gemini.timeout", "60s")
	viper.SetDefault("ai.gemini.max_tokens", 8192)
	viper.SetDefault("ai.gemini.temperature", 0.2)

	viper.SetDefault("search.default_provider", "serper")
	viper.SetDefault("search.timeout", "15s")
	viper.SetDefault("search.rate_limit", "200ms")
	viper.SetDefault("search.language", "en")
	viper.SetDefault("search.trusted_sites", DefaultTrustedSites)
	viper.SetDefault("search.keywords_client", DefaultKeywordsClient)
	viper.SetDefault("search.keywords_econ", DefaultKeywordsEcon)
	viper.SetDefault("search.providers.serper.base_url", "https://google.serper.dev/search")

	viper.SetDefault("search.topics.macro.query", "news about relevant macro events and the economy")
	viper.SetDefault("search.topics.macro.max_results_per_site", 6)
	viper.SetDefault("search.topics.macro.window_fallback_days", 180)
	viper.SetDefault("search.topics.macro.recency_days", 60)
	viper.SetDefault("search.topics.industry.query", "news about {company} and about {industry} industry")
	viper.SetDefault("search.topics.industry.max_results_per_site", 8)
	viper.SetDefault("search.topics.industry.window_fallback_days", 90)
	viper.SetDefault("search.topics.industry.recency_days", 30)
	viper.SetDefault("search.topics.holdings.query", "news about {holding}")
	viper.SetDefault("search.topics.holdings.max_results_per_site", 4)
	viper.SetDefault("search.topics.holdings.window_fallback_days", 60)
	viper.SetDefault("search.topics.holdings.recency_days", 45)

	viper.SetDefault("crm.timeout", "10s")
	viper.SetDefault("crm.max_open_conns", 5)
	viper.SetDefault("crm.max_idle_conns", 2)
	viper.SetDefault("crm.holdings_limit", 5)
	viper.SetDefault("crm.recent_email_limit", 5)

	viper.SetDefault("macro.enabled", true)
	viper.SetDefault("macro.base_url", "https://api.stlouisfed.org/fred")
	viper.SetDefault("macro.timeout", "10s")

	viper.SetDefault("citations.max_chunk_length", 1000)
	viper.SetDefault("citations.max_urls_per_claim", 3)

	viper.SetDefault("pipeline.parallel_retrieval", false)
	viper.SetDefault("pipeline.parallel_holdings", false)
	viper.SetDefault("pipeline.categorize_meeting", true)
	viper.SetDefault("pipeline.fetch_indicators", true)
	viper.SetDefault("pipeline.max_concurrency", 4)

	viper.SetDefault("firm.name", "Bankwell Financial")

	viper.SetDefault("preferences.default.finance", "short")
	viper.SetDefault("preferences.default.client_news", "short")
	viper.SetDefault("preferences.default.communications", "short")
}

// Defaults used by the retrieval topics.
var (
	DefaultTrustedSites = []string{
		"reuters.com", "bloomberg.com", "cnn.com", "finance.yahoo.com", "marketwatch.com", "WSJ.com",
	}
	DefaultKeywordsClient = []string{
		"announces", "acquires", "launches", "earnings", "report", "profit", "CEO",
		"crisis", "disaster", "recession", "recovery", "red flag", "urgent", "challenge",
		"emergency", "tumble", "drop", "opportunity", "slowdown",
	}
	DefaultKeywordsEcon = []string{
		"recovery", "crisis", "disaster", "recession", "red flag", "urgent", "challenge",
		"emergency", "tumble", "drop", "slowdown",
	}
)

// bindEnvironmentVariables binds well-known variable names that do not follow the prefix
func bindEnvironmentVariables() {
	bindEnvKeys("ai.gemini.api_key", []string{
		"GEMINI_API_KEY",
		"GOOGLE_GEMINI_API_KEY",
		"GOOGLE_AI_API_KEY",
	})

	bindEnvKeys("search.providers.serper.api_key", []string{
		"SERPER_API_KEY",
	})

	bindEnvKeys("search.providers.google.api_key", []string{
		"GOOGLE_CUSTOM_SEARCH_API_KEY",
		"GOOGLE_CSE_API_KEY",
	})

	bindEnvKeys("search.providers.google.search_id", []string{
		"GOOGLE_CUSTOM_SEARCH_ID",
		"GOOGLE_CSE_ID",
	})

	bindEnvKeys("search.providers.serpapi.api_key", []string{
		"SERPAPI_API_KEY",
		"SERPAPI_KEY",
	})

	bindEnvKeys("crm.dsn", []string{
		"CRM_DATABASE_URL",
		"DATABASE_URL",
	})

	bindEnvKeys("macro.api_key", []string{
		"FRED_API_KEY",
	})

	bindEnvKeys("search.default_provider", []string{
		"SEARCH_PROVIDER",
	})
}

// bindEnvKeys binds the first found environment variable to a viper key
func bindEnvKeys(viperKey string, envKeys []string) {
	for _, envKey := range envKeys {
		if value := os.Getenv(envKey); value != "" {
			viper.Set(viperKey, value)
			return
		}
	}
}

// postProcessConfig normalizes values and checks durations
func postProcessConfig(config *Config) error {
	config.Search.DefaultProvider = strings.ToLower(strings.TrimSpace(config.Search.DefaultProvider))

	durations := map[string]string{
		"ai.gemini.timeout": config.AI.Gemini.Timeout,
		"search.timeout":    config.Search.Timeout,
		"search.rate_limit": config.Search.RateLimit,
		"crm.timeout":       config.CRM.Timeout,
		"macro.timeout":     config.Macro.Timeout,
	}

	for key, duration := range durations {
		if duration != "" {
			if _, err := time.ParseDuration(duration); err != nil {
				return fmt.Errorf("invalid duration for %s: %s", key, duration)
			}
		}
	}

	return nil
}

// validateConfig ensures the configuration is usable. Credentials are checked where the
// collaborator is built so that offline commands work without them.
func validateConfig(config *Config) error {
	var problems []string

	switch config.Search.DefaultProvider {
	case "serper", "google", "serpapi", "duckduckgo", "mock":
	default:
		problems = append(problems, fmt.Sprintf("Unknown search provider: %s. Supported: serper, google, serpapi, duckduckgo, mock", config.Search.DefaultProvider))
	}

	if len(config.Search.TrustedSites) == 0 {
		problems = append(problems, "search.trusted_sites must list at least one domain")
	}

	topics := map[string]TopicConfig{
		"macro":    config.Search.Topics.Macro,
		"industry": config.Search.Topics.Industry,
		"holdings": config.Search.Topics.Holdings,
	}
	for name, topic := range topics {
		if topic.MaxResultsPerSite <= 0 {
			problems = append(problems, fmt.Sprintf("search.topics.%s.max_results_per_site must be positive", name))
		}
		if topic.WindowFallbackDays <= 0 || topic.RecencyDays <= 0 {
			problems = append(problems, fmt.Sprintf("search.topics.%s windows must be positive", name))
		}
	}

	if config.Pipeline.MaxConcurrency < 0 {
		problems = append(problems, "pipeline.max_concurrency must not be negative")
	}

	if config.Citations.MaxChunkLength <= 0 {
		problems = append(problems, "citations.max_chunk_length must be positive")
	}

	profiles := []PreferenceProfile{config.Preferences.Default}
	for _, user := range config.Preferences.Users {
		if user.Email == "" {
			problems = append(problems, "preferences.users entries require an email")
		}
		profiles = append(profiles, user.PreferenceProfile)
	}
	for _, profile := range profiles {
		for _, raw := range []string{profile.Finance, profile.ClientNews, profile.Communications} {
			if raw == "" {
				continue
			}
			if _, err := core.ParseDetailLevel(raw); err != nil {
				problems = append(problems, err.Error())
			}
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration errors:\n- %s", strings.Join(problems, "\n- "))
	}

	return nil
}

// Duration parses a validated duration string, returning fallback when empty.
func Duration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return d
}

// Convenience getters for commonly used configuration values
func GetApp() App             { return Get().App }
func GetAI() AI               { return Get().AI }
func GetSearch() Search       { return Get().Search }
func GetCRM() CRM             { return Get().CRM }
func GetMacro() Macro         { return Get().Macro }
func GetPipeline() Pipeline   { return Get().Pipeline }
func GetGeminiAPIKey() string { return Get().AI.Gemini.APIKey }
func GetFirmName() string     { return Get().Firm.Name }

// HasValidGoogleSearch returns true if Google Custom Search is properly configured
func HasValidGoogleSearch() bool {
	c := Get().Search.Providers.Google
	return isValidAPIKey(c.APIKey) && isValidAPIKey(c.SearchID)
}

// GetSearchProviderConfig returns configuration for creating a search provider
func GetSearchProviderConfig(providerType string) map[string]string {
	config := Get()

	switch providerType {
	case "serper":
		return map[string]string{
			"api_key":  config.Search.Providers.Serper.APIKey,
			"base_url": config.Search.Providers.Serper.BaseURL,
		}
	case "google":
		return map[string]string{
			"api_key":   config.Search.Providers.Google.APIKey,
			"search_id": config.Search.Providers.Google.SearchID,
		}
	case "serpapi":
		return map[string]string{
			"api_key": config.Search.Providers.SerpAPI.APIKey,
		}
	default:
		return map[string]string{}
	}
}

// isValidAPIKey checks if an API key is valid (not empty and not a placeholder)
func isValidAPIKey(apiKey string) bool {
	switch apiKey {
	case "", "your-api-key", "YOUR_API_KEY", "PLACEHOLDER", "CHANGE_ME":
		return false
	}
	return true
}

// Reset clears the global configuration (useful for testing)
func Reset() {
	globalConfig = nil
	viper.Reset()
}
