package llm

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"google.golang.org/genai"

	"advisorbrief/internal/core"
	"advisorbrief/internal/metrics"
)

const (
	// DefaultModel is the Gemini model used when none is configured.
	DefaultModel = "gemini-2.5-flash"
	// DefaultTimeout bounds a single completion call.
	DefaultTimeout = 60 * time.Second

	serviceName = "llm"
)

// Completer turns one fully formatted prompt into one completion.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// CompleterFunc adapts a function to Completer.
type CompleterFunc func(ctx context.Context, prompt string) (string, error)

// Complete calls f.
func (f CompleterFunc) Complete(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// Options tunes the Gemini client.
type Options struct {
	Model       string
	Timeout     time.Duration
	MaxTokens   int32
	Temperature float32
}

// Client is the Gemini-backed Completer.
type Client struct {
	modelName string
	options   Options
	gClient   *genai.Client
}

// NewClient creates a Gemini client. The API key is looked up, in order, from
// GEMINI_API_KEY, GOOGLE_GEMINI_API_KEY, GOOGLE_AI_API_KEY and ai.gemini.api_key.
func NewClient(ctx context.Context, options Options) (*Client, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		if apiKey = os.Getenv("GOOGLE_GEMINI_API_KEY"); apiKey == "" {
			if apiKey = os.Getenv("GOOGLE_AI_API_KEY"); apiKey == "" {
				apiKey = viper.GetString("ai.gemini.api_key")
			}
		}
	}
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required. Set GEMINI_API_KEY environment variable or ai.gemini.api_key in config file")
	}

	if options.Model == "" {
		options.Model = DefaultModel
	}
	if options.Timeout <= 0 {
		options.Timeout = DefaultTimeout
	}

	gClient, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &Client{modelName: options.Model, options: options, gClient: gClient}, nil
}

// Complete sends one user message and returns the model text. Failures are
// reported as core.ExternalError.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", fmt.Errorf("prompt cannot be empty")
	}

	ctx, cancel := context.WithTimeout(ctx, c.options.Timeout)
	defer cancel()

	contents := []*genai.Content{{
		Parts: []*genai.Part{{Text: prompt}},
		Role:  "user",
	}}

	var config *genai.GenerateContentConfig
	if c.options.MaxTokens > 0 || c.options.Temperature > 0 {
		config = &genai.GenerateContentConfig{}
		if c.options.MaxTokens > 0 {
			config.MaxOutputTokens = c.options.MaxTokens
		}
		if c.options.Temperature > 0 {
			temp := c.options.Temperature
			config.Temperature = &temp
		}
	}

	resp, err := c.gClient.Models.GenerateContent(ctx, c.modelName, contents, config)
	if err == nil && resp.Text() == "" {
		err = fmt.Errorf("empty response from model")
	}
	metrics.RecordExternal(serviceName, err)
	if err != nil {
		return "", core.External(serviceName, c.modelName, err)
	}
	return resp.Text(), nil
}

// ModelName returns the configured model.
func (c *Client) ModelName() string {
	return c.modelName
}
