// Package factory builds completion clients from configuration.
package factory

import (
	"fmt"
	"strings"
	"time"

	"github.com/a4way/report-agent-workflow/internal/config"
	"github.com/a4way/report-agent-workflow/internal/llm"
	"github.com/a4way/report-agent-workflow/internal/llm/openai"
)

// DefaultOllamaURL is the OpenAI-compatible endpoint of a local Ollama.
const DefaultOllamaURL = "http://localhost:11434/v1"

// Completers holds the two samplers the pipeline uses: the analysis
// completer and the more creative report completer. Both share one limiter.
type Completers struct {
	Analysis llm.Completer
	Report   llm.Completer
	Model    string
}

// Factory creates completion clients based on configuration
type Factory struct{}

// NewFactory creates a new factory
func NewFactory() *Factory {
	return &Factory{}
}

// Create builds the analysis and report completers for cfg.
func (f *Factory) Create(cfg *config.LLMConfig) (*Completers, error) {
	baseURL := cfg.BaseURL
	apiKey := cfg.APIKey

	switch cfg.Provider {
	case "openai":
		if apiKey == "" {
			return nil, fmt.Errorf("api_key is required for the openai provider (set OPENAI_API_KEY)")
		}
	case "ollama":
		if baseURL == "" {
			baseURL = DefaultOllamaURL
		} else if !strings.HasSuffix(strings.TrimRight(baseURL, "/"), "/v1") {
			baseURL = strings.TrimRight(baseURL, "/") + "/v1"
		}
		if apiKey == "" {
			apiKey = "ollama"
		}
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}

	client, err := openai.NewClient(openai.Config{
		APIKey:  apiKey,
		BaseURL: baseURL,
		Timeout: time.Duration(cfg.Timeout * float64(time.Second)),
		Options: llm.Options{
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create %s client: %w", cfg.Provider, err)
	}

	limiter := llm.NewLimiter(cfg.RequestsPerSecond, cfg.Burst)

	return &Completers{
		Analysis: llm.Limited(client, limiter),
		Report:   llm.Limited(client.WithTemperature(cfg.ReportTemperature), limiter),
		Model:    cfg.Model,
	}, nil
}
