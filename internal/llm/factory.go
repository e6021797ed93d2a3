package llm

import (
	"fmt"
	"os"
)

// Options carries the provider-specific settings NewProvider may use.
type Options struct {
	APIKey   string
	SiteURL  string
	SiteName string
}

// NewProvider creates a new LLM provider based on the given provider type
// and model. Supported provider types: "openai", "openrouter". When
// opts.APIKey is empty the conventional environment variable is read.
func NewProvider(providerType string, model string, opts Options) (Provider, error) {
	switch providerType {
	case "openai":
		apiKey := opts.APIKey
		if apiKey == "" {
			apiKey = os.Getenv("OPENAI_API_KEY")
		}
		if apiKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY environment variable is not set")
		}
		return NewOpenAIProvider(apiKey, model), nil

	case "openrouter":
		apiKey := opts.APIKey
		if apiKey == "" {
			apiKey = os.Getenv("OPENROUTER_API_KEY")
		}
		if apiKey == "" {
			return nil, fmt.Errorf("OPENROUTER_API_KEY environment variable is not set")
		}
		return NewOpenRouterProvider(apiKey, model, opts.SiteURL, opts.SiteName), nil

	default:
		return nil, fmt.Errorf("unsupported provider type: %s", providerType)
	}
}
