package llm

import (
	"net/http"

	openai "github.com/sashabaranov/go-openai"
)

// OpenRouterBaseURL serves both the chat and the embeddings API.
const OpenRouterBaseURL = "https://openrouter.ai/api/v1"

// NewOpenRouterProvider creates a provider for the OpenRouter API
// (OpenAI-compatible). siteURL and siteName are sent as the attribution
// headers OpenRouter uses for its rankings; either may be empty.
func NewOpenRouterProvider(apiKey, model, siteURL, siteName string) *OpenAIProvider {
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = OpenRouterBaseURL

	headers := http.Header{}
	if siteURL != "" {
		headers.Set("HTTP-Referer", siteURL)
	}
	if siteName != "" {
		headers.Set("X-Title", siteName)
	}
	if len(headers) > 0 {
		cfg.HTTPClient = &http.Client{Transport: &headerTransport{base: http.DefaultTransport, headers: headers}}
	}
	return newCompatibleProvider("openrouter", cfg, model)
}

// headerTransport adds fixed headers to every request.
type headerTransport struct {
	base    http.RoundTripper
	headers http.Header
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	for k, vs := range t.headers {
		for _, v := range vs {
			req.Header.Set(k, v)
		}
	}
	return t.base.RoundTrip(req)
}
