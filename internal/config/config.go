package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

const envPrefix = "MACBOT_"

// Load reads configuration from the given YAML file, overlays environment
// variable overrides (MACBOT_SECTION__KEY) and finally reads secrets.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	cfg := DefaultConfig()

	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	// MACBOT_CHAT__TOP_K -> chat.top_k
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, envPrefix))
		return strings.ReplaceAll(key, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	cfg.LoadSecrets()
	return cfg, nil
}

// LoadSecrets fills Secrets from the process environment. PINECONE_INDEX,
// when set, takes precedence over vector_store.index.
func (c *Config) LoadSecrets() {
	c.Secrets = Secrets{
		OpenAIKey:     os.Getenv("OPENAI_API_KEY"),
		OpenRouterKey: os.Getenv("OPENROUTER_API_KEY"),
		PineconeKey:   os.Getenv("PINECONE_API_KEY"),
		AdminKey:      os.Getenv("ADMIN_API_KEY"),
		PostgresDSN:   os.Getenv("MACBOT_POSTGRES_DSN"),
	}
	if idx := os.Getenv("PINECONE_INDEX"); idx != "" {
		c.VectorStore.Index = idx
	}
}

// APIKey returns the configured secret for the given provider.
func (c *Config) APIKey(provider ProviderType) string {
	switch provider {
	case ProviderOpenAI:
		return c.Secrets.OpenAIKey
	case ProviderOpenRouter:
		return c.Secrets.OpenRouterKey
	default:
		return ""
	}
}

// Save writes the configuration to the given YAML file path.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

var validProviders = map[ProviderType]bool{
	ProviderOpenAI:     true,
	ProviderOpenRouter: true,
}

var validStores = map[StoreType]bool{
	StorePinecone: true,
	StoreChromem:  true,
	StorePGVector: true,
}

var validMetrics = map[string]bool{
	"cosine":     true,
	"euclidean":  true,
	"dotproduct": true,
}

// Validate checks that the configuration contains valid values.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("server.max_upload_mb must be positive")
	}

	if !validProviders[c.Embedding.Provider] {
		return fmt.Errorf("invalid embedding.provider %q: must be one of openai, openrouter", c.Embedding.Provider)
	}
	if c.Embedding.Model == "" {
		return fmt.Errorf("embedding.model is required")
	}
	if c.Embedding.Dimensions <= 0 {
		return fmt.Errorf("embedding.dimensions must be positive")
	}
	if c.Embedding.BatchSize <= 0 {
		return fmt.Errorf("embedding.batch_size must be positive")
	}

	if !validProviders[c.Chat.Provider] {
		return fmt.Errorf("invalid chat.provider %q: must be one of openai, openrouter", c.Chat.Provider)
	}
	if c.Chat.Model == "" {
		return fmt.Errorf("chat.model is required")
	}
	if c.Chat.TopK <= 0 {
		return fmt.Errorf("chat.top_k must be positive")
	}
	if c.Chat.MaxTokens < 0 {
		return fmt.Errorf("chat.max_tokens must be non-negative")
	}

	if !validStores[c.VectorStore.Provider] {
		return fmt.Errorf("invalid vector_store.provider %q: must be one of pinecone, chromem, pgvector", c.VectorStore.Provider)
	}
	if c.VectorStore.Index == "" {
		return fmt.Errorf("vector_store.index is required")
	}
	if !validMetrics[c.VectorStore.Metric] {
		return fmt.Errorf("invalid vector_store.metric %q", c.VectorStore.Metric)
	}
	if c.VectorStore.UpsertBatch <= 0 || c.VectorStore.DeleteBatch <= 0 || c.VectorStore.DeleteCap <= 0 {
		return fmt.Errorf("vector_store batch sizes must be positive")
	}
	if c.VectorStore.SettleSeconds < 0 {
		return fmt.Errorf("vector_store.settle_seconds must be non-negative")
	}

	if c.Chunking.Size <= 0 {
		return fmt.Errorf("chunking.size must be positive")
	}
	if c.Chunking.Overlap < 0 {
		return fmt.Errorf("chunking.overlap must be non-negative")
	}

	return nil
}

// APIKeyEnvVar returns the environment variable that holds the API key
// of the given provider.
func APIKeyEnvVar(provider ProviderType) string {
	switch provider {
	case ProviderOpenAI:
		return "OPENAI_API_KEY"
	case ProviderOpenRouter:
		return "OPENROUTER_API_KEY"
	default:
		return ""
	}
}
