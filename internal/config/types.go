package config

// ProviderType identifies an OpenAI-compatible model provider.
type ProviderType string

const (
	ProviderOpenAI     ProviderType = "openai"
	ProviderOpenRouter ProviderType = "openrouter"
)

// StoreType identifies a vector store backend.
type StoreType string

const (
	StorePinecone StoreType = "pinecone"
	StoreChromem  StoreType = "chromem"
	StorePGVector StoreType = "pgvector"
)

// Config is the top-level macbot configuration, corresponding to .macbot.yml.
type Config struct {
	Server      ServerConfig      `yaml:"server" koanf:"server"`
	Embedding   EmbeddingConfig   `yaml:"embedding" koanf:"embedding"`
	Chat        ChatConfig        `yaml:"chat" koanf:"chat"`
	VectorStore VectorStoreConfig `yaml:"vector_store" koanf:"vector_store"`
	Chunking    ChunkingConfig    `yaml:"chunking" koanf:"chunking"`

	// Secrets are read from the environment only and never written to disk.
	Secrets Secrets `yaml:"-" koanf:"-"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port                  int    `yaml:"port" koanf:"port"`
	AllowAllOrigins       bool   `yaml:"allow_all_origins" koanf:"allow_all_origins"`
	RequestTimeoutSeconds int    `yaml:"request_timeout_seconds" koanf:"request_timeout_seconds"`
	ChatTimeoutSeconds    int    `yaml:"chat_timeout_seconds" koanf:"chat_timeout_seconds"`
	MaxUploadMB           int    `yaml:"max_upload_mb" koanf:"max_upload_mb"`
	DataDir               string `yaml:"data_dir" koanf:"data_dir"`
}

// EmbeddingConfig controls how text is turned into vectors.
type EmbeddingConfig struct {
	Provider          ProviderType `yaml:"provider" koanf:"provider"`
	Model             string       `yaml:"model" koanf:"model"`
	Dimensions        int          `yaml:"dimensions" koanf:"dimensions"`
	BatchSize         int          `yaml:"batch_size" koanf:"batch_size"`
	BaseURL           string       `yaml:"base_url,omitempty" koanf:"base_url"`
	RequestsPerMinute int          `yaml:"requests_per_minute" koanf:"requests_per_minute"`
}

// ChatConfig controls the chat-completion provider and prompt.
type ChatConfig struct {
	Provider          ProviderType `yaml:"provider" koanf:"provider"`
	Model             string       `yaml:"model" koanf:"model"`
	Temperature       float64      `yaml:"temperature" koanf:"temperature"`
	MaxTokens         int          `yaml:"max_tokens" koanf:"max_tokens"`
	TopK              int          `yaml:"top_k" koanf:"top_k"`
	RetrieveByDefault bool         `yaml:"retrieve_by_default" koanf:"retrieve_by_default"`
	Persona           string       `yaml:"persona" koanf:"persona"`
	SiteURL           string       `yaml:"site_url,omitempty" koanf:"site_url"`
	SiteName          string       `yaml:"site_name,omitempty" koanf:"site_name"`
	RequestsPerMinute int          `yaml:"requests_per_minute" koanf:"requests_per_minute"`
}

// VectorStoreConfig selects and tunes the vector index backend.
type VectorStoreConfig struct {
	Provider      StoreType `yaml:"provider" koanf:"provider"`
	Index         string    `yaml:"index" koanf:"index"`
	Metric        string    `yaml:"metric" koanf:"metric"`
	Cloud         string    `yaml:"cloud" koanf:"cloud"`
	Region        string    `yaml:"region" koanf:"region"`
	Namespace     string    `yaml:"namespace,omitempty" koanf:"namespace"`
	SettleSeconds int       `yaml:"settle_seconds" koanf:"settle_seconds"`
	UpsertBatch   int       `yaml:"upsert_batch" koanf:"upsert_batch"`
	DeleteBatch   int       `yaml:"delete_batch" koanf:"delete_batch"`
	DeleteCap     int       `yaml:"delete_cap" koanf:"delete_cap"`
	ChromemDir    string    `yaml:"chromem_dir,omitempty" koanf:"chromem_dir"`
}

// ChunkingConfig controls the document chunker.
type ChunkingConfig struct {
	Size           int  `yaml:"size" koanf:"size"`
	Overlap        int  `yaml:"overlap" koanf:"overlap"`
	WordBoundaries bool `yaml:"word_boundaries" koanf:"word_boundaries"`
}

// Secrets holds credentials sourced from the environment.
type Secrets struct {
	OpenAIKey     string
	OpenRouterKey string
	PineconeKey   string
	AdminKey      string
	PostgresDSN   string
}
