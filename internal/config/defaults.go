package config

// DefaultPersona is the system prompt used when a conversation arrives
// without one.
const DefaultPersona = "You are Macbot, an AI assistant specialized in helping students understand " +
	"Shakespeare's Macbeth. You can explain themes, characters, plot points, literary devices, " +
	"and historical context. Your responses should be educational, clear, and engaging. " +
	"When appropriate, cite specific acts, scenes, and lines from the play. " +
	"If you don't know an answer, admit that rather than making up information. " +
	"Always maintain an educational and supportive tone."

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:                  3000,
			RequestTimeoutSeconds: 60,
			ChatTimeoutSeconds:    120,
			MaxUploadMB:           20,
			DataDir:               ".macbot",
		},
		Embedding: EmbeddingConfig{
			Provider:   ProviderOpenAI,
			Model:      "text-embedding-3-small",
			Dimensions: 768,
			BatchSize:  100,
		},
		Chat: ChatConfig{
			Provider:          ProviderOpenRouter,
			Model:             "x-ai/grok-3-mini-beta",
			Temperature:       0.7,
			MaxTokens:         1000,
			TopK:              3,
			RetrieveByDefault: false,
			Persona:           DefaultPersona,
			SiteName:          "Macbot",
		},
		VectorStore: VectorStoreConfig{
			Provider:      StorePinecone,
			Index:         "macbot",
			Metric:        "cosine",
			Cloud:         "aws",
			Region:        "us-east-1",
			SettleSeconds: 60,
			UpsertBatch:   100,
			DeleteBatch:   1000,
			DeleteCap:     10000,
		},
		Chunking: ChunkingConfig{
			Size:    1000,
			Overlap: 200,
		},
	}
}
