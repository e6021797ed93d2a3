package cmd

import (
	"context"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"time"

	"github.com/ziadkadry99/macbot/internal/audit"
	"github.com/ziadkadry99/macbot/internal/chat"
	"github.com/ziadkadry99/macbot/internal/chunker"
	"github.com/ziadkadry99/macbot/internal/config"
	"github.com/ziadkadry99/macbot/internal/db"
	"github.com/ziadkadry99/macbot/internal/embeddings"
	"github.com/ziadkadry99/macbot/internal/ingest"
	"github.com/ziadkadry99/macbot/internal/llm"
	"github.com/ziadkadry99/macbot/internal/retrieval"
	"github.com/ziadkadry99/macbot/internal/vectordb"
)

// app holds the components shared by the server, MCP and CLI commands.
type app struct {
	cfg        *config.Config
	embeddings *embeddings.Client
	store      vectordb.Store
	db         *db.DB
	audit      *audit.Store
	closers    []func() error
}

// newApp opens the embedder, vector store and audit database, and
// creates the index if it does not exist yet.
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg}

	embedder, err := createEmbedderFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}
	a.embeddings = embeddings.NewClient(embedder, cfg.Embedding.Dimensions, cfg.Embedding.BatchSize)

	a.store, err = a.createStore()
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("creating vector store: %w", err)
	}
	if err := a.store.EnsureIndex(ctx); err != nil {
		a.Close()
		return nil, fmt.Errorf("ensuring %s index %q: %w", a.store.Name(), cfg.VectorStore.Index, err)
	}

	a.db, err = db.Open(filepath.Join(cfg.Server.DataDir, "macbot.db"))
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("opening database: %w", err)
	}
	a.closers = append(a.closers, a.db.Close)
	a.audit = audit.NewStore(a.db)

	return a, nil
}

// Close releases everything newApp opened, in reverse order.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			log.Printf("cmd: close: %v", err)
		}
	}
	a.closers = nil
}

func (a *app) createStore() (vectordb.Store, error) {
	cfg := a.cfg
	vs := cfg.VectorStore
	dims := cfg.Embedding.Dimensions

	switch vs.Provider {
	case config.StorePinecone:
		if cfg.Secrets.PineconeKey == "" {
			return nil, fmt.Errorf("PINECONE_API_KEY environment variable is required for the pinecone store")
		}
		store, err := vectordb.NewPineconeStore(vectordb.PineconeConfig{
			APIKey:      cfg.Secrets.PineconeKey,
			Index:       vs.Index,
			Dimension:   dims,
			Metric:      vs.Metric,
			Cloud:       vs.Cloud,
			Region:      vs.Region,
			Namespace:   vs.Namespace,
			SettleDelay: time.Duration(vs.SettleSeconds) * time.Second,
			UpsertBatch: vs.UpsertBatch,
			DeleteBatch: vs.DeleteBatch,
			DeleteCap:   vs.DeleteCap,
		})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, store.Close)
		return store, nil

	case config.StoreChromem:
		dir := vs.ChromemDir
		if dir == "" {
			dir = filepath.Join(cfg.Server.DataDir, "vectors")
		}
		return vectordb.NewChromemStore(vs.Index, dims, dir, a.embeddings.ChromemFunc())

	case config.StorePGVector:
		if cfg.Secrets.PostgresDSN == "" {
			return nil, fmt.Errorf("MACBOT_POSTGRES_DSN environment variable is required for the pgvector store")
		}
		store, err := vectordb.NewPGVectorStore(cfg.Secrets.PostgresDSN, vs.Index, dims)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, store.Close)
		return store, nil

	default:
		return nil, fmt.Errorf("unknown vector store %q", vs.Provider)
	}
}

func (a *app) ingestService() (*ingest.Service, error) {
	c, err := chunker.New(a.cfg.Chunking.Size, a.cfg.Chunking.Overlap, a.cfg.Chunking.WordBoundaries)
	if err != nil {
		return nil, fmt.Errorf("creating chunker: %w", err)
	}
	return ingest.New(ingest.Config{
		Embeddings: a.embeddings,
		Store:      a.store,
		Chunker:    c,
		Audit:      a.audit,
	}), nil
}

func (a *app) retriever() *retrieval.Retriever {
	return retrieval.New(a.embeddings, a.store)
}

func (a *app) chatOrchestrator() (*chat.Orchestrator, error) {
	provider, err := createLLMProviderFromConfig(a.cfg)
	if err != nil {
		return nil, fmt.Errorf("creating LLM provider: %w", err)
	}
	cc := a.cfg.Chat
	return chat.New(chat.Config{
		Provider:          provider,
		Retriever:         a.retriever(),
		Model:             cc.Model,
		Temperature:       cc.Temperature,
		MaxTokens:         cc.MaxTokens,
		TopK:              cc.TopK,
		Persona:           cc.Persona,
		RetrieveByDefault: cc.RetrieveByDefault,
	}), nil
}

// createEmbedderFromConfig creates an embeddings.Embedder based on config.
// OpenRouter serves the OpenAI embeddings API under its own base URL.
func createEmbedderFromConfig(cfg *config.Config) (embeddings.Embedder, error) {
	ec := cfg.Embedding
	apiKey := cfg.APIKey(ec.Provider)
	if apiKey == "" {
		return nil, fmt.Errorf("%s environment variable is required for %s embeddings", config.APIKeyEnvVar(ec.Provider), ec.Provider)
	}

	var e embeddings.Embedder = embeddings.NewOpenAIEmbedder(apiKey, embeddings.OpenAIModel(ec.Model), ec.Dimensions, embeddingBaseURL(ec))
	return embeddings.NewRateLimitedEmbedder(e, ec.RequestsPerMinute), nil
}

// embeddingBaseURL returns the configured base URL, falling back to the
// OpenRouter endpoint for the openrouter provider.
func embeddingBaseURL(ec config.EmbeddingConfig) string {
	if ec.BaseURL == "" && ec.Provider == config.ProviderOpenRouter {
		return llm.OpenRouterBaseURL
	}
	return ec.BaseURL
}

// createLLMProviderFromConfig creates an LLM provider based on config settings.
func createLLMProviderFromConfig(cfg *config.Config) (llm.Provider, error) {
	cc := cfg.Chat
	p, err := llm.NewProvider(string(cc.Provider), cc.Model, llm.Options{
		APIKey:   cfg.APIKey(cc.Provider),
		SiteURL:  cc.SiteURL,
		SiteName: cc.SiteName,
	})
	if err != nil {
		return nil, err
	}
	return llm.NewRateLimitedProvider(p, cc.RequestsPerMinute), nil
}

// loadConfig loads and validates the config, providing a user-friendly error.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `macbot init` to create a config file", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", cfgFile, err)
	}
	return cfg, nil
}

// quietLogs silences component logging for CLI commands unless -v.
func quietLogs() {
	if !verbose {
		log.SetOutput(io.Discard)
	}
}
