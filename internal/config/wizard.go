package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/manifoldco/promptui"
)

// DefaultPath is the config file looked up by every command.
const DefaultPath = ".macbot.yml"

// RunWizard runs an interactive configuration wizard and returns the
// resulting Config. It also saves the config to .macbot.yml.
func RunWizard() (*Config, error) {
	fmt.Println("Welcome to macbot! Let's configure your study assistant.")
	fmt.Println()

	cfg := DefaultConfig()

	// 1. Chat provider.
	chatPrompt := promptui.Select{
		Label: "Select chat provider",
		Items: []string{"openrouter", "openai"},
	}
	_, chatProvider, err := chatPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("chat provider selection: %w", err)
	}
	cfg.Chat.Provider = ProviderType(chatProvider)
	if cfg.Chat.Provider == ProviderOpenAI {
		cfg.Chat.Model = "gpt-4o-mini"
	}

	modelPrompt := promptui.Prompt{
		Label:   "Chat model",
		Default: cfg.Chat.Model,
	}
	cfg.Chat.Model, err = modelPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("chat model: %w", err)
	}

	// 2. Vector store.
	storePrompt := promptui.Select{
		Label: "Select vector store",
		Items: []string{"pinecone", "chromem", "pgvector"},
	}
	_, store, err := storePrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("vector store selection: %w", err)
	}
	cfg.VectorStore.Provider = StoreType(store)

	indexPrompt := promptui.Prompt{
		Label:   "Index name",
		Default: cfg.VectorStore.Index,
	}
	cfg.VectorStore.Index, err = indexPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("index name: %w", err)
	}
	if cfg.VectorStore.Provider == StoreChromem {
		cfg.VectorStore.ChromemDir = cfg.Server.DataDir + "/vectors"
	}

	// 3. Chunking.
	sizePrompt := promptui.Prompt{
		Label:    "Chunk size (characters)",
		Default:  strconv.Itoa(cfg.Chunking.Size),
		Validate: positiveInt,
	}
	sizeStr, err := sizePrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("chunk size: %w", err)
	}
	cfg.Chunking.Size, _ = strconv.Atoi(strings.TrimSpace(sizeStr))

	// Check for API keys.
	for _, envVar := range requiredEnv(cfg) {
		if os.Getenv(envVar) == "" {
			fmt.Printf("\nNote: Set %s in your environment (or .env.local) before running macbot server.\n", envVar)
		}
	}

	if err := cfg.Save(DefaultPath); err != nil {
		return nil, fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("\nConfiguration saved to %s\n", DefaultPath)
	return cfg, nil
}

// requiredEnv lists the environment variables the given config depends on.
func requiredEnv(cfg *Config) []string {
	vars := []string{APIKeyEnvVar(cfg.Embedding.Provider)}
	if v := APIKeyEnvVar(cfg.Chat.Provider); v != vars[0] {
		vars = append(vars, v)
	}
	switch cfg.VectorStore.Provider {
	case StorePinecone:
		vars = append(vars, "PINECONE_API_KEY")
	case StorePGVector:
		vars = append(vars, "MACBOT_POSTGRES_DSN")
	}
	return append(vars, "ADMIN_API_KEY")
}

func positiveInt(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return fmt.Errorf("must be a positive integer")
	}
	return nil
}
