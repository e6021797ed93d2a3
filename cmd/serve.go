package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	mcpserver "github.com/ziadkadry99/macbot/internal/mcp"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server for AI agent integration",
	Long:  `Starts a Model Context Protocol (MCP) server on stdio, exposing Macbeth search, document listing and question answering to AI agents.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Stdout carries the protocol; everything else goes to stderr.
		quietLogs()
		ctx := context.Background()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		a, err := newApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		svc, err := a.ingestService()
		if err != nil {
			return err
		}
		deps := mcpserver.Deps{
			Embedder:  a.embeddings,
			Store:     a.store,
			Documents: svc,
		}
		// Search keeps working without a chat key; only ask_macbot needs one.
		if orch, err := a.chatOrchestrator(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: ask_macbot disabled: %v\n", err)
		} else {
			deps.Chat = orch
		}

		mcpserver.Version = Version

		fmt.Fprintf(os.Stderr, "macbot MCP server started on stdio (store=%s, index=%s)\n", a.store.Name(), cfg.VectorStore.Index)

		srv := mcpserver.NewServer(deps)
		return srv.Serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
