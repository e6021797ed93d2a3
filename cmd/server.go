package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/macbot/internal/api"
	"github.com/ziadkadry99/macbot/internal/server"
)

var (
	serverPort     int
	auditRetention time.Duration
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the Macbot HTTP server",
	Long:  `Starts the Macbot server: file upload, document management, seeding and the streaming chat endpoint.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("port") {
			cfg.Server.Port = serverPort
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		if auditRetention > 0 {
			n, err := a.audit.DeleteBefore(ctx, time.Now().Add(-auditRetention))
			if err != nil {
				return fmt.Errorf("pruning audit trail: %w", err)
			}
			if n > 0 {
				fmt.Fprintf(os.Stderr, "Pruned %d audit event(s) older than %s\n", n, auditRetention)
			}
		}

		ingestSvc, err := a.ingestService()
		if err != nil {
			return err
		}
		orch, err := a.chatOrchestrator()
		if err != nil {
			return err
		}

		chatTimeout := time.Duration(cfg.Server.ChatTimeoutSeconds) * time.Second
		handler := api.New(api.Config{
			Ingest:         ingestSvc,
			Chat:           orch,
			Audit:          a.audit,
			AdminKey:       cfg.Secrets.AdminKey,
			MaxUploadBytes: int64(cfg.Server.MaxUploadMB) << 20,
			RequestTimeout: time.Duration(cfg.Server.RequestTimeoutSeconds) * time.Second,
			ChatTimeout:    chatTimeout,
		})

		srv := server.New(server.Config{
			Port:         cfg.Server.Port,
			AllowAll:     cfg.Server.AllowAllOrigins,
			WriteTimeout: chatTimeout + 30*time.Second,
		}, handler)

		// Graceful shutdown.
		go func() {
			<-ctx.Done()
			fmt.Fprintln(os.Stderr, "\nShutting down server...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()

		fmt.Fprintf(os.Stderr, "macbot server %s starting on port %d\n", Version, cfg.Server.Port)
		fmt.Fprintf(os.Stderr, "  Vector store: %s (index %q, %d dims)\n", a.store.Name(), cfg.VectorStore.Index, a.store.Dimension())
		fmt.Fprintf(os.Stderr, "  Chat: %s %s\n", cfg.Chat.Provider, cfg.Chat.Model)
		fmt.Fprintf(os.Stderr, "  Database: %s\n", a.db.Path())
		if cfg.Secrets.AdminKey == "" {
			fmt.Fprintln(os.Stderr, "  Warning: ADMIN_API_KEY is not set; /api/seed and the audit trail will reject every request")
		}

		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	},
}

func init() {
	serverCmd.Flags().IntVar(&serverPort, "port", 3000, "port to listen on (overrides server.port)")
	serverCmd.Flags().DurationVar(&auditRetention, "audit-retention", 0, "delete audit events older than this at startup (0 keeps everything)")
	rootCmd.AddCommand(serverCmd)
}
