package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/macbot/internal/audit"
	"github.com/ziadkadry99/macbot/internal/ingest"
)

var documentsCmd = &cobra.Command{
	Use:     "documents",
	Aliases: []string{"docs"},
	Short:   "List or delete indexed documents",
}

var documentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the files found in a sample of the index",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		jsonOutput, _ := cmd.Flags().GetBool("json")

		return withIngest(func(ctx context.Context, svc *ingest.Service) error {
			docs, err := svc.ListDocuments(ctx, limit)
			if err != nil {
				return err
			}
			if jsonOutput {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(docs)
			}
			if len(docs) == 0 {
				fmt.Println("No documents found. Run `macbot seed` or `macbot ingest` first.")
				return nil
			}
			bold := color.New(color.Bold).SprintFunc()
			for _, d := range docs {
				uploaded := "unknown"
				if d.UploadedAt != nil {
					uploaded = d.UploadedAt.Local().Format("2006-01-02 15:04")
				}
				fmt.Printf("  %s  %d chunk(s)  uploaded %s\n", bold(d.FileName), d.Chunks, uploaded)
			}
			return nil
		})
	},
}

var documentsDeleteCmd = &cobra.Command{
	Use:   "delete [file name]",
	Short: "Delete every chunk of a file from the index",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withIngest(func(ctx context.Context, svc *ingest.Service) error {
			n, err := svc.DeleteDocument(ctx, args[0], audit.ActorCLI)
			if err != nil {
				return err
			}
			if n == 0 {
				color.Yellow("No chunks found for %s", args[0])
				return nil
			}
			color.Green("Deleted %d chunk(s) of %s", n, args[0])
			return nil
		})
	},
}

func init() {
	documentsListCmd.Flags().Int("limit", ingest.DefaultListLimit, "number of records to sample")
	documentsListCmd.Flags().Bool("json", false, "output as JSON")
	documentsCmd.AddCommand(documentsListCmd, documentsDeleteCmd)
	rootCmd.AddCommand(documentsCmd)
}

// withIngest builds the app and an ingest service for a one-shot command.
func withIngest(fn func(ctx context.Context, svc *ingest.Service) error) error {
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
	return fn(ctx, svc)
}
