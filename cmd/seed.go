package cmd

import (
	"context"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/macbot/internal/audit"
	"github.com/ziadkadry99/macbot/internal/ingest"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load the built-in Macbeth passages into the vector store",
	Long:  `Embeds and upserts the built-in passages from Macbeth. Passage ids are fixed, so seeding again overwrites rather than duplicates.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withIngest(func(ctx context.Context, svc *ingest.Service) error {
			n, err := svc.Seed(ctx, audit.ActorCLI)
			if err != nil {
				return err
			}
			color.Green("Successfully seeded the vector store with %d documents", n)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
}
