package cmd

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/macbot/internal/config"
)

var (
	cfgFile string
	verbose bool
)

// envFiles are loaded in order before any command runs. Variables already
// set in the environment are never overwritten.
var envFiles = []string{".env.local", ".env"}

var rootCmd = &cobra.Command{
	Use:   "macbot",
	Short: "A study assistant for Shakespeare's Macbeth",
	Long: `Macbot answers questions about Macbeth, grounding its replies in
passages retrieved from a vector index of the play and of any notes,
essays or editions you upload.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadEnvFiles()
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", config.DefaultPath, "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

func loadEnvFiles() error {
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("loading %s: %w", f, err)
		}
	}
	return nil
}
