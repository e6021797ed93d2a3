package cmd

import (
	"github.com/spf13/cobra"
	"github.com/ziadkadry99/macbot/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize macbot configuration with an interactive wizard",
	Long:  `Runs an interactive wizard to choose the chat provider, vector store and chunking settings, and writes a .macbot.yml file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := config.RunWizard()
		return err
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
