package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/macbot/internal/chat"
	"github.com/ziadkadry99/macbot/internal/llm"
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask Macbot a question and stream the answer",
	Args:  cobra.ExactArgs(1),
	RunE:  runAsk,
}

func init() {
	askCmd.Flags().Bool("no-context", false, "answer without retrieving from the index")
	rootCmd.AddCommand(askCmd)
}

// stdoutSink prints deltas as they arrive.
type stdoutSink struct{}

func (stdoutSink) Open() error { return nil }

func (stdoutSink) Write(delta string) error {
	_, err := fmt.Fprint(os.Stdout, delta)
	return err
}

func runAsk(cmd *cobra.Command, args []string) error {
	quietLogs()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	noContext, _ := cmd.Flags().GetBool("no-context")
	useContext := !noContext

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	orch, err := a.chatOrchestrator()
	if err != nil {
		return err
	}

	err = orch.Run(ctx, chat.Request{
		Messages:   []llm.Message{{Role: llm.RoleUser, Content: args[0]}},
		UseContext: &useContext,
	}, stdoutSink{})
	fmt.Println()
	return err
}
