package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/macbot/internal/vectordb"
)

var queryCmd = &cobra.Command{
	Use:   "query [question]",
	Short: "Semantically search the indexed material",
	Long:  `Embeds the question and returns the most similar chunks from the vector store, without calling the chat model.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runQuery,
}

func init() {
	queryCmd.Flags().Int("limit", 5, "maximum number of results")
	queryCmd.Flags().String("file", "", "only search chunks of this file")
	queryCmd.Flags().Bool("json", false, "output results as JSON")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	quietLogs()
	ctx := context.Background()
	queryText := args[0]

	limit, _ := cmd.Flags().GetInt("limit")
	fileName, _ := cmd.Flags().GetString("file")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	vec, err := a.embeddings.EmbedQuery(ctx, queryText)
	if err != nil {
		return fmt.Errorf("embedding query: %w", err)
	}

	var filter *vectordb.Filter
	if fileName != "" {
		filter = &vectordb.Filter{FileName: fileName}
	}

	results, err := a.store.Query(ctx, vec, limit, filter)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if jsonOutput {
		return printQueryResultsJSON(results)
	}
	if len(results) == 0 {
		fmt.Println("No results found. Run `macbot seed` or `macbot ingest` first.")
		return nil
	}
	printQueryResultsTable(results)
	return nil
}

type queryResultJSON struct {
	Rank       int     `json:"rank"`
	Similarity float64 `json:"similarity"`
	FileName   string  `json:"file_name"`
	Chunk      int     `json:"chunk"`
	Page       *int    `json:"page,omitempty"`
	Summary    string  `json:"summary"`
}

func printQueryResultsJSON(results []vectordb.Match) error {
	out := make([]queryResultJSON, 0, len(results))
	for i, r := range results {
		out = append(out, queryResultJSON{
			Rank:       i + 1,
			Similarity: float64(r.Score),
			FileName:   r.FileName,
			Chunk:      r.ChunkIndex + 1,
			Page:       r.PageNumber,
			Summary:    truncate(r.Content, 200),
		})
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func printQueryResultsTable(results []vectordb.Match) {
	cyan := color.New(color.FgCyan).SprintFunc()
	fmt.Printf("Found %d results:\n\n", len(results))
	for i, r := range results {
		location := fmt.Sprintf("%s, chunk %d", r.FileName, r.ChunkIndex+1)
		if r.PageNumber != nil {
			location += fmt.Sprintf(", page %d", *r.PageNumber)
		}

		fmt.Printf("  %d. [%.1f%%] %s\n", i+1, r.Score*100, cyan(location))
		fmt.Printf("     %s\n\n", truncate(strings.ReplaceAll(r.Content, "\n", " "), 120))
	}
}

// truncate shortens s to max runes.
func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}
