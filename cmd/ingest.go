package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/macbot/internal/audit"
	"github.com/ziadkadry99/macbot/internal/document"
	"github.com/ziadkadry99/macbot/internal/extract"
	"github.com/ziadkadry99/macbot/internal/ingest"
	"github.com/ziadkadry99/macbot/internal/progress"
	"github.com/ziadkadry99/macbot/internal/walker"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [path...]",
	Short: "Index files or directories into the vector store",
	Long: fmt.Sprintf(`Extracts, chunks, embeds and upserts every supported file (%s)
given on the command line. Directories are walked recursively.

With --title the files are indexed as admin documents carrying that
title, source and type on every chunk.`, strings.Join(extract.Extensions(), ", ")),
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringSlice("include", nil, "glob patterns of files to include when walking directories")
	ingestCmd.Flags().StringSlice("exclude", nil, "glob patterns of files to exclude when walking directories")
	ingestCmd.Flags().Bool("dedupe", true, "skip files whose content was already seen in this run")
	ingestCmd.Flags().String("title", "", "document title (marks the files as admin documents)")
	ingestCmd.Flags().String("source", "", "document source, used with --title")
	ingestCmd.Flags().String("type", "", "document type, used with --title")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	quietLogs()
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	include, _ := cmd.Flags().GetStringSlice("include")
	exclude, _ := cmd.Flags().GetStringSlice("exclude")
	dedupe, _ := cmd.Flags().GetBool("dedupe")
	title, _ := cmd.Flags().GetString("title")
	source, _ := cmd.Flags().GetString("source")
	docType, _ := cmd.Flags().GetString("type")

	var meta *document.Meta
	if title != "" {
		m := document.Meta{Title: title, Source: source, Type: docType}.WithDefaults()
		meta = &m
	}

	files, err := collectFiles(args, walker.WalkerConfig{Include: include, Exclude: exclude})
	if err != nil {
		return err
	}
	if dedupe {
		files = walker.Dedupe(files)
	}
	if len(files) == 0 {
		fmt.Println("No supported files found.")
		return nil
	}

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

	ok := color.New(color.FgGreen).SprintFunc()
	bad := color.New(color.FgRed).SprintFunc()

	reporter := progress.NewReporter("Ingesting")
	reporter.Start(len(files))

	var results []ingest.Result
	var failures []string
	for i, f := range files {
		reporter.Update(i, f.RelPath)
		data, err := os.ReadFile(f.Path)
		if err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", f.RelPath, err))
			continue
		}
		res, err := svc.IngestFile(ctx, ingest.Upload{
			FileName: filepath.Base(f.Path),
			Data:     data,
			Meta:     meta,
			Actor:    audit.ActorCLI,
		})
		if err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", f.RelPath, err))
			continue
		}
		results = append(results, *res)
	}
	reporter.Update(len(files), "done")
	reporter.Finish()

	chunks := 0
	for _, r := range results {
		chunks += r.Chunks
		fmt.Printf("  %s %s (%d chunks, id %s)\n", ok("✓"), r.FileName, r.Chunks, r.FileID)
	}
	for _, f := range failures {
		fmt.Printf("  %s %s\n", bad("✗"), f)
	}
	fmt.Printf("\n%d file(s) processed successfully, %d chunk(s) indexed.\n", len(results), chunks)

	if len(results) == 0 {
		return fmt.Errorf("no files were ingested")
	}
	return nil
}

// collectFiles expands args into files. Directories are walked with wc;
// explicit files are taken as given.
func collectFiles(args []string, wc walker.WalkerConfig) ([]walker.FileInfo, error) {
	var files []walker.FileInfo
	for _, arg := range args {
		st, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if st.IsDir() {
			wc.RootDir = arg
			found, err := walker.Walk(wc)
			if err != nil {
				return nil, err
			}
			files = append(files, found...)
			continue
		}
		if !extract.Supported(arg) {
			return nil, fmt.Errorf("%s: unsupported file type %q", arg, filepath.Ext(arg))
		}
		f, err := walker.Describe(arg)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, nil
}
