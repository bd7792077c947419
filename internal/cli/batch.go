package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/ppiankov/fieldscout/internal/pipeline"
	"github.com/ppiankov/fieldscout/internal/worker"
)

var (
	concurrency  int
	outputDir    string
	batchTimeout time.Duration
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <manifest>",
	Short: "Fill many forms in parallel",
	Long: `Batch reads a manifest listing one fill request file per line
(relative paths resolve against the manifest's directory; # starts a
comment) and fills the forms concurrently. Each request file is JSON:

  {"domain": "medical", "fields": [...], "documents": [...]}

A JSON and a Markdown report are written per request.

Example:
  fieldscout batch forms.txt
  fieldscout batch forms.txt --concurrency 8 --output-dir ./reports`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&concurrency, "concurrency", runtime.NumCPU(), "number of forms filled at once")
	batchCmd.Flags().StringVar(&outputDir, "output-dir", "./fieldscout-reports", "output directory for reports")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 10*time.Minute, "total timeout for batch processing")
	batchCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the report cache")
	batchCmd.Flags().BoolVar(&useMemory, "field-memory", false, "apply remembered field mappings from the configured store")
}

func runBatch(cmd *cobra.Command, args []string) error {
	manifest := args[0]
	ctx, cancel := context.WithTimeout(cmd.Context(), batchTimeout)
	defer cancel()

	env, err := newFillEnv(ctx, useMemory)
	if err != nil {
		return err
	}
	defer env.Close()

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return eris.Wrap(err, "create output directory")
	}

	fmt.Fprintf(os.Stderr, "Filling forms from %s with %d workers\n", manifest, concurrency)

	results, err := worker.NewBatchProcessor(env.filler, concurrency).ProcessFile(ctx, manifest)
	if err != nil {
		return err
	}

	p := newPrinter(cmd.OutOrStdout(), env.cfg.Output.NoColor)
	renderer := pipeline.NewRenderer()
	failures := 0
	for _, result := range results {
		if result.Error != nil {
			failures++
			p.printf("red", "✗ %s: %v\n", result.Name, result.Error)
			continue
		}

		base := filepath.Join(outputDir, reportName(result.Name))
		if err := renderer.Render(result.Report, base+".json", base+".md", ""); err != nil {
			failures++
			p.printf("red", "✗ %s: %v\n", result.Name, err)
			continue
		}

		s := result.Report.Summary
		p.printf("green", "✓ %s", result.Name)
		p.printf("", " (%s, %d/%d filled)\n", result.Report.Domain, s.Filled, s.TotalFields)
	}

	fmt.Fprintf(os.Stderr, "\nTotal: %d  Success: %d  Failures: %d  Output: %s\n",
		len(results), len(results)-failures, failures, outputDir)
	if failures > 0 {
		return eris.Errorf("%d of %d forms failed", failures, len(results))
	}
	return nil
}

// reportName derives an output file stem from a request path
func reportName(path string) string {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	name = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		case ' ':
			return '-'
		}
		return r
	}, name)
	if len(name) > 100 {
		name = name[:100]
	}
	if name == "" {
		name = "report"
	}
	return name
}
