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

	"github.com/ppiankov/dimiscan/internal/pipeline"
	"github.com/ppiankov/dimiscan/internal/worker"
)

var (
	batchOpts    scanFlags
	concurrency  int
	outputDir    string
	batchTimeout time.Duration
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Scan many documents listed in a file",
	Long: `Batch scans every document listed in the input file (one path or URL per
line, # starts a comment) and writes one JSON report per document.

The dictionary, segmenter and classifier are loaded once and shared.

Example:
  dimiscan batch reden.txt --dict dimi.xlsx
  dimiscan batch reden.txt --dict dimi.xlsx --concurrency 8 --output-dir ./berichte
  dimiscan batch urls.txt --dict dimi.yaml --classify --timeout 30m`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchOpts.register(batchCmd)
	batchCmd.Flags().IntVar(&concurrency, "concurrency", runtime.NumCPU(), "documents scanned in parallel")
	batchCmd.Flags().StringVar(&outputDir, "output-dir", "./dimiscan-reports", "output directory for reports")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 30*time.Minute, "total timeout for batch processing")
}

func runBatch(cmd *cobra.Command, args []string) error {
	file := args[0]
	ctx, cancel := context.WithTimeout(cmd.Context(), batchTimeout)
	defer cancel()

	batchOpts.apply(cmd, cfg)

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  dimiscan Batch Processing\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Input file:   %s\n", file)
	fmt.Fprintf(os.Stderr, "  Dictionary:   %s\n", cfg.Dictionary.Path)
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", concurrency)
	fmt.Fprintf(os.Stderr, "  Output dir:   %s\n", outputDir)
	fmt.Fprintf(os.Stderr, "  Timeout:      %v\n", batchTimeout)
	if cfg.Classification.Enabled {
		fmt.Fprintf(os.Stderr, "  Classifier:   %s/%s\n", cfg.Classification.Provider, cfg.Classification.Model)
	}
	fmt.Fprintf(os.Stderr, "\n")

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return eris.Wrap(err, "create output directory")
	}

	rt, err := newScanRuntime(cfg, batchOpts.meta)
	if err != nil {
		return err
	}
	defer rt.finish()

	processor := worker.NewBatchProcessor[*pipeline.Report](rt.scanner, concurrency)
	results, err := processor.ProcessFile(ctx, file)
	if err != nil {
		return eris.Wrap(err, "process file")
	}

	renderer := pipeline.NewRenderer(os.Stderr, false)
	used := make(map[string]int)
	successCount := 0
	failureCount := 0

	for _, result := range results {
		if result.Error != nil {
			failureCount++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", result.Source, result.Error)
			continue
		}

		jsonPath := filepath.Join(outputDir, uniqueName(used, sanitizeFilename(result.Source))+".json")
		if err := renderer.RenderJSON(result.Value, jsonPath); err != nil {
			failureCount++
			fmt.Fprintf(os.Stderr, "✗ %s: failed to write JSON: %v\n", result.Source, err)
			continue
		}

		successCount++
		s := result.Value.Summary
		if result.Value.Classified {
			fmt.Fprintf(os.Stderr, "✓ %s (candidates: %d, detected: %d, failed: %d)\n", result.Source, s.Candidates, s.Detected, s.Failures)
		} else {
			fmt.Fprintf(os.Stderr, "✓ %s (candidates: %d)\n", result.Source, s.Candidates)
		}
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Batch Complete\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Total:     %d documents\n", len(results))
	fmt.Fprintf(os.Stderr, "  Success:   %d\n", successCount)
	fmt.Fprintf(os.Stderr, "  Failures:  %d\n", failureCount)
	fmt.Fprintf(os.Stderr, "  Output:    %s\n", outputDir)
	fmt.Fprintf(os.Stderr, "\n")

	if failureCount > 0 && successCount == 0 {
		return eris.Errorf("all %d documents failed", failureCount)
	}
	return nil
}

var filenameReplacer = strings.NewReplacer(
	"/", "_",
	"\\", "_",
	":", "_",
	"*", "_",
	"?", "_",
	"\"", "_",
	"<", "_",
	">", "_",
	"|", "_",
	" ", "-",
)

// sanitizeFilename turns a path or URL into a report file name (without extension)
func sanitizeFilename(source string) string {
	s := source
	if pipeline.IsURL(s) {
		s = s[strings.Index(s, "://")+3:]
	} else {
		s = strings.TrimSuffix(filepath.Base(s), filepath.Ext(s))
	}
	s = strings.Trim(filenameReplacer.Replace(s), "_-.")
	if s == "" {
		s = "document"
	}

	if len(s) > 100 {
		s = s[:100]
	}
	return s
}

// uniqueName appends a counter when name was already handed out
func uniqueName(used map[string]int, name string) string {
	n := used[name]
	used[name] = n + 1
	if n == 0 {
		return name
	}
	return fmt.Sprintf("%s-%d", name, n+1)
}
