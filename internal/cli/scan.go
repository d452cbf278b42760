package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/ppiankov/dimiscan/internal/pipeline"
)

var (
	scanOpts    scanFlags
	outJSON     string
	scanTimeout time.Duration
)

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan <file|url|->",
	Short: "Scan one document for moralizing trigger sentences",
	Long: `Scan segments a document into sentences and reports every sentence that
contains a trigger word, together with its context window.

With --classify each candidate is also scored by the configured
classification model.

Example:
  dimiscan scan rede.txt --dict dimi.xlsx
  dimiscan scan https://example.org/rede.html --dict dimi.yaml --window 3
  cat protokoll.txt | dimiscan scan - --dict dimi.txt --paragraphs --json -
  dimiscan scan rede.txt --dict dimi.xlsx --classify --provider openai`,
	Args: cobra.ExactArgs(1),
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)

	scanOpts.register(scanCmd)
	scanCmd.Flags().StringVar(&outJSON, "json", "", `write the JSON report to this path ("-" for stdout)`)
	scanCmd.Flags().DurationVar(&scanTimeout, "timeout", 5*time.Minute, "overall scan timeout")
}

func runScan(cmd *cobra.Command, args []string) error {
	source := args[0]
	ctx, cancel := context.WithTimeout(cmd.Context(), scanTimeout)
	defer cancel()

	scanOpts.apply(cmd, cfg)

	if cfg.Output.Verbose {
		fmt.Fprintf(os.Stderr, "Scanning: %s\n", source)
		fmt.Fprintf(os.Stderr, "Dictionary: %s\n", cfg.Dictionary.Path)
		fmt.Fprintf(os.Stderr, "Window: %d\n", cfg.Scan.ContextWindow)
		fmt.Fprintf(os.Stderr, "Classify: %v\n", cfg.Classification.Enabled)
		fmt.Fprintln(os.Stderr)
	}

	rt, err := newScanRuntime(cfg, scanOpts.meta)
	if err != nil {
		return err
	}
	defer rt.finish()

	report, err := rt.scanner.ScanSource(ctx, source)
	if err != nil {
		return eris.Wrap(err, "scan failed")
	}

	renderer := pipeline.NewRenderer(cmd.OutOrStdout(), cfg.Output.Verbose)
	if outJSON != "-" {
		renderer.RenderSummary(report)
	}
	if outJSON != "" {
		if err := renderer.RenderJSON(report, outJSON); err != nil {
			return eris.Wrap(err, "render failed")
		}
	}
	return nil
}
