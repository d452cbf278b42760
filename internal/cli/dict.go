package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppiankov/dimiscan/internal/dictionary"
)

var (
	dictFoldCase   bool
	dictSkipHeader bool
	dictSheet      string
)

// dictCmd represents the dict command
var dictCmd = &cobra.Command{
	Use:   "dict",
	Short: "Inspect and convert trigger dictionaries",
}

var dictConvertCmd = &cobra.Command{
	Use:   "convert <in> <out.json>",
	Short: "Convert a dictionary (e.g. the DIMI spreadsheet) to sorted JSON",
	Example: `  dimiscan dict convert DIMI_Liste.xlsx dimi.json
  dimiscan dict convert dimi.yaml dimi.json --fold-case`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		set, err := dictionary.Load(args[0], dictOptions())
		if err != nil {
			return err
		}
		if err := dictionary.Save(set, args[1]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote %d trigger lemmas to %s\n", set.Len(), args[1])
		return nil
	},
}

var dictShowCmd = &cobra.Command{
	Use:   "show <path>",
	Short: "List the lemmas of a dictionary",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		set, err := dictionary.Load(args[0], dictOptions())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, lemma := range set.Lemmas() {
			fmt.Fprintln(out, lemma)
		}
		if cfg.Output.Verbose {
			fmt.Fprintf(out, "\n%d lemmas\n", set.Len())
		}
		return nil
	},
}

func dictOptions() dictionary.Options {
	return dictionary.Options{
		FoldCase:   dictFoldCase,
		SkipHeader: dictSkipHeader,
		SheetName:  dictSheet,
	}
}

func init() {
	rootCmd.AddCommand(dictCmd)
	dictCmd.AddCommand(dictConvertCmd)
	dictCmd.AddCommand(dictShowCmd)

	dictCmd.PersistentFlags().BoolVar(&dictFoldCase, "fold-case", false, "match lemmas case-insensitively")
	dictCmd.PersistentFlags().BoolVar(&dictSkipHeader, "skip-header", true, "skip the first spreadsheet row")
	dictCmd.PersistentFlags().StringVar(&dictSheet, "sheet", "", "spreadsheet sheet (default: first)")
}
