package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/call-insight/internal/lexicon"
)

var lexiconFile string

var lexiconCmd = &cobra.Command{
	Use:   "lexicon",
	Short: "Show the phrase lexicon in effect",
	Long: `Print the lexicon version and the phrase count per scoring category.
With --file, load and validate that override file instead of the configured
lexicon; a malformed file fails here rather than at analysis time.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			lex *lexicon.Lexicon
			err error
		)
		if lexiconFile != "" {
			lex, err = lexicon.Load(lexiconFile)
		} else {
			lex, err = initLexicon()
		}
		if err != nil {
			return err
		}

		printLexicon(cmd.OutOrStdout(), lex)
		return nil
	},
}

func init() {
	lexiconCmd.Flags().StringVar(&lexiconFile, "file", "", "validate and show this override file")
	rootCmd.AddCommand(lexiconCmd)
}

func printLexicon(out io.Writer, lex *lexicon.Lexicon) {
	fmt.Fprintf(out, "Version: %s\n\n", lex.Version())

	counts := lex.Counts()
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CATEGORY\tPHRASES")
	for _, cat := range lexicon.CategoryOrder {
		fmt.Fprintf(w, "%s\t%d\n", cat, counts[cat])
	}
	fmt.Fprintf(w, "objections\t%d\n", lex.ObjectionCount())
	w.Flush()
}
