package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/call-insight/internal/analysis"
)

var transcribeOnly bool

var analyzeCmd = &cobra.Command{
	Use:   "analyze <call-id>",
	Short: "Transcribe and score a sales call",
	Long: `Run the full analysis pipeline for one sales call: send its recording to
the transcription provider, score the Hebrew transcript against the phrase
lexicon, and store the results.

A call that already has a transcript is scored from the stored text without
contacting the provider. A fully scored call is rejected.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		callID, err := parseCallID(args[0])
		if err != nil {
			return err
		}

		env, err := initAnalysis(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		if transcribeOnly {
			call, err := env.Orchestrator.TranscribeOnly(ctx, callID)
			if err != nil {
				return err
			}
			fmt.Printf("Sales call %d transcribed (%d characters).\n",
				call.ID, len([]rune(*call.Transcript)))
			return nil
		}

		outcome, err := env.Orchestrator.RunFullAnalysis(ctx, callID)
		if err != nil {
			return err
		}
		printOutcome(cmd.OutOrStdout(), outcome)
		return nil
	},
}

func init() {
	analyzeCmd.Flags().BoolVar(&transcribeOnly, "transcribe-only", false,
		"transcribe the recording but leave scoring for a later pass")
	rootCmd.AddCommand(analyzeCmd)
}

// parseCallID converts a CLI argument into a call ID.
func parseCallID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, eris.Errorf("invalid call id %q", raw)
	}
	return id, nil
}

// printOutcome renders a completed pipeline operation: the score table,
// confidence, and the generated notes.
func printOutcome(out io.Writer, o *analysis.Outcome) {
	fmt.Fprintf(out, "Sales call %d: %s\n\n", o.Call.ID, o.Call.State())

	if o.Transcription != nil {
		fmt.Fprintf(out, "Transcript: %d words, %d characters\n\n",
			o.Transcription.Stats.WordCount, o.Transcription.Stats.CharCount)
	}
	if o.Scoring == nil {
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DIMENSION\tSCORE")
	fmt.Fprintf(w, "urgency\t%d\n", o.Scoring.Scores.Urgency)
	fmt.Fprintf(w, "budget\t%d\n", o.Scoring.Scores.Budget)
	fmt.Fprintf(w, "interest\t%d\n", o.Scoring.Scores.Interest)
	fmt.Fprintf(w, "engagement\t%d\n", o.Scoring.Scores.Engagement)
	fmt.Fprintf(w, "overall\t%d\n", o.Scoring.Scores.Overall)
	w.Flush()

	fmt.Fprintf(out, "\nConfidence: %d%%\n", o.Scoring.Analysis.Confidence)
	if len(o.Scoring.Analysis.Objections) > 0 {
		fmt.Fprintf(out, "Objections: %s\n", strings.Join(o.Scoring.Analysis.Objections, ", "))
	}
	if o.Scoring.Analysis.Notes != "" {
		fmt.Fprintf(out, "Notes: %s\n", o.Scoring.Analysis.Notes)
	}
}
