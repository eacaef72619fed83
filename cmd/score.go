package main

import (
	"github.com/spf13/cobra"
)

var scoreCmd = &cobra.Command{
	Use:   "score <call-id>",
	Short: "Score a transcribed sales call",
	Long: `Score a call whose transcript is already stored, without contacting the
transcription provider. Useful after a lexicon or weight change, or to finish
a call transcribed with analyze --transcribe-only.`,
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

		outcome, err := env.Orchestrator.ScoreExisting(ctx, callID)
		if err != nil {
			return err
		}
		printOutcome(cmd.OutOrStdout(), outcome)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(scoreCmd)
}
