package main

import (
	"fmt"

	"github.com/Veraticus/kwisatz/internal/cli"
	"github.com/Veraticus/kwisatz/internal/common"
	"github.com/Veraticus/kwisatz/internal/engine"
	"github.com/Veraticus/kwisatz/internal/review"
	"github.com/spf13/cobra"
)

func reviewCmd() *cobra.Command {
	var input string

	cmd := &cobra.Command{
		Use:   "review",
		Short: "Confirm or correct uncertain predictions interactively",
		Long: `Classify a CSV or OFX file and step through every low-confidence or
unknown prediction. Choices are recorded as corrections.

Keys: ↑/↓ move, Enter records the selected category, a accepts the
prediction, s skips, q quits.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			settings, err := loadSettings()
			if err != nil {
				return err
			}
			store, err := initStorage(ctx, settings)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			tax, c, err := loadInputs(settings)
			if err != nil {
				return err
			}
			e, err := engine.New(tax, c, settings, engine.WithCorrectionSink(store))
			if err != nil {
				return err
			}

			descriptions, err := readInput(ctx, input)
			if err != nil {
				return err
			}
			results := e.PredictBatch(ctx, descriptions)

			summary, err := review.Run(ctx, results, e.Taxonomy(), review.Options{AltScreen: true})
			if err != nil {
				return common.NewUserError("review ended unexpectedly", err)
			}

			recorded := 0
			for _, correction := range summary.Corrections {
				if _, err := e.SubmitCorrection(ctx, correction); err != nil {
					common.LogError(err, "failed to record correction", common.Fields{
						"description": correction.Description,
					})
					continue
				}
				recorded++
			}
			common.LogDebug("review finished", common.Fields{
				"accepted":  summary.Accepted,
				"corrected": summary.Corrected,
				"skipped":   summary.Skipped,
			})

			fmt.Fprintln(cmd.OutOrStdout(), cli.RenderBox("Review Complete", fmt.Sprintf(
				"Recorded %d corrections\n  • Accepted: %d\n  • Corrected: %d\n  • Skipped: %d\n  • Not reviewed: %d",
				recorded, summary.Accepted, summary.Corrected, summary.Skipped, summary.Remaining)))
			return nil
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "CSV, OFX or QFX file to review")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}
