package main

import (
	"encoding/json"
	"fmt"

	"github.com/Veraticus/kwisatz/internal/common"
	"github.com/Veraticus/kwisatz/internal/corpus"
	"github.com/Veraticus/kwisatz/internal/evaluation"
	"github.com/spf13/cobra"
)

func evaluateCmd() *cobra.Command {
	var (
		inputs []string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Measure accuracy against labeled examples",
		Long: `Classify labeled examples (description,category_id CSV) and report
accuracy over confident answers, coverage, abstention rate, per-category
precision and recall, and a confusion matrix with an UNKNOWN column.

Evaluate against files that are not part of data.corpus_paths, or every
example will find itself as its nearest neighbor.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, _, err := buildEngine()
			if err != nil {
				return err
			}

			rows, err := corpus.LoadFiles(inputs...)
			if err != nil {
				return common.NewUserError("failed to read labeled examples", err)
			}

			report, err := evaluation.Evaluate(cmd.Context(), e, e.Taxonomy(), rows)
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}
			fmt.Fprintln(cmd.OutOrStdout(), evaluation.NewCLIFormatter().Format(report))
			return nil
		},
	}

	cmd.Flags().StringSliceVarP(&inputs, "input", "i", nil, "labeled CSV files")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}
