package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Veraticus/kwisatz/internal/cli"
	"github.com/spf13/cobra"
)

func predictCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "predict <description...>",
		Short: "Classify one transaction description",
		Long: `Classify a single description and show the category, confidence,
nearest examples and rationale.

Examples:
  kwisatz predict "STARBUCKS STORE 1234 SEATTLE WA"
  kwisatz predict --json Walmart Supercenter`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, _, err := buildEngine()
			if err != nil {
				return err
			}

			result := e.Predict(strings.Join(args, " "))
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatPrediction(result))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full result as JSON")
	return cmd
}
