package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/Veraticus/kwisatz/internal/cli"
	"github.com/Veraticus/kwisatz/internal/common"
	"github.com/Veraticus/kwisatz/internal/model"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

// batchChunk is how many descriptions are classified between progress updates.
const batchChunk = 256

func batchCmd() *cobra.Command {
	var (
		input  string
		output string
		format string
		quiet  bool
	)

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Classify every description in a CSV or OFX file",
		Long: `Classify many descriptions at once. CSV input needs a description column;
OFX and QFX statements are read directly. Results keep the input order.

Examples:
  kwisatz batch --input transactions.csv --format csv --output labeled.csv
  kwisatz batch --input ~/Downloads/checking.qfx`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if format != "json" && format != "csv" {
				return common.NewUserError(fmt.Sprintf("unknown format %q: expected json or csv", format), nil)
			}

			e, _, err := buildEngine()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			descriptions, err := readInput(ctx, input)
			if err != nil {
				return err
			}

			var bar *progressbar.ProgressBar
			if !quiet {
				bar = cli.NewProgressBar(cmd.ErrOrStderr(), len(descriptions), "Classifying")
			}

			results := make([]model.PredictionResult, 0, len(descriptions))
			for start := 0; start < len(descriptions); start += batchChunk {
				end := min(start+batchChunk, len(descriptions))
				results = append(results, e.PredictBatch(ctx, descriptions[start:end])...)
				if bar != nil {
					_ = bar.Add(end - start)
				}
			}
			if err := ctx.Err(); err != nil {
				slog.Warn("batch interrupted; remaining items are UNKNOWN", "error", err)
			}

			out := cmd.OutOrStdout()
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("failed to create output: %w", err)
				}
				defer func() { _ = f.Close() }()
				out = f
			}

			if err := writeResults(out, format, results); err != nil {
				return fmt.Errorf("failed to write results: %w", err)
			}
			if !quiet {
				fmt.Fprintln(cmd.ErrOrStderr(), cli.FormatBatchSummary(results))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "CSV, OFX or QFX file to classify")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write results to this file instead of stdout")
	cmd.Flags().StringVarP(&format, "format", "f", "json", "output format (json, csv)")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "hide progress and summary")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}

func writeResults(w io.Writer, format string, results []model.PredictionResult) error {
	switch format {
	case "csv":
		return writeResultsCSV(w, results)
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}
}

func writeResultsCSV(w io.Writer, results []model.PredictionResult) error {
	cw := csv.NewWriter(w)
	header := []string{
		"description", "predicted_category_id", "predicted_category_name",
		"confidence", "is_low_confidence", "is_unknown", "rationale",
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, r := range results {
		record := []string{
			r.Description,
			r.PredictedCategoryID,
			r.PredictedCategoryName,
			strconv.FormatFloat(r.Confidence, 'f', 4, 64),
			strconv.FormatBool(r.IsLowConfidence),
			strconv.FormatBool(r.IsUnknown),
			strings.TrimSpace(r.Explanation.Rationale),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
