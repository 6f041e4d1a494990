package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/Veraticus/kwisatz/internal/cli"
	"github.com/Veraticus/kwisatz/internal/common"
	"github.com/Veraticus/kwisatz/internal/corpus"
	"github.com/Veraticus/kwisatz/internal/engine"
	"github.com/Veraticus/kwisatz/internal/model"
	"github.com/Veraticus/kwisatz/internal/storage"
	"github.com/spf13/cobra"
)

func correctionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "corrections",
		Short: "Record, list and export prediction corrections",
		Long: `Corrections are appended to a local log and never change the engine on
their own. Export them as a corpus file and add it to data.corpus_paths to
teach the engine.`,
	}

	cmd.AddCommand(recordCorrectionCmd())
	cmd.AddCommand(listCorrectionsCmd())
	cmd.AddCommand(exportCorrectionsCmd())
	return cmd
}

func recordCorrectionCmd() *cobra.Command {
	var (
		description string
		predicted   string
		corrected   string
		meta        map[string]string
	)

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record the right category for a description",
		Long: `Record a correction. When --predicted is omitted the description is
classified first and the engine's answer is recorded as the prediction.

Example:
  kwisatz corrections record --description "BLUE BOTTLE #12" --corrected RESTAURANTS`,
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

			if predicted == "" {
				predicted = e.Predict(description).PredictedCategoryID
			}

			recorded, err := e.SubmitCorrection(ctx, model.Correction{
				Description:         description,
				PredictedCategoryID: predicted,
				CorrectedCategoryID: corrected,
				Metadata:            meta,
			})
			if err != nil {
				return common.NewUserError("correction rejected", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Recorded %s: %s → %s",
				recorded.ID, recorded.PredictedCategoryID, recorded.CorrectedCategoryID)))
			return nil
		},
	}

	cmd.Flags().StringVarP(&description, "description", "d", "", "transaction description")
	cmd.Flags().StringVar(&predicted, "predicted", "", "category the engine predicted (default: classify now)")
	cmd.Flags().StringVarP(&corrected, "corrected", "c", "", "correct category id")
	cmd.Flags().StringToStringVar(&meta, "meta", nil, "metadata as key=value pairs")
	_ = cmd.MarkFlagRequired("description")
	_ = cmd.MarkFlagRequired("corrected")

	return cmd
}

func listCorrectionsCmd() *cobra.Command {
	var (
		since    string
		category string
		limit    int
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show recorded corrections, oldest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			filter, err := correctionFilter(since, category, limit, time.Now())
			if err != nil {
				return err
			}

			corrections, err := readCorrections(cmd, filter)
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(corrections)
			}

			if len(corrections) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), cli.InfoStyle.Render("No corrections recorded."))
				return nil
			}
			printCorrections(cmd.OutOrStdout(), corrections)
			return nil
		},
	}

	cmd.Flags().StringVar(&since, "since", "", "only corrections after a date (2006-01-02) or within a duration (72h)")
	cmd.Flags().StringVar(&category, "category", "", "only corrections to this category id")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of corrections")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}

func exportCorrectionsCmd() *cobra.Command {
	var (
		output string
		since  string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write corrections as a labeled corpus CSV",
		Long: `Write every correction as a description,category_id row. A description
corrected more than once keeps its latest category.

Example:
  kwisatz corrections export --output ~/.local/share/kwisatz/corrections.csv`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			filter, err := correctionFilter(since, "", 0, time.Now())
			if err != nil {
				return err
			}

			corrections, err := readCorrections(cmd, filter)
			if err != nil {
				return err
			}
			rows := corpus.FromCorrections(corrections)

			out := cmd.OutOrStdout()
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("failed to create output: %w", err)
				}
				defer func() { _ = f.Close() }()
				out = f
			}

			if err := corpus.WriteCSV(out, rows); err != nil {
				return fmt.Errorf("failed to write corpus: %w", err)
			}
			if output != "" {
				fmt.Fprintln(cmd.ErrOrStderr(), cli.FormatSuccess(fmt.Sprintf("Exported %d examples to %s", len(rows), output)))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "write to this file instead of stdout")
	cmd.Flags().StringVar(&since, "since", "", "only corrections after a date (2006-01-02) or within a duration (72h)")
	return cmd
}

func readCorrections(cmd *cobra.Command, filter storage.CorrectionFilter) ([]model.Correction, error) {
	settings, err := loadSettings()
	if err != nil {
		return nil, err
	}
	store, err := initStorage(cmd.Context(), settings)
	if err != nil {
		return nil, err
	}
	defer func() { _ = store.Close() }()

	return store.ListCorrections(cmd.Context(), filter)
}

// correctionFilter parses the --since flag as a date or a duration before now.
func correctionFilter(since, category string, limit int, now time.Time) (storage.CorrectionFilter, error) {
	filter := storage.CorrectionFilter{CategoryID: category, Limit: limit}
	if since == "" {
		return filter, nil
	}

	if d, err := time.ParseDuration(since); err == nil {
		filter.Since = now.Add(-d)
		return filter, nil
	}
	if t, err := time.Parse("2006-01-02", since); err == nil {
		filter.Since = t
		return filter, nil
	}
	return filter, common.NewUserError(fmt.Sprintf("invalid --since %q: expected a date (2006-01-02) or a duration (72h)", since), nil)
}

func printCorrections(out io.Writer, corrections []model.Correction) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	defer func() { _ = w.Flush() }()

	fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
		cli.BoldStyle.Render("Recorded"),
		cli.BoldStyle.Render("Predicted"),
		cli.BoldStyle.Render("Corrected"),
		cli.BoldStyle.Render("Description"))
	fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
		strings.Repeat("-", 16),
		strings.Repeat("-", 14),
		strings.Repeat("-", 14),
		strings.Repeat("-", 40))

	for _, c := range corrections {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			c.RecordedAt.Local().Format("2006-01-02 15:04"),
			c.PredictedCategoryID,
			c.CorrectedCategoryID,
			c.Description)
	}
}
