package evaluation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/kwisatz/internal/common"
	"github.com/Veraticus/kwisatz/internal/corpus"
	"github.com/Veraticus/kwisatz/internal/model"
)

// maxMisses bounds the misclassifications kept in a report.
const maxMisses = 25

// Predictor classifies descriptions in bulk.
type Predictor interface {
	PredictBatch(ctx context.Context, descriptions []string) []model.PredictionResult
}

// Evaluate predicts every labeled row and builds the report.
func Evaluate(ctx context.Context, p Predictor, tax *model.Taxonomy, rows []corpus.Row) (*Report, error) {
	descriptions := make([]string, len(rows))
	expected := make([]string, len(rows))
	for i, row := range rows {
		descriptions[i] = row.Description
		expected[i] = row.CategoryID
	}

	start := time.Now()
	results := p.PredictBatch(ctx, descriptions)
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("evaluation interrupted: %w", err)
	}

	report, err := Build(tax, expected, results)
	if err != nil {
		return nil, err
	}

	slog.Info("evaluation complete",
		"items", report.Total,
		"accuracy", report.Accuracy,
		"coverage", report.Coverage,
		"duration", time.Since(start))
	return report, nil
}

// Build scores predictions against their expected category ids.
func Build(tax *model.Taxonomy, expected []string, results []model.PredictionResult) (*Report, error) {
	if len(expected) != len(results) {
		return nil, fmt.Errorf("%d labels for %d predictions", len(expected), len(results))
	}

	labels := tax.IDs()
	columns := append(append([]string{}, labels...), model.UnknownCategoryID)
	report := &Report{
		GeneratedAt: time.Now().UTC(),
		Labels:      labels,
		Columns:     columns,
		Matrix:      make([][]int, len(labels)),
		Misses:      []Miss{},
		Total:       len(results),
	}
	for i := range report.Matrix {
		report.Matrix[i] = make([]int, len(columns))
	}

	metrics := make([]CategoryMetrics, len(labels))
	for i, id := range labels {
		metrics[i] = CategoryMetrics{CategoryID: id, Name: tax.NameOf(id)}
	}

	for i, result := range results {
		want := expected[i]
		row := indexOf(labels, want)
		if row < 0 {
			return nil, fmt.Errorf("%w: item %d is labeled %q", common.ErrUnknownCategory, i+1, want)
		}
		col := indexOf(columns, result.PredictedCategoryID)
		if col < 0 {
			return nil, fmt.Errorf("%w: item %d was predicted as %q", common.ErrUnknownCategory, i+1, result.PredictedCategoryID)
		}

		report.Matrix[row][col]++
		metrics[row].Support++
		if result.IsLowConfidence {
			report.LowConfidence++
		}

		if result.IsUnknown {
			report.Abstained++
			continue
		}

		report.Covered++
		metrics[col].Predicted++
		if result.PredictedCategoryID == want {
			report.Correct++
			metrics[row].Correct++
		} else if len(report.Misses) < maxMisses {
			report.Misses = append(report.Misses, Miss{
				Description: result.Description,
				Expected:    want,
				Predicted:   result.PredictedCategoryID,
				Confidence:  result.Confidence,
			})
		}
	}

	for i := range metrics {
		m := &metrics[i]
		m.Precision = ratio(m.Correct, m.Predicted)
		m.Recall = ratio(m.Correct, m.Support)
		if m.Precision+m.Recall > 0 {
			m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
		}
	}
	report.Categories = metrics

	report.Accuracy = ratio(report.Correct, report.Covered)
	report.Coverage = ratio(report.Covered, report.Total)
	report.AbstentionRate = ratio(report.Abstained, report.Total)
	return report, nil
}

func ratio(n, d int) float64 {
	if d == 0 {
		return 0
	}
	return float64(n) / float64(d)
}
