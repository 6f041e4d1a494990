// Package evaluation measures the engine against labeled examples: accuracy
// over confident answers, coverage, abstention and a confusion matrix.
package evaluation

import (
	"fmt"
	"time"

	"github.com/Veraticus/kwisatz/internal/model"
)

// Report is the outcome of one evaluation run.
type Report struct {
	GeneratedAt time.Time `json:"generated_at"`
	// Labels are the taxonomy ids in taxonomy order; they index the rows of
	// Matrix. Columns are Labels followed by the unknown sentinel.
	Labels         []string          `json:"labels"`
	Columns        []string          `json:"columns"`
	Matrix         [][]int           `json:"confusion_matrix"`
	Categories     []CategoryMetrics `json:"categories"`
	Misses         []Miss            `json:"misses"`
	Total          int               `json:"total"`
	Covered        int               `json:"covered"`
	Correct        int               `json:"correct"`
	Abstained      int               `json:"abstained"`
	LowConfidence  int               `json:"low_confidence"`
	Accuracy       float64           `json:"accuracy"`
	Coverage       float64           `json:"coverage"`
	AbstentionRate float64           `json:"abstention_rate"`
}

// CategoryMetrics holds per-category precision and recall. Abstentions count
// against recall but never against precision.
type CategoryMetrics struct {
	CategoryID string  `json:"category_id"`
	Name       string  `json:"name"`
	Support    int     `json:"support"`
	Predicted  int     `json:"predicted"`
	Correct    int     `json:"correct"`
	Precision  float64 `json:"precision"`
	Recall     float64 `json:"recall"`
	F1         float64 `json:"f1"`
}

// Miss is one confident prediction that disagreed with its label.
type Miss struct {
	Description string  `json:"description"`
	Expected    string  `json:"expected"`
	Predicted   string  `json:"predicted"`
	Confidence  float64 `json:"confidence"`
}

// Cell returns the number of items labeled expected and predicted as
// predicted (which may be the unknown sentinel).
func (r *Report) Cell(expected, predicted string) int {
	row := indexOf(r.Labels, expected)
	col := indexOf(r.Columns, predicted)
	if row < 0 || col < 0 {
		return 0
	}
	return r.Matrix[row][col]
}

// Metrics returns the metrics for one category.
func (r *Report) Metrics(categoryID string) (CategoryMetrics, bool) {
	for _, m := range r.Categories {
		if m.CategoryID == categoryID {
			return m, true
		}
	}
	return CategoryMetrics{}, false
}

// Validate checks the report's internal consistency.
func (r *Report) Validate() error {
	if r.Covered+r.Abstained != r.Total {
		return fmt.Errorf("covered (%d) plus abstained (%d) must equal total (%d)", r.Covered, r.Abstained, r.Total)
	}
	if r.Correct > r.Covered {
		return fmt.Errorf("correct (%d) exceeds covered (%d)", r.Correct, r.Covered)
	}
	if len(r.Columns) != len(r.Labels)+1 || r.Columns[len(r.Columns)-1] != model.UnknownCategoryID {
		return fmt.Errorf("columns must be the labels followed by %s", model.UnknownCategoryID)
	}
	if len(r.Matrix) != len(r.Labels) {
		return fmt.Errorf("matrix has %d rows, want %d", len(r.Matrix), len(r.Labels))
	}

	sum := 0
	for i, row := range r.Matrix {
		if len(row) != len(r.Columns) {
			return fmt.Errorf("matrix row %d has %d columns, want %d", i, len(row), len(r.Columns))
		}
		for _, n := range row {
			sum += n
		}
	}
	if sum != r.Total {
		return fmt.Errorf("matrix sums to %d, want %d", sum, r.Total)
	}
	return nil
}

func indexOf(ids []string, id string) int {
	for i, candidate := range ids {
		if candidate == id {
			return i
		}
	}
	return -1
}
