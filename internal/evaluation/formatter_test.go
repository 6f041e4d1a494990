package evaluation

import (
	"testing"

	"github.com/Veraticus/kwisatz/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCLIFormatter_Format(t *testing.T) {
	tax := testTaxonomy(t)
	report, err := Build(tax,
		[]string{"GROCERIES", "RESTAURANTS", "RENT"},
		[]model.PredictionResult{
			predicted("walmart", "GROCERIES", 0.9),
			predicted("aldi market", "RENT", 0.7),
			predicted("xyz", model.UnknownCategoryID, 0),
		})
	require.NoError(t, err)

	out := NewCLIFormatter().Format(report)
	assert.Contains(t, out, "Evaluation")
	assert.Contains(t, out, "Accuracy")
	assert.Contains(t, out, "50.0%")
	assert.Contains(t, out, "Confusion matrix")
	assert.Contains(t, out, "RESTAUR.")
	assert.Contains(t, out, model.UnknownCategoryID)
	assert.Contains(t, out, "aldi market")
}

func TestCLIFormatter_NilReport(t *testing.T) {
	assert.Contains(t, NewCLIFormatter().Format(nil), "No report available")
}

func TestAbbreviate(t *testing.T) {
	assert.Equal(t, "RENT", abbreviate("RENT"))
	assert.Equal(t, "GROCERIES"[:7]+".", abbreviate("GROCERIES"))
	assert.Equal(t, "UNKNOWN", abbreviate("UNKNOWN"))
}
