package testutil

import (
	"testing"

	"github.com/Veraticus/kwisatz/internal/config"
	"github.com/Veraticus/kwisatz/internal/corpus"
	"github.com/Veraticus/kwisatz/internal/model"
	"github.com/Veraticus/kwisatz/internal/taxonomy"
)

// Description is a strongly-typed fixture description.
type Description string

// Descriptions used across tests.
const (
	StarbucksCafe  Description = "Starbucks cafe"
	WalmartGrocery Description = "Walmart grocery"
	UberRide       Description = "Uber ride downtown"
	ComcastBill    Description = "Comcast internet bill"
)

// Settings returns default settings suitable for engine tests.
func Settings(t *testing.T) config.Settings {
	t.Helper()
	s := config.Defaults()
	s.BatchWorkers = 4
	return s
}

// CorpusBuilder assembles labeled examples fluently and builds a validated
// corpus at the end of the chain.
type CorpusBuilder struct {
	t    *testing.T
	tax  *model.Taxonomy
	rows []corpus.Row
}

// NewCorpusBuilder starts a builder over the default taxonomy.
func NewCorpusBuilder(t *testing.T) *CorpusBuilder {
	t.Helper()
	return &CorpusBuilder{t: t, tax: taxonomy.Default()}
}

// WithTaxonomy replaces the taxonomy examples are validated against.
func (b *CorpusBuilder) WithTaxonomy(tax *model.Taxonomy) *CorpusBuilder {
	b.tax = tax
	return b
}

// WithExample appends one labeled example.
func (b *CorpusBuilder) WithExample(description Description, categoryID string) *CorpusBuilder {
	return b.WithExamples(description, categoryID, 1)
}

// WithExamples appends n copies of a labeled example.
func (b *CorpusBuilder) WithExamples(description Description, categoryID string, n int) *CorpusBuilder {
	for range n {
		b.rows = append(b.rows, corpus.Row{
			Description: string(description),
			CategoryID:  categoryID,
			Source:      "fixture",
			Line:        len(b.rows) + 2,
		})
	}
	return b
}

// WithStarbucksWalmart appends five coffee-shop and five grocery examples.
func (b *CorpusBuilder) WithStarbucksWalmart() *CorpusBuilder {
	return b.
		WithExamples(StarbucksCafe, "RESTAURANTS", 5).
		WithExamples(WalmartGrocery, "GROCERIES", 5)
}

// Rows returns the accumulated rows.
func (b *CorpusBuilder) Rows() []corpus.Row {
	out := make([]corpus.Row, len(b.rows))
	copy(out, b.rows)
	return out
}

// Taxonomy returns the taxonomy the builder validates against.
func (b *CorpusBuilder) Taxonomy() *model.Taxonomy {
	return b.tax
}

// Build creates the corpus or fails the test.
func (b *CorpusBuilder) Build() *corpus.Corpus {
	b.t.Helper()
	c, err := corpus.New(b.tax, b.rows)
	if err != nil {
		b.t.Fatalf("failed to build corpus: %v", err)
	}
	return c
}
