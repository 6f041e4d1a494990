// Package corpus holds the labeled examples the similarity index is built from.
package corpus

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/Veraticus/kwisatz/internal/common"
	"github.com/Veraticus/kwisatz/internal/model"
	"github.com/Veraticus/kwisatz/internal/normalize"
)

// Corpus is an immutable, ordered collection of labeled examples.
type Corpus struct {
	examples []model.Example
}

// Empty returns a corpus without examples.
func Empty() *Corpus {
	return &Corpus{}
}

// New normalizes rows into examples and validates them against the taxonomy.
// Every row must carry a category id present in tax; violations are reported
// together as a single integrity error. Rows whose description normalizes to
// nothing are skipped since they can never match a query.
func New(tax *model.Taxonomy, rows []Row) (*Corpus, error) {
	examples := make([]model.Example, 0, len(rows))
	unknown := make(map[string]int)
	skipped := 0

	for _, row := range rows {
		if row.CategoryID == "" {
			return nil, fmt.Errorf("%w: %s line %d: missing category_id", common.ErrInvalidCorpus, row.Source, row.Line)
		}
		if !tax.Contains(row.CategoryID) {
			unknown[row.CategoryID]++
			continue
		}

		normalized := normalize.Text(row.Description)
		if normalized == "" {
			skipped++
			continue
		}

		examples = append(examples, model.Example{
			RawText:        row.Description,
			NormalizedText: normalized,
			CategoryID:     row.CategoryID,
			Merchant:       row.Merchant,
			Amount:         row.Amount,
		})
	}

	if len(unknown) > 0 {
		ids := make([]string, 0, len(unknown))
		total := 0
		for id, n := range unknown {
			ids = append(ids, id)
			total += n
		}
		sort.Strings(ids)
		return nil, fmt.Errorf("%w: %d examples reference categories missing from the taxonomy: %s",
			common.ErrUnknownCategory, total, strings.Join(ids, ", "))
	}

	if skipped > 0 {
		slog.Warn("skipped corpus rows with empty descriptions", "count", skipped)
	}

	return &Corpus{examples: examples}, nil
}

// Len returns the number of examples.
func (c *Corpus) Len() int {
	if c == nil {
		return 0
	}
	return len(c.examples)
}

// At returns the example at insertion position i.
func (c *Corpus) At(i int) model.Example {
	return c.examples[i]
}

// Examples returns a copy of the examples in insertion order.
func (c *Corpus) Examples() []model.Example {
	if c == nil {
		return nil
	}
	out := make([]model.Example, len(c.examples))
	copy(out, c.examples)
	return out
}

// CountByCategory returns the number of examples per category id.
func (c *Corpus) CountByCategory() map[string]int {
	counts := make(map[string]int)
	if c == nil {
		return counts
	}
	for _, ex := range c.examples {
		counts[ex.CategoryID]++
	}
	return counts
}

// Validate re-checks the corpus against another taxonomy, used before a
// taxonomy replacement is accepted.
func (c *Corpus) Validate(tax *model.Taxonomy) error {
	missing := make(map[string]struct{})
	for _, ex := range c.examples {
		if !tax.Contains(ex.CategoryID) {
			missing[ex.CategoryID] = struct{}{}
		}
	}
	if len(missing) == 0 {
		return nil
	}

	ids := make([]string, 0, len(missing))
	for id := range missing {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return fmt.Errorf("%w: corpus references categories missing from the taxonomy: %s",
		common.ErrUnknownCategory, strings.Join(ids, ", "))
}
