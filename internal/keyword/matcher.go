package keyword

import (
	"strings"

	"github.com/Veraticus/kwisatz/internal/model"
	"github.com/Veraticus/kwisatz/internal/normalize"
)

type rule struct {
	keyword    string // normalized keyword
	padded     string // keyword surrounded by single spaces
	categoryID string
}

// Matcher evaluates normalized queries against the taxonomy keywords.
type Matcher struct {
	rules []rule
}

// NewMatcher compiles the keywords of every category. Keywords are
// normalized with the same rules as queries, so matching is
// case-insensitive and punctuation-insensitive by construction.
func NewMatcher(tax *model.Taxonomy) *Matcher {
	m := &Matcher{}
	if tax == nil {
		return m
	}

	for _, cat := range tax.Categories {
		seen := make(map[string]bool, len(cat.Keywords))
		for _, kw := range cat.Keywords {
			normalized := normalize.Text(kw)
			if normalized == "" || seen[normalized] {
				continue
			}
			seen[normalized] = true
			m.rules = append(m.rules, rule{
				keyword:    normalized,
				padded:     " " + normalized + " ",
				categoryID: cat.ID,
			})
		}
	}

	return m
}

// Len returns the number of compiled keyword rules.
func (m *Matcher) Len() int {
	return len(m.rules)
}

// Match returns every keyword that occurs in the normalized query as a whole
// token sequence. The result is in taxonomy order and empty when nothing matches.
func (m *Matcher) Match(normalizedQuery string) Matches {
	if normalizedQuery == "" || len(m.rules) == 0 {
		return Matches{}
	}

	padded := " " + normalizedQuery + " "
	matches := Matches{}
	for _, r := range m.rules {
		if strings.Contains(padded, r.padded) {
			matches = append(matches, Match{Keyword: r.keyword, CategoryID: r.categoryID})
		}
	}
	return matches
}
