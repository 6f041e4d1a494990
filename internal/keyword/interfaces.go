// Package keyword scans normalized descriptions for taxonomy keywords. It is
// an independent lexical signal next to the similarity index.
package keyword

// Match is one keyword found in a query together with the category that
// configured it.
type Match struct {
	Keyword    string
	CategoryID string
}

// Matches is the ordered result of scanning one query. A keyword configured
// on several categories appears once per owner.
type Matches []Match

// ByKeyword returns the keyword → category mapping surfaced in explanations.
// When a keyword belongs to several categories the first owner in taxonomy
// order is kept.
func (m Matches) ByKeyword() map[string]string {
	out := make(map[string]string, len(m))
	for _, match := range m {
		if _, seen := out[match.Keyword]; !seen {
			out[match.Keyword] = match.CategoryID
		}
	}
	return out
}

// Supports reports whether any match points at categoryID.
func (m Matches) Supports(categoryID string) bool {
	for _, match := range m {
		if match.CategoryID == categoryID {
			return true
		}
	}
	return false
}

// KeywordsFor returns the matched keywords owned by categoryID, in match order.
func (m Matches) KeywordsFor(categoryID string) []string {
	var out []string
	for _, match := range m {
		if match.CategoryID == categoryID {
			out = append(out, match.Keyword)
		}
	}
	return out
}

// Categories returns the distinct categories with at least one match, in
// match order.
func (m Matches) Categories() []string {
	seen := make(map[string]bool, len(m))
	var out []string
	for _, match := range m {
		if !seen[match.CategoryID] {
			seen[match.CategoryID] = true
			out = append(out, match.CategoryID)
		}
	}
	return out
}
