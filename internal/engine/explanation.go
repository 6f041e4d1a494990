package engine

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/Veraticus/kwisatz/internal/keyword"
	"github.com/Veraticus/kwisatz/internal/model"
)

// explain assembles the explanation attached to every prediction. It copies
// its inputs and is deterministic for a given snapshot and query.
func explain(neighbors []model.Neighbor, matches keyword.Matches, d decision, v Verdict) model.Explanation {
	top := make([]model.Neighbor, len(neighbors))
	copy(top, neighbors)

	return model.Explanation{
		TopNeighbors:   top,
		KeywordMatches: matches.ByKeyword(),
		Rationale:      rationale(matches, d, v),
	}
}

func rationale(matches keyword.Matches, d decision, v Verdict) string {
	var b strings.Builder

	switch {
	case !d.HasEvidence():
		b.WriteString("no confident match (no similar examples)")
	case v.Unknown:
		fmt.Fprintf(&b, "no confident match (best candidate %s at %.2f)", d.Winner.CategoryID, d.Confidence)
	default:
		fmt.Fprintf(&b, "matched %d/%d nearest examples in %s (vote %.2f)",
			d.Winner.Count, d.Neighbors, d.Winner.CategoryID, d.Winner.Weight)
	}

	b.WriteString("; ")
	b.WriteString(describeKeywords(matches))

	if !v.Unknown && v.LowConfidence {
		fmt.Fprintf(&b, "; low confidence %.2f", d.Confidence)
	}
	return b.String()
}

func describeKeywords(matches keyword.Matches) string {
	keywords := slices.Sorted(maps.Keys(matches.ByKeyword()))
	switch len(keywords) {
	case 0:
		return "keywords: none"
	case 1:
		return fmt.Sprintf("keyword '%s' found", keywords[0])
	}

	quoted := make([]string, len(keywords))
	for i, kw := range keywords {
		quoted[i] = "'" + kw + "'"
	}
	return fmt.Sprintf("keywords %s found", strings.Join(quoted, ", "))
}
