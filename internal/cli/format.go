package cli

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/Veraticus/kwisatz/internal/model"
	"github.com/charmbracelet/lipgloss"
)

// ConfidenceStyle picks a color for a prediction by its abstention flags.
func ConfidenceStyle(r model.PredictionResult) lipgloss.Style {
	switch {
	case r.IsUnknown:
		return ErrorStyle
	case r.IsLowConfidence:
		return WarningStyle
	default:
		return SuccessStyle
	}
}

// FormatPrediction renders one prediction with its explanation.
func FormatPrediction(r model.PredictionResult) string {
	icon := SuccessIcon
	switch {
	case r.IsUnknown:
		icon = UnknownIcon
	case r.IsLowConfidence:
		icon = WarningIcon
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s  %s\n", SubtleStyle.Render("Description:"), r.Description)
	fmt.Fprintf(&b, "%s  %s %s (%s)\n",
		SubtleStyle.Render("Category:   "),
		icon,
		ConfidenceStyle(r).Render(r.PredictedCategoryName),
		r.PredictedCategoryID)
	fmt.Fprintf(&b, "%s  %.0f%%", SubtleStyle.Render("Confidence: "), r.Confidence*100)
	if r.IsLowConfidence && !r.IsUnknown {
		b.WriteString(WarningStyle.Render(" (needs review)"))
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "%s  %s\n", SubtleStyle.Render("Rationale:  "), r.Explanation.Rationale)

	if len(r.Explanation.KeywordMatches) > 0 {
		keywords := make([]string, 0, len(r.Explanation.KeywordMatches))
		for _, kw := range slices.Sorted(maps.Keys(r.Explanation.KeywordMatches)) {
			keywords = append(keywords, fmt.Sprintf("%s→%s", kw, r.Explanation.KeywordMatches[kw]))
		}
		fmt.Fprintf(&b, "%s  %s\n", SubtleStyle.Render("Keywords:   "), strings.Join(keywords, ", "))
	}

	if len(r.Explanation.TopNeighbors) > 0 {
		b.WriteString(SubtleStyle.Render("Neighbors:"))
		b.WriteString("\n")
		for _, n := range r.Explanation.TopNeighbors {
			fmt.Fprintf(&b, "  %.2f  %-14s %s\n", n.Similarity, n.CategoryID, n.Description)
		}
	}

	return RenderBox("Prediction", strings.TrimRight(b.String(), "\n"))
}

// FormatPredictionTable renders many predictions as aligned rows.
func FormatPredictionTable(results []model.PredictionResult) string {
	const (
		descWidth = 40
		catWidth  = 16
		confWidth = 10
	)

	header := fmt.Sprintf("%-*s %-*s %-*s %s",
		descWidth, "Description",
		catWidth, "Category",
		confWidth, "Confidence",
		"Flags")
	rows := []string{
		TableHeaderStyle.Render(header),
	}

	for _, r := range results {
		var flags []string
		if r.IsUnknown {
			flags = append(flags, "unknown")
		} else if r.IsLowConfidence {
			flags = append(flags, "low")
		}
		line := fmt.Sprintf("%-*s %-*s %-*s %s",
			descWidth, truncate(r.Description, descWidth),
			catWidth, truncate(r.PredictedCategoryID, catWidth),
			confWidth, fmt.Sprintf("%.0f%%", r.Confidence*100),
			strings.Join(flags, ","))
		rows = append(rows, ConfidenceStyle(r).Render(line))
	}

	return strings.Join(rows, "\n")
}

// FormatBatchSummary summarizes a batch run.
func FormatBatchSummary(results []model.PredictionResult) string {
	var confident, low, unknown int
	for _, r := range results {
		switch {
		case r.IsUnknown:
			unknown++
		case r.IsLowConfidence:
			low++
		default:
			confident++
		}
	}

	summary := fmt.Sprintf("%s Classified %d descriptions\n", ChartIcon, len(results)) +
		fmt.Sprintf("  • Confident: %d\n", confident) +
		fmt.Sprintf("  • Low confidence: %d\n", low) +
		fmt.Sprintf("  • Unknown: %d", unknown)
	return RenderBox("Batch Complete", summary)
}

func truncate(s string, width int) string {
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	if width <= 1 {
		return string(r[:width])
	}
	return string(r[:width-1]) + "…"
}
