package evaluation

import (
	"fmt"
	"strings"
)

// CLIFormatter renders reports for the terminal.
type CLIFormatter struct {
	styles *Styles
}

// NewCLIFormatter creates a new CLI formatter with default styles.
func NewCLIFormatter() *CLIFormatter {
	return &CLIFormatter{
		styles: NewStyles(),
	}
}

// Format renders the headline numbers, per-category metrics, the confusion
// matrix and a sample of misclassifications.
func (f *CLIFormatter) Format(report *Report) string {
	if report == nil {
		return f.styles.Error.Render("No report available")
	}

	sections := []string{
		f.formatHeadline(report),
		f.formatCategories(report),
		f.formatMatrix(report),
	}
	if len(report.Misses) > 0 {
		sections = append(sections, f.formatMisses(report))
	}
	return strings.Join(sections, "\n\n")
}

func (f *CLIFormatter) formatHeadline(r *Report) string {
	lines := []string{
		fmt.Sprintf("Items:           %d", r.Total),
		fmt.Sprintf("Accuracy:        %s (%d/%d answered)",
			f.styles.ForRate(r.Accuracy).Render(percent(r.Accuracy)), r.Correct, r.Covered),
		fmt.Sprintf("Coverage:        %s", percent(r.Coverage)),
		fmt.Sprintf("Abstention rate: %s (%d unknown)", percent(r.AbstentionRate), r.Abstained),
		fmt.Sprintf("Low confidence:  %d", r.LowConfidence),
	}
	return f.styles.Box.Render(f.styles.Score.Render("Evaluation") + "\n" + strings.Join(lines, "\n"))
}

func (f *CLIFormatter) formatCategories(r *Report) string {
	const (
		idWidth  = 16
		numWidth = 10
	)

	header := fmt.Sprintf("%-*s %*s %*s %*s %*s",
		idWidth, "Category",
		numWidth, "Support",
		numWidth, "Precision",
		numWidth, "Recall",
		numWidth, "F1")
	rows := []string{
		f.styles.Subtitle.Render("Per-category metrics:"),
		f.styles.Subtle.Bold(true).Render(header),
		f.styles.Subtle.Render(strings.Repeat("─", len(header))),
	}

	for _, m := range r.Categories {
		rows = append(rows, fmt.Sprintf("%-*s %*d %*s %*s %*s",
			idWidth, m.CategoryID,
			numWidth, m.Support,
			numWidth, percent(m.Precision),
			numWidth, percent(m.Recall),
			numWidth, fmt.Sprintf("%.2f", m.F1)))
	}
	return strings.Join(rows, "\n")
}

func (f *CLIFormatter) formatMatrix(r *Report) string {
	width := 6
	for _, id := range r.Columns {
		width = max(width, len(abbreviate(id)))
	}
	const corner = "actual \\ predicted"
	labelWidth := len(corner)
	for _, id := range r.Labels {
		labelWidth = max(labelWidth, len(id))
	}

	var header strings.Builder
	fmt.Fprintf(&header, "%-*s", labelWidth, corner)
	for _, col := range r.Columns {
		fmt.Fprintf(&header, " %*s", width, abbreviate(col))
	}

	rows := []string{
		f.styles.Subtitle.Render("Confusion matrix:"),
		f.styles.Subtle.Bold(true).Render(header.String()),
	}
	for i, label := range r.Labels {
		var line strings.Builder
		fmt.Fprintf(&line, "%-*s", labelWidth, label)
		for j, n := range r.Matrix[i] {
			cell := fmt.Sprintf(" %*d", width, n)
			switch {
			case n == 0:
				cell = f.styles.Subtle.Render(cell)
			case j == i:
				cell = f.styles.Diagonal.Render(cell)
			}
			line.WriteString(cell)
		}
		rows = append(rows, line.String())
	}
	return strings.Join(rows, "\n")
}

func (f *CLIFormatter) formatMisses(r *Report) string {
	rows := []string{f.styles.Subtitle.Render("Misclassified samples:")}
	for _, m := range r.Misses {
		rows = append(rows, fmt.Sprintf("  %s  %s → %s (%s)",
			m.Description,
			m.Expected,
			f.styles.Error.Render(m.Predicted),
			percent(m.Confidence)))
	}
	return strings.Join(rows, "\n")
}

func percent(rate float64) string {
	return fmt.Sprintf("%.1f%%", rate*100)
}

// abbreviate shortens long category ids for matrix headers.
func abbreviate(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:7] + "."
}
