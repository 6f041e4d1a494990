package evaluation

import (
	"github.com/Veraticus/kwisatz/internal/cli"
	"github.com/charmbracelet/lipgloss"
)

// Styles contains the styling used to render evaluation reports.
type Styles struct {
	Title    lipgloss.Style
	Subtitle lipgloss.Style
	Success  lipgloss.Style
	Warning  lipgloss.Style
	Error    lipgloss.Style
	Subtle   lipgloss.Style
	Normal   lipgloss.Style

	Box      lipgloss.Style
	Score    lipgloss.Style
	Diagonal lipgloss.Style
}

// NewStyles creates a new Styles instance with default styling.
func NewStyles() *Styles {
	s := &Styles{
		Title:    cli.TitleStyle,
		Subtitle: cli.SubtitleStyle,
		Success:  cli.SuccessStyle,
		Warning:  cli.WarningStyle,
		Error:    cli.ErrorStyle,
		Subtle:   cli.SubtleStyle,
		Normal:   lipgloss.NewStyle(),
	}

	s.Box = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(cli.SubtleColor).
		Padding(0, 1)

	s.Score = lipgloss.NewStyle().
		Bold(true).
		Foreground(cli.PrimaryColor)

	s.Diagonal = lipgloss.NewStyle().
		Bold(true).
		Foreground(cli.SuccessColor)

	return s
}

// ForRate returns the style for a rate in [0, 1]; higher is better.
func (s *Styles) ForRate(rate float64) lipgloss.Style {
	switch {
	case rate >= 0.9:
		return s.Success
	case rate >= 0.7:
		return s.Warning
	default:
		return s.Error
	}
}
