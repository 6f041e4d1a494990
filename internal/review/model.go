// Package review is the interactive screen for confirming or correcting
// predictions the engine was unsure about.
package review

import (
	"fmt"
	"strings"

	"github.com/Veraticus/kwisatz/internal/cli"
	"github.com/Veraticus/kwisatz/internal/model"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Metadata values attached to corrections recorded from the review screen.
const (
	MetadataSource  = "source"
	MetadataAction  = "action"
	SourceReview    = "review"
	ActionCorrected = "corrected"
	ActionAccepted  = "accepted"
)

const maxVisibleChoice = 12

// Summary is the outcome of a review session.
type Summary struct {
	Corrections []model.Correction
	Accepted    int
	Corrected   int
	Skipped     int
	Remaining   int
}

// Model steps through predictions one at a time.
type Model struct {
	help        help.Model
	keymap      KeyMap
	items       []model.PredictionResult
	categories  []model.Category
	corrections []model.Correction
	current     int
	cursor      int
	offset      int
	accepted    int
	corrected   int
	skipped     int
	width       int
	quitting    bool
}

// New builds a review model over the results that need review. The category
// list is the taxonomy in its own order.
func New(results []model.PredictionResult, tax *model.Taxonomy) Model {
	items := make([]model.PredictionResult, 0, len(results))
	for _, r := range results {
		if r.NeedsReview() {
			items = append(items, r)
		}
	}

	m := Model{
		help:       help.New(),
		keymap:     DefaultKeyMap(),
		items:      items,
		categories: append([]model.Category(nil), tax.Categories...),
	}
	m.resetCursor()
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	if m.Done() {
		return tea.Quit
	}
	return nil
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width

	case tea.KeyMsg:
		if m.Done() {
			return m, tea.Quit
		}

		switch {
		case key.Matches(msg, m.keymap.Quit):
			m.quitting = true
			return m, tea.Quit

		case key.Matches(msg, m.keymap.Help):
			m.help.ShowAll = !m.help.ShowAll

		case key.Matches(msg, m.keymap.Up):
			m.moveCursor(-1)

		case key.Matches(msg, m.keymap.Down):
			m.moveCursor(1)

		case key.Matches(msg, m.keymap.Correct):
			if len(m.categories) == 0 {
				break
			}
			m.record(m.categories[m.cursor].ID, ActionCorrected)
			m.corrected++
			return m.advance()

		case key.Matches(msg, m.keymap.Accept):
			item := m.items[m.current]
			if item.IsUnknown {
				// Nothing to accept; the user must pick a category.
				break
			}
			m.record(item.PredictedCategoryID, ActionAccepted)
			m.accepted++
			return m.advance()

		case key.Matches(msg, m.keymap.Skip):
			m.skipped++
			return m.advance()
		}
	}

	return m, nil
}

// Done reports whether every item has been handled.
func (m Model) Done() bool {
	return m.current >= len(m.items)
}

// Summary returns what the session produced so far.
func (m Model) Summary() Summary {
	return Summary{
		Corrections: append([]model.Correction(nil), m.corrections...),
		Accepted:    m.accepted,
		Corrected:   m.corrected,
		Skipped:     m.skipped,
		Remaining:   len(m.items) - m.current,
	}
}

func (m *Model) record(categoryID, action string) {
	item := m.items[m.current]
	m.corrections = append(m.corrections, model.Correction{
		Description:         item.Description,
		PredictedCategoryID: item.PredictedCategoryID,
		CorrectedCategoryID: categoryID,
		Metadata: map[string]string{
			MetadataSource: SourceReview,
			MetadataAction: action,
		},
	})
}

func (m Model) advance() (tea.Model, tea.Cmd) {
	m.current++
	if m.Done() {
		return m, tea.Quit
	}
	m.resetCursor()
	return m, nil
}

// resetCursor places the cursor on the predicted category when there is one.
func (m *Model) resetCursor() {
	m.cursor, m.offset = 0, 0
	if m.Done() {
		return
	}
	predicted := m.items[m.current].PredictedCategoryID
	for i, cat := range m.categories {
		if cat.ID == predicted {
			m.cursor = i
			break
		}
	}
	m.scroll()
}

func (m *Model) moveCursor(delta int) {
	if len(m.categories) == 0 {
		return
	}
	m.cursor = max(0, min(m.cursor+delta, len(m.categories)-1))
	m.scroll()
}

func (m *Model) scroll() {
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+maxVisibleChoice {
		m.offset = m.cursor - maxVisibleChoice + 1
	}
}

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting || m.Done() {
		return ""
	}

	item := m.items[m.current]
	var b strings.Builder

	b.WriteString(cli.TitleStyle.Render(fmt.Sprintf("Review %d of %d", m.current+1, len(m.items))))
	b.WriteString("\n")
	b.WriteString(lipgloss.NewStyle().Bold(true).Render(item.Description))
	b.WriteString("\n")

	prediction := fmt.Sprintf("%s %s (%.2f)", cli.UnknownIcon, item.PredictedCategoryName, item.Confidence)
	b.WriteString(cli.ConfidenceStyle(item).Render(prediction))
	b.WriteString("\n")
	b.WriteString(cli.SubtleStyle.Render(item.Explanation.Rationale))
	b.WriteString("\n\n")

	end := min(m.offset+maxVisibleChoice, len(m.categories))
	for i := m.offset; i < end; i++ {
		cat := m.categories[i]
		line := fmt.Sprintf("  %s", cat.Name)
		if i == m.cursor {
			line = cli.PromptStyle.Render(fmt.Sprintf("> %s", cat.Name))
		}
		if cat.ID == item.PredictedCategoryID {
			line += cli.SubtleStyle.Render("  (predicted)")
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	if end < len(m.categories) {
		b.WriteString(cli.SubtleStyle.Render(fmt.Sprintf("  … %d more", len(m.categories)-end)))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.help.View(m.keymap))
	return b.String()
}
