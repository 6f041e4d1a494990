package review

import (
	"context"
	"fmt"
	"io"

	"github.com/Veraticus/kwisatz/internal/model"
	tea "github.com/charmbracelet/bubbletea"
)

// Options configures where the review screen reads and draws.
type Options struct {
	Input     io.Reader
	Output    io.Writer
	AltScreen bool
}

// Run shows the review screen until every item is handled or the user
// quits, and returns what was recorded.
func Run(ctx context.Context, results []model.PredictionResult, tax *model.Taxonomy, opts Options) (Summary, error) {
	programOpts := []tea.ProgramOption{tea.WithContext(ctx)}
	if opts.Input != nil {
		programOpts = append(programOpts, tea.WithInput(opts.Input))
	}
	if opts.Output != nil {
		programOpts = append(programOpts, tea.WithOutput(opts.Output))
	}
	if opts.AltScreen {
		programOpts = append(programOpts, tea.WithAltScreen())
	}

	final, err := tea.NewProgram(New(results, tax), programOpts...).Run()
	if err != nil {
		return Summary{}, fmt.Errorf("review screen failed: %w", err)
	}

	m, ok := final.(Model)
	if !ok {
		return Summary{}, fmt.Errorf("unexpected review model %T", final)
	}
	return m.Summary(), nil
}
