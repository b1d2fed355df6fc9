package text

import (
	"context"
	"errors"
	"io"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jask/notebook/internal/presenter"
)

// MainLoop runs the bubbletea program that drives View.
type MainLoop struct {
	view *View
	p    *presenter.Presenter
	opts []tea.ProgramOption
}

// New returns the text front-end. opts are passed to the bubbletea program.
func New(opts ...tea.ProgramOption) (*View, *MainLoop) {
	v := &View{}
	return v, &MainLoop{view: v, opts: opts}
}

func (l *MainLoop) Attach(p *presenter.Presenter) { l.p = p }

// Run blocks until the user quits or ctx is cancelled.
func (l *MainLoop) Run(ctx context.Context, debug presenter.DebugHandle) error {
	l.view.ctx = ctx
	if debug != nil {
		l.view.banner = "debug: " + debug.String()
	}
	opts := append([]tea.ProgramOption{tea.WithContext(ctx), tea.WithAltScreen()}, l.opts...)
	_, err := tea.NewProgram(l.view, opts...).Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

// Headless returns program options for running without a terminal.
func Headless(out io.Writer) []tea.ProgramOption {
	return []tea.ProgramOption{tea.WithInput(nil), tea.WithOutput(out), tea.WithoutSignalHandler()}
}
