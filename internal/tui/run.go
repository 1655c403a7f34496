package tui

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/colonyops/dmctl/internal/pilot"
)

// Run shows the operator page until the operator quits or ctx ends.
func Run(ctx context.Context, app *pilot.App) error {
	view := NewProgramView()
	ctrl := app.NewController(view)

	m := New(ctx, ctrl, view, Options{
		BackendURL:  app.Config.Backend.URL,
		Send:        app.Config.Send,
		MaxLogLines: app.Config.Logs.MaxLines,
		Stream: func(ctx context.Context) error {
			return ctrl.StreamLogs(ctx, app.NewLogConsumer())
		},
	})
	defer m.cancel()

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	view.Attach(p.Send)

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
