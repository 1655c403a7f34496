package commands

import (
	"context"
	"errors"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/dmctl/internal/pilot"
	"github.com/colonyops/dmctl/internal/tui"
)

type TuiCmd struct {
	flags *Flags
	app   *pilot.App
}

// NewTuiCmd creates a new tui command
func NewTuiCmd(flags *Flags, app *pilot.App) *TuiCmd {
	return &TuiCmd{
		flags: flags,
		app:   app,
	}
}

// Register adds the tui command to the application
func (cmd *TuiCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:   "tui",
		Usage:  "Open the interactive operator page (default)",
		Before: cmd.flags.RequireValidConfig,
		Action: cmd.run,
	})
	return app
}

// Run executes the TUI. Exported for use as default command.
func (cmd *TuiCmd) Run(ctx context.Context, c *cli.Command) error {
	if _, err := cmd.flags.RequireValidConfig(ctx, c); err != nil {
		return err
	}
	return cmd.run(ctx, c)
}

func (cmd *TuiCmd) run(ctx context.Context, _ *cli.Command) error {
	if !isInteractive() {
		return errors.New("the operator page needs a terminal; use the status, login, list, send and logs commands instead")
	}
	return tui.Run(ctx, cmd.app)
}
