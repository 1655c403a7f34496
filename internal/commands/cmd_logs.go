package commands

import (
	"context"
	"errors"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/dmctl/internal/pilot"
	"github.com/colonyops/dmctl/internal/printer"
)

type LogsCmd struct {
	flags *Flags
	app   *pilot.App
}

// NewLogsCmd creates a new logs command
func NewLogsCmd(flags *Flags, app *pilot.App) *LogsCmd {
	return &LogsCmd{flags: flags, app: app}
}

// Register adds the logs command to the application
func (cmd *LogsCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "logs",
		Usage:     "Stream the backend log",
		UsageText: "dmctl logs",
		Description: `Prints every line the backend publishes on its log stream until the
stream fails or ctrl+c is pressed. A failed stream is not reconnected.`,
		Before: cmd.flags.RequireValidConfig,
		Action: cmd.run,
	})

	return app
}

func (cmd *LogsCmd) run(ctx context.Context, _ *cli.Command) error {
	ctrl := cmd.app.NewController(newCLIView(printer.Ctx(ctx), false))

	err := ctrl.StreamLogs(ctx, cmd.app.NewLogConsumer())
	if err == nil || errors.Is(err, context.Canceled) {
		return nil
	}
	return cli.Exit("", 1)
}
