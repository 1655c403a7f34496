package commands

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/dmctl/internal/core/session"
	"github.com/colonyops/dmctl/internal/pilot"
	"github.com/colonyops/dmctl/internal/printer"
	"github.com/colonyops/dmctl/pkg/iojson"
)

type StatusCmd struct {
	flags *Flags
	app   *pilot.App

	// flags
	jsonOutput bool
}

// NewStatusCmd creates a new status command
func NewStatusCmd(flags *Flags, app *pilot.App) *StatusCmd {
	return &StatusCmd{flags: flags, app: app}
}

// Register adds the status command to the application
func (cmd *StatusCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "status",
		Usage:     "Check whether the backend holds a logged in session",
		UsageText: "dmctl status [--json]",
		Description: `Probes the backend once. Exits non-zero when the backend cannot be reached
or returns an unreadable answer.`,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "output as JSON",
				Destination: &cmd.jsonOutput,
			},
		},
		Before: cmd.flags.RequireValidConfig,
		Action: cmd.run,
	})

	return app
}

type statusOutput struct {
	Backend  string `json:"backend"`
	State    string `json:"state"`
	LoggedIn bool   `json:"logged_in"`
}

func (cmd *StatusCmd) run(ctx context.Context, c *cli.Command) error {
	p := printer.Ctx(ctx)
	view := newCLIView(p, cmd.jsonOutput)

	state := cmd.app.NewController(view).Probe(ctx)

	if cmd.jsonOutput && state == session.StateUnknown {
		if err := iojson.WriteError(c.Root().Writer, session.MsgUnreachable, map[string]any{
			"backend": cmd.app.Config.Backend.URL,
			"state":   state.String(),
		}); err != nil {
			return err
		}
	} else if cmd.jsonOutput {
		err := iojson.WriteWith(c.Root().Writer, c.Root().ErrWriter, statusOutput{
			Backend:  cmd.app.Config.Backend.URL,
			State:    state.String(),
			LoggedIn: state == session.StateAuthenticated,
		})
		if err != nil {
			return err
		}
	} else if state == session.StateUnauthenticated {
		p.Printf("Run 'dmctl login' to authenticate.")
	}

	if state == session.StateUnknown {
		return cli.Exit("", 1)
	}
	return nil
}
