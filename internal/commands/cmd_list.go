package commands

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/dmctl/internal/core/action"
	"github.com/colonyops/dmctl/internal/pilot"
	"github.com/colonyops/dmctl/internal/printer"
	"github.com/colonyops/dmctl/pkg/iojson"
)

type ListCmd struct {
	flags *Flags
	app   *pilot.App

	// flags
	target     string
	listType   string
	match      string
	jsonOutput bool
	pksOnly    bool
}

// NewListCmd creates a new list command
func NewListCmd(flags *Flags, app *pilot.App) *ListCmd {
	return &ListCmd{flags: flags, app: app}
}

// Register adds the list command to the application
func (cmd *ListCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "list",
		Usage:     "Fetch the followers or following of an account",
		UsageText: "dmctl list [--type followers|following] [--match glob] [--json|--pks] <target>",
		Description: `Fetches a contact list through the backend and prints it as a table.

Use --match to keep only usernames matching a glob (for example "nasa*").
Use --pks to print only the comma separated recipient list, ready for
'dmctl send --to'. Use --json for one JSON object per contact.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "target",
				Aliases:     []string{"t"},
				Usage:       "account whose list is fetched (or pass it as the first argument)",
				Destination: &cmd.target,
			},
			&cli.StringFlag{
				Name:        "type",
				Usage:       "list to fetch (followers, following)",
				Value:       string(action.ListFollowers),
				Destination: &cmd.listType,
			},
			&cli.StringFlag{
				Name:        "match",
				Aliases:     []string{"m"},
				Usage:       "glob applied to usernames",
				Destination: &cmd.match,
			},
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "output as JSON lines",
				Destination: &cmd.jsonOutput,
			},
			&cli.BoolFlag{
				Name:        "pks",
				Usage:       "print only the comma separated pks",
				Destination: &cmd.pksOnly,
			},
		},
		ShellComplete: ValueCompleter(listTypeNames, "--type"),
		Before:        cmd.flags.RequireValidConfig,
		Action:        cmd.run,
	})

	return app
}

func listTypeNames() []string {
	types := action.ListTypes()
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}
	return names
}

func (cmd *ListCmd) run(ctx context.Context, c *cli.Command) error {
	p := printer.Ctx(ctx)

	target := cmd.target
	if target == "" {
		target = c.Args().First()
	}

	filter := action.ListFilter{
		TargetUsername: target,
		ListType:       action.ListType(cmd.listType),
		Match:          cmd.match,
	}
	if err := filter.Validate(); err != nil {
		return err
	}

	view := newCLIView(p, cmd.jsonOutput || cmd.pksOnly)
	res := cmd.app.NewController(view).FetchContacts(ctx, filter)
	w := c.Root().Writer
	if res.Kind != action.KindSuccess {
		if cmd.jsonOutput {
			if err := iojson.WriteError(w, view.Output(action.AreaContacts).Text, map[string]any{
				"kind":      res.Kind,
				"target":    filter.TargetUsername,
				"list_type": filter.ListType,
			}); err != nil {
				return err
			}
		}
		return cli.Exit("", 1)
	}

	switch {
	case cmd.pksOnly:
		if len(res.Contacts) > 0 {
			_, _ = fmt.Fprintln(w, view.Recipients())
		}
	case cmd.jsonOutput:
		for _, contact := range res.Contacts {
			if err := iojson.WriteLine(w, contact); err != nil {
				return err
			}
		}
	default:
		if len(res.Contacts) == 0 {
			return nil
		}
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(tw, "PK\tUSERNAME\tFULL NAME")
		for _, contact := range res.Contacts {
			_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\n", contact.PK, contact.Username, contact.FullName)
		}
		return tw.Flush()
	}

	return nil
}
