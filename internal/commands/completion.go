package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
)

// ValueCompleter returns a ShellCompleteFunc that suggests values when the
// argument before the cursor is one of names, and falls back to the default
// flag completion otherwise.
func ValueCompleter(values func() []string, names ...string) cli.ShellCompleteFunc {
	return func(ctx context.Context, cmd *cli.Command) {
		args := cmd.Args()
		if !args.Present() {
			cli.DefaultCompleteWithFlags(ctx, cmd)
			return
		}

		last := args.Slice()[args.Len()-1]
		for _, name := range names {
			if last != name {
				continue
			}
			w := cmd.Root().Writer
			for _, v := range values() {
				_, _ = fmt.Fprintln(w, v)
			}
			return
		}

		cli.DefaultCompleteWithFlags(ctx, cmd)
	}
}
