package commands

import (
	"os"

	"golang.org/x/term"
)

// isInteractive reports whether prompts can be shown. Tests override it.
var isInteractive = func() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}
