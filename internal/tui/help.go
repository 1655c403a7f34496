package tui

import (
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/colonyops/dmctl/internal/core/styles"
)

const helpMarkdown = `# dmctl

Drives a bulk direct message bot through its automation backend.

## Keys

| Key | Action |
| --- | --- |
| tab / shift+tab | Move between fields |
| enter | Submit the form of the focused field |
| ctrl+l | Switch between followers and following |
| pgup / pgdown | Scroll the backend log |
| ctrl+g | Jump to the newest log line |
| f1 or ? | Toggle this help |
| ctrl+c | Quit |

## Workflow

1. Log in. When the backend asks for a second factor, enter the code.
2. Fetch a contact list. Every pk is copied into the recipient field.
3. Edit the recipients if needed, write the message and submit it.
4. Progress is reported in the backend log as the job runs.

The log stream is not reconnected. Restart dmctl if it disconnects.
`

// helpOverlay renders the help document, caching the result per width.
type helpOverlay struct {
	width    int
	rendered string
}

func (h *helpOverlay) render(width int) string {
	if h.rendered != "" && h.width == width {
		return h.rendered
	}

	h.width = width
	h.rendered = helpMarkdown

	r, err := glamour.NewTermRenderer(
		glamour.WithStyles(styles.GlamourStyle()),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return h.rendered
	}
	if out, err := r.Render(helpMarkdown); err == nil {
		h.rendered = out
	}
	return h.rendered
}

// Overlay renders the help modal centered over the screen.
func (h *helpOverlay) Overlay(width, height int) string {
	inner := min(max(width-8, 20), 72)
	content := lipgloss.JoinVertical(
		lipgloss.Left,
		h.render(inner),
		styles.HelpStyle.Render("esc close"),
	)
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, styles.ModalStyle.Render(content))
}
