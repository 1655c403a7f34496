package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/colonyops/dmctl/internal/core/logstream"
	"github.com/colonyops/dmctl/internal/core/styles"
)

const msgWaitingForLogs = "Waiting for backend log output..."

// logPane shows the backend log in arrival order. Every append scrolls the
// view to the newest line, even after the operator scrolled up.
type logPane struct {
	buf   *logstream.Buffer
	vp    viewport.Model
	width int
}

func newLogPane(capacity int) logPane {
	return logPane{
		buf: logstream.NewBuffer(capacity),
		vp:  viewport.New(80, 5),
	}
}

func (l *logPane) setSize(width, height int) {
	follow := l.vp.AtBottom()
	l.width = width
	l.vp.Width = width
	l.vp.Height = max(height, 1)
	l.refresh(follow)
}

func (l *logPane) append(ev logstream.Event) {
	l.buf.Append(ev)
	l.refresh(true)
}

func (l *logPane) follow() {
	l.vp.GotoBottom()
}

func (l *logPane) update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	l.vp, cmd = l.vp.Update(msg)
	return cmd
}

func (l *logPane) refresh(follow bool) {
	l.vp.SetContent(l.render())
	if follow {
		l.vp.GotoBottom()
	}
}

func (l *logPane) render() string {
	events := l.buf.Events()
	if len(events) == 0 {
		return styles.EmptyStyle.Render(msgWaitingForLogs)
	}

	var b strings.Builder
	if dropped := l.buf.Dropped(); dropped > 0 {
		b.WriteString(styles.MutedStyle.Render("… older lines dropped"))
		b.WriteByte('\n')
	}
	for i, ev := range events {
		if i > 0 {
			b.WriteByte('\n')
		}
		text := ev.Text
		if l.width > 0 {
			text = ansi.Wrap(text, l.width, "")
		}
		b.WriteString(severityStyle(logstream.Classify(ev.Text)).Render(text))
	}
	return b.String()
}

func severityStyle(s logstream.Severity) lipgloss.Style {
	switch s {
	case logstream.SeverityError:
		return styles.ErrorStyle
	case logstream.SeverityWarning:
		return styles.WarningStyle
	case logstream.SeverityInfo:
		return styles.InfoStyle
	default:
		return styles.TextStyle
	}
}

func (l *logPane) view() string {
	return l.vp.View()
}
