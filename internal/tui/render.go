package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/colonyops/dmctl/internal/core/action"
	"github.com/colonyops/dmctl/internal/core/session"
	"github.com/colonyops/dmctl/internal/core/styles"
)

// maxContactRows caps how many contacts the output area lists. The recipient
// field always holds every pk.
const maxContactRows = 8

// View implements tea.Model.
func (m *Model) View() string {
	width, height := m.size()
	if m.showHelp {
		return m.helpDoc.Overlay(width, height)
	}

	title := "Backend log"
	if m.streamEnded {
		title += styles.MutedStyle.Render("  (disconnected)")
	}
	logPanel := styles.PanelStyle.Width(width - 2).Render(
		styles.PanelTitleStyle.Render(title) + "\n" + m.logs.view(),
	)

	return lipgloss.JoinVertical(lipgloss.Left, m.renderTop(width), logPanel, m.renderFooter())
}

func (m *Model) renderTop(width int) string {
	parts := []string{
		styles.BannerStyle.Render("dmctl") + "  " + styles.MutedStyle.Render(m.opts.BackendURL),
		m.renderStatus(width),
	}

	if m.visible[session.SectionCredentials] {
		parts = append(parts, m.panel(width, "Log in", fieldUsername, fieldPassword))
	}
	if m.visible[session.SectionChallenge] {
		parts = append(parts, m.panel(width, "Verification", fieldCode))
	}
	if m.visible[session.SectionActions] {
		parts = append(parts,
			m.panel(width, "Contacts", fieldTarget, fieldMatch),
			m.panel(width, "Bulk message", fieldRecipients, fieldMessage, fieldMinDelay, fieldMaxDelay, fieldMaxRecipients),
		)
	}

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m *Model) renderStatus(width int) string {
	style := styles.StatusBarStyle
	if m.statusErr {
		style = styles.StatusErrorStyle
	}

	text := m.status
	if m.inflight > 0 {
		text = m.spinner.View() + " " + text
	}
	return style.Width(width).Render(text)
}

func (m *Model) renderFooter() string {
	return m.help.View(m.keys)
}

func (m *Model) panel(width int, title string, fields ...field) string {
	focused := false
	rows := []string{styles.PanelTitleStyle.Render(title)}
	inputWidth := max(width-lipgloss.Width(styles.LabelStyle.Render(""))-6, 10)

	for _, f := range fields {
		if f == m.focus {
			focused = true
		}
		rows = append(rows, m.row(f, inputWidth))
		if f == fieldTarget {
			rows = append(rows, m.listTypeRow())
		}
	}

	switch title {
	case "Contacts":
		if out := renderOutput(m.outputs[action.AreaContacts], width-4); out != "" {
			rows = append(rows, "", out)
		}
	case "Bulk message":
		if out := renderOutput(m.outputs[action.AreaSend], width-4); out != "" {
			rows = append(rows, "", out)
		}
	}

	style := styles.PanelStyle
	if focused {
		style = styles.PanelFocusedStyle
	}
	return style.Width(width - 2).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (m *Model) row(f field, inputWidth int) string {
	label := styles.LabelStyle
	if f == m.focus {
		label = styles.LabelFocusedStyle
	}
	input := m.inputs[f]
	input.Width = inputWidth
	return label.Render(f.label()) + input.View()
}

func (m *Model) listTypeRow() string {
	opts := make([]string, 0, 2)
	for _, t := range action.ListTypes() {
		if t == m.listType {
			opts = append(opts, styles.SuccessStyle.Bold(true).Render("● "+string(t)))
			continue
		}
		opts = append(opts, styles.MutedStyle.Render("○ "+string(t)))
	}
	return styles.LabelStyle.Render("List") + strings.Join(opts, "  ") + styles.HelpStyle.Render("  ctrl+l")
}

// renderOutput draws an action's output area. A cleared area renders nothing.
func renderOutput(o action.Output, width int) string {
	switch o.Tone {
	case action.ToneSuccess:
		if len(o.Contacts) == 0 {
			return styles.SuccessStyle.Render("✓ " + o.Text)
		}
		return lipgloss.JoinVertical(lipgloss.Left,
			styles.SuccessStyle.Render("✓ "+o.Text),
			contactTable(o.Contacts, width),
		)
	case action.ToneWarning:
		return styles.WarningStyle.Render("! " + o.Text)
	case action.ToneEmpty:
		return styles.EmptyStyle.Render("∅ " + o.Text)
	case action.ToneError:
		return styles.ErrorStyle.Render("✗ " + o.Text)
	default:
		if o.Text == "" {
			return ""
		}
		return styles.InfoStyle.Render(o.Text)
	}
}

func contactTable(contacts []action.Contact, width int) string {
	shown := contacts
	if len(shown) > maxContactRows {
		shown = shown[:maxContactRows]
	}

	rows := make([][]string, 0, len(shown))
	for _, c := range shown {
		rows = append(rows, []string{strconv.FormatInt(c.PK, 10), c.Username, c.FullName})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(styles.DividerStyle).
		Width(min(width, 80)).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return styles.PanelTitleStyle.Padding(0, 1)
			}
			return styles.TextStyle.Padding(0, 1)
		}).
		Headers("PK", "USERNAME", "FULL NAME").
		Rows(rows...)

	out := t.Render()
	if more := len(contacts) - len(shown); more > 0 {
		out += "\n" + styles.MutedStyle.Render(fmt.Sprintf("… and %d more", more))
	}
	return out
}
