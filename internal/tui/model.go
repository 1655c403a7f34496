// Package tui implements the interactive operator page.
package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/colonyops/dmctl/internal/backend"
	"github.com/colonyops/dmctl/internal/core/action"
	"github.com/colonyops/dmctl/internal/core/config"
	"github.com/colonyops/dmctl/internal/core/session"
	"github.com/colonyops/dmctl/internal/core/styles"
)

// Controller is the operator session driven by the page.
type Controller interface {
	Probe(ctx context.Context) session.State
	SubmitCredentials(ctx context.Context, creds backend.Credentials) session.State
	SubmitChallenge(ctx context.Context, code string) session.State
	FetchContacts(ctx context.Context, f action.ListFilter) action.Result
	SendBulk(ctx context.Context, r action.SendRequest) action.Result
}

// Options configures a Model.
type Options struct {
	BackendURL  string
	Send        config.SendConfig
	MaxLogLines int
	// Stream runs the log feed until ctx ends. It is called once.
	Stream func(ctx context.Context) error
}

// Model is the Bubble Tea model for the operator page.
type Model struct {
	ctx    context.Context
	cancel context.CancelFunc
	ctrl   Controller
	view   *ProgramView
	opts   Options

	width  int
	height int

	visible   map[session.Section]bool
	inputs    [fieldCount]textinput.Model
	focus     field
	listType  action.ListType
	outputs   map[action.Area]action.Output
	status    string
	statusErr bool

	inflight    int
	spinner     spinner.Model
	logs        logPane
	streamEnded bool

	keys     keyMap
	help     help.Model
	showHelp bool
	helpDoc  helpOverlay
}

// New creates the page model. Effects for it arrive through view.
func New(ctx context.Context, ctrl Controller, view *ProgramView, opts Options) *Model {
	ctx, cancel := context.WithCancel(ctx)

	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	sp.Style = styles.InfoStyle

	h := help.New()
	h.Styles.ShortKey = styles.HelpStyle.Bold(true)
	h.Styles.ShortDesc = styles.HelpStyle
	h.Styles.ShortSeparator = styles.HelpStyle

	m := &Model{
		ctx:      ctx,
		cancel:   cancel,
		ctrl:     ctrl,
		view:     view,
		opts:     opts,
		visible:  map[session.Section]bool{},
		inputs:   newInputs(opts.Send),
		focus:    fieldUsername,
		listType: action.ListFollowers,
		outputs:  map[action.Area]action.Output{},
		status:   fmt.Sprintf("Connecting to %s...", opts.BackendURL),
		spinner:  sp,
		logs:     newLogPane(opts.MaxLogLines),
		keys:     defaultKeyMap(),
		help:     h,
	}
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.probe(), m.streamLogs(), m.spinner.Tick, textinput.Blink)
}

// request runs fn off the event loop. Its effects arrive as messages.
func (m *Model) request(fn func(ctx context.Context)) tea.Cmd {
	m.inflight++
	ctx := m.ctx
	return func() tea.Msg {
		fn(ctx)
		return requestDoneMsg{}
	}
}

func (m *Model) probe() tea.Cmd {
	ctrl := m.ctrl
	return m.request(func(ctx context.Context) { ctrl.Probe(ctx) })
}

func (m *Model) streamLogs() tea.Cmd {
	stream, ctx := m.opts.Stream, m.ctx
	if stream == nil {
		return nil
	}
	return func() tea.Msg {
		return streamEndedMsg{err: stream(ctx)}
	}
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width

	case tea.KeyMsg:
		cmd, quit := m.handleKey(msg)
		if quit {
			return m, tea.Quit
		}
		cmds = append(cmds, cmd)

	case showMsg:
		m.visible[msg.section] = true
		cmds = append(cmds, m.ensureFocus())

	case hideMsg:
		m.visible[msg.section] = false
		cmds = append(cmds, m.ensureFocus())

	case statusMsg:
		m.status, m.statusErr = msg.text, msg.isError

	case replaceMsg:
		m.outputs[msg.area] = msg.output

	case recipientsMsg:
		m.inputs[fieldRecipients].SetValue(msg.value)
		m.inputs[fieldRecipients].CursorEnd()

	case logMsg:
		m.logs.append(msg.event)

	case requestDoneMsg:
		m.inflight = max(m.inflight-1, 0)

	case streamEndedMsg:
		m.streamEnded = true

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	default:
		var cmd tea.Cmd
		m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
		cmds = append(cmds, cmd)
	}

	m.view.mirror(m.inputs[fieldRecipients].Value())
	m.layout()

	return m, tea.Batch(cmds...)
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	if key.Matches(msg, m.keys.Quit) {
		m.cancel()
		return nil, true
	}

	if m.showHelp {
		if key.Matches(msg, m.keys.Close) {
			m.showHelp = false
		}
		return nil, false
	}

	switch {
	case key.Matches(msg, m.keys.Help),
		msg.String() == "?" && m.inputs[m.focus].Value() == "":
		m.showHelp = true
		return nil, false
	case key.Matches(msg, m.keys.Next):
		return m.moveFocus(1), false
	case key.Matches(msg, m.keys.Prev):
		return m.moveFocus(-1), false
	case key.Matches(msg, m.keys.Submit):
		return m.submit(), false
	case key.Matches(msg, m.keys.ToggleList):
		if m.visible[session.SectionActions] {
			m.listType = m.listType.Toggle()
		}
		return nil, false
	case key.Matches(msg, m.keys.ScrollUp, m.keys.ScrollDown):
		return m.logs.update(msg), false
	case key.Matches(msg, m.keys.Follow):
		m.logs.follow()
		return nil, false
	}

	if !m.fieldVisible(m.focus) {
		return nil, false
	}

	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return cmd, false
}

// submit sends exactly one request for the focused field's form.
func (m *Model) submit() tea.Cmd {
	if !m.fieldVisible(m.focus) {
		return nil
	}

	ctrl := m.ctrl
	switch m.focus.form() {
	case formCredentials:
		creds := backend.Credentials{
			Username: strings.TrimSpace(m.inputs[fieldUsername].Value()),
			Password: m.inputs[fieldPassword].Value(),
		}
		m.inputs[fieldPassword].Reset()
		return m.request(func(ctx context.Context) { ctrl.SubmitCredentials(ctx, creds) })

	case formChallenge:
		code := strings.TrimSpace(m.inputs[fieldCode].Value())
		m.inputs[fieldCode].Reset()
		return m.request(func(ctx context.Context) { ctrl.SubmitChallenge(ctx, code) })

	case formList:
		filter := action.ListFilter{
			TargetUsername: strings.TrimSpace(m.inputs[fieldTarget].Value()),
			ListType:       m.listType,
			Match:          strings.TrimSpace(m.inputs[fieldMatch].Value()),
		}
		return m.request(func(ctx context.Context) { ctrl.FetchContacts(ctx, filter) })

	default:
		req, err := m.sendRequest()
		if err != nil {
			m.status, m.statusErr = err.Error(), true
			return nil
		}
		return m.request(func(ctx context.Context) { ctrl.SendBulk(ctx, req) })
	}
}

func (m *Model) sendRequest() (action.SendRequest, error) {
	req := action.SendRequest{
		Recipients: m.inputs[fieldRecipients].Value(),
		Message:    m.inputs[fieldMessage].Value(),
	}

	numbers := []struct {
		f   field
		dst *int
	}{
		{fieldMinDelay, &req.MinDelay},
		{fieldMaxDelay, &req.MaxDelay},
		{fieldMaxRecipients, &req.MaxRecipients},
	}
	for _, n := range numbers {
		v, err := strconv.Atoi(strings.TrimSpace(m.inputs[n.f].Value()))
		if err != nil {
			return req, fmt.Errorf("%s must be a whole number", strings.ToLower(n.f.label()))
		}
		*n.dst = v
	}
	return req, nil
}

func (m *Model) fieldVisible(f field) bool {
	return m.visible[f.section()]
}

func (m *Model) visibleFields() []field {
	var out []field
	for f := field(0); f < fieldCount; f++ {
		if m.fieldVisible(f) {
			out = append(out, f)
		}
	}
	return out
}

func (m *Model) setFocus(f field) tea.Cmd {
	for i := range m.inputs {
		m.inputs[i].Blur()
	}
	m.focus = f
	return m.inputs[f].Focus()
}

// ensureFocus moves focus to the first visible field when the focused one
// has been hidden.
func (m *Model) ensureFocus() tea.Cmd {
	fields := m.visibleFields()
	if len(fields) == 0 {
		return nil
	}
	if m.fieldVisible(m.focus) && m.inputs[m.focus].Focused() {
		return nil
	}
	if m.fieldVisible(m.focus) {
		return m.setFocus(m.focus)
	}
	return m.setFocus(fields[0])
}

func (m *Model) moveFocus(delta int) tea.Cmd {
	fields := m.visibleFields()
	if len(fields) == 0 {
		return nil
	}

	idx := 0
	for i, f := range fields {
		if f == m.focus {
			idx = i
			break
		}
	}
	idx = (idx + delta + len(fields)) % len(fields)
	return m.setFocus(fields[idx])
}

// layout gives the log pane whatever height the forms leave free.
func (m *Model) layout() {
	width, height := m.size()
	used := lipgloss.Height(m.renderTop(width)) + lipgloss.Height(m.renderFooter()) + 3
	m.logs.setSize(width-4, max(height-used, 3))
}

func (m *Model) size() (int, int) {
	width, height := m.width, m.height
	if width <= 0 {
		width = 100
	}
	if height <= 0 {
		height = 40
	}
	return width, height
}
