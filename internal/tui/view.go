package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/colonyops/dmctl/internal/core/action"
	"github.com/colonyops/dmctl/internal/core/logstream"
	"github.com/colonyops/dmctl/internal/core/session"
)

// ProgramView implements pilot.View by forwarding every effect to the Bubble
// Tea event loop, which stays the only writer of UI state. The loop mirrors
// the recipient input back here so Recipients can answer from any goroutine
// with what the operator currently sees.
type ProgramView struct {
	mu         sync.Mutex
	send       func(tea.Msg)
	recipients string
}

// NewProgramView creates a view that drops effects until Attach is called.
func NewProgramView() *ProgramView {
	return &ProgramView{}
}

// Attach sets the function used to deliver messages, normally Program.Send.
func (v *ProgramView) Attach(send func(tea.Msg)) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.send = send
}

func (v *ProgramView) dispatch(msg tea.Msg) {
	v.mu.Lock()
	send := v.send
	v.mu.Unlock()

	if send != nil {
		send(msg)
	}
}

func (v *ProgramView) Show(s session.Section) { v.dispatch(showMsg{section: s}) }
func (v *ProgramView) Hide(s session.Section) { v.dispatch(hideMsg{section: s}) }

func (v *ProgramView) SetStatus(msg string, isError bool) {
	v.dispatch(statusMsg{text: msg, isError: isError})
}

func (v *ProgramView) Replace(a action.Area, o action.Output) {
	v.dispatch(replaceMsg{area: a, output: o})
}

func (v *ProgramView) SetRecipients(value string) {
	v.dispatch(recipientsMsg{value: value})
}

func (v *ProgramView) Recipients() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.recipients
}

func (v *ProgramView) AppendLog(ev logstream.Event) {
	v.dispatch(logMsg{event: ev})
}

// mirror records the recipient input's current value.
func (v *ProgramView) mirror(value string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.recipients = value
}
