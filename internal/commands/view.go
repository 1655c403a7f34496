package commands

import (
	"sync"

	"github.com/colonyops/dmctl/internal/core/action"
	"github.com/colonyops/dmctl/internal/core/logstream"
	"github.com/colonyops/dmctl/internal/core/session"
	"github.com/colonyops/dmctl/internal/printer"
)

// cliView is the line oriented View used by one-shot commands. Status lines
// and log events are printed as they arrive; outputs are kept so the command
// can render them in the format the operator asked for.
type cliView struct {
	p *printer.Printer
	// quiet suppresses non-error status lines, for machine readable output.
	quiet bool

	mu         sync.Mutex
	visible    map[session.Section]bool
	outputs    map[action.Area]action.Output
	recipients string
}

func newCLIView(p *printer.Printer, quiet bool) *cliView {
	return &cliView{
		p:       p,
		quiet:   quiet,
		visible: map[session.Section]bool{},
		outputs: map[action.Area]action.Output{},
	}
}

func (v *cliView) Show(s session.Section) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.visible[s] = true
}

func (v *cliView) Hide(s session.Section) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.visible[s] = false
}

func (v *cliView) Visible(s session.Section) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.visible[s]
}

func (v *cliView) SetStatus(msg string, isError bool) {
	if v.quiet && !isError {
		return
	}
	v.p.Status(msg, isError)
}

func (v *cliView) Replace(a action.Area, o action.Output) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.outputs[a] = o
}

func (v *cliView) Output(a action.Area) action.Output {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.outputs[a]
}

func (v *cliView) SetRecipients(value string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.recipients = value
}

func (v *cliView) Recipients() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.recipients
}

func (v *cliView) AppendLog(ev logstream.Event) {
	v.p.Log(ev)
}
