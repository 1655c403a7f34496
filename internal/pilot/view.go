package pilot

import (
	"github.com/colonyops/dmctl/internal/core/action"
	"github.com/colonyops/dmctl/internal/core/logstream"
	"github.com/colonyops/dmctl/internal/core/session"
)

// View is the operator surface the controller drives. Implementations must be
// safe to call from any goroutine; the controller never calls two methods
// concurrently.
type View interface {
	Show(session.Section)
	Hide(session.Section)

	// SetStatus overwrites the single status line. Last write wins.
	SetStatus(message string, isError bool)

	// Replace swaps the entire content of an action's output area.
	Replace(action.Area, action.Output)

	SetRecipients(value string)
	// Recipients returns the recipient field as the operator currently sees it.
	Recipients() string

	AppendLog(logstream.Event)
}

func applySession(v View, effects []session.Effect) {
	for _, e := range effects {
		switch e := e.(type) {
		case session.Show:
			v.Show(e.Section)
		case session.Hide:
			v.Hide(e.Section)
		case session.Report:
			v.SetStatus(e.Message, e.IsError)
		}
	}
}

func applyAction(v View, effects []action.Effect) {
	for _, e := range effects {
		switch e := e.(type) {
		case action.Replace:
			v.Replace(e.Area, e.Output)
		case action.SetRecipients:
			v.SetRecipients(e.Value)
		case action.Report:
			v.SetStatus(e.Message, e.IsError)
		}
	}
}
