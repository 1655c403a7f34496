package tui

import (
	"github.com/colonyops/dmctl/internal/core/action"
	"github.com/colonyops/dmctl/internal/core/logstream"
	"github.com/colonyops/dmctl/internal/core/session"
)

// View effects delivered to the event loop by ProgramView.
type (
	showMsg       struct{ section session.Section }
	hideMsg       struct{ section session.Section }
	recipientsMsg struct{ value string }
	logMsg        struct{ event logstream.Event }

	statusMsg struct {
		text    string
		isError bool
	}

	replaceMsg struct {
		area   action.Area
		output action.Output
	}
)

// requestDoneMsg is returned by every backend request command.
type requestDoneMsg struct{}

// streamEndedMsg is returned once the log stream stops for good.
type streamEndedMsg struct{ err error }
