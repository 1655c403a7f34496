package action

import "fmt"

// Area identifies the output region owned by one action.
type Area int

const (
	AreaContacts Area = iota
	AreaSend
)

func (a Area) String() string {
	switch a {
	case AreaContacts:
		return "contacts"
	case AreaSend:
		return "send"
	default:
		return fmt.Sprintf("Area(%d)", int(a))
	}
}

// Tone is the visual treatment of an Output. Empty is its own tone so an
// empty result never looks like a populated one or a failure.
type Tone int

const (
	ToneInfo Tone = iota
	ToneSuccess
	ToneWarning
	ToneEmpty
	ToneError
)

func (t Tone) String() string {
	switch t {
	case ToneInfo:
		return "info"
	case ToneSuccess:
		return "success"
	case ToneWarning:
		return "warning"
	case ToneEmpty:
		return "empty"
	case ToneError:
		return "error"
	default:
		return fmt.Sprintf("Tone(%d)", int(t))
	}
}

// Output is the full content of an action's area. Rendering an Output
// replaces whatever the area showed before.
type Output struct {
	Tone     Tone
	Text     string
	Contacts []Contact
}

// Messages shown by the dispatcher.
const (
	MsgFetching      = "Fetching list..."
	MsgNoUsers       = "No users found."
	MsgFetchFailed   = "Failed to fetch list."
	MsgSending       = "Starting message job..."
	MsgSendFailed    = "Failed to start sending."
	MsgSendStartedFn = "Message job started for %d recipient(s)."
)

// Effect is an instruction for the view produced by interpreting a Result.
type Effect interface{ effect() }

// Replace swaps the content of an area.
type Replace struct {
	Area   Area
	Output Output
}

// SetRecipients overwrites the recipient field.
type SetRecipients struct{ Value string }

// Report writes the status line.
type Report struct {
	Message string
	IsError bool
}

func (Replace) effect()       {}
func (SetRecipients) effect() {}
func (Report) effect()        {}

// Started returns the effects shown while a request for area is in flight.
// The area is cleared so a previous run's output never lingers.
func Started(area Area) []Effect {
	msg := MsgFetching
	if area == AreaSend {
		msg = MsgSending
	}
	return []Effect{
		Replace{Area: area, Output: Output{Tone: ToneInfo}},
		Report{Message: msg},
	}
}

// InterpretContacts maps a list fetch result to view effects.
func InterpretContacts(r Result) []Effect {
	switch r.Kind {
	case KindSuccess:
		if len(r.Contacts) == 0 {
			return []Effect{
				Replace{Area: AreaContacts, Output: Output{Tone: ToneEmpty, Text: MsgNoUsers}},
				Report{Message: MsgNoUsers},
			}
		}
		msg := fmt.Sprintf("Fetched %d contact(s).", len(r.Contacts))
		return []Effect{
			Replace{Area: AreaContacts, Output: Output{Tone: ToneSuccess, Text: msg, Contacts: r.Contacts}},
			SetRecipients{Value: JoinPKs(r.Contacts)},
			Report{Message: msg},
		}

	case KindWarning:
		return []Effect{
			Replace{Area: AreaContacts, Output: Output{Tone: ToneWarning, Text: r.Message}},
			Report{Message: r.Message},
		}

	default:
		msg := orDefault(r.Message, MsgFetchFailed)
		return []Effect{
			Replace{Area: AreaContacts, Output: Output{Tone: ToneError, Text: msg}},
			Report{Message: msg, IsError: true},
		}
	}
}

// InterpretSend maps a bulk message submission result to view effects. Only
// the start of the job is reported here; progress arrives on the log stream.
func InterpretSend(r Result) []Effect {
	if r.Kind == KindProcessing {
		return []Effect{
			Replace{Area: AreaSend, Output: Output{Tone: ToneInfo, Text: r.Message}},
			Report{Message: r.Message},
		}
	}

	msg := MsgSendFailed
	if r.Message != "" {
		msg = MsgSendFailed + " " + r.Message
	}
	return []Effect{
		Replace{Area: AreaSend, Output: Output{Tone: ToneError, Text: msg}},
		Report{Message: msg, IsError: true},
	}
}

func orDefault(msg, fallback string) string {
	if msg == "" {
		return fallback
	}
	return msg
}
