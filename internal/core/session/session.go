// Package session defines the operator's authentication state machine.
//
// The machine is pure: Transition maps a state and an event to the next state
// and the view effects that must be applied. It performs no I/O and never
// reads the view, so it can be tested without a terminal.
package session

import "fmt"

// State represents where the operator is in the authentication flow.
type State int

const (
	// StateUnknown is the state before the status probe answers, and after
	// a failed probe. No section is shown in this state.
	StateUnknown State = iota
	StateUnauthenticated
	StateChallengePending
	StateAuthenticated
)

var stateNames = map[State]string{
	StateUnknown:          "unknown",
	StateUnauthenticated:  "unauthenticated",
	StateChallengePending: "challenge_pending",
	StateAuthenticated:    "authenticated",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Section identifies a togglable part of the operator surface.
type Section int

const (
	SectionCredentials Section = iota
	SectionChallenge
	SectionActions
)

func (s Section) String() string {
	switch s {
	case SectionCredentials:
		return "credentials"
	case SectionChallenge:
		return "challenge"
	case SectionActions:
		return "actions"
	default:
		return fmt.Sprintf("Section(%d)", int(s))
	}
}

// Reply statuses returned by the authentication endpoints.
const (
	ReplySuccess           = "success"
	ReplyTwoFactorRequired = "2fa_required"
	ReplyError             = "error"
)

// Status messages reported by the machine itself.
const (
	MsgUnreachable     = "Cannot reach backend."
	MsgLoggingIn       = "Logging in..."
	MsgVerifying       = "Verifying code..."
	MsgLoggedIn        = "Logged in."
	MsgLoginFailed     = "Login failed."
	MsgChallengeFailed = "Verification failed."
	MsgNotLoggedIn     = "Not logged in. Enter your credentials."
)

// Event is an input to the state machine.
type Event interface{ event() }

// ProbeSucceeded carries the backend's answer to the startup status probe.
type ProbeSucceeded struct{ LoggedIn bool }

// ProbeFailed means the status probe could not reach or parse the backend.
type ProbeFailed struct{ Err error }

// CredentialsSubmitted is emitted once per credential form submission, before
// the request is sent.
type CredentialsSubmitted struct{}

// LoginReplied carries the backend's answer to a credential submission.
type LoginReplied struct {
	Status  string
	Message string
}

// LoginFailed means the credential request failed at the transport level.
type LoginFailed struct{ Err error }

// ChallengeSubmitted is emitted once per challenge form submission.
type ChallengeSubmitted struct{}

// ChallengeReplied carries the backend's answer to a challenge submission.
type ChallengeReplied struct {
	Status  string
	Message string
}

// ChallengeFailed means the challenge request failed at the transport level.
type ChallengeFailed struct{ Err error }

func (ProbeSucceeded) event()       {}
func (ProbeFailed) event()          {}
func (CredentialsSubmitted) event() {}
func (LoginReplied) event()         {}
func (LoginFailed) event()          {}
func (ChallengeSubmitted) event()   {}
func (ChallengeReplied) event()     {}
func (ChallengeFailed) event()      {}

// Effect is an instruction for the view produced by a transition.
type Effect interface{ effect() }

// Show reveals a section.
type Show struct{ Section Section }

// Hide conceals a section.
type Hide struct{ Section Section }

// Report writes the status line.
type Report struct {
	Message string
	IsError bool
}

func (Show) effect()   {}
func (Hide) effect()   {}
func (Report) effect() {}

// Transition computes the next state and the effects for ev.
func Transition(state State, ev Event) (State, []Effect) {
	switch ev := ev.(type) {
	case ProbeSucceeded:
		if ev.LoggedIn {
			return StateAuthenticated, authenticated(MsgLoggedIn)
		}
		return StateUnauthenticated, []Effect{
			Hide{SectionChallenge},
			Hide{SectionActions},
			Show{SectionCredentials},
			Report{Message: MsgNotLoggedIn},
		}

	case ProbeFailed:
		return state, []Effect{Report{Message: withCause(MsgUnreachable, ev.Err), IsError: true}}

	case CredentialsSubmitted:
		return state, []Effect{
			Hide{SectionCredentials},
			Report{Message: MsgLoggingIn},
		}

	case LoginReplied:
		switch ev.Status {
		case ReplySuccess:
			return StateAuthenticated, authenticated(orDefault(ev.Message, MsgLoggedIn))
		case ReplyTwoFactorRequired:
			return StateChallengePending, []Effect{
				Hide{SectionCredentials},
				Show{SectionChallenge},
				Report{Message: ev.Message},
			}
		default:
			return StateUnauthenticated, unauthenticated(orDefault(ev.Message, MsgLoginFailed))
		}

	case LoginFailed:
		return StateUnauthenticated, unauthenticated(withCause(MsgLoginFailed, ev.Err))

	case ChallengeSubmitted:
		return state, []Effect{Report{Message: MsgVerifying}}

	case ChallengeReplied:
		if ev.Status == ReplySuccess {
			return StateAuthenticated, authenticated(orDefault(ev.Message, MsgLoggedIn))
		}
		return StateChallengePending, []Effect{
			Show{SectionChallenge},
			Report{Message: orDefault(ev.Message, MsgChallengeFailed), IsError: true},
		}

	case ChallengeFailed:
		return StateChallengePending, []Effect{
			Show{SectionChallenge},
			Report{Message: withCause(MsgChallengeFailed, ev.Err), IsError: true},
		}
	}

	return state, nil
}

func authenticated(msg string) []Effect {
	return []Effect{
		Hide{SectionCredentials},
		Hide{SectionChallenge},
		Show{SectionActions},
		Report{Message: msg},
	}
}

func unauthenticated(msg string) []Effect {
	return []Effect{
		Hide{SectionChallenge},
		Hide{SectionActions},
		Show{SectionCredentials},
		Report{Message: msg, IsError: true},
	}
}

func orDefault(msg, fallback string) string {
	if msg == "" {
		return fallback
	}
	return msg
}

func withCause(msg string, err error) string {
	if err == nil {
		return msg
	}
	return msg + " " + err.Error()
}
