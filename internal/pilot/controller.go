// Package pilot drives the operator session: the startup status probe, the
// authentication flow, the two bot actions and the log feed.
package pilot

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/colonyops/dmctl/internal/backend"
	"github.com/colonyops/dmctl/internal/core/action"
	"github.com/colonyops/dmctl/internal/core/logging"
	"github.com/colonyops/dmctl/internal/core/logstream"
	"github.com/colonyops/dmctl/internal/core/session"
)

// Backend is the subset of the automation service the controller uses.
type Backend interface {
	Status(ctx context.Context) (bool, error)
	Login(ctx context.Context, creds backend.Credentials) (backend.AuthReply, error)
	CompleteChallenge(ctx context.Context, code string) (backend.AuthReply, error)
	FetchContacts(ctx context.Context, f action.ListFilter) (action.Result, error)
	SendBulk(ctx context.Context, r action.SendRequest) (action.Result, error)
}

// Controller owns the session state and translates backend responses into
// view effects. Every failure is reported on the view; no method returns an
// error.
type Controller struct {
	backend Backend
	view    View
	log     zerolog.Logger

	// mu serializes state changes and the view updates they produce.
	mu    sync.Mutex
	state session.State
}

// NewController creates a controller in the unknown state.
func NewController(b Backend, v View, log zerolog.Logger) *Controller {
	return &Controller{
		backend: b,
		view:    v,
		log:     log,
	}
}

// State returns the current session state.
func (c *Controller) State() session.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) transition(ev session.Event) session.State {
	c.mu.Lock()
	defer c.mu.Unlock()

	next, effects := session.Transition(c.state, ev)
	if next != c.state {
		c.log.Debug().Stringer("from", c.state).Stringer("to", next).Msg("session transition")
	}
	c.state = next
	applySession(c.view, effects)
	return next
}

func (c *Controller) apply(effects []action.Effect) {
	c.mu.Lock()
	defer c.mu.Unlock()
	applyAction(c.view, effects)
}

// Probe asks the backend once whether a session already exists. A failure
// is terminal for the probe: the state stays unknown and nothing is retried.
func (c *Controller) Probe(ctx context.Context) session.State {
	ctx = logging.WithOperation(ctx, "probe")

	loggedIn, err := c.backend.Status(ctx)
	if err != nil {
		c.log.Error().Ctx(ctx).Err(err).Msg("status probe failed")
		return c.transition(session.ProbeFailed{Err: err})
	}
	return c.transition(session.ProbeSucceeded{LoggedIn: loggedIn})
}

// SubmitCredentials sends one login request for creds.
func (c *Controller) SubmitCredentials(ctx context.Context, creds backend.Credentials) session.State {
	ctx = logging.WithOperation(ctx, "login")
	c.transition(session.CredentialsSubmitted{})

	reply, err := c.backend.Login(ctx, creds)
	if err != nil {
		c.log.Warn().Ctx(ctx).Err(err).Msg("login request failed")
		return c.transition(session.LoginFailed{Err: err})
	}

	c.log.Info().Ctx(ctx).Str("status", reply.Status).Msg("login replied")
	return c.transition(session.LoginReplied{Status: reply.Status, Message: reply.Message})
}

// SubmitChallenge sends one second-factor code.
func (c *Controller) SubmitChallenge(ctx context.Context, code string) session.State {
	ctx = logging.WithOperation(ctx, "challenge")
	c.transition(session.ChallengeSubmitted{})

	reply, err := c.backend.CompleteChallenge(ctx, code)
	if err != nil {
		c.log.Warn().Ctx(ctx).Err(err).Msg("challenge request failed")
		return c.transition(session.ChallengeFailed{Err: err})
	}

	c.log.Info().Ctx(ctx).Str("status", reply.Status).Msg("challenge replied")
	return c.transition(session.ChallengeReplied{Status: reply.Status, Message: reply.Message})
}

// FetchContacts requests a contact list and renders the outcome. The session
// state is not consulted; the backend decides whether the action is allowed.
func (c *Controller) FetchContacts(ctx context.Context, f action.ListFilter) action.Result {
	ctx = logging.WithOperation(ctx, "list")
	c.apply(action.Started(action.AreaContacts))

	res, err := c.backend.FetchContacts(ctx, f)
	if err != nil {
		c.log.Warn().Ctx(ctx).Err(err).Msg("list request failed")
		res = action.Result{Kind: action.KindError, Message: action.MsgFetchFailed + " " + err.Error()}
	}

	if res.Kind == action.KindSuccess && f.Match != "" {
		filtered, err := action.FilterContacts(res.Contacts, f.Match)
		if err != nil {
			res = action.Result{Kind: action.KindError, Message: err.Error()}
		} else {
			res.Contacts = filtered
		}
	}

	c.log.Info().Ctx(ctx).Str("kind", string(res.Kind)).Int("contacts", len(res.Contacts)).Msg("list replied")
	c.apply(action.InterpretContacts(res))
	return res
}

// SendBulk starts a bulk message job. The recipient field is re-read from the
// view right before submission so manual edits after a fetch are honored.
func (c *Controller) SendBulk(ctx context.Context, r action.SendRequest) action.Result {
	ctx = logging.WithOperation(ctx, "send")

	c.mu.Lock()
	r.Recipients = c.view.Recipients()
	c.mu.Unlock()

	c.apply(action.Started(action.AreaSend))

	res, err := c.backend.SendBulk(ctx, r)
	if err != nil {
		c.log.Warn().Ctx(ctx).Err(err).Msg("send request failed")
		res = action.Result{Kind: action.KindError, Message: err.Error()}
	}

	c.log.Info().Ctx(ctx).Str("kind", string(res.Kind)).Msg("send replied")
	c.apply(action.InterpretSend(res))
	return res
}

// StreamLogs feeds the log stream into the view until it fails or ctx ends.
func (c *Controller) StreamLogs(ctx context.Context, consumer *logstream.Consumer) error {
	return consumer.Run(ctx, logstream.SinkFunc(func(ev logstream.Event) {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.view.AppendLog(ev)
	}))
}
