package pilot

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/dmctl/internal/backend"
	"github.com/colonyops/dmctl/internal/core/action"
	"github.com/colonyops/dmctl/internal/core/config"
	"github.com/colonyops/dmctl/internal/core/logstream"
	"github.com/colonyops/dmctl/internal/core/session"
)

type recordingView struct {
	mu         sync.Mutex
	visible    map[session.Section]bool
	status     string
	statusErr  bool
	statuses   []string
	outputs    map[action.Area]action.Output
	recipients string
	logs       []string
}

func newRecordingView() *recordingView {
	return &recordingView{
		visible: map[session.Section]bool{},
		outputs: map[action.Area]action.Output{},
	}
}

func (v *recordingView) Show(s session.Section) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.visible[s] = true
}

func (v *recordingView) Hide(s session.Section) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.visible[s] = false
}

func (v *recordingView) SetStatus(msg string, isErr bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.status, v.statusErr = msg, isErr
	v.statuses = append(v.statuses, msg)
}

func (v *recordingView) Replace(a action.Area, o action.Output) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.outputs[a] = o
}

func (v *recordingView) SetRecipients(value string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.recipients = value
}

func (v *recordingView) Recipients() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.recipients
}

func (v *recordingView) AppendLog(ev logstream.Event) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.logs = append(v.logs, ev.Text)
}

func (v *recordingView) shown() []session.Section {
	v.mu.Lock()
	defer v.mu.Unlock()
	var out []session.Section
	for _, s := range []session.Section{session.SectionCredentials, session.SectionChallenge, session.SectionActions} {
		if v.visible[s] {
			out = append(out, s)
		}
	}
	return out
}

func (v *recordingView) logLines() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]string(nil), v.logs...)
}

type stubBackend struct {
	loggedIn  bool
	statusErr error

	loginReply backend.AuthReply
	loginErr   error

	challengeReply backend.AuthReply
	challengeErr   error

	list    action.Result
	listErr error

	send    action.Result
	sendErr error

	sent []action.SendRequest
}

func (s *stubBackend) Status(context.Context) (bool, error) { return s.loggedIn, s.statusErr }

func (s *stubBackend) Login(context.Context, backend.Credentials) (backend.AuthReply, error) {
	return s.loginReply, s.loginErr
}

func (s *stubBackend) CompleteChallenge(context.Context, string) (backend.AuthReply, error) {
	return s.challengeReply, s.challengeErr
}

func (s *stubBackend) FetchContacts(context.Context, action.ListFilter) (action.Result, error) {
	return s.list, s.listErr
}

func (s *stubBackend) SendBulk(_ context.Context, r action.SendRequest) (action.Result, error) {
	s.sent = append(s.sent, r)
	return s.send, s.sendErr
}

func TestController_ProbeLoggedIn(t *testing.T) {
	v := newRecordingView()
	c := NewController(&stubBackend{loggedIn: true}, v, zerolog.Nop())

	state := c.Probe(context.Background())
	assert.Equal(t, session.StateAuthenticated, state)
	assert.Equal(t, []session.Section{session.SectionActions}, v.shown())
}

func TestController_ProbeFailureLeavesStateUnknown(t *testing.T) {
	v := newRecordingView()
	c := NewController(&stubBackend{statusErr: errors.New("connection refused")}, v, zerolog.Nop())

	state := c.Probe(context.Background())
	assert.Equal(t, session.StateUnknown, state)
	assert.Empty(t, v.shown())
	assert.True(t, v.statusErr)
	assert.Contains(t, v.status, session.MsgUnreachable)
}

func TestController_TwoFactorFlow(t *testing.T) {
	b := &stubBackend{
		loginReply:     backend.AuthReply{Status: session.ReplyTwoFactorRequired, Message: "2FA required."},
		challengeReply: backend.AuthReply{Status: session.ReplyError, Message: "Incorrect 2FA code."},
	}
	v := newRecordingView()
	c := NewController(b, v, zerolog.Nop())
	c.Probe(context.Background())

	state := c.SubmitCredentials(context.Background(), backend.Credentials{Username: "op", Password: "pw"})
	assert.Equal(t, session.StateChallengePending, state)
	assert.Equal(t, []session.Section{session.SectionChallenge}, v.shown())

	state = c.SubmitChallenge(context.Background(), "000000")
	assert.Equal(t, session.StateChallengePending, state)
	assert.Equal(t, []session.Section{session.SectionChallenge}, v.shown())
	assert.Equal(t, "Incorrect 2FA code.", v.status)
	assert.True(t, v.statusErr)

	b.challengeReply = backend.AuthReply{Status: session.ReplySuccess, Message: "Logged in via 2FA."}
	state = c.SubmitChallenge(context.Background(), "123456")
	assert.Equal(t, session.StateAuthenticated, state)
	assert.Equal(t, []session.Section{session.SectionActions}, v.shown())
	assert.Equal(t, session.StateAuthenticated, c.State())
}

func TestController_LoginTransportFailure(t *testing.T) {
	v := newRecordingView()
	c := NewController(&stubBackend{loginErr: errors.New("dial tcp: refused")}, v, zerolog.Nop())

	state := c.SubmitCredentials(context.Background(), backend.Credentials{})
	assert.Equal(t, session.StateUnauthenticated, state)
	assert.Equal(t, []session.Section{session.SectionCredentials}, v.shown())
	assert.Equal(t, session.MsgLoginFailed+" dial tcp: refused", v.status)
	assert.Equal(t, []string{session.MsgLoggingIn, v.status}, v.statuses)
}

func TestController_FetchContacts(t *testing.T) {
	tests := []struct {
		name           string
		list           action.Result
		listErr        error
		match          string
		wantTone       action.Tone
		wantRecipients string
		wantStatusErr  bool
	}{
		{
			name: "populated",
			list: action.Result{Kind: action.KindSuccess, Contacts: []action.Contact{
				{PK: 1, Username: "a"}, {PK: 2, Username: "b"},
			}},
			wantTone:       action.ToneSuccess,
			wantRecipients: "1, 2",
		},
		{
			name:           "filtered by glob",
			list:           action.Result{Kind: action.KindSuccess, Contacts: []action.Contact{{PK: 1, Username: "nasa_jpl"}, {PK: 2, Username: "esa"}}},
			match:          "nasa*",
			wantTone:       action.ToneSuccess,
			wantRecipients: "1",
		},
		{
			name:           "empty keeps recipients",
			list:           action.Result{Kind: action.KindSuccess, Contacts: []action.Contact{}},
			wantTone:       action.ToneEmpty,
			wantRecipients: "keep",
		},
		{
			name:           "warning",
			list:           action.Result{Kind: action.KindWarning, Message: "Rate limit hit."},
			wantTone:       action.ToneWarning,
			wantRecipients: "keep",
		},
		{
			name:           "transport error",
			listErr:        errors.New("unexpected EOF"),
			wantTone:       action.ToneError,
			wantRecipients: "keep",
			wantStatusErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := newRecordingView()
			v.recipients = "keep"
			c := NewController(&stubBackend{list: tt.list, listErr: tt.listErr}, v, zerolog.Nop())

			c.FetchContacts(context.Background(), action.ListFilter{
				TargetUsername: "nasa",
				ListType:       action.ListFollowers,
				Match:          tt.match,
			})

			assert.Equal(t, tt.wantTone, v.outputs[action.AreaContacts].Tone)
			assert.Equal(t, tt.wantRecipients, v.Recipients())
			assert.Equal(t, tt.wantStatusErr, v.statusErr)
			assert.Equal(t, action.MsgFetching, v.statuses[0])
		})
	}
}

func TestController_FetchTransportErrorMessage(t *testing.T) {
	v := newRecordingView()
	c := NewController(&stubBackend{listErr: errors.New("unexpected EOF")}, v, zerolog.Nop())

	res := c.FetchContacts(context.Background(), action.ListFilter{TargetUsername: "x", ListType: action.ListFollowers})
	assert.Equal(t, action.KindError, res.Kind)
	assert.Equal(t, "Failed to fetch list. unexpected EOF", v.outputs[action.AreaContacts].Text)
}

func TestController_SendUsesEditedRecipients(t *testing.T) {
	b := &stubBackend{
		list: action.Result{Kind: action.KindSuccess, Contacts: []action.Contact{{PK: 1}, {PK: 2}}},
		send: action.Result{Kind: action.KindProcessing, Message: "Mass DM task started."},
	}
	v := newRecordingView()
	c := NewController(b, v, zerolog.Nop())

	c.FetchContacts(context.Background(), action.ListFilter{TargetUsername: "x", ListType: action.ListFollowers})
	require.Equal(t, "1, 2", v.Recipients())

	// The operator edits the field after the fetch.
	v.SetRecipients("3")

	c.SendBulk(context.Background(), action.SendRequest{Recipients: "ignored", Message: "hi", MaxRecipients: 1})
	require.Len(t, b.sent, 1)
	assert.Equal(t, "3", b.sent[0].Recipients)
	assert.Equal(t, "hi", b.sent[0].Message)
	assert.Equal(t, action.ToneInfo, v.outputs[action.AreaSend].Tone)
	assert.False(t, v.statusErr)
}

func TestController_SendFailureIsReported(t *testing.T) {
	v := newRecordingView()
	c := NewController(&stubBackend{sendErr: errors.New("connection reset")}, v, zerolog.Nop())

	res := c.SendBulk(context.Background(), action.SendRequest{})
	assert.Equal(t, action.KindError, res.Kind)
	assert.Equal(t, action.MsgSendFailed+" connection reset", v.status)
	assert.True(t, v.statusErr)
}

// TestController_EndToEnd runs a full session against an HTTP backend: login,
// a two user fetch, a send, and five progress lines on the log stream.
func TestController_EndToEnd(t *testing.T) {
	release := make(chan struct{})

	mux := http.NewServeMux()
	mux.HandleFunc("GET /status", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = fmt.Fprint(w, `{"logged_in": false}`)
	})
	mux.HandleFunc("POST /login", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = fmt.Fprint(w, `{"status": "success", "message": "Login successful."}`)
	})
	mux.HandleFunc("POST /get-list", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = fmt.Fprint(w, `{"status": "success", "users": [{"pk": 11, "username": "a", "full_name": "A"}, {"pk": 22, "username": "b", "full_name": "B"}]}`)
	})
	mux.HandleFunc("POST /send-dm", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		if r.PostForm.Get("recipient_pks") != "11, 22" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = fmt.Fprint(w, `{"detail": "bad recipients"}`)
			return
		}
		_, _ = fmt.Fprint(w, `{"status": "processing", "message": "Mass DM task started in the background."}`)
		close(release)
	})
	mux.HandleFunc("GET /logs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		flusher.Flush()

		select {
		case <-release:
		case <-r.Context().Done():
			return
		}
		for i := 1; i <= 5; i++ {
			_, _ = fmt.Fprintf(w, "data: {\"log\": \"2024-01-01 10:00:0%d - INFO - progress %d\"}\n\n", i, i)
			flusher.Flush()
		}
		<-r.Context().Done()
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	cfg := config.DefaultConfig()
	cfg.Backend.URL = srv.URL
	app := NewApp(cfg, BuildInfo{Version: "test"})

	v := newRecordingView()
	c := app.NewController(v)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	streamDone := make(chan error, 1)
	go func() { streamDone <- c.StreamLogs(ctx, app.NewLogConsumer()) }()

	assert.Equal(t, session.StateUnauthenticated, c.Probe(ctx))
	assert.Equal(t, session.StateAuthenticated, c.SubmitCredentials(ctx, backend.Credentials{Username: "op", Password: "pw"}))

	c.FetchContacts(ctx, action.ListFilter{TargetUsername: "nasa", ListType: action.ListFollowers})
	assert.Len(t, v.outputs[action.AreaContacts].Contacts, 2)
	assert.Equal(t, "11, 22", v.Recipients())

	res := c.SendBulk(ctx, action.SendRequest{Message: "hello", MinDelay: 1, MaxDelay: 2, MaxRecipients: 2})
	require.Equal(t, action.KindProcessing, res.Kind)

	require.Eventually(t, func() bool { return len(v.logLines()) == 5 }, 2*time.Second, 10*time.Millisecond)
	for i, line := range v.logLines() {
		assert.Contains(t, line, fmt.Sprintf("progress %d", i+1))
	}

	cancel()
	select {
	case err := <-streamDone:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("log stream did not stop")
	}
	assert.Len(t, v.logLines(), 5)
}
