package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"

	"github.com/colonyops/dmctl/internal/core/config"
	"github.com/colonyops/dmctl/internal/pilot"
	"github.com/colonyops/dmctl/internal/printer"
	"github.com/colonyops/dmctl/pkg/iojson"
)

type backendStub struct {
	mu       sync.Mutex
	loggedIn bool
	forms    map[string][]map[string]string
	order    []string

	sentOnce sync.Once
	sent     chan struct{}
}

func (b *backendStub) record(r *http.Request) {
	_ = r.ParseForm()
	form := map[string]string{}
	for k := range r.PostForm {
		form[k] = r.PostForm.Get(k)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.forms == nil {
		b.forms = map[string][]map[string]string{}
	}
	b.forms[r.URL.Path] = append(b.forms[r.URL.Path], form)
	b.order = append(b.order, r.URL.Path)
}

func (b *backendStub) requestOrder() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.order...)
}

func (b *backendStub) calls(path string) []map[string]string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.forms[path]
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func (b *backendStub) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /status", func(w http.ResponseWriter, _ *http.Request) {
		b.mu.Lock()
		loggedIn := b.loggedIn
		b.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]bool{"logged_in": loggedIn})
	})
	mux.HandleFunc("POST /login", func(w http.ResponseWriter, r *http.Request) {
		b.record(r)
		writeJSON(w, http.StatusOK, map[string]string{"status": "2fa_required", "message": "2FA required."})
	})
	mux.HandleFunc("POST /complete-2fa", func(w http.ResponseWriter, r *http.Request) {
		b.record(r)
		if r.PostForm.Get("code") != "123456" {
			writeJSON(w, http.StatusOK, map[string]string{"status": "error", "message": "Incorrect 2FA code."})
			return
		}
		b.mu.Lock()
		b.loggedIn = true
		b.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]string{"status": "success", "message": "Login successful!"})
	})
	mux.HandleFunc("POST /get-list", func(w http.ResponseWriter, r *http.Request) {
		b.record(r)
		if r.PostForm.Get("target_username") == "ghost" {
			writeJSON(w, http.StatusNotFound, map[string]string{"detail": "User 'ghost' not found."})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "success", "users": []map[string]any{
			{"pk": 11, "username": "nasa_fan", "full_name": "Nasa Fan"},
			{"pk": 22, "username": "spacex", "full_name": "Space X"},
			{"pk": 33, "username": "nasa_jpl", "full_name": "JPL"},
		}})
	})
	mux.HandleFunc("POST /send-dm", func(w http.ResponseWriter, r *http.Request) {
		b.record(r)
		b.sentOnce.Do(func() { close(b.sent) })
		writeJSON(w, http.StatusOK, map[string]string{
			"status":  "processing",
			"message": "Mass DM task started in the background. Check logs for progress.",
		})
	})
	mux.HandleFunc("GET /logs", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.order = append(b.order, r.URL.Path)
		b.mu.Unlock()

		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		w.(http.Flusher).Flush()

		select {
		case <-b.sent:
		case <-r.Context().Done():
			return
		}
		_, _ = w.Write([]byte("data: {\"log\": \"INFO - Sent DM to 11\"}\n\n"))
		w.(http.Flusher).Flush()
	})
	return mux
}

type harness struct {
	t       *testing.T
	backend *backendStub
	flags   *Flags
	app     *pilot.App
	out     bytes.Buffer
	errOut  bytes.Buffer
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	orig := isInteractive
	isInteractive = func() bool { return false }
	t.Cleanup(func() { isInteractive = orig })

	stub := &backendStub{sent: make(chan struct{})}
	srv := httptest.NewServer(stub.handler())
	t.Cleanup(srv.Close)

	cfg := config.DefaultConfig()
	cfg.Backend.URL = srv.URL

	h := &harness{
		t:       t,
		backend: stub,
		flags:   &Flags{Config: &cfg, ConfigPath: filepath.Join(t.TempDir(), "config.yaml")},
	}
	h.app = pilot.NewApp(&cfg, pilot.BuildInfo{Version: "test"})
	return h
}

// run executes args against a fresh command tree and returns the exit code.
func (h *harness) run(args ...string) int {
	h.t.Helper()
	h.out.Reset()
	h.errOut.Reset()

	root := &cli.Command{
		Name:      "dmctl",
		Writer:    &h.out,
		ErrWriter: &h.errOut,
		// keep cli from calling os.Exit
		ExitErrHandler: func(context.Context, *cli.Command, error) {},
	}
	root = NewStatusCmd(h.flags, h.app).Register(root)
	root = NewLoginCmd(h.flags, h.app).Register(root)
	root = NewListCmd(h.flags, h.app).Register(root)
	root = NewSendCmd(h.flags, h.app).Register(root)
	root = NewDoctorCmd(h.flags, h.app).Register(root)
	root = NewConfigValidateCmd(h.flags).Register(root)

	ctx := printer.NewContext(context.Background(), printer.New(&h.out, &h.errOut))

	err := root.Run(ctx, append([]string{"dmctl"}, args...))
	if err == nil {
		return 0
	}
	var exit cli.ExitCoder
	if errors.As(err, &exit) {
		return exit.ExitCode()
	}
	h.errOut.WriteString(err.Error())
	return 2
}

func TestStatusCmd_JSON(t *testing.T) {
	h := newHarness(t)

	require.Equal(t, 0, h.run("status", "--json"))

	var out statusOutput
	require.NoError(t, json.Unmarshal(h.out.Bytes(), &out))
	assert.False(t, out.LoggedIn)
	assert.Equal(t, "unauthenticated", out.State)
}

func TestStatusCmd_Unreachable(t *testing.T) {
	h := newHarness(t)
	h.app.Config.Backend.URL = "http://127.0.0.1:1"
	h.app = pilot.NewApp(h.app.Config, pilot.BuildInfo{})

	assert.Equal(t, 1, h.run("status"))
}

func TestStatusCmd_UnreachableJSON(t *testing.T) {
	h := newHarness(t)
	h.app.Config.Backend.URL = "http://127.0.0.1:1"
	h.app = pilot.NewApp(h.app.Config, pilot.BuildInfo{})

	assert.Equal(t, 1, h.run("status", "--json"))

	var out iojson.Error
	require.NoError(t, json.Unmarshal(h.out.Bytes(), &out))
	assert.Equal(t, "Cannot reach backend.", out.Message)
	assert.Equal(t, "unknown", out.Data["state"])
}

func TestStatusCmd_InvalidConfig(t *testing.T) {
	h := newHarness(t)
	h.flags.ConfigErr = assert.AnError

	assert.Equal(t, 2, h.run("status"))
	assert.Contains(t, h.errOut.String(), "dmctl config validate")
}

func TestLoginCmd_WithChallengeCode(t *testing.T) {
	h := newHarness(t)

	require.Equal(t, 0, h.run("login", "--username", "op", "--password", "secret", "--code", "123456"))

	logins := h.backend.calls("/login")
	require.Len(t, logins, 1)
	assert.Equal(t, "op", logins[0]["username"])
	assert.Equal(t, "secret", logins[0]["password"])

	challenges := h.backend.calls("/complete-2fa")
	require.Len(t, challenges, 1)
	assert.Equal(t, "123456", challenges[0]["code"])
}

func TestLoginCmd_WrongCodeWithoutTerminal(t *testing.T) {
	h := newHarness(t)

	assert.Equal(t, 2, h.run("login", "-u", "op", "--password", "secret", "--code", "000000"))
	assert.Contains(t, h.errOut.String(), "Incorrect 2FA code.")
	assert.Contains(t, h.errOut.String(), "--code")
}

func TestLoginCmd_MissingCredentialsWithoutTerminal(t *testing.T) {
	h := newHarness(t)

	assert.Equal(t, 2, h.run("login", "--username", "op"))
	assert.Empty(t, h.backend.calls("/login"))
}

func TestListCmd_Output(t *testing.T) {
	tests := []struct {
		name   string
		args   []string
		assert func(t *testing.T, out string)
	}{
		{
			name: "table",
			args: []string{"list", "nasa"},
			assert: func(t *testing.T, out string) {
				assert.Contains(t, out, "USERNAME")
				assert.Contains(t, out, "spacex")
				assert.Contains(t, out, "Nasa Fan")
			},
		},
		{
			name: "pks",
			args: []string{"list", "--pks", "nasa"},
			assert: func(t *testing.T, out string) {
				assert.Equal(t, "11, 22, 33\n", out)
			},
		},
		{
			name: "pks with match",
			args: []string{"list", "--pks", "--match", "nasa*", "nasa"},
			assert: func(t *testing.T, out string) {
				assert.Equal(t, "11, 33\n", out)
			},
		},
		{
			name: "json lines",
			args: []string{"list", "--json", "--target", "nasa"},
			assert: func(t *testing.T, out string) {
				lines := strings.Split(strings.TrimSpace(out), "\n")
				require.Len(t, lines, 3)
				assert.JSONEq(t, `{"pk":22,"username":"spacex","full_name":"Space X"}`, lines[1])
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			require.Equal(t, 0, h.run(tt.args...), h.errOut.String())
			tt.assert(t, h.out.String())
		})
	}
}

func TestListCmd_ListType(t *testing.T) {
	h := newHarness(t)

	require.Equal(t, 0, h.run("list", "--type", "following", "nasa"))

	calls := h.backend.calls("/get-list")
	require.Len(t, calls, 1)
	assert.Equal(t, "following", calls[0]["list_type"])
	assert.Equal(t, "nasa", calls[0]["target_username"])
}

func TestListCmd_BackendError(t *testing.T) {
	h := newHarness(t)

	assert.Equal(t, 1, h.run("list", "ghost"))
	assert.Contains(t, h.errOut.String(), "User 'ghost' not found.")
}

func TestListCmd_BackendErrorJSON(t *testing.T) {
	h := newHarness(t)

	assert.Equal(t, 1, h.run("list", "--json", "ghost"))

	var out iojson.Error
	require.NoError(t, json.Unmarshal(h.out.Bytes(), &out))
	assert.Equal(t, "User 'ghost' not found.", out.Message)
	assert.Equal(t, "error", out.Data["kind"])
	assert.Equal(t, "ghost", out.Data["target"])
}

func TestListCmd_RejectsBadInput(t *testing.T) {
	h := newHarness(t)

	assert.Equal(t, 2, h.run("list", "--type", "blocked", "nasa"))
	assert.Equal(t, 2, h.run("list"))
	assert.Empty(t, h.backend.calls("/get-list"))
}

func TestSendCmd_Flags(t *testing.T) {
	h := newHarness(t)

	require.Equal(t, 0, h.run("send",
		"--to", "11, 22",
		"--message", "hello",
		"--min-delay", "1",
		"--max-delay", "2",
	), h.errOut.String())

	calls := h.backend.calls("/send-dm")
	require.Len(t, calls, 1)
	assert.Equal(t, "11, 22", calls[0]["recipient_pks"])
	assert.Equal(t, "hello", calls[0]["message"])
	assert.Equal(t, "1", calls[0]["min_delay"])
	assert.Equal(t, "2", calls[0]["max_delay"])
	assert.Equal(t, "20", calls[0]["max_recipients"], "max recipients falls back to config")
	assert.Contains(t, h.out.String(), "started")
}

func TestSendCmd_File(t *testing.T) {
	h := newHarness(t)

	path := filepath.Join(t.TempDir(), "job.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"recipients":"5","message":"hi","min_delay":0,"max_delay":0}`), 0o600))

	require.Equal(t, 0, h.run("send", "--file", path), h.errOut.String())

	calls := h.backend.calls("/send-dm")
	require.Len(t, calls, 1)
	assert.Equal(t, "5", calls[0]["recipient_pks"])
	assert.Equal(t, "20", calls[0]["max_recipients"])
}

func TestSendCmd_FollowConnectsBeforeSending(t *testing.T) {
	h := newHarness(t)

	// the stub closes the stream after one line, which ends the command
	assert.Equal(t, 1, h.run("send", "--to", "11", "-m", "hi", "--follow"))

	assert.Equal(t, []string{"/logs", "/send-dm"}, h.backend.requestOrder())
	assert.Contains(t, h.out.String(), "Sent DM to 11")
	assert.Contains(t, h.out.String(), "Log stream disconnected")
}

func TestSendCmd_ValidatesBeforeRequest(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "no recipients", args: []string{"send", "--message", "hi"}, want: "no recipients provided"},
		{name: "bad pk", args: []string{"send", "--to", "1,abc", "--message", "hi"}, want: `invalid recipient "abc"`},
		{name: "empty message", args: []string{"send", "--to", "1"}, want: "message cannot be empty"},
		{name: "inverted delays", args: []string{"send", "--to", "1", "-m", "hi", "--min-delay", "9", "--max-delay", "3"}, want: "invalid delay range 9-3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			assert.Equal(t, 2, h.run(tt.args...))
			assert.Contains(t, h.errOut.String(), tt.want)
			assert.Empty(t, h.backend.calls("/send-dm"))
		})
	}
}

func TestConfigValidateCmd_JSON(t *testing.T) {
	h := newHarness(t)
	h.flags.Config.Send.MaxRecipients = 0
	h.flags.ConfigErr = h.flags.Config.Validate()

	assert.Equal(t, 1, h.run("config", "validate", "--format", "json"))

	var out struct {
		Valid  bool              `json:"valid"`
		Errors []ValidationError `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(h.out.Bytes(), &out))
	assert.False(t, out.Valid)
	require.NotEmpty(t, out.Errors)
	assert.Contains(t, out.Errors[0].Message, "max_recipients")
}

func TestConfigValidateCmd_Valid(t *testing.T) {
	h := newHarness(t)

	assert.Equal(t, 0, h.run("config", "validate"))
	assert.Contains(t, h.out.String(), "Configuration is valid")
}

func TestDoctorCmd_JSON(t *testing.T) {
	h := newHarness(t)

	assert.Equal(t, 0, h.run("doctor", "--format", "json"), h.errOut.String())

	var out struct {
		Version string `json:"version"`
		Healthy bool   `json:"healthy"`
		Summary struct {
			Failed int `json:"failed"`
			Warned int `json:"warned"`
		} `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(h.out.Bytes(), &out))
	assert.Equal(t, "test", out.Version)
	assert.True(t, out.Healthy)
	assert.Zero(t, out.Summary.Failed)
	assert.GreaterOrEqual(t, out.Summary.Warned, 1, "missing config file and logged out session")
}

func TestDoctorCmd_UnreachableBackend(t *testing.T) {
	h := newHarness(t)
	h.app.Config.Backend.URL = "http://127.0.0.1:1"
	h.app = pilot.NewApp(h.app.Config, pilot.BuildInfo{Version: "test"})

	assert.Equal(t, 1, h.run("doctor"))
	assert.Contains(t, h.out.String(), "dmctl doctor test")
	assert.Contains(t, h.out.String(), "1 passed")
}
