// Package backend is the HTTP client for the remote automation service.
//
// Every POST is form-encoded and every response is JSON. Session continuity
// is carried by the transport (an in-memory cookie jar); no token is sent.
package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/colonyops/dmctl/internal/core/action"
	"github.com/colonyops/dmctl/internal/core/config"
	"github.com/colonyops/dmctl/internal/core/logging"
)

// RequestIDHeader carries the per-request correlation ID.
const RequestIDHeader = "X-Request-ID"

// maxBodySize bounds how much of a response body is read.
const maxBodySize = 32 << 20

// Credentials are the operator's login input. They are never stored.
type Credentials struct {
	Username string
	Password string
}

// AuthReply is the body returned by the login and challenge endpoints.
type AuthReply struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// APIError is returned for a non-2xx response.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("backend returned %d", e.StatusCode)
	}
	return fmt.Sprintf("backend returned %d: %s", e.StatusCode, e.Detail)
}

// Client talks to the automation backend.
type Client struct {
	cfg  config.BackendConfig
	http *http.Client
	log  zerolog.Logger
}

// New creates a client. Requests have no timeout; callers cancel through
// their context.
func New(cfg config.BackendConfig, log zerolog.Logger) *Client {
	jar, _ := cookiejar.New(nil) // only errors on invalid options
	return &Client{
		cfg:  cfg,
		http: &http.Client{Jar: jar},
		log:  log,
	}
}

// HTTPClient returns the underlying client so streams share its cookies.
func (c *Client) HTTPClient() *http.Client {
	return c.http
}

// LogsURL returns the absolute URL of the log event stream.
func (c *Client) LogsURL() string {
	return c.cfg.URLFor(c.cfg.Endpoints.Logs)
}

// Status asks whether the backend already holds an authenticated session.
func (c *Client) Status(ctx context.Context) (bool, error) {
	var body struct {
		LoggedIn *bool `json:"logged_in"`
	}
	if err := c.do(ctx, http.MethodGet, c.cfg.Endpoints.Status, nil, &body); err != nil {
		return false, err
	}
	if body.LoggedIn == nil {
		return false, fmt.Errorf("decode status: missing logged_in")
	}
	return *body.LoggedIn, nil
}

// Login submits credentials.
func (c *Client) Login(ctx context.Context, creds Credentials) (AuthReply, error) {
	form := url.Values{
		"username": {creds.Username},
		"password": {creds.Password},
	}
	return c.auth(ctx, c.cfg.Endpoints.Login, form)
}

// CompleteChallenge submits a second-factor code.
func (c *Client) CompleteChallenge(ctx context.Context, code string) (AuthReply, error) {
	return c.auth(ctx, c.cfg.Endpoints.Challenge, url.Values{"code": {code}})
}

func (c *Client) auth(ctx context.Context, path string, form url.Values) (AuthReply, error) {
	var reply AuthReply
	err := c.do(ctx, http.MethodPost, path, form, &reply)

	// A rejected login still carries a reply the operator should see.
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return AuthReply{Status: "error", Message: apiErr.Detail}, nil
	}
	if err != nil {
		return AuthReply{}, err
	}
	return reply, nil
}

type listBody struct {
	Status  string           `json:"status"`
	Message string           `json:"message"`
	Users   []action.Contact `json:"users"`
}

// FetchContacts requests the contact list described by f. Backend-reported
// failures are returned as a KindError result; only transport and decoding
// failures are returned as errors.
func (c *Client) FetchContacts(ctx context.Context, f action.ListFilter) (action.Result, error) {
	form := url.Values{
		"target_username": {f.TargetUsername},
		"list_type":       {string(f.ListType)},
	}

	var body listBody
	err := c.do(ctx, http.MethodPost, c.cfg.Endpoints.List, form, &body)
	if res, ok := errorResult(err); ok {
		return res, nil
	}
	if err != nil {
		return action.Result{}, err
	}

	switch action.Kind(body.Status) {
	case action.KindSuccess:
		users := body.Users
		if users == nil {
			users = []action.Contact{}
		}
		return action.Result{Kind: action.KindSuccess, Contacts: users}, nil
	case action.KindWarning:
		return action.Result{Kind: action.KindWarning, Message: body.Message}, nil
	default:
		return action.Result{Kind: action.KindError, Message: body.Message}, nil
	}
}

type sendBody struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// SendBulk starts a background bulk message job. The response only confirms
// the job started; progress is reported on the log stream.
func (c *Client) SendBulk(ctx context.Context, r action.SendRequest) (action.Result, error) {
	form := url.Values{
		"recipient_pks":  {r.Recipients},
		"message":        {r.Message},
		"min_delay":      {strconv.Itoa(r.MinDelay)},
		"max_delay":      {strconv.Itoa(r.MaxDelay)},
		"max_recipients": {strconv.Itoa(r.MaxRecipients)},
	}

	var body sendBody
	err := c.do(ctx, http.MethodPost, c.cfg.Endpoints.Send, form, &body)
	if res, ok := errorResult(err); ok {
		return res, nil
	}
	if err != nil {
		return action.Result{}, err
	}

	kind := action.Kind(body.Status)
	if kind == "" {
		kind = action.KindError
	}
	return action.Result{Kind: kind, Message: body.Message}, nil
}

func errorResult(err error) (action.Result, bool) {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return action.Result{}, false
	}
	return action.Result{Kind: action.KindError, Message: apiErr.Detail}, true
}

// do sends one request and decodes a 2xx JSON body into out. A non-2xx
// response is returned as *APIError.
func (c *Client) do(ctx context.Context, method, path string, form url.Values, out any) error {
	id := uuid.NewString()
	ctx = logging.WithRequestID(ctx, id)

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.URLFor(path), body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, id)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	c.log.Debug().Ctx(ctx).Str("method", method).Str("path", path).Msg("request")

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn().Ctx(ctx).Err(err).Str("path", path).Msg("request failed")
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	c.log.Debug().Ctx(ctx).Int("status", resp.StatusCode).Str("path", path).Msg("response")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{StatusCode: resp.StatusCode, Detail: parseDetail(data)}
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// parseDetail extracts a FastAPI style {"detail": ...} message. Structured
// details are returned as their raw JSON.
func parseDetail(data []byte) string {
	var body struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(data, &body); err != nil || len(body.Detail) == 0 || string(body.Detail) == "null" {
		return ""
	}

	var s string
	if err := json.Unmarshal(body.Detail, &s); err == nil {
		return s
	}
	return string(body.Detail)
}
