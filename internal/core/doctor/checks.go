package doctor

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"mime"
	"net/http"
	"os"

	"github.com/hay-kot/criterio"

	"github.com/colonyops/dmctl/internal/core/config"
)

// ConfigCheck reports on the configuration file and the values loaded from it.
type ConfigCheck struct {
	cfg  *config.Config
	path string
}

// NewConfigCheck creates a config check for cfg, loaded from path.
func NewConfigCheck(cfg *config.Config, path string) *ConfigCheck {
	return &ConfigCheck{cfg: cfg, path: path}
}

func (c *ConfigCheck) Name() string {
	return "Configuration"
}

func (c *ConfigCheck) Run(_ context.Context) Result {
	result := Result{Name: c.Name()}

	switch _, err := os.Stat(c.path); {
	case c.path == "":
		result.Items = append(result.Items, CheckItem{Label: "file", Status: StatusPass, Detail: "defaults"})
	case errors.Is(err, fs.ErrNotExist):
		result.Items = append(result.Items, CheckItem{Label: "file", Status: StatusWarn, Detail: "not found, using defaults"})
	case err != nil:
		result.Items = append(result.Items, CheckItem{Label: "file", Status: StatusFail, Detail: err.Error()})
	default:
		result.Items = append(result.Items, CheckItem{Label: "file", Status: StatusPass, Detail: c.path})
	}

	if err := c.cfg.ValidateDeep(""); err != nil {
		var fieldErrs criterio.FieldErrors
		if errors.As(err, &fieldErrs) {
			for _, fe := range fieldErrs {
				result.Items = append(result.Items, CheckItem{Label: fe.Field, Status: StatusFail, Detail: fe.Err.Error()})
			}
		} else {
			result.Items = append(result.Items, CheckItem{Label: "values", Status: StatusFail, Detail: err.Error()})
		}
	} else {
		result.Items = append(result.Items, CheckItem{Label: "values", Status: StatusPass})
	}

	for _, w := range c.cfg.Warnings() {
		label := w.Category
		if w.Item != "" {
			label += "." + w.Item
		}
		result.Items = append(result.Items, CheckItem{Label: label, Status: StatusWarn, Detail: w.Message})
	}

	return result
}

// StatusProber reports whether the backend holds a session.
type StatusProber interface {
	Status(ctx context.Context) (bool, error)
}

// BackendCheck probes the status route once.
type BackendCheck struct {
	prober StatusProber
	url    string
}

// NewBackendCheck creates a check against the backend at url.
func NewBackendCheck(prober StatusProber, url string) *BackendCheck {
	return &BackendCheck{prober: prober, url: url}
}

func (c *BackendCheck) Name() string {
	return "Backend"
}

func (c *BackendCheck) Run(ctx context.Context) Result {
	result := Result{Name: c.Name()}

	loggedIn, err := c.prober.Status(ctx)
	if err != nil {
		result.Items = append(result.Items, CheckItem{Label: "reachable", Status: StatusFail, Detail: err.Error()})
		return result
	}
	result.Items = append(result.Items, CheckItem{Label: "reachable", Status: StatusPass, Detail: c.url})

	if loggedIn {
		result.Items = append(result.Items, CheckItem{Label: "session", Status: StatusPass, Detail: "logged in"})
	} else {
		result.Items = append(result.Items, CheckItem{Label: "session", Status: StatusWarn, Detail: "not logged in, run 'dmctl login'"})
	}

	return result
}

// LogStreamCheck opens the log event stream and closes it as soon as the
// response headers arrive.
type LogStreamCheck struct {
	client *http.Client
	url    string
}

// NewLogStreamCheck creates a check for the stream at url.
func NewLogStreamCheck(client *http.Client, url string) *LogStreamCheck {
	return &LogStreamCheck{client: client, url: url}
}

func (c *LogStreamCheck) Name() string {
	return "Log stream"
}

func (c *LogStreamCheck) Run(ctx context.Context) Result {
	result := Result{Name: c.Name()}

	item := CheckItem{Label: "stream"}
	if err := c.open(ctx); err != nil {
		item.Status = StatusFail
		item.Detail = err.Error()
	} else {
		item.Status = StatusPass
		item.Detail = c.url
	}

	result.Items = append(result.Items, item)
	return result
}

func (c *LogStreamCheck) open(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if mt, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type")); mt != "text/event-stream" {
		return fmt.Errorf("unexpected content type %q", resp.Header.Get("Content-Type"))
	}
	return nil
}
