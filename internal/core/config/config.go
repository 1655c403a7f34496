// Package config handles configuration loading and validation for dmctl.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/colonyops/dmctl/internal/core/styles"
)

// Config holds the application configuration.
type Config struct {
	Backend BackendConfig `yaml:"backend"`
	Send    SendConfig    `yaml:"send"`
	Logs    LogsConfig    `yaml:"logs"`
	TUI     TUIConfig     `yaml:"tui"`
}

// BackendConfig locates the automation service.
type BackendConfig struct {
	URL       string    `yaml:"url" env:"DMCTL_BACKEND_URL"`
	Endpoints Endpoints `yaml:"endpoints"`
}

// Endpoints are the paths of the backend routes, relative to URL.
type Endpoints struct {
	Status    string `yaml:"status" env:"DMCTL_ENDPOINT_STATUS"`
	Login     string `yaml:"login" env:"DMCTL_ENDPOINT_LOGIN"`
	Challenge string `yaml:"challenge" env:"DMCTL_ENDPOINT_CHALLENGE"`
	List      string `yaml:"list" env:"DMCTL_ENDPOINT_LIST"`
	Send      string `yaml:"send" env:"DMCTL_ENDPOINT_SEND"`
	Logs      string `yaml:"logs" env:"DMCTL_ENDPOINT_LOGS"`
}

// SendConfig holds the defaults pre-filled into the bulk message form.
type SendConfig struct {
	MinDelay      int `yaml:"min_delay" env:"DMCTL_SEND_MIN_DELAY"`           // seconds
	MaxDelay      int `yaml:"max_delay" env:"DMCTL_SEND_MAX_DELAY"`           // seconds
	MaxRecipients int `yaml:"max_recipients" env:"DMCTL_SEND_MAX_RECIPIENTS"` // per job
}

// LogsConfig controls how much of the log feed is retained.
type LogsConfig struct {
	// MaxLines caps retained log lines. 0 keeps everything.
	MaxLines int `yaml:"max_lines" env:"DMCTL_LOGS_MAX_LINES"`
}

// TUIConfig holds terminal UI settings.
type TUIConfig struct {
	Theme string `yaml:"theme" env:"DMCTL_THEME"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Backend: BackendConfig{
			URL:       "http://localhost:8000",
			Endpoints: DefaultEndpoints(),
		},
		Send: SendConfig{
			MinDelay:      30,
			MaxDelay:      90,
			MaxRecipients: 20,
		},
		TUI: TUIConfig{
			Theme: styles.DefaultTheme,
		},
	}
}

// DefaultEndpoints returns the routes served by the automation backend.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		Status:    "/status",
		Login:     "/login",
		Challenge: "/complete-2fa",
		List:      "/get-list",
		Send:      "/send-dm",
		Logs:      "/logs",
	}
}

// Load reads configuration from the given path, then applies environment
// overrides. If configPath is empty or doesn't exist, defaults are used.
func Load(configPath string) (*Config, error) {
	cfg, err := Read(configPath)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Read is Load without validation.
func Read(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			data, err := os.ReadFile(configPath)
			if err != nil {
				return nil, fmt.Errorf("read config file: %w", err)
			}

			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parse config file: %w", err)
			}
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	cfg.applyDefaults()

	return &cfg, nil
}

// applyDefaults sets default values for any unset configuration options.
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()

	if c.Backend.URL == "" {
		c.Backend.URL = defaults.Backend.URL
	}
	c.Backend.URL = strings.TrimRight(c.Backend.URL, "/")

	e, d := &c.Backend.Endpoints, defaults.Backend.Endpoints
	for _, p := range []struct {
		v   *string
		def string
	}{
		{&e.Status, d.Status},
		{&e.Login, d.Login},
		{&e.Challenge, d.Challenge},
		{&e.List, d.List},
		{&e.Send, d.Send},
		{&e.Logs, d.Logs},
	} {
		if *p.v == "" {
			*p.v = p.def
		}
	}

	if c.Send.MaxRecipients == 0 {
		c.Send.MaxRecipients = defaults.Send.MaxRecipients
	}
	if c.TUI.Theme == "" {
		c.TUI.Theme = defaults.TUI.Theme
	}
}

// URLFor joins an endpoint path onto the backend URL.
func (b BackendConfig) URLFor(path string) string {
	return b.URL + "/" + strings.TrimLeft(path, "/")
}

// Validate checks that the configuration is structurally valid.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Backend.URL)
	if err != nil {
		return fmt.Errorf("backend.url is invalid: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("backend.url must use http or https, got %q", c.Backend.URL)
	}
	if u.Host == "" {
		return fmt.Errorf("backend.url must include a host")
	}

	if c.Send.MinDelay < 0 || c.Send.MaxDelay < 0 || c.Send.MinDelay > c.Send.MaxDelay {
		return fmt.Errorf("send delays must satisfy 0 <= min_delay <= max_delay")
	}
	if c.Send.MaxRecipients < 1 {
		return fmt.Errorf("send.max_recipients must be at least 1")
	}

	if c.Logs.MaxLines < 0 {
		return fmt.Errorf("logs.max_lines cannot be negative")
	}

	if _, ok := styles.GetPalette(c.TUI.Theme); !ok {
		return fmt.Errorf("tui.theme %q is not one of %s", c.TUI.Theme, strings.Join(styles.ThemeNames(), ", "))
	}

	return nil
}
