package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"

	"github.com/hay-kot/criterio"
)

// ValidationWarning represents a non-fatal configuration issue.
type ValidationWarning struct {
	Category string `json:"category"`
	Item     string `json:"item,omitempty"`
	Message  string `json:"message"`
}

// ValidateDeep performs comprehensive validation of the configuration,
// including per-field endpoint checks and file accessibility. An empty
// configPath skips the config file check.
func (c *Config) ValidateDeep(configPath string) error {
	if err := c.Validate(); err != nil {
		return err
	}

	return criterio.ValidateStruct(
		validateConfigFile(configPath),
		c.validateEndpoints(),
	)
}

// Warnings returns non-fatal configuration issues.
func (c *Config) Warnings() []ValidationWarning {
	var warnings []ValidationWarning

	if u, err := url.Parse(c.Backend.URL); err == nil && u.Scheme == "http" && !isLoopback(u.Hostname()) {
		warnings = append(warnings, ValidationWarning{
			Category: "Backend",
			Item:     "url",
			Message:  "credentials will be sent over plain http to a non-local host",
		})
	}

	if c.Send.MinDelay == 0 && c.Send.MaxDelay == 0 {
		warnings = append(warnings, ValidationWarning{
			Category: "Send",
			Item:     "delay",
			Message:  "messages will be sent without any delay between recipients",
		})
	}

	return warnings
}

func validateConfigFile(configPath string) error {
	if configPath == "" {
		return nil
	}

	info, err := os.Stat(configPath)
	if os.IsNotExist(err) {
		return nil // not found is fine, using defaults
	}
	if err != nil {
		return criterio.NewFieldErrors("config_file", fmt.Errorf("cannot access: %w", err))
	}
	if info.IsDir() {
		return criterio.NewFieldErrors("config_file", fmt.Errorf("%s is a directory, not a file", configPath))
	}
	return nil
}

func (c *Config) validateEndpoints() error {
	e := c.Backend.Endpoints

	var errs criterio.FieldErrorsBuilder
	seen := make(map[string]string)
	for _, ep := range []struct{ name, path string }{
		{"status", e.Status},
		{"login", e.Login},
		{"challenge", e.Challenge},
		{"list", e.List},
		{"send", e.Send},
		{"logs", e.Logs},
	} {
		field := "backend.endpoints." + ep.name
		if err := validPath(ep.path); err != nil {
			errs = errs.Append(field, err)
			continue
		}
		if other, ok := seen[ep.path]; ok {
			errs = errs.Append(field, fmt.Errorf("path %q is already used by %s", ep.path, other))
			continue
		}
		seen[ep.path] = ep.name
	}

	return errs.ToError()
}

func validPath(p string) error {
	if !strings.HasPrefix(p, "/") {
		return fmt.Errorf("must start with '/', got %q", p)
	}
	if strings.ContainsAny(p, "?# ") {
		return fmt.Errorf("must be a bare path, got %q", p)
	}
	return nil
}

func isLoopback(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
