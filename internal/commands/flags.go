package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/dmctl/internal/core/config"
)

type Flags struct {
	LogLevel   string
	LogFile    string
	ConfigPath string
	BackendURL string

	// Config is loaded in the Before hook and available to all commands
	Config *config.Config

	// ConfigErr holds the validation failure of Config, if any. An invalid
	// config is still loaded so `config validate` can report on it.
	ConfigErr error
}

// RequireValidConfig is a Before hook for commands that talk to the backend.
func (f *Flags) RequireValidConfig(ctx context.Context, _ *cli.Command) (context.Context, error) {
	if f.ConfigErr != nil {
		return ctx, fmt.Errorf("invalid config (run 'dmctl config validate' for details): %w", f.ConfigErr)
	}
	return ctx, nil
}

// DefaultConfigPath returns the default config file path using XDG_CONFIG_HOME.
func DefaultConfigPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, _ := os.UserHomeDir()
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "dmctl", "config.yaml")
}

// DefaultLogFile returns the default log file path using the system's state directory.
// On macOS: ~/Library/Logs/dmctl/dmctl.log
// On Linux: $XDG_STATE_HOME/dmctl/dmctl.log (defaults to ~/.local/state/dmctl/dmctl.log)
func DefaultLogFile() string {
	stateHome := os.Getenv("XDG_STATE_HOME")
	if stateHome != "" {
		return filepath.Join(stateHome, "dmctl", "dmctl.log")
	}

	home, _ := os.UserHomeDir()

	if runtime.GOOS == "darwin" {
		return filepath.Join(home, "Library", "Logs", "dmctl", "dmctl.log")
	}

	return filepath.Join(home, ".local", "state", "dmctl", "dmctl.log")
}
