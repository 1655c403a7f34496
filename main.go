package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/colonyops/dmctl/internal/commands"
	"github.com/colonyops/dmctl/internal/core/config"
	"github.com/colonyops/dmctl/internal/core/logging"
	"github.com/colonyops/dmctl/internal/core/styles"
	"github.com/colonyops/dmctl/internal/pilot"
	"github.com/colonyops/dmctl/internal/printer"
	"github.com/colonyops/dmctl/pkg/logutils"
	"github.com/colonyops/dmctl/pkg/utils"
)

var (
	// Build information. Populated at build-time via -ldflags flag.
	// When installed via `go install module@version`, init() populates
	// these from runtime/debug.BuildInfo instead.
	version = "dev"
	commit  = "HEAD"
	date    = "now"
)

func buildInfo() pilot.BuildInfo {
	v, c, d := version, commit, date

	// When installed via `go install module@version`, ldflags aren't set
	// so version remains "dev". Fall back to runtime/debug.BuildInfo which
	// Go populates automatically with the module version and VCS metadata.
	if v == "dev" {
		if info, ok := debug.ReadBuildInfo(); ok {
			if mv := info.Main.Version; mv != "" && mv != "(devel)" {
				v = mv
			}
			for _, s := range info.Settings {
				switch s.Key {
				case "vcs.revision":
					c = s.Value
				case "vcs.time":
					d = s.Value
				}
			}
		}
	}

	return pilot.BuildInfo{Version: v, Commit: c, Date: d}
}

func (b buildString) String() string {
	short := b.Commit
	if len(short) > 7 {
		short = short[:7]
	}
	return fmt.Sprintf("%s (%s) %s", b.Version, short, b.Date)
}

type buildString pilot.BuildInfo

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	var (
		logCloser func()
		// console holds log output when no log file is configured, so it
		// does not draw over the operator page.
		console = &utils.DeferredWriter{Limit: 1 << 20}
		build   = buildInfo()
		dmApp   = &pilot.App{}
	)

	flags := &commands.Flags{}

	app := &cli.Command{
		Name:      "dmctl",
		Usage:     "Operate a bulk direct message bot",
		UsageText: "dmctl [global options] command [command options]",
		Description: `dmctl drives a remote automation backend that logs into a social media
account, fetches follower and following lists, and sends bulk direct messages.

Run 'dmctl' with no arguments to open the interactive operator page.
Every page action is also available as a command for scripting.`,
		Version:               buildString(build).String(),
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "log level (debug, info, warn, error, fatal, panic)",
				Sources:     cli.EnvVars("DMCTL_LOG_LEVEL"),
				Value:       "info",
				Destination: &flags.LogLevel,
			},
			&cli.StringFlag{
				Name:        "log-file",
				Usage:       "path to log file",
				Sources:     cli.EnvVars("DMCTL_LOG_FILE"),
				Value:       commands.DefaultLogFile(),
				Destination: &flags.LogFile,
			},
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "path to config file",
				Sources:     cli.EnvVars("DMCTL_CONFIG"),
				Value:       commands.DefaultConfigPath(),
				Destination: &flags.ConfigPath,
			},
			&cli.StringFlag{
				Name:        "backend",
				Aliases:     []string{"b"},
				Usage:       "backend base URL, overrides the config file",
				Destination: &flags.BackendURL,
			},
		},
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			logger, closer, err := logutils.New(flags.LogLevel, flags.LogFile, console)
			if err != nil {
				return ctx, fmt.Errorf("setup logger: %w", err)
			}
			logger = logger.Hook(logging.ContextHook{})
			log.Logger = logger
			logCloser = closer

			cfg, err := config.Read(flags.ConfigPath)
			if err != nil {
				return ctx, fmt.Errorf("load config: %w", err)
			}
			if flags.BackendURL != "" {
				cfg.Backend.URL = flags.BackendURL
			}

			flags.Config = cfg
			flags.ConfigErr = cfg.Validate()
			if flags.ConfigErr != nil {
				log.Warn().Err(flags.ConfigErr).Str("path", flags.ConfigPath).Msg("invalid config")
			}

			// Apply configured theme; an unknown name keeps the default.
			if palette, ok := styles.GetPalette(cfg.TUI.Theme); ok {
				styles.SetTheme(palette)
			}

			// Populate the pre-allocated App (commands already hold a pointer to it)
			*dmApp = *pilot.NewApp(cfg, build)

			log.Debug().Str("version", build.Version).Str("backend", cfg.Backend.URL).Msg("dmctl starting")

			ctx = logger.WithContext(ctx)
			ctx = printer.NewContext(ctx, printer.New(c.Root().Writer, c.Root().ErrWriter))
			return ctx, nil
		},
		After: func(ctx context.Context, c *cli.Command) error {
			if logCloser != nil {
				logCloser()
			}
			return nil
		},
	}

	tuiCmd := commands.NewTuiCmd(flags, dmApp)

	app = tuiCmd.Register(app)
	app = commands.NewStatusCmd(flags, dmApp).Register(app)
	app = commands.NewLoginCmd(flags, dmApp).Register(app)
	app = commands.NewListCmd(flags, dmApp).Register(app)
	app = commands.NewSendCmd(flags, dmApp).Register(app)
	app = commands.NewLogsCmd(flags, dmApp).Register(app)
	app = commands.NewDoctorCmd(flags, dmApp).Register(app)
	app = commands.NewConfigValidateCmd(flags).Register(app)

	// Set TUI as default action when no subcommand is provided
	app.Action = func(ctx context.Context, c *cli.Command) error {
		if c.Args().Len() > 0 {
			return fmt.Errorf("unknown command %q. Run 'dmctl --help' for usage", c.Args().First())
		}
		return tuiCmd.Run(ctx, c)
	}

	exitCode := 0
	runErr := app.Run(ctx, os.Args)
	stop()

	_ = console.Flush(os.Stderr)

	if runErr != nil {
		if msg := runErr.Error(); msg != "" {
			fmt.Fprintln(os.Stderr)
			fmt.Fprintln(os.Stderr, msg)
		}
		exitCode = 1
		var exitErr cli.ExitCoder
		if errors.As(runErr, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
	}

	os.Exit(exitCode)
}
