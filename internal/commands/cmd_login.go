package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v3"

	"github.com/colonyops/dmctl/internal/backend"
	"github.com/colonyops/dmctl/internal/core/session"
	"github.com/colonyops/dmctl/internal/core/styles"
	"github.com/colonyops/dmctl/internal/pilot"
	"github.com/colonyops/dmctl/internal/printer"
)

type LoginCmd struct {
	flags *Flags
	app   *pilot.App

	// flags
	username string
	password string
	code     string
}

// NewLoginCmd creates a new login command
func NewLoginCmd(flags *Flags, app *pilot.App) *LoginCmd {
	return &LoginCmd{flags: flags, app: app}
}

// Register adds the login command to the application
func (cmd *LoginCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "login",
		Usage:     "Log the backend into the bot account",
		UsageText: "dmctl login [--username name] [--password pass] [--code 123456]",
		Description: `Submits credentials to the backend. Missing values are prompted for when
running in a terminal. If the backend asks for a second factor the code is
taken from --code, or prompted for until it is accepted.

Credentials are sent once and never stored.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "username",
				Aliases:     []string{"u"},
				Usage:       "account username",
				Sources:     cli.EnvVars("DMCTL_USERNAME"),
				Destination: &cmd.username,
			},
			&cli.StringFlag{
				Name:        "password",
				Usage:       "account password",
				Sources:     cli.EnvVars("DMCTL_PASSWORD"),
				Destination: &cmd.password,
			},
			&cli.StringFlag{
				Name:        "code",
				Usage:       "two-factor code, used for the first challenge only",
				Destination: &cmd.code,
			},
		},
		Before: cmd.flags.RequireValidConfig,
		Action: cmd.run,
	})

	return app
}

func (cmd *LoginCmd) run(ctx context.Context, _ *cli.Command) error {
	log := zerolog.Ctx(ctx)
	p := printer.Ctx(ctx)

	if cmd.username == "" || cmd.password == "" {
		if !isInteractive() {
			return errors.New("username and password are required when not running in a terminal")
		}
		if err := cmd.credentialsForm(); err != nil {
			if errors.Is(err, huh.ErrUserAborted) {
				return nil
			}
			return fmt.Errorf("form: %w", err)
		}
	}

	ctrl := cmd.app.NewController(newCLIView(p, false))

	log.Info().Str("username", cmd.username).Msg("login invoked")
	state := ctrl.SubmitCredentials(ctx, backend.Credentials{
		Username: cmd.username,
		Password: cmd.password,
	})

	for state == session.StateChallengePending {
		code := cmd.code
		cmd.code = ""

		if code == "" {
			if !isInteractive() {
				return errors.New("a verification code is required; pass --code")
			}
			var err error
			code, err = cmd.challengeForm()
			if errors.Is(err, huh.ErrUserAborted) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("form: %w", err)
			}
		}

		state = ctrl.SubmitChallenge(ctx, code)
	}

	if state != session.StateAuthenticated {
		return cli.Exit("", 1)
	}
	return nil
}

func notBlank(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", field)
		}
		return nil
	}
}

func (cmd *LoginCmd) credentialsForm() error {
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Username").
				Value(&cmd.username).
				Validate(notBlank("username")),
			huh.NewInput().
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Value(&cmd.password).
				Validate(notBlank("password")),
		),
	).WithTheme(styles.FormTheme())

	return form.Run()
}

func (cmd *LoginCmd) challengeForm() (string, error) {
	var code string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Verification code").
				Description("Enter the code from your authenticator app or SMS.").
				Value(&code).
				Validate(notBlank("code")),
		),
	).WithTheme(styles.FormTheme())

	err := form.Run()
	return strings.TrimSpace(code), err
}
