package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v3"

	"github.com/colonyops/dmctl/internal/core/action"
	"github.com/colonyops/dmctl/internal/core/styles"
	"github.com/colonyops/dmctl/internal/pilot"
	"github.com/colonyops/dmctl/internal/printer"
	"github.com/colonyops/dmctl/pkg/iojson"
)

type SendCmd struct {
	flags *Flags
	app   *pilot.App

	// flags
	to            string
	message       string
	minDelay      int
	maxDelay      int
	maxRecipients int
	yes           bool
	follow        bool
	job           iojson.FileReader[action.SendRequest]
}

// NewSendCmd creates a new send command
func NewSendCmd(flags *Flags, app *pilot.App) *SendCmd {
	return &SendCmd{flags: flags, app: app}
}

// Register adds the send command to the application
func (cmd *SendCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "send",
		Usage:     "Start a bulk direct message job",
		UsageText: "dmctl send --to 1,2,3 --message text [options]\n   dmctl send --file job.json",
		Description: `Asks the backend to message every recipient pk in the background. The
command returns once the job has started; use --follow to stream its progress.

Delays and the recipient cap default to the send section of the config file.

A job file holds one JSON object:

  {"recipients": "1, 2, 3", "message": "hi", "min_delay": 30, "max_delay": 90, "max_recipients": 20}`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "to",
				Usage:       "comma separated recipient pks",
				Destination: &cmd.to,
			},
			&cli.StringFlag{
				Name:        "message",
				Aliases:     []string{"m"},
				Usage:       "message text",
				Destination: &cmd.message,
			},
			&cli.IntFlag{
				Name:        "min-delay",
				Usage:       "minimum seconds between messages",
				Destination: &cmd.minDelay,
			},
			&cli.IntFlag{
				Name:        "max-delay",
				Usage:       "maximum seconds between messages",
				Destination: &cmd.maxDelay,
			},
			&cli.IntFlag{
				Name:        "max-recipients",
				Usage:       "stop after this many recipients",
				Destination: &cmd.maxRecipients,
			},
			&cli.BoolFlag{
				Name:        "yes",
				Aliases:     []string{"y"},
				Usage:       "skip the confirmation prompt",
				Destination: &cmd.yes,
			},
			&cli.BoolFlag{
				Name:        "follow",
				Usage:       "stream the backend log after the job starts",
				Destination: &cmd.follow,
			},
			cmd.job.Flag(),
		},
		Before: cmd.flags.RequireValidConfig,
		Action: cmd.run,
	})

	return app
}

func (cmd *SendCmd) run(ctx context.Context, c *cli.Command) error {
	log := zerolog.Ctx(ctx)
	p := printer.Ctx(ctx)

	req, err := cmd.request(c)
	if err != nil {
		return err
	}
	if err := req.Validate(); err != nil {
		return err
	}

	if !cmd.yes && isInteractive() {
		ok, err := cmd.confirm(req)
		if errors.Is(err, huh.ErrUserAborted) || (err == nil && !ok) {
			p.Infof("Cancelled")
			return nil
		}
		if err != nil {
			return fmt.Errorf("form: %w", err)
		}
	}

	view := newCLIView(p, false)
	view.SetRecipients(req.Recipients)
	ctrl := cmd.app.NewController(view)

	// With --follow the job is only started once the stream has connected.
	streamCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	streamDone := make(chan error, 1)
	if cmd.follow {
		connected := make(chan struct{})
		consumer := cmd.app.NewLogConsumer()
		consumer.OnConnect = func() { close(connected) }
		go func() { streamDone <- ctrl.StreamLogs(streamCtx, consumer) }()

		select {
		case <-connected:
		case <-streamDone:
			p.Errorf("Log stream unavailable, job not started")
			return cli.Exit("", 1)
		case <-ctx.Done():
			return nil
		}
	}

	log.Info().Int("max_recipients", req.MaxRecipients).Msg("send invoked")
	res := ctrl.SendBulk(ctx, req)
	if res.Kind != action.KindProcessing {
		return cli.Exit("", 1)
	}

	if !cmd.follow {
		return nil
	}

	p.Infof("Following the backend log, press ctrl+c to stop")
	if err := <-streamDone; err != nil && !errors.Is(err, context.Canceled) {
		return cli.Exit("", 1)
	}
	return nil
}

// request builds the job from --file, or from flags over config defaults.
func (cmd *SendCmd) request(c *cli.Command) (action.SendRequest, error) {
	defaults := cmd.app.Config.Send

	if cmd.job.IsSet() {
		req, err := cmd.job.Read()
		if err != nil {
			return req, fmt.Errorf("read job: %w", err)
		}
		if req.MaxRecipients == 0 {
			req.MaxRecipients = defaults.MaxRecipients
		}
		return req, nil
	}

	req := action.SendRequest{
		Recipients:    cmd.to,
		Message:       cmd.message,
		MinDelay:      defaults.MinDelay,
		MaxDelay:      defaults.MaxDelay,
		MaxRecipients: defaults.MaxRecipients,
	}
	if c.IsSet("min-delay") {
		req.MinDelay = cmd.minDelay
	}
	if c.IsSet("max-delay") {
		req.MaxDelay = cmd.maxDelay
	}
	if c.IsSet("max-recipients") {
		req.MaxRecipients = cmd.maxRecipients
	}
	return req, nil
}

func (cmd *SendCmd) confirm(req action.SendRequest) (bool, error) {
	pks, _ := action.ParsePKs(req.Recipients)
	n := min(len(pks), req.MaxRecipients)

	var ok bool
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Message %d recipient(s)?", n)).
				Description(fmt.Sprintf("%d-%ds between messages", req.MinDelay, req.MaxDelay)).
				Affirmative("Send").
				Negative("Cancel").
				Value(&ok),
		),
	).WithTheme(styles.FormTheme())

	err := form.Run()
	return ok, err
}
