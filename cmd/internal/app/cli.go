package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"
)

// Build information, set via ldflags.
var (
	Version = "dev"
	Commit  = "unknown"
)

// Run executes the scribe command line.
func Run(args []string) error {
	return CLI(os.Stdout, os.Stderr).Run(args)
}

// CLI builds the scribe command tree. Command output goes to stdout and logs to logs.
func CLI(stdout, logs io.Writer) *cli.App {
	return &cli.App{
		Name:      "scribe",
		Usage:     "passwordless auth and audio transcription service",
		Version:   fmt.Sprintf("%s (commit: %s)", Version, Commit),
		Writer:    stdout,
		ErrWriter: logs,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "debug, info, warn or error",
				EnvVars: []string{"SCRIBE_LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:    "log-format",
				Usage:   "json or pretty",
				EnvVars: []string{"SCRIBE_LOG_FORMAT"},
			},
		},
		Commands: []*cli.Command{
			serveCommand(),
			migrateCommand(),
			purgeCommand(),
		},
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "addr",
				Usage:   "listen address",
				EnvVars: []string{"SCRIBE_HTTP_ADDR"},
			},
		},
		Action: func(c *cli.Context) error {
			cfg, log, err := setup(c)
			if err != nil {
				return err
			}
			if addr := c.String("addr"); addr != "" {
				cfg.HTTPAddr = addr
			}

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := New(ctx, cfg, log)
			if err != nil {
				log.Error("app.init.fail", "err", err)
				return err
			}
			return a.Run(ctx)
		},
	}
}

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Apply database migrations and exit",
		Action: func(c *cli.Context) error {
			cfg, log, err := setup(c)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(c.Context, 2*time.Minute)
			defer cancel()
			return Migrate(ctx, cfg, log)
		},
	}
}

func purgeCommand() *cli.Command {
	return &cli.Command{
		Name:  "purge",
		Usage: "Delete expired verification tokens and sessions once",
		Action: func(c *cli.Context) error {
			cfg, log, err := setup(c)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(c.Context, time.Minute)
			defer cancel()

			a, err := New(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer a.Close()

			tokens, sessions, err := a.Purge(ctx)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(c.App.Writer, "purged %d verification tokens, %d sessions\n", tokens, sessions)
			return err
		},
	}
}

// setup loads config and builds the logger; global flags override the environment.
func setup(c *cli.Context) (Config, Logger, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return Config{}, nil, err
	}
	if v := c.String("log-level"); v != "" {
		cfg.LogLevel = v
	}
	if v := c.String("log-format"); v != "" {
		cfg.LogFormat = v
	}
	return cfg, NewLogger(c.App.ErrWriter, cfg.LogLevel, cfg.LogFormat), nil
}
