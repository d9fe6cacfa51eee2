package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/tim-projects/otpkit"
	"github.com/tim-projects/otpkit/account"
	"github.com/tim-projects/otpkit/config"
	"github.com/tim-projects/otpkit/internal/logger"
)

// env holds what every command needs once flags are parsed.
type env struct {
	cfg    *config.Config
	logger *zap.Logger
	store  *account.MemoryStore
	keeper *otpkit.Keeper
}

func main() {
	var e env

	app := &cli.App{
		Name:  "otpkit",
		Usage: "generate and manage One-Time Passwords",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "settings file (yaml, json or toml)",
				EnvVars: []string{"OTPKIT_CONFIG"},
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "override the configured log level",
			},
		},
		Before: func(c *cli.Context) error {
			cfg, err := config.Load(c.String("config"))
			if err != nil {
				return err
			}

			if c.IsSet("log-level") {
				cfg.Log.Level = c.String("log-level")

				if err := cfg.Validate(); err != nil {
					return err
				}
			}

			log, err := logger.New(cfg.Log.Level, cfg.Log.Format)
			if err != nil {
				return err
			}

			e.cfg = cfg
			e.logger = log
			e.store = account.NewMemoryStore()
			e.keeper = otpkit.NewKeeper(e.store,
				otpkit.WithLogger(logger.WithComponent(log, "keeper")),
				otpkit.WithDefaultCategory(cfg.Settings.DefaultCategory),
			)

			return nil
		},
		After: func(c *cli.Context) error {
			if e.logger != nil {
				_ = e.logger.Sync()
			}
			return nil
		},
		Commands: []*cli.Command{
			codeCommand(&e),
			watchCommand(&e),
			parseCommand(),
			classifyCommand(),
			addCommand(&e),
			enrollCommand(&e),
			importCommand(&e),
			exportCommand(&e),
			qrCommand(),
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "otpkit:", err)
		os.Exit(1)
	}
}
