package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"dzfresh/internal/shared"
)

const defaultConfigPath = "dzfresh.toml"

func main() {
	logger := shared.NewLogger(nil)

	config := shared.DefaultConfig()
	configPath := ""
	if _, err := os.Stat(defaultConfigPath); err == nil {
		if loaded, err := shared.LoadConfig(defaultConfigPath); err == nil {
			config = loaded
			configPath = defaultConfigPath
		}
	}

	if level, err := log.ParseLevel(config.LogLevel); err == nil {
		shared.SetLogLevel(logger, level)
	}

	runner := NewRunner(RunnerOpts{
		Config:     config,
		ConfigPath: configPath,
		Logger:     logger,
	})

	app := &cli.Command{
		Name:     "dzfresh",
		Usage:    "Keep a Deezer playlist stocked with unheard new releases",
		Version:  "0.3.0",
		Commands: runner.register(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, os.Args); err != nil {
		if errors.Is(err, shared.ErrCanceled) || errors.Is(err, context.Canceled) {
			logger.Warn("interrupted")
			os.Exit(0)
		}
		logger.Fatalf("application error: %v", err)
	}
}
