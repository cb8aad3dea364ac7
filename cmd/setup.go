package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"dzfresh/internal/shared"
	"dzfresh/internal/store"
)

// Setup writes the starter configuration file and initializes the run
// ledger so the first sync starts from a known state.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")
	if configPath == "" {
		configPath = defaultConfigPath
	}
	force := cmd.Bool("force")

	if force {
		if err := os.Remove(configPath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to replace config file: %w", err)
		}
	}

	if err := shared.CreateConfigFile(configPath); err != nil {
		if !errors.Is(err, shared.ErrConfigExists) {
			return err
		}
		r.writePlain("Config file already exists at %s (use --force to overwrite)\n", configPath)
	} else {
		r.writePlain("✓ Config file created at %s\n", configPath)
	}

	config, err := shared.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	r.config = config
	r.configPath = configPath

	r.logger.Info("initializing run ledger", "path", config.Store.DatabasePath)
	history, err := store.OpenHistory(config.Store.DatabasePath, config.Store.MaxOpenConns, config.Store.MaxIdleConns)
	if err != nil {
		return fmt.Errorf("failed to initialize run ledger: %w", err)
	}
	defer history.Close()

	r.writePlain("✓ Run ledger initialized at %s\n", config.Store.DatabasePath)
	r.writePlainln("Next steps:")
	r.writePlain("1. Fill in deezer.app_id and deezer.secret in %s\n", configPath)
	r.writePlain("2. Run 'dzfresh enroll' to connect a Deezer account\n")
	r.writePlain("3. Run 'dzfresh sync' to refresh the playlist\n")

	return nil
}
