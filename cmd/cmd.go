// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// configFlag points a command at an alternate configuration file.
func configFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   defaultConfigPath,
	}
}

// syncCommand reconciles every enrolled profile's playlist.
func syncCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "sync",
		Usage:  "Refresh each enrolled profile's new-releases playlist",
		Flags:  []cli.Flag{configFlag()},
		Action: r.Sync,
	}
}

// enrollCommand connects a Deezer account to a profile name.
func enrollCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "enroll",
		Usage: "Authorize a Deezer account and store its token",
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{
				Name:    "name",
				Aliases: []string{"n"},
				Usage:   "Profile name (skips the interactive prompt)",
			},
		},
		Action: r.Enroll,
	}
}

// historyCommand renders the run ledger.
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Show recent reconciliation runs",
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{
				Name:    "profile",
				Aliases: []string{"p"},
				Usage:   "Only show runs for this profile",
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of runs to show",
				Value: 20,
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.History,
	}
}

// setupCommand writes the starter config and initializes the ledger.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Create the configuration file and run ledger",
		Flags: []cli.Flag{
			configFlag(),
			&cli.BoolFlag{
				Name:  "force",
				Usage: "Overwrite an existing configuration file",
			},
		},
		Action: r.Setup,
	}
}
