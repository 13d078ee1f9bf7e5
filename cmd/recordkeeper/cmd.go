// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// configFlag is shared by every command that reads configuration.
func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   "config.toml",
	}
}

// migrateCommand applies pending schema migrations on relational backends.
func migrateCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "migrate",
		Usage:  "Apply pending schema migrations",
		Flags:  []cli.Flag{configFlag()},
		Action: r.Migrate,
	}
}

// rollbackCommand reverts the most recent migration on relational backends.
func rollbackCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "rollback",
		Usage:  "Revert the most recent schema migration",
		Flags:  []cli.Flag{configFlag()},
		Action: r.Rollback,
	}
}

// pingCommand verifies connectivity to the configured backend.
func pingCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "ping",
		Usage:  "Check connectivity to the configured backend",
		Flags:  []cli.Flag{configFlag()},
		Action: r.Ping,
	}
}

// infoCommand reports the active backend and its capabilities.
func infoCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "info",
		Usage: "Show the active backend and its capabilities",
		Flags: []cli.Flag{
			configFlag(),
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print output",
				Value: true,
			},
		},
		Action: r.Info,
	}
}

// initCommand writes a starter config file.
func initCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "init",
		Usage:  "Write a starter config.toml in the current directory",
		Flags:  []cli.Flag{configFlag()},
		Action: r.Init,
	}
}
