// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// app builds the root command. Its own action converts the directories given as arguments.
func (r *Runner) app() *cli.Command {
	return &cli.Command{
		Name:      "flacmp3",
		Usage:     "Convert FLAC files to MP3, keeping their tags",
		Version:   "0.1.0",
		ArgsUsage: "DIRECTORY...",
		Description: "Converts every file with the source extension directly inside each DIRECTORY " +
			"(no recursion) by piping the decode command into the encode command, then copies artist, " +
			"album, album artist, title, track number and genre to the new file.",
		Writer:    r.output,
		ErrWriter: r.output,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a TOML or YAML configuration file (default: built-in flac | lame)",
			},
			&cli.IntFlag{
				Name:    "num-workers",
				Aliases: []string{"j"},
				Usage:   "Number of files converted at once; 0 uses one per CPU (default: config workers, else 1)",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level: debug, info, warn, error",
			},
			&cli.StringFlag{
				Name:  "history-db",
				Usage: "Record the run in this SQLite database (overrides [history] path)",
			},
			&cli.StringFlag{
				Name:  "report",
				Usage: "Write a run report to this file",
			},
			&cli.StringFlag{
				Name:  "report-format",
				Usage: "Report format: json, csv, txt",
				Value: "json",
			},
		},
		MutuallyExclusiveFlags: []cli.MutuallyExclusiveFlags{
			{
				Flags: [][]cli.Flag{
					{&cli.BoolFlag{Name: "remove", Usage: "Delete each source file after a successful conversion"}},
					{&cli.BoolFlag{Name: "no-remove", Usage: "Keep source files"}},
				},
			},
			{
				Flags: [][]cli.Flag{
					{&cli.BoolFlag{Name: "overwrite", Usage: "Replace existing destination files"}},
					{&cli.BoolFlag{Name: "no-overwrite", Usage: "Skip files whose destination exists"}},
				},
			},
		},
		Action:   r.Convert,
		Commands: r.register(),
	}
}

// historyCommand lists recorded runs
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "List recorded runs from the history database",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
			},
			&cli.StringFlag{
				Name:  "history-db",
				Usage: "History database (overrides [history] path)",
			},
			&cli.StringFlag{
				Name:  "id",
				Usage: "Show one run with its failures",
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of runs to list",
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

// initConfigCommand writes the default configuration
func initConfigCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "init-config",
		Usage:     "Write the default configuration to PATH (default: config.toml)",
		ArgsUsage: "[PATH]",
		Action:    r.InitConfig,
	}
}
