package main

import (
	"context"
	"fmt"
	"runtime"

	"github.com/desertthunder/flacmp3/internal/convert"
	"github.com/desertthunder/flacmp3/internal/formatter"
	"github.com/desertthunder/flacmp3/internal/shared"
	"github.com/desertthunder/flacmp3/internal/tasks"
	"github.com/desertthunder/flacmp3/internal/ui"
	"github.com/urfave/cli/v3"
)

func defaultNumCPU() int { return runtime.NumCPU() }

// Convert converts the directories given as arguments.
//
// Everything that can be checked up front (arguments, flags, configuration, history database) is
// checked before the first file is touched. Once the batch starts, per-file failures are logged and
// summarized but do not change the exit status.
func (r *Runner) Convert(ctx context.Context, cmd *cli.Command) error {
	roots := cmd.Args().Slice()
	if len(roots) == 0 {
		return fmt.Errorf("%w: at least one DIRECTORY is required", shared.ErrMissingArgument)
	}

	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := applyFlags(config, cmd); err != nil {
		return err
	}
	if err := shared.SetLogLevel(r.logger, config.LogLevel); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidConfig, err)
	}

	workers, err := resolveWorkers(cmd.IsSet("num-workers"), cmd.Int("num-workers"), config.Workers, r.numCPU())
	if err != nil {
		return err
	}

	reportPath := cmd.String("report")
	reportFormat, err := formatter.ParseFormat(cmd.String("report-format"))
	if err != nil {
		return err
	}

	conv, err := convert.FromConfig(config, r.logger)
	if err != nil {
		return err
	}

	var history *historyStore
	if config.History.Path != "" {
		if history, err = openHistory(config.History); err != nil {
			return err
		}
		defer history.Close()
	}

	recorded := history.begin(roots, workers, r.logger)

	engine := tasks.NewEngine(conv, tasks.EngineOpts{
		Workers:         workers,
		SourceExtension: config.SourceExtension,
		Logger:          r.logger,
	})

	r.logger.Info("starting conversion", "roots", len(roots), "workers", workers,
		"overwrite", config.Overwrite, "remove", config.RemoveAfter)

	report := engine.Run(ctx, roots)

	for _, err := range report.Errors {
		r.logger.Error(err)
	}
	r.writePlain("%s\n", ui.Summary(report))

	history.finish(recorded, report, r.logger)

	if reportPath != "" {
		if err := formatter.WriteReport(report, reportFormat, reportPath); err != nil {
			return err
		}
		r.logger.Info("report written", "path", reportPath, "format", reportFormat)
	}

	return nil
}

// applyFlags layers command-line overrides onto config and validates the result.
func applyFlags(config *shared.Config, cmd *cli.Command) error {
	if cmd.IsSet("remove") && cmd.IsSet("no-remove") {
		return fmt.Errorf("%w: --remove and --no-remove are mutually exclusive", shared.ErrInvalidFlag)
	}
	if cmd.IsSet("overwrite") && cmd.IsSet("no-overwrite") {
		return fmt.Errorf("%w: --overwrite and --no-overwrite are mutually exclusive", shared.ErrInvalidFlag)
	}

	if cmd.IsSet("remove") {
		config.RemoveAfter = cmd.Bool("remove")
	}
	if cmd.Bool("no-remove") {
		config.RemoveAfter = false
	}
	if cmd.IsSet("overwrite") {
		config.Overwrite = cmd.Bool("overwrite")
	}
	if cmd.Bool("no-overwrite") {
		config.Overwrite = false
	}

	if cmd.IsSet("log-level") {
		config.LogLevel = cmd.String("log-level")
	}
	if cmd.IsSet("history-db") {
		config.History.Path = cmd.String("history-db")
	}

	return config.Validate()
}

// resolveWorkers picks the worker count: an explicit flag wins (0 meaning one per CPU), then a
// positive configured value, then 1.
func resolveWorkers(flagSet bool, flag, configured, numCPU int) (int, error) {
	switch {
	case flagSet && flag < 0:
		return 0, fmt.Errorf("%w: --num-workers must not be negative, got %d", shared.ErrInvalidFlag, flag)
	case flagSet && flag == 0:
		return max(numCPU, 1), nil
	case flagSet:
		return flag, nil
	case configured > 0:
		return configured, nil
	default:
		return 1, nil
	}
}
