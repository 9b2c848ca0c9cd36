package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/flacmp3/internal/formatter"
	"github.com/desertthunder/flacmp3/internal/models"
	"github.com/desertthunder/flacmp3/internal/repositories"
	"github.com/desertthunder/flacmp3/internal/shared"
	"github.com/desertthunder/flacmp3/internal/tasks"
	"github.com/urfave/cli/v3"
)

// historyStore records runs in the history database. A nil store records nothing.
type historyStore struct {
	db   *sql.DB
	runs *repositories.RunRepository
}

func openHistory(config shared.HistoryConfig) (*historyStore, error) {
	db, err := shared.OpenHistory(config)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database %s: %w", config.Path, err)
	}
	return &historyStore{db: db, runs: repositories.NewRunRepository(db)}, nil
}

func (h *historyStore) Close() error {
	if h == nil {
		return nil
	}
	return h.db.Close()
}

// begin stores a running entry. History is an audit trail, so failures are logged and the run
// goes on without it.
func (h *historyStore) begin(roots []string, workers int, logger *log.Logger) *models.Run {
	if h == nil {
		return nil
	}
	run := models.NewRun(0, roots, workers)
	if err := h.runs.Create(run); err != nil {
		logger.Warn("failed to record run in history", "error", err)
		return nil
	}
	logger.Debug("recorded run in history", "id", run.ID(), "sequence", run.Sequence())
	return run
}

// finish stores the outcome of a run started with begin.
func (h *historyStore) finish(run *models.Run, report *tasks.Report, logger *log.Logger) {
	if h == nil || run == nil {
		return
	}

	status := models.RunFinished
	if report.Mode == "" {
		status = models.RunAborted
	}
	run.Finish(status, report.Converted(), failuresOf(report))

	if err := h.runs.Update(run); err != nil {
		logger.Warn("failed to update run history", "error", err)
	}
}

func failuresOf(report *tasks.Report) []models.Failure {
	failures := make([]models.Failure, 0, len(report.Errors))
	for _, err := range report.Errors {
		kind, path := shared.Describe(err)
		failures = append(failures, models.Failure{Path: path, Kind: kind, Message: err.Error()})
	}
	return failures
}

// History lists recorded runs, or shows one run with --id.
func (r *Runner) History(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.IsSet("history-db") {
		config.History.Path = cmd.String("history-db")
	}
	if config.History.Path == "" {
		return fmt.Errorf("%w: no history database configured (set [history] path or --history-db)", shared.ErrMissingArgument)
	}

	store, err := openHistory(config.History)
	if err != nil {
		return err
	}
	defer store.Close()

	var runs []*models.Run
	if id := cmd.String("id"); id != "" {
		run, err := store.runs.Get(id)
		if err != nil {
			return err
		}
		runs = []*models.Run{run}
	} else {
		if runs, err = store.runs.List(map[string]any{"limit": cmd.Int("limit")}); err != nil {
			return err
		}
	}

	if cmd.Bool("json") {
		data, err := formatter.RunsToJSON(runs)
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		return r.writePlain("%s\n", data)
	}

	if len(runs) == 0 {
		return r.writePlain("No runs recorded in %s\n", config.History.Path)
	}

	if cmd.String("id") == "" {
		return r.writePlain("%s", formatter.RunsToText(runs))
	}

	run := runs[0]
	r.writePlainHeader(fmt.Sprintf("Run #%d (%s)", run.Sequence(), run.ID()))
	if err := r.writePlain("%s", formatter.RunsToText(runs)); err != nil {
		return err
	}
	for i, f := range run.Failures() {
		r.writePlain("  %d. %s\n", i+1, f.Message)
	}
	return nil
}

// InitConfig writes the embedded default configuration.
func (r *Runner) InitConfig(ctx context.Context, cmd *cli.Command) error {
	path := cmd.Args().First()
	if path == "" {
		path = "config.toml"
	}

	if err := shared.CreateConfigFile(path); err != nil {
		return err
	}

	r.logger.Info("config file created", "path", path)
	return r.writePlain("✓ Default configuration written to %s\n", path)
}
