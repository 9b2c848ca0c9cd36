package repositories

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/flacmp3/internal/models"
	"github.com/desertthunder/flacmp3/internal/shared"
	"go.uber.org/multierr"
)

// RunRepository implements models.Repository[*models.Run] for run history.
type RunRepository struct {
	db *sql.DB
}

// NewRunRepository creates a new RunRepository with the given database connection
func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db}
}

const runColumns = `id, sequence, status, roots, workers, converted, failed, created_at, updated_at, finished_at`

// Create inserts a new run with a generated ID and sequence, together with any failures it already carries.
func (r *RunRepository) Create(run *models.Run) error {
	sequence, err := NextSequence(r.db, "runs")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	run.SetID(shared.GenerateID())
	run.SetSequence(sequence)

	if err := run.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	roots, err := json.Marshal(run.Roots())
	if err != nil {
		return fmt.Errorf("failed to encode roots: %w", err)
	}

	return r.inTx(func(tx *sql.Tx) error {
		query := `
			INSERT INTO runs (` + runColumns + `)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`
		_, err := tx.Exec(query,
			run.ID(),
			run.Sequence(),
			run.Status(),
			string(roots),
			run.Workers(),
			run.Converted(),
			run.Failed(),
			run.CreatedAt(),
			run.UpdatedAt(),
			nullTime(run.FinishedAt()),
		)
		if err != nil {
			return fmt.Errorf("failed to insert run: %w", err)
		}
		return insertFailures(tx, run.ID(), run.Failures())
	})
}

// Get retrieves a run and its failures by ID.
func (r *RunRepository) Get(id string) (*models.Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE id = ?`

	run, err := scanRun(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrRunNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	failures, err := r.Failures(id)
	if err != nil {
		return nil, err
	}
	run.SetFailures(failures)
	return run, nil
}

// Update stores the run's status and counters and replaces its failures.
func (r *RunRepository) Update(run *models.Run) error {
	if err := run.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now().UTC()
	run.SetUpdatedAt(now)

	return r.inTx(func(tx *sql.Tx) error {
		query := `
			UPDATE runs
			SET status = ?, converted = ?, failed = ?, updated_at = ?, finished_at = ?
			WHERE id = ?
		`
		result, err := tx.Exec(query,
			run.Status(),
			run.Converted(),
			run.Failed(),
			now,
			nullTime(run.FinishedAt()),
			run.ID(),
		)
		if err != nil {
			return fmt.Errorf("failed to update run: %w", err)
		}
		if err := expectRow(result, run.ID()); err != nil {
			return err
		}

		if _, err := tx.Exec(`DELETE FROM failures WHERE run_id = ?`, run.ID()); err != nil {
			return fmt.Errorf("failed to clear failures: %w", err)
		}
		return insertFailures(tx, run.ID(), run.Failures())
	})
}

// Delete removes a run and its failures.
func (r *RunRepository) Delete(id string) error {
	return r.inTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec(`DELETE FROM failures WHERE run_id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete failures: %w", err)
		}
		result, err := tx.Exec(`DELETE FROM runs WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("failed to delete run: %w", err)
		}
		return expectRow(result, id)
	})
}

// List retrieves runs newest first. Failures are not loaded; use [RunRepository.Get] for those.
//
// Supported criteria: "status" (string or [models.RunStatus]) and "limit" (int, 0 means no limit).
func (r *RunRepository) List(criteria map[string]any) ([]*models.Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE 1 = 1`
	args := []any{}

	switch status := criteria["status"].(type) {
	case string:
		if status != "" {
			query += " AND status = ?"
			args = append(args, status)
		}
	case models.RunStatus:
		query += " AND status = ?"
		args = append(args, string(status))
	}

	query += " ORDER BY sequence DESC"

	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return runs, nil
}

// Failures returns the failures recorded for a run in insertion order.
func (r *RunRepository) Failures(runID string) (failures []models.Failure, err error) {
	rows, err := r.db.Query(`SELECT path, kind, message FROM failures WHERE run_id = ? ORDER BY id ASC`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query failures: %w", err)
	}
	defer func() { err = multierr.Append(err, rows.Close()) }()

	for rows.Next() {
		var f models.Failure
		if err := rows.Scan(&f.Path, &f.Kind, &f.Message); err != nil {
			return nil, fmt.Errorf("failed to scan failure: %w", err)
		}
		failures = append(failures, f)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return failures, nil
}

// inTx runs fn in a transaction, committing only when fn succeeds.
func (r *RunRepository) inTx(fn func(tx *sql.Tx) error) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		return multierr.Append(err, tx.Rollback())
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func insertFailures(tx *sql.Tx, runID string, failures []models.Failure) error {
	if len(failures) == 0 {
		return nil
	}

	stmt, err := tx.Prepare(`INSERT INTO failures (run_id, path, kind, message) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare failure insert: %w", err)
	}
	defer stmt.Close()

	for _, f := range failures {
		if _, err := stmt.Exec(runID, f.Path, f.Kind, f.Message); err != nil {
			return fmt.Errorf("failed to insert failure: %w", err)
		}
	}
	return nil
}

func expectRow(result sql.Result, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrRunNotFound, id)
	}
	return nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanRun scans a single runs row into a [models.Run]
func scanRun(row rowScanner) (*models.Run, error) {
	var (
		id         string
		sequence   int
		status     string
		roots      string
		workers    int
		converted  int
		failed     int
		createdAt  time.Time
		updatedAt  time.Time
		finishedAt sql.NullTime
	)

	err := row.Scan(&id, &sequence, &status, &roots, &workers, &converted, &failed, &createdAt, &updatedAt, &finishedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}

	var paths []string
	if err := json.Unmarshal([]byte(roots), &paths); err != nil {
		return nil, fmt.Errorf("failed to decode roots of run %s: %w", id, err)
	}

	var finished *time.Time
	if finishedAt.Valid {
		finished = &finishedAt.Time
	}

	return models.RestoreRun(id, sequence, models.RunStatus(status), paths, workers, converted, failed, createdAt, updatedAt, finished), nil
}

var _ models.Repository[*models.Run] = (*RunRepository)(nil)
