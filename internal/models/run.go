package models

import (
	"errors"
	"fmt"
	"time"
)

// RunStatus is the lifecycle state of a recorded run.
type RunStatus string

const (
	RunRunning  RunStatus = "running"
	RunFinished RunStatus = "finished"
	RunAborted  RunStatus = "aborted" // configuration error, nothing was converted
)

// Failure is a persisted error record.
type Failure struct {
	Path    string `json:"path"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Run is the persisted summary of one converter invocation.
type Run struct {
	id         string
	sequence   int
	status     RunStatus
	roots      []string
	workers    int
	converted  int
	failed     int
	failures   []Failure
	createdAt  time.Time
	updatedAt  time.Time
	finishedAt *time.Time
}

// NewRun creates a running [Run] for roots. The ID is assigned by the repository.
func NewRun(sequence int, roots []string, workers int) *Run {
	now := time.Now().UTC()
	return &Run{
		sequence:  sequence,
		status:    RunRunning,
		roots:     append([]string(nil), roots...),
		workers:   workers,
		createdAt: now,
		updatedAt: now,
	}
}

// RestoreRun rebuilds a [Run] from stored columns. Failures are loaded separately with [Run.SetFailures].
func RestoreRun(id string, sequence int, status RunStatus, roots []string, workers, converted, failed int, createdAt, updatedAt time.Time, finishedAt *time.Time) *Run {
	return &Run{
		id:         id,
		sequence:   sequence,
		status:     status,
		roots:      roots,
		workers:    workers,
		converted:  converted,
		failed:     failed,
		createdAt:  createdAt,
		updatedAt:  updatedAt,
		finishedAt: finishedAt,
	}
}

func (r *Run) ID() string             { return r.id }
func (r *Run) Sequence() int          { return r.sequence }
func (r *Run) Status() RunStatus      { return r.status }
func (r *Run) Roots() []string        { return r.roots }
func (r *Run) Workers() int           { return r.workers }
func (r *Run) Converted() int         { return r.converted }
func (r *Run) Failed() int            { return r.failed }
func (r *Run) Failures() []Failure    { return r.failures }
func (r *Run) CreatedAt() time.Time   { return r.createdAt }
func (r *Run) UpdatedAt() time.Time   { return r.updatedAt }
func (r *Run) FinishedAt() *time.Time { return r.finishedAt }

func (r *Run) SetID(id string)          { r.id = id }
func (r *Run) SetSequence(sequence int) { r.sequence = sequence }
func (r *Run) SetUpdatedAt(t time.Time) { r.updatedAt = t }
func (r *Run) SetFailures(failures []Failure) {
	r.failures = failures
	r.failed = len(failures)
}

// Finish records the outcome of the run.
func (r *Run) Finish(status RunStatus, converted int, failures []Failure) {
	now := time.Now().UTC()
	r.status = status
	r.converted = converted
	r.failures = failures
	r.failed = len(failures)
	r.updatedAt = now
	r.finishedAt = &now
}

// Validate checks the invariants the history schema relies on.
func (r *Run) Validate() error {
	if r.id == "" {
		return errors.New("run ID is required")
	}
	if len(r.roots) == 0 {
		return errors.New("run needs at least one root")
	}
	switch r.status {
	case RunRunning, RunFinished, RunAborted:
	default:
		return fmt.Errorf("unknown run status %q", r.status)
	}
	if r.workers < 0 || r.converted < 0 || r.failed < 0 {
		return errors.New("run counters must not be negative")
	}
	return nil
}
