package tasks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/flacmp3/internal/scanner"
	"github.com/desertthunder/flacmp3/internal/shared"
)

// Converter performs one conversion job. Implementations must be safe for concurrent use.
type Converter interface {
	Convert(ctx context.Context, src string) error
	Destination(src string) string
}

// Outcome is the result of one conversion job.
type Outcome struct {
	Source      string        // Candidate file
	Destination string        // Output path
	Err         error         // nil on success
	Elapsed     time.Duration // Time spent in the converter
}

// Report summarizes a run.
type Report struct {
	RunID      string    // Unique run identifier
	Roots      []string  // Directories as given by the caller
	Workers    int       // Requested worker count
	Mode       Mode      // Serial or parallel; empty when the run was rejected
	StartedAt  time.Time // UTC
	FinishedAt time.Time // UTC
	Outcomes   []Outcome // One per candidate file, in the order results arrived
	Errors     []error   // Every error record, scan and conversion alike
}

// Converted returns the number of jobs that finished without error.
func (r *Report) Converted() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Err == nil {
			n++
		}
	}
	return n
}

// Failed returns the number of error records.
func (r *Report) Failed() int { return len(r.Errors) }

// Elapsed returns the wall-clock duration of the run.
func (r *Report) Elapsed() time.Duration { return r.FinishedAt.Sub(r.StartedAt) }

// ErrorsOf returns the records matching kind.
func (r *Report) ErrorsOf(kind error) []error {
	var matched []error
	for _, err := range r.Errors {
		if errors.Is(err, kind) {
			matched = append(matched, err)
		}
	}
	return matched
}

// EngineOpts contains configuration for an [Engine].
type EngineOpts struct {
	Workers         int         // Number of concurrent conversions (0 is rejected at run time)
	SourceExtension string      // Extension a scanned file must carry, with the leading dot
	Logger          *log.Logger // Optional; discards output when nil
}

// Engine dispatches the files found under a set of roots to a [Converter].
type Engine struct {
	conv    Converter
	workers int
	ext     string
	logger  *log.Logger
	state   stateTracker
}

// NewEngine creates an [Engine]. An Engine runs one batch at a time.
func NewEngine(conv Converter, opts EngineOpts) *Engine {
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	return &Engine{
		conv:    conv,
		workers: opts.Workers,
		ext:     opts.SourceExtension,
		logger:  opts.Logger,
	}
}

// State reports where the engine is in its current or most recent run.
func (e *Engine) State() State { return e.state.get() }

// Run converts every candidate file under roots and waits for all of them. Roots that do not
// exist or are not directories are skipped.
func (e *Engine) Run(ctx context.Context, roots []string) *Report {
	report := &Report{
		RunID:     shared.GenerateID(),
		Roots:     append([]string(nil), roots...),
		Workers:   e.workers,
		StartedAt: time.Now().UTC(),
	}
	logger := shared.WithLogger(e.logger, "run", report.RunID)

	defer func() {
		report.FinishedAt = time.Now().UTC()
		e.state.set(Done)
		logger.Debug("run finished", "converted", report.Converted(), "failed", report.Failed(), "elapsed", report.Elapsed())
	}()

	if e.workers < 1 {
		e.state.set(Idle)
		report.Errors = append(report.Errors, fmt.Errorf("%w: need at least 1 worker, got %d", shared.ErrInvalidWorkers, e.workers))
		return report
	}

	e.state.set(Dispatching)
	files := scanner.New(roots, e.ext, logger)

	if e.workers == 1 {
		report.Mode = Serial
		logger.Debug("dispatching", "mode", report.Mode, "roots", len(roots))
		e.runSerial(ctx, files, report)
		return report
	}

	report.Mode = Parallel
	logger.Debug("dispatching", "mode", report.Mode, "workers", e.workers, "roots", len(roots))
	e.runParallel(ctx, files, report)
	return report
}

// runSerial converts files one at a time on the calling goroutine.
func (e *Engine) runSerial(ctx context.Context, files *scanner.Scanner, report *Report) {
	for path, err := range files.All() {
		if err != nil {
			report.Errors = append(report.Errors, err)
			continue
		}
		report.add(e.convert(ctx, path))
	}
	e.state.set(Draining)
}

// convert runs one job and times it.
func (e *Engine) convert(ctx context.Context, src string) Outcome {
	started := time.Now()
	err := e.conv.Convert(ctx, src)
	return Outcome{
		Source:      src,
		Destination: e.conv.Destination(src),
		Err:         err,
		Elapsed:     time.Since(started),
	}
}

func (r *Report) add(o Outcome) {
	r.Outcomes = append(r.Outcomes, o)
	if o.Err != nil {
		r.Errors = append(r.Errors, o.Err)
	}
}
