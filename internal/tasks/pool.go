package tasks

import (
	"context"

	"github.com/desertthunder/flacmp3/internal/scanner"
	"golang.org/x/sync/errgroup"
)

// poolResult is what travels on the shared results channel: either a finished job or a scan error.
type poolResult struct {
	outcome *Outcome
	scanErr error
}

// runParallel converts files on a fixed pool of e.workers goroutines.
//
// The producer and the workers all belong to one errgroup. A closer goroutine waits on the group and
// then closes results, while this goroutine drains results the whole time so no sender can block
// forever.
func (e *Engine) runParallel(ctx context.Context, files *scanner.Scanner, report *Report) {
	jobs := make(chan string, e.workers)
	results := make(chan poolResult, e.workers)

	var g errgroup.Group

	g.Go(func() error {
		defer close(jobs)
		for path, err := range files.All() {
			if err != nil {
				results <- poolResult{scanErr: err}
				continue
			}
			jobs <- path
		}
		e.state.set(Draining)
		return nil
	})

	for i := 0; i < e.workers; i++ {
		g.Go(func() error {
			e.worker(ctx, jobs, results)
			return nil
		})
	}

	go func() {
		g.Wait()
		close(results)
	}()

	for res := range results {
		if res.scanErr != nil {
			report.Errors = append(report.Errors, res.scanErr)
			continue
		}
		report.add(*res.outcome)
	}
}

// worker converts jobs until the jobs channel is closed.
func (e *Engine) worker(ctx context.Context, jobs <-chan string, results chan<- poolResult) {
	for src := range jobs {
		o := e.convert(ctx, src)
		results <- poolResult{outcome: &o}
	}
}
