package tasks

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/desertthunder/flacmp3/internal/convert"
	"github.com/desertthunder/flacmp3/internal/scanner"
	"github.com/desertthunder/flacmp3/internal/shared"
	tu "github.com/desertthunder/flacmp3/internal/testing"
)

type runnerFunc func(ctx context.Context, src, dst string) error

func (f runnerFunc) Run(ctx context.Context, src, dst string) error { return f(ctx, src, dst) }

// writeDst is a runner that writes a fixed payload to the destination.
func writeDst(payload string) runnerFunc {
	return func(ctx context.Context, src, dst string) error {
		return os.WriteFile(dst, []byte(payload), 0644)
	}
}

func newEngine(runner convert.Runner, workers int, opts convert.Options) *Engine {
	if opts.SourceExtension == "" {
		opts.SourceExtension = ".flac"
	}
	if opts.DestinationExtension == "" {
		opts.DestinationExtension = ".mp3"
	}
	conv := convert.NewConverter(runner, &tu.StubTranslator{}, opts, nil)
	return NewEngine(conv, EngineOpts{Workers: workers, SourceExtension: opts.SourceExtension})
}

func sources(r *Report) []string {
	paths := make([]string, 0, len(r.Outcomes))
	for _, o := range r.Outcomes {
		paths = append(paths, o.Source)
	}
	return paths
}

// library lays out a small collection and returns its roots and the files that should be converted.
func library(t *testing.T) (roots, want []string) {
	t.Helper()
	dir := t.TempDir()
	tu.MustWriteFiles(t, dir,
		"a/01.flac", "a/02.flac", "a/cover.jpg", "a/notes.FLAC",
		"b/01.flac", "b/readme.txt", "b/nested/deep.flac",
		"c/x.flac", "c/y.flac", "c/z.flac",
	)
	roots = []string{filepath.Join(dir, "a"), filepath.Join(dir, "b"), filepath.Join(dir, "c")}
	want = []string{
		filepath.Join(dir, "a/01.flac"), filepath.Join(dir, "a/02.flac"),
		filepath.Join(dir, "b/01.flac"),
		filepath.Join(dir, "c/x.flac"), filepath.Join(dir, "c/y.flac"), filepath.Join(dir, "c/z.flac"),
	}
	return roots, want
}

func TestEngineRun(t *testing.T) {
	ctx := context.Background()

	t.Run("zero workers is rejected without side effects", func(t *testing.T) {
		roots, want := library(t)
		var calls atomic.Int32
		runner := runnerFunc(func(ctx context.Context, src, dst string) error {
			calls.Add(1)
			return nil
		})
		e := newEngine(runner, 0, convert.Options{RemoveSource: true})

		report := e.Run(ctx, roots)

		if len(report.Errors) != 1 || !errors.Is(report.Errors[0], shared.ErrInvalidWorkers) {
			t.Fatalf("expected exactly one ErrInvalidWorkers record, got %v", report.Errors)
		}
		if calls.Load() != 0 || len(report.Outcomes) != 0 {
			t.Error("no job should run")
		}
		for _, src := range want {
			tu.AssertFileExists(t, src)
			tu.AssertFileMissing(t, src[:len(src)-len(".flac")]+".mp3")
		}
		if e.State() != Done {
			t.Errorf("expected state %v, got %v", Done, e.State())
		}
		if report.Mode != "" {
			t.Errorf("expected no mode, got %q", report.Mode)
		}
	})

	t.Run("same files in every mode", func(t *testing.T) {
		for _, workers := range []int{1, 2, 4, 16} {
			t.Run(fmt.Sprintf("%d workers", workers), func(t *testing.T) {
				roots, want := library(t)
				e := newEngine(writeDst("mp3"), workers, convert.Options{})

				report := e.Run(ctx, roots)

				if len(report.Errors) != 0 {
					t.Fatalf("unexpected errors: %v", report.Errors)
				}
				if !tu.SameSet(sources(report), want) {
					t.Errorf("expected %v, got %v", want, sources(report))
				}
				if report.Converted() != len(want) {
					t.Errorf("expected %d converted, got %d", len(want), report.Converted())
				}
				for _, o := range report.Outcomes {
					tu.AssertFileExists(t, o.Destination)
				}

				wantMode := Parallel
				if workers == 1 {
					wantMode = Serial
				}
				if report.Mode != wantMode {
					t.Errorf("expected mode %q, got %q", wantMode, report.Mode)
				}
				if e.State() != Done {
					t.Errorf("expected state %v, got %v", Done, e.State())
				}
			})
		}
	})

	t.Run("two album scenario", func(t *testing.T) {
		for _, workers := range []int{1, 3} {
			dir := t.TempDir()
			tu.MustWriteFiles(t, dir, "albumA/track1.src", "albumB/track1.src", "albumB/notes.txt")
			e := newEngine(writeDst("dst"), workers, convert.Options{SourceExtension: ".src", DestinationExtension: ".dst"})

			report := e.Run(ctx, []string{filepath.Join(dir, "albumA"), filepath.Join(dir, "albumB")})

			if len(report.Errors) != 0 {
				t.Fatalf("unexpected errors: %v", report.Errors)
			}
			if report.Converted() != 2 {
				t.Errorf("expected 2 conversions, got %d", report.Converted())
			}
			tu.AssertFileExists(t, filepath.Join(dir, "albumA/track1.dst"))
			tu.AssertFileExists(t, filepath.Join(dir, "albumB/track1.dst"))
			if got := tu.MustReadFile(t, filepath.Join(dir, "albumB/notes.txt")); got != "albumB/notes.txt" {
				t.Errorf("notes.txt was modified: %q", got)
			}
			tu.AssertFileMissing(t, filepath.Join(dir, "albumB/notes.dst"))
		}
	})

	t.Run("missing root is skipped silently", func(t *testing.T) {
		dir := t.TempDir()
		paths := tu.MustWriteFiles(t, dir, "real/a.flac", "file.flac")
		roots := []string{filepath.Join(dir, "missing"), filepath.Join(dir, "real"), paths[1]}

		for _, workers := range []int{1, 2} {
			e := newEngine(writeDst("mp3"), workers, convert.Options{Overwrite: true})
			report := e.Run(ctx, roots)

			if len(report.Errors) != 0 {
				t.Errorf("expected no errors, got %v", report.Errors)
			}
			if !tu.SameSet(sources(report), paths[:1]) {
				t.Errorf("expected only %v, got %v", paths[:1], sources(report))
			}
		}
	})

	t.Run("serial errors follow discovery order", func(t *testing.T) {
		roots, want := library(t)
		e := newEngine(runnerFunc(func(ctx context.Context, src, dst string) error {
			return errors.New("encoder missing")
		}), 1, convert.Options{})

		var discovered []string
		for path, err := range scanner.New(roots, ".flac", nil).All() {
			if err != nil {
				t.Fatal(err)
			}
			discovered = append(discovered, path)
		}

		report := e.Run(ctx, roots)

		if len(report.Errors) != len(want) {
			t.Fatalf("expected %d errors, got %d", len(want), len(report.Errors))
		}
		for i, err := range report.Errors {
			var jobErr *shared.JobError
			if !errors.As(err, &jobErr) || !errors.Is(err, shared.ErrConversion) {
				t.Fatalf("expected a conversion JobError, got %v", err)
			}
			if jobErr.Path != discovered[i] {
				t.Errorf("error %d: expected %s, got %s", i, discovered[i], jobErr.Path)
			}
		}
		if report.Converted() != 0 {
			t.Errorf("expected no conversions, got %d", report.Converted())
		}
	})

	t.Run("second run skips existing destinations", func(t *testing.T) {
		for _, workers := range []int{1, 4} {
			roots, want := library(t)
			first := newEngine(writeDst("first"), workers, convert.Options{}).Run(ctx, roots)
			if len(first.Errors) != 0 {
				t.Fatalf("first run failed: %v", first.Errors)
			}

			second := newEngine(writeDst("second"), workers, convert.Options{}).Run(ctx, roots)

			if got := len(second.ErrorsOf(shared.ErrDestinationExists)); got != len(want) {
				t.Errorf("expected %d destination-exists records, got %d (%v)", len(want), got, second.Errors)
			}
			if len(second.Errors) != len(want) {
				t.Errorf("expected only destination-exists records, got %v", second.Errors)
			}
			for _, o := range first.Outcomes {
				if got := tu.MustReadFile(t, o.Destination); got != "first" {
					t.Errorf("%s was modified: %q", o.Destination, got)
				}
			}
		}
	})

	t.Run("second run with overwrite replaces destinations", func(t *testing.T) {
		for _, workers := range []int{1, 4} {
			roots, want := library(t)
			opts := convert.Options{Overwrite: true}
			newEngine(writeDst("first"), workers, opts).Run(ctx, roots)

			second := newEngine(writeDst("second"), workers, opts).Run(ctx, roots)

			if len(second.Errors) != 0 {
				t.Fatalf("unexpected errors: %v", second.Errors)
			}
			if second.Converted() != len(want) {
				t.Errorf("expected %d conversions, got %d", len(want), second.Converted())
			}
			for _, o := range second.Outcomes {
				if got := tu.MustReadFile(t, o.Destination); got != "second" {
					t.Errorf("%s was not replaced: %q", o.Destination, got)
				}
			}
		}
	})

	t.Run("remove after keeps sources of failed jobs", func(t *testing.T) {
		for _, workers := range []int{1, 3} {
			dir := t.TempDir()
			paths := tu.MustWriteFiles(t, dir, "good.flac", "bad.flac", "also-good.flac")
			runner := runnerFunc(func(ctx context.Context, src, dst string) error {
				if filepath.Base(src) == "bad.flac" {
					return errors.New("corrupt stream")
				}
				return os.WriteFile(dst, []byte("mp3"), 0644)
			})
			e := newEngine(runner, workers, convert.Options{RemoveSource: true})

			report := e.Run(ctx, []string{dir})

			if len(report.Errors) != 1 || !errors.Is(report.Errors[0], shared.ErrConversion) {
				t.Fatalf("expected one conversion error, got %v", report.Errors)
			}
			tu.AssertFileMissing(t, paths[0])
			tu.AssertFileExists(t, paths[1])
			tu.AssertFileMissing(t, paths[2])
		}
	})

	t.Run("tag failure keeps source", func(t *testing.T) {
		dir := t.TempDir()
		src := tu.MustWriteFiles(t, dir, "a.flac")[0]
		conv := convert.NewConverter(writeDst("mp3"), &tu.StubTranslator{Err: errors.New("no tags")},
			convert.Options{SourceExtension: ".flac", DestinationExtension: ".mp3", RemoveSource: true}, nil)
		e := NewEngine(conv, EngineOpts{Workers: 2, SourceExtension: ".flac"})

		report := e.Run(ctx, []string{dir})

		if len(report.ErrorsOf(shared.ErrTagTranslation)) != 1 {
			t.Fatalf("expected a tag translation record, got %v", report.Errors)
		}
		tu.AssertFileExists(t, src)
		tu.AssertFileExists(t, filepath.Join(dir, "a.mp3"))
	})

	t.Run("scan errors are recorded and the batch continues", func(t *testing.T) {
		tu.SkipIfRoot(t)
		for _, workers := range []int{1, 2} {
			dir := t.TempDir()
			paths := tu.MustWriteFiles(t, dir, "locked/a.flac", "open/b.flac")
			locked := filepath.Join(dir, "locked")
			if err := os.Chmod(locked, 0); err != nil {
				t.Fatal(err)
			}
			t.Cleanup(func() { os.Chmod(locked, 0755) })

			e := newEngine(writeDst("mp3"), workers, convert.Options{})
			report := e.Run(ctx, []string{locked, filepath.Join(dir, "open")})

			if len(report.ErrorsOf(shared.ErrScan)) != 1 || len(report.Errors) != 1 {
				t.Errorf("expected exactly one scan error, got %v", report.Errors)
			}
			if !tu.SameSet(sources(report), paths[1:]) {
				t.Errorf("expected %v, got %v", paths[1:], sources(report))
			}
		}
	})

	t.Run("pool never exceeds the worker count", func(t *testing.T) {
		dir := t.TempDir()
		names := make([]string, 24)
		for i := range names {
			names[i] = fmt.Sprintf("%02d.flac", i)
		}
		tu.MustWriteFiles(t, dir, names...)

		const workers = 3
		var inFlight, peak atomic.Int32
		runner := runnerFunc(func(ctx context.Context, src, dst string) error {
			n := inFlight.Add(1)
			defer inFlight.Add(-1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			return os.WriteFile(dst, nil, 0644)
		})

		report := newEngine(runner, workers, convert.Options{}).Run(ctx, []string{dir})

		if report.Converted() != len(names) {
			t.Errorf("expected %d conversions, got %d", len(names), report.Converted())
		}
		if peak.Load() > workers {
			t.Errorf("expected at most %d concurrent jobs, saw %d", workers, peak.Load())
		}
	})

	t.Run("report metadata", func(t *testing.T) {
		roots, _ := library(t)
		e := newEngine(writeDst("mp3"), 2, convert.Options{})
		report := e.Run(ctx, roots)

		if report.RunID == "" {
			t.Error("expected a run id")
		}
		if report.Workers != 2 {
			t.Errorf("expected 2 workers, got %d", report.Workers)
		}
		if report.FinishedAt.Before(report.StartedAt) || report.Elapsed() < 0 {
			t.Error("finish time precedes start time")
		}
		if len(report.Roots) != len(roots) {
			t.Errorf("expected roots to be recorded, got %v", report.Roots)
		}
	})
}

func TestStateString(t *testing.T) {
	for state, want := range map[State]string{Idle: "idle", Dispatching: "dispatching", Draining: "draining", Done: "done", State(42): ""} {
		if got := state.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", state, got, want)
		}
	}
}

func TestNewEngineState(t *testing.T) {
	e := newEngine(writeDst(""), 1, convert.Options{})
	if e.State() != Idle {
		t.Errorf("expected a new engine to be idle, got %v", e.State())
	}
}
