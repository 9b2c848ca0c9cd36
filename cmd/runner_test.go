package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/flacmp3/internal/shared"
	tu "github.com/desertthunder/flacmp3/internal/testing"
)

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}

			runner := NewRunner(RunnerOpts{
				Config: config,
				Logger: logger,
				Output: output,
				NumCPU: func() int { return 3 },
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.numCPU() != 3 {
				t.Error("expected numCPU to be set")
			}
		})

		t.Run("with nil config uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Config: nil})

			if runner.config == nil {
				t.Fatal("expected default config to be set")
			}
			if runner.config.DecodeCommand[0] != "flac" {
				t.Errorf("expected the built-in decoder, got %v", runner.config.DecodeCommand)
			}
		})

		t.Run("with nil logger uses default", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Logger: nil})

			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
		})

		t.Run("with nil output uses stdout", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: nil})

			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
		})

		t.Run("with nil numCPU detects processors", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.numCPU() < 1 {
				t.Error("expected at least one CPU")
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		t.Run("writes plain text successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writePlain("hello %s", "world"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if output.String() != "hello world" {
				t.Errorf("expected 'hello world', got %q", output.String())
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writePlain("test")
			if err == nil {
				t.Fatal("expected error from failing writer")
			}
			if !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})

		t.Run("header", func(t *testing.T) {
			output := &bytes.Buffer{}
			NewRunner(RunnerOpts{Output: output}).writePlainHeader("Run #1")

			if lines := strings.Split(strings.TrimSpace(output.String()), "\n"); len(lines) != 3 || lines[1] != "Run #1" {
				t.Errorf("unexpected header %q", output.String())
			}
		})

		t.Run("header writes nothing past the writer limit", func(t *testing.T) {
			output := &bytes.Buffer{}
			w := tu.NewLimitedWriter(1, 0, output)
			NewRunner(RunnerOpts{Output: &w}).writePlainHeader("Run #1")

			if strings.Contains(output.String(), "Run #1") {
				t.Errorf("expected only the first rule to be written, got %q", output.String())
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		commands := runner.register()

		names := map[string]bool{}
		for i, cmd := range commands {
			if cmd == nil {
				t.Fatalf("command at index %d is nil", i)
			}
			names[cmd.Name] = true
		}
		for _, want := range []string{"history", "init-config"} {
			if !names[want] {
				t.Errorf("expected %s command to be registered", want)
			}
		}
	})

	t.Run("loadConfig", func(t *testing.T) {
		t.Run("copies the runner default", func(t *testing.T) {
			base := shared.DefaultConfig()
			runner := NewRunner(RunnerOpts{Config: base, Logger: log.New(&bytes.Buffer{})})

			got, err := runner.loadConfigFrom("")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			got.Overwrite = !base.Overwrite
			if base.Overwrite == got.Overwrite {
				t.Error("expected a private copy")
			}
		})

		t.Run("reads the named file", func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			doc := "decode_command: [cat, \"{}\"]\nencode_command: [tee, \"{}\"]\nworkers: 3\n"
			if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
				t.Fatal(err)
			}

			got, err := NewRunner(RunnerOpts{}).loadConfigFrom(path)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Workers != 3 || got.EncodeCommand[0] != "tee" {
				t.Errorf("unexpected config %+v", got)
			}
		})

		t.Run("invalid file", func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte("workers = -1\n"), 0644); err != nil {
				t.Fatal(err)
			}

			if _, err := NewRunner(RunnerOpts{}).loadConfigFrom(path); !errors.Is(err, shared.ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	})
}
