package main

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/flacmp3/internal/shared"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config *shared.Config
	logger *log.Logger
	output io.Writer
	numCPU func() int
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config *shared.Config // Used when --config is not given
	Logger *log.Logger
	Output io.Writer
	NumCPU func() int // Worker count for -j 0
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.NumCPU == nil {
		opts.NumCPU = defaultNumCPU
	}

	return &Runner{
		config: opts.Config,
		logger: opts.Logger,
		output: opts.Output,
		numCPU: opts.NumCPU,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		historyCommand, initConfigCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// loadConfig returns the configuration selected by --config.
func (r *Runner) loadConfig(cmd *cli.Command) (*shared.Config, error) {
	return r.loadConfigFrom(cmd.String("config"))
}

// loadConfigFrom loads path, or returns a private copy of the runner's default when path is empty.
func (r *Runner) loadConfigFrom(path string) (*shared.Config, error) {
	if path != "" {
		r.logger.Debug("loading config", "path", path)
		return shared.LoadConfig(path)
	}
	config := *r.config
	return &config, nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
