package convert

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/flacmp3/internal/shared"
	"github.com/desertthunder/flacmp3/internal/tags"
)

// Runner produces the destination audio file from the source.
type Runner interface {
	Run(ctx context.Context, src, dst string) error
}

// Translator copies descriptive tags from the source to an existing destination.
type Translator interface {
	Translate(src, dst string) error
}

// Options controls a [Converter].
type Options struct {
	SourceExtension      string
	DestinationExtension string
	Overwrite            bool
	RemoveSource         bool
}

// Converter performs one conversion job at a time. It holds no per-job state, so one Converter may
// be shared by any number of goroutines.
type Converter struct {
	runner     Runner
	translator Translator
	opts       Options
	logger     *log.Logger
}

// NewConverter creates a [Converter].
func NewConverter(runner Runner, translator Translator, opts Options, logger *log.Logger) *Converter {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Converter{
		runner:     runner,
		translator: translator,
		opts:       opts,
		logger:     logger,
	}
}

// FromConfig wires the external pipeline and the tag translator described by cfg.
func FromConfig(cfg *shared.Config, logger *log.Logger) (*Converter, error) {
	translator, err := tags.ForExtensions(cfg.SourceExtension, cfg.DestinationExtension)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidConfig, err)
	}

	pipeline := &Pipeline{
		Decode: Template(cfg.DecodeCommand),
		Encode: Template(cfg.EncodeCommand),
		Logger: logger,
	}

	return NewConverter(pipeline, translator, Options{
		SourceExtension:      cfg.SourceExtension,
		DestinationExtension: cfg.DestinationExtension,
		Overwrite:            cfg.Overwrite,
		RemoveSource:         cfg.RemoveAfter,
	}, logger), nil
}

// Destination returns the output path for src: same directory and stem, destination extension.
func (c *Converter) Destination(src string) string {
	return strings.TrimSuffix(src, c.opts.SourceExtension) + c.opts.DestinationExtension
}

// Convert runs the whole job for src. The steps run in a fixed order and the first failure ends the
// job:
//
//  1. destination exists and overwriting is off: [shared.ErrDestinationExists], nothing is touched
//  2. pipeline failure: [shared.ErrConversion], no tags are written
//  3. tag failure: [shared.ErrTagTranslation], the untagged destination stays on disk
//  4. source removal failure: [shared.ErrRemoveSource], the destination is complete
func (c *Converter) Convert(ctx context.Context, src string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = shared.NewJobError(shared.ErrConversion, src, fmt.Errorf("panic: %v", r))
		}
	}()

	dst := c.Destination(src)
	logger := c.logger.With("source", src)
	started := time.Now()

	if !c.opts.Overwrite {
		if _, err := os.Lstat(dst); err == nil {
			logger.Debug("skipping, destination exists", "destination", dst)
			return shared.NewJobError(shared.ErrDestinationExists, dst, nil)
		}
	}

	logger.Info("converting", "destination", dst)
	if err := c.runner.Run(ctx, src, dst); err != nil {
		return shared.NewJobError(shared.ErrConversion, src, err)
	}

	logger.Debug("translating tags", "destination", dst)
	if err := c.translator.Translate(src, dst); err != nil {
		return shared.NewJobError(shared.ErrTagTranslation, dst, err)
	}

	if c.opts.RemoveSource {
		if err := os.Remove(src); err != nil {
			return shared.NewJobError(shared.ErrRemoveSource, src, err)
		}
		logger.Debug("removed source")
	}

	logger.Debug("finished", "elapsed", time.Since(started))
	return nil
}
