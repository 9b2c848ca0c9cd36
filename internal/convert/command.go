package convert

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/charmbracelet/log"
	"go.uber.org/multierr"
)

const (
	placeholder        = "{}"
	escapedPlaceholder = "{{}}"
)

// Template is a program followed by its arguments. An argument equal to "{}" stands for the file
// being processed and "{{}}" stands for a literal "{}". The program itself is never substituted.
type Template []string

// Expand returns the program and its arguments for path.
func (t Template) Expand(path string) (string, []string, error) {
	if len(t) == 0 || t[0] == "" {
		return "", nil, fmt.Errorf("empty command template")
	}

	args := make([]string, 0, len(t)-1)
	for _, tok := range t[1:] {
		switch tok {
		case escapedPlaceholder:
			args = append(args, placeholder)
		case placeholder:
			args = append(args, path)
		default:
			args = append(args, tok)
		}
	}
	return t[0], args, nil
}

// Command builds the [exec.Cmd] for path.
func (t Template) Command(ctx context.Context, path string) (*exec.Cmd, error) {
	name, args, err := t.Expand(path)
	if err != nil {
		return nil, err
	}
	return exec.CommandContext(ctx, name, args...), nil
}

// Pipeline runs Decode on the source with its standard output connected to the standard input of
// Encode on the destination.
type Pipeline struct {
	Decode Template
	Encode Template
	Logger *log.Logger
}

// StageError reports which stage of the pipeline failed and what it printed on stderr.
type StageError struct {
	Stage  string
	Err    error
	Stderr string
}

func (e *StageError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("%s: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("%s: %v: %s", e.Stage, e.Err, e.Stderr)
}

func (e *StageError) Unwrap() error { return e.Err }

// Run executes the pipeline and waits for both processes. It fails when either process cannot be
// started or exits unsuccessfully; when both stages fail the error carries both. A broken pipe shows
// up as a failure of the decode stage.
func (p *Pipeline) Run(ctx context.Context, src, dst string) error {
	decode, err := p.Decode.Command(ctx, src)
	if err != nil {
		return &StageError{Stage: "decode", Err: err}
	}
	encode, err := p.Encode.Command(ctx, dst)
	if err != nil {
		return &StageError{Stage: "encode", Err: err}
	}

	r, w, err := os.Pipe()
	if err != nil {
		return fmt.Errorf("failed to create pipe: %w", err)
	}

	var decodeErr, encodeErr bytes.Buffer
	decode.Stdout = w
	decode.Stderr = &decodeErr
	encode.Stdin = r
	encode.Stderr = &encodeErr

	p.logger().Debug("starting pipeline", "decode", decode.String(), "encode", encode.String())

	if err := decode.Start(); err != nil {
		r.Close()
		w.Close()
		return &StageError{Stage: "decode", Err: err}
	}
	if err := encode.Start(); err != nil {
		r.Close()
		w.Close()
		decode.Wait()
		return &StageError{Stage: "encode", Err: err}
	}

	// The children hold their own copies. Closing ours lets the encoder see EOF and the decoder see
	// EPIPE once the other side exits.
	r.Close()
	w.Close()

	encodeWait := encode.Wait()
	decodeWait := decode.Wait()

	var errs error
	if decodeWait != nil {
		errs = multierr.Append(errs, &StageError{Stage: "decode", Err: decodeWait, Stderr: strings.TrimSpace(decodeErr.String())})
	}
	if encodeWait != nil {
		errs = multierr.Append(errs, &StageError{Stage: "encode", Err: encodeWait, Stderr: strings.TrimSpace(encodeErr.String())})
	}
	return errs
}

func (p *Pipeline) logger() *log.Logger {
	if p.Logger == nil {
		return log.New(io.Discard)
	}
	return p.Logger
}
