package shared

import (
	"errors"
	"fmt"
)

var (
	// Configuration errors abort a run before anything is scanned.
	ErrInvalidConfig  = fmt.Errorf("invalid configuration")
	ErrInvalidWorkers = fmt.Errorf("invalid workers value")

	// Per-file and per-directory errors are recorded and the batch continues.
	ErrScan              = fmt.Errorf("scan failed")
	ErrDestinationExists = fmt.Errorf("destination already exists")
	ErrConversion        = fmt.Errorf("conversion failed")
	ErrTagTranslation    = fmt.Errorf("tag translation failed")
	ErrRemoveSource      = fmt.Errorf("removing source failed")

	// Input validation errors
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")

	ErrUnsupportedFormat = fmt.Errorf("unsupported tag format")
	ErrRunNotFound       = fmt.Errorf("run not found")
)

// JobError is the record of one failed job or scan step.
//
// Kind is one of the sentinel errors above, Path is the file or directory involved and Err is
// the underlying cause (may be nil). [errors.Is] matches both Kind and anything wrapped by Err.
type JobError struct {
	Kind error
	Path string
	Err  error
}

// NewJobError builds a [JobError].
func NewJobError(kind error, path string, err error) *JobError {
	return &JobError{Kind: kind, Path: path, Err: err}
}

func (e *JobError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%v: %s", e.Kind, e.Path)
	}
	return fmt.Sprintf("%v: %s: %v", e.Kind, e.Path, e.Err)
}

func (e *JobError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Describe returns the category and path of an error record. Errors that are not a [JobError]
// report their own message as the category and an empty path.
func Describe(err error) (kind, path string) {
	var jobErr *JobError
	if errors.As(err, &jobErr) {
		return jobErr.Kind.Error(), jobErr.Path
	}
	for _, k := range []error{ErrInvalidWorkers, ErrInvalidConfig} {
		if errors.Is(err, k) {
			return k.Error(), ""
		}
	}
	return err.Error(), ""
}
