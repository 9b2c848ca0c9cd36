// Package scanner lazily enumerates candidate files directly inside a list of root directories.
//
// Roots are visited in the order given. A root that does not exist or is not a directory is skipped
// without an error. Directory entries are read in small batches so a large directory is never loaded
// into memory at once. Only immediate children are considered: there is no recursion.
package scanner

import (
	"errors"
	"io"
	"iter"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/flacmp3/internal/shared"
)

// entries requested from the OS per read
const readBatch = 64

// Result is one item of the scan: either a candidate file path or a scan error.
type Result struct {
	Path string
	Err  error
}

// Scanner is a single-pass iterator over the candidate files of several roots.
//
// A Scanner is not safe for concurrent use and cannot be restarted.
type Scanner struct {
	ext    string
	roots  []string
	logger *log.Logger

	dir     *os.File
	dirPath string
	pending []os.DirEntry
}

// New creates a Scanner yielding regular files whose extension equals ext (case-sensitive, with the dot).
//
// Roots are not deduplicated: a root listed twice is scanned twice.
func New(roots []string, ext string, logger *log.Logger) *Scanner {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Scanner{
		ext:    ext,
		roots:  append([]string(nil), roots...),
		logger: logger,
	}
}

// Next advances the scan. It returns false once every root is exhausted.
//
// Errors are returned in place as a [Result] with Err set to a [*shared.JobError] of kind
// [shared.ErrScan]. An error ends the contribution of the directory it came from; the following call
// moves on to the next root.
func (s *Scanner) Next() (Result, bool) {
	for {
		if s.dir != nil {
			if res, ok := s.nextEntry(); ok {
				return res, true
			}
		}

		if len(s.roots) == 0 {
			return Result{}, false
		}

		root := s.roots[0]
		s.roots = s.roots[1:]

		info, err := os.Stat(root)
		if err != nil || !info.IsDir() {
			s.logger.Debug("skipping non-directory", "path", root)
			continue
		}

		f, err := os.Open(root)
		if err != nil {
			return Result{Err: shared.NewJobError(shared.ErrScan, root, err)}, true
		}

		s.logger.Debug("scanning directory", "path", root)
		s.dir = f
		s.dirPath = root
	}
}

// nextEntry drains the current directory until a candidate is found, the directory ends or a read fails.
func (s *Scanner) nextEntry() (Result, bool) {
	for {
		if len(s.pending) == 0 {
			entries, err := s.dir.ReadDir(readBatch)
			if len(entries) == 0 {
				dir := s.dirPath
				s.closeDir()
				if err == nil || errors.Is(err, io.EOF) {
					return Result{}, false
				}
				return Result{Err: shared.NewJobError(shared.ErrScan, dir, err)}, true
			}
			s.pending = entries
		}

		entry := s.pending[0]
		s.pending = s.pending[1:]

		if path, ok := s.match(entry); ok {
			return Result{Path: path}, true
		}
	}
}

// match reports whether entry is a candidate. Symlinks are followed so a link to a regular file counts
// and a link to a directory does not. A name that is only the extension (".flac") has no stem and never matches.
func (s *Scanner) match(entry os.DirEntry) (string, bool) {
	if entry.Name() == s.ext || filepath.Ext(entry.Name()) != s.ext {
		return "", false
	}

	path := filepath.Join(s.dirPath, entry.Name())
	info, err := os.Stat(path)
	if err != nil {
		s.logger.Debug("skipping unreadable entry", "path", path, "error", err)
		return "", false
	}
	if !info.Mode().IsRegular() {
		s.logger.Debug("skipping non-regular file", "path", path)
		return "", false
	}
	return path, true
}

func (s *Scanner) closeDir() {
	if s.dir != nil {
		s.dir.Close()
	}
	s.dir = nil
	s.dirPath = ""
	s.pending = nil
}

// Close releases the directory currently being read, if any. Further calls to Next continue with the
// remaining roots.
func (s *Scanner) Close() error {
	s.closeDir()
	return nil
}

// All exposes the scan as a range-over-func sequence. Breaking out of the loop closes the open directory.
func (s *Scanner) All() iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		defer s.Close()
		for {
			res, ok := s.Next()
			if !ok {
				return
			}
			if !yield(res.Path, res.Err) {
				return
			}
		}
	}
}
