// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/go-flac/flacvorbis"
	flac "github.com/go-flac/go-flac"
)

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// StubRunner is a test double for the conversion runner. It writes Output to the destination unless Err is set.
type StubRunner struct {
	Err    error
	Output []byte

	mu    sync.Mutex
	calls [][2]string
}

func (s *StubRunner) Run(ctx context.Context, src, dst string) error {
	s.mu.Lock()
	s.calls = append(s.calls, [2]string{src, dst})
	s.mu.Unlock()

	if s.Err != nil {
		return s.Err
	}
	return os.WriteFile(dst, s.Output, 0644)
}

// Calls returns the (source, destination) pairs the runner received.
func (s *StubRunner) Calls() [][2]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][2]string(nil), s.calls...)
}

// StubTranslator is a test double for the tag translator.
type StubTranslator struct {
	Err error

	mu    sync.Mutex
	calls int
}

func (s *StubTranslator) Translate(src, dst string) error {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	return s.Err
}

func (s *StubTranslator) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// MustWriteFiles creates each named file under dir with content equal to its name.
func MustWriteFiles(t *testing.T, dir string, names ...string) []string {
	t.Helper()
	paths := make([]string, 0, len(names))
	for _, name := range names {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("Failed to create directory for %s: %v", path, err)
		}
		if err := os.WriteFile(path, []byte(name), 0644); err != nil {
			t.Fatalf("Failed to write %s: %v", path, err)
		}
		paths = append(paths, path)
	}
	return paths
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func AssertFileMissing(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Lstat(path); err == nil {
		t.Errorf("File should not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}

// SameSet reports whether got and want hold the same strings, ignoring order.
func SameSet(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	g := append([]string(nil), got...)
	w := append([]string(nil), want...)
	sort.Strings(g)
	sort.Strings(w)
	for i := range g {
		if g[i] != w[i] {
			return false
		}
	}
	return true
}

// SkipIfRoot skips tests that rely on permission bits, which root ignores.
func SkipIfRoot(t *testing.T) {
	t.Helper()
	if os.Geteuid() == 0 {
		t.Skip("permission checks do not apply to root")
	}
}

// FLACAudio stands in for the frames of the streams written by [MustWriteFLAC].
var FLACAudio = []byte{0xff, 0xf8, 0x69, 0x08, 0x00, 0x00, 0x00, 0x01}

// MustWriteFLAC writes a minimal FLAC stream carrying the given raw vorbis comments ("KEY=value").
func MustWriteFLAC(t *testing.T, path string, comments ...string) {
	t.Helper()
	cmt := flacvorbis.New()
	cmt.Comments = append(cmt.Comments, comments...)
	block := cmt.Marshal()

	f := &flac.File{
		Meta: []*flac.MetaDataBlock{
			{Type: flac.StreamInfo, Data: make([]byte, 34)},
			&block,
		},
		Frames: FLACAudio,
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("Failed to create directory for %s: %v", path, err)
	}
	if err := f.Save(path); err != nil {
		t.Fatalf("Failed to write flac fixture: %v", err)
	}
}
