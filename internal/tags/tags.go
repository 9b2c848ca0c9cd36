// Package tags copies descriptive metadata between audio tag formats.
//
// Every concrete format (FLAC vorbis comments, ID3v2) is exposed through the same two capabilities:
// [FieldReader] for optional descriptive fields and [FieldWriter] for setting them. [Copy] and
// [Translator] depend only on those interfaces.
package tags

import (
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/multierr"
)

// FieldReader reads optional descriptive fields. The boolean is false when the field is absent.
type FieldReader interface {
	Artist() (string, bool)
	Album() (string, bool)
	AlbumArtist() (string, bool)
	Title() (string, bool)
	Genre() (string, bool)
	TrackNumber() (int, bool)
}

// FieldWriter sets descriptive fields.
type FieldWriter interface {
	SetArtist(string)
	SetAlbum(string)
	SetAlbumArtist(string)
	SetTitle(string)
	SetGenre(string)
	SetTrackNumber(int)
}

// Document is the tag block of one file.
type Document interface {
	FieldReader
	FieldWriter
	Save() error
	Close() error
}

// Format opens tag documents of one concrete format.
type Format interface {
	Name() string
	Open(path string) (Document, error)   // Open parses the tags already present in path.
	Create(path string) (Document, error) // Create starts an empty tag block that replaces any existing one on Save.
}

// Copy sets on w every field present on r.
func Copy(r FieldReader, w FieldWriter) {
	if v, ok := r.Artist(); ok {
		w.SetArtist(v)
	}
	if v, ok := r.Album(); ok {
		w.SetAlbum(v)
	}
	if v, ok := r.AlbumArtist(); ok {
		w.SetAlbumArtist(v)
	}
	if v, ok := r.Genre(); ok {
		w.SetGenre(v)
	}
	if v, ok := r.Title(); ok {
		w.SetTitle(v)
	}
	if n, ok := r.TrackNumber(); ok {
		w.SetTrackNumber(n)
	}
}

// Translator copies descriptive fields from a source file to a destination file.
type Translator struct {
	source      Format
	destination Format
}

// NewTranslator creates a [Translator] reading with source and writing with destination.
func NewTranslator(source, destination Format) *Translator {
	return &Translator{source: source, destination: destination}
}

// Translate reads the tags of src and writes them as a fresh tag block into dst. dst must already exist.
func (t *Translator) Translate(src, dst string) (err error) {
	in, err := t.source.Open(src)
	if err != nil {
		return fmt.Errorf("failed to read %s tags: %w", t.source.Name(), err)
	}
	defer func() { err = multierr.Append(err, in.Close()) }()

	out, err := t.destination.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to open %s tags: %w", t.destination.Name(), err)
	}

	Copy(in, out)

	if err := multierr.Append(out.Save(), out.Close()); err != nil {
		return fmt.Errorf("failed to write %s tags: %w", t.destination.Name(), err)
	}
	return nil
}

// parseTrackNumber accepts "7" and "7/12".
func parseTrackNumber(v string) (int, bool) {
	v, _, _ = strings.Cut(strings.TrimSpace(v), "/")
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
