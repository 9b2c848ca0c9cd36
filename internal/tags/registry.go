package tags

import (
	"fmt"

	"github.com/desertthunder/flacmp3/internal/shared"
)

var formats = map[string]Format{
	".flac": Vorbis{},
	".mp3":  ID3{},
}

// Lookup returns the tag format for a file extension (with the dot).
func Lookup(ext string) (Format, error) {
	f, ok := formats[ext]
	if !ok {
		return nil, fmt.Errorf("%w: no tag format for %q", shared.ErrUnsupportedFormat, ext)
	}
	return f, nil
}

// ForExtensions builds the [Translator] for a source/destination extension pair.
func ForExtensions(sourceExt, destinationExt string) (*Translator, error) {
	src, err := Lookup(sourceExt)
	if err != nil {
		return nil, err
	}
	dst, err := Lookup(destinationExt)
	if err != nil {
		return nil, err
	}
	return NewTranslator(src, dst), nil
}
