package tags

import (
	"os"
	"strconv"
	"strings"

	"github.com/go-flac/flacvorbis"
	flac "github.com/go-flac/go-flac"
)

const fieldAlbumArtist = "ALBUMARTIST"

// Vorbis is the FLAC vorbis comment format.
type Vorbis struct{}

func (Vorbis) Name() string { return "flac" }

// Open reads only the metadata blocks of path; the audio stream is loaded on Save.
func (Vorbis) Open(path string) (Document, error) {
	r, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	f, err := flac.ParseMetadata(r)
	if err != nil {
		return nil, err
	}
	return newVorbisDocument(path, f, false, true)
}

func (Vorbis) Create(path string) (Document, error) {
	f, err := flac.ParseFile(path)
	if err != nil {
		return nil, err
	}
	return newVorbisDocument(path, f, true, false)
}

type vorbisDocument struct {
	path     string
	file     *flac.File
	cmt      *flacvorbis.MetaDataBlockVorbisComment
	index    int  // position of the comment block in file.Meta, -1 when the file has none
	metaOnly bool // file.Frames was never read
}

func newVorbisDocument(path string, f *flac.File, empty, metaOnly bool) (*vorbisDocument, error) {
	doc := &vorbisDocument{path: path, file: f, index: -1, metaOnly: metaOnly}
	for i, meta := range f.Meta {
		if meta.Type != flac.VorbisComment {
			continue
		}
		doc.index = i
		if !empty {
			cmt, err := flacvorbis.ParseFromMetaDataBlock(*meta)
			if err != nil {
				return nil, err
			}
			doc.cmt = cmt
		}
		break
	}

	if doc.cmt == nil {
		doc.cmt = flacvorbis.New()
	}
	return doc, nil
}

// get returns the first value named key. Comments without "=" are ignored.
func (d *vorbisDocument) get(key string) (string, bool) {
	for _, c := range d.cmt.Comments {
		name, value, ok := strings.Cut(c, "=")
		if ok && strings.EqualFold(name, key) {
			return value, true
		}
	}
	return "", false
}

// set replaces every comment named key with a single value.
func (d *vorbisDocument) set(key, value string) {
	kept := d.cmt.Comments[:0]
	for _, c := range d.cmt.Comments {
		name, _, _ := strings.Cut(c, "=")
		if !strings.EqualFold(name, key) {
			kept = append(kept, c)
		}
	}
	d.cmt.Comments = append(kept, key+"="+value)
}

func (d *vorbisDocument) Artist() (string, bool)      { return d.get(flacvorbis.FIELD_ARTIST) }
func (d *vorbisDocument) Album() (string, bool)       { return d.get(flacvorbis.FIELD_ALBUM) }
func (d *vorbisDocument) AlbumArtist() (string, bool) { return d.get(fieldAlbumArtist) }
func (d *vorbisDocument) Title() (string, bool)       { return d.get(flacvorbis.FIELD_TITLE) }
func (d *vorbisDocument) Genre() (string, bool)       { return d.get(flacvorbis.FIELD_GENRE) }

func (d *vorbisDocument) TrackNumber() (int, bool) {
	v, ok := d.get(flacvorbis.FIELD_TRACKNUMBER)
	if !ok {
		return 0, false
	}
	return parseTrackNumber(v)
}

func (d *vorbisDocument) SetArtist(v string)      { d.set(flacvorbis.FIELD_ARTIST, v) }
func (d *vorbisDocument) SetAlbum(v string)       { d.set(flacvorbis.FIELD_ALBUM, v) }
func (d *vorbisDocument) SetAlbumArtist(v string) { d.set(fieldAlbumArtist, v) }
func (d *vorbisDocument) SetTitle(v string)       { d.set(flacvorbis.FIELD_TITLE, v) }
func (d *vorbisDocument) SetGenre(v string)       { d.set(flacvorbis.FIELD_GENRE, v) }
func (d *vorbisDocument) SetTrackNumber(n int)    { d.set(flacvorbis.FIELD_TRACKNUMBER, strconv.Itoa(n)) }

// Save writes the comment block back into the file, replacing the previous one.
func (d *vorbisDocument) Save() error {
	if d.metaOnly {
		full, err := flac.ParseFile(d.path)
		if err != nil {
			return err
		}
		d.file.Frames = full.Frames
		d.metaOnly = false
	}

	block := d.cmt.Marshal()
	if d.index >= 0 {
		d.file.Meta[d.index] = &block
	} else {
		d.file.Meta = append(d.file.Meta, &block)
		d.index = len(d.file.Meta) - 1
	}
	return d.file.Save(d.path)
}

func (d *vorbisDocument) Close() error { return nil }
