package tags

import (
	"strconv"

	"github.com/bogem/id3v2/v2"
)

const (
	frameAlbumArtist = "TPE2"
	frameTrack       = "TRCK"
)

// ID3 is the ID3v2 format used by MP3 files.
type ID3 struct{}

func (ID3) Name() string { return "id3" }

func (ID3) Open(path string) (Document, error) {
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return nil, err
	}
	return &id3Document{tag: tag}, nil
}

// Create skips parsing so that Save discards whatever tag the file carried before.
func (ID3) Create(path string) (Document, error) {
	tag, err := id3v2.Open(path, id3v2.Options{Parse: false})
	if err != nil {
		return nil, err
	}
	tag.SetVersion(4)
	tag.SetDefaultEncoding(id3v2.EncodingUTF8)
	return &id3Document{tag: tag}, nil
}

type id3Document struct {
	tag *id3v2.Tag
}

func present(v string) (string, bool) { return v, v != "" }

func (d *id3Document) Artist() (string, bool) { return present(d.tag.Artist()) }
func (d *id3Document) Album() (string, bool)  { return present(d.tag.Album()) }
func (d *id3Document) Title() (string, bool)  { return present(d.tag.Title()) }
func (d *id3Document) Genre() (string, bool)  { return present(d.tag.Genre()) }

func (d *id3Document) AlbumArtist() (string, bool) {
	return present(d.tag.GetTextFrame(frameAlbumArtist).Text)
}

func (d *id3Document) TrackNumber() (int, bool) {
	v, ok := present(d.tag.GetTextFrame(frameTrack).Text)
	if !ok {
		return 0, false
	}
	return parseTrackNumber(v)
}

func (d *id3Document) SetArtist(v string) { d.tag.SetArtist(v) }
func (d *id3Document) SetAlbum(v string)  { d.tag.SetAlbum(v) }
func (d *id3Document) SetTitle(v string)  { d.tag.SetTitle(v) }
func (d *id3Document) SetGenre(v string)  { d.tag.SetGenre(v) }

func (d *id3Document) SetAlbumArtist(v string) {
	d.tag.AddTextFrame(frameAlbumArtist, d.tag.DefaultEncoding(), v)
}

func (d *id3Document) SetTrackNumber(n int) {
	d.tag.AddTextFrame(frameTrack, d.tag.DefaultEncoding(), strconv.Itoa(n))
}

func (d *id3Document) Save() error  { return d.tag.Save() }
func (d *id3Document) Close() error { return d.tag.Close() }
