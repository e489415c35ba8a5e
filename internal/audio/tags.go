package audio

import (
	"encoding/json"
	"fmt"
	"os"

	id3v2 "github.com/bogem/id3v2/v2"
)

// Track is the curated metadata for one audio asset, keyed by the
// numeric id its .wem file carries in the game data.
type Track struct {
	Artist     string         `json:"artist"`
	Title      string         `json:"title"`
	WemName    int            `json:"wem_name"`
	ExtraIDs   []int          `json:"extra_ids,omitempty"`
	Writer     string         `json:"writer,omitempty"`
	RealArtist string         `json:"real_artist,omitempty"`
	OtherUses  map[int]string `json:"other_uses,omitempty"` // wem id to usage
}

// Manifest maps a station name to its track list. The manifest is
// how the set of interesting ids is supplied; the extractor never
// discovers them itself.
type Manifest map[string][]Track

// LoadManifest reads a JSON track manifest.
func LoadManifest(path string) (Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read track manifest: %w", err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("invalid track manifest %s: %w", path, err)
	}
	return m, nil
}

// WriteID3 stamps the track's metadata onto a finished mp3. The
// station name becomes the album, with a fixed various-artists
// compilation framing.
func (t Track) WriteID3(mp3Path, station string) error {
	tag, err := id3v2.Open(mp3Path, id3v2.Options{Parse: true})
	if err != nil {
		return fmt.Errorf("failed to open %s for tagging: %w", mp3Path, err)
	}
	defer tag.Close()

	tag.SetDefaultEncoding(id3v2.EncodingUTF8)
	tag.SetArtist(t.Artist)
	tag.SetTitle(t.Title)
	tag.SetAlbum(station)
	tag.AddTextFrame(tag.CommonID("Original artist/performer"), id3v2.EncodingUTF8, t.RealArtist)
	tag.AddTextFrame(tag.CommonID("Composer"), id3v2.EncodingUTF8, t.Writer)
	tag.AddTextFrame(tag.CommonID("Band/Orchestra/Accompaniment"), id3v2.EncodingUTF8, "Various Artists")
	tag.AddTextFrame(tag.CommonID("Recording time"), id3v2.EncodingUTF8, "2023")
	tag.AddTextFrame("TCMP", id3v2.EncodingUTF8, "1")

	if err := tag.Save(); err != nil {
		return fmt.Errorf("failed to save tags on %s: %w", mp3Path, err)
	}
	return nil
}
