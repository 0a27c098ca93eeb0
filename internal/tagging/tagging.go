// Package tagging writes ID3v2 metadata to audio-mode downloads.
package tagging

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/bogem/id3v2/v2"
)

// Meta is the subset of scraped media metadata we stamp onto an mp3.
type Meta struct {
	Title    string
	Artist   string
	Source   string
	Duration int
}

// TagMP3 writes ID3v2.4 frames to the file at path. Only .mp3 files are
// supported; other extensions return an error so callers can skip tagging
// instead of corrupting a container.
func TagMP3(path string, meta Meta) error {
	if ext := strings.ToLower(filepath.Ext(path)); ext != ".mp3" {
		return fmt.Errorf("unsupported file format: %s", ext)
	}

	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return fmt.Errorf("failed to open mp3 file: %w", err)
	}
	defer tag.Close()

	tag.SetVersion(4)

	if meta.Title != "" {
		tag.SetTitle(meta.Title)
	}
	if meta.Artist != "" {
		tag.SetArtist(meta.Artist)
	}
	if meta.Source != "" {
		// WOAS is a URL frame. URL frames carry no encoding byte, so it
		// must not go through the text-frame path.
		tag.AddFrame("WOAS", id3v2.UnknownFrame{Body: []byte(meta.Source)})
	}
	if meta.Duration > 0 {
		// TLEN wants milliseconds
		tag.AddTextFrame(tag.CommonID("Length"), tag.DefaultEncoding(), fmt.Sprintf("%d", meta.Duration*1000))
	}

	if err := tag.Save(); err != nil {
		return fmt.Errorf("failed to save tags: %w", err)
	}
	return nil
}
