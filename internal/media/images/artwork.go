package images

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/simonhull/audiometa"
)

// pngMagic is the PNG file signature, used to pick the artwork
// extension when writing extracted bytes to disk.
var pngMagic = []byte{0x89, 0x50, 0x4E, 0x47}

// ArtworkExtractor pulls embedded cover art out of audio files, for
// albums uploaded without any standalone image.
type ArtworkExtractor struct {
	logger *slog.Logger
}

// NewArtworkExtractor creates an extractor.
func NewArtworkExtractor(logger *slog.Logger) *ArtworkExtractor {
	return &ArtworkExtractor{logger: logger}
}

// ExtractToFolder reads the embedded artwork from the audio file at
// trackPath and writes it into folder as cover.jpg or cover.png.
// Returns ok=false without error when the file carries no artwork.
func (e *ArtworkExtractor) ExtractToFolder(ctx context.Context, trackPath, folder string) (string, bool, error) {
	file, err := audiometa.OpenContext(ctx, trackPath)
	if err != nil {
		return "", false, fmt.Errorf("open audio file: %w", err)
	}
	defer file.Close() //nolint:errcheck // Defer close, nothing we can do about errors here

	artworks, err := file.ExtractArtwork()
	if err != nil {
		return "", false, fmt.Errorf("extract artwork: %w", err)
	}

	if len(artworks) == 0 {
		e.logger.Debug("no embedded cover found",
			"path", trackPath,
			"format", file.Format.String(),
		)
		return "", false, nil
	}

	// Use the first artwork (typically the front cover).
	data := artworks[0].Data

	name := "cover.jpg"
	if bytes.HasPrefix(data, pngMagic) {
		name = "cover.png"
	}

	dest := filepath.Join(folder, name)
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return "", false, fmt.Errorf("write artwork: %w", err)
	}

	e.logger.Debug("extracted embedded cover",
		"path", trackPath,
		"dest", dest,
		"size", len(data),
	)

	return name, true, nil
}
