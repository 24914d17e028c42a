// Package scanner implements the media ingestion pipeline: it walks an
// extracted archive folder, reads per-file metadata, assembles an
// ordered manifest, registers the folder as a media record, and kicks
// off background thumbnail generation.
package scanner

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/mediakeepapp/mediakeep-server/internal/domain"
)

// FileEntry is one file discovered by the walker.
type FileEntry struct {
	// Path is the absolute filesystem location.
	Path string

	// RelPath is the path relative to the walk root, separators
	// normalized to forward slashes.
	RelPath string

	// Size is the file size in bytes.
	Size int64
}

// Registrar persists media records. Implemented by the sqlite store.
type Registrar interface {
	// UpsertMedia inserts rec or, when a record for rec.FolderPath
	// already exists, replaces its fields while preserving the
	// original id and creation time. Returns the persisted record.
	UpsertMedia(ctx context.Context, rec *domain.MediaRecord) (*domain.MediaRecord, error)
}

// ThumbnailPopulator renders cached previews in the background.
// Implemented by the thumbs package.
type ThumbnailPopulator interface {
	// PopulateAsync returns immediately; rendering runs detached and
	// every failure is handled inside the populator.
	PopulateAsync(folderPath string, relFiles []string)
}

// CoverHasher computes a compact placeholder hash for a cover image.
type CoverHasher interface {
	HashFile(path string) (string, error)
}

// ArtworkExtractor pulls embedded artwork out of an audio file.
type ArtworkExtractor interface {
	// ExtractToFolder writes the first track's embedded artwork into
	// folder and returns the written filename, or ok=false when no
	// artwork is present.
	ExtractToFolder(ctx context.Context, trackPath, folder string) (name string, ok bool, err error)
}

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
	".bmp":  true,
	".avif": true,
}

var audioExtensions = map[string]bool{
	".mp3":  true,
	".m4a":  true,
	".m4b":  true,
	".flac": true,
	".ogg":  true,
	".opus": true,
	".wav":  true,
	".aac":  true,
}

// IsImageFile reports whether name has a recognized image extension.
func IsImageFile(name string) bool {
	return imageExtensions[strings.ToLower(filepath.Ext(name))]
}

// IsAudioFile reports whether name has a recognized audio extension.
func IsAudioFile(name string) bool {
	return audioExtensions[strings.ToLower(filepath.Ext(name))]
}

// IsMediaFile reports whether name is an image or audio file.
func IsMediaFile(name string) bool {
	return IsImageFile(name) || IsAudioFile(name)
}
