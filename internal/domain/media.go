// Package domain contains the core business entities for the MediaKeep library.
package domain

import (
	"fmt"
	"time"
)

// MediaKind identifies what a media record holds.
type MediaKind string

// Media kinds. The ingestion pipeline only produces MANGA and AUDIO;
// the others are created directly by the upload handler.
const (
	KindManga MediaKind = "MANGA"
	KindAudio MediaKind = "AUDIO"
	KindVideo MediaKind = "VIDEO"
	KindImage MediaKind = "IMAGE"
	KindLink  MediaKind = "LINK"
)

// Valid reports whether k is a known media kind.
func (k MediaKind) Valid() bool {
	switch k {
	case KindManga, KindAudio, KindVideo, KindImage, KindLink:
		return true
	}
	return false
}

// MediaRecord is one ingested media item. Records produced by the scan
// pipeline are keyed by FolderPath: rescanning the same path always
// updates the same record.
type MediaRecord struct {
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ID    string    `json:"id"`
	Title string    `json:"title"`
	Kind  MediaKind `json:"kind"`

	// FolderPath is the absolute filesystem location that was scanned.
	// Unique across all records; the upsert key.
	FolderPath string `json:"folder_path"`

	// Manifest describes the record's constituent files. Shape depends
	// on Kind; see Manifest.
	Manifest *Manifest `json:"manifest,omitempty"`

	// ItemCount is the number of "pages" shown in listing UIs. For
	// MANGA this is the page count; for AUDIO it is the image count,
	// not the track count.
	ItemCount int `json:"item_count"`

	// TotalSize is the sum of all file sizes under the folder at scan
	// time, in bytes.
	TotalSize int64 `json:"total_size"`

	// CoverURL is the public path of the chosen cover image, computed
	// once at scan time. Empty when no cover could be derived.
	CoverURL string `json:"cover_url,omitempty"`

	// CoverBlurHash is a compact placeholder hash of the cover image.
	CoverBlurHash string `json:"cover_blur_hash,omitempty"`

	SourceURL   string `json:"source_url,omitempty"`
	Description string `json:"description,omitempty"`
}

// Validate checks structural invariants before persistence.
func (m *MediaRecord) Validate() error {
	if m.ID == "" {
		return fmt.Errorf("media record missing id")
	}
	if m.FolderPath == "" {
		return fmt.Errorf("media record %s missing folder path", m.ID)
	}
	if !m.Kind.Valid() {
		return fmt.Errorf("media record %s has unknown kind %q", m.ID, m.Kind)
	}
	if m.Manifest != nil {
		if err := m.Manifest.ValidateFor(m.Kind); err != nil {
			return fmt.Errorf("media record %s: %w", m.ID, err)
		}
	}
	return nil
}
