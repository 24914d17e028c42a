package domain

import (
	"encoding/json/v2"
	"fmt"
)

// PageEntry is one image within a scanned folder.
type PageEntry struct {
	// File is the folder-relative path, separators normalized to
	// forward slashes.
	File string `json:"file"`

	// Width and Height are the pixel dimensions, or 0 when the image
	// could not be decoded.
	Width  int `json:"width"`
	Height int `json:"height"`

	// Size is the file size in bytes.
	Size int64 `json:"size"`

	// Index is the zero-based position in natural-sort order. Markers
	// and bookmarks address pages by this value, so it must be stable
	// across rescans of unchanged content.
	Index int `json:"index"`
}

// TrackEntry is one audio track within a scanned folder.
type TrackEntry struct {
	File  string `json:"file"`
	Size  int64  `json:"size"`
	Index int    `json:"index"`

	// Title resolution order: caller-supplied override, embedded tag
	// metadata, filename stem.
	Title string `json:"title"`
}

// Manifest is the structured document describing a media item's files.
// It is a tagged union over the owning record's kind: MANGA manifests
// carry Pages; AUDIO manifests carry Tracks and Images. A rescan
// regenerates the whole document; entries are never mutated in place.
type Manifest struct {
	// Pages is set for MANGA manifests.
	Pages []PageEntry `json:"pages,omitempty"`

	// Tracks and Images are set for AUDIO manifests. Images may be
	// empty; Tracks may be empty only when Images is not.
	Tracks []TrackEntry `json:"tracks,omitempty"`
	Images []PageEntry  `json:"images,omitempty"`
}

// ValidateFor checks that the manifest has the shape required by kind.
func (m *Manifest) ValidateFor(kind MediaKind) error {
	switch kind {
	case KindManga:
		if len(m.Tracks) > 0 || len(m.Images) > 0 {
			return fmt.Errorf("manga manifest must not carry tracks or images")
		}
		if err := validateIndexes(len(m.Pages), pageIndexes(m.Pages)); err != nil {
			return fmt.Errorf("manga manifest pages: %w", err)
		}
	case KindAudio:
		if len(m.Pages) > 0 {
			return fmt.Errorf("audio manifest must not carry pages")
		}
		if err := validateIndexes(len(m.Tracks), trackIndexes(m.Tracks)); err != nil {
			return fmt.Errorf("audio manifest tracks: %w", err)
		}
		if err := validateIndexes(len(m.Images), pageIndexes(m.Images)); err != nil {
			return fmt.Errorf("audio manifest images: %w", err)
		}
	default:
		return fmt.Errorf("kind %q does not carry a manifest", kind)
	}
	return nil
}

// EncodeManifest serializes a manifest for storage.
func EncodeManifest(m *Manifest) ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode manifest: %w", err)
	}
	return data, nil
}

// ParseManifest deserializes and validates a stored manifest against the
// record's kind. Stored blobs are not trusted blindly; a manifest whose
// shape does not match the kind is an error at this boundary.
func ParseManifest(data []byte, kind MediaKind) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	if err := m.ValidateFor(kind); err != nil {
		return nil, err
	}
	return &m, nil
}

// validateIndexes checks the contiguous 0..n-1 ordinal invariant.
func validateIndexes(n int, indexes []int) error {
	if len(indexes) != n {
		return fmt.Errorf("index count mismatch")
	}
	for i, idx := range indexes {
		if idx != i {
			return fmt.Errorf("entry %d has ordinal %d, want %d", i, idx, i)
		}
	}
	return nil
}

func pageIndexes(pages []PageEntry) []int {
	out := make([]int, len(pages))
	for i, p := range pages {
		out[i] = p.Index
	}
	return out
}

func trackIndexes(tracks []TrackEntry) []int {
	out := make([]int, len(tracks))
	for i, t := range tracks {
		out[i] = t.Index
	}
	return out
}
