package scanner

import (
	"log/slog"
	"slices"
	"strings"

	"github.com/mediakeepapp/mediakeep-server/internal/domain"
	"github.com/mediakeepapp/mediakeep-server/internal/natsort"
)

// coverKeywords are matched case-insensitively against image filenames
// when picking an AUDIO cover, in priority order.
var coverKeywords = []string{"cover", "front", "folder", "main"}

// sortEntries orders entries by natural sort of their relative paths.
// Ordinal indexes are assigned from this order, so it must be stable
// across rescans of unchanged content.
func sortEntries(entries []FileEntry) {
	slices.SortFunc(entries, func(a, b FileEntry) int {
		return natsort.Compare(a.RelPath, b.RelPath)
	})
}

// buildPages assigns ordinals to sorted image entries. dims must be
// index-aligned with entries.
func buildPages(entries []FileEntry, dims []Dimensions) []domain.PageEntry {
	pages := make([]domain.PageEntry, len(entries))
	for i, entry := range entries {
		pages[i] = domain.PageEntry{
			File:   entry.RelPath,
			Width:  dims[i].Width,
			Height: dims[i].Height,
			Size:   entry.Size,
			Index:  i,
		}
	}
	return pages
}

// buildTracks assigns ordinals to sorted audio entries. titles must be
// index-aligned with entries.
func buildTracks(entries []FileEntry, titles []string) []domain.TrackEntry {
	tracks := make([]domain.TrackEntry, len(entries))
	for i, entry := range entries {
		tracks[i] = domain.TrackEntry{
			File:  entry.RelPath,
			Size:  entry.Size,
			Index: i,
			Title: titles[i],
		}
	}
	return tracks
}

func totalSize(entries []FileEntry) int64 {
	var sum int64
	for _, entry := range entries {
		sum += entry.Size
	}
	return sum
}

// selectCover picks the image representing an AUDIO item: the first
// image whose filename contains a cover keyword, keyword priority over
// position, falling back to the first image. ok is false when images
// is empty.
func selectCover(images []domain.PageEntry) (cover domain.PageEntry, ok bool) {
	if len(images) == 0 {
		return domain.PageEntry{}, false
	}

	for _, keyword := range coverKeywords {
		for _, img := range images {
			if strings.Contains(strings.ToLower(img.File), keyword) {
				return img, true
			}
		}
	}

	return images[0], true
}

// coverURL projects an absolute folder path and a folder-relative file
// into the public serving URL. The folder is expected to live under a
// directory literally named "library"; everything after the last
// "/library/" segment becomes the URL path:
//
//	/srv/data/library/manga/My Title + 01.jpg
//	  -> /api/file/manga/My Title/01.jpg
//
// When the path has no "/library/" segment the projection is skipped
// and "" is returned; callers log and carry on without a cover URL.
func coverURL(folderPath, relFile string) string {
	normalized := strings.ToLower(strings.ReplaceAll(folderPath, "\\", "/"))
	idx := strings.LastIndex(normalized, "/library/")
	if idx < 0 {
		return ""
	}

	libraryRel := strings.ReplaceAll(folderPath, "\\", "/")[idx+len("/library/"):]
	libraryRel = strings.Trim(libraryRel, "/")
	if libraryRel == "" {
		return "/api/file/" + relFile
	}
	return "/api/file/" + libraryRel + "/" + relFile
}

// recordCoverURL wraps coverURL with the structural-assumption log.
func recordCoverURL(logger *slog.Logger, folderPath, relFile string) string {
	url := coverURL(folderPath, relFile)
	if url == "" {
		logger.Warn("folder path has no /library/ segment, skipping cover url",
			"path", folderPath)
	}
	return url
}
