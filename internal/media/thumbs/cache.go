// Package thumbs maintains the shared flat thumbnail cache. Entries
// are content-addressed by a hash of the source file's absolute path,
// so the scan-time populator and the on-demand HTTP route resolve the
// same cache file without talking to each other or to the database.
package thumbs

import (
	"crypto/md5" //nolint:gosec // Cache addressing, not security
	"encoding/hex"
	"path/filepath"
)

// Rendering parameters shared by every thumbnail writer. Thumbnails
// are resized to a fixed height preserving aspect ratio, never
// upscaled, and encoded as lossy webp.
const (
	TargetHeight = 300
	WebpQuality  = 75
)

// suffix appended to the path hash to form the cache filename.
const suffix = "_thumb.webp"

// CacheKey returns the hex digest addressing absPath in the cache.
// Both cache writers must feed the identical absolute-path string
// through this function or entries silently miss.
func CacheKey(absPath string) string {
	sum := md5.Sum([]byte(absPath)) //nolint:gosec // Cache addressing, not security
	return hex.EncodeToString(sum[:])
}

// FileName returns the cache filename for absPath.
func FileName(absPath string) string {
	return CacheKey(absPath) + suffix
}

// CachePath returns the full on-disk location of the cached thumbnail
// for absPath inside cacheDir. The cache is a single flat directory,
// not partitioned by record or source folder.
func CachePath(cacheDir, absPath string) string {
	return filepath.Join(cacheDir, FileName(absPath))
}
