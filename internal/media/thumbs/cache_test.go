package thumbs

import (
	"crypto/md5"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCacheKeyIsStable(t *testing.T) {
	path := "/srv/data/library/manga/My Title/01.jpg"
	assert.Equal(t, CacheKey(path), CacheKey(path))
	assert.NotEqual(t, CacheKey(path), CacheKey(path+"x"))
	assert.Len(t, CacheKey(path), 32)
}

// The on-demand HTTP route derives cache names independently of the
// populator; both must agree byte for byte on the derivation.
func TestFileNameMatchesIndependentDerivation(t *testing.T) {
	path := "/srv/data/library/audio/Album/Cover.png"
	independent := fmt.Sprintf("%x_thumb.webp", md5.Sum([]byte(path)))
	assert.Equal(t, independent, FileName(path))
}

func TestCachePathIsFlat(t *testing.T) {
	got := CachePath("/cache", "/srv/data/library/manga/a/b/c.jpg")
	assert.Equal(t, "/cache", filepath.Dir(got), "no per-record subdirectories")
}
