package scanner

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func touch(t *testing.T, root string, rel string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
}

func relPaths(entries []FileEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.RelPath
	}
	return out
}

func TestWalkRecursesAndFilters(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "01.jpg")
	touch(t, root, "notes.txt")
	touch(t, root, "vol1/02.png")
	touch(t, root, "vol1/extras/03.webp")

	w := NewWalker(testLogger())
	entries, err := w.Walk(root, IsImageFile)
	require.NoError(t, err)

	assert.ElementsMatch(t,
		[]string{"01.jpg", "vol1/02.png", "vol1/extras/03.webp"},
		relPaths(entries))

	for _, e := range entries {
		assert.True(t, filepath.IsAbs(e.Path), "absolute path for %s", e.RelPath)
		assert.Equal(t, int64(1), e.Size)
	}
}

func TestWalkSkipsHidden(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "01.jpg")
	touch(t, root, ".DS_Store.jpg")
	touch(t, root, ".thumbs/junk.jpg")

	w := NewWalker(testLogger())
	entries, err := w.Walk(root, IsImageFile)
	require.NoError(t, err)

	assert.Equal(t, []string{"01.jpg"}, relPaths(entries))
}

func TestWalkMissingRootIsNotFatal(t *testing.T) {
	w := NewWalker(testLogger())
	entries, err := w.Walk(filepath.Join(t.TempDir(), "nope"), IsImageFile)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestExtensionPredicates(t *testing.T) {
	assert.True(t, IsImageFile("Cover.PNG"))
	assert.True(t, IsImageFile("a/b/01.jpeg"))
	assert.False(t, IsImageFile("track.mp3"))

	assert.True(t, IsAudioFile("01 - Intro.mp3"))
	assert.True(t, IsAudioFile("book.m4b"))
	assert.False(t, IsAudioFile("cover.jpg"))

	assert.True(t, IsMediaFile("cover.jpg"))
	assert.True(t, IsMediaFile("track.flac"))
	assert.False(t, IsMediaFile("readme.md"))
}
