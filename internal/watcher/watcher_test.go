package watcher

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// changeRecorder collects callback invocations.
type changeRecorder struct {
	mu      sync.Mutex
	changes []Change
}

func (r *changeRecorder) record(change Change) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, change)
}

func (r *changeRecorder) snapshot() []Change {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Change(nil), r.changes...)
}

// waitFor polls until cond holds or the deadline passes.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return cond()
}

func TestWatcher_StartCreatesSections(t *testing.T) {
	root := t.TempDir()

	w := New(testLogger(), root, 50*time.Millisecond, func(Change) {})
	require.NoError(t, w.Start())
	defer w.Stop()

	for _, section := range []string{"manga", "audio"} {
		info, err := os.Stat(filepath.Join(root, section))
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}

func TestWatcher_DebouncedFolderChange(t *testing.T) {
	root := t.TempDir()
	rec := &changeRecorder{}

	w := New(testLogger(), root, 50*time.Millisecond, rec.record)
	require.NoError(t, w.Start())
	defer w.Stop()

	folder := filepath.Join(root, "manga", "New Series")
	require.NoError(t, os.MkdirAll(folder, 0o755))

	// A burst of page writes must collapse into a single change.
	for _, name := range []string{"01.png", "02.png", "03.png"} {
		require.NoError(t, os.WriteFile(filepath.Join(folder, name), []byte("png"), 0o644))
	}

	ok := waitFor(t, 3*time.Second, func() bool {
		return len(rec.snapshot()) >= 1
	})
	require.True(t, ok, "expected a change callback")

	// Allow any stragglers to fire before counting.
	time.Sleep(200 * time.Millisecond)

	changes := rec.snapshot()
	require.Len(t, changes, 1)
	assert.Equal(t, "manga", changes[0].Kind)
	assert.Equal(t, "New Series", changes[0].Name)
	assert.Equal(t, folder, changes[0].FolderPath)
}

func TestWatcher_IgnoresNonMediaFiles(t *testing.T) {
	root := t.TempDir()
	rec := &changeRecorder{}

	w := New(testLogger(), root, 50*time.Millisecond, rec.record)
	require.NoError(t, w.Start())
	defer w.Stop()

	folder := filepath.Join(root, "audio", "Album")
	require.NoError(t, os.MkdirAll(folder, 0o755))

	// The folder creation itself schedules one change; wait it out.
	waitFor(t, 3*time.Second, func() bool { return len(rec.snapshot()) >= 1 })
	before := len(rec.snapshot())

	require.NoError(t, os.WriteFile(filepath.Join(folder, "notes.txt"), []byte("x"), 0o644))

	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, before, len(rec.snapshot()), "non-media file must not trigger a rescan")
}

func TestWatcher_ClassifyBoundaries(t *testing.T) {
	w := New(testLogger(), "/srv/library", 0, nil)

	tests := []struct {
		path string
		ok   bool
		kind string
		name string
	}{
		{"/srv/library/manga/Series/01.png", true, "manga", "Series"},
		{"/srv/library/manga/Series/nested/02.png", true, "manga", "Series"},
		{"/srv/library/audio/Album", true, "audio", "Album"},
		{"/srv/library/manga", false, "", ""},
		{"/srv/library/uploads/file.png", false, "", ""},
		{"/srv/library/manga/.tmp/x.png", false, "", ""},
		{"/srv/elsewhere/manga/Series/01.png", false, "", ""},
	}

	for _, tt := range tests {
		change, ok := w.classify(tt.path)
		assert.Equal(t, tt.ok, ok, tt.path)
		if tt.ok {
			assert.Equal(t, tt.kind, change.Kind, tt.path)
			assert.Equal(t, tt.name, change.Name, tt.path)
		}
	}
}

func TestWatcher_StopIsIdempotent(t *testing.T) {
	w := New(testLogger(), t.TempDir(), 50*time.Millisecond, func(Change) {})
	require.NoError(t, w.Start())

	w.Stop()
	w.Stop()
}
