package api

import (
	"context"
	"encoding/json/v2"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediakeepapp/mediakeep-server/internal/config"
	"github.com/mediakeepapp/mediakeep-server/internal/domain"
	"github.com/mediakeepapp/mediakeep-server/internal/media/thumbs"
	"github.com/mediakeepapp/mediakeep-server/internal/scanner"
	"github.com/mediakeepapp/mediakeep-server/internal/store/sqlite"
)

// stubRenderer stands in for the vips renderer so API tests run
// without the native library.
type stubRenderer struct{}

func (stubRenderer) Render(srcPath string) ([]byte, error) {
	return []byte("webp:" + srcPath), nil
}

// setupTestServer creates a test server backed by a temp library, a
// temp thumbnail cache, and a real SQLite store.
func setupTestServer(t *testing.T) (server *Server, cleanup func()) {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "mediakeep-api-test-*")
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	st, err := sqlite.Open(filepath.Join(tmpDir, "test.db"), logger)
	require.NoError(t, err)

	cacheDir := filepath.Join(tmpDir, "cache")
	tp := thumbs.NewPopulator(logger, cacheDir, stubRenderer{})

	sc := scanner.New(logger, st, tp, scanner.Options{Workers: 2})

	cfg := &config.Config{
		Library: config.LibraryConfig{Path: filepath.Join(tmpDir, "library")},
		Cache:   config.CacheConfig{ThumbnailPath: cacheDir},
		Server: config.ServerConfig{
			UploadRPS:   100,
			UploadBurst: 100,
		},
	}
	require.NoError(t, os.MkdirAll(cfg.Library.Path, 0o755))

	server = NewServer(cfg, st, sc, tp, logger)

	cleanup = func() {
		server.Close()
		_ = st.Close()           //nolint:errcheck
		_ = os.RemoveAll(tmpDir) //nolint:errcheck
	}

	return server, cleanup
}

// writeTestPNG writes a small solid-color PNG to path.
func writeTestPNG(t *testing.T, path string, w, h int) {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 180, G: 90, B: 40, A: 255})
		}
	}

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
}

// seedManga writes pageCount pages into library/manga/<name> and scans
// the folder, returning the record id.
func seedManga(t *testing.T, server *Server, name string, pageCount int) string {
	t.Helper()

	folder := filepath.Join(server.cfg.Library.Path, "manga", name)
	for i := 1; i <= pageCount; i++ {
		writeTestPNG(t, filepath.Join(folder, fmt.Sprintf("page%d.png", i)), 4, 6)
	}

	id, err := server.scanner.ScanMangaFolder(context.Background(), folder, name)
	require.NoError(t, err)
	return id
}

func decodeRecord(t *testing.T, data []byte) *domain.MediaRecord {
	t.Helper()

	var rec domain.MediaRecord
	require.NoError(t, json.Unmarshal(data, &rec))
	return &rec
}

func TestHealthCheck(t *testing.T) {
	server, cleanup := setupTestServer(t)
	defer cleanup()

	req := httptest.NewRequest(http.MethodGet, "/health", http.NoBody)
	w := httptest.NewRecorder()

	server.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Status  string `json:"status"`
		Version string `json:"version"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body.Status)
	assert.Equal(t, Version, body.Version)
}

func TestMetricsEndpoint(t *testing.T) {
	server, cleanup := setupTestServer(t)
	defer cleanup()

	req := httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody)
	w := httptest.NewRecorder()

	server.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "mediakeep_")
}

// drainThumbnails gives the fire-and-forget populator a moment to
// finish so cleanup does not race goroutines still writing files.
func drainThumbnails() {
	time.Sleep(50 * time.Millisecond)
}
