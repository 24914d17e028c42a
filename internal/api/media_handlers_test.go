package api

import (
	"encoding/json/v2"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediakeepapp/mediakeep-server/internal/domain"
)

func TestListMedia_Empty(t *testing.T) {
	server, cleanup := setupTestServer(t)
	defer cleanup()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/media", http.NoBody)
	w := httptest.NewRecorder()

	server.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Media []*domain.MediaRecord `json:"media"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.NotNil(t, body.Media)
	assert.Empty(t, body.Media)
}

func TestListMedia_KindFilter(t *testing.T) {
	server, cleanup := setupTestServer(t)
	defer cleanup()

	seedManga(t, server, "Series One", 2)
	seedManga(t, server, "Series Two", 3)
	defer drainThumbnails()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/media?kind=MANGA", http.NoBody)
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Media []*domain.MediaRecord `json:"media"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Len(t, body.Media, 2)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/media?kind=AUDIO", http.NoBody)
	w = httptest.NewRecorder()
	server.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Empty(t, body.Media)
}

func TestGetMedia_Success(t *testing.T) {
	server, cleanup := setupTestServer(t)
	defer cleanup()

	id := seedManga(t, server, "My Series", 3)
	defer drainThumbnails()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/media/"+id, http.NoBody)
	w := httptest.NewRecorder()

	server.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	rec := decodeRecord(t, w.Body.Bytes())
	assert.Equal(t, id, rec.ID)
	assert.Equal(t, "My Series", rec.Title)
	assert.Equal(t, domain.KindManga, rec.Kind)
	assert.Equal(t, 3, rec.ItemCount)
	require.NotNil(t, rec.Manifest)
	assert.Len(t, rec.Manifest.Pages, 3)
	assert.Equal(t, "/api/file/manga/My Series/page1.png", rec.CoverURL)
}

func TestGetMedia_NotFound(t *testing.T) {
	server, cleanup := setupTestServer(t)
	defer cleanup()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/media/med-missing", http.NoBody)
	w := httptest.NewRecorder()

	server.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPatchMedia(t *testing.T) {
	server, cleanup := setupTestServer(t)
	defer cleanup()

	id := seedManga(t, server, "Patch Me", 1)
	defer drainThumbnails()

	payload := `{"title":"Renamed","source_url":"https://example.com/src"}`
	req := httptest.NewRequest(http.MethodPatch, "/api/v1/media/"+id, strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	server.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	rec := decodeRecord(t, w.Body.Bytes())
	assert.Equal(t, "Renamed", rec.Title)
	assert.Equal(t, "https://example.com/src", rec.SourceURL)
}

func TestDeleteMedia_KeepsFiles(t *testing.T) {
	server, cleanup := setupTestServer(t)
	defer cleanup()

	id := seedManga(t, server, "Doomed", 1)
	defer drainThumbnails()

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/media/"+id, http.NoBody)
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/media/"+id, http.NoBody)
	w = httptest.NewRecorder()
	server.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// Deleting the record never touches the library.
	_, err := os.Stat(filepath.Join(server.cfg.Library.Path, "manga", "Doomed", "page1.png"))
	assert.NoError(t, err)
}

func TestRescanMedia_PicksUpNewPages(t *testing.T) {
	server, cleanup := setupTestServer(t)
	defer cleanup()

	id := seedManga(t, server, "Growing", 2)
	defer drainThumbnails()

	writeTestPNG(t, filepath.Join(server.cfg.Library.Path, "manga", "Growing", "page3.png"), 4, 6)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/media/"+id+"/scan", http.NoBody)
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	rec := decodeRecord(t, w.Body.Bytes())
	assert.Equal(t, id, rec.ID, "rescan must keep the record id")
	assert.Equal(t, 3, rec.ItemCount)
}

func TestRescanMedia_EmptiedFolder(t *testing.T) {
	server, cleanup := setupTestServer(t)
	defer cleanup()

	id := seedManga(t, server, "Vanishing", 1)
	defer drainThumbnails()

	require.NoError(t, os.RemoveAll(filepath.Join(server.cfg.Library.Path, "manga", "Vanishing")))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/media/"+id+"/scan", http.NoBody)
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}
