package api

import (
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
)

// handleServeFile streams a file from the library. The URL path after
// /api/file/ is the library-relative location produced by the scan's
// cover URL projection, so the route reconstructs the absolute path
// with no shared state beyond the library root itself.
//
// With ?thumb=1 a cached preview is served instead, rendered on demand
// when the scan-time populator has not written it yet. The cache entry
// is addressed by the hash of the same absolute path the populator
// hashed, which is what makes the two paths meet.
func (s *Server) handleServeFile(w http.ResponseWriter, r *http.Request) {
	rel := chi.URLParam(r, "*")
	if rel == "" {
		http.Error(w, "missing file path", http.StatusBadRequest)
		return
	}

	if !filepath.IsLocal(filepath.FromSlash(rel)) {
		http.Error(w, "invalid file path", http.StatusBadRequest)
		return
	}

	absPath := filepath.Join(s.cfg.Library.Path, filepath.FromSlash(rel))

	// Belt and braces: the joined path must stay under the library root.
	root := s.cfg.Library.Path + string(filepath.Separator)
	if !strings.HasPrefix(absPath, root) {
		http.Error(w, "invalid file path", http.StatusBadRequest)
		return
	}

	if r.URL.Query().Get("thumb") != "" {
		s.serveThumbnail(w, r, absPath)
		return
	}

	http.ServeFile(w, r, absPath)
}

// serveThumbnail serves the cached preview for absPath, falling back
// to the original file when rendering fails (corrupt image, source is
// not an image at all).
func (s *Server) serveThumbnail(w http.ResponseWriter, r *http.Request, absPath string) {
	cached, err := s.thumbs.Ensure(absPath)
	if err != nil {
		s.logger.Warn("thumbnail render failed, serving original",
			"path", absPath,
			"error", err)
		http.ServeFile(w, r, absPath)
		return
	}

	w.Header().Set("Content-Type", "image/webp")
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	http.ServeFile(w, r, cached)
}
