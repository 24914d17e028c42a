package api

import (
	"archive/zip"
	"encoding/json/v2"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mediakeepapp/mediakeep-server/internal/metrics"
	"github.com/mediakeepapp/mediakeep-server/internal/store/sqlite"
	"github.com/mediakeepapp/mediakeep-server/internal/util"
)

// maxUploadSize caps a single archive upload.
const maxUploadSize = 4 << 30

// handleUpload accepts a multipart archive upload, extracts it into
// the library, and runs the ingestion scan. Form fields:
//
//	type         "manga" or "audio"
//	title        display title (defaults to the archive filename)
//	source_url   optional origin URL attached after registration
//	description  optional description attached after registration
//	track_titles optional JSON object mapping relative track paths to
//	             display titles (audio only)
//	file         the ZIP archive
//
// A scan failure surfaces as an upload failure including the
// underlying error text; the extracted folder is removed so a retry
// starts clean.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if !s.uploadLimiter.Allow(clientIP(r)) {
		http.Error(w, "too many uploads, slow down", http.StatusTooManyRequests)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		http.Error(w, fmt.Sprintf("invalid upload: %v", err), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll() //nolint:errcheck

	kind := r.FormValue("type")
	if kind != "manga" && kind != "audio" {
		http.Error(w, fmt.Sprintf("unsupported upload type %q", kind), http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "missing file field", http.StatusBadRequest)
		return
	}
	defer file.Close()

	title := strings.TrimSpace(r.FormValue("title"))
	if title == "" {
		title = util.StemOf(header.Filename)
	}

	var overrides map[string]string
	if raw := r.FormValue("track_titles"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &overrides); err != nil {
			http.Error(w, fmt.Sprintf("invalid track_titles: %v", err), http.StatusBadRequest)
			return
		}
	}

	status := "error"
	defer func() { metrics.UploadsTotal.WithLabelValues(kind, status).Inc() }()

	// Pick the destination folder, disambiguating name collisions with
	// a timestamp suffix on both the folder and the title.
	parent := filepath.Join(s.cfg.Library.Path, kind)
	folderName := util.SanitizeFolderName(title)
	dest := filepath.Join(parent, folderName)
	if _, err := os.Stat(dest); err == nil {
		suffix := fmt.Sprintf("_%d", time.Now().UnixMilli())
		folderName += suffix
		title += suffix
		dest = filepath.Join(parent, folderName)
	}

	if err := extractArchive(file, header.Size, dest); err != nil {
		s.logger.Error("failed to extract archive", "dest", dest, "error", err)
		os.RemoveAll(dest)
		http.Error(w, fmt.Sprintf("failed to extract archive: %v", err), http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	var recID string
	if kind == "manga" {
		recID, err = s.scanner.ScanMangaFolder(ctx, dest, title)
	} else {
		recID, err = s.scanner.ScanAudioFolder(ctx, dest, title, overrides)
	}
	if err != nil {
		s.logger.Error("upload scan failed", "dest", dest, "error", err)
		os.RemoveAll(dest)
		http.Error(w, fmt.Sprintf("scan failed: %v", err), http.StatusUnprocessableEntity)
		return
	}

	// Attach the origin fields now that the record exists; a later
	// rescan of the folder leaves them untouched.
	var patch sqlite.MediaPatch
	if src := strings.TrimSpace(r.FormValue("source_url")); src != "" {
		patch.SourceURL = &src
	}
	if desc := strings.TrimSpace(r.FormValue("description")); desc != "" {
		patch.Description = &desc
	}
	if patch.SourceURL != nil || patch.Description != nil {
		if _, err := s.store.PatchMedia(ctx, recID, patch); err != nil {
			s.logger.Warn("failed to set upload origin fields", "id", recID, "error", err)
		}
	}

	rec, err := s.store.GetMedia(ctx, recID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	status = "ok"
	writeJSON(w, http.StatusCreated, rec)
}

// extractArchive unpacks a ZIP into dest, rejecting entries that would
// escape it.
func extractArchive(file io.ReaderAt, size int64, dest string) error {
	zr, err := zip.NewReader(file, size)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}

	if err := os.MkdirAll(dest, 0o755); err != nil {
		return fmt.Errorf("create folder: %w", err)
	}

	for _, entry := range zr.File {
		name := filepath.FromSlash(entry.Name)
		if !filepath.IsLocal(name) {
			return fmt.Errorf("archive entry %q escapes the target folder", entry.Name)
		}
		target := filepath.Join(dest, name)

		if entry.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("create dir %s: %w", entry.Name, err)
			}
			continue
		}

		if err := extractFile(entry, target); err != nil {
			return err
		}
	}

	return nil
}

func extractFile(entry *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("create dir for %s: %w", entry.Name, err)
	}

	src, err := entry.Open()
	if err != nil {
		return fmt.Errorf("open archive entry %s: %w", entry.Name, err)
	}
	defer src.Close()

	dst, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("create %s: %w", target, err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return fmt.Errorf("write %s: %w", target, err)
	}

	if err := dst.Close(); err != nil {
		return fmt.Errorf("close %s: %w", target, err)
	}
	return nil
}

// writeJSON writes v as a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data) //nolint:errcheck
}
