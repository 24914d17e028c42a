package scanner

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Walker traverses a folder tree and discovers files.
type Walker struct {
	logger *slog.Logger
}

// NewWalker creates a new walker.
func NewWalker(logger *slog.Logger) *Walker {
	return &Walker{
		logger: logger,
	}
}

// Walk lists every file under rootDir whose name satisfies match,
// descending all subdirectories. The returned entries carry
// slash-normalized root-relative paths and are in no particular order;
// callers sort them.
//
// An unreadable subtree is logged and skipped; partial results from the
// readable parts are still returned. Symlink loops are not detected.
func (w *Walker) Walk(rootDir string, match func(name string) bool) ([]FileEntry, error) {
	var entries []FileEntry

	err := filepath.WalkDir(rootDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			w.logger.Warn("walk error, skipping subtree", "path", path, "error", err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		// Skip hidden files and directories.
		if d.Name() != "." && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			return nil
		}

		if !match(d.Name()) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			w.logger.Warn("failed to stat file, skipping", "path", path, "error", err)
			return nil
		}

		relPath, err := filepath.Rel(rootDir, path)
		if err != nil {
			w.logger.Warn("failed to compute relative path, skipping", "path", path, "error", err)
			return nil
		}

		entries = append(entries, FileEntry{
			Path:    path,
			RelPath: filepath.ToSlash(relPath),
			Size:    info.Size(),
		})

		return nil
	})
	if err != nil {
		return nil, err
	}

	return entries, nil
}
