package thumbs

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/mediakeepapp/mediakeep-server/internal/metrics"
)

// batchSize bounds concurrent renders within the populator: files are
// processed in small batches run concurrently, batches sequentially,
// capping open file handles and decoder memory.
const batchSize = 5

// Populator pre-renders thumbnails for freshly scanned folders. It is
// strictly best-effort: a file it skips or fails on is regenerated by
// the on-demand HTTP route the first time someone asks for it.
type Populator struct {
	logger   *slog.Logger
	cacheDir string
	renderer Renderer
}

// NewPopulator creates a populator writing into cacheDir.
func NewPopulator(logger *slog.Logger, cacheDir string, renderer Renderer) *Populator {
	return &Populator{
		logger:   logger,
		cacheDir: cacheDir,
		renderer: renderer,
	}
}

// PopulateAsync renders thumbnails for the given folder-relative files
// in a detached goroutine and returns immediately. Nothing escapes the
// goroutine: every failure, including a panicking renderer, is logged
// and swallowed. There is no cancellation; work runs to its natural
// completion independently of the caller's lifetime.
func (p *Populator) PopulateAsync(folderPath string, relFiles []string) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				p.logger.Error("thumbnail population panicked",
					"folder", folderPath,
					"panic", r)
			}
		}()
		p.Populate(folderPath, relFiles)
	}()
}

// Populate renders thumbnails synchronously. Exposed for callers that
// want to block, and for tests.
func (p *Populator) Populate(folderPath string, relFiles []string) {
	if len(relFiles) == 0 {
		return
	}

	if err := os.MkdirAll(p.cacheDir, 0o755); err != nil {
		p.logger.Error("failed to create thumbnail cache dir",
			"dir", p.cacheDir,
			"error", err)
		return
	}

	var generated, skipped, failed int

	for start := 0; start < len(relFiles); start += batchSize {
		end := min(start+batchSize, len(relFiles))

		var wg sync.WaitGroup
		results := make([]error, end-start)

		for i, relFile := range relFiles[start:end] {
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer func() {
					if r := recover(); r != nil {
						results[i] = fmt.Errorf("render panicked: %v", r)
					}
				}()
				results[i] = p.renderOne(folderPath, relFile)
			}()
		}
		wg.Wait()

		for i, err := range results {
			switch {
			case err == nil:
				generated++
				metrics.ThumbnailGenerationsTotal.WithLabelValues("ok").Inc()
			case errors.Is(err, os.ErrExist):
				skipped++
			default:
				failed++
				metrics.ThumbnailGenerationsTotal.WithLabelValues("error").Inc()
				p.logger.Warn("failed to generate thumbnail",
					"file", relFiles[start+i],
					"error", err)
			}
		}
	}

	p.logger.Info("thumbnail population finished",
		"folder", folderPath,
		"generated", generated,
		"skipped", skipped,
		"failed", failed)
}

// Ensure returns the cache path for absPath, rendering the thumbnail
// first if it is not cached yet. Used by the on-demand HTTP route; the
// scan-time populator and this method agree on the cache location
// purely through the shared path-hash derivation.
func (p *Populator) Ensure(absPath string) (string, error) {
	dest := CachePath(p.cacheDir, absPath)

	if _, err := os.Stat(dest); err == nil {
		metrics.ThumbnailCacheHits.Inc()
		return dest, nil
	}
	metrics.ThumbnailCacheMisses.Inc()

	if err := os.MkdirAll(p.cacheDir, 0o755); err != nil {
		return "", fmt.Errorf("create thumbnail cache dir: %w", err)
	}

	data, err := p.renderer.Render(absPath)
	if err != nil {
		return "", err
	}
	if err := writeAtomic(dest, data); err != nil {
		return "", err
	}

	return dest, nil
}

// renderOne renders a single thumbnail. Returns os.ErrExist when the
// cache entry is already present.
func (p *Populator) renderOne(folderPath, relFile string) error {
	absPath := filepath.Join(folderPath, filepath.FromSlash(relFile))
	dest := CachePath(p.cacheDir, absPath)

	// Cheap no-op on rescan.
	if _, err := os.Stat(dest); err == nil {
		return os.ErrExist
	}

	data, err := p.renderer.Render(absPath)
	if err != nil {
		return err
	}

	return writeAtomic(dest, data)
}

// writeAtomic writes data to a temp file in the destination directory
// and renames it into place, so concurrent writers targeting the same
// hash never expose a half-written file.
func writeAtomic(dest string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(dest), filepath.Base(dest)+".tmp*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), dest); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("rename into cache: %w", err)
	}

	return nil
}
