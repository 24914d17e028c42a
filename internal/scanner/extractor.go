package scanner

import (
	"context"
	"image"
	"log/slog"
	"os"
	"runtime"
	"strings"

	"github.com/dhowden/tag"

	"github.com/mediakeepapp/mediakeep-server/internal/util"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// Extractor reads per-file structural metadata: pixel dimensions for
// images, embedded title tags for audio tracks.
type Extractor struct {
	logger *slog.Logger

	// workers caps concurrent image decodes. 0 means runtime.NumCPU().
	workers int
}

// NewExtractor creates a new extractor.
func NewExtractor(logger *slog.Logger, workers int) *Extractor {
	return &Extractor{
		logger:  logger,
		workers: workers,
	}
}

// Dimensions holds decoded pixel dimensions for one image.
type Dimensions struct {
	Width  int
	Height int
}

// ImageDimensions decodes the dimensions of every entry concurrently.
// The returned slice is index-aligned with entries regardless of
// completion order. A file that cannot be decoded yields {0, 0}; decode
// failures never abort the batch.
func (e *Extractor) ImageDimensions(ctx context.Context, entries []FileEntry) ([]Dimensions, error) {
	if len(entries) == 0 {
		return []Dimensions{}, nil
	}

	workers := e.workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(entries) {
		workers = len(entries)
	}

	type job struct {
		entry FileEntry
		index int
	}

	type result struct {
		dims  Dimensions
		index int
	}

	jobs := make(chan job, len(entries))
	results := make(chan result, len(entries))

	for range workers {
		go func() {
			for j := range jobs {
				select {
				case <-ctx.Done():
					results <- result{index: j.index}
					continue
				default:
				}

				dims, err := decodeDimensions(j.entry.Path)
				if err != nil {
					e.logger.Warn("failed to read image dimensions",
						"path", j.entry.Path,
						"error", err)
					// The entry stays valid, just without known dimensions.
					results <- result{index: j.index}
					continue
				}
				results <- result{dims: dims, index: j.index}
			}
		}()
	}

	for i, entry := range entries {
		select {
		case jobs <- job{entry: entry, index: i}:
		case <-ctx.Done():
			close(jobs)
			return nil, ctx.Err()
		}
	}
	close(jobs)

	// Reassemble in input order, never completion order.
	dims := make([]Dimensions, len(entries))
	for range len(entries) {
		select {
		case r := <-results:
			dims[r.index] = r.dims
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return dims, nil
}

// TrackTitles resolves a display title for every entry, in order:
// caller-supplied override keyed by the slash-normalized relative path,
// then the embedded tag title, then the filename stem. Files are read
// sequentially; one open handle at a time even on huge albums.
func (e *Extractor) TrackTitles(ctx context.Context, entries []FileEntry, overrides map[string]string) ([]string, error) {
	titles := make([]string, len(entries))

	for i, entry := range entries {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if title, ok := overrides[entry.RelPath]; ok && title != "" {
			titles[i] = title
			continue
		}

		if title := e.readTagTitle(entry.Path); title != "" {
			titles[i] = title
			continue
		}

		titles[i] = util.StemOf(baseName(entry.RelPath))
	}

	return titles, nil
}

// readTagTitle returns the embedded title tag, or "" when the file has
// no readable tag.
func (e *Extractor) readTagTitle(path string) string {
	f, err := os.Open(path)
	if err != nil {
		e.logger.Warn("failed to open audio file for tagging", "path", path, "error", err)
		return ""
	}
	defer f.Close()

	meta, err := tag.ReadFrom(f)
	if err != nil {
		e.logger.Warn("failed to read audio tags", "path", path, "error", err)
		return ""
	}

	return strings.TrimSpace(meta.Title())
}

func decodeDimensions(path string) (Dimensions, error) {
	f, err := os.Open(path)
	if err != nil {
		return Dimensions{}, err
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return Dimensions{}, err
	}

	return Dimensions{Width: cfg.Width, Height: cfg.Height}, nil
}

func baseName(relPath string) string {
	if i := strings.LastIndex(relPath, "/"); i >= 0 {
		return relPath[i+1:]
	}
	return relPath
}
