package scanner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/mediakeepapp/mediakeep-server/internal/domain"
	"github.com/mediakeepapp/mediakeep-server/internal/metrics"
)

// ErrEmptyFolder is returned when a scan finds nothing to ingest. No
// record is created or updated in that case.
var ErrEmptyFolder = errors.New("no matching files found in folder")

// Scanner orchestrates the ingestion pipeline for one library.
type Scanner struct {
	logger    *slog.Logger
	walker    *Walker
	extractor *Extractor
	store     Registrar
	thumbs    ThumbnailPopulator

	// Optional collaborators; nil disables the feature.
	hasher  CoverHasher
	artwork ArtworkExtractor
}

// Options configures optional scanner collaborators.
type Options struct {
	// Workers caps concurrent image decodes. 0 means runtime.NumCPU().
	Workers int

	// Hasher computes cover placeholder hashes when set.
	Hasher CoverHasher

	// Artwork extracts embedded audio artwork for albums that ship
	// without any image file, when set.
	Artwork ArtworkExtractor
}

// New creates a scanner.
func New(logger *slog.Logger, store Registrar, thumbs ThumbnailPopulator, opts Options) *Scanner {
	return &Scanner{
		logger:    logger,
		walker:    NewWalker(logger),
		extractor: NewExtractor(logger, opts.Workers),
		store:     store,
		thumbs:    thumbs,
		hasher:    opts.Hasher,
		artwork:   opts.Artwork,
	}
}

// ScanMangaFolder ingests a folder of images as a MANGA record and
// returns its id. The folder must already contain the extracted archive
// contents, rooted under a path with a /library/ segment. Registration
// is synchronous; thumbnail generation continues after return.
func (s *Scanner) ScanMangaFolder(ctx context.Context, folderPath, title string) (string, error) {
	start := time.Now()
	recID, err := s.scanManga(ctx, folderPath, title)
	observeScan("manga", start, err)
	return recID, err
}

func (s *Scanner) scanManga(ctx context.Context, folderPath, title string) (string, error) {
	folderPath = filepath.Clean(folderPath)

	entries, err := s.walker.Walk(folderPath, IsImageFile)
	if err != nil {
		return "", fmt.Errorf("walk %s: %w", folderPath, err)
	}
	if len(entries) == 0 {
		return "", fmt.Errorf("scan manga %s: %w", folderPath, ErrEmptyFolder)
	}

	sortEntries(entries)

	dims, err := s.extractor.ImageDimensions(ctx, entries)
	if err != nil {
		return "", fmt.Errorf("extract image metadata: %w", err)
	}

	pages := buildPages(entries, dims)
	cover := pages[0]

	rec := &domain.MediaRecord{
		Title:      title,
		Kind:       domain.KindManga,
		FolderPath: folderPath,
		Manifest:   &domain.Manifest{Pages: pages},
		ItemCount:  len(pages),
		TotalSize:  totalSize(entries),
		CoverURL:   recordCoverURL(s.logger, folderPath, cover.File),
	}
	rec.CoverBlurHash = s.hashCover(folderPath, cover.File)

	persisted, err := s.store.UpsertMedia(ctx, rec)
	if err != nil {
		return "", fmt.Errorf("register manga %s: %w", folderPath, err)
	}

	s.logger.Info("manga folder scanned",
		"id", persisted.ID,
		"path", folderPath,
		"pages", len(pages))

	s.fireThumbnails(folderPath, pages)

	return persisted.ID, nil
}

// ScanAudioFolder ingests a folder of audio tracks plus any cover
// images as an AUDIO record and returns its id. titleOverrides maps
// slash-normalized folder-relative track paths to display titles and
// wins over embedded tags. An album with images but no tracks is
// accepted; a folder with neither is rejected.
func (s *Scanner) ScanAudioFolder(ctx context.Context, folderPath, title string, titleOverrides map[string]string) (string, error) {
	start := time.Now()
	recID, err := s.scanAudio(ctx, folderPath, title, titleOverrides)
	observeScan("audio", start, err)
	return recID, err
}

func (s *Scanner) scanAudio(ctx context.Context, folderPath, title string, titleOverrides map[string]string) (string, error) {
	folderPath = filepath.Clean(folderPath)

	entries, err := s.walker.Walk(folderPath, IsMediaFile)
	if err != nil {
		return "", fmt.Errorf("walk %s: %w", folderPath, err)
	}

	var trackEntries, imageEntries []FileEntry
	for _, entry := range entries {
		if IsAudioFile(entry.RelPath) {
			trackEntries = append(trackEntries, entry)
		} else {
			imageEntries = append(imageEntries, entry)
		}
	}

	if len(trackEntries) == 0 && len(imageEntries) == 0 {
		return "", fmt.Errorf("scan audio %s: %w", folderPath, ErrEmptyFolder)
	}

	sortEntries(trackEntries)

	// Albums shipped without artwork files often still carry embedded
	// artwork in their tags; surface it as a regular image entry.
	if len(imageEntries) == 0 && len(trackEntries) > 0 {
		if extracted, ok := s.extractArtwork(ctx, folderPath, trackEntries[0].Path); ok {
			imageEntries = append(imageEntries, extracted)
		}
	}

	sortEntries(imageEntries)

	titles, err := s.extractor.TrackTitles(ctx, trackEntries, titleOverrides)
	if err != nil {
		return "", fmt.Errorf("extract track metadata: %w", err)
	}

	dims, err := s.extractor.ImageDimensions(ctx, imageEntries)
	if err != nil {
		return "", fmt.Errorf("extract image metadata: %w", err)
	}

	tracks := buildTracks(trackEntries, titles)
	images := buildPages(imageEntries, dims)

	rec := &domain.MediaRecord{
		Title:      title,
		Kind:       domain.KindAudio,
		FolderPath: folderPath,
		Manifest:   &domain.Manifest{Tracks: tracks, Images: images},
		// Image count, not track count: listing UIs show this as a
		// "pages" badge.
		ItemCount: len(images),
		TotalSize: totalSize(trackEntries) + totalSize(imageEntries),
	}

	if cover, ok := selectCover(images); ok {
		rec.CoverURL = recordCoverURL(s.logger, folderPath, cover.File)
		rec.CoverBlurHash = s.hashCover(folderPath, cover.File)
	}

	persisted, err := s.store.UpsertMedia(ctx, rec)
	if err != nil {
		return "", fmt.Errorf("register audio %s: %w", folderPath, err)
	}

	s.logger.Info("audio folder scanned",
		"id", persisted.ID,
		"path", folderPath,
		"tracks", len(tracks),
		"images", len(images))

	s.fireThumbnails(folderPath, images)

	return persisted.ID, nil
}

func observeScan(kind string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.ScansTotal.WithLabelValues(kind, status).Inc()
	metrics.ScanDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
}

// fireThumbnails hands the visual entries to the populator and returns
// immediately. Tracks are never thumbnailed.
func (s *Scanner) fireThumbnails(folderPath string, visuals []domain.PageEntry) {
	if s.thumbs == nil || len(visuals) == 0 {
		return
	}
	relFiles := make([]string, len(visuals))
	for i, v := range visuals {
		relFiles[i] = v.File
	}
	s.thumbs.PopulateAsync(folderPath, relFiles)
}

// hashCover computes the cover placeholder hash, logging failures
// instead of propagating them.
func (s *Scanner) hashCover(folderPath, relFile string) string {
	if s.hasher == nil {
		return ""
	}
	hash, err := s.hasher.HashFile(filepath.Join(folderPath, filepath.FromSlash(relFile)))
	if err != nil {
		s.logger.Warn("failed to hash cover image",
			"path", relFile,
			"error", err)
		return ""
	}
	return hash
}

// extractArtwork writes embedded artwork from trackPath into the
// folder and returns it as a walkable entry. Best-effort.
func (s *Scanner) extractArtwork(ctx context.Context, folderPath, trackPath string) (FileEntry, bool) {
	if s.artwork == nil {
		return FileEntry{}, false
	}

	name, ok, err := s.artwork.ExtractToFolder(ctx, trackPath, folderPath)
	if err != nil {
		s.logger.Warn("failed to extract embedded artwork",
			"path", trackPath,
			"error", err)
		return FileEntry{}, false
	}
	if !ok {
		return FileEntry{}, false
	}

	absPath := filepath.Join(folderPath, name)
	info, err := os.Stat(absPath)
	if err != nil {
		s.logger.Warn("extracted artwork vanished", "path", absPath, "error", err)
		return FileEntry{}, false
	}

	s.logger.Debug("extracted embedded artwork", "path", absPath)

	return FileEntry{
		Path:    absPath,
		RelPath: name,
		Size:    info.Size(),
	}, true
}
