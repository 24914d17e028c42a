package scanner

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediakeepapp/mediakeep-server/internal/domain"
)

// fakeStore is an in-memory Registrar keyed by folder path, mirroring
// the sqlite upsert contract.
type fakeStore struct {
	mu      sync.Mutex
	byPath  map[string]*domain.MediaRecord
	nextID  int
	failing bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{byPath: make(map[string]*domain.MediaRecord)}
}

func (s *fakeStore) UpsertMedia(_ context.Context, rec *domain.MediaRecord) (*domain.MediaRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failing {
		return nil, fmt.Errorf("store unavailable")
	}

	stored := *rec
	if existing, ok := s.byPath[rec.FolderPath]; ok {
		stored.ID = existing.ID
	} else {
		s.nextID++
		stored.ID = fmt.Sprintf("med-%08d", s.nextID)
	}
	s.byPath[rec.FolderPath] = &stored
	return &stored, nil
}

type fakePopulator struct {
	mu    sync.Mutex
	calls [][]string
}

func (p *fakePopulator) PopulateAsync(_ string, relFiles []string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, relFiles)
}

// writePNG writes a decodable image so dimension extraction has real
// pixels to read.
func writePNG(t *testing.T, root, rel string, w, h int) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, image.NewRGBA(image.Rect(0, 0, w, h))))
}

// libraryDir returns a scan target rooted under a "library" segment so
// cover URL projection applies.
func libraryDir(t *testing.T, sub string) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "library", filepath.FromSlash(sub))
	require.NoError(t, os.MkdirAll(dir, 0o755))
	return dir
}

func newTestScanner(store Registrar, thumbs ThumbnailPopulator) *Scanner {
	return New(testLogger(), store, thumbs, Options{Workers: 2})
}

func TestScanMangaFolder(t *testing.T) {
	dir := libraryDir(t, "manga/My Title")
	writePNG(t, dir, "page2.jpg", 300, 400)
	writePNG(t, dir, "page10.jpg", 310, 410)
	writePNG(t, dir, "page1.jpg", 320, 420)

	store := newFakeStore()
	thumbs := &fakePopulator{}
	s := newTestScanner(store, thumbs)

	id, err := s.ScanMangaFolder(context.Background(), dir, "My Title")
	require.NoError(t, err)
	require.NotEmpty(t, id)

	rec := store.byPath[dir]
	require.NotNil(t, rec)
	assert.Equal(t, domain.KindManga, rec.Kind)
	assert.Equal(t, "My Title", rec.Title)
	assert.Equal(t, 3, rec.ItemCount)

	pages := rec.Manifest.Pages
	require.Len(t, pages, 3)
	assert.Equal(t, "page1.jpg", pages[0].File)
	assert.Equal(t, "page2.jpg", pages[1].File)
	assert.Equal(t, "page10.jpg", pages[2].File)
	for i, p := range pages {
		assert.Equal(t, i, p.Index)
		assert.NotZero(t, p.Width)
		assert.NotZero(t, p.Height)
	}
	assert.Equal(t, 320, pages[0].Width)

	assert.Equal(t, "/api/file/manga/My Title/page1.jpg", rec.CoverURL)
	require.NoError(t, rec.Validate())

	require.Len(t, thumbs.calls, 1)
	assert.Equal(t, []string{"page1.jpg", "page2.jpg", "page10.jpg"}, thumbs.calls[0])
}

func TestScanMangaFolderEmptyRejected(t *testing.T) {
	dir := libraryDir(t, "manga/Empty")
	touch(t, dir, "readme.txt")

	store := newFakeStore()
	s := newTestScanner(store, &fakePopulator{})

	_, err := s.ScanMangaFolder(context.Background(), dir, "Empty")
	require.ErrorIs(t, err, ErrEmptyFolder)
	assert.Empty(t, store.byPath, "no record on failed scan")
}

func TestScanMangaFolderCorruptImageTolerated(t *testing.T) {
	dir := libraryDir(t, "manga/Broken")
	writePNG(t, dir, "01.jpg", 100, 200)
	touch(t, dir, "02.jpg") // one byte of junk, not decodable

	store := newFakeStore()
	s := newTestScanner(store, &fakePopulator{})

	id, err := s.ScanMangaFolder(context.Background(), dir, "Broken")
	require.NoError(t, err)
	require.NotEmpty(t, id)

	pages := store.byPath[dir].Manifest.Pages
	require.Len(t, pages, 2)
	assert.Equal(t, 100, pages[0].Width)
	assert.Zero(t, pages[1].Width)
	assert.Zero(t, pages[1].Height)
}

func TestScanMangaFolderIdempotent(t *testing.T) {
	dir := libraryDir(t, "manga/Stable")
	writePNG(t, dir, "a.jpg", 100, 100)
	writePNG(t, dir, "b.jpg", 100, 100)

	store := newFakeStore()
	s := newTestScanner(store, &fakePopulator{})

	id1, err := s.ScanMangaFolder(context.Background(), dir, "Stable")
	require.NoError(t, err)
	first := store.byPath[dir]
	data1, err := domain.EncodeManifest(first.Manifest)
	require.NoError(t, err)

	id2, err := s.ScanMangaFolder(context.Background(), dir, "Stable")
	require.NoError(t, err)
	second := store.byPath[dir]
	data2, err := domain.EncodeManifest(second.Manifest)
	require.NoError(t, err)

	assert.Equal(t, id1, id2, "rescan updates the same record")
	assert.Equal(t, data1, data2, "manifest is byte-identical")
	assert.Equal(t, first.CoverURL, second.CoverURL)
}

func TestScanMangaFolderStoreFailurePropagates(t *testing.T) {
	dir := libraryDir(t, "manga/Doomed")
	writePNG(t, dir, "01.jpg", 10, 10)

	store := newFakeStore()
	store.failing = true
	thumbs := &fakePopulator{}
	s := newTestScanner(store, thumbs)

	_, err := s.ScanMangaFolder(context.Background(), dir, "Doomed")
	require.Error(t, err)
	assert.Empty(t, thumbs.calls, "no thumbnails fired on failed registration")
}

func TestScanAudioFolder(t *testing.T) {
	dir := libraryDir(t, "audio/Album")
	// Junk audio files: no readable tags, titles fall back to stems.
	touch(t, dir, "02 - Second.mp3")
	touch(t, dir, "01 - First.mp3")
	writePNG(t, dir, "art.jpg", 500, 500)
	writePNG(t, dir, "Cover.png", 600, 600)

	store := newFakeStore()
	thumbs := &fakePopulator{}
	s := newTestScanner(store, thumbs)

	overrides := map[string]string{"01 - First.mp3": "Opening Theme"}
	id, err := s.ScanAudioFolder(context.Background(), dir, "Album", overrides)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	rec := store.byPath[dir]
	require.NotNil(t, rec)
	assert.Equal(t, domain.KindAudio, rec.Kind)

	tracks := rec.Manifest.Tracks
	require.Len(t, tracks, 2)
	assert.Equal(t, "01 - First.mp3", tracks[0].File)
	assert.Equal(t, "Opening Theme", tracks[0].Title, "override wins")
	assert.Equal(t, "02 - Second", tracks[1].Title, "filename stem fallback")

	images := rec.Manifest.Images
	require.Len(t, images, 2)
	assert.Equal(t, 2, rec.ItemCount, "item count is the image count")

	assert.Equal(t, "/api/file/audio/Album/Cover.png", rec.CoverURL)
	require.NoError(t, rec.Validate())

	// Only images are thumbnailed.
	require.Len(t, thumbs.calls, 1)
	assert.ElementsMatch(t, []string{"Cover.png", "art.jpg"}, thumbs.calls[0])
}

func TestScanAudioFolderImagesOnly(t *testing.T) {
	dir := libraryDir(t, "audio/ArtOnly")
	writePNG(t, dir, "cover.jpg", 50, 50)

	store := newFakeStore()
	s := newTestScanner(store, &fakePopulator{})

	id, err := s.ScanAudioFolder(context.Background(), dir, "ArtOnly", nil)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	rec := store.byPath[dir]
	assert.Empty(t, rec.Manifest.Tracks)
	assert.Equal(t, 1, rec.ItemCount)
}

func TestScanAudioFolderEmptyRejected(t *testing.T) {
	dir := libraryDir(t, "audio/Nothing")

	store := newFakeStore()
	s := newTestScanner(store, &fakePopulator{})

	_, err := s.ScanAudioFolder(context.Background(), dir, "Nothing", nil)
	require.ErrorIs(t, err, ErrEmptyFolder)
	assert.Empty(t, store.byPath)
}

type fakeArtwork struct {
	name string
}

func (f *fakeArtwork) ExtractToFolder(_ context.Context, _, folder string) (string, bool, error) {
	if f.name == "" {
		return "", false, nil
	}
	path := filepath.Join(folder, f.name)
	fh, err := os.Create(path)
	if err != nil {
		return "", false, err
	}
	defer fh.Close()
	if err := png.Encode(fh, image.NewRGBA(image.Rect(0, 0, 40, 40))); err != nil {
		return "", false, err
	}
	return f.name, true, nil
}

func TestScanAudioFolderExtractsEmbeddedArtwork(t *testing.T) {
	dir := libraryDir(t, "audio/Tagged")
	touch(t, dir, "01.mp3")

	store := newFakeStore()
	thumbs := &fakePopulator{}
	s := New(testLogger(), store, thumbs, Options{
		Workers: 1,
		Artwork: &fakeArtwork{name: "cover.jpg"},
	})

	id, err := s.ScanAudioFolder(context.Background(), dir, "Tagged", nil)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	rec := store.byPath[dir]
	require.Len(t, rec.Manifest.Images, 1)
	assert.Equal(t, "cover.jpg", rec.Manifest.Images[0].File)
	assert.Equal(t, 40, rec.Manifest.Images[0].Width)
	assert.Equal(t, 1, rec.ItemCount)
	assert.Equal(t, "/api/file/audio/Tagged/cover.jpg", rec.CoverURL)
}
