package thumbs

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/davidbyttow/govips/v2/vips"
)

var (
	vipsInitMutex   sync.Mutex
	vipsInitialized bool
)

// InitVips starts libvips with conservative memory settings. Call once
// at startup before rendering; safe to call again.
func InitVips(logger *slog.Logger) {
	vipsInitMutex.Lock()
	defer vipsInitMutex.Unlock()

	if vipsInitialized {
		return
	}

	vips.LoggingSettings(func(domain string, level vips.LogLevel, msg string) {
		if level <= vips.LogLevelError {
			logger.Error("vips", "domain", domain, "message", msg)
		} else if level == vips.LogLevelWarning {
			logger.Warn("vips", "domain", domain, "message", msg)
		}
	}, vips.LogLevelWarning)

	vips.Startup(&vips.Config{
		ConcurrencyLevel: 1,
		MaxCacheMem:      50 * 1024 * 1024,
		MaxCacheSize:     100,
	})

	vipsInitialized = true
	logger.Info("libvips initialized", "version", vips.Version)
}

// ShutdownVips releases libvips resources.
func ShutdownVips() {
	vipsInitMutex.Lock()
	defer vipsInitMutex.Unlock()

	if vipsInitialized {
		vips.Shutdown()
		vipsInitialized = false
	}
}

// VipsRenderer renders thumbnails through libvips, which shrinks at
// decode time instead of loading full images into memory.
type VipsRenderer struct{}

// NewVipsRenderer creates a renderer. InitVips must have been called.
func NewVipsRenderer() *VipsRenderer {
	return &VipsRenderer{}
}

// Render decodes srcPath, resizes it to TargetHeight preserving aspect
// ratio without enlarging, and encodes webp at WebpQuality.
func (r *VipsRenderer) Render(srcPath string) ([]byte, error) {
	ref, err := vips.LoadImageFromFile(srcPath, vips.NewImportParams())
	if err != nil {
		return nil, fmt.Errorf("vips load %s: %w", srcPath, err)
	}
	defer ref.Close()

	if ref.Height() > TargetHeight {
		width := (ref.Width()*TargetHeight + ref.Height()/2) / ref.Height()
		if width < 1 {
			width = 1
		}
		if err := ref.Thumbnail(width, TargetHeight, vips.InterestingNone); err != nil {
			return nil, fmt.Errorf("vips resize %s: %w", srcPath, err)
		}
	}

	params := vips.NewWebpExportParams()
	params.Quality = WebpQuality
	params.StripMetadata = true

	data, _, err := ref.ExportWebp(params)
	if err != nil {
		return nil, fmt.Errorf("vips export %s: %w", srcPath, err)
	}

	return data, nil
}
