package providers

import (
	"os"

	"github.com/samber/do/v2"

	"github.com/mediakeepapp/mediakeep-server/internal/config"
	"github.com/mediakeepapp/mediakeep-server/internal/logger"
	"github.com/mediakeepapp/mediakeep-server/internal/media/images"
	"github.com/mediakeepapp/mediakeep-server/internal/media/thumbs"
	"github.com/mediakeepapp/mediakeep-server/internal/scanner"
)

// ThumbnailerHandle wraps the populator and owns the vips runtime.
type ThumbnailerHandle struct {
	*thumbs.Populator
}

// Shutdown implements do.Shutdownable.
func (h *ThumbnailerHandle) Shutdown() error {
	thumbs.ShutdownVips()
	return nil
}

// ProvideThumbnailer provides the thumbnail populator backed by vips.
func ProvideThumbnailer(i do.Injector) (*ThumbnailerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if err := os.MkdirAll(cfg.Cache.ThumbnailPath, 0o755); err != nil {
		return nil, err
	}

	thumbs.InitVips(log.Logger)

	populator := thumbs.NewPopulator(log.Logger, cfg.Cache.ThumbnailPath, thumbs.NewVipsRenderer())

	log.Info("Thumbnail cache ready", "path", cfg.Cache.ThumbnailPath)

	return &ThumbnailerHandle{Populator: populator}, nil
}

// ProvideScanner provides the ingestion scanner.
func ProvideScanner(i do.Injector) (*scanner.Scanner, error) {
	log := do.MustInvoke[*logger.Logger](i)
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	thumbnailer := do.MustInvoke[*ThumbnailerHandle](i)

	return scanner.New(log.Logger, storeHandle.Store, thumbnailer.Populator, scanner.Options{
		Workers: cfg.Scan.Workers,
		Hasher:  &images.BlurHasher{},
		Artwork: images.NewArtworkExtractor(log.Logger),
	}), nil
}
