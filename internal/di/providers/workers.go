package providers

import (
	"context"
	"errors"
	"time"

	"github.com/samber/do/v2"

	"github.com/mediakeepapp/mediakeep-server/internal/config"
	"github.com/mediakeepapp/mediakeep-server/internal/logger"
	"github.com/mediakeepapp/mediakeep-server/internal/scanner"
	"github.com/mediakeepapp/mediakeep-server/internal/watcher"
)

// scanTimeout bounds a single watcher-triggered rescan.
const scanTimeout = 5 * time.Minute

// FileWatcherHandle wraps the library watcher with Shutdownable.
type FileWatcherHandle struct {
	*watcher.Watcher
	started bool
}

// Shutdown implements do.Shutdownable.
func (h *FileWatcherHandle) Shutdown() error {
	if h.started {
		h.Stop()
	}
	return nil
}

// ProvideFileWatcher provides the library watcher. Changed folders are
// rescanned with their existing record title when one exists, so a
// watcher-triggered rescan never renames a record.
func ProvideFileWatcher(i do.Injector) (*FileWatcherHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	sc := do.MustInvoke[*scanner.Scanner](i)

	if !cfg.Library.Watch {
		log.Info("Library watching disabled by configuration")
		return &FileWatcherHandle{started: false}, nil
	}

	handler := func(change watcher.Change) {
		ctx, cancel := context.WithTimeout(context.Background(), scanTimeout)
		defer cancel()

		title := change.Name
		if rec, err := storeHandle.GetMediaByPath(ctx, change.FolderPath); err == nil {
			title = rec.Title
		}

		var err error
		switch change.Kind {
		case "manga":
			_, err = sc.ScanMangaFolder(ctx, change.FolderPath, title)
		case "audio":
			_, err = sc.ScanAudioFolder(ctx, change.FolderPath, title, nil)
		}
		if err != nil && !errors.Is(err, scanner.ErrEmptyFolder) {
			log.Error("Watcher rescan failed",
				"kind", change.Kind,
				"folder", change.FolderPath,
				"error", err)
		}
	}

	w := watcher.New(log.Logger, cfg.Library.Path, watcher.DefaultDebounce, handler)
	if err := w.Start(); err != nil {
		return nil, err
	}

	return &FileWatcherHandle{Watcher: w, started: true}, nil
}
