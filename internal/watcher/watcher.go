// Package watcher monitors the library for folder changes and triggers
// debounced rescans so records stay in sync with files dropped, moved,
// or deleted outside the upload flow.
package watcher

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/mediakeepapp/mediakeep-server/internal/scanner"
)

// DefaultDebounce is how long a folder must stay quiet before its
// rescan fires. Archive extraction and bulk copies emit a burst of
// events; the debounce collapses the burst into one scan.
const DefaultDebounce = 2 * time.Second

// Change identifies the media folder a settled event burst touched.
type Change struct {
	// Kind is the library section, "manga" or "audio".
	Kind string

	// FolderPath is the absolute path of the top-level media folder.
	FolderPath string

	// Name is the folder's base name.
	Name string
}

// Callback receives one settled Change per touched folder.
type Callback func(change Change)

// Watcher watches the manga and audio sections of a library root.
type Watcher struct {
	logger   *slog.Logger
	root     string
	debounce time.Duration
	callback Callback

	fsw     *fsnotify.Watcher
	stop    chan struct{}
	stopped chan struct{}

	mu      sync.Mutex
	running bool
	timers  map[string]*time.Timer
}

// New creates a watcher over the library root. Pass 0 for debounce to
// use DefaultDebounce.
func New(logger *slog.Logger, root string, debounce time.Duration, callback Callback) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		logger:   logger,
		root:     filepath.Clean(root),
		debounce: debounce,
		callback: callback,
		stop:     make(chan struct{}),
		stopped:  make(chan struct{}),
		timers:   make(map[string]*time.Timer),
	}
}

// Start begins watching. The manga and audio sections are created if
// missing so they can be watched from the start.
func (w *Watcher) Start() error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	w.fsw = fsw

	for _, section := range []string{"manga", "audio"} {
		dir := filepath.Join(w.root, section)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			fsw.Close()
			return err
		}
		if err := w.addRecursive(dir); err != nil {
			fsw.Close()
			return err
		}
	}

	go w.eventLoop()

	w.logger.Info("library watcher started", "root", w.root)
	return nil
}

// Stop shuts the watcher down and waits for the event loop to exit.
// Pending debounce timers are cancelled, not fired.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stop)
	if w.fsw != nil {
		w.fsw.Close()
	}
	<-w.stopped

	w.mu.Lock()
	for key, timer := range w.timers {
		timer.Stop()
		delete(w.timers, key)
	}
	w.mu.Unlock()
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") && path != root {
			return filepath.SkipDir
		}
		if watchErr := w.fsw.Add(path); watchErr != nil {
			w.logger.Warn("cannot watch directory", "path", path, "error", watchErr)
		}
		return nil
	})
}

func (w *Watcher) eventLoop() {
	defer close(w.stopped)

	for {
		select {
		case <-w.stop:
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Error("watch error", "error", err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	// New directories join the watch so nested drops keep reporting.
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			_ = w.addRecursive(event.Name)
		}
	}

	if event.Op&(fsnotify.Create|fsnotify.Remove|fsnotify.Rename|fsnotify.Write) == 0 {
		return
	}

	change, ok := w.classify(event.Name)
	if !ok {
		return
	}

	// Directory events identify the folder itself; file events must
	// carry a media extension to matter.
	if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
		w.schedule(change)
		return
	}
	if !scanner.IsMediaFile(event.Name) {
		return
	}

	w.schedule(change)
}

// classify maps an event path to the top-level media folder it
// belongs to. Paths outside the manga/audio sections, at section
// level, or inside hidden folders are ignored.
func (w *Watcher) classify(path string) (Change, bool) {
	rel, err := filepath.Rel(w.root, path)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return Change{}, false
	}

	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) < 2 {
		return Change{}, false
	}

	kind := parts[0]
	if kind != "manga" && kind != "audio" {
		return Change{}, false
	}

	name := parts[1]
	if strings.HasPrefix(name, ".") {
		return Change{}, false
	}

	return Change{
		Kind:       kind,
		FolderPath: filepath.Join(w.root, kind, name),
		Name:       name,
	}, true
}

// schedule arms or extends the folder's debounce timer.
func (w *Watcher) schedule(change Change) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if timer, ok := w.timers[change.FolderPath]; ok {
		timer.Reset(w.debounce)
		return
	}

	w.timers[change.FolderPath] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.timers, change.FolderPath)
		running := w.running
		w.mu.Unlock()
		if !running {
			return
		}

		w.logger.Info("library folder settled",
			"kind", change.Kind,
			"folder", change.FolderPath)
		if w.callback != nil {
			w.callback(change)
		}
	})
}
