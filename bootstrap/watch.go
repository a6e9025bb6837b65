package bootstrap

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/artpar/objectschema/core/schema"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// DefaultDebounce is how long the watcher waits for a burst of file events
// to settle before reloading.
const DefaultDebounce = 200 * time.Millisecond

// SchemaWatcher reloads a Loader when schema files under its directories change.
type SchemaWatcher struct {
	loader   *Loader
	logger   zerolog.Logger
	debounce time.Duration

	watcher  *fsnotify.Watcher
	stopCh   chan struct{}
	stopOnce sync.Once

	mu    sync.Mutex
	timer *time.Timer
}

// NewSchemaWatcher creates a watcher for loader's directories.
func NewSchemaWatcher(loader *Loader, logger zerolog.Logger, debounce time.Duration) *SchemaWatcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &SchemaWatcher{
		loader:   loader,
		logger:   logger,
		debounce: debounce,
		stopCh:   make(chan struct{}),
	}
}

// Start begins watching every directory, recursively.
func (w *SchemaWatcher) Start() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	w.watcher = watcher

	for _, dir := range w.loader.Dirs() {
		if err := w.addTree(dir); err != nil {
			watcher.Close()
			return err
		}
	}

	go w.loop()

	w.logger.Info().Strs("dirs", w.loader.Dirs()).Msg("watching schema directories for changes")
	return nil
}

func (w *SchemaWatcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if err := w.watcher.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

// Stop stops watching. It is safe to call more than once.
func (w *SchemaWatcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		if w.watcher != nil {
			w.watcher.Close()
		}
		w.mu.Lock()
		if w.timer != nil {
			w.timer.Stop()
		}
		w.mu.Unlock()
	})
}

func (w *SchemaWatcher) loop() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handle(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error().Err(err).Msg("schema watcher error")

		case <-w.stopCh:
			return
		}
	}
}

func (w *SchemaWatcher) handle(event fsnotify.Event) {
	// New subdirectories are watched as they appear.
	if event.Op&fsnotify.Create != 0 && !schema.IsSchemaFile(event.Name) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addTree(event.Name); err != nil {
				w.logger.Warn().Err(err).Str("dir", event.Name).Msg("cannot watch new directory")
			}
			w.schedule()
		}
		return
	}

	if !schema.IsSchemaFile(event.Name) {
		return
	}
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}

	w.logger.Debug().
		Str("event", event.Op.String()).
		Str("file", event.Name).
		Msg("schema file changed")
	w.schedule()
}

func (w *SchemaWatcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.reload)
}

func (w *SchemaWatcher) reload() {
	select {
	case <-w.stopCh:
		return
	default:
	}
	if _, err := w.loader.Load(); err != nil {
		w.logger.Error().Err(err).Msg("schema reload failed, keeping registered schemas")
	}
}
