// Package config provides configuration loading and hot reload.
package config

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// field is one setting the holder tracks across reloads.
type field struct {
	name       string
	reloadable bool
	changed    func(old, new *Config) bool
}

var fields = []field{
	{"schemas.dirs", true, func(o, n *Config) bool { return !slices.Equal(o.Schemas.Dirs, n.Schemas.Dirs) }},
	{"schemas.watch", true, func(o, n *Config) bool { return o.Schemas.Watch != n.Schemas.Watch }},
	{"logging.level", true, func(o, n *Config) bool { return o.Logging.Level != n.Logging.Level }},
	{"logging.format", false, func(o, n *Config) bool { return o.Logging.Format != n.Logging.Format }},
	{"server.host", false, func(o, n *Config) bool { return o.Server.Host != n.Server.Host }},
	{"server.port", false, func(o, n *Config) bool { return o.Server.Port != n.Server.Port }},
	{"server.read_timeout", false, func(o, n *Config) bool { return o.Server.ReadTimeout != n.Server.ReadTimeout }},
	{"server.write_timeout", false, func(o, n *Config) bool { return o.Server.WriteTimeout != n.Server.WriteTimeout }},
	{"store.driver", false, func(o, n *Config) bool { return o.Store.Driver != n.Store.Driver }},
	{"store.dsn", false, func(o, n *Config) bool { return o.Store.DSN != n.Store.DSN }},
	{"validation.max_depth", false, func(o, n *Config) bool { return o.Validation.MaxDepth != n.Validation.MaxDepth }},
	{"metrics.enabled", false, func(o, n *Config) bool { return o.Metrics.Enabled != n.Metrics.Enabled }},
	{"metrics.path", false, func(o, n *Config) bool { return o.Metrics.Path != n.Metrics.Path }},
}

// Change describes what a reload altered.
type Change struct {
	Old, New *Config

	// Applied lists the reloadable fields that changed.
	Applied []string

	// Pending lists fields that changed on disk but keep their old value
	// until restart.
	Pending []string
}

// Has reports whether the named reloadable field changed.
func (c Change) Has(name string) bool {
	return slices.Contains(c.Applied, name)
}

// SchemaDirsChanged reports whether schema directories must be reloaded.
func (c Change) SchemaDirsChanged() bool {
	return c.Has("schemas.dirs")
}

// SchemaWatchChanged reports whether the schema watcher must be restarted.
func (c Change) SchemaWatchChanged() bool {
	return c.Has("schemas.dirs") || c.Has("schemas.watch")
}

// Empty reports whether nothing changed.
func (c Change) Empty() bool {
	return len(c.Applied) == 0 && len(c.Pending) == 0
}

// Diff compares two configurations. New is the effective configuration: the
// loaded one with every restart-only field kept from old.
func Diff(old, loaded *Config) Change {
	ch := Change{Old: old}
	for _, f := range fields {
		if !f.changed(old, loaded) {
			continue
		}
		if f.reloadable {
			ch.Applied = append(ch.Applied, f.name)
		} else {
			ch.Pending = append(ch.Pending, f.name)
		}
	}

	effective := *loaded
	effective.Server = old.Server
	effective.Store = old.Store
	effective.Validation = old.Validation
	effective.Metrics = old.Metrics
	effective.Logging.Format = old.Logging.Format
	ch.New = &effective
	return ch
}

// DefaultWatchDebounce coalesces the burst of events an editor save produces.
const DefaultWatchDebounce = 100 * time.Millisecond

// Holder provides thread-safe access to the effective configuration and
// reloads the reloadable fields from disk.
type Holder struct {
	mu       sync.RWMutex
	config   *Config
	path     string
	logger   zerolog.Logger
	onChange []func(Change)
	onError  []func(error)

	watcher  *fsnotify.Watcher
	debounce time.Duration
	timer    *time.Timer
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewHolder creates a new config holder and loads the initial configuration.
func NewHolder(path string, logger zerolog.Logger) (*Holder, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}

	return &Holder{
		config:   cfg,
		path:     absPath,
		logger:   logger,
		debounce: DefaultWatchDebounce,
		stopCh:   make(chan struct{}),
	}, nil
}

// Path returns the absolute path of the config file.
func (h *Holder) Path() string {
	return h.path
}

// Get returns the current effective configuration.
func (h *Holder) Get() *Config {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.config
}

// Reload reads the file again and applies its reloadable fields. A file that
// fails to load leaves the configuration untouched. Listeners only run when
// something changed.
func (h *Holder) Reload() error {
	loaded, err := Load(h.path)
	if err != nil {
		h.logger.Error().Err(err).Str("path", h.path).Msg("config reload failed, keeping current config")
		for _, fn := range h.errorListeners() {
			fn(err)
		}
		return fmt.Errorf("reload config: %w", err)
	}

	h.mu.Lock()
	change := Diff(h.config, loaded)
	if !change.Empty() {
		h.config = change.New
	}
	listeners := append([]func(Change){}, h.onChange...)
	h.mu.Unlock()

	if change.Empty() {
		h.logger.Debug().Str("path", h.path).Msg("config unchanged")
		return nil
	}

	if len(change.Pending) > 0 {
		h.logger.Warn().
			Strs("fields", change.Pending).
			Msg("config changes take effect after restart")
	}
	h.logger.Info().
		Strs("applied", change.Applied).
		Strs("dirs", change.New.Schemas.Dirs).
		Str("log_level", change.New.Logging.Level).
		Msg("configuration reloaded")

	for _, fn := range listeners {
		fn(change)
	}
	return nil
}

func (h *Holder) errorListeners() []func(error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]func(error){}, h.onError...)
}

// OnChange registers a callback run after each reload that changed the file.
func (h *Holder) OnChange(fn func(Change)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onChange = append(h.onChange, fn)
}

// OnError registers a callback run when a reload fails.
func (h *Holder) OnError(fn func(error)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onError = append(h.onError, fn)
}

// WatchFile reloads the config file whenever it is written. The directory is
// watched so editors that save by rename are seen too.
func (h *Holder) WatchFile() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(h.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch directory: %w", err)
	}
	h.watcher = watcher

	go h.watchLoop()

	h.logger.Info().Str("path", h.path).Msg("watching config file for changes")
	return nil
}

// WatchSignals reloads the config on SIGHUP.
func (h *Holder) WatchSignals() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGHUP)

	go func() {
		defer signal.Stop(sigCh)
		for {
			select {
			case <-sigCh:
				h.logger.Info().Msg("received SIGHUP, reloading config")
				_ = h.Reload()
			case <-h.stopCh:
				return
			}
		}
	}()
}

// Stop stops watching for file changes and signals.
func (h *Holder) Stop() {
	h.stopOnce.Do(func() {
		close(h.stopCh)
		if h.watcher != nil {
			h.watcher.Close()
		}
		h.mu.Lock()
		if h.timer != nil {
			h.timer.Stop()
		}
		h.mu.Unlock()
	})
}

func (h *Holder) watchLoop() {
	filename := filepath.Base(h.path)

	for {
		select {
		case event, ok := <-h.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filename || !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) {
				continue
			}
			h.scheduleReload()

		case err, ok := <-h.watcher.Errors:
			if !ok {
				return
			}
			h.logger.Error().Err(err).Msg("config watcher error")

		case <-h.stopCh:
			return
		}
	}
}

// scheduleReload reloads once the file has been quiet for the debounce period.
func (h *Holder) scheduleReload() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.timer != nil {
		h.timer.Stop()
	}
	h.timer = time.AfterFunc(h.debounce, func() {
		select {
		case <-h.stopCh:
			return
		default:
		}
		_ = h.Reload()
	})
}

// ReloadableFields returns which fields can be changed without restart.
func ReloadableFields() []string {
	return fieldNames(true)
}

// NonReloadableFields returns which fields require a restart.
func NonReloadableFields() []string {
	return fieldNames(false)
}

func fieldNames(reloadable bool) []string {
	var names []string
	for _, f := range fields {
		if f.reloadable == reloadable {
			names = append(names, f.name)
		}
	}
	return names
}
