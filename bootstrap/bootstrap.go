// Package bootstrap wires all dependencies and starts the application.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	apihttp "github.com/artpar/objectschema/adapters/http"
	"github.com/artpar/objectschema/adapters/memory"
	"github.com/artpar/objectschema/adapters/metrics"
	"github.com/artpar/objectschema/adapters/sqlite"
	"github.com/artpar/objectschema/config"
	"github.com/artpar/objectschema/core/registry"
	"github.com/artpar/objectschema/core/validation"
	"github.com/artpar/objectschema/ports"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// App represents the running application.
type App struct {
	Logger     zerolog.Logger
	Config     *config.Config
	DB         *sqlite.DB
	Store      ports.SchemaStore
	Registry   *registry.Registry
	Metrics    *metrics.Collector
	Loader     *Loader
	HTTPServer *http.Server

	holder  *config.Holder
	watcher *SchemaWatcher
	mu      sync.Mutex
}

// Options configures application initialization.
type Options struct {
	// Config is used as is when ConfigPath is empty. When both are empty the
	// configuration comes from OBJECTSCHEMA_* environment variables.
	Config *config.Config

	// ConfigPath is a YAML config file, watched for changes while running.
	ConfigPath string

	// Version is reported by the /version endpoint.
	Version string

	// LogOutput defaults to os.Stdout.
	LogOutput io.Writer
}

// New creates and initializes the application.
func New(opts Options) (*App, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}

	out := opts.LogOutput
	if out == nil {
		out = os.Stdout
	}
	logger := NewLogger(cfg.Logging, out)
	logger.Info().Msg("initializing objectschema")

	a := &App{
		Logger: logger,
		Config: cfg,
	}

	if err := a.initStore(); err != nil {
		a.Shutdown()
		return nil, fmt.Errorf("init store: %w", err)
	}

	var promReg *prometheus.Registry
	if cfg.Metrics.Enabled {
		promReg = prometheus.NewRegistry()
		promReg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		a.Metrics = metrics.NewWithRegistry(promReg)
		a.Store = a.Metrics.Instrument(a.Store)
		logger.Info().Str("path", cfg.Metrics.Path).Msg("prometheus metrics enabled")
	}

	regOpts := []registry.Option{
		registry.WithLogger(logger),
		registry.WithCompiler(validation.NewCompiler(validation.WithMaxDepth(cfg.Validation.MaxDepth))),
	}
	if a.Metrics != nil {
		regOpts = append(regOpts, registry.WithObserver(a.Metrics))
	}
	reg, err := registry.NewWithStore(a.Store, regOpts...)
	if err != nil {
		a.Shutdown()
		return nil, fmt.Errorf("init registry: %w", err)
	}
	a.Registry = reg

	a.Loader = NewLoader(reg, cfg.Schemas.Dirs, logger, a.Metrics)
	if len(cfg.Schemas.Dirs) > 0 {
		if _, err := a.Loader.Load(); err != nil {
			a.Shutdown()
			return nil, err
		}
	}

	if opts.ConfigPath != "" {
		holder, err := config.NewHolder(opts.ConfigPath, logger)
		if err != nil {
			a.Shutdown()
			return nil, err
		}
		holder.OnChange(a.applyConfig)
		if a.Metrics != nil {
			holder.OnError(a.Metrics.RecordConfigReload)
		}
		a.holder = holder
	}

	a.initHTTPServer(opts.Version, promReg)
	return a, nil
}

func loadConfig(opts Options) (*config.Config, error) {
	switch {
	case opts.ConfigPath != "":
		return config.Load(opts.ConfigPath)
	case opts.Config != nil:
		return opts.Config, nil
	default:
		return config.LoadFromEnv()
	}
}

func (a *App) initStore() error {
	switch a.Config.Store.Driver {
	case "sqlite":
		db, err := sqlite.Open(a.Config.Store.DSN)
		if err != nil {
			return err
		}
		if err := db.Migrate(); err != nil {
			db.Close()
			return fmt.Errorf("migrate: %w", err)
		}
		a.DB = db
		a.Store = sqlite.NewSchemaStore(db, sqlite.WithLogger(a.Logger))
		a.Logger.Info().Str("dsn", a.Config.Store.DSN).Msg("sqlite schema store initialized")
	default:
		a.Store = memory.NewSchemaStore()
		a.Logger.Info().Msg("memory schema store initialized")
	}
	return nil
}

func (a *App) initHTTPServer(version string, promReg *prometheus.Registry) {
	handler := apihttp.NewHandler(a.Registry, a.Logger)
	if version != "" {
		handler.SetVersion(version)
	}

	routerCfg := apihttp.RouterConfig{
		Timeout: a.Config.Server.WriteTimeout,
	}
	if a.Metrics != nil {
		routerCfg.Metrics = a.Metrics
		routerCfg.MetricsPath = a.Config.Metrics.Path
		routerCfg.MetricsHandler = promhttp.HandlerFor(promReg, promhttp.HandlerOpts{})
	}

	a.HTTPServer = &http.Server{
		Addr:         a.Config.Server.Addr(),
		Handler:      apihttp.NewRouterWithConfig(handler, a.Logger, routerCfg),
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
	}
}

// applyConfig applies the reloadable fields of a configuration change.
func (a *App) applyConfig(change config.Change) {
	a.mu.Lock()
	defer a.mu.Unlock()

	cfg := change.New
	a.Config = cfg
	if a.Metrics != nil {
		a.Metrics.RecordConfigReload(nil)
	}

	if change.Has("logging.level") {
		if level, err := zerolog.ParseLevel(strings.ToLower(cfg.Logging.Level)); err == nil {
			zerolog.SetGlobalLevel(level)
		}
	}

	if change.SchemaDirsChanged() {
		a.Loader.SetDirs(cfg.Schemas.Dirs)
		if _, err := a.Loader.Load(); err != nil {
			a.Logger.Error().Err(err).Msg("schema reload after config change failed")
		}
	}

	if change.SchemaWatchChanged() {
		a.stopWatcher()
		if cfg.Schemas.Watch {
			if err := a.startWatcher(); err != nil {
				a.Logger.Error().Err(err).Msg("failed to watch schema directories")
			}
		}
	}
}

// StartWatchers starts the schema directory and config file watchers that
// the configuration enables.
func (a *App) StartWatchers() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.Config.Schemas.Watch && len(a.Config.Schemas.Dirs) > 0 {
		if err := a.startWatcher(); err != nil {
			return err
		}
	}
	if a.holder != nil {
		if err := a.holder.WatchFile(); err != nil {
			return err
		}
		a.holder.WatchSignals()
	}
	return nil
}

func (a *App) startWatcher() error {
	if len(a.Loader.Dirs()) == 0 {
		return nil
	}
	w := NewSchemaWatcher(a.Loader, a.Logger, DefaultDebounce)
	if err := w.Start(); err != nil {
		return err
	}
	a.watcher = w
	return nil
}

func (a *App) stopWatcher() {
	if a.watcher != nil {
		a.watcher.Stop()
		a.watcher = nil
	}
}

// Run starts the HTTP server and blocks until SIGINT or SIGTERM.
func (a *App) Run() error {
	if err := a.StartWatchers(); err != nil {
		a.Logger.Warn().Err(err).Msg("failed to start watchers")
	}

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info().
			Str("addr", a.HTTPServer.Addr).
			Msg("starting http server")
		if err := a.HTTPServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Wait for interrupt or error
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		a.Shutdown()
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		a.Logger.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	return a.Shutdown()
}

// Shutdown stops watchers, drains the HTTP server and closes the database.
func (a *App) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a.mu.Lock()
	a.stopWatcher()
	a.mu.Unlock()

	if a.holder != nil {
		a.holder.Stop()
	}

	// Shutdown HTTP server
	if a.HTTPServer != nil {
		if err := a.HTTPServer.Shutdown(ctx); err != nil {
			a.Logger.Error().Err(err).Msg("http server shutdown error")
		}
	}

	// Close database
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			a.Logger.Error().Err(err).Msg("database close error")
		}
		a.DB = nil
	}

	a.Logger.Info().Msg("shutdown complete")
	return nil
}

// NewLogger builds a logger from logging configuration and sets the global
// level.
func NewLogger(cfg config.LoggingConfig, out io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Format == "console" {
		output := zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
		return zerolog.New(output).With().Timestamp().Logger()
	}

	return zerolog.New(out).With().Timestamp().Logger()
}
