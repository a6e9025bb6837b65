package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/artpar/objectschema/config"
	"github.com/rs/zerolog"
)

func TestHolder_Get(t *testing.T) {
	path := writeConfig(t, validConfig())

	h, err := config.NewHolder(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder error: %v", err)
	}
	defer h.Stop()

	got := h.Get()
	if got == nil {
		t.Fatal("Get returned nil")
	}
	if got.Validation.MaxDepth != 32 {
		t.Errorf("MaxDepth = %d, want 32", got.Validation.MaxDepth)
	}
	if !filepath.IsAbs(h.Path()) {
		t.Errorf("Path = %s, want absolute", h.Path())
	}
}

func TestHolder_Reload(t *testing.T) {
	path := writeConfig(t, validConfig())

	h, err := config.NewHolder(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder error: %v", err)
	}
	defer h.Stop()

	if err := os.WriteFile(path, []byte("schemas:\n  dirs: [\"/srv/schemas\"]\nlogging:\n  level: debug\n"), 0644); err != nil {
		t.Fatalf("write new config: %v", err)
	}
	if err := h.Reload(); err != nil {
		t.Fatalf("Reload error: %v", err)
	}

	if got := h.Get().Logging.Level; got != "debug" {
		t.Errorf("reloaded Logging.Level = %s, want debug", got)
	}
}

func TestHolder_RestartOnlyFieldsKept(t *testing.T) {
	path := writeConfig(t, validConfig())

	h, err := config.NewHolder(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder error: %v", err)
	}
	defer h.Stop()

	var got config.Change
	h.OnChange(func(c config.Change) { got = c })

	content := "schemas:\n  dirs: [\"/srv/schemas\"]\nvalidation:\n  max_depth: 10\nserver:\n  port: 9090\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	if err := h.Reload(); err != nil {
		t.Fatalf("Reload error: %v", err)
	}

	cfg := h.Get()
	if cfg.Validation.MaxDepth != 32 || cfg.Server.Port != 8080 {
		t.Errorf("restart-only fields changed: max_depth=%d port=%d", cfg.Validation.MaxDepth, cfg.Server.Port)
	}
	want := []string{"server.port", "validation.max_depth"}
	if len(got.Pending) != 2 || got.Pending[0] != want[0] || got.Pending[1] != want[1] {
		t.Errorf("Pending = %v, want %v", got.Pending, want)
	}
	if len(got.Applied) != 0 || got.SchemaDirsChanged() {
		t.Errorf("Applied = %v, want none", got.Applied)
	}
}

func TestHolder_UnchangedSkipsListeners(t *testing.T) {
	path := writeConfig(t, validConfig())

	h, err := config.NewHolder(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder error: %v", err)
	}
	defer h.Stop()

	calls := 0
	h.OnChange(func(config.Change) { calls++ })

	if err := h.Reload(); err != nil {
		t.Fatal(err)
	}
	if calls != 0 {
		t.Errorf("OnChange called %d times for an unchanged file", calls)
	}
}

func TestDiff(t *testing.T) {
	old := &config.Config{
		Schemas: config.SchemasConfig{Dirs: []string{"/a"}},
		Logging: config.LoggingConfig{Level: "info", Format: "json"},
	}

	tests := []struct {
		name        string
		edit        func(c *config.Config)
		applied     []string
		pending     []string
		dirsChanged bool
		watch       bool
	}{
		{"none", func(*config.Config) {}, nil, nil, false, false},
		{"dirs", func(c *config.Config) { c.Schemas.Dirs = []string{"/a", "/b"} }, []string{"schemas.dirs"}, nil, true, true},
		{"watch", func(c *config.Config) { c.Schemas.Watch = true }, []string{"schemas.watch"}, nil, false, true},
		{"level", func(c *config.Config) { c.Logging.Level = "warn" }, []string{"logging.level"}, nil, false, false},
		{"format", func(c *config.Config) { c.Logging.Format = "console" }, nil, []string{"logging.format"}, false, false},
		{"dsn", func(c *config.Config) { c.Store.DSN = "other.db" }, nil, []string{"store.dsn"}, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loaded := *old
			loaded.Schemas.Dirs = append([]string(nil), old.Schemas.Dirs...)
			tt.edit(&loaded)

			ch := config.Diff(old, &loaded)
			if strings.Join(ch.Applied, ",") != strings.Join(tt.applied, ",") {
				t.Errorf("Applied = %v, want %v", ch.Applied, tt.applied)
			}
			if strings.Join(ch.Pending, ",") != strings.Join(tt.pending, ",") {
				t.Errorf("Pending = %v, want %v", ch.Pending, tt.pending)
			}
			if ch.SchemaDirsChanged() != tt.dirsChanged || ch.SchemaWatchChanged() != tt.watch {
				t.Errorf("dirs=%v watch=%v", ch.SchemaDirsChanged(), ch.SchemaWatchChanged())
			}
			if ch.New.Logging.Format != "json" || ch.New.Store.DSN != "" {
				t.Errorf("restart-only fields leaked into the effective config: %+v", ch.New)
			}
		})
	}
}

func TestHolder_ReloadInvalidConfig(t *testing.T) {
	path := writeConfig(t, validConfig())

	h, err := config.NewHolder(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder error: %v", err)
	}
	defer h.Stop()

	if err := os.WriteFile(path, []byte("store:\n  driver: postgres\n"), 0644); err != nil {
		t.Fatalf("write invalid config: %v", err)
	}

	if err := h.Reload(); err == nil {
		t.Error("Reload should fail for invalid config")
	}

	if got := h.Get().Store.Driver; got != "memory" {
		t.Errorf("should keep old config, got Store.Driver = %s", got)
	}
}

func TestHolder_WatchFile(t *testing.T) {
	path := writeConfig(t, validConfig())

	h, err := config.NewHolder(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder error: %v", err)
	}
	defer h.Stop()

	changed := make(chan struct{}, 1)
	h.OnChange(func(config.Change) {
		select {
		case changed <- struct{}{}:
		default:
		}
	})

	if err := h.WatchFile(); err != nil {
		t.Fatalf("WatchFile error: %v", err)
	}

	if err := os.WriteFile(path, []byte("schemas:\n  dirs: [\"/watched\"]\n"), 0644); err != nil {
		t.Fatalf("write new config: %v", err)
	}

	select {
	case <-changed:
	case <-time.After(2 * time.Second):
		t.Fatal("file watcher did not trigger reload")
	}

	if got := h.Get().Schemas.Dirs; len(got) != 1 || got[0] != "/watched" {
		t.Errorf("after file watch, Dirs = %v, want [/watched]", got)
	}
}

func TestHolder_OnError(t *testing.T) {
	path := writeConfig(t, validConfig())

	h, err := config.NewHolder(path, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	defer h.Stop()

	var got error
	h.OnError(func(err error) { got = err })

	if err := os.WriteFile(path, []byte("logging:\n  format: xml\n"), 0644); err != nil {
		t.Fatal(err)
	}
	_ = h.Reload()
	if got == nil {
		t.Error("OnError callback was not called")
	}
}

func TestHolder_StopTwice(t *testing.T) {
	h, err := config.NewHolder(writeConfig(t, validConfig()), zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	h.Stop()
	h.Stop()
}

func TestHolder_ConcurrentAccess(t *testing.T) {
	path := writeConfig(t, validConfig())

	h, err := config.NewHolder(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder error: %v", err)
	}
	defer h.Stop()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if h.Get() == nil {
					t.Error("concurrent Get returned nil")
				}
			}
		}()
	}

	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = h.Reload()
		}()
	}

	wg.Wait()
}

func TestReloadableFields(t *testing.T) {
	reloadable := map[string]bool{}
	for _, f := range config.ReloadableFields() {
		reloadable[f] = true
	}
	for _, want := range []string{"schemas.dirs", "schemas.watch", "logging.level"} {
		if !reloadable[want] {
			t.Errorf("%s not in ReloadableFields", want)
		}
	}

	for _, f := range config.NonReloadableFields() {
		if reloadable[f] {
			t.Errorf("%s is listed as both reloadable and non-reloadable", f)
		}
	}
}

// Helpers

func validConfig() string {
	return `
schemas:
  dirs: ["/srv/schemas"]
validation:
  max_depth: 32
`
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}
