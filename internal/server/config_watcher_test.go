package server

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hackutd/harp-sub000/internal/config"
	"github.com/hackutd/harp-sub000/internal/logger"
)

const reloadTimeout = 2 * time.Second

type configWatcherHarness struct {
	Watcher    *ConfigWatcher
	ConfigPath string
	Reloaded   <-chan *config.Config
}

func clearHarpEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"HARP_SERVER", "HARP_TOKEN", "HARP_DATABASE_URL"} {
		t.Setenv(k, "")
	}
}

func newConfigWatcherHarness(t *testing.T, initial string) *configWatcherHarness {
	t.Helper()
	clearHarpEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	writeTestFile(t, path, initial)

	cfg, err := config.LoadGlobalFrom(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	ch := make(chan *config.Config, 4)
	cw := NewConfigWatcher(path, cfg, logger.Nop())
	cw.OnReload(func(c *config.Config) { ch <- c })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if err := cw.Start(ctx); err != nil {
		t.Fatalf("Failed to start watcher: %v", err)
	}
	t.Cleanup(cw.Stop)

	return &configWatcherHarness{Watcher: cw, ConfigPath: path, Reloaded: ch}
}

func (h *configWatcherHarness) waitForReload(t *testing.T) *config.Config {
	t.Helper()
	select {
	case c := <-h.Reloaded:
		return c
	case <-time.After(reloadTimeout):
		t.Fatal("Timeout waiting for config reload")
		return nil
	}
}

func writeTestFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", filepath.Base(path), err)
	}
}

func TestStaticConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	sc := NewStaticConfig(cfg)
	for range 3 {
		if sc.Config() != cfg {
			t.Fatal("StaticConfig.Config() should return the same config object")
		}
	}
}

func TestConfigWatcherReloadsAdmins(t *testing.T) {
	h := newConfigWatcherHarness(t, `
[[admins]]
id = "a1"
email = "a1@example.com"
token = "old-token"
`)
	if _, ok := h.Watcher.Config().AdminByToken("old-token"); !ok {
		t.Fatal("initial token should resolve")
	}

	writeTestFile(t, h.ConfigPath, `
[[admins]]
id = "a1"
email = "a1@example.com"
token = "new-token"
`)
	got := h.waitForReload(t)

	if _, ok := got.AdminByToken("new-token"); !ok {
		t.Error("reloaded config should accept new token")
	}
	if _, ok := h.Watcher.Config().AdminByToken("old-token"); ok {
		t.Error("old token should be rejected after reload")
	}
	if h.Watcher.ReloadCounter() == 0 {
		t.Error("ReloadCounter should advance")
	}
}

func TestConfigWatcherKeepsConfigOnInvalidFile(t *testing.T) {
	h := newConfigWatcherHarness(t, `reviews_per_app = 2`)
	before := h.Watcher.Config()

	writeTestFile(t, h.ConfigPath, `reviews_per_app = [`)
	// No reload callback fires for a parse failure; give the debounce time to run.
	select {
	case <-h.Reloaded:
		t.Fatal("invalid config should not be applied")
	case <-time.After(600 * time.Millisecond):
	}
	if h.Watcher.Config() != before {
		t.Error("config should be unchanged after a failed reload")
	}
}

func TestConfigWatcherIgnoresOtherFiles(t *testing.T) {
	h := newConfigWatcherHarness(t, `reviews_per_app = 2`)
	writeTestFile(t, filepath.Join(filepath.Dir(h.ConfigPath), "other.toml"), `reviews_per_app = 5`)
	select {
	case <-h.Reloaded:
		t.Fatal("unrelated file should not trigger reload")
	case <-time.After(500 * time.Millisecond):
	}
}

func TestConfigWatcherStartAfterStop(t *testing.T) {
	cw := NewConfigWatcher("", config.DefaultConfig(), logger.Nop())
	if err := cw.Start(context.Background()); err != nil {
		t.Fatalf("empty path should be a no-op: %v", err)
	}
	cw.Stop()
	cw.Stop()
	if err := cw.Start(context.Background()); err == nil {
		t.Error("Start after Stop should fail")
	}
}
