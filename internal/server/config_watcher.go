package server

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/hackutd/harp-sub000/internal/config"
)

// ConfigGetter provides access to the current config
type ConfigGetter interface {
	Config() *config.Config
}

// StaticConfig wraps a config for use without hot-reloading (e.g., in tests)
type StaticConfig struct {
	cfg *config.Config
}

// NewStaticConfig creates a ConfigGetter that always returns the same config
func NewStaticConfig(cfg *config.Config) *StaticConfig {
	return &StaticConfig{cfg: cfg}
}

// Config returns the static config
func (sc *StaticConfig) Config() *config.Config {
	return sc.cfg
}

// ConfigWatcher reloads config.toml when it changes on disk.
//
// Only the admin allowlist and reviews_per_app take effect without a
// restart; server_addr and the [database] section are read once at startup.
// A stopped watcher cannot be restarted.
type ConfigWatcher struct {
	configPath    string
	logger        *zap.SugaredLogger
	cfgMu         sync.RWMutex
	cfg           *config.Config
	onReload      func(*config.Config)
	reloadCounter uint64
	stopped       bool
	watcher       *fsnotify.Watcher
	stopCh        chan struct{}
	stopOnce      sync.Once
}

// NewConfigWatcher creates a watcher seeded with cfg.
func NewConfigWatcher(configPath string, cfg *config.Config, logger *zap.SugaredLogger) *ConfigWatcher {
	return &ConfigWatcher{
		configPath: configPath,
		cfg:        cfg,
		logger:     logger,
		stopCh:     make(chan struct{}),
	}
}

// OnReload registers fn to run after each successful reload.
func (cw *ConfigWatcher) OnReload(fn func(*config.Config)) {
	cw.cfgMu.Lock()
	cw.onReload = fn
	cw.cfgMu.Unlock()
}

// Start begins watching. An empty path disables watching.
func (cw *ConfigWatcher) Start(ctx context.Context) error {
	cw.cfgMu.RLock()
	stopped := cw.stopped
	cw.cfgMu.RUnlock()
	if stopped {
		return errors.New("config watcher already stopped")
	}
	if cw.configPath == "" {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	// Watch the directory so atomic saves (write temp + rename) are seen.
	if err := watcher.Add(filepath.Dir(cw.configPath)); err != nil {
		watcher.Close()
		return err
	}
	cw.watcher = watcher

	go cw.watchLoop(ctx, filepath.Base(cw.configPath))
	return nil
}

// Stop stops the watcher. Safe to call multiple times.
func (cw *ConfigWatcher) Stop() {
	cw.stopOnce.Do(func() {
		cw.cfgMu.Lock()
		cw.stopped = true
		cw.cfgMu.Unlock()
		close(cw.stopCh)
		if cw.watcher != nil {
			cw.watcher.Close()
		}
	})
}

// Config returns the current config.
func (cw *ConfigWatcher) Config() *config.Config {
	cw.cfgMu.RLock()
	defer cw.cfgMu.RUnlock()
	return cw.cfg
}

// ReloadCounter is incremented on every successful reload.
func (cw *ConfigWatcher) ReloadCounter() uint64 {
	cw.cfgMu.RLock()
	defer cw.cfgMu.RUnlock()
	return cw.reloadCounter
}

func (cw *ConfigWatcher) watchLoop(ctx context.Context, configFile string) {
	var debounce *time.Timer
	const debounceDelay = 200 * time.Millisecond

	for {
		select {
		case <-ctx.Done():
			return
		case <-cw.stopCh:
			return
		case event, ok := <-cw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != configFile {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(debounceDelay, cw.reload)
		case err, ok := <-cw.watcher.Errors:
			if !ok {
				return
			}
			cw.logger.Warnw("config watcher error", "error", err)
		}
	}
}

func (cw *ConfigWatcher) reload() {
	newCfg, err := config.LoadGlobalFrom(cw.configPath)
	if err != nil {
		cw.logger.Errorw("config reload failed", "path", cw.configPath, "error", err)
		return
	}

	cw.cfgMu.Lock()
	old := cw.cfg
	cw.cfg = newCfg
	cw.reloadCounter++
	fn := cw.onReload
	cw.cfgMu.Unlock()

	if len(old.Admins) != len(newCfg.Admins) {
		cw.logger.Infow("admin allowlist changed", "before", len(old.Admins), "after", len(newCfg.Admins))
	}
	if old.ServerAddr != newCfg.ServerAddr {
		cw.logger.Warnw("server_addr changed; restart required", "old", old.ServerAddr, "new", newCfg.ServerAddr)
	}
	if fn != nil {
		fn(newCfg)
	}
	cw.logger.Infow("config reloaded", "path", cw.configPath)
}
