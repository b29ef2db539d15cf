package agent

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ConfigStore holds the configuration every session reads at the start of
// a turn. A reload swaps it without disturbing a turn in progress.
type ConfigStore struct {
	mu  sync.RWMutex
	cfg *Config
}

func NewConfigStore(cfg *Config) *ConfigStore {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &ConfigStore{cfg: cfg}
}

func (s *ConfigStore) Current() *Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

func (s *ConfigStore) Swap(cfg *Config) {
	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()
}

// reloadDelay lets a burst of writes to the file settle before reloading.
const reloadDelay = 100 * time.Millisecond

// Watcher reloads the configuration file into a store when it changes. A
// file that fails to load is reported and the previous configuration kept.
type Watcher struct {
	path     string
	store    *ConfigStore
	fsw      *fsnotify.Watcher
	reloaded chan struct{}
}

// NewWatcher watches the directory of path, so editors that replace the
// file instead of writing it in place are seen too.
func NewWatcher(path string, store *ConfigStore) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		fsw.Close()
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}
	return &Watcher{path: abs, store: store, fsw: fsw, reloaded: make(chan struct{}, 1)}, nil
}

// Reloaded is signalled after each successful reload.
func (w *Watcher) Reloaded() <-chan struct{} { return w.reloaded }

// Run blocks until ctx is cancelled or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) {
	slog.Info("config watcher started", "path", w.path)
	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()
	for {
		select {
		case <-ctx.Done():
			slog.Info("config watcher stopped")
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path || ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(reloadDelay)
			fire = timer.C
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			slog.Warn("config watcher error", "error", err)
		case <-fire:
			fire = nil
			w.reload()
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := LoadConfig(w.path)
	if err != nil {
		slog.Warn("config reload failed, keeping previous", "path", w.path, "error", err)
		return
	}
	w.store.Swap(cfg)
	slog.Info("config reloaded", "path", w.path, "side", cfg.Side, "doctrine", cfg.Doctrine.Name)
	select {
	case w.reloaded <- struct{}{}:
	default:
	}
}

func (w *Watcher) Close() error { return w.fsw.Close() }
