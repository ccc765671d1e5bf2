package config

import (
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/asdersss/EZ-LLMcouncil/internal/logging"
)

const reloadDebounce = 500 * time.Millisecond

// Watcher reloads the registry when the config file changes. A reload that
// fails to parse or validate keeps the previous registry; editors that
// write-and-rename are handled by watching the parent directory.
type Watcher struct {
	path     string
	registry *Registry
	logger   *logging.Logger
	fsw      *fsnotify.Watcher
	done     chan struct{}
}

func NewWatcher(path string, registry *Registry, logger *logging.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	return &Watcher{
		path:     path,
		registry: registry,
		logger:   logger,
		fsw:      fsw,
		done:     make(chan struct{}),
	}, nil
}

// Start runs the watch loop until Close is called.
func (w *Watcher) Start() {
	go w.loop()
}

func (w *Watcher) loop() {
	var timer *time.Timer
	pending := make(chan struct{}, 1)

	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != filepath.Clean(w.path) {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			// Debounce bursts of write events from a single save.
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(reloadDebounce, func() {
				select {
				case pending <- struct{}{}:
				default:
				}
			})
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warnf("config: watch_error error=%v", err)
		case <-pending:
			w.reload()
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := Load(w.path)
	if err != nil {
		w.logger.Warnf("config: reload_rejected path=%s error=%v", w.path, err)
		return
	}
	w.registry.Swap(cfg)
	w.logger.Infof("config: reloaded path=%s models=%d", w.path, len(w.registry.ModelIDs()))
}

func (w *Watcher) Close() error {
	close(w.done)
	return w.fsw.Close()
}
