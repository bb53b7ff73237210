package config

import (
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/johnnybpena1989/raspberry-pi-camera-stream-manager/internal/logger"
)

// Watcher watches the configuration file and notifies handlers with a
// freshly loaded Config when it changes. The core pipeline treats its
// config as fixed; handlers are for the outer layers (source re-probing,
// status display).
type Watcher struct {
	path     string
	debounce time.Duration

	mu       sync.Mutex
	handlers []func(Config)

	watcher *fsnotify.Watcher
	stop    chan struct{}
	stopped bool
}

// NewWatcher creates a watcher for the given config file path.
func NewWatcher(path string, debounce time.Duration) *Watcher {
	if debounce <= 0 {
		debounce = 1500 * time.Millisecond
	}
	return &Watcher{
		path:     path,
		debounce: debounce,
		stop:     make(chan struct{}),
	}
}

// OnReload registers a handler invoked with the fresh config after a change.
func (w *Watcher) OnReload(handler func(Config)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handlers = append(w.handlers, handler)
}

// Start begins watching the configuration file for changes.
func (w *Watcher) Start() error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fw.Add(w.path); err != nil {
		fw.Close()
		return err
	}
	w.watcher = fw

	logger.Info("Config", "Watching %s for changes (debounce %v)", w.path, w.debounce)
	go w.watch()
	return nil
}

// Stop halts the watcher.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.stopped {
		close(w.stop)
		w.stopped = true
	}
	w.mu.Unlock()
	if w.watcher != nil {
		_ = w.watcher.Close()
	}
}

func (w *Watcher) watch() {
	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-w.stop:
			if timer != nil {
				timer.Stop()
			}
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			// Editors often replace the file, so watch create as well.
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				if timer != nil {
					timer.Stop()
				}
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			}

		case <-timerC:
			timerC = nil
			w.reload()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("Config", "Watcher error: %v", err)
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := Load(w.path)
	if err != nil {
		logger.Warn("Config", "Reload failed, keeping previous config: %v", err)
		return
	}

	w.mu.Lock()
	handlers := make([]func(Config), len(w.handlers))
	copy(handlers, w.handlers)
	w.mu.Unlock()

	logger.Info("Config", "Config file changed, notifying %d handler(s)", len(handlers))
	for _, h := range handlers {
		h(cfg)
	}
}
