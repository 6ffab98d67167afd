package app

import (
	"os"
	"path/filepath"
	"sync"
	"time"
)

// FileWatcher polls a file and calls back when its modification time moves
// past the baseline. It fires once per change; ResetBaseline re-arms it
// after the change has been handled.
type FileWatcher struct {
	path          string
	checkInterval time.Duration

	mu       sync.Mutex
	baseline time.Time
	stopCh   chan struct{}
	onChange func()
}

// NewFileWatcher returns a watcher for path, or nil if the file cannot be
// stat'ed.
func NewFileWatcher(path string, checkInterval time.Duration) *FileWatcher {
	// Resolve symlinks so a replaced link target is noticed.
	if real, err := filepath.EvalSymlinks(path); err == nil {
		path = real
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil
	}
	return &FileWatcher{
		path:          path,
		checkInterval: checkInterval,
		baseline:      info.ModTime(),
	}
}

// OnChange sets the callback. It runs on the watcher goroutine.
func (w *FileWatcher) OnChange(callback func()) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onChange = callback
}

// Start begins polling in a background goroutine.
func (w *FileWatcher) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopCh != nil {
		return
	}
	w.stopCh = make(chan struct{})
	go w.watchLoop(w.stopCh)
}

// Stop ends polling.
func (w *FileWatcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopCh != nil {
		close(w.stopCh)
		w.stopCh = nil
	}
}

func (w *FileWatcher) watchLoop(stopCh chan struct{}) {
	ticker := time.NewTicker(w.checkInterval)
	defer ticker.Stop()

	fired := false
	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			changed := w.Changed()
			if !changed {
				fired = false
				continue
			}
			if fired {
				continue
			}
			fired = true
			w.mu.Lock()
			cb := w.onChange
			w.mu.Unlock()
			if cb != nil {
				cb()
			}
		}
	}
}

// Changed reports whether the file was modified after the baseline.
func (w *FileWatcher) Changed() bool {
	info, err := os.Stat(w.path)
	if err != nil {
		return false
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return info.ModTime().After(w.baseline)
}

// ResetBaseline takes the file's current modification time as the baseline.
func (w *FileWatcher) ResetBaseline() {
	if info, err := os.Stat(w.path); err == nil {
		w.mu.Lock()
		w.baseline = info.ModTime()
		w.mu.Unlock()
	}
}

// Path returns the watched file.
func (w *FileWatcher) Path() string {
	return w.path
}
