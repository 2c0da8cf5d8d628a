package watcher

import (
	"os"
	"time"
)

// detect fires onChange once the file differs from the last seen state
// and has stopped changing.
func (w *Watcher) detect() {
	w.mu.RLock()
	path := w.path
	lastMod, lastSize := w.lastModTime, w.lastSize
	w.mu.RUnlock()

	info, err := os.Stat(path)
	if err != nil {
		w.log.Debug("config file not readable", "path", path, "error", err)
		return
	}
	if info.ModTime().Equal(lastMod) && info.Size() == lastSize {
		return
	}

	if !w.isStable() {
		return
	}
	info, err = os.Stat(path)
	if err != nil {
		return
	}

	w.mu.Lock()
	w.lastModTime, w.lastSize = info.ModTime(), info.Size()
	w.mu.Unlock()

	w.log.Info("config file changed", "path", path)
	w.onChange()
}

// isStable reports whether the file size holds still for the stability
// window, so a half-written file is not loaded.
func (w *Watcher) isStable() bool {
	w.mu.RLock()
	path := w.path
	stability := w.stability
	w.mu.RUnlock()

	info1, err := os.Stat(path)
	if err != nil {
		return false
	}

	time.Sleep(stability)

	info2, err := os.Stat(path)
	if err != nil {
		return false
	}

	return info1.Size() == info2.Size()
}
