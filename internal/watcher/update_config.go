package watcher

import (
	"github.com/raoulx24/rsync-backup/internal/config"
)

// UpdateConfig applies reloaded settings. A new mode takes effect on the
// next Start.
func (w *Watcher) UpdateConfig(cfg config.ReloadConfig) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.interval = cfg.PollInterval
	w.mode = cfg.Mode
}
