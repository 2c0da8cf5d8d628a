// Package watcher reports changes of the configuration file so the daemon
// can reload its schedule.
package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/raoulx24/rsync-backup/internal/config"
	"github.com/raoulx24/rsync-backup/internal/fsprobe"
	"github.com/raoulx24/rsync-backup/internal/logging"
)

const (
	defaultDebounce  = 500 * time.Millisecond
	defaultStability = 100 * time.Millisecond
)

// Watcher observes one file and calls onChange after it was rewritten.
type Watcher struct {
	mu sync.RWMutex

	path      string
	interval  time.Duration
	mode      string
	debounce  time.Duration
	stability time.Duration

	log logging.Logger

	lastModTime time.Time
	lastSize    int64

	onChange func()
}

// New creates a watcher for path. The file's current state is the
// baseline, so starting does not fire onChange.
func New(path string, cfg config.ReloadConfig, log logging.Logger, onChange func()) *Watcher {
	w := &Watcher{
		path:      path,
		interval:  cfg.PollInterval,
		mode:      cfg.Mode,
		debounce:  defaultDebounce,
		stability: defaultStability,
		log:       log,
		onChange:  onChange,
	}
	if info, err := os.Stat(path); err == nil {
		w.lastModTime, w.lastSize = info.ModTime(), info.Size()
	}
	return w
}

// Start chooses the watching strategy from the configured mode and blocks
// until ctx is done.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.RLock()
	mode := w.mode
	dir := filepath.Dir(w.path)
	w.mu.RUnlock()

	switch mode {
	case "fsnotify":
		return w.StartFsNotify(ctx)

	case "poll":
		w.StartPolling(ctx)
		return nil

	case "auto", "":
		res := fsprobe.Probe(dir)
		if res.FsnotifySupported {
			return w.StartFsNotify(ctx)
		}
		w.log.Warn("fsnotify disabled, polling", "reason", res.Reason)
		w.StartPolling(ctx)
		return nil

	default:
		return fmt.Errorf("unknown watch mode %q", mode)
	}
}
