package watcher

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// StartFsNotify watches the file's directory, since editors and config
// management replace the file rather than write it in place.
func (w *Watcher) StartFsNotify(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	w.mu.RLock()
	path := w.path
	debounce := w.debounce
	w.mu.RUnlock()

	if err := fw.Add(filepath.Dir(path)); err != nil {
		return err
	}
	name := filepath.Base(path)

	db := newDebouncer(debounce, func() {
		defer func() {
			if r := recover(); r != nil {
				w.log.Error("detect panic", "panic", r)
			}
		}()
		w.detect()
	})
	defer db.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				w.log.Error("events channel closed")
				return nil
			}
			if filepath.Base(ev.Name) != name {
				continue
			}
			w.log.Debug("config file event", "name", ev.Name, "op", ev.Op.String())
			db.Trigger()

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.Error("fsnotify error", "error", err)
		}
	}
}
