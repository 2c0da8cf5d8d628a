// Package fsprobe checks whether fsnotify delivers events for a directory.
// Network and FUSE filesystems often accept a watch and then stay silent,
// so the probe writes and renames a real file and waits for the event.
package fsprobe

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Wait is how long the probe waits for an event.
var Wait = 200 * time.Millisecond

// Result reports whether fsnotify is usable and why not.
type Result struct {
	FsnotifySupported bool
	Reason            string
}

func unsupported(format string, args ...any) Result {
	return Result{Reason: fmt.Sprintf(format, args...)}
}

// Probe tests whether fsnotify reports a rename in dir.
func Probe(dir string) Result {
	st, err := os.Stat(dir)
	if err != nil {
		return unsupported("stat failed: %v", err)
	}
	if !st.IsDir() {
		return unsupported("%s is not a directory", dir)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return unsupported("fsnotify unavailable: %v", err)
	}
	defer w.Close()

	if err := w.Add(dir); err != nil {
		return unsupported("cannot watch directory: %v", err)
	}

	f, err := os.CreateTemp(dir, ".rsync-backup-probe-*")
	if err != nil {
		return unsupported("cannot create probe file: %v", err)
	}
	tmp := f.Name()
	f.Close()

	final := tmp + ".done"
	if err := os.Rename(tmp, final); err != nil {
		os.Remove(tmp)
		return unsupported("rename failed: %v", err)
	}
	defer os.Remove(final)

	timeout := time.After(Wait)
	for {
		select {
		case ev := <-w.Events:
			if filepath.Dir(ev.Name) == filepath.Clean(dir) && ev.Op&(fsnotify.Rename|fsnotify.Create|fsnotify.Write) != 0 {
				return Result{FsnotifySupported: true}
			}
		case err := <-w.Errors:
			return unsupported("fsnotify error: %v", err)
		case <-timeout:
			return unsupported("no events received within %s", Wait)
		}
	}
}
