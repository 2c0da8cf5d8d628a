// Package pidlock keeps two runs of the same job from overlapping.
package pidlock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
)

var ErrLocked = errors.New("job is already running")

// held tracks the pid files owned by this process, so that two jobs of
// one daemon sharing a label exclude each other as well.
var (
	heldMu sync.Mutex
	held   = map[string]bool{}
)

// Lock is a held pid file.
type Lock struct {
	path string
}

// Acquire creates path holding the current pid. A pid file whose process
// is gone is taken over; a live holder yields ErrLocked.
func Acquire(path string) (*Lock, error) {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}

	heldMu.Lock()
	defer heldMu.Unlock()
	if held[path] {
		return nil, fmt.Errorf("%w: %s is held by this process", ErrLocked, path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating pid dir: %w", err)
	}

	for attempt := 0; attempt < 2; attempt++ {
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			_, werr := fmt.Fprintf(f, "%d\n", os.Getpid())
			cerr := f.Close()
			if werr = errors.Join(werr, cerr); werr != nil {
				_ = os.Remove(path)
				return nil, fmt.Errorf("writing pid file: %w", werr)
			}
			held[path] = true
			return &Lock{path: path}, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("creating pid file: %w", err)
		}

		// our own pid here is a leftover of an earlier process that had it
		pid, err := readPID(path)
		if err == nil && pid != os.Getpid() && alive(pid) {
			return nil, fmt.Errorf("%w: pid %d holds %s", ErrLocked, pid, path)
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("removing stale pid file: %w", err)
		}
	}
	return nil, fmt.Errorf("%w: lost the race for %s", ErrLocked, path)
}

func (l *Lock) Path() string { return l.path }

// Release removes the pid file.
func (l *Lock) Release() error {
	heldMu.Lock()
	defer heldMu.Unlock()
	if err := os.Remove(l.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	delete(held, l.path)
	return nil
}

func readPID(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}
