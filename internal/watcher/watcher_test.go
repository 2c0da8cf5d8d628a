package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raoulx24/rsync-backup/internal/config"
	"github.com/raoulx24/rsync-backup/internal/logging"
)

func newTestWatcher(t *testing.T, mode string) (*Watcher, string, *atomic.Int32) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rsync-backup.yaml")
	require.NoError(t, os.WriteFile(path, []byte("general: {}\n"), 0o644))

	var calls atomic.Int32
	w := New(path, config.ReloadConfig{Mode: mode, PollInterval: 20 * time.Millisecond}, logging.Nop(), func() { calls.Add(1) })
	w.debounce = 20 * time.Millisecond
	w.stability = 5 * time.Millisecond
	return w, path, &calls
}

func TestDetect(t *testing.T) {
	w, path, calls := newTestWatcher(t, "poll")

	w.detect()
	assert.Zero(t, calls.Load(), "unchanged file")

	require.NoError(t, os.WriteFile(path, []byte("general:\n  label: www\n"), 0o644))
	w.detect()
	assert.Equal(t, int32(1), calls.Load())

	w.detect()
	assert.Equal(t, int32(1), calls.Load(), "change reported once")
}

func TestStartModes(t *testing.T) {
	for _, mode := range []string{"poll", "fsnotify"} {
		t.Run(mode, func(t *testing.T) {
			w, path, calls := newTestWatcher(t, mode)
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			errCh := make(chan error, 1)
			go func() { errCh <- w.Start(ctx) }()
			time.Sleep(50 * time.Millisecond)

			require.NoError(t, os.WriteFile(path, []byte("general:\n  label: db\n"), 0o644))
			assert.Eventually(t, func() bool { return calls.Load() == 1 }, 2*time.Second, 10*time.Millisecond)

			cancel()
			assert.NoError(t, <-errCh)
		})
	}
}

func TestUnknownMode(t *testing.T) {
	w, _, _ := newTestWatcher(t, "inotify")
	assert.Error(t, w.Start(context.Background()))
}

func TestDebouncerCoalescesBursts(t *testing.T) {
	var calls atomic.Int32
	db := newDebouncer(30*time.Millisecond, func() { calls.Add(1) })
	for i := 0; i < 5; i++ {
		db.Trigger()
	}
	assert.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	db.Trigger()
	db.Stop()
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
}
