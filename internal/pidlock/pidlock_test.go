package pidlock

import (
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireRelease(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run", "backup-www.pid")

	l, err := Acquire(path)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(os.Getpid())+"\n", string(data))

	assert.Equal(t, path, l.Path())
	require.NoError(t, l.Release())
	assert.NoFileExists(t, path)
	assert.NoError(t, l.Release())
}

func TestAcquireTwiceInOneProcess(t *testing.T) {
	path := filepath.Join(t.TempDir(), "backup-www.pid")

	l, err := Acquire(path)
	require.NoError(t, err)

	_, err = Acquire(path)
	assert.ErrorIs(t, err, ErrLocked)
	assert.FileExists(t, path)

	require.NoError(t, l.Release())
	again, err := Acquire(path)
	require.NoError(t, err)
	require.NoError(t, again.Release())
}

func TestAcquireTakesOverOwnPIDLeftover(t *testing.T) {
	path := filepath.Join(t.TempDir(), "backup-www.pid")
	require.NoError(t, os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())+"\n"), 0o644))

	l, err := Acquire(path)
	require.NoError(t, err)
	require.NoError(t, l.Release())
}

func TestAcquireTakesOverStaleFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "backup-www.pid")
	require.NoError(t, os.WriteFile(path, []byte("not a pid\n"), 0o644))

	l, err := Acquire(path)
	require.NoError(t, err)
	defer l.Release()
}

func TestAcquireLockedByLiveProcess(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("liveness check needs signals")
	}
	if os.Getppid() <= 1 {
		t.Skip("no live parent process")
	}
	path := filepath.Join(t.TempDir(), "backup-www.pid")
	require.NoError(t, os.WriteFile(path, []byte(strconv.Itoa(os.Getppid())), 0o644))

	_, err := Acquire(path)
	assert.ErrorIs(t, err, ErrLocked)
	assert.FileExists(t, path)
}
