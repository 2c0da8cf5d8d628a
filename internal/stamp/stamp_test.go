package stamp

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "last_verification")

	_, ok, err := Read(path)
	require.NoError(t, err)
	assert.False(t, ok)

	now := time.Date(2024, 5, 1, 13, 14, 15, 0, time.Local)
	require.NoError(t, Write(path, now))

	got, ok, err := Read(path)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, now.Equal(got))
}

func TestReadDeletesUnparsable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "last_report")
	require.NoError(t, os.WriteFile(path, []byte("yesterday\n"), 0o644))

	_, ok, err := Read(path)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoFileExists(t, path)
}

func TestDaysSince(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 0, DaysSince(base, base.Add(23*time.Hour)))
	assert.Equal(t, 31, DaysSince(base, base.AddDate(0, 1, 0)))
}
