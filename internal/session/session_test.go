package session

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raoulx24/rsync-backup/internal/checksum"
	"github.com/raoulx24/rsync-backup/internal/config"
	"github.com/raoulx24/rsync-backup/internal/notify"
	"github.com/raoulx24/rsync-backup/internal/runlog"
	"github.com/raoulx24/rsync-backup/internal/snapshot"
	"github.com/raoulx24/rsync-backup/internal/transfer"
)

var day0 = time.Date(2024, 3, 15, 12, 0, 0, 0, time.Local)

func md5hex(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

// fakeRunner plays rsync: it writes files into the destination and
// itemizes the ones listed in changed.
type fakeRunner struct {
	files   map[string]string
	changed []string
	err     error
	argv    []string
}

func (f *fakeRunner) Run(_ context.Context, argv []string, onLine func(string)) error {
	f.argv = argv
	dest := argv[len(argv)-1]
	if !slices.Contains(argv, "-n") {
		for rel, content := range f.files {
			path := filepath.Join(dest, filepath.FromSlash(rel))
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return err
			}
			if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
				return err
			}
		}
	}
	for _, rel := range f.changed {
		onLine(">f+++++++++ " + md5hex(f.files[rel]) + " " + rel)
	}
	return f.err
}

type fakeSender struct {
	sent []notify.Message
}

func (f *fakeSender) Send(_ context.Context, msg notify.Message) error {
	f.sent = append(f.sent, msg)
	return nil
}

type env struct {
	cfg    *config.Config
	sender *fakeSender
}

func newEnv(t *testing.T) *env {
	t.Helper()
	dir := t.TempDir()

	cfg := config.Default()
	cfg.General.BackupRoot = filepath.Join(dir, "backup")
	cfg.General.Label = "www"
	cfg.Rsync.SourceDir = "/srv/www/"
	cfg.RulesFile = filepath.Join(dir, "www.rules")
	cfg.Logging.Format = "json"
	cfg.Reporting.ToAddrs = []string{"ops@example.com"}
	cfg.Reporting.FromAddr = "backup@example.com"
	require.NoError(t, os.WriteFile(cfg.RulesFile, []byte("- *.tmp\n"), 0o644))
	require.NoError(t, cfg.Validate())

	return &env{cfg: cfg, sender: &fakeSender{}}
}

func (e *env) open(t *testing.T, at time.Time, runner transfer.Runner, dryRun bool) *Session {
	t.Helper()
	return e.openClock(t, func() time.Time { return at }, runner, dryRun)
}

func (e *env) openClock(t *testing.T, now func() time.Time, runner transfer.Runner, dryRun bool) *Session {
	t.Helper()
	s, err := New(e.cfg, Options{
		DryRun:  dryRun,
		Runner:  runner,
		Sender:  e.sender,
		Console: io.Discard,
		Now:     now,
	})
	require.NoError(t, err)
	return s
}

// backup runs a complete invocation and returns the closed session.
func (e *env) backup(t *testing.T, at time.Time, runner transfer.Runner) (*Session, error) {
	t.Helper()
	s := e.open(t, at, runner, false)
	err := s.Backup(context.Background())
	require.NoError(t, s.Close(context.Background()))
	return s, err
}

func (e *env) backupsDir() string {
	return filepath.Join(e.cfg.JobRoot(), snapshot.BackupsDir)
}

func (e *env) names(t *testing.T) []string {
	t.Helper()
	entries, err := os.ReadDir(e.backupsDir())
	require.NoError(t, err)
	var out []string
	for _, en := range entries {
		out = append(out, en.Name())
	}
	return out
}

func (e *env) checksums(t *testing.T, name string) map[string]string {
	t.Helper()
	rec, format, err := checksum.Load(filepath.Join(e.backupsDir(), name))
	require.NoError(t, err)
	assert.Equal(t, checksum.V2, format)
	return rec.Map()
}

func TestFirstBackupCreatesIntervalSnapshots(t *testing.T) {
	e := newEnv(t)
	e.cfg.Metrics.TextfileDir = t.TempDir()
	runner := &fakeRunner{
		files:   map[string]string{"a.txt": "a", "dir/b.txt": "b"},
		changed: []string{"a.txt", "dir/b.txt"},
	}

	s, err := e.backup(t, day0, runner)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, s.Status())
	assert.True(t, s.OK())

	assert.ElementsMatch(t, []string{
		"daily_2024-03-15-120000",
		"monthly_2024-03-15-120000",
		"yearly_2024-03-15-120000",
	}, e.names(t))

	want := map[string]string{"a.txt": md5hex("a"), "dir/b.txt": md5hex("b")}
	assert.Equal(t, want, e.checksums(t, "daily_2024-03-15-120000"))
	assert.Equal(t, want, e.checksums(t, "yearly_2024-03-15-120000"))

	status, err := runlog.EndStatus(s.LogPath())
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, status)

	require.Len(t, e.sender.sent, 1)
	assert.Equal(t, "Backup completed successfully! [www: 2024-03-15-120000]", e.sender.sent[0].Subject)
	assert.True(t, strings.HasPrefix(e.sender.sent[0].Body, "2024-03-15 12:00:00: "+StatusCompleted), e.sender.sent[0].Body)

	prom, err := os.ReadFile(filepath.Join(e.cfg.Metrics.TextfileDir, "rsync_backup_www.prom"))
	require.NoError(t, err)
	assert.Contains(t, string(prom), `rsync_backup_last_run_success{job="www"} 1`)
}

func TestSecondBackupSameDayIsCustomAndInherits(t *testing.T) {
	e := newEnv(t)
	_, err := e.backup(t, day0, &fakeRunner{
		files:   map[string]string{"a.txt": "a", "dir/b.txt": "b"},
		changed: []string{"a.txt", "dir/b.txt"},
	})
	require.NoError(t, err)

	runner := &fakeRunner{
		files:   map[string]string{"a.txt": "a", "dir/b.txt": "b2"},
		changed: []string{"dir/b.txt"},
	}
	s, err := e.backup(t, day0.Add(time.Hour), runner)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, s.Status())

	assert.Contains(t, runner.argv, "--link-dest="+filepath.Join(e.backupsDir(), "yearly_2024-03-15-120000", snapshot.ContentDir))
	assert.ElementsMatch(t, []string{
		"daily_2024-03-15-120000",
		"monthly_2024-03-15-120000",
		"yearly_2024-03-15-120000",
		"custom_2024-03-15-130000",
	}, e.names(t))
	assert.Equal(t, map[string]string{"a.txt": md5hex("a"), "dir/b.txt": md5hex("b2")}, e.checksums(t, "custom_2024-03-15-130000"))
}

func TestBackupFailureKeepsIncompleteAndReports(t *testing.T) {
	e := newEnv(t)
	runner := &fakeRunner{files: map[string]string{"a.txt": "a"}, err: &transfer.ExitError{Code: 23}}

	s, err := e.backup(t, day0, runner)
	var exitErr *transfer.ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, StatusFailed, s.Status())
	assert.False(t, s.OK())

	assert.Equal(t, []string{"incomplete_2024-03-15-120000"}, e.names(t))
	_, _, err = checksum.Load(filepath.Join(e.backupsDir(), "incomplete_2024-03-15-120000"))
	assert.ErrorIs(t, err, checksum.ErrNoRecord)

	require.Len(t, e.sender.sent, 1)
	assert.Equal(t, "Backup failed! [www: 2024-03-15-120000]", e.sender.sent[0].Subject)
	assert.NoFileExists(t, filepath.Join(e.cfg.JobRoot(), CacheDir, notify.LastReportFile))

	status, err := runlog.EndStatus(s.LogPath())
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, status)
}

func TestBackupResumesIncomplete(t *testing.T) {
	e := newEnv(t)
	_, err := e.backup(t, day0, &fakeRunner{files: map[string]string{"a.txt": "a"}, err: &transfer.ExitError{Code: 12}})
	require.Error(t, err)

	runner := &fakeRunner{files: map[string]string{"b.txt": "b"}, changed: []string{"b.txt"}}
	s, err := e.backup(t, day0.Add(time.Hour), runner)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, s.Status())
	assert.Contains(t, runner.argv, "--delete-excluded")

	assert.ElementsMatch(t, []string{
		"daily_2024-03-15-130000",
		"monthly_2024-03-15-130000",
		"yearly_2024-03-15-130000",
	}, e.names(t))
	assert.Equal(t, map[string]string{"a.txt": md5hex("a"), "b.txt": md5hex("b")}, e.checksums(t, "daily_2024-03-15-130000"))
}

func TestDryRunLeavesStorageUntouched(t *testing.T) {
	e := newEnv(t)
	runner := &fakeRunner{files: map[string]string{"a.txt": "a"}}

	s := e.open(t, day0, runner, true)
	require.NoError(t, s.Backup(context.Background()))
	require.NoError(t, s.Close(context.Background()))

	assert.Equal(t, StatusDryRun, s.Status())
	assert.Contains(t, runner.argv, "-n")
	assert.Empty(t, e.names(t))
}

func TestRetentionRunsAfterBackup(t *testing.T) {
	e := newEnv(t)
	e.cfg.Retention.Daily = 2
	for _, name := range []string{
		"daily_2024-03-10-120000",
		"daily_2024-03-12-120000",
		"daily_2024-03-14-120000",
		"custom_2024-03-14-180000",
	} {
		require.NoError(t, os.MkdirAll(filepath.Join(e.backupsDir(), name, snapshot.ContentDir), 0o755))
	}

	_, err := e.backup(t, day0, &fakeRunner{files: map[string]string{"a.txt": "a"}})
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{
		"daily_2024-03-14-120000",
		"daily_2024-03-15-120000",
		"monthly_2024-03-15-120000",
		"yearly_2024-03-15-120000",
	}, e.names(t))
	assert.Equal(t, map[string]string{"a.txt": md5hex("a")}, e.checksums(t, "daily_2024-03-15-120000"))
}

func TestBackupAcrossMidnightKeepsItsSnapshot(t *testing.T) {
	e := newEnv(t)
	require.NoError(t, os.MkdirAll(filepath.Join(e.backupsDir(), "daily_2024-03-15-030000", snapshot.ContentDir), 0o755))

	start := time.Date(2024, 3, 15, 23, 59, 30, 0, time.Local)
	calls := 0
	clock := func() time.Time {
		calls++
		if calls == 1 {
			return start
		}
		return start.Add(2 * time.Minute)
	}

	s := e.openClock(t, clock, &fakeRunner{files: map[string]string{"a.txt": "a"}, changed: []string{"a.txt"}}, false)
	require.NoError(t, s.Backup(context.Background()))
	require.NoError(t, s.Close(context.Background()))

	assert.Equal(t, StatusCompleted, s.Status())
	assert.ElementsMatch(t, []string{
		"daily_2024-03-15-030000",
		"custom_2024-03-15-235930",
		"monthly_2024-03-15-235930",
		"yearly_2024-03-15-235930",
	}, e.names(t))
}

func TestVerifyNamedSnapshotLeavesMarker(t *testing.T) {
	e := newEnv(t)
	_, err := e.backup(t, day0, &fakeRunner{files: map[string]string{"a.txt": "a"}, changed: []string{"a.txt"}})
	require.NoError(t, err)
	marker := filepath.Join(e.cfg.JobRoot(), CacheDir, LastVerificationFile)

	s := e.open(t, day0.Add(time.Hour), nil, false)
	require.NoError(t, s.Verify(context.Background(), Latest))
	require.NoError(t, s.Close(context.Background()))
	before, err := os.ReadFile(marker)
	require.NoError(t, err)

	s = e.open(t, day0.AddDate(0, 0, 5), nil, false)
	require.NoError(t, s.Verify(context.Background(), "daily_2024-03-15-120000"))
	assert.Equal(t, StatusVerified, s.Status())
	require.NoError(t, s.Close(context.Background()))

	after, err := os.ReadFile(marker)
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))
}

func TestVerifyDetectsCorruption(t *testing.T) {
	e := newEnv(t)
	_, err := e.backup(t, day0, &fakeRunner{
		files:   map[string]string{"a.txt": "a", "b.txt": "b"},
		changed: []string{"a.txt", "b.txt"},
	})
	require.NoError(t, err)

	s := e.open(t, day0.Add(time.Hour), nil, false)
	require.NoError(t, s.Verify(context.Background(), Latest))
	assert.Equal(t, StatusVerified, s.Status())
	assert.True(t, s.OK())
	require.NoError(t, s.Close(context.Background()))
	assert.FileExists(t, filepath.Join(e.cfg.JobRoot(), CacheDir, LastVerificationFile))

	content := filepath.Join(e.backupsDir(), "daily_2024-03-15-120000", snapshot.ContentDir, "a.txt")
	require.NoError(t, os.WriteFile(content, []byte("rot"), 0o644))

	s = e.open(t, day0.Add(2*time.Hour), nil, false)
	require.NoError(t, s.Verify(context.Background(), "daily_2024-03-15-120000"))
	assert.Equal(t, StatusVerifyFailed, s.Status())
	assert.False(t, s.OK())
	require.NoError(t, s.Close(context.Background()))
}

func TestVerifyUnknownSnapshot(t *testing.T) {
	e := newEnv(t)
	s := e.open(t, day0, nil, false)
	defer s.Close(context.Background())

	assert.ErrorIs(t, s.Verify(context.Background(), Latest), ErrNoSnapshot)
	assert.ErrorIs(t, s.Verify(context.Background(), "daily_2024-01-01-000000"), ErrNoSnapshot)
	assert.Error(t, s.Verify(context.Background(), "../elsewhere"))
	assert.Equal(t, StatusVerifyFailed, s.Status())
	assert.False(t, s.OK())
}

func TestScheduleVerification(t *testing.T) {
	e := newEnv(t)
	_, err := e.backup(t, day0, &fakeRunner{files: map[string]string{"a.txt": "a"}, changed: []string{"a.txt"}})
	require.NoError(t, err)
	marker := filepath.Join(e.cfg.JobRoot(), CacheDir, LastVerificationFile)

	s := e.open(t, day0, nil, false)
	require.NoError(t, s.ScheduleVerification(context.Background()))
	assert.FileExists(t, marker, "first call starts the clock")
	require.NoError(t, s.Close(context.Background()))

	s = e.open(t, day0.AddDate(0, 0, 10), nil, false)
	s.setStatus(StatusCompleted, false)
	require.NoError(t, s.ScheduleVerification(context.Background()))
	assert.Equal(t, StatusCompleted, s.Status(), "within the interval")
	require.NoError(t, s.Close(context.Background()))

	s = e.open(t, day0.AddDate(0, 0, 31).Add(time.Hour), nil, false)
	require.NoError(t, s.ScheduleVerification(context.Background()))
	assert.Equal(t, StatusVerified, s.Status())
	require.NoError(t, s.Close(context.Background()))

	e.cfg.General.VerificationInterval = 0
	s = e.open(t, day0.AddDate(0, 0, 90), nil, false)
	s.setStatus(StatusCompleted, false)
	require.NoError(t, s.ScheduleVerification(context.Background()))
	assert.Equal(t, StatusCompleted, s.Status())
	require.NoError(t, s.Close(context.Background()))
}
