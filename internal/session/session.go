// Package session runs one invocation of a backup job: a backup or a
// verification, followed by the status report on every exit path.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/raoulx24/rsync-backup/internal/config"
	"github.com/raoulx24/rsync-backup/internal/fs"
	"github.com/raoulx24/rsync-backup/internal/integrity"
	"github.com/raoulx24/rsync-backup/internal/logging"
	"github.com/raoulx24/rsync-backup/internal/metrics"
	"github.com/raoulx24/rsync-backup/internal/notify"
	"github.com/raoulx24/rsync-backup/internal/retention"
	"github.com/raoulx24/rsync-backup/internal/runlog"
	"github.com/raoulx24/rsync-backup/internal/snapshot"
	"github.com/raoulx24/rsync-backup/internal/transfer"
)

// Final statuses, as written to the run log and the report subject.
const (
	StatusFailed       = "Backup failed!"
	StatusAborted      = "Backup aborted!"
	StatusCompleted    = "Backup completed successfully!"
	StatusDryRun       = "Dry run completed successfully!"
	StatusVerifyFailed = "Backup verification failed!"
	StatusVerified     = "Backup verification completed successfully!"
)

// Job root subdirectories next to BackupsDir.
const (
	LogsDir  = "logs"
	CacheDir = "cache"
)

// Options carries the collaborators of a session. Zero values select
// the real implementations.
type Options struct {
	DryRun  bool
	Runner  transfer.Runner
	FS      fs.FS
	Sender  notify.Sender
	Console io.Writer
	Now     func() time.Time
}

type Session struct {
	cfg    *config.Config
	dryRun bool
	now    func() time.Time

	fs        fs.FS
	store     *snapshot.Store
	transfer  *transfer.Orchestrator
	retention *retention.Engine
	verifier  *integrity.Verifier
	reporter  *notify.Reporter
	metrics   *metrics.Run

	log     logging.Logger
	logFile *os.File
	logPath string

	runID    string
	stamp    string
	started  time.Time
	status   string
	failed   bool
	logsDir  string
	cacheDir string
}

// New prepares the job directories and the run log. The configuration
// must have been validated.
func New(cfg *config.Config, opts Options) (*Session, error) {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	filesystem := opts.FS
	if filesystem == nil {
		filesystem = fs.New()
	}
	console := opts.Console
	if console == nil {
		console = os.Stderr
	}

	root := cfg.JobRoot()
	s := &Session{
		cfg:      cfg,
		dryRun:   opts.DryRun,
		now:      now,
		fs:       filesystem,
		runID:    uuid.NewString(),
		started:  now(),
		status:   StatusFailed,
		failed:   true,
		logsDir:  filepath.Join(root, LogsDir),
		cacheDir: filepath.Join(root, CacheDir),
	}
	s.stamp = snapshot.Stamp(s.started)

	for _, dir := range []string{root, filepath.Join(root, snapshot.BackupsDir), s.logsDir, s.cacheDir} {
		if err := filesystem.MkdirAll(dir); err != nil {
			return nil, fmt.Errorf("creating %s: %w", dir, err)
		}
	}

	f, path, err := runlog.Open(s.logsDir, s.stamp)
	if err != nil {
		return nil, err
	}
	s.logFile, s.logPath = f, path
	s.log = logging.NewTo(cfg.Logging, console, f).With("job", cfg.General.Label, "run_id", s.runID)

	sender := opts.Sender
	if sender == nil {
		sender = notify.SMTPSender{Server: cfg.Reporting.SMTPServer}
	}
	var to []string
	if cfg.MailEnabled() {
		to = cfg.Reporting.ToAddrs
	}

	s.store = snapshot.NewStore(root, filesystem, s.log)
	s.transfer = transfer.NewOrchestrator(cfg.TransferOptions(), opts.Runner, filesystem, s.log)
	s.retention = retention.New(filesystem, s.log)
	s.verifier = integrity.New(s.log)
	s.metrics = metrics.NewRun(cfg.General.Label)
	s.reporter = notify.NewReporter(notify.ReporterConfig{
		Label:      cfg.General.Label,
		From:       cfg.Reporting.FromAddr,
		To:         to,
		Interval:   cfg.Reporting.ReportInterval,
		LinkToLogs: cfg.Reporting.LinkToLogs,
		BaseURL:    cfg.Reporting.BaseURL,
		BackupRoot: cfg.General.BackupRoot,
		LogDir:     s.logsDir,
		CacheDir:   s.cacheDir,
		Now:        now,
	}, sender, s.log)

	return s, nil
}

func (s *Session) Status() string  { return s.status }
func (s *Session) RunID() string   { return s.runID }
func (s *Session) LogPath() string { return s.logPath }

// OK reports whether the run ended without error and without a failed
// verification.
func (s *Session) OK() bool {
	return !s.failed && s.status != StatusVerifyFailed
}

func (s *Session) setStatus(status string, failed bool) {
	s.status, s.failed = status, failed
}

// fail records err as the cause of a failed run.
func (s *Session) fail(err error) {
	if errors.Is(err, context.Canceled) {
		s.status = StatusAborted
	}
	s.failed = true
	s.log.Error(s.status, "error", err)
}

// Close reports the run, writes the END STATUS line and the metrics
// textfile, and closes the run log. It must be called on every exit path.
func (s *Session) Close(ctx context.Context) error {
	var errs []error

	err := s.reporter.Report(ctx, notify.Run{
		Stamp:   s.stamp,
		Status:  s.status,
		Failed:  s.failed,
		LogPath: s.logPath,
	})
	if err != nil {
		s.log.Error("status report failed", "error", err)
		errs = append(errs, err)
	}

	s.log.Info(runlog.EndMessage, "status", s.status)

	if dir := s.cfg.Metrics.TextfileDir; dir != "" {
		s.metrics.Finish(s.OK(), s.started, s.now())
		if err := s.metrics.WriteTextfile(dir, s.cfg.General.Label); err != nil {
			s.log.Error("metrics export failed", "error", err)
			errs = append(errs, err)
		}
	}

	if err := s.logFile.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
