// Package job runs one backup or verification of a configured job from
// configuration loading to the final report.
package job

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/raoulx24/rsync-backup/internal/config"
	"github.com/raoulx24/rsync-backup/internal/fs"
	"github.com/raoulx24/rsync-backup/internal/logging"
	"github.com/raoulx24/rsync-backup/internal/notify"
	"github.com/raoulx24/rsync-backup/internal/pidlock"
	"github.com/raoulx24/rsync-backup/internal/session"
	"github.com/raoulx24/rsync-backup/internal/transfer"
)

type Action int

const (
	Backup Action = iota
	Verify
)

func (a Action) String() string {
	switch a {
	case Backup:
		return "backup"
	case Verify:
		return "verify"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

// Request names what to run.
type Request struct {
	ConfigPath string
	Name       string
	Action     Action
	// Snapshot is the snapshot to verify; empty means the latest.
	Snapshot string
	DryRun   bool
}

// Result is the outcome of a run.
type Result struct {
	Status  string
	OK      bool
	Skipped bool // another run of the job holds the lock
	RunID   string
	LogPath string
}

// Options are handed to the session; zero values select the real
// implementations.
type Options struct {
	Runner  transfer.Runner
	Sender  notify.Sender
	Console io.Writer
	Now     func() time.Time
}

// Run executes req. Errors before the session exists (configuration,
// lock) are returned without a report; afterwards the session reports
// on every exit path.
func Run(ctx context.Context, req Request, log logging.Logger, opts Options) (Result, error) {
	cfg, err := config.LoadJob(req.ConfigPath, req.Name)
	if err != nil {
		return Result{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Result{}, err
	}

	mask, _ := cfg.UmaskValue()
	fs.SetUmask(mask)

	lock, err := pidlock.Acquire(cfg.PidFile())
	if err != nil {
		if errors.Is(err, pidlock.ErrLocked) {
			log.Info("job is already running, skipping", "job", req.Name, "pid_file", cfg.PidFile())
			return Result{OK: true, Skipped: true}, nil
		}
		return Result{}, err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			log.Warn("releasing pid file failed", "path", lock.Path(), "error", err)
		}
	}()

	s, err := session.New(cfg, session.Options{
		DryRun:  req.DryRun,
		Runner:  opts.Runner,
		Sender:  opts.Sender,
		Console: opts.Console,
		Now:     opts.Now,
	})
	if err != nil {
		return Result{}, err
	}

	var runErr error
	switch req.Action {
	case Backup:
		runErr = s.Backup(ctx)
		if runErr == nil {
			runErr = s.ScheduleVerification(ctx)
		}
	case Verify:
		runErr = s.Verify(ctx, req.Snapshot)
	default:
		runErr = fmt.Errorf("unknown action %v", req.Action)
	}

	// the report goes out even when ctx was cancelled
	closeErr := s.Close(context.WithoutCancel(ctx))

	res := Result{
		Status:  s.Status(),
		OK:      runErr == nil && s.OK(),
		RunID:   s.RunID(),
		LogPath: s.LogPath(),
	}
	return res, errors.Join(runErr, closeErr)
}
