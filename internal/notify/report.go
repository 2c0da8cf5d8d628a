// Package notify mails the outcome of backup runs.
package notify

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/raoulx24/rsync-backup/internal/logging"
	"github.com/raoulx24/rsync-backup/internal/runlog"
	"github.com/raoulx24/rsync-backup/internal/stamp"
)

// LastReportFile is the marker, in the cache dir, of the last mailed report.
const LastReportFile = "last_report"

type ReporterConfig struct {
	Label      string
	From       string
	To         []string
	Interval   int // days between digests
	LinkToLogs bool
	BaseURL    string
	// BackupRoot is what log links are made relative to.
	BackupRoot string
	LogDir     string
	CacheDir   string
	// Now is the clock of the run. Nil means time.Now.
	Now func() time.Time
}

// Run is the run being reported on.
type Run struct {
	Stamp   string
	Status  string
	Failed  bool
	LogPath string
}

// Reporter decides whether a run is mailed, alone or as a digest.
type Reporter struct {
	cfg    ReporterConfig
	sender Sender
	log    logging.Logger
	now    func() time.Time
}

func NewReporter(cfg ReporterConfig, sender Sender, log logging.Logger) *Reporter {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Reporter{cfg: cfg, sender: sender, log: log, now: now}
}

type logStatus struct {
	path   string
	status string
}

// Report mails a failed run immediately and the first run ever. Otherwise
// a digest of every run since the last report goes out once Interval
// days have passed.
func (r *Reporter) Report(ctx context.Context, run Run) error {
	if len(r.cfg.To) == 0 {
		r.log.Info(`Mail reporting is disabled. Set "toAddrs" in the configuration file to enable`)
		return nil
	}

	marker := filepath.Join(r.cfg.CacheDir, LastReportFile)
	last, ok, err := stamp.Read(marker)
	if err != nil {
		return err
	}
	now := r.now()
	current := []logStatus{{path: run.LogPath, status: run.Status}}

	switch {
	case run.Failed:
		return r.send(ctx, run, run.Status, current)
	case !ok:
		if err := r.send(ctx, run, run.Status, current); err != nil {
			return err
		}
		return stamp.Write(marker, now)
	case stamp.DaysSince(last, now) > r.cfg.Interval:
		logs, err := r.logsSince(run, last)
		if err != nil {
			return err
		}
		if err := r.send(ctx, run, fmt.Sprintf("%d day backup report", r.cfg.Interval), logs); err != nil {
			return err
		}
		return stamp.Write(marker, now)
	}
	return nil
}

// logsSince returns the run logs newer than last, newest first. The
// current run has not written its end line yet, so its status is taken
// from run.
func (r *Reporter) logsSince(run Run, last time.Time) ([]logStatus, error) {
	files, err := runlog.List(r.cfg.LogDir)
	if err != nil {
		return nil, err
	}

	var out []logStatus
	for _, f := range files {
		if f.Path == run.LogPath {
			out = append(out, logStatus{path: f.Path, status: run.Status})
			continue
		}
		if !f.CreatedAt.After(last) {
			break
		}
		status, err := runlog.EndStatus(f.Path)
		if err != nil {
			r.log.Warn("cannot read run log", "path", f.Path, "error", err)
			status = runlog.UnknownStatus
		}
		out = append(out, logStatus{path: f.Path, status: status})
	}
	return out, nil
}

func (r *Reporter) send(ctx context.Context, run Run, status string, logs []logStatus) error {
	msg := Message{
		From:    r.cfg.From,
		To:      r.cfg.To,
		Subject: fmt.Sprintf("%s [%s: %s]", status, r.cfg.Label, run.Stamp),
		Body:    r.body(run, status, logs),
	}
	if err := r.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("sending report: %w", err)
	}
	r.log.Info("report sent", "subject", msg.Subject, "to", strings.Join(r.cfg.To, ","))
	return nil
}

func (r *Reporter) body(run Run, status string, logs []logStatus) string {
	var summary strings.Builder
	for _, l := range logs {
		name := strings.TrimSuffix(filepath.Base(l.path), filepath.Ext(l.path))
		if r.cfg.LinkToLogs {
			fmt.Fprintf(&summary, "%s: %s [ %s ]\n", name, l.status, r.link(l.path))
		} else {
			fmt.Fprintf(&summary, "%s: %s\n", name, l.status)
		}
	}

	return fmt.Sprintf("%s: %s\n\nLabel: %s\nJob:   %s\n\n\nSummary\n=======\n\n%s",
		r.now().Format(stamp.Layout), status, r.cfg.Label, run.Stamp, summary.String())
}

func (r *Reporter) link(path string) string {
	rel, err := filepath.Rel(r.cfg.BackupRoot, path)
	if err != nil {
		rel = filepath.Base(path)
	}
	return strings.TrimRight(r.cfg.BaseURL, "/") + "/" + filepath.ToSlash(rel)
}
