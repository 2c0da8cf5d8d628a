package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/raoulx24/rsync-backup/internal/checksum"
	"github.com/raoulx24/rsync-backup/internal/retention"
	"github.com/raoulx24/rsync-backup/internal/snapshot"
	"github.com/raoulx24/rsync-backup/internal/transfer"
)

// Backup takes a new snapshot: transfer, checksum reconciliation,
// final naming, interval snapshots, retention and log pruning.
func (s *Session) Backup(ctx context.Context) (err error) {
	s.setStatus(StatusFailed, true)
	defer func() {
		if err != nil {
			s.fail(err)
		}
	}()

	cat, err := s.store.Scan(ctx)
	if err != nil {
		return err
	}

	target, err := snapshot.New(s.store.Dir(), snapshot.Incomplete, s.stamp)
	if err != nil {
		return err
	}
	s.log.Info("starting backup", "label", s.cfg.General.Label, "dest", target.ContentRoot(), "dry_run", s.dryRun)

	out, err := s.transfer.Run(ctx, cat, target, s.dryRun)
	if err != nil {
		return err
	}

	if !s.dryRun {
		if err := s.reconcile(ctx, out); err != nil {
			return err
		}
	}

	final, err := s.finalize(ctx, cat, target)
	if err != nil {
		return err
	}

	if err := s.deriveIntervals(ctx, cat, final); err != nil {
		return err
	}

	// Periods are judged from the stamp that named the snapshot.
	s.log.Info("removing old backups")
	deletions := s.retention.Decide(cat, s.cfg.Policies(), s.started)
	if err := s.retention.Apply(ctx, cat, deletions, s.dryRun); err != nil {
		return err
	}
	s.metrics.ObserveCatalog(cat, len(deletions))

	if _, err := s.retention.PruneLogs(ctx, s.logsDir, s.logPath, s.cfg.Retention.Logs, s.started, s.dryRun); err != nil {
		return err
	}

	if s.dryRun {
		s.setStatus(StatusDryRun, false)
	} else {
		s.setStatus(StatusCompleted, false)
	}
	s.log.Info(s.status)
	return nil
}

// reconcile writes the checksum record of the transferred snapshot.
func (s *Session) reconcile(ctx context.Context, out *transfer.Outcome) error {
	files, err := out.Target.Files(ctx)
	if err != nil {
		return err
	}

	in := checksum.ReconcileInput{
		Root:    out.Target.ContentRoot(),
		Present: files,
		Changed: out.Changed,
	}

	if out.LinkBase != nil {
		prior, _, err := checksum.Load(out.LinkBase.Path)
		switch {
		case err == nil:
			in.Prior = &prior
			in.PriorRoot = out.LinkBase.ContentRoot()
		case errors.Is(err, checksum.ErrNoRecord):
			s.log.Warn("link base has no checksum record, hashing unchanged files", "path", out.LinkBase.Path)
		default:
			return fmt.Errorf("loading checksums of %s: %w", out.LinkBase.Path, err)
		}
	}

	rec, stats, err := checksum.Reconcile(ctx, s.fs, in)
	if err != nil {
		return fmt.Errorf("reconciling checksums: %w", err)
	}
	for _, p := range stats.Unmatched {
		s.log.Warn("transferred path matches no file in snapshot", "path", p)
	}

	path, err := checksum.Write(ctx, s.fs, out.Target.Path, rec)
	if err != nil {
		return err
	}

	s.log.Info("added md5 checksums",
		"count", rec.Len(),
		"file", path,
		"from_transfer", stats.Transferred,
		"inherited", stats.Inherited,
		"computed", stats.Computed,
	)
	s.metrics.ObserveTransfer(len(out.Changed), stats.Transferred, stats.Inherited, stats.Computed)
	return nil
}

// finalize renames the incomplete target to daily, or to custom when a
// daily snapshot of today already exists.
func (s *Session) finalize(ctx context.Context, cat *snapshot.Catalog, target snapshot.Snapshot) (snapshot.Snapshot, error) {
	label := snapshot.Daily
	if cat.HasPeriod(snapshot.Daily, retention.Day.Prefix(s.started)) {
		label = snapshot.Custom
	}

	final, err := snapshot.New(s.store.Dir(), label, s.stamp)
	if err != nil {
		return snapshot.Snapshot{}, err
	}

	if s.dryRun {
		s.log.Info("renaming backup (DRY RUN)", "from", target.Path, "to", final.Path)
		return final, nil
	}

	s.log.Info("renaming backup", "from", target.Path, "to", final.Path)
	if err := s.fs.Rename(ctx, target.Path, final.Path); err != nil {
		return snapshot.Snapshot{}, fmt.Errorf("finalizing %s: %w", target.Path, err)
	}
	cat.Replace(target.Path, final)
	return final, nil
}

// deriveIntervals hard-links final into a monthly or yearly snapshot when
// the interval is enabled and has none for the current period.
func (s *Session) deriveIntervals(ctx context.Context, cat *snapshot.Catalog, final snapshot.Snapshot) error {
	for _, p := range s.cfg.Policies() {
		if p.Label == snapshot.Daily || !p.Keep.Enabled() {
			continue
		}
		if cat.HasPeriod(p.Label, p.Period.Prefix(s.started)) {
			continue
		}

		derived, err := snapshot.New(s.store.Dir(), p.Label, s.stamp)
		if err != nil {
			return err
		}

		if s.dryRun {
			s.log.Info("creating interval backup (DRY RUN)", "path", derived.Path)
			continue
		}

		s.log.Info("creating interval backup", "path", derived.Path, "source", final.Path)
		if err := s.fs.LinkTree(ctx, final.Path, derived.Path); err != nil {
			return fmt.Errorf("creating %s: %w", derived.Path, err)
		}
		cat.Add(derived)
	}
	return nil
}
