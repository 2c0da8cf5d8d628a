package session

import (
	"context"
	"errors"
	"path/filepath"

	"github.com/raoulx24/rsync-backup/internal/snapshot"
	"github.com/raoulx24/rsync-backup/internal/stamp"
)

// Latest names the most recent complete snapshot in Verify.
const Latest = "_current_"

// LastVerificationFile is the marker, in the cache dir, of the last
// verification of the latest snapshot.
const LastVerificationFile = "last_verification"

var ErrNoSnapshot = errors.New("there is no backup to verify")

// Verify checks the snapshot called name, or the latest one when name is
// empty or Latest. Mismatches fail the status, not the call. Only a
// verification of the latest snapshot moves the verification marker.
func (s *Session) Verify(ctx context.Context, name string) (err error) {
	s.setStatus(StatusVerifyFailed, true)
	defer func() {
		if err != nil {
			s.fail(err)
		}
	}()

	latest := name == "" || name == Latest

	var (
		snap snapshot.Snapshot
		ok   bool
	)
	if latest {
		cat, err := s.store.Scan(ctx)
		if err != nil {
			return err
		}
		snap, ok = cat.Latest()
	} else {
		snap, ok, err = s.store.ByName(name)
		if err != nil {
			return err
		}
	}
	if !ok {
		return ErrNoSnapshot
	}

	report, err := s.verifier.Verify(ctx, snap)
	if err != nil {
		return err
	}
	s.metrics.ObserveVerification(report.Checked, report.Failed)

	if report.Failed != 0 {
		s.setStatus(StatusVerifyFailed, false)
		s.log.Error(s.status, "failed_paths", report.FailedPaths())
	} else {
		s.setStatus(StatusVerified, false)
		s.log.Info(s.status)
	}

	if latest && !s.dryRun {
		if err := stamp.Write(s.markerPath(), s.now()); err != nil {
			return err
		}
	}
	return nil
}

// ScheduleVerification verifies the latest snapshot when more than
// general.verificationInterval days passed since the last verification.
// The first call only starts the clock.
func (s *Session) ScheduleVerification(ctx context.Context) error {
	interval := s.cfg.General.VerificationInterval
	if interval <= 0 {
		s.log.Warn("automatic backup verification is disabled, this is NOT recommended")
		return nil
	}

	last, ok, err := stamp.Read(s.markerPath())
	if err != nil {
		s.fail(err)
		return err
	}
	if !ok {
		if s.dryRun {
			return nil
		}
		if err := stamp.Write(s.markerPath(), s.now()); err != nil {
			s.fail(err)
			return err
		}
		return nil
	}

	if stamp.DaysSince(last, s.now()) <= interval {
		return nil
	}

	s.log.Info("verification interval passed, initializing verification", "interval_days", interval)
	return s.Verify(ctx, Latest)
}

func (s *Session) markerPath() string {
	return filepath.Join(s.cacheDir, LastVerificationFile)
}
