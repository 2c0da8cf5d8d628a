// Package integrity re-hashes the files of a snapshot and compares them
// with the checksum record written when the snapshot was taken.
package integrity

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/raoulx24/rsync-backup/internal/checksum"
	"github.com/raoulx24/rsync-backup/internal/logging"
	"github.com/raoulx24/rsync-backup/internal/snapshot"
)

var ErrNothingToVerify = errors.New("there is no checksum record to verify for this snapshot")

// Mismatch is a file whose content no longer matches its stored checksum.
// Actual is empty when the file is missing.
type Mismatch struct {
	Path   string
	Stored string
	Actual string
}

// Report summarizes one verification.
type Report struct {
	Snapshot snapshot.Snapshot
	Format   checksum.Format
	Checked  int
	OK       int
	Failed   int
	Failures []Mismatch
}

// FailedPaths returns the paths of every mismatching file.
func (r *Report) FailedPaths() []string {
	paths := make([]string, 0, len(r.Failures))
	for _, m := range r.Failures {
		paths = append(paths, m.Path)
	}
	return paths
}

type Verifier struct {
	log logging.Logger
}

func New(log logging.Logger) *Verifier {
	return &Verifier{log: log}
}

// Verify checks every entry of the snapshot's checksum record against the
// live file. Mismatches are reported, never repaired. Read errors other
// than a missing file abort the verification.
func (v *Verifier) Verify(ctx context.Context, snap snapshot.Snapshot) (*Report, error) {
	v.log.Info("initializing checksum verification", "snapshot", snap.Path)

	rec, format, err := checksum.Load(snap.Path)
	if err != nil {
		if errors.Is(err, checksum.ErrNoRecord) {
			return nil, ErrNothingToVerify
		}
		return nil, err
	}
	v.log.Info("selected checksum file", "file", filepath.Join(snap.Path, format.FileName()), "entries", rec.Len())

	report := &Report{Snapshot: snap, Format: format}
	root := snap.ContentRoot()

	for _, e := range rec.Entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		path := filepath.Join(root, filepath.FromSlash(e.Path))
		report.Checked++

		actual, err := checksum.File(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("hashing %s: %w", path, err)
		}

		if err == nil && actual == e.Sum {
			report.OK++
			continue
		}

		report.Failed++
		report.Failures = append(report.Failures, Mismatch{Path: e.Path, Stored: e.Sum, Actual: actual})
		v.log.Error("[FAILED] checksum mismatch", "path", path, "actual", actual, "stored", e.Sum)
	}

	v.log.Info("verification finished",
		"files_checked", report.Checked,
		"successful_verifications", report.OK,
		"failed_verifications", report.Failed,
	)

	return report, nil
}
