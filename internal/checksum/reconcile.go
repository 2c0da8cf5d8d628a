package checksum

import (
	"context"
	"path/filepath"

	"github.com/raoulx24/rsync-backup/internal/fs"
)

// ReconcileInput is everything needed to assemble the record of a new snapshot.
type ReconcileInput struct {
	// Root is the content root of the new snapshot.
	Root string
	// Present lists every regular file under Root, relative to it.
	Present []string
	// Changed holds the checksums the transfer reported for files it wrote.
	Changed []Entry
	// Prior is the record of the link-base snapshot, if any.
	Prior *Record
	// PriorRoot is the content root of the link-base snapshot. A prior
	// checksum is inherited only by a file hard-linked to the prior one.
	PriorRoot string
}

// ReconcileStats counts where each checksum came from.
type ReconcileStats struct {
	Transferred int
	Inherited   int
	Computed    int
	// Unmatched lists transfer entries naming no present file.
	Unmatched []string
}

// Reconcile returns exactly one checksum per present file. Sources, in
// order: the transfer output, the prior record for files hard-linked to
// the prior snapshot, and finally hashing the file itself.
func Reconcile(ctx context.Context, filesystem fs.FS, in ReconcileInput) (Record, ReconcileStats, error) {
	var stats ReconcileStats

	need := make(map[string]bool, len(in.Present))
	for _, p := range in.Present {
		need[p] = true
	}

	sums := make(map[string]string, len(in.Present))
	for _, e := range in.Changed {
		if need[e.Path] {
			sums[e.Path] = e.Sum
		} else {
			stats.Unmatched = append(stats.Unmatched, e.Path)
		}
	}
	stats.Transferred = len(sums)

	if in.Prior != nil {
		for _, e := range in.Prior.Entries {
			if !need[e.Path] {
				continue
			}
			if _, done := sums[e.Path]; done {
				continue
			}
			if !linkedToPrior(filesystem, in.Root, in.PriorRoot, e.Path) {
				continue
			}
			sums[e.Path] = e.Sum
			stats.Inherited++
		}
	}

	rec := Record{Entries: make([]Entry, 0, len(in.Present))}
	for _, p := range in.Present {
		if err := ctx.Err(); err != nil {
			return Record{}, stats, err
		}

		sum, ok := sums[p]
		if !ok {
			var err error
			sum, err = File(filepath.Join(in.Root, filepath.FromSlash(p)))
			if err != nil {
				return Record{}, stats, err
			}
			stats.Computed++
		}
		rec.Entries = append(rec.Entries, Entry{Path: p, Sum: sum})
	}

	return rec, stats, nil
}

// linkedToPrior reports whether rel is the same inode in both trees. When
// the platform exposes no inode numbers the file is trusted by name.
func linkedToPrior(filesystem fs.FS, root, priorRoot, rel string) bool {
	cur, err := filesystem.Stat(filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil {
		return false
	}
	prev, err := filesystem.Stat(filepath.Join(priorRoot, filepath.FromSlash(rel)))
	if err != nil {
		return false
	}
	if cur.Inode == 0 {
		return true
	}
	return fs.SameFile(cur, prev)
}
