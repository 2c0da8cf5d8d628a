// Package retention decides which snapshots expire and removes them.
package retention

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/raoulx24/rsync-backup/internal/fs"
	"github.com/raoulx24/rsync-backup/internal/logging"
	"github.com/raoulx24/rsync-backup/internal/snapshot"
)

type Engine struct {
	fs  fs.FS
	log logging.Logger
}

func New(filesystem fs.FS, log logging.Logger) *Engine {
	if filesystem == nil {
		filesystem = fs.New()
	}
	return &Engine{fs: filesystem, log: log}
}

// Deletion is a snapshot marked for removal and why.
type Deletion struct {
	Snapshot snapshot.Snapshot
	Reason   string
}

// Decide returns the snapshots of cat that expire at now. It only reads
// cat, so every decision is made against the same listing.
func (e *Engine) Decide(cat *snapshot.Catalog, policies []Policy, now time.Time) []Deletion {
	var out []Deletion

	for _, s := range cat.ByLabel(snapshot.Current) {
		out = append(out, Deletion{Snapshot: s, Reason: "legacy current snapshot"})
	}

	today := Day.Prefix(now)
	for _, s := range cat.ByLabel(snapshot.Custom) {
		if !strings.HasPrefix(s.Stamp, today) {
			out = append(out, Deletion{Snapshot: s, Reason: "custom snapshot from an earlier day"})
		}
	}

	for _, p := range policies {
		if !p.Keep.Enabled() {
			continue
		}

		// ByLabel is ordered newest first
		snaps := cat.ByLabel(p.Label)
		if len(snaps) <= p.Keep.Count() {
			continue
		}
		for _, s := range snaps[p.Keep.Count():] {
			out = append(out, Deletion{
				Snapshot: s,
				Reason:   fmt.Sprintf("beyond %s retention of %d", p.Label, p.Keep.Count()),
			})
		}
	}

	return out
}

// Apply removes every marked snapshot directory, checksum record included,
// and drops it from cat. In dry-run mode it only logs.
func (e *Engine) Apply(ctx context.Context, cat *snapshot.Catalog, deletions []Deletion, dryRun bool) error {
	for _, d := range deletions {
		if err := ctx.Err(); err != nil {
			return err
		}

		if dryRun {
			e.log.Info("removing snapshot (DRY RUN)", "path", d.Snapshot.Path, "reason", d.Reason)
			continue
		}

		e.log.Info("removing snapshot", "path", d.Snapshot.Path, "reason", d.Reason)
		if err := e.fs.RemoveAll(d.Snapshot.Path); err != nil {
			return fmt.Errorf("removing %s: %w", d.Snapshot.Path, err)
		}
		cat.Remove(d.Snapshot.Path)
	}

	return nil
}
