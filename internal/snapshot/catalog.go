package snapshot

import (
	"sort"
	"strings"
)

// Catalog is the set of snapshots found by one scan of the backups directory.
// It is ordered newest first and is updated in memory as a run renames,
// consumes or derives snapshots, so later decisions never re-list storage.
type Catalog struct {
	snaps []Snapshot
}

// NewCatalog builds a catalog from already parsed snapshots.
func NewCatalog(snaps ...Snapshot) *Catalog {
	c := &Catalog{snaps: append([]Snapshot(nil), snaps...)}
	c.sort()
	return c
}

func (c *Catalog) sort() {
	sort.SliceStable(c.snaps, func(i, j int) bool {
		if c.snaps[i].Stamp != c.snaps[j].Stamp {
			return c.snaps[i].Stamp > c.snaps[j].Stamp
		}
		return c.snaps[i].Name() > c.snaps[j].Name()
	})
}

// List returns all snapshots, newest first.
func (c *Catalog) List() []Snapshot {
	return append([]Snapshot(nil), c.snaps...)
}

// Len returns the number of snapshots.
func (c *Catalog) Len() int {
	return len(c.snaps)
}

// ByLabel returns the snapshots carrying label, newest first.
func (c *Catalog) ByLabel(label Label) []Snapshot {
	var out []Snapshot
	for _, s := range c.snaps {
		if s.Label == label {
			out = append(out, s)
		}
	}
	return out
}

// Latest returns the most recent completed snapshot.
func (c *Catalog) Latest() (Snapshot, bool) {
	for _, s := range c.snaps {
		if s.Label != Incomplete {
			return s, true
		}
	}
	return Snapshot{}, false
}

// Incomplete returns the most recent incomplete snapshot.
// Older ones, left over from repeated crashes, are reported by Stale.
func (c *Catalog) Incomplete() (Snapshot, bool) {
	incomplete := c.ByLabel(Incomplete)
	if len(incomplete) == 0 {
		return Snapshot{}, false
	}
	return incomplete[0], true
}

// Stale returns the incomplete snapshots that Incomplete does not select.
func (c *Catalog) Stale() []Snapshot {
	incomplete := c.ByLabel(Incomplete)
	if len(incomplete) < 2 {
		return nil
	}
	return incomplete[1:]
}

// HasPeriod reports whether a snapshot with label exists whose stamp
// starts with prefix (e.g. "2024-01" for the current month).
func (c *Catalog) HasPeriod(label Label, prefix string) bool {
	for _, s := range c.snaps {
		if s.Label == label && strings.HasPrefix(s.Stamp, prefix) {
			return true
		}
	}
	return false
}

// Add records a snapshot created during the run.
func (c *Catalog) Add(s Snapshot) {
	c.snaps = append(c.snaps, s)
	c.sort()
}

// Remove drops the snapshot stored at path.
func (c *Catalog) Remove(path string) {
	out := c.snaps[:0]
	for _, s := range c.snaps {
		if s.Path != path {
			out = append(out, s)
		}
	}
	c.snaps = out
}

// Replace records that the snapshot at oldPath now lives as s.
func (c *Catalog) Replace(oldPath string, s Snapshot) {
	c.Remove(oldPath)
	c.Add(s)
}
