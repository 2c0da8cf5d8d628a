// Package snapshot models backup snapshots on disk and the catalog of them.
package snapshot

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"time"
)

// Label is the interval tag in front of a snapshot directory name.
type Label string

const (
	Daily      Label = "daily"
	Monthly    Label = "monthly"
	Yearly     Label = "yearly"
	Custom     Label = "custom"
	Incomplete Label = "incomplete"
	// Current is the tag of the old single-snapshot layout. Such snapshots are always pruned.
	Current Label = "current"
)

// StampLayout is the sortable timestamp embedded in snapshot and log names.
const StampLayout = "2006-01-02-150405"

// ContentDir is the subdirectory of a snapshot that holds the replicated tree.
const ContentDir = "backup"

var (
	namePattern = regexp.MustCompile(`^(.+)_([0-9-]{17})$`)

	ErrInvalidName = errors.New("invalid snapshot name")
)

// Snapshot represents a single point-in-time backup directory.
type Snapshot struct {
	Path      string
	Label     Label
	Stamp     string
	CreatedAt time.Time
}

// Name returns the directory name, <label>_<stamp>.
func (s Snapshot) Name() string {
	return NewName(s.Label, s.Stamp)
}

// ContentRoot is the directory holding the replicated file tree.
func (s Snapshot) ContentRoot() string {
	return filepath.Join(s.Path, ContentDir)
}

// Stamp formats t the way snapshot names embed it.
func Stamp(t time.Time) string {
	return t.Format(StampLayout)
}

// NewName builds a snapshot directory name.
func NewName(label Label, stamp string) string {
	return string(label) + "_" + stamp
}

// New returns the snapshot labeled label at stamp inside dir.
func New(dir string, label Label, stamp string) (Snapshot, error) {
	return Parse(filepath.Join(dir, NewName(label, stamp)))
}

// Parse derives a Snapshot from its directory path.
func Parse(path string) (Snapshot, error) {
	name := filepath.Base(path)
	m := namePattern.FindStringSubmatch(name)
	if m == nil {
		return Snapshot{}, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}

	created, err := time.ParseInLocation(StampLayout, m[2], time.Local)
	if err != nil {
		return Snapshot{}, fmt.Errorf("%w: %q: %v", ErrInvalidName, name, err)
	}

	return Snapshot{
		Path:      path,
		Label:     Label(m[1]),
		Stamp:     m[2],
		CreatedAt: created,
	}, nil
}

// IsName reports whether name follows the snapshot naming convention.
func IsName(name string) bool {
	_, err := Parse(name)
	return err == nil
}
