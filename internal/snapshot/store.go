package snapshot

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/raoulx24/rsync-backup/internal/fs"
	"github.com/raoulx24/rsync-backup/internal/logging"
)

// BackupsDir is the subdirectory of a job root holding the snapshots.
const BackupsDir = "backups"

// Store gives access to the snapshots of one backup job.
type Store struct {
	root string
	dir  string
	fs   fs.FS
	log  logging.Logger

	migrate    sync.Once
	migrateErr error
}

// NewStore returns a store for the job rooted at root
// (<backupRoot>/<label>). Snapshots live in root/backups.
func NewStore(root string, filesystem fs.FS, log logging.Logger) *Store {
	if filesystem == nil {
		filesystem = fs.New()
	}
	return &Store{
		root: root,
		dir:  filepath.Join(root, BackupsDir),
		fs:   filesystem,
		log:  log,
	}
}

// Dir returns the directory holding the snapshots.
func (st *Store) Dir() string {
	return st.dir
}

// Scan lists the backups directory once and returns the catalog.
// Entries that do not follow the naming convention are ignored.
func (st *Store) Scan(ctx context.Context) (*Catalog, error) {
	st.migrate.Do(func() {
		st.migrateErr = st.migrateFlatLayout(ctx)
	})
	if st.migrateErr != nil {
		return nil, st.migrateErr
	}

	entries, err := os.ReadDir(st.dir)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", st.dir, err)
	}

	var snaps []Snapshot
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		s, err := Parse(filepath.Join(st.dir, e.Name()))
		if err != nil {
			continue
		}
		snaps = append(snaps, s)
	}

	return NewCatalog(snaps...), nil
}

// migrateFlatLayout moves snapshots that older versions kept directly in
// the job root into the backups directory. Running it again finds nothing.
func (st *Store) migrateFlatLayout(ctx context.Context) error {
	entries, err := os.ReadDir(st.root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("reading %s: %w", st.root, err)
	}

	for _, e := range entries {
		if !e.IsDir() || !IsName(e.Name()) {
			continue
		}
		src := filepath.Join(st.root, e.Name())
		dst := filepath.Join(st.dir, e.Name())
		st.log.Info("migrating snapshot to new layout", "from", src, "to", dst)
		if err := st.fs.MkdirAll(st.dir); err != nil {
			return err
		}
		if err := st.fs.Rename(ctx, src, dst); err != nil {
			return fmt.Errorf("migrating %s: %w", src, err)
		}
	}

	return nil
}

// ByName resolves a bare snapshot directory name. It returns false when no
// such snapshot with a content root exists.
func (st *Store) ByName(name string) (Snapshot, bool, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || name != filepath.Base(name) {
		return Snapshot{}, false, fmt.Errorf("%w: specify the folder name of the snapshot, not a path: %q", ErrInvalidName, name)
	}

	s, err := Parse(filepath.Join(st.dir, name))
	if err != nil {
		return Snapshot{}, false, err
	}

	info, err := st.fs.Stat(s.ContentRoot())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Snapshot{}, false, nil
		}
		return Snapshot{}, false, err
	}
	if !info.IsDir {
		return Snapshot{}, false, nil
	}

	return s, true, nil
}
