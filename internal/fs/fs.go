// Package fs defines the filesystem abstraction used by rsync-backup.
// It provides the FS interface and the FileInfo type shared across the system.
package fs

import (
	"context"
	"io"
	"time"
)

type FileInfo struct {
	Path  string
	Size  int64
	MTime time.Time
	IsDir bool
	Dev   uint64
	Inode uint64
}

// SameFile reports whether a and b are the same inode. It is false when
// the platform does not expose inode numbers.
func SameFile(a, b FileInfo) bool {
	return a.Inode != 0 && a.Inode == b.Inode && a.Dev == b.Dev
}

type FS interface {
	Stat(path string) (FileInfo, error)
	Rename(ctx context.Context, oldPath, newPath string) error
	MkdirAll(path string) error
	RemoveAll(path string) error
	// LinkTree reproduces src at dst with every regular file hard-linked.
	LinkTree(ctx context.Context, src, dst string) error
	// WriteAtomic writes path through a temporary sibling and renames it into place.
	WriteAtomic(ctx context.Context, path string, write func(io.Writer) error) error
}
