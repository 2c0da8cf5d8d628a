package fs

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// linkTree walks src and recreates it under dst. Directories are created
// with the source permissions, regular files are hard-linked and symlinks
// are recreated with the same target. Anything else is skipped.
func linkTree(ctx context.Context, src, dst string) error {
	if _, err := os.Lstat(dst); err == nil {
		return fmt.Errorf("link tree: destination %s already exists", dst)
	}

	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		switch {
		case d.IsDir():
			info, err := d.Info()
			if err != nil {
				return err
			}
			return os.Mkdir(target, info.Mode().Perm())

		case d.Type()&fs.ModeSymlink != 0:
			link, err := os.Readlink(path)
			if err != nil {
				return err
			}
			return os.Symlink(link, target)

		case d.Type().IsRegular():
			return os.Link(path, target)
		}

		return nil
	})
}
