package snapshot

import (
	"context"
	"io/fs"
	"path/filepath"
)

// Files returns the path of every regular file under the content root,
// relative to it and slash-separated. Symlinks are not followed.
func (s Snapshot) Files(ctx context.Context) ([]string, error) {
	root := s.ContentRoot()
	var files []string

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}

	return files, nil
}
