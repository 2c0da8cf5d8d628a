package fs

import (
	"context"
	"os"
)

// OSFS is the concrete FS backed by the local filesystem.
// Platform-specific details (such as inode extraction) are handled in build-tagged files.
type OSFS struct{}

func New() *OSFS {
	return &OSFS{}
}

func (o *OSFS) Stat(path string) (FileInfo, error) {
	st, err := os.Lstat(path)
	if err != nil {
		return FileInfo{}, err
	}

	dev, ino := inodeOf(st)
	return FileInfo{
		Path:  path,
		Size:  st.Size(),
		MTime: st.ModTime(),
		IsDir: st.IsDir(),
		Dev:   dev,
		Inode: ino,
	}, nil
}

// MkdirAll creates path and its parents. An existing directory is not an error.
func (o *OSFS) MkdirAll(path string) error {
	return os.MkdirAll(path, 0o777)
}

func (o *OSFS) RemoveAll(path string) error {
	return os.RemoveAll(path)
}

func (o *OSFS) Rename(ctx context.Context, oldPath, newPath string) error {
	return renameWithRetry(ctx, oldPath, newPath)
}

func (o *OSFS) LinkTree(ctx context.Context, src, dst string) error {
	return linkTree(ctx, src, dst)
}
