package fs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"syscall"
)

// renameWithRetry wraps os.Rename with retry logic. Snapshot renames must
// stay on one filesystem, so EXDEV is reported as its own error.
func renameWithRetry(ctx context.Context, oldPath, newPath string) error {
	return retry(ctx, "rename", func() error {
		err := os.Rename(oldPath, newPath)
		if errors.Is(err, syscall.EXDEV) {
			return fmt.Errorf("%s and %s are on different filesystems: %w", oldPath, newPath, err)
		}
		return err
	})
}
