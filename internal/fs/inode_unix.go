//go:build unix

package fs

import (
	"os"
	"syscall"
)

// inodeOf extracts device and inode numbers from syscall.Stat_t.
// They identify hard links between snapshots.
func inodeOf(info os.FileInfo) (dev, ino uint64) {
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return 0, 0
	}
	return uint64(st.Dev), st.Ino
}
