//go:build unix

package fs

import "syscall"

// SetUmask sets the process file mode creation mask and returns the old one.
func SetUmask(mask int) int {
	return syscall.Umask(mask)
}
