package fs

import (
	"errors"
	"syscall"
)

// isTransient reports whether err is worth retrying. Disk full and
// permission errors are permanent and must abort the run.
func isTransient(err error) bool {
	return errors.Is(err, syscall.EAGAIN) ||
		errors.Is(err, syscall.EBUSY) ||
		errors.Is(err, syscall.EINTR) ||
		errors.Is(err, syscall.ETIMEDOUT)
}
