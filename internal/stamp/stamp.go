// Package stamp reads and writes single-timestamp marker files such as
// cache/last_verification and cache/last_report.
package stamp

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// Layout is the format of the timestamp line.
const Layout = "2006-01-02 15:04:05"

// Read returns the time stored at path. A missing file reports ok=false.
// An unparsable file also reports ok=false and is deleted.
func Read(path string) (t time.Time, ok bool, err error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, err
	}

	// a missing trailing newline is fine, only the first line matters
	line, _ := bufio.NewReader(f).ReadString('\n')
	f.Close()

	t, perr := time.ParseInLocation(Layout, strings.TrimSpace(line), time.Local)
	if perr != nil {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return time.Time{}, false, fmt.Errorf("removing unparsable marker: %w", err)
		}
		return time.Time{}, false, nil
	}

	return t, true, nil
}

// Write stores now at path.
func Write(path string, now time.Time) error {
	return os.WriteFile(path, []byte(now.Format(Layout)), 0o666)
}

// DaysSince returns the whole days elapsed between t and now.
func DaysSince(t, now time.Time) int {
	return int(now.Sub(t) / (24 * time.Hour))
}
